package core

import (
	"context"
	"fmt"

	"github.com/mikaelw/subtrack/internal/events"
	"github.com/mikaelw/subtrack/internal/model"
)

// AssignmentService manages device assignments under subscriptions.
type AssignmentService struct {
	db  DB
	pub events.Publisher
}

// NewAssignmentService creates a new AssignmentService.
func NewAssignmentService(db DB, pub events.Publisher) *AssignmentService {
	return &AssignmentService{db: db, pub: pub}
}

// Assign hands a device out under a subscription. The device must be in
// stock and either unowned or owned by the subscription's customer; an
// unowned device is adopted by that customer. The claim happens in a single
// guarded update so two concurrent assigns cannot both take the same device.
func (s *AssignmentService) Assign(ctx context.Context, a *model.Assignment, customerID string) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE devices SET status = $1, customer_id = $2, updated_at = now()
		 WHERE id = $3 AND status = $4 AND (customer_id IS NULL OR customer_id = $2)`,
		model.DeviceAssigned, customerID, a.DeviceID, model.DeviceInStock,
	)
	if err != nil {
		return fmt.Errorf("claim device %s: %w", a.DeviceID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("device %s is not available for assignment", a.DeviceID)
	}

	_, err = s.db.Exec(ctx,
		`INSERT INTO assignments (id, device_id, subscription_id, assignee, status, assigned_at, returned_at, notes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		a.ID, a.DeviceID, a.SubscriptionID, a.Assignee, a.Status,
		a.AssignedAt, a.ReturnedAt, a.Notes, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert assignment: %w", err)
	}

	s.pub.Publish(ctx, events.DeviceAssigned, "assignment", a.ID, a)
	return nil
}

// GetByID retrieves an assignment by its ID.
func (s *AssignmentService) GetByID(ctx context.Context, id string) (*model.Assignment, error) {
	var a model.Assignment
	err := s.db.QueryRow(ctx,
		`SELECT id, device_id, subscription_id, assignee, status, assigned_at, returned_at, notes, created_at, updated_at
		 FROM assignments WHERE id = $1`, id,
	).Scan(&a.ID, &a.DeviceID, &a.SubscriptionID, &a.Assignee, &a.Status,
		&a.AssignedAt, &a.ReturnedAt, &a.Notes, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get assignment %s: %w", id, err)
	}
	return &a, nil
}

// ListBySubscription retrieves all assignments under a subscription, most
// recent first.
func (s *AssignmentService) ListBySubscription(ctx context.Context, subscriptionID string) ([]model.Assignment, error) {
	return s.list(ctx,
		`SELECT id, device_id, subscription_id, assignee, status, assigned_at, returned_at, notes, created_at, updated_at
		 FROM assignments WHERE subscription_id = $1 ORDER BY assigned_at DESC, id`, subscriptionID)
}

// ListByDevice retrieves the assignment history of a device, most recent
// first.
func (s *AssignmentService) ListByDevice(ctx context.Context, deviceID string) ([]model.Assignment, error) {
	return s.list(ctx,
		`SELECT id, device_id, subscription_id, assignee, status, assigned_at, returned_at, notes, created_at, updated_at
		 FROM assignments WHERE device_id = $1 ORDER BY assigned_at DESC, id`, deviceID)
}

func (s *AssignmentService) list(ctx context.Context, query, arg string) ([]model.Assignment, error) {
	rows, err := s.db.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	defer rows.Close()

	var assignments []model.Assignment
	for rows.Next() {
		var a model.Assignment
		if err := rows.Scan(&a.ID, &a.DeviceID, &a.SubscriptionID, &a.Assignee, &a.Status,
			&a.AssignedAt, &a.ReturnedAt, &a.Notes, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		assignments = append(assignments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assignments: %w", err)
	}
	return assignments, nil
}

// ActiveCountBySubscription counts devices currently held under a
// subscription. Used to enforce the plan's device limit.
func (s *AssignmentService) ActiveCountBySubscription(ctx context.Context, subscriptionID string) (int, error) {
	var count int
	err := s.db.QueryRow(ctx,
		`SELECT count(*) FROM assignments WHERE subscription_id = $1 AND status = $2`,
		subscriptionID, model.AssignmentActive,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count active assignments for subscription %s: %w", subscriptionID, err)
	}
	return count, nil
}

// Update modifies the assignee and notes of an assignment.
func (s *AssignmentService) Update(ctx context.Context, id, assignee string, notes *string) (*model.Assignment, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE assignments SET assignee = $1, notes = $2, updated_at = now() WHERE id = $3`,
		assignee, notes, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update assignment %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("assignment %s not found", id)
	}
	return s.GetByID(ctx, id)
}

// Return closes an active assignment and puts the device back in stock.
func (s *AssignmentService) Return(ctx context.Context, id string) (*model.Assignment, error) {
	a, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status != model.AssignmentActive {
		return nil, fmt.Errorf("assignment %s is not active", id)
	}

	tag, err := s.db.Exec(ctx,
		`UPDATE assignments SET status = $1, returned_at = now(), updated_at = now()
		 WHERE id = $2 AND status = $3`,
		model.AssignmentReturned, id, model.AssignmentActive,
	)
	if err != nil {
		return nil, fmt.Errorf("return assignment %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("assignment %s is not active", id)
	}

	_, err = s.db.Exec(ctx,
		`UPDATE devices SET status = $1, updated_at = now() WHERE id = $2 AND status = $3`,
		model.DeviceInStock, a.DeviceID, model.DeviceAssigned,
	)
	if err != nil {
		return nil, fmt.Errorf("restock device %s: %w", a.DeviceID, err)
	}

	a, err = s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.pub.Publish(ctx, events.DeviceReturned, "assignment", a.ID, a)
	return a, nil
}
