package core

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mikaelw/subtrack/internal/api/request"
	"github.com/mikaelw/subtrack/internal/model"
)

// PlanService manages the plan catalog.
type PlanService struct {
	db DB
}

// NewPlanService creates a new PlanService.
func NewPlanService(db DB) *PlanService {
	return &PlanService{db: db}
}

// Create inserts a new plan.
func (s *PlanService) Create(ctx context.Context, p *model.Plan) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO plans (id, code, name, description, interval, price, currency, device_limit, trial_days, features, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		p.ID, p.Code, p.Name, p.Description, p.Interval, p.Price, p.Currency,
		p.DeviceLimit, p.TrialDays, p.Features, p.Status, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert plan: %w", err)
	}
	return nil
}

// GetByID retrieves a plan by its ID.
func (s *PlanService) GetByID(ctx context.Context, id string) (*model.Plan, error) {
	var p model.Plan
	err := s.db.QueryRow(ctx,
		`SELECT id, code, name, description, interval, price, currency, device_limit, trial_days, features, status, created_at, updated_at
		 FROM plans WHERE id = $1`, id,
	).Scan(&p.ID, &p.Code, &p.Name, &p.Description, &p.Interval, &p.Price, &p.Currency,
		&p.DeviceLimit, &p.TrialDays, &p.Features, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get plan %s: %w", id, err)
	}
	return &p, nil
}

// GetByCode retrieves a plan by its unique code.
func (s *PlanService) GetByCode(ctx context.Context, code string) (*model.Plan, error) {
	var p model.Plan
	err := s.db.QueryRow(ctx,
		`SELECT id, code, name, description, interval, price, currency, device_limit, trial_days, features, status, created_at, updated_at
		 FROM plans WHERE code = $1`, code,
	).Scan(&p.ID, &p.Code, &p.Name, &p.Description, &p.Interval, &p.Price, &p.Currency,
		&p.DeviceLimit, &p.TrialDays, &p.Features, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get plan by code %s: %w", code, err)
	}
	return &p, nil
}

// List retrieves plans with cursor-based pagination. Search matches code and
// name.
func (s *PlanService) List(ctx context.Context, params request.ListParams) ([]model.Plan, bool, error) {
	query := `SELECT id, code, name, description, interval, price, currency, device_limit, trial_days, features, status, created_at, updated_at FROM plans WHERE 1=1`
	args := []any{}
	argIdx := 1

	if params.Search != "" {
		query += fmt.Sprintf(` AND (code ILIKE $%d OR name ILIKE $%d)`, argIdx, argIdx)
		args = append(args, "%"+params.Search+"%")
		argIdx++
	}
	if params.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, params.Status)
		argIdx++
	}
	if params.Cursor != "" {
		query += fmt.Sprintf(` AND id > $%d`, argIdx)
		args = append(args, params.Cursor)
		argIdx++
	}

	query += ` ORDER BY id`
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, params.Limit+1)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()

	var plans []model.Plan
	for rows.Next() {
		var p model.Plan
		if err := rows.Scan(&p.ID, &p.Code, &p.Name, &p.Description, &p.Interval, &p.Price, &p.Currency,
			&p.DeviceLimit, &p.TrialDays, &p.Features, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, false, fmt.Errorf("scan plan: %w", err)
		}
		plans = append(plans, p)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate plans: %w", err)
	}

	hasMore := len(plans) > params.Limit
	if hasMore {
		plans = plans[:params.Limit]
	}
	return plans, hasMore, nil
}

// Update modifies the mutable fields of a plan. Price changes only affect
// invoices issued after the change; existing drafts keep their line amounts.
func (s *PlanService) Update(ctx context.Context, id, name string, description *string, price decimal.Decimal, deviceLimit, trialDays int, features []string) (*model.Plan, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE plans SET name = $1, description = $2, price = $3, device_limit = $4, trial_days = $5, features = $6, updated_at = now()
		 WHERE id = $7`,
		name, description, price, deviceLimit, trialDays, features, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update plan %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("plan %s not found", id)
	}
	return s.GetByID(ctx, id)
}

// Retire flips the plan to retired so new subscriptions cannot reference it.
func (s *PlanService) Retire(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx,
		"UPDATE plans SET status = $1, updated_at = now() WHERE id = $2",
		model.PlanRetired, id,
	)
	if err != nil {
		return fmt.Errorf("retire plan %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("plan %s not found", id)
	}
	return nil
}

// OpenSubscriptionCount returns how many non-terminal subscriptions reference
// the plan. Used to block retirement of plans still in use.
func (s *PlanService) OpenSubscriptionCount(ctx context.Context, id string) (int, error) {
	var count int
	err := s.db.QueryRow(ctx,
		`SELECT count(*) FROM subscriptions WHERE plan_id = $1 AND status NOT IN ($2, $3)`,
		id, model.SubscriptionCanceled, model.SubscriptionExpired,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count open subscriptions for plan %s: %w", id, err)
	}
	return count, nil
}
