package core

import (
	"context"
	"fmt"
	"time"

	temporalclient "go.temporal.io/sdk/client"

	"github.com/mikaelw/subtrack/internal/api/request"
	"github.com/mikaelw/subtrack/internal/cache"
	"github.com/mikaelw/subtrack/internal/events"
	"github.com/mikaelw/subtrack/internal/model"
	"github.com/mikaelw/subtrack/internal/platform"
)

// SubscriptionService manages subscription lifecycle operations.
type SubscriptionService struct {
	db     DB
	tc     temporalclient.Client
	pub    events.Publisher
	caches *cache.Cache
}

// NewSubscriptionService creates a new SubscriptionService.
func NewSubscriptionService(db DB, tc temporalclient.Client, pub events.Publisher, caches *cache.Cache) *SubscriptionService {
	return &SubscriptionService{db: db, tc: tc, pub: pub, caches: caches}
}

// Create starts a new subscription for a customer on the given plan. Plans
// with trial days start in trialing with the trial as the first period;
// otherwise the subscription is active with a full billing period.
func (s *SubscriptionService) Create(ctx context.Context, customerID string, plan *model.Plan, seats int, autoRenew bool) (*model.Subscription, error) {
	now := time.Now().UTC()

	sub := &model.Subscription{
		ID:                 platform.NewID(),
		CustomerID:         customerID,
		PlanID:             plan.ID,
		Seats:              seats,
		AutoRenew:          autoRenew,
		StartedAt:          now,
		CurrentPeriodStart: now,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if plan.TrialDays > 0 {
		sub.Status = model.SubscriptionTrialing
		sub.CurrentPeriodEnd = now.AddDate(0, 0, plan.TrialDays)
	} else {
		sub.Status = model.SubscriptionActive
		sub.CurrentPeriodEnd = model.NextPeriodEnd(now, plan.Interval)
	}

	_, err := s.db.Exec(ctx,
		`INSERT INTO subscriptions (id, customer_id, plan_id, status, seats, auto_renew, started_at, current_period_start, current_period_end, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		sub.ID, sub.CustomerID, sub.PlanID, sub.Status, sub.Seats, sub.AutoRenew,
		sub.StartedAt, sub.CurrentPeriodStart, sub.CurrentPeriodEnd, sub.CreatedAt, sub.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert subscription: %w", err)
	}

	s.caches.Delete(ctx, cache.EntitlementsKey(customerID))
	s.pub.Publish(ctx, events.SubscriptionCreated, "subscription", sub.ID, sub)

	return sub, nil
}

// GetByID retrieves a subscription by its ID.
func (s *SubscriptionService) GetByID(ctx context.Context, id string) (*model.Subscription, error) {
	var sub model.Subscription
	err := s.db.QueryRow(ctx,
		`SELECT id, customer_id, plan_id, status, seats, auto_renew, started_at, current_period_start, current_period_end, canceled_at, ended_at, created_at, updated_at
		 FROM subscriptions WHERE id = $1`, id,
	).Scan(&sub.ID, &sub.CustomerID, &sub.PlanID, &sub.Status, &sub.Seats, &sub.AutoRenew,
		&sub.StartedAt, &sub.CurrentPeriodStart, &sub.CurrentPeriodEnd, &sub.CanceledAt, &sub.EndedAt,
		&sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get subscription %s: %w", id, err)
	}
	return &sub, nil
}

// List retrieves subscriptions with cursor-based pagination, optionally
// scoped to a single customer. Search matches the customer name.
func (s *SubscriptionService) List(ctx context.Context, customerID string, params request.ListParams) ([]model.Subscription, bool, error) {
	query := `SELECT s.id, s.customer_id, s.plan_id, s.status, s.seats, s.auto_renew, s.started_at, s.current_period_start, s.current_period_end, s.canceled_at, s.ended_at, s.created_at, s.updated_at
		 FROM subscriptions s JOIN customers c ON c.id = s.customer_id WHERE 1=1`
	args := []any{}
	argIdx := 1

	if customerID != "" {
		query += fmt.Sprintf(` AND s.customer_id = $%d`, argIdx)
		args = append(args, customerID)
		argIdx++
	}
	if params.Search != "" {
		query += fmt.Sprintf(` AND c.name ILIKE $%d`, argIdx)
		args = append(args, "%"+params.Search+"%")
		argIdx++
	}
	if params.Status != "" {
		query += fmt.Sprintf(` AND s.status = $%d`, argIdx)
		args = append(args, params.Status)
		argIdx++
	}
	if params.Cursor != "" {
		query += fmt.Sprintf(` AND s.id > $%d`, argIdx)
		args = append(args, params.Cursor)
		argIdx++
	}

	query += ` ORDER BY s.id`
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, params.Limit+1)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []model.Subscription
	for rows.Next() {
		var sub model.Subscription
		if err := rows.Scan(&sub.ID, &sub.CustomerID, &sub.PlanID, &sub.Status, &sub.Seats, &sub.AutoRenew,
			&sub.StartedAt, &sub.CurrentPeriodStart, &sub.CurrentPeriodEnd, &sub.CanceledAt, &sub.EndedAt,
			&sub.CreatedAt, &sub.UpdatedAt); err != nil {
			return nil, false, fmt.Errorf("scan subscription: %w", err)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate subscriptions: %w", err)
	}

	hasMore := len(subs) > params.Limit
	if hasMore {
		subs = subs[:params.Limit]
	}
	return subs, hasMore, nil
}

// Update modifies seats and auto-renew. Everything else changes through
// lifecycle operations.
func (s *SubscriptionService) Update(ctx context.Context, id string, seats int, autoRenew bool) (*model.Subscription, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE subscriptions SET seats = $1, auto_renew = $2, updated_at = now() WHERE id = $3`,
		seats, autoRenew, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update subscription %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("subscription %s not found", id)
	}
	return s.GetByID(ctx, id)
}

// Pause suspends billing on a running subscription. The current period keeps
// its end date; renewal scans skip paused subscriptions.
func (s *SubscriptionService) Pause(ctx context.Context, id string) (*model.Subscription, error) {
	sub, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !model.SubscriptionRenewable(sub.Status) {
		return nil, fmt.Errorf("subscription %s cannot be paused from status %s", id, sub.Status)
	}

	_, err = s.db.Exec(ctx,
		"UPDATE subscriptions SET status = $1, updated_at = now() WHERE id = $2",
		model.SubscriptionPaused, id,
	)
	if err != nil {
		return nil, fmt.Errorf("pause subscription %s: %w", id, err)
	}

	s.caches.Delete(ctx, cache.EntitlementsKey(sub.CustomerID))
	s.pub.Publish(ctx, events.SubscriptionPaused, "subscription", id, nil)

	return s.GetByID(ctx, id)
}

// Resume reactivates a paused subscription.
func (s *SubscriptionService) Resume(ctx context.Context, id string) (*model.Subscription, error) {
	sub, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub.Status != model.SubscriptionPaused {
		return nil, fmt.Errorf("subscription %s is not paused (current: %s)", id, sub.Status)
	}

	_, err = s.db.Exec(ctx,
		"UPDATE subscriptions SET status = $1, updated_at = now() WHERE id = $2",
		model.SubscriptionActive, id,
	)
	if err != nil {
		return nil, fmt.Errorf("resume subscription %s: %w", id, err)
	}

	s.caches.Delete(ctx, cache.EntitlementsKey(sub.CustomerID))
	s.pub.Publish(ctx, events.SubscriptionResumed, "subscription", id, nil)

	return s.GetByID(ctx, id)
}

// StartRenewal triggers the renewal workflow for one subscription.
func (s *SubscriptionService) StartRenewal(ctx context.Context, id string) error {
	sub, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !model.SubscriptionRenewable(sub.Status) {
		return fmt.Errorf("subscription %s is not renewable from status %s", id, sub.Status)
	}

	if err := startWorkflow(ctx, s.tc, "SubscriptionRenewalWorkflow", workflowID("subscription-renewal", id), id); err != nil {
		return fmt.Errorf("start SubscriptionRenewalWorkflow: %w", err)
	}
	return nil
}

// StartCancel triggers the cancellation workflow, which returns assigned
// devices before marking the subscription canceled.
func (s *SubscriptionService) StartCancel(ctx context.Context, id string) error {
	sub, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if model.SubscriptionTerminal(sub.Status) {
		return fmt.Errorf("subscription %s is already %s", id, sub.Status)
	}

	if err := startWorkflow(ctx, s.tc, "CancelSubscriptionWorkflow", workflowID("subscription-cancel", id), id); err != nil {
		return fmt.Errorf("start CancelSubscriptionWorkflow: %w", err)
	}
	return nil
}
