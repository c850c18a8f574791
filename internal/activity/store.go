package activity

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mikaelw/subtrack/internal/cache"
	"github.com/mikaelw/subtrack/internal/model"
)

// DB defines the database operations used by activity structs.
// *pgxpool.Pool satisfies this interface.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store contains activities that read and update billing state in Postgres.
type Store struct {
	db     DB
	caches *cache.Cache
}

// NewStore creates a new Store activity struct.
func NewStore(db DB, caches *cache.Cache) *Store {
	return &Store{db: db, caches: caches}
}

// SubscriptionContext bundles everything a subscription workflow needs in a
// single activity round trip.
type SubscriptionContext struct {
	Subscription model.Subscription
	Plan         model.Plan
	Customer     model.Customer
	// Assignments holds the subscription's active device assignments.
	Assignments []model.Assignment
}

// GetSubscriptionContext loads the subscription with its plan, customer and
// active assignments.
func (a *Store) GetSubscriptionContext(ctx context.Context, subscriptionID string) (*SubscriptionContext, error) {
	var sc SubscriptionContext

	sub := &sc.Subscription
	err := a.db.QueryRow(ctx,
		`SELECT id, customer_id, plan_id, status, seats, auto_renew, started_at, current_period_start, current_period_end, canceled_at, ended_at, created_at, updated_at
		 FROM subscriptions WHERE id = $1`, subscriptionID,
	).Scan(&sub.ID, &sub.CustomerID, &sub.PlanID, &sub.Status, &sub.Seats, &sub.AutoRenew,
		&sub.StartedAt, &sub.CurrentPeriodStart, &sub.CurrentPeriodEnd,
		&sub.CanceledAt, &sub.EndedAt, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get subscription %s: %w", subscriptionID, err)
	}

	p := &sc.Plan
	err = a.db.QueryRow(ctx,
		`SELECT id, code, name, description, interval, price, currency, device_limit, trial_days, features, status, created_at, updated_at
		 FROM plans WHERE id = $1`, sub.PlanID,
	).Scan(&p.ID, &p.Code, &p.Name, &p.Description, &p.Interval, &p.Price, &p.Currency,
		&p.DeviceLimit, &p.TrialDays, &p.Features, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get plan %s: %w", sub.PlanID, err)
	}

	c := &sc.Customer
	err = a.db.QueryRow(ctx,
		`SELECT id, name, email, country, currency, billing_address, status, created_at, updated_at
		 FROM customers WHERE id = $1`, sub.CustomerID,
	).Scan(&c.ID, &c.Name, &c.Email, &c.Country, &c.Currency, &c.BillingAddress,
		&c.Status, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get customer %s: %w", sub.CustomerID, err)
	}

	rows, err := a.db.Query(ctx,
		`SELECT id, device_id, subscription_id, assignee, status, assigned_at, returned_at, notes, created_at, updated_at
		 FROM assignments WHERE subscription_id = $1 AND status = $2 ORDER BY assigned_at`,
		subscriptionID, model.AssignmentActive,
	)
	if err != nil {
		return nil, fmt.Errorf("list active assignments for %s: %w", subscriptionID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var asg model.Assignment
		if err := rows.Scan(&asg.ID, &asg.DeviceID, &asg.SubscriptionID, &asg.Assignee, &asg.Status,
			&asg.AssignedAt, &asg.ReturnedAt, &asg.Notes, &asg.CreatedAt, &asg.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		sc.Assignments = append(sc.Assignments, asg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assignments: %w", err)
	}

	return &sc, nil
}

// ListRenewableSubscriptions returns IDs of subscriptions whose current
// period has lapsed and that are in a renewable status.
func (a *Store) ListRenewableSubscriptions(ctx context.Context, asOf time.Time) ([]string, error) {
	rows, err := a.db.Query(ctx,
		`SELECT id FROM subscriptions
		 WHERE current_period_end <= $1 AND status = ANY($2)
		 ORDER BY current_period_end`,
		asOf, []string{model.SubscriptionTrialing, model.SubscriptionActive, model.SubscriptionPastDue},
	)
	if err != nil {
		return nil, fmt.Errorf("list renewable subscriptions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan subscription id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// UpdateSubscriptionStatusParams holds the parameters for UpdateSubscriptionStatus.
type UpdateSubscriptionStatusParams struct {
	ID     string
	Status string
}

// UpdateSubscriptionStatus sets the status of a subscription without touching
// any lifecycle timestamps.
func (a *Store) UpdateSubscriptionStatus(ctx context.Context, params UpdateSubscriptionStatusParams) error {
	_, err := a.db.Exec(ctx,
		"UPDATE subscriptions SET status = $1, updated_at = now() WHERE id = $2",
		params.Status, params.ID,
	)
	return err
}

// MarkSubscriptionExpired ends a subscription whose period lapsed without
// renewal. ended_at is only stamped once. The subscription stops granting
// features, so the customer's cached entitlements are dropped.
func (a *Store) MarkSubscriptionExpired(ctx context.Context, id string) error {
	var customerID string
	err := a.db.QueryRow(ctx,
		`UPDATE subscriptions SET status = $1, ended_at = COALESCE(ended_at, now()), updated_at = now()
		 WHERE id = $2 RETURNING customer_id`,
		model.SubscriptionExpired, id,
	).Scan(&customerID)
	if err != nil {
		return fmt.Errorf("mark subscription %s expired: %w", id, err)
	}
	a.caches.Delete(ctx, cache.EntitlementsKey(customerID))
	return nil
}

// MarkSubscriptionCanceled finalizes a cancellation. canceled_at survives a
// retry; ended_at marks the moment the workflow completed the teardown. The
// subscription stops granting features, so the customer's cached entitlements
// are dropped.
func (a *Store) MarkSubscriptionCanceled(ctx context.Context, id string) error {
	var customerID string
	err := a.db.QueryRow(ctx,
		`UPDATE subscriptions SET status = $1, canceled_at = COALESCE(canceled_at, now()), ended_at = COALESCE(ended_at, now()), updated_at = now()
		 WHERE id = $2 RETURNING customer_id`,
		model.SubscriptionCanceled, id,
	).Scan(&customerID)
	if err != nil {
		return fmt.Errorf("mark subscription %s canceled: %w", id, err)
	}
	a.caches.Delete(ctx, cache.EntitlementsKey(customerID))
	return nil
}

// AdvancePeriodParams holds the parameters for AdvanceSubscriptionPeriod.
type AdvancePeriodParams struct {
	ID          string
	PeriodStart time.Time
	PeriodEnd   time.Time
}

// AdvanceSubscriptionPeriod moves the subscription into its next billing
// period. The status becomes active, which also ends a trial.
func (a *Store) AdvanceSubscriptionPeriod(ctx context.Context, params AdvancePeriodParams) error {
	_, err := a.db.Exec(ctx,
		`UPDATE subscriptions SET status = $1, current_period_start = $2, current_period_end = $3, updated_at = now()
		 WHERE id = $4`,
		model.SubscriptionActive, params.PeriodStart, params.PeriodEnd, params.ID,
	)
	if err != nil {
		return fmt.Errorf("advance period for subscription %s: %w", params.ID, err)
	}
	return nil
}

// ReturnAssignment closes an active assignment and puts its device back in
// stock. Already-returned assignments are a no-op so retries stay safe.
func (a *Store) ReturnAssignment(ctx context.Context, assignmentID string) error {
	tag, err := a.db.Exec(ctx,
		`UPDATE assignments SET status = $1, returned_at = now(), updated_at = now()
		 WHERE id = $2 AND status = $3`,
		model.AssignmentReturned, assignmentID, model.AssignmentActive,
	)
	if err != nil {
		return fmt.Errorf("return assignment %s: %w", assignmentID, err)
	}
	if tag.RowsAffected() == 0 {
		return nil
	}

	_, err = a.db.Exec(ctx,
		`UPDATE devices SET status = $1, updated_at = now()
		 WHERE id = (SELECT device_id FROM assignments WHERE id = $2)`,
		model.DeviceInStock, assignmentID,
	)
	if err != nil {
		return fmt.Errorf("restock device for assignment %s: %w", assignmentID, err)
	}
	return nil
}

// GetInvoice retrieves an invoice without its line items.
func (a *Store) GetInvoice(ctx context.Context, id string) (*model.Invoice, error) {
	var inv model.Invoice
	err := a.db.QueryRow(ctx,
		`SELECT id, customer_id, subscription_id, number, status, currency, subtotal, tax_rate, tax_amount, total, period_start, period_end, issued_at, due_at, paid_at, memo, document_key, preview_key, created_at, updated_at
		 FROM invoices WHERE id = $1`, id,
	).Scan(&inv.ID, &inv.CustomerID, &inv.SubscriptionID, &inv.Number, &inv.Status, &inv.Currency,
		&inv.Subtotal, &inv.TaxRate, &inv.TaxAmount, &inv.Total,
		&inv.PeriodStart, &inv.PeriodEnd, &inv.IssuedAt, &inv.DueAt, &inv.PaidAt,
		&inv.Memo, &inv.DocumentKey, &inv.PreviewKey, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get invoice %s: %w", id, err)
	}
	return &inv, nil
}

// SetPreviewKeyParams holds the parameters for SetInvoicePreviewKey.
type SetPreviewKeyParams struct {
	InvoiceID  string
	PreviewKey string
}

// SetInvoicePreviewKey records the object storage key of the rendered preview.
func (a *Store) SetInvoicePreviewKey(ctx context.Context, params SetPreviewKeyParams) error {
	_, err := a.db.Exec(ctx,
		"UPDATE invoices SET preview_key = $1, updated_at = now() WHERE id = $2",
		params.PreviewKey, params.InvoiceID,
	)
	if err != nil {
		return fmt.Errorf("set preview key for invoice %s: %w", params.InvoiceID, err)
	}
	return nil
}
