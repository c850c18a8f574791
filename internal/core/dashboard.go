package core

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mikaelw/subtrack/internal/cache"
	"github.com/mikaelw/subtrack/internal/model"
)

// DashboardStats holds aggregate counts from the billing database.
type DashboardStats struct {
	Customers             int `json:"customers"`
	CustomersActive       int `json:"customers_active"`
	Plans                 int `json:"plans"`
	Subscriptions         int `json:"subscriptions"`
	SubscriptionsActive   int `json:"subscriptions_active"`
	SubscriptionsTrialing int `json:"subscriptions_trialing"`
	SubscriptionsPastDue  int `json:"subscriptions_past_due"`
	Devices               int `json:"devices"`
	DevicesInStock        int `json:"devices_in_stock"`
	DevicesAssigned       int `json:"devices_assigned"`
	AssignmentsActive     int `json:"assignments_active"`
	Invoices              int `json:"invoices"`
	InvoicesOpen          int `json:"invoices_open"`
	InvoicesOverdue       int `json:"invoices_overdue"`

	SubscriptionsByStatus []StatusCount           `json:"subscriptions_by_status"`
	DevicesByStatus       []StatusCount           `json:"devices_by_status"`
	InvoicesByStatus      []StatusCount           `json:"invoices_by_status"`
	SubscriptionsPerPlan  []PlanSubscriptionCount `json:"subscriptions_per_plan"`

	OpenAmount     decimal.Decimal  `json:"open_amount"`
	PaidLast30d    decimal.Decimal  `json:"paid_last_30d"`
	MonthlyRunRate *decimal.Decimal `json:"monthly_run_rate"`
}

// PlanSubscriptionCount holds subscription count per plan.
type PlanSubscriptionCount struct {
	PlanID   string `json:"plan_id"`
	PlanCode string `json:"plan_code"`
	PlanName string `json:"plan_name"`
	Count    int    `json:"count"`
}

// StatusCount holds a count grouped by status.
type StatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// DashboardService queries aggregate stats from the billing DB. Results are
// cached briefly so a busy dashboard does not hammer the database.
type DashboardService struct {
	db     DB
	caches *cache.Cache
}

// NewDashboardService creates a new DashboardService.
func NewDashboardService(db DB, caches *cache.Cache) *DashboardService {
	return &DashboardService{db: db, caches: caches}
}

// Stats returns aggregate counts from the billing database using a single
// query with CTEs for efficiency.
func (s *DashboardService) Stats(ctx context.Context) (*DashboardStats, error) {
	var cached DashboardStats
	if ok := s.caches.GetJSON(ctx, cache.DashboardStatsKey(), &cached); ok {
		return &cached, nil
	}

	const countsQuery = `
		WITH customer_count AS (
			SELECT count(*) AS c FROM customers
		), customer_active AS (
			SELECT count(*) AS c FROM customers WHERE status = 'active'
		), plan_count AS (
			SELECT count(*) AS c FROM plans WHERE status = 'active'
		), subscription_count AS (
			SELECT count(*) AS c FROM subscriptions
		), subscription_active AS (
			SELECT count(*) AS c FROM subscriptions WHERE status = 'active'
		), subscription_trialing AS (
			SELECT count(*) AS c FROM subscriptions WHERE status = 'trialing'
		), subscription_past_due AS (
			SELECT count(*) AS c FROM subscriptions WHERE status = 'past_due'
		), device_count AS (
			SELECT count(*) AS c FROM devices
		), device_in_stock AS (
			SELECT count(*) AS c FROM devices WHERE status = 'in_stock'
		), device_assigned AS (
			SELECT count(*) AS c FROM devices WHERE status = 'assigned'
		), assignment_active AS (
			SELECT count(*) AS c FROM assignments WHERE status = 'active'
		), invoice_count AS (
			SELECT count(*) AS c FROM invoices
		), invoice_open AS (
			SELECT count(*) AS c FROM invoices WHERE status = 'open'
		), invoice_overdue AS (
			SELECT count(*) AS c FROM invoices WHERE status = 'open' AND due_at < now()
		)
		SELECT
			(SELECT c FROM customer_count),
			(SELECT c FROM customer_active),
			(SELECT c FROM plan_count),
			(SELECT c FROM subscription_count),
			(SELECT c FROM subscription_active),
			(SELECT c FROM subscription_trialing),
			(SELECT c FROM subscription_past_due),
			(SELECT c FROM device_count),
			(SELECT c FROM device_in_stock),
			(SELECT c FROM device_assigned),
			(SELECT c FROM assignment_active),
			(SELECT c FROM invoice_count),
			(SELECT c FROM invoice_open),
			(SELECT c FROM invoice_overdue)`

	stats := &DashboardStats{}
	err := s.db.QueryRow(ctx, countsQuery).Scan(
		&stats.Customers,
		&stats.CustomersActive,
		&stats.Plans,
		&stats.Subscriptions,
		&stats.SubscriptionsActive,
		&stats.SubscriptionsTrialing,
		&stats.SubscriptionsPastDue,
		&stats.Devices,
		&stats.DevicesInStock,
		&stats.DevicesAssigned,
		&stats.AssignmentsActive,
		&stats.Invoices,
		&stats.InvoicesOpen,
		&stats.InvoicesOverdue,
	)
	if err != nil {
		return nil, fmt.Errorf("dashboard counts: %w", err)
	}

	// Subscriptions by status
	sbsRows, err := s.db.Query(ctx,
		`SELECT status, count(*) FROM subscriptions GROUP BY status ORDER BY count(*) DESC`)
	if err != nil {
		return nil, fmt.Errorf("dashboard subscriptions by status: %w", err)
	}
	defer sbsRows.Close()

	for sbsRows.Next() {
		var sc StatusCount
		if err := sbsRows.Scan(&sc.Status, &sc.Count); err != nil {
			return nil, fmt.Errorf("scan subscription status count: %w", err)
		}
		stats.SubscriptionsByStatus = append(stats.SubscriptionsByStatus, sc)
	}
	if err := sbsRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscription status counts: %w", err)
	}

	// Devices by status
	dbsRows, err := s.db.Query(ctx,
		`SELECT status, count(*) FROM devices GROUP BY status ORDER BY count(*) DESC`)
	if err != nil {
		return nil, fmt.Errorf("dashboard devices by status: %w", err)
	}
	defer dbsRows.Close()

	for dbsRows.Next() {
		var sc StatusCount
		if err := dbsRows.Scan(&sc.Status, &sc.Count); err != nil {
			return nil, fmt.Errorf("scan device status count: %w", err)
		}
		stats.DevicesByStatus = append(stats.DevicesByStatus, sc)
	}
	if err := dbsRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate device status counts: %w", err)
	}

	// Invoices by status
	ibsRows, err := s.db.Query(ctx,
		`SELECT status, count(*) FROM invoices GROUP BY status ORDER BY count(*) DESC`)
	if err != nil {
		return nil, fmt.Errorf("dashboard invoices by status: %w", err)
	}
	defer ibsRows.Close()

	for ibsRows.Next() {
		var sc StatusCount
		if err := ibsRows.Scan(&sc.Status, &sc.Count); err != nil {
			return nil, fmt.Errorf("scan invoice status count: %w", err)
		}
		stats.InvoicesByStatus = append(stats.InvoicesByStatus, sc)
	}
	if err := ibsRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate invoice status counts: %w", err)
	}

	// Subscriptions per plan
	sppRows, err := s.db.Query(ctx,
		`SELECT p.id, p.code, p.name, count(sub.id)
		 FROM plans p LEFT JOIN subscriptions sub ON sub.plan_id = p.id AND sub.status NOT IN ('canceled', 'expired')
		 GROUP BY p.id, p.code, p.name
		 ORDER BY count(sub.id) DESC`)
	if err != nil {
		return nil, fmt.Errorf("dashboard subscriptions per plan: %w", err)
	}
	defer sppRows.Close()

	for sppRows.Next() {
		var pc PlanSubscriptionCount
		if err := sppRows.Scan(&pc.PlanID, &pc.PlanCode, &pc.PlanName, &pc.Count); err != nil {
			return nil, fmt.Errorf("scan plan subscription count: %w", err)
		}
		stats.SubscriptionsPerPlan = append(stats.SubscriptionsPerPlan, pc)
	}
	if err := sppRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate plan subscription counts: %w", err)
	}

	// Revenue aggregates
	err = s.db.QueryRow(ctx,
		`SELECT
			COALESCE((SELECT sum(total) FROM invoices WHERE status = 'open'), 0),
			COALESCE((SELECT sum(total) FROM invoices WHERE status = 'paid' AND paid_at > now() - interval '30 days'), 0)`,
	).Scan(&stats.OpenAmount, &stats.PaidLast30d)
	if err != nil {
		return nil, fmt.Errorf("dashboard revenue: %w", err)
	}

	// Monthly run rate over renewing subscriptions, yearly plans prorated
	var runRate *decimal.Decimal
	err = s.db.QueryRow(ctx,
		`SELECT sum(CASE WHEN p.interval = 'year' THEN p.price * sub.seats / 12 ELSE p.price * sub.seats END)
		 FROM subscriptions sub JOIN plans p ON p.id = sub.plan_id
		 WHERE sub.status IN ('trialing', 'active', 'past_due') AND sub.auto_renew`).Scan(&runRate)
	if err == nil {
		stats.MonthlyRunRate = runRate
	}

	s.caches.SetJSON(ctx, cache.DashboardStatsKey(), stats, cache.DashboardStatsTTL)
	return stats, nil
}

// RecentActivity returns the latest mutating API requests from the audit
// log for the dashboard activity feed.
func (s *DashboardService) RecentActivity(ctx context.Context, limit int) ([]model.AuditLog, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, actor_type, actor_id, method, path, resource_type, resource_id, status_code, request_body, created_at
		 FROM audit_logs ORDER BY id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("dashboard activity: %w", err)
	}
	defer rows.Close()

	var logs []model.AuditLog
	for rows.Next() {
		var l model.AuditLog
		if err := rows.Scan(&l.ID, &l.ActorType, &l.ActorID, &l.Method, &l.Path,
			&l.ResourceType, &l.ResourceID, &l.StatusCode, &l.RequestBody, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit log: %w", err)
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit logs: %w", err)
	}
	return logs, nil
}
