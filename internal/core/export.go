package core

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"
)

// ExportService streams CSV reports straight from the database. Rows are
// written as they are scanned so large exports never buffer fully in memory.
type ExportService struct {
	db DB
}

// NewExportService creates a new ExportService.
func NewExportService(db DB) *ExportService {
	return &ExportService{db: db}
}

// Subscriptions writes all subscriptions as CSV, joined with customer and
// plan details.
func (s *ExportService) Subscriptions(ctx context.Context, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{
		"id", "customer", "customer_email", "plan", "status", "seats",
		"auto_renew", "current_period_start", "current_period_end", "created_at",
	}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	rows, err := s.db.Query(ctx,
		`SELECT sub.id, c.name, c.email, p.code, sub.status, sub.seats, sub.auto_renew,
		        sub.current_period_start, sub.current_period_end, sub.created_at
		 FROM subscriptions sub
		 JOIN customers c ON c.id = sub.customer_id
		 JOIN plans p ON p.id = sub.plan_id
		 ORDER BY sub.created_at`)
	if err != nil {
		return fmt.Errorf("export subscriptions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id, customer, email, plan, status string
			seats                             int
			autoRenew                         bool
			periodStart, periodEnd, createdAt time.Time
		)
		if err := rows.Scan(&id, &customer, &email, &plan, &status, &seats, &autoRenew,
			&periodStart, &periodEnd, &createdAt); err != nil {
			return fmt.Errorf("scan subscription row: %w", err)
		}
		if err := cw.Write([]string{
			id, customer, email, plan, status, strconv.Itoa(seats),
			strconv.FormatBool(autoRenew), periodStart.Format(time.RFC3339),
			periodEnd.Format(time.RFC3339), createdAt.Format(time.RFC3339),
		}); err != nil {
			return fmt.Errorf("write subscription row: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate subscription rows: %w", err)
	}

	cw.Flush()
	return cw.Error()
}

// Invoices writes all invoices as CSV.
func (s *ExportService) Invoices(ctx context.Context, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{
		"id", "number", "customer", "status", "currency", "subtotal",
		"tax_amount", "total", "issued_at", "due_at", "paid_at",
	}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	rows, err := s.db.Query(ctx,
		`SELECT i.id, i.number, c.name, i.status, i.currency,
		        i.subtotal::text, i.tax_amount::text, i.total::text,
		        i.issued_at, i.due_at, i.paid_at
		 FROM invoices i
		 JOIN customers c ON c.id = i.customer_id
		 ORDER BY i.created_at`)
	if err != nil {
		return fmt.Errorf("export invoices: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id, customer, status, currency string
			number                         *string
			subtotal, taxAmount, total     string
			issuedAt, dueAt, paidAt        *time.Time
		)
		if err := rows.Scan(&id, &number, &customer, &status, &currency,
			&subtotal, &taxAmount, &total, &issuedAt, &dueAt, &paidAt); err != nil {
			return fmt.Errorf("scan invoice row: %w", err)
		}
		if err := cw.Write([]string{
			id, strOrEmpty(number), customer, status, currency,
			subtotal, taxAmount, total,
			timeOrEmpty(issuedAt), timeOrEmpty(dueAt), timeOrEmpty(paidAt),
		}); err != nil {
			return fmt.Errorf("write invoice row: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate invoice rows: %w", err)
	}

	cw.Flush()
	return cw.Error()
}

// Devices writes the device inventory as CSV.
func (s *ExportService) Devices(ctx context.Context, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{
		"id", "serial_number", "model", "manufacturer", "owner", "status",
		"purchased_at", "warranty_expires_at",
	}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	rows, err := s.db.Query(ctx,
		`SELECT d.id, d.serial_number, d.model, d.manufacturer, c.name, d.status,
		        d.purchased_at, d.warranty_expires_at
		 FROM devices d
		 LEFT JOIN customers c ON c.id = d.customer_id
		 ORDER BY d.created_at`)
	if err != nil {
		return fmt.Errorf("export devices: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id, serial, deviceModel, manufacturer, status string
			owner                                         *string
			purchasedAt, warrantyExpiresAt                *time.Time
		)
		if err := rows.Scan(&id, &serial, &deviceModel, &manufacturer, &owner, &status,
			&purchasedAt, &warrantyExpiresAt); err != nil {
			return fmt.Errorf("scan device row: %w", err)
		}
		if err := cw.Write([]string{
			id, serial, deviceModel, manufacturer, strOrEmpty(owner), status,
			timeOrEmpty(purchasedAt), timeOrEmpty(warrantyExpiresAt),
		}); err != nil {
			return fmt.Errorf("write device row: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate device rows: %w", err)
	}

	cw.Flush()
	return cw.Error()
}

// Assignments writes the assignment history as CSV.
func (s *ExportService) Assignments(ctx context.Context, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{
		"id", "device_serial", "customer", "assignee", "status",
		"assigned_at", "returned_at",
	}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	rows, err := s.db.Query(ctx,
		`SELECT a.id, d.serial_number, c.name, a.assignee, a.status, a.assigned_at, a.returned_at
		 FROM assignments a
		 JOIN devices d ON d.id = a.device_id
		 JOIN subscriptions sub ON sub.id = a.subscription_id
		 JOIN customers c ON c.id = sub.customer_id
		 ORDER BY a.assigned_at`)
	if err != nil {
		return fmt.Errorf("export assignments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id, serial, customer, assignee, status string
			assignedAt                             time.Time
			returnedAt                             *time.Time
		)
		if err := rows.Scan(&id, &serial, &customer, &assignee, &status, &assignedAt, &returnedAt); err != nil {
			return fmt.Errorf("scan assignment row: %w", err)
		}
		if err := cw.Write([]string{
			id, serial, customer, assignee, status,
			assignedAt.Format(time.RFC3339), timeOrEmpty(returnedAt),
		}); err != nil {
			return fmt.Errorf("write assignment row: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate assignment rows: %w", err)
	}

	cw.Flush()
	return cw.Error()
}

func strOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func timeOrEmpty(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}
