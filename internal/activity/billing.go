package activity

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/mikaelw/subtrack/internal/model"
	"github.com/mikaelw/subtrack/internal/platform"
)

// Invoices issued without an explicit due date fall due after this many days.
const renewalPaymentTermDays = 14

// Billing contains activities that build and issue renewal invoices.
type Billing struct {
	db DB
}

// NewBilling creates a new Billing activity struct.
func NewBilling(db DB) *Billing {
	return &Billing{db: db}
}

// CreateRenewalInvoiceParams holds the parameters for CreateRenewalInvoice.
type CreateRenewalInvoiceParams struct {
	SubscriptionID string
	PeriodStart    time.Time
	PeriodEnd      time.Time
}

// CreateRenewalInvoice builds the draft invoice for a subscription's next
// billing period: one line for the plan at plan price times seats, plus one
// zero-amount line per active device assignment documenting the hardware
// covered by the period. Returns the invoice ID.
//
// Retries must not create a second invoice for the same period, so an
// existing non-void invoice for (subscription, period_start) is returned
// as is.
func (a *Billing) CreateRenewalInvoice(ctx context.Context, params CreateRenewalInvoiceParams) (string, error) {
	var existingID string
	err := a.db.QueryRow(ctx,
		`SELECT id FROM invoices
		 WHERE subscription_id = $1 AND period_start = $2 AND status <> $3
		 LIMIT 1`,
		params.SubscriptionID, params.PeriodStart, model.InvoiceVoid,
	).Scan(&existingID)
	if err == nil {
		return existingID, nil
	}
	if err != pgx.ErrNoRows {
		return "", fmt.Errorf("check existing renewal invoice: %w", err)
	}

	var (
		customerID string
		seats      int
		planName   string
		price      decimal.Decimal
		currency   string
	)
	err = a.db.QueryRow(ctx,
		`SELECT s.customer_id, s.seats, p.name, p.price, p.currency
		 FROM subscriptions s JOIN plans p ON p.id = s.plan_id
		 WHERE s.id = $1`, params.SubscriptionID,
	).Scan(&customerID, &seats, &planName, &price, &currency)
	if err != nil {
		return "", fmt.Errorf("load subscription %s for renewal: %w", params.SubscriptionID, err)
	}

	now := time.Now().UTC()
	invoiceID := platform.NewID()
	subtotal := price.Mul(decimal.NewFromInt(int64(seats)))

	_, err = a.db.Exec(ctx,
		`INSERT INTO invoices (id, customer_id, subscription_id, status, currency, subtotal, tax_rate, tax_amount, total, period_start, period_end, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		invoiceID, customerID, params.SubscriptionID, model.InvoiceDraft, currency,
		subtotal, decimal.Zero, decimal.Zero, subtotal,
		params.PeriodStart, params.PeriodEnd, now, now,
	)
	if err != nil {
		return "", fmt.Errorf("insert renewal invoice: %w", err)
	}

	planLine := fmt.Sprintf("%s (%s to %s)", planName,
		params.PeriodStart.Format("2006-01-02"), params.PeriodEnd.Format("2006-01-02"))
	_, err = a.db.Exec(ctx,
		`INSERT INTO invoice_line_items (id, invoice_id, description, quantity, unit_amount, amount, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		platform.NewID(), invoiceID, planLine, seats, price, subtotal, now, now,
	)
	if err != nil {
		return "", fmt.Errorf("insert plan line item: %w", err)
	}

	rows, err := a.db.Query(ctx,
		`SELECT d.serial_number, d.model, a.assignee
		 FROM assignments a JOIN devices d ON d.id = a.device_id
		 WHERE a.subscription_id = $1 AND a.status = $2
		 ORDER BY a.assigned_at`,
		params.SubscriptionID, model.AssignmentActive,
	)
	if err != nil {
		return "", fmt.Errorf("list assignments for renewal: %w", err)
	}
	defer rows.Close()

	type deviceLine struct{ serial, deviceModel, assignee string }
	var lines []deviceLine
	for rows.Next() {
		var dl deviceLine
		if err := rows.Scan(&dl.serial, &dl.deviceModel, &dl.assignee); err != nil {
			return "", fmt.Errorf("scan assignment line: %w", err)
		}
		lines = append(lines, dl)
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("iterate assignment lines: %w", err)
	}

	for _, dl := range lines {
		desc := fmt.Sprintf("Device %s %s (%s)", dl.deviceModel, dl.serial, dl.assignee)
		_, err = a.db.Exec(ctx,
			`INSERT INTO invoice_line_items (id, invoice_id, description, quantity, unit_amount, amount, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			platform.NewID(), invoiceID, desc, 1, decimal.Zero, decimal.Zero, now, now,
		)
		if err != nil {
			return "", fmt.Errorf("insert device line item: %w", err)
		}
	}

	return invoiceID, nil
}

// IssueInvoice allocates the next invoice number and opens the invoice.
// Already-issued invoices return their existing number, so a workflow retry
// after a partial failure does not burn a second number.
func (a *Billing) IssueInvoice(ctx context.Context, invoiceID string) (string, error) {
	var (
		number *string
		status string
		dueAt  *time.Time
	)
	err := a.db.QueryRow(ctx,
		"SELECT number, status, due_at FROM invoices WHERE id = $1", invoiceID,
	).Scan(&number, &status, &dueAt)
	if err != nil {
		return "", fmt.Errorf("get invoice %s: %w", invoiceID, err)
	}

	if status != model.InvoiceDraft {
		if number == nil {
			return "", fmt.Errorf("invoice %s is %s but has no number", invoiceID, status)
		}
		return *number, nil
	}

	now := time.Now().UTC()
	var seq int64
	err = a.db.QueryRow(ctx,
		`INSERT INTO invoice_sequences (year, last_value) VALUES ($1, 1)
		 ON CONFLICT (year) DO UPDATE SET last_value = invoice_sequences.last_value + 1
		 RETURNING last_value`, now.Year(),
	).Scan(&seq)
	if err != nil {
		return "", fmt.Errorf("allocate invoice number for %d: %w", now.Year(), err)
	}
	allocated := fmt.Sprintf("INV-%d-%06d", now.Year(), seq)

	if dueAt == nil {
		d := now.AddDate(0, 0, renewalPaymentTermDays)
		dueAt = &d
	}

	_, err = a.db.Exec(ctx,
		`UPDATE invoices SET number = $1, status = $2, issued_at = $3, due_at = $4, updated_at = now()
		 WHERE id = $5 AND status = $6`,
		allocated, model.InvoiceOpen, now, dueAt, invoiceID, model.InvoiceDraft,
	)
	if err != nil {
		return "", fmt.Errorf("issue invoice %s: %w", invoiceID, err)
	}

	return allocated, nil
}
