package core

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mikaelw/subtrack/internal/api/request"
	"github.com/mikaelw/subtrack/internal/events"
	"github.com/mikaelw/subtrack/internal/model"
	"github.com/mikaelw/subtrack/internal/platform"
)

// Invoices issued without an explicit due date fall due after this many days.
const defaultPaymentTermDays = 14

// InvoiceService manages invoices and their lifecycle.
type InvoiceService struct {
	db  DB
	pub events.Publisher
}

// NewInvoiceService creates a new InvoiceService.
func NewInvoiceService(db DB, pub events.Publisher) *InvoiceService {
	return &InvoiceService{db: db, pub: pub}
}

// CreateDraft inserts a new draft invoice. Drafts have no number; totals
// stay zero until line items are added.
func (s *InvoiceService) CreateDraft(ctx context.Context, inv *model.Invoice) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO invoices (id, customer_id, subscription_id, status, currency, subtotal, tax_rate, tax_amount, total, period_start, period_end, due_at, memo, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		inv.ID, inv.CustomerID, inv.SubscriptionID, inv.Status, inv.Currency,
		inv.Subtotal, inv.TaxRate, inv.TaxAmount, inv.Total,
		inv.PeriodStart, inv.PeriodEnd, inv.DueAt, inv.Memo, inv.CreatedAt, inv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert invoice: %w", err)
	}
	return nil
}

// GetByID retrieves an invoice with its line items.
func (s *InvoiceService) GetByID(ctx context.Context, id string) (*model.Invoice, error) {
	var inv model.Invoice
	err := s.db.QueryRow(ctx,
		`SELECT id, customer_id, subscription_id, number, status, currency, subtotal, tax_rate, tax_amount, total, period_start, period_end, issued_at, due_at, paid_at, memo, document_key, preview_key, created_at, updated_at
		 FROM invoices WHERE id = $1`, id,
	).Scan(&inv.ID, &inv.CustomerID, &inv.SubscriptionID, &inv.Number, &inv.Status, &inv.Currency,
		&inv.Subtotal, &inv.TaxRate, &inv.TaxAmount, &inv.Total,
		&inv.PeriodStart, &inv.PeriodEnd, &inv.IssuedAt, &inv.DueAt, &inv.PaidAt,
		&inv.Memo, &inv.DocumentKey, &inv.PreviewKey, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get invoice %s: %w", id, err)
	}

	items, err := listLineItems(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	inv.LineItems = items

	return &inv, nil
}

// List retrieves invoices with cursor-based pagination, optionally scoped to
// one customer. Search matches the invoice number and customer name.
func (s *InvoiceService) List(ctx context.Context, customerID string, params request.ListParams) ([]model.Invoice, bool, error) {
	query := `SELECT i.id, i.customer_id, i.subscription_id, i.number, i.status, i.currency, i.subtotal, i.tax_rate, i.tax_amount, i.total, i.period_start, i.period_end, i.issued_at, i.due_at, i.paid_at, i.memo, i.document_key, i.preview_key, i.created_at, i.updated_at
		 FROM invoices i JOIN customers c ON c.id = i.customer_id WHERE 1=1`
	args := []any{}
	argIdx := 1

	if customerID != "" {
		query += fmt.Sprintf(` AND i.customer_id = $%d`, argIdx)
		args = append(args, customerID)
		argIdx++
	}
	if params.Search != "" {
		query += fmt.Sprintf(` AND (i.number ILIKE $%d OR c.name ILIKE $%d)`, argIdx, argIdx)
		args = append(args, "%"+params.Search+"%")
		argIdx++
	}
	if params.Status != "" {
		query += fmt.Sprintf(` AND i.status = $%d`, argIdx)
		args = append(args, params.Status)
		argIdx++
	}
	if params.Cursor != "" {
		query += fmt.Sprintf(` AND i.id > $%d`, argIdx)
		args = append(args, params.Cursor)
		argIdx++
	}

	query += ` ORDER BY i.id`
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, params.Limit+1)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()

	var invoices []model.Invoice
	for rows.Next() {
		var inv model.Invoice
		if err := rows.Scan(&inv.ID, &inv.CustomerID, &inv.SubscriptionID, &inv.Number, &inv.Status, &inv.Currency,
			&inv.Subtotal, &inv.TaxRate, &inv.TaxAmount, &inv.Total,
			&inv.PeriodStart, &inv.PeriodEnd, &inv.IssuedAt, &inv.DueAt, &inv.PaidAt,
			&inv.Memo, &inv.DocumentKey, &inv.PreviewKey, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
			return nil, false, fmt.Errorf("scan invoice: %w", err)
		}
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate invoices: %w", err)
	}

	hasMore := len(invoices) > params.Limit
	if hasMore {
		invoices = invoices[:params.Limit]
	}
	return invoices, hasMore, nil
}

// UpdateDraft modifies the editable fields of a draft invoice.
func (s *InvoiceService) UpdateDraft(ctx context.Context, id string, taxRate decimal.Decimal, dueAt *time.Time, memo *string) (*model.Invoice, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE invoices SET tax_rate = $1, due_at = $2, memo = $3, updated_at = now()
		 WHERE id = $4 AND status = $5`,
		taxRate, dueAt, memo, id, model.InvoiceDraft,
	)
	if err != nil {
		return nil, fmt.Errorf("update invoice %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("invoice %s not found or not a draft", id)
	}

	if err := recomputeInvoiceTotals(ctx, s.db, id); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// DeleteDraft removes a draft invoice and its line items.
func (s *InvoiceService) DeleteDraft(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx,
		"DELETE FROM invoices WHERE id = $1 AND status = $2", id, model.InvoiceDraft,
	)
	if err != nil {
		return fmt.Errorf("delete invoice %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("invoice %s not found or not a draft", id)
	}
	return nil
}

// Issue finalizes a draft: totals are recomputed, a sequential number is
// allocated, and the invoice becomes open. A missing due date defaults to
// the standard payment term.
func (s *InvoiceService) Issue(ctx context.Context, id string) (*model.Invoice, error) {
	inv, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv.Status != model.InvoiceDraft {
		return nil, fmt.Errorf("invoice %s is not a draft (current: %s)", id, inv.Status)
	}

	if err := recomputeInvoiceTotals(ctx, s.db, id); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	number, err := nextInvoiceNumber(ctx, s.db, now.Year())
	if err != nil {
		return nil, err
	}

	dueAt := inv.DueAt
	if dueAt == nil {
		d := now.AddDate(0, 0, defaultPaymentTermDays)
		dueAt = &d
	}

	tag, err := s.db.Exec(ctx,
		`UPDATE invoices SET number = $1, status = $2, issued_at = $3, due_at = $4, updated_at = now()
		 WHERE id = $5 AND status = $6`,
		number, model.InvoiceOpen, now, dueAt, id, model.InvoiceDraft,
	)
	if err != nil {
		return nil, fmt.Errorf("issue invoice %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("invoice %s is no longer a draft", id)
	}

	issued, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.pub.Publish(ctx, events.InvoiceIssued, "invoice", id, issued)

	return issued, nil
}

// Pay marks an open invoice as paid.
func (s *InvoiceService) Pay(ctx context.Context, id string) (*model.Invoice, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE invoices SET status = $1, paid_at = now(), updated_at = now()
		 WHERE id = $2 AND status = $3`,
		model.InvoicePaid, id, model.InvoiceOpen,
	)
	if err != nil {
		return nil, fmt.Errorf("pay invoice %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("invoice %s not found or not open", id)
	}

	paid, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.pub.Publish(ctx, events.InvoicePaid, "invoice", id, paid)

	return paid, nil
}

// Void cancels an open invoice. Voided invoices keep their number.
func (s *InvoiceService) Void(ctx context.Context, id string) (*model.Invoice, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE invoices SET status = $1, updated_at = now()
		 WHERE id = $2 AND status = $3`,
		model.InvoiceVoid, id, model.InvoiceOpen,
	)
	if err != nil {
		return nil, fmt.Errorf("void invoice %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("invoice %s not found or not open", id)
	}

	voided, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.pub.Publish(ctx, events.InvoiceVoided, "invoice", id, voided)

	return voided, nil
}

// SetDocumentKey records the object storage key of the uploaded PDF.
func (s *InvoiceService) SetDocumentKey(ctx context.Context, id, key string) error {
	tag, err := s.db.Exec(ctx,
		"UPDATE invoices SET document_key = $1, updated_at = now() WHERE id = $2", key, id,
	)
	if err != nil {
		return fmt.Errorf("set document key for invoice %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("invoice %s not found", id)
	}
	return nil
}

// SetPreviewKey records the object storage key of the rendered first page.
func (s *InvoiceService) SetPreviewKey(ctx context.Context, id, key string) error {
	tag, err := s.db.Exec(ctx,
		"UPDATE invoices SET preview_key = $1, updated_at = now() WHERE id = $2", key, id,
	)
	if err != nil {
		return fmt.Errorf("set preview key for invoice %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("invoice %s not found", id)
	}
	return nil
}

// recomputeInvoiceTotals derives subtotal, tax and total from the line items.
// Shared with the line item service, which must keep totals in sync on every
// mutation.
func recomputeInvoiceTotals(ctx context.Context, db DB, invoiceID string) error {
	var subtotal decimal.Decimal
	err := db.QueryRow(ctx,
		"SELECT COALESCE(sum(amount), 0) FROM invoice_line_items WHERE invoice_id = $1", invoiceID,
	).Scan(&subtotal)
	if err != nil {
		return fmt.Errorf("sum line items for invoice %s: %w", invoiceID, err)
	}

	var taxRate decimal.Decimal
	err = db.QueryRow(ctx,
		"SELECT tax_rate FROM invoices WHERE id = $1", invoiceID,
	).Scan(&taxRate)
	if err != nil {
		return fmt.Errorf("get tax rate for invoice %s: %w", invoiceID, err)
	}

	taxAmount := subtotal.Mul(taxRate).Div(decimal.NewFromInt(100)).Round(2)
	total := subtotal.Add(taxAmount)

	_, err = db.Exec(ctx,
		`UPDATE invoices SET subtotal = $1, tax_amount = $2, total = $3, updated_at = now() WHERE id = $4`,
		subtotal, taxAmount, total, invoiceID,
	)
	if err != nil {
		return fmt.Errorf("update totals for invoice %s: %w", invoiceID, err)
	}
	return nil
}

// nextInvoiceNumber allocates the next number from the per-year sequence.
// The UPSERT..RETURNING keeps allocation atomic under concurrent issuance.
func nextInvoiceNumber(ctx context.Context, db DB, year int) (string, error) {
	var seq int64
	err := db.QueryRow(ctx,
		`INSERT INTO invoice_sequences (year, last_value) VALUES ($1, 1)
		 ON CONFLICT (year) DO UPDATE SET last_value = invoice_sequences.last_value + 1
		 RETURNING last_value`, year,
	).Scan(&seq)
	if err != nil {
		return "", fmt.Errorf("allocate invoice number for %d: %w", year, err)
	}
	return fmt.Sprintf("INV-%d-%06d", year, seq), nil
}

// NewDraftInvoice builds an unsaved draft with the standard zeroed totals.
func NewDraftInvoice(customerID string, subscriptionID *string, currency string, taxRate decimal.Decimal) *model.Invoice {
	now := time.Now().UTC()
	return &model.Invoice{
		ID:             platform.NewID(),
		CustomerID:     customerID,
		SubscriptionID: subscriptionID,
		Status:         model.InvoiceDraft,
		Currency:       currency,
		Subtotal:       decimal.Zero,
		TaxRate:        taxRate,
		TaxAmount:      decimal.Zero,
		Total:          decimal.Zero,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}
