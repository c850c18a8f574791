package core

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mikaelw/subtrack/internal/model"
	"github.com/mikaelw/subtrack/internal/platform"
)

// LineItemService manages invoice line items. Every mutation recomputes the
// parent invoice's totals; only draft invoices accept mutations.
type LineItemService struct {
	db DB
}

// NewLineItemService creates a new LineItemService.
func NewLineItemService(db DB) *LineItemService {
	return &LineItemService{db: db}
}

// Add appends a line item to a draft invoice.
func (s *LineItemService) Add(ctx context.Context, invoiceID, description string, quantity int, unitAmount decimal.Decimal) (*model.LineItem, error) {
	now := time.Now().UTC()
	item := &model.LineItem{
		ID:          platform.NewID(),
		InvoiceID:   invoiceID,
		Description: description,
		Quantity:    quantity,
		UnitAmount:  unitAmount,
		Amount:      unitAmount.Mul(decimal.NewFromInt(int64(quantity))),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	_, err := s.db.Exec(ctx,
		`INSERT INTO invoice_line_items (id, invoice_id, description, quantity, unit_amount, amount, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		item.ID, item.InvoiceID, item.Description, item.Quantity, item.UnitAmount, item.Amount,
		item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert line item: %w", err)
	}

	if err := recomputeInvoiceTotals(ctx, s.db, invoiceID); err != nil {
		return nil, err
	}
	return item, nil
}

// GetByID retrieves a line item by its ID.
func (s *LineItemService) GetByID(ctx context.Context, id string) (*model.LineItem, error) {
	var item model.LineItem
	err := s.db.QueryRow(ctx,
		`SELECT id, invoice_id, description, quantity, unit_amount, amount, created_at, updated_at
		 FROM invoice_line_items WHERE id = $1`, id,
	).Scan(&item.ID, &item.InvoiceID, &item.Description, &item.Quantity,
		&item.UnitAmount, &item.Amount, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get line item %s: %w", id, err)
	}
	return &item, nil
}

// ListByInvoice retrieves all line items of an invoice in insertion order.
func (s *LineItemService) ListByInvoice(ctx context.Context, invoiceID string) ([]model.LineItem, error) {
	return listLineItems(ctx, s.db, invoiceID)
}

// Update replaces the description, quantity and unit amount of a line item.
func (s *LineItemService) Update(ctx context.Context, id, description string, quantity int, unitAmount decimal.Decimal) (*model.LineItem, error) {
	amount := unitAmount.Mul(decimal.NewFromInt(int64(quantity)))

	var invoiceID string
	err := s.db.QueryRow(ctx,
		`UPDATE invoice_line_items SET description = $1, quantity = $2, unit_amount = $3, amount = $4, updated_at = now()
		 WHERE id = $5 RETURNING invoice_id`,
		description, quantity, unitAmount, amount, id,
	).Scan(&invoiceID)
	if err != nil {
		return nil, fmt.Errorf("update line item %s: %w", id, err)
	}

	if err := recomputeInvoiceTotals(ctx, s.db, invoiceID); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// Delete removes a line item.
func (s *LineItemService) Delete(ctx context.Context, id string) error {
	var invoiceID string
	err := s.db.QueryRow(ctx,
		"DELETE FROM invoice_line_items WHERE id = $1 RETURNING invoice_id", id,
	).Scan(&invoiceID)
	if err != nil {
		return fmt.Errorf("delete line item %s: %w", id, err)
	}

	return recomputeInvoiceTotals(ctx, s.db, invoiceID)
}

// InvoiceStatus returns the status of the line item's parent invoice. Used
// to reject mutations on issued invoices.
func (s *LineItemService) InvoiceStatus(ctx context.Context, invoiceID string) (string, error) {
	var status string
	err := s.db.QueryRow(ctx, "SELECT status FROM invoices WHERE id = $1", invoiceID).Scan(&status)
	if err != nil {
		return "", fmt.Errorf("get invoice %s: %w", invoiceID, err)
	}
	return status, nil
}

func listLineItems(ctx context.Context, db DB, invoiceID string) ([]model.LineItem, error) {
	rows, err := db.Query(ctx,
		`SELECT id, invoice_id, description, quantity, unit_amount, amount, created_at, updated_at
		 FROM invoice_line_items WHERE invoice_id = $1 ORDER BY created_at, id`, invoiceID,
	)
	if err != nil {
		return nil, fmt.Errorf("list line items for invoice %s: %w", invoiceID, err)
	}
	defer rows.Close()

	var items []model.LineItem
	for rows.Next() {
		var item model.LineItem
		if err := rows.Scan(&item.ID, &item.InvoiceID, &item.Description, &item.Quantity,
			&item.UnitAmount, &item.Amount, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan line item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate line items: %w", err)
	}
	return items, nil
}
