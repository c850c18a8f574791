package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// LineItem is a single charge on an invoice. Amount is always
// Quantity x UnitAmount.
type LineItem struct {
	ID          string          `json:"id"`
	InvoiceID   string          `json:"invoice_id"`
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	UnitAmount  decimal.Decimal `json:"unit_amount"`
	Amount      decimal.Decimal `json:"amount"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
