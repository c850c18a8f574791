package request

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateInvoice holds the request body for creating a draft invoice. The
// customer comes from the URL; currency defaults to the customer's.
type CreateInvoice struct {
	SubscriptionID *string          `json:"subscription_id"`
	Currency       *string          `json:"currency" validate:"omitempty,len=3"`
	TaxRate        *decimal.Decimal `json:"tax_rate"`
	PeriodStart    *time.Time       `json:"period_start"`
	PeriodEnd      *time.Time       `json:"period_end"`
	DueAt          *time.Time       `json:"due_at"`
	Memo           *string          `json:"memo"`
}

// UpdateInvoice holds the request body for updating a draft invoice.
type UpdateInvoice struct {
	TaxRate *decimal.Decimal `json:"tax_rate"`
	DueAt   *time.Time       `json:"due_at"`
	Memo    *string          `json:"memo"`
}
