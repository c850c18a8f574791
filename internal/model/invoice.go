package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Invoice is a billing document for a customer. Number is assigned when the
// invoice is issued; drafts have none. DocumentKey and PreviewKey point at
// the uploaded PDF and its rendered preview image in object storage.
type Invoice struct {
	ID             string          `json:"id"`
	CustomerID     string          `json:"customer_id"`
	SubscriptionID *string         `json:"subscription_id,omitempty"`
	Number         *string         `json:"number,omitempty"`
	Status         string          `json:"status"`
	Currency       string          `json:"currency"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	TaxRate        decimal.Decimal `json:"tax_rate"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	Total          decimal.Decimal `json:"total"`
	PeriodStart    *time.Time      `json:"period_start,omitempty"`
	PeriodEnd      *time.Time      `json:"period_end,omitempty"`
	IssuedAt       *time.Time      `json:"issued_at,omitempty"`
	DueAt          *time.Time      `json:"due_at,omitempty"`
	PaidAt         *time.Time      `json:"paid_at,omitempty"`
	Memo           *string         `json:"memo,omitempty"`
	DocumentKey    *string         `json:"document_key,omitempty"`
	PreviewKey     *string         `json:"preview_key,omitempty"`
	LineItems      []LineItem      `json:"line_items,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}
