package request

import "github.com/shopspring/decimal"

// CreateLineItem holds the request body for adding a line item to a draft
// invoice.
type CreateLineItem struct {
	Description string          `json:"description" validate:"required,min=1,max=500"`
	Quantity    int             `json:"quantity" validate:"required,min=1"`
	UnitAmount  decimal.Decimal `json:"unit_amount"`
}

// UpdateLineItem holds the request body for updating a line item.
type UpdateLineItem struct {
	Description string          `json:"description" validate:"required,min=1,max=500"`
	Quantity    int             `json:"quantity" validate:"required,min=1"`
	UnitAmount  decimal.Decimal `json:"unit_amount"`
}
