package request

import "github.com/shopspring/decimal"

// CreatePlan holds the request body for creating a plan.
type CreatePlan struct {
	Code        string          `json:"code" validate:"required,slug"`
	Name        string          `json:"name" validate:"required,min=1,max=255"`
	Description *string         `json:"description"`
	Interval    string          `json:"interval" validate:"required,oneof=month year"`
	Price       decimal.Decimal `json:"price"`
	Currency    string          `json:"currency" validate:"required,len=3"`
	DeviceLimit int             `json:"device_limit" validate:"omitempty,min=0"`
	TrialDays   int             `json:"trial_days" validate:"omitempty,min=0"`
	Features    []string        `json:"features"`
}

// UpdatePlan holds the request body for updating a plan. Code, interval and
// currency are immutable once created.
type UpdatePlan struct {
	Name        *string          `json:"name" validate:"omitempty,min=1,max=255"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	DeviceLimit *int             `json:"device_limit" validate:"omitempty,min=0"`
	TrialDays   *int             `json:"trial_days" validate:"omitempty,min=0"`
	Features    []string         `json:"features"`
}
