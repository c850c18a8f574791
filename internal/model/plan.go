package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Billing intervals for plans.
const (
	IntervalMonth = "month"
	IntervalYear  = "year"
)

// Plan is a priced offering a customer subscribes to. DeviceLimit caps the
// number of concurrently assigned devices per subscription; zero means
// unlimited.
type Plan struct {
	ID          string          `json:"id"`
	Code        string          `json:"code"`
	Name        string          `json:"name"`
	Description *string         `json:"description,omitempty"`
	Interval    string          `json:"interval"`
	Price       decimal.Decimal `json:"price"`
	Currency    string          `json:"currency"`
	DeviceLimit int             `json:"device_limit"`
	TrialDays   int             `json:"trial_days"`
	Features    []string        `json:"features"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
