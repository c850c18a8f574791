package model

import "time"

// NextPeriodEnd returns the end of a billing period starting at from for the
// given plan interval. Months clamp per time.AddDate semantics, so a period
// starting Jan 31 ends Mar 2/3 rather than failing.
func NextPeriodEnd(from time.Time, interval string) time.Time {
	if interval == IntervalYear {
		return from.AddDate(1, 0, 0)
	}
	return from.AddDate(0, 1, 0)
}

// Subscription binds a customer to a plan for a billing period.
type Subscription struct {
	ID                 string     `json:"id"`
	CustomerID         string     `json:"customer_id"`
	PlanID             string     `json:"plan_id"`
	Status             string     `json:"status"`
	Seats              int        `json:"seats"`
	AutoRenew          bool       `json:"auto_renew"`
	StartedAt          time.Time  `json:"started_at"`
	CurrentPeriodStart time.Time  `json:"current_period_start"`
	CurrentPeriodEnd   time.Time  `json:"current_period_end"`
	CanceledAt         *time.Time `json:"canceled_at,omitempty"`
	EndedAt            *time.Time `json:"ended_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}
