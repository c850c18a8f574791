package model

import "time"

// Customer is a billable organization that owns subscriptions, invoices
// and devices.
type Customer struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Country        string    `json:"country"`
	Currency       string    `json:"currency"`
	BillingAddress *string   `json:"billing_address,omitempty"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
