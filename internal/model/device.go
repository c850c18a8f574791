package model

import "time"

// Device is a physical asset tracked in inventory. CustomerID is nil while
// the device sits in unowned stock.
type Device struct {
	ID                string     `json:"id"`
	SerialNumber      string     `json:"serial_number"`
	Model             string     `json:"model"`
	Manufacturer      string     `json:"manufacturer"`
	CustomerID        *string    `json:"customer_id,omitempty"`
	Status            string     `json:"status"`
	PurchasedAt       *time.Time `json:"purchased_at,omitempty"`
	WarrantyExpiresAt *time.Time `json:"warranty_expires_at,omitempty"`
	Notes             *string    `json:"notes,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}
