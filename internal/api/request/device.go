package request

import "time"

// CreateDevice holds the request body for registering a device in inventory.
type CreateDevice struct {
	SerialNumber      string     `json:"serial_number" validate:"required,min=1,max=255"`
	Model             string     `json:"model" validate:"required,min=1,max=255"`
	Manufacturer      string     `json:"manufacturer" validate:"required,min=1,max=255"`
	PurchasedAt       *time.Time `json:"purchased_at"`
	WarrantyExpiresAt *time.Time `json:"warranty_expires_at"`
	Notes             *string    `json:"notes"`
}

// UpdateDevice holds the request body for updating a device. Status may only
// move between the manual states; assigned is managed through assignments.
type UpdateDevice struct {
	Model             *string    `json:"model" validate:"omitempty,min=1,max=255"`
	Manufacturer      *string    `json:"manufacturer" validate:"omitempty,min=1,max=255"`
	Status            *string    `json:"status" validate:"omitempty,oneof=in_stock in_repair retired lost"`
	PurchasedAt       *time.Time `json:"purchased_at"`
	WarrantyExpiresAt *time.Time `json:"warranty_expires_at"`
	Notes             *string    `json:"notes"`
}
