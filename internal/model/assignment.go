package model

import "time"

// Assignment records a device handed out under a subscription.
type Assignment struct {
	ID             string     `json:"id"`
	DeviceID       string     `json:"device_id"`
	SubscriptionID string     `json:"subscription_id"`
	Assignee       string     `json:"assignee"`
	Status         string     `json:"status"`
	AssignedAt     time.Time  `json:"assigned_at"`
	ReturnedAt     *time.Time `json:"returned_at,omitempty"`
	Notes          *string    `json:"notes,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}
