package events

import (
	"encoding/json"
	"time"
)

// Event types published to the event stream.
const (
	SubscriptionCreated  = "subscription.created"
	SubscriptionRenewed  = "subscription.renewed"
	SubscriptionCanceled = "subscription.canceled"
	SubscriptionPaused   = "subscription.paused"
	SubscriptionResumed  = "subscription.resumed"
	SubscriptionExpired  = "subscription.expired"
	InvoiceIssued        = "invoice.issued"
	InvoicePaid          = "invoice.paid"
	InvoiceVoided        = "invoice.voided"
	DeviceAssigned       = "device.assigned"
	DeviceReturned       = "device.returned"
)

// Event is the envelope written to the event topic. Key ordering on the
// Kafka side uses ResourceID, so consumers see each resource's events in
// order.
type Event struct {
	ID           string          `json:"id"`
	Type         string          `json:"type"`
	ResourceType string          `json:"resource_type"`
	ResourceID   string          `json:"resource_id"`
	OccurredAt   time.Time       `json:"occurred_at"`
	Payload      json.RawMessage `json:"payload,omitempty"`
}
