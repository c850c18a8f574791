package model

import (
	"encoding/json"
	"time"
)

// Audit actor types.
const (
	ActorAPIKey = "api_key"
	ActorUser   = "user"
)

// AuditLog is a recorded mutating API request. Entries carry a sequence id
// assigned on insert, so id order is insertion order.
type AuditLog struct {
	ID           int64           `json:"id"`
	ActorType    string          `json:"actor_type"`
	ActorID      *string         `json:"actor_id,omitempty"`
	Method       string          `json:"method"`
	Path         string          `json:"path"`
	ResourceType *string         `json:"resource_type,omitempty"`
	ResourceID   *string         `json:"resource_id,omitempty"`
	StatusCode   int             `json:"status_code"`
	RequestBody  json.RawMessage `json:"request_body,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}
