package platform

import "github.com/google/uuid"

// NewID returns the UUIDv4 string used as the primary key for new rows.
func NewID() string {
	return uuid.New().String()
}
