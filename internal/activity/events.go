package activity

import (
	"context"

	"github.com/mikaelw/subtrack/internal/events"
)

// Events contains activities that emit domain events from workflows.
type Events struct {
	pub events.Publisher
}

// NewEvents creates a new Events activity struct.
func NewEvents(pub events.Publisher) *Events {
	return &Events{pub: pub}
}

// PublishEventParams holds the parameters for PublishEvent.
type PublishEventParams struct {
	Event        string
	ResourceType string
	ResourceID   string
	Payload      map[string]any
}

// PublishEvent forwards a domain event to the publisher. Delivery errors are
// handled inside the publisher, so this activity only fails on timeouts.
func (a *Events) PublishEvent(ctx context.Context, params PublishEventParams) error {
	var payload any
	if len(params.Payload) > 0 {
		payload = params.Payload
	}
	a.pub.Publish(ctx, params.Event, params.ResourceType, params.ResourceID, payload)
	return nil
}
