package workflow

import (
	"go.temporal.io/sdk/workflow"

	"github.com/mikaelw/subtrack/internal/activity"
	"github.com/mikaelw/subtrack/internal/model"
)

// setSubscriptionPastDue parks a subscription in past_due after a renewal
// failure. It returns any error but callers typically ignore it since the
// primary error is more important.
func setSubscriptionPastDue(ctx workflow.Context, id string) error {
	return workflow.ExecuteActivity(ctx, "UpdateSubscriptionStatus", activity.UpdateSubscriptionStatusParams{
		ID:     id,
		Status: model.SubscriptionPastDue,
	}).Get(ctx, nil)
}

// publishEvent emits a lifecycle event without failing the workflow. Events
// are best effort; a state change stands even when the broker is down.
func publishEvent(ctx workflow.Context, event, resourceType, resourceID string, payload map[string]any) {
	err := workflow.ExecuteActivity(ctx, "PublishEvent", activity.PublishEventParams{
		Event:        event,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Payload:      payload,
	}).Get(ctx, nil)
	if err != nil {
		workflow.GetLogger(ctx).Warn("failed to publish event",
			"event", event, "resource_id", resourceID, "error", err)
	}
}
