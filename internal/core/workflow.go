package core

import (
	"context"
	"fmt"

	temporalclient "go.temporal.io/sdk/client"
)

const taskQueue = "subtrack-billing"

// skipWorkflowKey is a context key that suppresses workflow execution.
// Used by the dev seeder and tests so that writes don't fan out into
// Temporal.
type skipWorkflowKey struct{}

// WithSkipWorkflow returns a context that causes startWorkflow to be a no-op.
func WithSkipWorkflow(ctx context.Context) context.Context {
	return context.WithValue(ctx, skipWorkflowKey{}, true)
}

// workflowID builds a human-readable Temporal workflow ID from a resource type
// prefix and the resource's unique ID.
func workflowID(prefix, id string) string {
	return fmt.Sprintf("%s-%s", prefix, id)
}

// startWorkflow executes a Temporal workflow on the billing task queue. The
// workflow ID doubles as a dedupe key: Temporal rejects a second start while
// one with the same ID is still running, which keeps a subscription from
// being renewed or canceled twice concurrently.
func startWorkflow(ctx context.Context, tc temporalclient.Client, workflowName, wfID string, arg any) error {
	if v, _ := ctx.Value(skipWorkflowKey{}).(bool); v {
		return nil
	}
	_, err := tc.ExecuteWorkflow(ctx, temporalclient.StartWorkflowOptions{
		ID:        wfID,
		TaskQueue: taskQueue,
	}, workflowName, arg)
	return err
}
