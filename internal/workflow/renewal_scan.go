package workflow

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// RenewalScanWorkflow is a cron workflow that finds subscriptions whose
// billing period has lapsed and starts a child SubscriptionRenewalWorkflow
// for each. The child workflow ID matches the one used by manual renewals so
// a subscription is never renewed twice concurrently.
func RenewalScanWorkflow(ctx workflow.Context) error {
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts:    3,
			InitialInterval:    1 * time.Second,
			MaximumInterval:    10 * time.Second,
			BackoffCoefficient: 2.0,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	var due []string
	err := workflow.ExecuteActivity(ctx, "ListRenewableSubscriptions", workflow.Now(ctx).UTC()).Get(ctx, &due)
	if err != nil {
		return err
	}

	logger := workflow.GetLogger(ctx)
	logger.Info("found subscriptions due for renewal", "count", len(due))

	for _, id := range due {
		childCtx := workflow.WithChildOptions(ctx, workflow.ChildWorkflowOptions{
			WorkflowID: "subscription-renewal-" + id,
		})
		err := workflow.ExecuteChildWorkflow(childCtx, SubscriptionRenewalWorkflow, id).Get(ctx, nil)
		if err != nil {
			logger.Error("failed to renew subscription", "subscriptionID", id, "error", err)
			// Continue renewing other subscriptions even if one fails.
		}
	}

	return nil
}
