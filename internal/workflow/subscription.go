package workflow

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/mikaelw/subtrack/internal/activity"
	"github.com/mikaelw/subtrack/internal/events"
	"github.com/mikaelw/subtrack/internal/model"
)

// SubscriptionRenewalWorkflow rolls a subscription into its next billing
// period: it drafts the renewal invoice, issues it, advances the period and
// emits the lifecycle events. Subscriptions that cannot renew (paused, or
// auto renew switched off) are expired instead.
func SubscriptionRenewalWorkflow(ctx workflow.Context, subscriptionID string) error {
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

	var sctx activity.SubscriptionContext
	err := workflow.ExecuteActivity(ctx, "GetSubscriptionContext", subscriptionID).Get(ctx, &sctx)
	if err != nil {
		return fmt.Errorf("get subscription context: %w", err)
	}

	sub := sctx.Subscription
	if model.SubscriptionTerminal(sub.Status) {
		// Already ended, nothing to renew.
		return nil
	}

	// Paused subscriptions and subscriptions with auto renew switched off
	// lapse when their period runs out.
	if sub.Status == model.SubscriptionPaused || !sub.AutoRenew {
		if err := workflow.ExecuteActivity(ctx, "MarkSubscriptionExpired", subscriptionID).Get(ctx, nil); err != nil {
			return err
		}
		publishEvent(ctx, events.SubscriptionExpired, "subscription", subscriptionID, nil)
		return nil
	}

	// The next period starts where the current one ends, regardless of how
	// late the renewal runs.
	periodStart := sub.CurrentPeriodEnd
	periodEnd := model.NextPeriodEnd(periodStart, sctx.Plan.Interval)

	var invoiceID string
	err = workflow.ExecuteActivity(ctx, "CreateRenewalInvoice", activity.CreateRenewalInvoiceParams{
		SubscriptionID: subscriptionID,
		PeriodStart:    periodStart,
		PeriodEnd:      periodEnd,
	}).Get(ctx, &invoiceID)
	if err != nil {
		_ = setSubscriptionPastDue(ctx, subscriptionID)
		return fmt.Errorf("create renewal invoice: %w", err)
	}

	var number string
	err = workflow.ExecuteActivity(ctx, "IssueInvoice", invoiceID).Get(ctx, &number)
	if err != nil {
		_ = setSubscriptionPastDue(ctx, subscriptionID)
		return fmt.Errorf("issue renewal invoice: %w", err)
	}

	err = workflow.ExecuteActivity(ctx, "AdvanceSubscriptionPeriod", activity.AdvancePeriodParams{
		ID:          subscriptionID,
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
	}).Get(ctx, nil)
	if err != nil {
		_ = setSubscriptionPastDue(ctx, subscriptionID)
		return fmt.Errorf("advance subscription period: %w", err)
	}

	publishEvent(ctx, events.InvoiceIssued, "invoice", invoiceID, map[string]any{
		"number":          number,
		"subscription_id": subscriptionID,
	})
	publishEvent(ctx, events.SubscriptionRenewed, "subscription", subscriptionID, map[string]any{
		"invoice_id":           invoiceID,
		"current_period_start": periodStart,
		"current_period_end":   periodEnd,
	})

	return nil
}

// CancelSubscriptionWorkflow tears down a subscription. Every active device
// assignment is returned and its device restocked before the subscription is
// finalized as canceled.
func CancelSubscriptionWorkflow(ctx workflow.Context, subscriptionID string) error {
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

	var sctx activity.SubscriptionContext
	err := workflow.ExecuteActivity(ctx, "GetSubscriptionContext", subscriptionID).Get(ctx, &sctx)
	if err != nil {
		return fmt.Errorf("get subscription context: %w", err)
	}

	for _, asg := range sctx.Assignments {
		if err := workflow.ExecuteActivity(ctx, "ReturnAssignment", asg.ID).Get(ctx, nil); err != nil {
			return fmt.Errorf("return assignment %s: %w", asg.ID, err)
		}
		publishEvent(ctx, events.DeviceReturned, "assignment", asg.ID, map[string]any{
			"device_id":       asg.DeviceID,
			"subscription_id": subscriptionID,
		})
	}

	if err := workflow.ExecuteActivity(ctx, "MarkSubscriptionCanceled", subscriptionID).Get(ctx, nil); err != nil {
		return err
	}

	publishEvent(ctx, events.SubscriptionCanceled, "subscription", subscriptionID, nil)
	return nil
}
