package workflow

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/mikaelw/subtrack/internal/activity"
	"github.com/mikaelw/subtrack/internal/model"
)

// InvoiceDocumentWorkflow renders the first page of an uploaded invoice PDF
// to a PNG preview and records the preview's storage key on the invoice. The
// document bytes stay inside the render activity and never enter workflow
// history.
func InvoiceDocumentWorkflow(ctx workflow.Context, invoiceID string) error {
	ao := workflow.ActivityOptions{
		// Rendering large PDFs takes longer than a database round trip.
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts:    3,
			InitialInterval:    1 * time.Second,
			MaximumInterval:    10 * time.Second,
			BackoffCoefficient: 2.0,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	var inv model.Invoice
	err := workflow.ExecuteActivity(ctx, "GetInvoice", invoiceID).Get(ctx, &inv)
	if err != nil {
		return fmt.Errorf("get invoice: %w", err)
	}
	if inv.DocumentKey == nil {
		return fmt.Errorf("invoice %s has no document", invoiceID)
	}

	var previewKey string
	err = workflow.ExecuteActivity(ctx, "RenderInvoicePreview", activity.RenderPreviewParams{
		InvoiceID:   invoiceID,
		DocumentKey: *inv.DocumentKey,
		Page:        1,
	}).Get(ctx, &previewKey)
	if err != nil {
		return fmt.Errorf("render invoice preview: %w", err)
	}

	err = workflow.ExecuteActivity(ctx, "SetInvoicePreviewKey", activity.SetPreviewKeyParams{
		InvoiceID:  invoiceID,
		PreviewKey: previewKey,
	}).Get(ctx, nil)
	if err != nil {
		return fmt.Errorf("store preview key: %w", err)
	}

	return nil
}
