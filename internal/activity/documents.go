package activity

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/sdk/temporal"

	"github.com/mikaelw/subtrack/internal/preview"
	"github.com/mikaelw/subtrack/internal/storage"
)

// Documents contains activities that render invoice document previews.
type Documents struct {
	store *storage.DocumentStore
}

// NewDocuments creates a new Documents activity struct.
func NewDocuments(store *storage.DocumentStore) *Documents {
	return &Documents{store: store}
}

// RenderPreviewParams holds the parameters for RenderInvoicePreview.
type RenderPreviewParams struct {
	InvoiceID   string
	DocumentKey string
	Page        int
}

// RenderInvoicePreview downloads the invoice PDF, renders the requested page
// to PNG and uploads the result. The PDF never leaves the activity, which
// keeps multi-megabyte documents out of workflow history. Returns the preview
// object key.
func (a *Documents) RenderInvoicePreview(ctx context.Context, params RenderPreviewParams) (string, error) {
	pdf, _, err := a.store.GetBytes(ctx, params.DocumentKey)
	if err != nil {
		return "", fmt.Errorf("fetch document %s: %w", params.DocumentKey, err)
	}

	png, err := preview.RenderPNG(pdf, params.Page, preview.DefaultDPI)
	if err != nil {
		if errors.Is(err, preview.ErrPageOutOfRange) {
			return "", temporal.NewNonRetryableApplicationError(
				fmt.Sprintf("page %d out of range for invoice %s", params.Page, params.InvoiceID),
				"PAGE_OUT_OF_RANGE", err)
		}
		// A PDF that fails to render will fail on every retry.
		return "", temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("render page %d of invoice %s", params.Page, params.InvoiceID),
			"RENDER_ERROR", err)
	}

	key := storage.PreviewKey(params.InvoiceID, params.Page)
	if err := a.store.Put(ctx, key, "image/png", png); err != nil {
		return "", fmt.Errorf("upload preview %s: %w", key, err)
	}

	return key, nil
}
