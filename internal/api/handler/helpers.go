package handler

import (
	"fmt"
	"net/http"

	"github.com/mikaelw/subtrack/internal/api/response"
	"github.com/mikaelw/subtrack/internal/core"
	"github.com/mikaelw/subtrack/internal/model"
)

// requireDraftInvoice loads an invoice and verifies it is still editable.
// Writes a 404 when the invoice is missing and a 409 once it has been
// issued. Returns nil in both cases.
func requireDraftInvoice(w http.ResponseWriter, r *http.Request, svc *core.InvoiceService, id string) *model.Invoice {
	inv, err := svc.GetByID(r.Context(), id)
	if err != nil {
		response.WriteError(w, http.StatusNotFound, err.Error())
		return nil
	}
	if inv.Status != model.InvoiceDraft {
		response.WriteError(w, http.StatusConflict, fmt.Sprintf("invoice %s is not a draft (current: %s)", inv.ID, inv.Status))
		return nil
	}
	return inv
}
