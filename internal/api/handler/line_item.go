package handler

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mikaelw/subtrack/internal/api/request"
	"github.com/mikaelw/subtrack/internal/api/response"
	"github.com/mikaelw/subtrack/internal/core"
	"github.com/mikaelw/subtrack/internal/model"
)

type LineItem struct {
	svc      *core.LineItemService
	invoices *core.InvoiceService
}

func NewLineItem(svc *core.LineItemService, invoices *core.InvoiceService) *LineItem {
	return &LineItem{svc: svc, invoices: invoices}
}

// requireDraftParent checks that the line item's parent invoice is still a
// draft. Writes a 409 and returns false once the invoice has been issued.
func (h *LineItem) requireDraftParent(w http.ResponseWriter, r *http.Request, invoiceID string) bool {
	status, err := h.svc.InvoiceStatus(r.Context(), invoiceID)
	if err != nil {
		response.WriteError(w, http.StatusNotFound, err.Error())
		return false
	}
	if status != model.InvoiceDraft {
		response.WriteError(w, http.StatusConflict, fmt.Sprintf("invoice %s is not a draft (current: %s)", invoiceID, status))
		return false
	}
	return true
}

// ListByInvoice godoc
//
//	@Summary		List line items on an invoice
//	@Tags			LineItems
//	@Security		ApiKeyAuth
//	@Param			invoiceID path string true "Invoice ID"
//	@Success		200 {array} model.LineItem
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/invoices/{invoiceID}/line-items [get]
func (h *LineItem) ListByInvoice(w http.ResponseWriter, r *http.Request) {
	invoiceID, err := request.RequireID(chi.URLParam(r, "invoiceID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.invoices.GetByID(r.Context(), invoiceID); err != nil {
		response.WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	items, err := h.svc.ListByInvoice(r.Context(), invoiceID)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, items)
}

// Create godoc
//
//	@Summary		Add a line item to a draft invoice
//	@Description	Appends a line item and recomputes the invoice totals. Only draft invoices accept line items.
//	@Tags			LineItems
//	@Security		ApiKeyAuth
//	@Param			invoiceID path string true "Invoice ID"
//	@Param			body body request.CreateLineItem true "Line item details"
//	@Success		201 {object} model.LineItem
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Failure		409 {object} response.ErrorResponse
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/invoices/{invoiceID}/line-items [post]
func (h *LineItem) Create(w http.ResponseWriter, r *http.Request) {
	invoiceID, err := request.RequireID(chi.URLParam(r, "invoiceID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req request.CreateLineItem
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !h.requireDraftParent(w, r, invoiceID) {
		return
	}

	item, err := h.svc.Add(r.Context(), invoiceID, req.Description, req.Quantity, req.UnitAmount)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusCreated, item)
}

// Get godoc
//
//	@Summary		Get a line item
//	@Tags			LineItems
//	@Security		ApiKeyAuth
//	@Param			id path string true "Line item ID"
//	@Success		200 {object} model.LineItem
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Router			/line-items/{id} [get]
func (h *LineItem) Get(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	item, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		response.WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, item)
}

// Update godoc
//
//	@Summary		Update a line item
//	@Description	Updates a line item and recomputes the invoice totals. Line items on issued invoices are immutable.
//	@Tags			LineItems
//	@Security		ApiKeyAuth
//	@Param			id path string true "Line item ID"
//	@Param			body body request.UpdateLineItem true "Line item updates"
//	@Success		200 {object} model.LineItem
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Failure		409 {object} response.ErrorResponse
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/line-items/{id} [put]
func (h *LineItem) Update(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req request.UpdateLineItem
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	item, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		response.WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	if !h.requireDraftParent(w, r, item.InvoiceID) {
		return
	}

	updated, err := h.svc.Update(r.Context(), id, req.Description, req.Quantity, req.UnitAmount)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, updated)
}

// Delete godoc
//
//	@Summary		Delete a line item
//	@Description	Removes a line item and recomputes the invoice totals. Line items on issued invoices cannot be deleted.
//	@Tags			LineItems
//	@Security		ApiKeyAuth
//	@Param			id path string true "Line item ID"
//	@Success		202
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Failure		409 {object} response.ErrorResponse
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/line-items/{id} [delete]
func (h *LineItem) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	item, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		response.WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	if !h.requireDraftParent(w, r, item.InvoiceID) {
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.WriteHeader(http.StatusAccepted)
}
