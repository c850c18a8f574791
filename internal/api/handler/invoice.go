package handler

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/mikaelw/subtrack/internal/api/request"
	"github.com/mikaelw/subtrack/internal/api/response"
	"github.com/mikaelw/subtrack/internal/core"
	"github.com/mikaelw/subtrack/internal/model"
)

type Invoice struct {
	svc       *core.InvoiceService
	customers *core.CustomerService
}

func NewInvoice(svc *core.InvoiceService, customers *core.CustomerService) *Invoice {
	return &Invoice{svc: svc, customers: customers}
}

// List godoc
//
//	@Summary		List invoices
//	@Tags			Invoices
//	@Security		ApiKeyAuth
//	@Param			search query string false "Search by invoice number or customer name"
//	@Param			status query string false "Filter by status"
//	@Param			limit query int false "Page size" default(50)
//	@Param			cursor query string false "Pagination cursor"
//	@Success		200 {object} response.PaginatedResponse{items=[]model.Invoice}
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/invoices [get]
func (h *Invoice) List(w http.ResponseWriter, r *http.Request) {
	params := request.ParseListParams(r)

	// Empty when mounted on the global route.
	customerID := chi.URLParam(r, "customerID")

	invoices, hasMore, err := h.svc.List(r.Context(), customerID, params)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var nextCursor string
	if hasMore && len(invoices) > 0 {
		nextCursor = invoices[len(invoices)-1].ID
	}
	response.WritePaginated(w, http.StatusOK, invoices, nextCursor, hasMore)
}

// ListByCustomer godoc
//
//	@Summary		List a customer's invoices
//	@Tags			Invoices
//	@Security		ApiKeyAuth
//	@Param			customerID path string true "Customer ID"
//	@Param			search query string false "Search by invoice number or customer name"
//	@Param			status query string false "Filter by status"
//	@Param			limit query int false "Page size" default(50)
//	@Param			cursor query string false "Pagination cursor"
//	@Success		200 {object} response.PaginatedResponse{items=[]model.Invoice}
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/customers/{customerID}/invoices [get]
func (h *Invoice) ListByCustomer(w http.ResponseWriter, r *http.Request) {
	h.List(w, r)
}

// Create godoc
//
//	@Summary		Create a draft invoice
//	@Description	Creates a draft invoice for the customer. The currency defaults to the customer's currency and totals stay zero until line items are added.
//	@Tags			Invoices
//	@Security		ApiKeyAuth
//	@Param			customerID path string true "Customer ID"
//	@Param			body body request.CreateInvoice true "Invoice details"
//	@Success		201 {object} model.Invoice
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/customers/{customerID}/invoices [post]
func (h *Invoice) Create(w http.ResponseWriter, r *http.Request) {
	customerID, err := request.RequireID(chi.URLParam(r, "customerID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req request.CreateInvoice
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	customer, err := h.customers.GetByID(r.Context(), customerID)
	if err != nil {
		response.WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	currency := customer.Currency
	if req.Currency != nil {
		currency = *req.Currency
	}
	taxRate := decimal.Zero
	if req.TaxRate != nil {
		taxRate = *req.TaxRate
	}

	inv := core.NewDraftInvoice(customerID, req.SubscriptionID, currency, taxRate)
	inv.PeriodStart = req.PeriodStart
	inv.PeriodEnd = req.PeriodEnd
	inv.DueAt = req.DueAt
	inv.Memo = req.Memo

	if err := h.svc.CreateDraft(r.Context(), inv); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusCreated, inv)
}

// Get godoc
//
//	@Summary		Get an invoice
//	@Description	Returns the invoice with its line items.
//	@Tags			Invoices
//	@Security		ApiKeyAuth
//	@Param			id path string true "Invoice ID"
//	@Success		200 {object} model.Invoice
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Router			/invoices/{id} [get]
func (h *Invoice) Get(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	inv, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		response.WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, inv)
}

// Update godoc
//
//	@Summary		Update a draft invoice
//	@Description	Updates the editable fields of a draft. Issued invoices are immutable.
//	@Tags			Invoices
//	@Security		ApiKeyAuth
//	@Param			id path string true "Invoice ID"
//	@Param			body body request.UpdateInvoice true "Invoice updates"
//	@Success		200 {object} model.Invoice
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Failure		409 {object} response.ErrorResponse
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/invoices/{id} [put]
func (h *Invoice) Update(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req request.UpdateInvoice
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	inv := requireDraftInvoice(w, r, h.svc, id)
	if inv == nil {
		return
	}

	if req.TaxRate != nil {
		inv.TaxRate = *req.TaxRate
	}
	if req.DueAt != nil {
		inv.DueAt = req.DueAt
	}
	if req.Memo != nil {
		inv.Memo = req.Memo
	}

	updated, err := h.svc.UpdateDraft(r.Context(), id, inv.TaxRate, inv.DueAt, inv.Memo)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, updated)
}

// Delete godoc
//
//	@Summary		Delete a draft invoice
//	@Description	Deletes a draft and its line items. Issued invoices cannot be deleted; void them instead.
//	@Tags			Invoices
//	@Security		ApiKeyAuth
//	@Param			id path string true "Invoice ID"
//	@Success		202
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Failure		409 {object} response.ErrorResponse
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/invoices/{id} [delete]
func (h *Invoice) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if inv := requireDraftInvoice(w, r, h.svc, id); inv == nil {
		return
	}

	if err := h.svc.DeleteDraft(r.Context(), id); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// Issue godoc
//
//	@Summary		Issue an invoice
//	@Description	Finalizes a draft: totals are recomputed, a sequential number is allocated, and the invoice becomes open.
//	@Tags			Invoices
//	@Security		ApiKeyAuth
//	@Param			id path string true "Invoice ID"
//	@Success		200 {object} model.Invoice
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Failure		409 {object} response.ErrorResponse
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/invoices/{id}/issue [post]
func (h *Invoice) Issue(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if inv := requireDraftInvoice(w, r, h.svc, id); inv == nil {
		return
	}

	issued, err := h.svc.Issue(r.Context(), id)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, issued)
}

// Pay godoc
//
//	@Summary		Mark an invoice as paid
//	@Tags			Invoices
//	@Security		ApiKeyAuth
//	@Param			id path string true "Invoice ID"
//	@Success		200 {object} model.Invoice
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Failure		409 {object} response.ErrorResponse
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/invoices/{id}/pay [post]
func (h *Invoice) Pay(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	inv, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		response.WriteError(w, http.StatusNotFound, err.Error())
		return
	}
	if inv.Status != model.InvoiceOpen {
		response.WriteError(w, http.StatusConflict, fmt.Sprintf("invoice %s is not open (current: %s)", id, inv.Status))
		return
	}

	paid, err := h.svc.Pay(r.Context(), id)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, paid)
}

// Void godoc
//
//	@Summary		Void an invoice
//	@Description	Cancels an open invoice. Voided invoices keep their number for the audit trail.
//	@Tags			Invoices
//	@Security		ApiKeyAuth
//	@Param			id path string true "Invoice ID"
//	@Success		200 {object} model.Invoice
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Failure		409 {object} response.ErrorResponse
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/invoices/{id}/void [post]
func (h *Invoice) Void(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	inv, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		response.WriteError(w, http.StatusNotFound, err.Error())
		return
	}
	if inv.Status != model.InvoiceOpen {
		response.WriteError(w, http.StatusConflict, fmt.Sprintf("invoice %s is not open (current: %s)", id, inv.Status))
		return
	}

	voided, err := h.svc.Void(r.Context(), id)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, voided)
}
