package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mikaelw/subtrack/internal/api/request"
	"github.com/mikaelw/subtrack/internal/api/response"
	"github.com/mikaelw/subtrack/internal/core"
	"github.com/mikaelw/subtrack/internal/model"
	"github.com/mikaelw/subtrack/internal/platform"
)

type Customer struct {
	svc          *core.CustomerService
	entitlements *core.EntitlementService
}

func NewCustomer(svc *core.CustomerService, entitlements *core.EntitlementService) *Customer {
	return &Customer{svc: svc, entitlements: entitlements}
}

// List godoc
//
//	@Summary		List customers
//	@Tags			Customers
//	@Security		ApiKeyAuth
//	@Param			search query string false "Search by name or email"
//	@Param			status query string false "Filter by status"
//	@Param			limit query int false "Page size" default(50)
//	@Param			cursor query string false "Pagination cursor"
//	@Success		200 {object} response.PaginatedResponse{items=[]model.Customer}
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/customers [get]
func (h *Customer) List(w http.ResponseWriter, r *http.Request) {
	params := request.ParseListParams(r)

	customers, hasMore, err := h.svc.List(r.Context(), params)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var nextCursor string
	if hasMore && len(customers) > 0 {
		nextCursor = customers[len(customers)-1].ID
	}
	response.WritePaginated(w, http.StatusOK, customers, nextCursor, hasMore)
}

// Create godoc
//
//	@Summary		Create a customer
//	@Tags			Customers
//	@Security		ApiKeyAuth
//	@Param			body body request.CreateCustomer true "Customer details"
//	@Success		201 {object} model.Customer
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/customers [post]
func (h *Customer) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateCustomer
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	now := time.Now()
	customer := &model.Customer{
		ID:             platform.NewID(),
		Name:           req.Name,
		Email:          req.Email,
		Country:        req.Country,
		Currency:       req.Currency,
		BillingAddress: req.BillingAddress,
		Status:         model.CustomerActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := h.svc.Create(r.Context(), customer); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusCreated, customer)
}

// Get godoc
//
//	@Summary		Get a customer
//	@Tags			Customers
//	@Security		ApiKeyAuth
//	@Param			id path string true "Customer ID"
//	@Success		200 {object} model.Customer
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Router			/customers/{id} [get]
func (h *Customer) Get(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	customer, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		response.WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, customer)
}

// Update godoc
//
//	@Summary		Update a customer
//	@Tags			Customers
//	@Security		ApiKeyAuth
//	@Param			id path string true "Customer ID"
//	@Param			body body request.UpdateCustomer true "Customer updates"
//	@Success		200 {object} model.Customer
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/customers/{id} [put]
func (h *Customer) Update(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req request.UpdateCustomer
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	customer, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		response.WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	if req.Name != nil {
		customer.Name = *req.Name
	}
	if req.Email != nil {
		customer.Email = *req.Email
	}
	if req.Country != nil {
		customer.Country = *req.Country
	}
	if req.Currency != nil {
		customer.Currency = *req.Currency
	}
	if req.BillingAddress != nil {
		customer.BillingAddress = req.BillingAddress
	}

	updated, err := h.svc.Update(r.Context(), id, customer.Name, customer.Email, customer.Country, customer.Currency, customer.BillingAddress)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, updated)
}

// Archive godoc
//
//	@Summary		Archive a customer
//	@Description	Archives a customer. Customers with open subscriptions cannot be archived.
//	@Tags			Customers
//	@Security		ApiKeyAuth
//	@Param			id path string true "Customer ID"
//	@Success		202
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Failure		409 {object} response.ErrorResponse
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/customers/{id} [delete]
func (h *Customer) Archive(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.svc.GetByID(r.Context(), id); err != nil {
		response.WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	open, err := h.svc.OpenSubscriptionCount(r.Context(), id)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if open > 0 {
		response.WriteError(w, http.StatusConflict, fmt.Sprintf("customer %s has %d open subscriptions", id, open))
		return
	}

	if err := h.svc.Archive(r.Context(), id); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// Entitlements godoc
//
//	@Summary		Get a customer's entitlements
//	@Description	Returns the features the customer is entitled to through subscriptions that are currently trialing, active, or past due.
//	@Tags			Customers
//	@Security		ApiKeyAuth
//	@Param			id path string true "Customer ID"
//	@Success		200 {object} core.Entitlements
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/customers/{id}/entitlements [get]
func (h *Customer) Entitlements(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.svc.GetByID(r.Context(), id); err != nil {
		response.WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	ent, err := h.entitlements.ForCustomer(r.Context(), id)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, ent)
}
