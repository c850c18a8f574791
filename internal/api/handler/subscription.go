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

type Subscription struct {
	svc       *core.SubscriptionService
	customers *core.CustomerService
	plans     *core.PlanService
}

func NewSubscription(svc *core.SubscriptionService, customers *core.CustomerService, plans *core.PlanService) *Subscription {
	return &Subscription{svc: svc, customers: customers, plans: plans}
}

// List godoc
//
//	@Summary		List subscriptions
//	@Tags			Subscriptions
//	@Security		ApiKeyAuth
//	@Param			search query string false "Search by customer name"
//	@Param			status query string false "Filter by status"
//	@Param			limit query int false "Page size" default(50)
//	@Param			cursor query string false "Pagination cursor"
//	@Success		200 {object} response.PaginatedResponse{items=[]model.Subscription}
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/subscriptions [get]
func (h *Subscription) List(w http.ResponseWriter, r *http.Request) {
	params := request.ParseListParams(r)

	// Empty when mounted on the global route.
	customerID := chi.URLParam(r, "customerID")

	subs, hasMore, err := h.svc.List(r.Context(), customerID, params)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var nextCursor string
	if hasMore && len(subs) > 0 {
		nextCursor = subs[len(subs)-1].ID
	}
	response.WritePaginated(w, http.StatusOK, subs, nextCursor, hasMore)
}

// ListByCustomer godoc
//
//	@Summary		List a customer's subscriptions
//	@Tags			Subscriptions
//	@Security		ApiKeyAuth
//	@Param			customerID path string true "Customer ID"
//	@Param			search query string false "Search by customer name"
//	@Param			status query string false "Filter by status"
//	@Param			limit query int false "Page size" default(50)
//	@Param			cursor query string false "Pagination cursor"
//	@Success		200 {object} response.PaginatedResponse{items=[]model.Subscription}
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/customers/{customerID}/subscriptions [get]
func (h *Subscription) ListByCustomer(w http.ResponseWriter, r *http.Request) {
	h.List(w, r)
}

// Create godoc
//
//	@Summary		Start a subscription
//	@Description	Starts a subscription for the customer on the given plan. Plans with trial days begin in trialing; everything else starts active with a full billing period.
//	@Tags			Subscriptions
//	@Security		ApiKeyAuth
//	@Param			customerID path string true "Customer ID"
//	@Param			body body request.CreateSubscription true "Subscription details"
//	@Success		201 {object} model.Subscription
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Failure		409 {object} response.ErrorResponse
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/customers/{customerID}/subscriptions [post]
func (h *Subscription) Create(w http.ResponseWriter, r *http.Request) {
	customerID, err := request.RequireID(chi.URLParam(r, "customerID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req request.CreateSubscription
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.customers.GetByID(r.Context(), customerID); err != nil {
		response.WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	plan, err := h.plans.GetByID(r.Context(), req.PlanID)
	if err != nil {
		response.WriteError(w, http.StatusNotFound, err.Error())
		return
	}
	if plan.Status != model.PlanActive {
		response.WriteError(w, http.StatusConflict, fmt.Sprintf("plan %s is retired", plan.ID))
		return
	}

	seats := 1
	if req.Seats != nil {
		seats = *req.Seats
	}
	autoRenew := true
	if req.AutoRenew != nil {
		autoRenew = *req.AutoRenew
	}

	sub, err := h.svc.Create(r.Context(), customerID, plan, seats, autoRenew)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusCreated, sub)
}

// Get godoc
//
//	@Summary		Get a subscription
//	@Tags			Subscriptions
//	@Security		ApiKeyAuth
//	@Param			id path string true "Subscription ID"
//	@Success		200 {object} model.Subscription
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Router			/subscriptions/{id} [get]
func (h *Subscription) Get(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	sub, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		response.WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, sub)
}

// Update godoc
//
//	@Summary		Update a subscription
//	@Description	Adjusts seats and auto-renewal. Seat changes take effect on the next renewal.
//	@Tags			Subscriptions
//	@Security		ApiKeyAuth
//	@Param			id path string true "Subscription ID"
//	@Param			body body request.UpdateSubscription true "Subscription updates"
//	@Success		200 {object} model.Subscription
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/subscriptions/{id} [put]
func (h *Subscription) Update(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req request.UpdateSubscription
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	sub, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		response.WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	if req.Seats != nil {
		sub.Seats = *req.Seats
	}
	if req.AutoRenew != nil {
		sub.AutoRenew = *req.AutoRenew
	}

	updated, err := h.svc.Update(r.Context(), id, sub.Seats, sub.AutoRenew)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, updated)
}

// Cancel godoc
//
//	@Summary		Cancel a subscription
//	@Description	Starts the cancellation workflow. Assigned devices are returned to stock before the subscription is marked canceled.
//	@Tags			Subscriptions
//	@Security		ApiKeyAuth
//	@Param			id path string true "Subscription ID"
//	@Success		202
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Failure		409 {object} response.ErrorResponse
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/subscriptions/{id} [delete]
func (h *Subscription) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	sub, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		response.WriteError(w, http.StatusNotFound, err.Error())
		return
	}
	if model.SubscriptionTerminal(sub.Status) {
		response.WriteError(w, http.StatusConflict, fmt.Sprintf("subscription %s is already %s", id, sub.Status))
		return
	}

	if err := h.svc.StartCancel(r.Context(), id); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// Pause godoc
//
//	@Summary		Pause a subscription
//	@Description	Suspends billing. Renewal scans skip paused subscriptions until they are resumed.
//	@Tags			Subscriptions
//	@Security		ApiKeyAuth
//	@Param			id path string true "Subscription ID"
//	@Success		200 {object} model.Subscription
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Failure		409 {object} response.ErrorResponse
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/subscriptions/{id}/pause [post]
func (h *Subscription) Pause(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	sub, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		response.WriteError(w, http.StatusNotFound, err.Error())
		return
	}
	if !model.SubscriptionRenewable(sub.Status) {
		response.WriteError(w, http.StatusConflict, fmt.Sprintf("subscription %s cannot be paused from status %s", id, sub.Status))
		return
	}

	paused, err := h.svc.Pause(r.Context(), id)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, paused)
}

// Resume godoc
//
//	@Summary		Resume a paused subscription
//	@Tags			Subscriptions
//	@Security		ApiKeyAuth
//	@Param			id path string true "Subscription ID"
//	@Success		200 {object} model.Subscription
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Failure		409 {object} response.ErrorResponse
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/subscriptions/{id}/resume [post]
func (h *Subscription) Resume(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	sub, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		response.WriteError(w, http.StatusNotFound, err.Error())
		return
	}
	if sub.Status != model.SubscriptionPaused {
		response.WriteError(w, http.StatusConflict, fmt.Sprintf("subscription %s is not paused (current: %s)", id, sub.Status))
		return
	}

	resumed, err := h.svc.Resume(r.Context(), id)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, resumed)
}

// Renew godoc
//
//	@Summary		Renew a subscription now
//	@Description	Starts the renewal workflow without waiting for the hourly scan. The workflow advances the billing period and issues the renewal invoice.
//	@Tags			Subscriptions
//	@Security		ApiKeyAuth
//	@Param			id path string true "Subscription ID"
//	@Success		202
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Failure		409 {object} response.ErrorResponse
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/subscriptions/{id}/renew [post]
func (h *Subscription) Renew(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	sub, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		response.WriteError(w, http.StatusNotFound, err.Error())
		return
	}
	if !model.SubscriptionRenewable(sub.Status) {
		response.WriteError(w, http.StatusConflict, fmt.Sprintf("subscription %s is not renewable from status %s", id, sub.Status))
		return
	}

	if err := h.svc.StartRenewal(r.Context(), id); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.WriteHeader(http.StatusAccepted)
}
