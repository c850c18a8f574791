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

type Plan struct {
	svc *core.PlanService
}

func NewPlan(svc *core.PlanService) *Plan {
	return &Plan{svc: svc}
}

// List godoc
//
//	@Summary		List plans
//	@Tags			Plans
//	@Security		ApiKeyAuth
//	@Param			search query string false "Search by code or name"
//	@Param			status query string false "Filter by status"
//	@Param			limit query int false "Page size" default(50)
//	@Param			cursor query string false "Pagination cursor"
//	@Success		200 {object} response.PaginatedResponse{items=[]model.Plan}
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/plans [get]
func (h *Plan) List(w http.ResponseWriter, r *http.Request) {
	params := request.ParseListParams(r)

	plans, hasMore, err := h.svc.List(r.Context(), params)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var nextCursor string
	if hasMore && len(plans) > 0 {
		nextCursor = plans[len(plans)-1].ID
	}
	response.WritePaginated(w, http.StatusOK, plans, nextCursor, hasMore)
}

// Create godoc
//
//	@Summary		Create a plan
//	@Tags			Plans
//	@Security		ApiKeyAuth
//	@Param			body body request.CreatePlan true "Plan details"
//	@Success		201 {object} model.Plan
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/plans [post]
func (h *Plan) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreatePlan
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	features := req.Features
	if features == nil {
		features = []string{}
	}

	now := time.Now()
	plan := &model.Plan{
		ID:          platform.NewID(),
		Code:        req.Code,
		Name:        req.Name,
		Description: req.Description,
		Interval:    req.Interval,
		Price:       req.Price,
		Currency:    req.Currency,
		DeviceLimit: req.DeviceLimit,
		TrialDays:   req.TrialDays,
		Features:    features,
		Status:      model.PlanActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.svc.Create(r.Context(), plan); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusCreated, plan)
}

// Get godoc
//
//	@Summary		Get a plan
//	@Tags			Plans
//	@Security		ApiKeyAuth
//	@Param			id path string true "Plan ID"
//	@Success		200 {object} model.Plan
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Router			/plans/{id} [get]
func (h *Plan) Get(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	plan, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		response.WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, plan)
}

// Update godoc
//
//	@Summary		Update a plan
//	@Description	Updates the mutable plan fields. Price changes only affect future invoices; the plan's code, interval, and currency are immutable.
//	@Tags			Plans
//	@Security		ApiKeyAuth
//	@Param			id path string true "Plan ID"
//	@Param			body body request.UpdatePlan true "Plan updates"
//	@Success		200 {object} model.Plan
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/plans/{id} [put]
func (h *Plan) Update(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req request.UpdatePlan
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	plan, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		response.WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	if req.Name != nil {
		plan.Name = *req.Name
	}
	if req.Description != nil {
		plan.Description = req.Description
	}
	if req.Price != nil {
		plan.Price = *req.Price
	}
	if req.DeviceLimit != nil {
		plan.DeviceLimit = *req.DeviceLimit
	}
	if req.TrialDays != nil {
		plan.TrialDays = *req.TrialDays
	}
	if req.Features != nil {
		plan.Features = req.Features
	}

	updated, err := h.svc.Update(r.Context(), id, plan.Name, plan.Description, plan.Price, plan.DeviceLimit, plan.TrialDays, plan.Features)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, updated)
}

// Retire godoc
//
//	@Summary		Retire a plan
//	@Description	Retires a plan so no new subscriptions can use it. Plans with open subscriptions cannot be retired.
//	@Tags			Plans
//	@Security		ApiKeyAuth
//	@Param			id path string true "Plan ID"
//	@Success		202
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Failure		409 {object} response.ErrorResponse
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/plans/{id} [delete]
func (h *Plan) Retire(w http.ResponseWriter, r *http.Request) {
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
		response.WriteError(w, http.StatusConflict, fmt.Sprintf("plan %s is used by %d open subscriptions", id, open))
		return
	}

	if err := h.svc.Retire(r.Context(), id); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.WriteHeader(http.StatusAccepted)
}
