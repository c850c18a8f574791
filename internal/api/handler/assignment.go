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

type Assignment struct {
	svc      *core.AssignmentService
	services *core.Services
}

func NewAssignment(services *core.Services) *Assignment {
	return &Assignment{svc: services.Assignment, services: services}
}

// ListBySubscription godoc
//
//	@Summary		List assignments under a subscription
//	@Tags			Assignments
//	@Security		ApiKeyAuth
//	@Param			subscriptionID path string true "Subscription ID"
//	@Success		200 {array} model.Assignment
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/subscriptions/{subscriptionID}/assignments [get]
func (h *Assignment) ListBySubscription(w http.ResponseWriter, r *http.Request) {
	subscriptionID, err := request.RequireID(chi.URLParam(r, "subscriptionID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.services.Subscription.GetByID(r.Context(), subscriptionID); err != nil {
		response.WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	assignments, err := h.svc.ListBySubscription(r.Context(), subscriptionID)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, assignments)
}

// ListByDevice godoc
//
//	@Summary		List a device's assignment history
//	@Tags			Assignments
//	@Security		ApiKeyAuth
//	@Param			deviceID path string true "Device ID"
//	@Success		200 {array} model.Assignment
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/devices/{deviceID}/assignments [get]
func (h *Assignment) ListByDevice(w http.ResponseWriter, r *http.Request) {
	deviceID, err := request.RequireID(chi.URLParam(r, "deviceID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.services.Device.GetByID(r.Context(), deviceID); err != nil {
		response.WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	assignments, err := h.svc.ListByDevice(r.Context(), deviceID)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, assignments)
}

// Create godoc
//
//	@Summary		Assign a device
//	@Description	Hands a device out under a subscription. The device must be in stock and either unowned or owned by the subscription's customer, and the plan's device limit must not be exhausted.
//	@Tags			Assignments
//	@Security		ApiKeyAuth
//	@Param			subscriptionID path string true "Subscription ID"
//	@Param			body body request.CreateAssignment true "Assignment details"
//	@Success		201 {object} model.Assignment
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Failure		409 {object} response.ErrorResponse
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/subscriptions/{subscriptionID}/assignments [post]
func (h *Assignment) Create(w http.ResponseWriter, r *http.Request) {
	subscriptionID, err := request.RequireID(chi.URLParam(r, "subscriptionID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req request.CreateAssignment
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	sub, err := h.services.Subscription.GetByID(r.Context(), subscriptionID)
	if err != nil {
		response.WriteError(w, http.StatusNotFound, err.Error())
		return
	}
	if model.SubscriptionTerminal(sub.Status) {
		response.WriteError(w, http.StatusConflict, fmt.Sprintf("subscription %s is %s", subscriptionID, sub.Status))
		return
	}

	device, err := h.services.Device.GetByID(r.Context(), req.DeviceID)
	if err != nil {
		response.WriteError(w, http.StatusNotFound, err.Error())
		return
	}
	if device.Status != model.DeviceInStock {
		response.WriteError(w, http.StatusConflict, fmt.Sprintf("device %s is not in stock (current: %s)", device.ID, device.Status))
		return
	}
	if device.CustomerID != nil && *device.CustomerID != sub.CustomerID {
		response.WriteError(w, http.StatusConflict, fmt.Sprintf("device %s belongs to another customer", device.ID))
		return
	}

	plan, err := h.services.Plan.GetByID(r.Context(), sub.PlanID)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if plan.DeviceLimit > 0 {
		active, err := h.svc.ActiveCountBySubscription(r.Context(), subscriptionID)
		if err != nil {
			response.WriteError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if active >= plan.DeviceLimit {
			response.WriteError(w, http.StatusConflict, fmt.Sprintf("subscription %s has reached its device limit of %d", subscriptionID, plan.DeviceLimit))
			return
		}
	}

	now := time.Now()
	assignment := &model.Assignment{
		ID:             platform.NewID(),
		DeviceID:       req.DeviceID,
		SubscriptionID: subscriptionID,
		Assignee:       req.Assignee,
		Status:         model.AssignmentActive,
		AssignedAt:     now,
		Notes:          req.Notes,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := h.svc.Assign(r.Context(), assignment, sub.CustomerID); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusCreated, assignment)
}

// Get godoc
//
//	@Summary		Get an assignment
//	@Tags			Assignments
//	@Security		ApiKeyAuth
//	@Param			id path string true "Assignment ID"
//	@Success		200 {object} model.Assignment
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Router			/assignments/{id} [get]
func (h *Assignment) Get(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	assignment, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		response.WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, assignment)
}

// Update godoc
//
//	@Summary		Update an assignment
//	@Description	Updates the assignee and notes. Device and subscription are fixed for the lifetime of the assignment.
//	@Tags			Assignments
//	@Security		ApiKeyAuth
//	@Param			id path string true "Assignment ID"
//	@Param			body body request.UpdateAssignment true "Assignment updates"
//	@Success		200 {object} model.Assignment
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/assignments/{id} [put]
func (h *Assignment) Update(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req request.UpdateAssignment
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	assignment, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		response.WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	if req.Assignee != nil {
		assignment.Assignee = *req.Assignee
	}
	if req.Notes != nil {
		assignment.Notes = req.Notes
	}

	updated, err := h.svc.Update(r.Context(), id, assignment.Assignee, assignment.Notes)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, updated)
}

// Return godoc
//
//	@Summary		Return a device
//	@Description	Closes an active assignment and puts the device back in stock.
//	@Tags			Assignments
//	@Security		ApiKeyAuth
//	@Param			id path string true "Assignment ID"
//	@Success		200 {object} model.Assignment
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Failure		409 {object} response.ErrorResponse
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/assignments/{id} [delete]
func (h *Assignment) Return(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	assignment, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		response.WriteError(w, http.StatusNotFound, err.Error())
		return
	}
	if assignment.Status != model.AssignmentActive {
		response.WriteError(w, http.StatusConflict, fmt.Sprintf("assignment %s is not active", id))
		return
	}

	returned, err := h.svc.Return(r.Context(), id)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, returned)
}
