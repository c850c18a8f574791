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

type Device struct {
	svc *core.DeviceService
}

func NewDevice(svc *core.DeviceService) *Device {
	return &Device{svc: svc}
}

// List godoc
//
//	@Summary		List devices
//	@Tags			Devices
//	@Security		ApiKeyAuth
//	@Param			search query string false "Search by serial number, model or manufacturer"
//	@Param			status query string false "Filter by status"
//	@Param			limit query int false "Page size" default(50)
//	@Param			cursor query string false "Pagination cursor"
//	@Success		200 {object} response.PaginatedResponse{items=[]model.Device}
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/devices [get]
func (h *Device) List(w http.ResponseWriter, r *http.Request) {
	params := request.ParseListParams(r)

	devices, hasMore, err := h.svc.List(r.Context(), params)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var nextCursor string
	if hasMore && len(devices) > 0 {
		nextCursor = devices[len(devices)-1].ID
	}
	response.WritePaginated(w, http.StatusOK, devices, nextCursor, hasMore)
}

// Create godoc
//
//	@Summary		Register a device
//	@Description	Registers a device in inventory. New devices start in stock and unowned.
//	@Tags			Devices
//	@Security		ApiKeyAuth
//	@Param			body body request.CreateDevice true "Device details"
//	@Success		201 {object} model.Device
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/devices [post]
func (h *Device) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateDevice
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	now := time.Now()
	device := &model.Device{
		ID:                platform.NewID(),
		SerialNumber:      req.SerialNumber,
		Model:             req.Model,
		Manufacturer:      req.Manufacturer,
		Status:            model.DeviceInStock,
		PurchasedAt:       req.PurchasedAt,
		WarrantyExpiresAt: req.WarrantyExpiresAt,
		Notes:             req.Notes,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := h.svc.Create(r.Context(), device); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusCreated, device)
}

// Get godoc
//
//	@Summary		Get a device
//	@Tags			Devices
//	@Security		ApiKeyAuth
//	@Param			id path string true "Device ID"
//	@Success		200 {object} model.Device
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Router			/devices/{id} [get]
func (h *Device) Get(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	device, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		response.WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, device)
}

// Update godoc
//
//	@Summary		Update a device
//	@Description	Updates device details. The serial number is immutable and the assigned status is managed through assignments.
//	@Tags			Devices
//	@Security		ApiKeyAuth
//	@Param			id path string true "Device ID"
//	@Param			body body request.UpdateDevice true "Device updates"
//	@Success		200 {object} model.Device
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Failure		409 {object} response.ErrorResponse
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/devices/{id} [put]
func (h *Device) Update(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req request.UpdateDevice
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	device, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		response.WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	if req.Status != nil && device.Status == model.DeviceAssigned {
		response.WriteError(w, http.StatusConflict, fmt.Sprintf("device %s is assigned; return it before changing status", id))
		return
	}

	if req.Model != nil {
		device.Model = *req.Model
	}
	if req.Manufacturer != nil {
		device.Manufacturer = *req.Manufacturer
	}
	if req.Status != nil {
		device.Status = *req.Status
	}
	if req.PurchasedAt != nil {
		device.PurchasedAt = req.PurchasedAt
	}
	if req.WarrantyExpiresAt != nil {
		device.WarrantyExpiresAt = req.WarrantyExpiresAt
	}
	if req.Notes != nil {
		device.Notes = req.Notes
	}

	updated, err := h.svc.Update(r.Context(), id, device.Model, device.Manufacturer, device.Status, device.PurchasedAt, device.WarrantyExpiresAt, device.Notes)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, updated)
}

// Delete godoc
//
//	@Summary		Delete a device
//	@Description	Removes a device from inventory. Devices with an active assignment must be returned first.
//	@Tags			Devices
//	@Security		ApiKeyAuth
//	@Param			id path string true "Device ID"
//	@Success		202
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Failure		409 {object} response.ErrorResponse
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/devices/{id} [delete]
func (h *Device) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.svc.GetByID(r.Context(), id); err != nil {
		response.WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	active, err := h.svc.HasActiveAssignment(r.Context(), id)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if active {
		response.WriteError(w, http.StatusConflict, fmt.Sprintf("device %s has an active assignment", id))
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.WriteHeader(http.StatusAccepted)
}
