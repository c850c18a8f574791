package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mikaelw/subtrack/internal/api/request"
	"github.com/mikaelw/subtrack/internal/api/response"
	"github.com/mikaelw/subtrack/internal/core"
)

// APIKey handles API key management endpoints.
type APIKey struct {
	svc *core.APIKeyService
}

// NewAPIKey creates a new APIKey handler.
func NewAPIKey(svc *core.APIKeyService) *APIKey {
	return &APIKey{svc: svc}
}

// Create godoc
//
//	@Summary		Create an API key
//	@Description	Generates a new API key. The raw key appears once in the response; only its hash is stored.
//	@Tags			APIKeys
//	@Security		ApiKeyAuth
//	@Param			body body request.CreateAPIKey true "Key name and scopes"
//	@Success		201 {object} map[string]any
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/api-keys [post]
func (h *APIKey) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateAPIKey
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	key, rawKey, err := h.svc.Create(r.Context(), req.Name, req.Scopes)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Build the response with the raw key included (shown only once).
	resp := map[string]any{
		"id":         key.ID,
		"name":       key.Name,
		"key":        rawKey,
		"key_prefix": key.KeyPrefix,
		"scopes":     key.Scopes,
		"created_at": key.CreatedAt,
	}
	response.WriteJSON(w, http.StatusCreated, resp)
}

// List godoc
//
//	@Summary		List API keys
//	@Tags			APIKeys
//	@Security		ApiKeyAuth
//	@Param			search query string false "Search by name"
//	@Param			status query string false "Filter by status (active, revoked)"
//	@Param			limit query int false "Page size" default(50)
//	@Param			cursor query string false "Pagination cursor"
//	@Success		200 {object} response.PaginatedResponse{items=[]model.APIKey}
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/api-keys [get]
func (h *APIKey) List(w http.ResponseWriter, r *http.Request) {
	params := request.ParseListParams(r)

	keys, hasMore, err := h.svc.List(r.Context(), params)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var nextCursor string
	if hasMore && len(keys) > 0 {
		nextCursor = keys[len(keys)-1].ID
	}
	response.WritePaginated(w, http.StatusOK, keys, nextCursor, hasMore)
}

// Get godoc
//
//	@Summary		Get an API key
//	@Tags			APIKeys
//	@Security		ApiKeyAuth
//	@Param			id path string true "API key ID"
//	@Success		200 {object} model.APIKey
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Router			/api-keys/{id} [get]
func (h *APIKey) Get(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	key, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		response.WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, key)
}

// Update godoc
//
//	@Summary		Update an API key
//	@Description	Renames a key or changes its scopes. The key itself is immutable; revoke and recreate to rotate.
//	@Tags			APIKeys
//	@Security		ApiKeyAuth
//	@Param			id path string true "API key ID"
//	@Param			body body request.UpdateAPIKey true "New name and scopes"
//	@Success		200 {object} model.APIKey
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Router			/api-keys/{id} [put]
func (h *APIKey) Update(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req request.UpdateAPIKey
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	key, err := h.svc.Update(r.Context(), id, req.Name, req.Scopes)
	if err != nil {
		response.WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, key)
}

// Revoke godoc
//
//	@Summary		Revoke an API key
//	@Description	Soft-deletes the key by setting revoked_at. Revoked keys stop authenticating immediately.
//	@Tags			APIKeys
//	@Security		ApiKeyAuth
//	@Param			id path string true "API key ID"
//	@Success		204
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/api-keys/{id} [delete]
func (h *APIKey) Revoke(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.svc.GetByID(r.Context(), id); err != nil {
		response.WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	if err := h.svc.Revoke(r.Context(), id); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
