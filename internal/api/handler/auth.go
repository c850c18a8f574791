package handler

import (
	"net/http"

	"github.com/mikaelw/subtrack/internal/api/middleware"
	"github.com/mikaelw/subtrack/internal/api/request"
	"github.com/mikaelw/subtrack/internal/api/response"
	"github.com/mikaelw/subtrack/internal/core"
	"github.com/mikaelw/subtrack/internal/model"
)

type Auth struct {
	svc *core.AuthService
}

func NewAuth(svc *core.AuthService) *Auth {
	return &Auth{svc: svc}
}

// Login godoc
//
//	@Summary		Log in to the dashboard
//	@Description	Exchanges email and password for a JWT. The token goes in the Authorization header as a Bearer token on subsequent requests.
//	@Tags			Auth
//	@Param			body body request.Login true "Credentials"
//	@Success		200 {object} map[string]any
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		401 {object} response.ErrorResponse
//	@Router			/auth/login [post]
func (h *Auth) Login(w http.ResponseWriter, r *http.Request) {
	var req request.Login
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	token, user, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		response.WriteError(w, http.StatusUnauthorized, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user":  user,
	})
}

// Me godoc
//
//	@Summary		Current user
//	@Description	Returns the profile of the logged-in dashboard user. API key callers have no user profile.
//	@Tags			Auth
//	@Security		ApiKeyAuth
//	@Success		200 {object} model.User
//	@Failure		401 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Router			/me [get]
func (h *Auth) Me(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())
	if identity == nil || identity.Type != model.ActorUser {
		response.WriteError(w, http.StatusUnauthorized, "no user session")
		return
	}

	user, err := h.svc.GetUser(r.Context(), identity.ID)
	if err != nil {
		response.WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, user)
}

// UpdateMe godoc
//
//	@Summary		Update current user
//	@Description	Changes the display name and optionally the password of the logged-in dashboard user.
//	@Tags			Auth
//	@Security		ApiKeyAuth
//	@Param			body body request.UpdateProfile true "Profile updates"
//	@Success		200 {object} model.User
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		401 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/me [patch]
func (h *Auth) UpdateMe(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())
	if identity == nil || identity.Type != model.ActorUser {
		response.WriteError(w, http.StatusUnauthorized, "no user session")
		return
	}

	var req request.UpdateProfile
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.svc.GetUser(r.Context(), identity.ID)
	if err != nil {
		response.WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	displayName := user.DisplayName
	if req.DisplayName != nil {
		displayName = *req.DisplayName
	}
	var password string
	if req.Password != nil {
		password = *req.Password
	}

	updated, err := h.svc.UpdateProfile(r.Context(), identity.ID, displayName, password)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, updated)
}
