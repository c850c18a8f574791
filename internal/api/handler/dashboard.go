package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/coder/websocket"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/mikaelw/subtrack/internal/api/middleware"
	"github.com/mikaelw/subtrack/internal/api/response"
	"github.com/mikaelw/subtrack/internal/core"
	"github.com/mikaelw/subtrack/internal/crypto"
)

type Dashboard struct {
	svc   *core.DashboardService
	auth  *core.AuthService
	pool  *pgxpool.Pool
	audit *middleware.AuditLogger
}

func NewDashboard(svc *core.DashboardService, auth *core.AuthService, pool *pgxpool.Pool, audit *middleware.AuditLogger) *Dashboard {
	return &Dashboard{svc: svc, auth: auth, pool: pool, audit: audit}
}

// Stats godoc
//
//	@Summary		Dashboard statistics
//	@Description	Aggregate counts, status breakdowns and revenue figures. Cached for a short interval.
//	@Tags			Dashboard
//	@Security		ApiKeyAuth
//	@Success		200 {object} core.DashboardStats
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/dashboard/stats [get]
func (h *Dashboard) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, stats)
}

// Activity godoc
//
//	@Summary		Recent activity
//	@Description	The latest mutating API requests from the audit log, newest first.
//	@Tags			Dashboard
//	@Security		ApiKeyAuth
//	@Param			limit query int false "Max entries (default 20, max 100)"
//	@Success		200 {array} model.AuditLog
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/dashboard/activity [get]
func (h *Dashboard) Activity(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			response.WriteError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		if n > 100 {
			n = 100
		}
		limit = n
	}

	logs, err := h.svc.RecentActivity(r.Context(), limit)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, logs)
}

// Live godoc
//
//	@Summary		Live activity stream
//	@Description	Upgrades to WebSocket and streams audit log entries as they happen. Authenticate with ?token= holding a dashboard JWT or an API key.
//	@Tags			Dashboard
//	@Param			token query string true "Dashboard JWT or API key"
//	@Success		101 {string} string "Switching Protocols"
//	@Failure		401 {object} response.ErrorResponse
//	@Router			/dashboard/live [get]
func (h *Dashboard) Live(w http.ResponseWriter, r *http.Request) {
	// Auth via query param (WebSocket API doesn't support custom headers).
	token := r.URL.Query().Get("token")
	if token == "" {
		response.WriteError(w, http.StatusUnauthorized, "missing token")
		return
	}
	if err := h.validateToken(r.Context(), token); err != nil {
		response.WriteError(w, http.StatusUnauthorized, "invalid token")
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // Origin differs from Host when proxied through admin-ui.
	})
	if err != nil {
		log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer ws.CloseNow()

	entries, cancel := h.audit.Subscribe()
	defer cancel()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			ws.Close(websocket.StatusNormalClosure, "")
			return
		case entry := <-entries:
			data, err := json.Marshal(entry)
			if err != nil {
				continue
			}
			if err := ws.Write(ctx, websocket.MessageText, data); err != nil {
				return
			}
		}
	}
}

// validateToken accepts either a dashboard JWT or a raw API key, mirroring
// the auth middleware.
func (h *Dashboard) validateToken(ctx context.Context, token string) error {
	if _, err := h.auth.ValidateToken(token); err == nil {
		return nil
	}
	var id string
	return h.pool.QueryRow(ctx,
		`SELECT id FROM api_keys WHERE key_hash = $1 AND revoked_at IS NULL`,
		crypto.HashAPIKey(token),
	).Scan(&id)
}
