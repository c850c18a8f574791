package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/mikaelw/subtrack/internal/model"
)

// AuditLogger is an async audit log writer. Entries are also fanned out to
// subscribers, which feeds the dashboard live activity stream.
type AuditLogger struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
	ch     chan model.AuditLog

	mu   sync.Mutex
	subs map[chan model.AuditLog]struct{}
}

func NewAuditLogger(pool *pgxpool.Pool, logger zerolog.Logger) *AuditLogger {
	al := &AuditLogger{
		pool:   pool,
		logger: logger,
		ch:     make(chan model.AuditLog, 1024),
		subs:   make(map[chan model.AuditLog]struct{}),
	}
	go al.drain()
	return al
}

func (al *AuditLogger) drain() {
	for entry := range al.ch {
		err := al.pool.QueryRow(
			// use context.Background since this is async
			context.Background(),
			`INSERT INTO audit_logs (actor_type, actor_id, method, path, resource_type, resource_id, status_code, request_body, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`,
			entry.ActorType, entry.ActorID, entry.Method, entry.Path,
			entry.ResourceType, entry.ResourceID, entry.StatusCode, entry.RequestBody, entry.CreatedAt,
		).Scan(&entry.ID)
		if err != nil {
			al.logger.Error().Err(err).Msg("failed to write audit log")
		}
		al.broadcast(entry)
	}
}

// Close drains remaining entries and closes the channel.
func (al *AuditLogger) Close() {
	close(al.ch)
}

// Subscribe registers a live feed subscriber. The returned cancel function
// must be called when the subscriber goes away.
func (al *AuditLogger) Subscribe() (<-chan model.AuditLog, func()) {
	sub := make(chan model.AuditLog, 16)
	al.mu.Lock()
	al.subs[sub] = struct{}{}
	al.mu.Unlock()

	cancel := func() {
		al.mu.Lock()
		delete(al.subs, sub)
		al.mu.Unlock()
	}
	return sub, cancel
}

func (al *AuditLogger) broadcast(entry model.AuditLog) {
	al.mu.Lock()
	defer al.mu.Unlock()
	for sub := range al.subs {
		// Slow subscribers miss entries rather than stall the writer.
		select {
		case sub <- entry:
		default:
		}
	}
}

// Middleware returns a chi middleware that logs mutating API requests.
func (al *AuditLogger) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Only audit mutating operations.
		if r.Method != http.MethodPost && r.Method != http.MethodPut &&
			r.Method != http.MethodPatch && r.Method != http.MethodDelete {
			next.ServeHTTP(w, r)
			return
		}

		// Read and re-buffer the request body.
		var bodyBytes []byte
		if r.Body != nil {
			bodyBytes, _ = io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
		}

		// Wrap response writer to capture status code.
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		resourceType, resourceID := extractResource(r.URL.Path)

		entry := model.AuditLog{
			ActorType:    "anonymous",
			Method:       r.Method,
			Path:         r.URL.Path,
			ResourceType: resourceType,
			ResourceID:   resourceID,
			StatusCode:   sw.status,
			CreatedAt:    time.Now(),
		}
		if identity := GetIdentity(r.Context()); identity != nil {
			id := identity.ID
			entry.ActorType = identity.Type
			entry.ActorID = &id
		}

		// Sanitize body - don't log passwords or keys.
		if len(bodyBytes) > 0 && json.Valid(bodyBytes) {
			entry.RequestBody = sanitizeBody(bodyBytes)
		}

		// Send to async writer.
		select {
		case al.ch <- entry:
		default:
			al.logger.Warn().Msg("audit log buffer full, dropping entry")
		}
	})
}

func extractResource(path string) (*string, *string) {
	// Extract the last resource type and optional ID from the path.
	// e.g., /api/v1/devices -> type=devices
	//       /api/v1/devices/abc -> type=devices, id=abc
	//       /api/v1/subscriptions/abc/assignments -> type=assignments
	parts := strings.Split(strings.TrimPrefix(path, "/api/v1/"), "/")
	if len(parts) == 0 {
		return nil, nil
	}

	// Walk the parts: resource types are at even indices, IDs at odd indices
	var resourceType, resourceID *string
	for i, part := range parts {
		if part == "" {
			continue
		}
		if i%2 == 0 {
			p := part
			resourceType = &p
			resourceID = nil
		} else {
			p := part
			resourceID = &p
		}
	}

	return resourceType, resourceID
}

// sensitiveFields are fields that should be redacted from audit logs.
var sensitiveFields = map[string]bool{
	"password": true, "api_key": true, "secret": true, "token": true, "key": true,
}

func sanitizeBody(body []byte) json.RawMessage {
	var data map[string]any
	if err := json.Unmarshal(body, &data); err != nil {
		return body
	}
	for k := range data {
		if sensitiveFields[k] {
			data[k] = "[REDACTED]"
		}
	}
	sanitized, _ := json.Marshal(data)
	return sanitized
}
