package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasScope(t *testing.T) {
	tests := []struct {
		name     string
		scopes   []string
		resource string
		action   string
		want     bool
	}{
		{"full wildcard", []string{"*:*"}, "invoices", "write", true},
		{"exact match", []string{"invoices:write"}, "invoices", "write", true},
		{"resource wildcard", []string{"invoices:*"}, "invoices", "write", true},
		{"action wildcard", []string{"*:read"}, "invoices", "read", true},
		{"wrong action", []string{"invoices:read"}, "invoices", "write", false},
		{"wrong resource", []string{"devices:write"}, "invoices", "write", false},
		{"viewer cannot write", []string{"*:read"}, "invoices", "write", false},
		{"empty scopes", nil, "invoices", "read", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			identity := &Identity{Scopes: tt.scopes}
			assert.Equal(t, tt.want, HasScope(identity, tt.resource, tt.action))
		})
	}
}

func TestHasScope_NilIdentity(t *testing.T) {
	assert.False(t, HasScope(nil, "invoices", "read"))
}

func TestIsAdmin(t *testing.T) {
	assert.True(t, IsAdmin(&Identity{Role: "admin"}))
	assert.True(t, IsAdmin(&Identity{Scopes: []string{"*:*"}}))
	assert.False(t, IsAdmin(&Identity{Role: "viewer", Scopes: []string{"*:read"}}))
	assert.False(t, IsAdmin(nil))
}

func TestRequireScope_Forbidden(t *testing.T) {
	handler := RequireScope("invoices", "write")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("POST", "/api/v1/invoices", nil)
	ctx := withIdentity(req.Context(), &Identity{Scopes: []string{"*:read"}})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req.WithContext(ctx))

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireScope_Allowed(t *testing.T) {
	handler := RequireScope("invoices", "write")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("POST", "/api/v1/invoices", nil)
	ctx := withIdentity(req.Context(), &Identity{Scopes: []string{"*:*"}})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req.WithContext(ctx))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAdmin(t *testing.T) {
	handler := RequireAdmin()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("POST", "/api/v1/api-keys", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req.WithContext(context.Background()))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	ctx := withIdentity(req.Context(), &Identity{Role: "admin"})
	handler.ServeHTTP(rec, req.WithContext(ctx))
	assert.Equal(t, http.StatusOK, rec.Code)
}
