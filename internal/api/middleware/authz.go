package middleware

import (
	"context"
	"net/http"

	"github.com/mikaelw/subtrack/internal/api/response"
)

// GetIdentity extracts the Identity from the request context.
func GetIdentity(ctx context.Context) *Identity {
	identity, _ := ctx.Value(IdentityKey).(*Identity)
	return identity
}

// HasScope checks if the identity has the given resource:action scope.
// Wildcards are accepted on either side, so "*:*", "invoices:*" and
// "*:read" all grant invoices:read.
func HasScope(identity *Identity, resource, action string) bool {
	if identity == nil {
		return false
	}
	for _, s := range identity.Scopes {
		switch s {
		case "*:*", resource + ":" + action, resource + ":*", "*:" + action:
			return true
		}
	}
	return false
}

// IsAdmin checks if the identity can manage API keys and users: dashboard
// admins and keys with the full wildcard.
func IsAdmin(identity *Identity) bool {
	if identity == nil {
		return false
	}
	if identity.Role == "admin" {
		return true
	}
	for _, s := range identity.Scopes {
		if s == "*:*" {
			return true
		}
	}
	return false
}

// RequireScope returns middleware that checks the caller has the given
// resource:action scope.
func RequireScope(resource, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := GetIdentity(r.Context())
			if !HasScope(identity, resource, action) {
				response.WriteError(w, http.StatusForbidden, "insufficient scope: requires "+resource+":"+action)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin returns middleware that restricts a route to admins.
func RequireAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !IsAdmin(GetIdentity(r.Context())) {
				response.WriteError(w, http.StatusForbidden, "admin access required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
