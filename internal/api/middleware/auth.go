package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mikaelw/subtrack/internal/api/response"
	"github.com/mikaelw/subtrack/internal/core"
	"github.com/mikaelw/subtrack/internal/crypto"
	"github.com/mikaelw/subtrack/internal/model"
)

type contextKey string

const IdentityKey contextKey = "identity"

// Identity is the authenticated caller: either an API key or a dashboard
// user holding a JWT.
type Identity struct {
	Type   string // model.ActorAPIKey or model.ActorUser
	ID     string
	Scopes []string
	Email  string
	Role   string
}

// Auth returns a middleware that authenticates requests. API clients send
// X-API-Key, which is hashed and looked up in the api_keys table. Dashboard
// sessions send Authorization: Bearer with a JWT issued by /auth/login.
func Auth(pool *pgxpool.Pool, authSvc *core.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key := r.Header.Get("X-API-Key"); key != "" {
				identity := Identity{Type: model.ActorAPIKey}
				err := pool.QueryRow(r.Context(),
					`SELECT id, scopes FROM api_keys WHERE key_hash = $1 AND revoked_at IS NULL`,
					crypto.HashAPIKey(key),
				).Scan(&identity.ID, &identity.Scopes)
				if err != nil {
					response.WriteError(w, http.StatusUnauthorized, "invalid API key")
					return
				}
				next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), &identity)))
				return
			}

			if bearer := r.Header.Get("Authorization"); strings.HasPrefix(bearer, "Bearer ") {
				claims, err := authSvc.ValidateToken(strings.TrimPrefix(bearer, "Bearer "))
				if err != nil {
					response.WriteError(w, http.StatusUnauthorized, "invalid token")
					return
				}
				identity := Identity{
					Type:   model.ActorUser,
					ID:     claims.Subject,
					Scopes: scopesForRole(claims.Role),
					Email:  claims.Email,
					Role:   claims.Role,
				}
				next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), &identity)))
				return
			}

			response.WriteError(w, http.StatusUnauthorized, "missing credentials")
		})
	}
}

func withIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, IdentityKey, identity)
}

// scopesForRole maps a dashboard role to API scopes. Admins can do
// everything; viewers only read.
func scopesForRole(role string) []string {
	if role == "admin" {
		return []string{"*:*"}
	}
	return []string{"*:read"}
}
