// internal/auth/middleware.go
package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/indrek8/ai-git-analyzer/internal/database"
	"github.com/indrek8/ai-git-analyzer/internal/model"
)

// contextKey is unexported so only this package can place or read the
// authenticated user in a request context.
type contextKey struct{}

var userContextKey contextKey

// Middleware authenticates requests by bearer token and loads the user
// row behind it into the request context.
type Middleware struct {
	tokens *TokenService
	store  database.Store
}

func NewMiddleware(tokens *TokenService, store database.Store) *Middleware {
	return &Middleware{tokens: tokens, store: store}
}

// RequireAuth rejects requests without a valid Authorization: Bearer
// token. Disabled accounts are rejected even when their token is valid.
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r)
		if !ok {
			deny(w, http.StatusUnauthorized, "authentication required")
			return
		}
		userID, err := m.tokens.Verify(raw)
		if err != nil {
			deny(w, http.StatusUnauthorized, err.Error())
			return
		}
		u, err := m.store.GetUserByID(r.Context(), userID)
		if err != nil || !u.IsActive {
			deny(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userContextKey, u)))
	})
}

// RequireAdmin gates a route to admin accounts. It must run inside
// RequireAuth.
func (m *Middleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := UserFromContext(r.Context())
		if !ok {
			deny(w, http.StatusUnauthorized, "authentication required")
			return
		}
		if !u.IsAdmin {
			deny(w, http.StatusForbidden, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// UserFromContext returns the authenticated user placed by RequireAuth.
func UserFromContext(ctx context.Context) (model.User, bool) {
	u, ok := ctx.Value(userContextKey).(model.User)
	return u, ok
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		return "", false
	}
	return token, true
}

func deny(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   http.StatusText(status),
		"message": message,
	})
}
