// internal/auth/middleware_test.go
package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/indrek8/ai-git-analyzer/internal/database"
	"github.com/indrek8/ai-git-analyzer/internal/database/memory"
	"github.com/indrek8/ai-git-analyzer/internal/model"
)

func seedUser(t *testing.T, store *memory.Store, username string) model.User {
	t.Helper()
	u, err := store.CreateUser(context.Background(), database.CreateUserParams{
		Email:          username + "@example.com",
		Username:       username,
		HashedPassword: "irrelevant",
	})
	require.NoError(t, err)
	return u
}

func TestRequireAuth(t *testing.T) {
	store := memory.NewStore()
	tokens := NewTokenService("unit-test-secret", time.Hour)
	mw := NewMiddleware(tokens, store)

	var seen model.User
	handler := mw.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := UserFromContext(r.Context())
		assert.True(t, ok, "protected handlers always see the user")
		seen = u
		w.WriteHeader(http.StatusNoContent)
	}))

	user := seedUser(t, store, "alice")
	token, err := tokens.Issue(user.ID)
	require.NoError(t, err)

	request := func(authorization string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		if authorization != "" {
			req.Header.Set("Authorization", authorization)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	t.Run("valid token", func(t *testing.T) {
		rec := request("Bearer " + token)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, user.ID, seen.ID)
	})

	t.Run("missing header", func(t *testing.T) {
		rec := request("")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "authentication required")
	})

	t.Run("wrong scheme", func(t *testing.T) {
		rec := request("Basic " + token)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		rec := request("Bearer not-a-token")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("token for unknown user", func(t *testing.T) {
		ghost, err := tokens.Issue(9999)
		require.NoError(t, err)
		rec := request("Bearer " + ghost)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("disabled account", func(t *testing.T) {
		store.SetUserActive(user.ID, false)
		rec := request("Bearer " + token)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRequireAdmin(t *testing.T) {
	store := memory.NewStore()
	tokens := NewTokenService("unit-test-secret", time.Hour)
	mw := NewMiddleware(tokens, store)

	handler := mw.RequireAuth(mw.RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})))

	user := seedUser(t, store, "alice")
	token, err := tokens.Issue(user.ID)
	require.NoError(t, err)

	request := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/admin", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusForbidden, request().Code, "regular accounts are rejected")

	store.SetUserAdmin(user.ID, true)
	assert.Equal(t, http.StatusNoContent, request().Code, "admins pass through")
}

func TestRequireAdmin_WithoutAuthContext(t *testing.T) {
	mw := NewMiddleware(NewTokenService("unit-test-secret", time.Hour), memory.NewStore())

	handler := mw.RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
