// internal/auth/service_test.go
package auth

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/indrek8/ai-git-analyzer/internal/apperror"
	"github.com/indrek8/ai-git-analyzer/internal/database/memory"
)

func newTestService(t *testing.T) (*Service, *memory.Store, *TokenService) {
	t.Helper()
	store := memory.NewStore()
	tokens := NewTokenService("unit-test-secret", time.Hour)
	passwords := NewPasswordServiceWithCost(bcrypt.MinCost)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(store, tokens, passwords, logger), store, tokens
}

func TestRegister(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, "  Alice@Example.COM ", "alice", "s3cret-enough")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", u.Email, "email is normalized")
	assert.Equal(t, "alice", u.Username)
	assert.NotEqual(t, "s3cret-enough", u.HashedPassword)
	assert.True(t, u.IsActive)
	assert.False(t, u.IsAdmin)

	stored, err := store.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, u.ID, stored.ID)
}

func TestRegister_Validation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name     string
		email    string
		username string
		password string
	}{
		{"missing email", "", "alice", "s3cret-enough"},
		{"email without at sign", "alice.example.com", "alice", "s3cret-enough"},
		{"short username", "alice@example.com", "al", "s3cret-enough"},
		{"short password", "alice@example.com", "alice", "short"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tc.email, tc.username, tc.password)
			assert.ErrorIs(t, err, apperror.ErrValidation)
		})
	}
}

func TestRegister_DuplicateAccount(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice@example.com", "alice", "s3cret-enough")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "alice@example.com", "other", "s3cret-enough")
	assert.ErrorIs(t, err, apperror.ErrConflict, "email must be unique")

	_, err = svc.Register(ctx, "other@example.com", "alice", "s3cret-enough")
	assert.ErrorIs(t, err, apperror.ErrConflict, "username must be unique")
}

func TestLogin(t *testing.T) {
	svc, store, tokens := newTestService(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, "alice@example.com", "alice", "s3cret-enough")
	require.NoError(t, err)

	u, token, err := svc.Login(ctx, "alice", "s3cret-enough")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, u.ID)

	userID, err := tokens.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, registered.ID, userID, "token is issued for the logged-in user")

	t.Run("unknown username", func(t *testing.T) {
		_, _, err := svc.Login(ctx, "nobody", "s3cret-enough")
		assert.ErrorIs(t, err, apperror.ErrUnauthorized)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, _, err := svc.Login(ctx, "alice", "not-the-password")
		assert.ErrorIs(t, err, apperror.ErrUnauthorized)
	})

	t.Run("disabled account", func(t *testing.T) {
		store.SetUserActive(registered.ID, false)
		_, _, err := svc.Login(ctx, "alice", "s3cret-enough")
		assert.ErrorIs(t, err, apperror.ErrUnauthorized)
	})
}
