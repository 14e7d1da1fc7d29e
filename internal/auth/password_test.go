// internal/auth/password_test.go
package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/indrek8/ai-git-analyzer/internal/apperror"
)

func TestPasswordService(t *testing.T) {
	svc := NewPasswordServiceWithCost(bcrypt.MinCost)

	hash, err := svc.Hash("correct horse battery staple")
	require.NoError(t, err)
	require.NotEqual(t, "correct horse battery staple", hash)

	assert.NoError(t, svc.Verify(hash, "correct horse battery staple"))

	err = svc.Verify(hash, "correct horse battery stapler")
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
}

func TestPasswordService_RejectsOverlongPassword(t *testing.T) {
	svc := NewPasswordServiceWithCost(bcrypt.MinCost)

	// bcrypt would silently truncate at 72 bytes, so Hash refuses instead.
	_, err := svc.Hash(strings.Repeat("x", 73))
	assert.ErrorIs(t, err, apperror.ErrValidation)
}
