// internal/auth/password.go
package auth

import (
	"golang.org/x/crypto/bcrypt"

	"github.com/indrek8/ai-git-analyzer/internal/apperror"
)

// defaultHashCost is the bcrypt work factor for new password hashes.
const defaultHashCost = 12

// PasswordService hashes and verifies passwords. The cost is injectable so
// tests can run at bcrypt.MinCost.
type PasswordService struct {
	cost int
}

func NewPasswordService() *PasswordService {
	return &PasswordService{cost: defaultHashCost}
}

func NewPasswordServiceWithCost(cost int) *PasswordService {
	return &PasswordService{cost: cost}
}

// Hash returns the bcrypt hash of plaintext. bcrypt silently truncates
// input past 72 bytes, so longer passwords are rejected instead.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	if len(plaintext) > 72 {
		return "", apperror.Validation("password", "password must be at most 72 bytes")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Verify reports whether plaintext matches the stored hash. The mismatch
// error is deliberately the same as for an unknown user.
func (p *PasswordService) Verify(hash, plaintext string) error {
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) != nil {
		return apperror.Unauthorized("invalid username or password")
	}
	return nil
}
