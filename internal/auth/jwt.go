// internal/auth/jwt.go

// Package auth implements local-account authentication: bcrypt passwords,
// HS256 access tokens, the HTTP middleware that enforces them, and the
// GitHub OAuth web flow used to obtain read tokens.
package auth

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/indrek8/ai-git-analyzer/internal/apperror"
)

// tokenIssuer is pinned in every token so tokens minted by other apps
// sharing a secret are still rejected.
const tokenIssuer = "ai-git-analyzer"

// TokenService signs and verifies the API's bearer tokens. HS256 keeps a
// single shared secret; the subject claim carries the user id.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenService(secret string, ttl time.Duration) *TokenService {
	return &TokenService{secret: []byte(secret), ttl: ttl}
}

// Issue mints a signed token for the user, valid for the configured TTL.
func (s *TokenService) Issue(userID int64) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		Issuer:    tokenIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Verify checks signature, expiry and issuer, and returns the user id the
// token was issued for. WithValidMethods pins the algorithm so a token
// claiming another signing method is rejected outright.
func (s *TokenService) Verify(tokenStr string) (int64, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &jwt.RegisteredClaims{},
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return 0, apperror.Unauthorized("invalid or expired token")
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return 0, apperror.Unauthorized("token has no subject")
	}
	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, apperror.Unauthorized("malformed token subject")
	}
	return userID, nil
}
