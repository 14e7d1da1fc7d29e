// internal/auth/service.go
package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/indrek8/ai-git-analyzer/internal/apperror"
	"github.com/indrek8/ai-git-analyzer/internal/database"
	"github.com/indrek8/ai-git-analyzer/internal/model"
)

// Service implements registration and login on top of the user store.
type Service struct {
	store     database.Store
	tokens    *TokenService
	passwords *PasswordService
	logger    *slog.Logger
}

func NewService(store database.Store, tokens *TokenService, passwords *PasswordService, logger *slog.Logger) *Service {
	return &Service{
		store:     store,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger.With("component", "auth"),
	}
}

// Register creates a local account. Email and username must be unique;
// the email is checked up front, the username by the store's constraint.
func (s *Service) Register(ctx context.Context, email, username, password string) (model.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	username = strings.TrimSpace(username)

	if email == "" || !strings.Contains(email, "@") {
		return model.User{}, apperror.Validation("email", "a valid email address is required")
	}
	if len(username) < 3 {
		return model.User{}, apperror.Validation("username", "username must be at least 3 characters")
	}
	if len(password) < 8 {
		return model.User{}, apperror.Validation("password", "password must be at least 8 characters")
	}

	if _, err := s.store.GetUserByEmail(ctx, email); err == nil {
		return model.User{}, apperror.Conflict("email already registered")
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return model.User{}, err
	}

	hashed, err := s.passwords.Hash(password)
	if err != nil {
		return model.User{}, err
	}

	u, err := s.store.CreateUser(ctx, database.CreateUserParams{
		Email:          email,
		Username:       username,
		HashedPassword: hashed,
	})
	if err != nil {
		return model.User{}, err
	}

	s.logger.Info("user registered", "username", u.Username, "user_id", u.ID)
	return u, nil
}

// Login verifies the credentials and returns the user with a fresh access
// token. Unknown usernames and wrong passwords fail identically so probes
// cannot tell accounts apart.
func (s *Service) Login(ctx context.Context, username, password string) (model.User, string, error) {
	u, err := s.store.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return model.User{}, "", apperror.Unauthorized("invalid username or password")
		}
		return model.User{}, "", err
	}
	if !u.IsActive {
		return model.User{}, "", apperror.Unauthorized("account is disabled")
	}
	if err := s.passwords.Verify(u.HashedPassword, password); err != nil {
		return model.User{}, "", err
	}

	token, err := s.tokens.Issue(u.ID)
	if err != nil {
		return model.User{}, "", err
	}
	return u, token, nil
}
