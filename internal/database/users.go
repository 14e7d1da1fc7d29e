// internal/database/users.go
package database

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/indrek8/ai-git-analyzer/internal/apperror"
	"github.com/indrek8/ai-git-analyzer/internal/model"
)

const userColumns = `id, email, username, hashed_password, is_active, is_admin, github_token, created_at, updated_at`

func scanUser(row pgx.Row) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.Username, &u.HashedPassword, &u.IsActive, &u.IsAdmin,
		&u.GitHubToken, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

type CreateUserParams struct {
	Email          string
	Username       string
	HashedPassword string
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (model.User, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO users (email, username, hashed_password)
		VALUES ($1, $2, $3)
		RETURNING `+userColumns,
		arg.Email, arg.Username, arg.HashedPassword)
	u, err := scanUser(row)
	if isUniqueViolation(err) {
		return model.User{}, apperror.Conflict("a user with this email or username already exists")
	}
	return u, err
}

func (q *Queries) GetUserByID(ctx context.Context, id int64) (model.User, error) {
	row := q.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, apperror.NotFound("user", id)
	}
	return u, err
}

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	row := q.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, apperror.NotFound("user", email)
	}
	return u, err
}

func (q *Queries) GetUserByUsername(ctx context.Context, username string) (model.User, error) {
	row := q.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, apperror.NotFound("user", username)
	}
	return u, err
}

type UpdateUserGitHubTokenParams struct {
	ID          int64
	GitHubToken *string
}

// UpdateUserGitHubToken stores or clears the user's personal access token.
func (q *Queries) UpdateUserGitHubToken(ctx context.Context, arg UpdateUserGitHubTokenParams) (model.User, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE users
		SET github_token = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+userColumns,
		arg.ID, arg.GitHubToken)
	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, apperror.NotFound("user", arg.ID)
	}
	return u, err
}
