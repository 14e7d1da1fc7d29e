// internal/database/repositories.go
package database

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/indrek8/ai-git-analyzer/internal/apperror"
	"github.com/indrek8/ai-git-analyzer/internal/model"
)

const repositoryColumns = `id, name, full_name, url, clone_url, provider, external_id, description, default_branch,
	is_private, is_active, last_synced_at, sync_status, sync_error, owner_id, created_at, updated_at`

func scanRepository(row pgx.Row) (model.Repository, error) {
	var r model.Repository
	err := row.Scan(&r.ID, &r.Name, &r.FullName, &r.URL, &r.CloneURL, &r.Provider, &r.ExternalID,
		&r.Description, &r.DefaultBranch, &r.IsPrivate, &r.IsActive, &r.LastSyncedAt, &r.SyncStatus,
		&r.SyncError, &r.OwnerID, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

func (q *Queries) collectRepositories(ctx context.Context, sql string, args ...any) ([]model.Repository, error) {
	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Repository
	for rows.Next() {
		r, err := scanRepository(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type CreateRepositoryParams struct {
	Name          string
	FullName      string
	URL           string
	CloneURL      *string
	Provider      model.Provider
	ExternalID    *string
	Description   *string
	DefaultBranch string
	IsPrivate     bool
	OwnerID       int64
}

func (q *Queries) CreateRepository(ctx context.Context, arg CreateRepositoryParams) (model.Repository, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO repositories (name, full_name, url, clone_url, provider, external_id, description,
			default_branch, is_private, owner_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+repositoryColumns,
		arg.Name, arg.FullName, arg.URL, arg.CloneURL, arg.Provider, arg.ExternalID, arg.Description,
		arg.DefaultBranch, arg.IsPrivate, arg.OwnerID)
	r, err := scanRepository(row)
	if isUniqueViolation(err) {
		return model.Repository{}, apperror.Conflict("repository is already registered for this user")
	}
	return r, err
}

func (q *Queries) GetRepository(ctx context.Context, id int64) (model.Repository, error) {
	row := q.db.QueryRow(ctx, `SELECT `+repositoryColumns+` FROM repositories WHERE id = $1`, id)
	r, err := scanRepository(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Repository{}, apperror.NotFound("repository", id)
	}
	return r, err
}

type GetRepositoryByURLParams struct {
	URL     string
	OwnerID int64
}

func (q *Queries) GetRepositoryByURL(ctx context.Context, arg GetRepositoryByURLParams) (model.Repository, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+repositoryColumns+` FROM repositories WHERE url = $1 AND owner_id = $2`,
		arg.URL, arg.OwnerID)
	r, err := scanRepository(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Repository{}, apperror.NotFound("repository", arg.URL)
	}
	return r, err
}

func (q *Queries) ListRepositoriesByOwner(ctx context.Context, ownerID int64) ([]model.Repository, error) {
	return q.collectRepositories(ctx,
		`SELECT `+repositoryColumns+` FROM repositories WHERE owner_id = $1 ORDER BY full_name`, ownerID)
}

// ListActiveRepositories returns every active repository across all owners.
// The periodic refresh re-syncs this list.
func (q *Queries) ListActiveRepositories(ctx context.Context) ([]model.Repository, error) {
	return q.collectRepositories(ctx,
		`SELECT `+repositoryColumns+` FROM repositories WHERE is_active ORDER BY id`)
}

type UpdateRepositoryMetadataParams struct {
	ID            int64
	Description   *string
	DefaultBranch string
	IsPrivate     bool
}

// UpdateRepositoryMetadata refreshes descriptive fields from the remote
// source at the start of a sync run.
func (q *Queries) UpdateRepositoryMetadata(ctx context.Context, arg UpdateRepositoryMetadataParams) (model.Repository, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE repositories
		SET description = $2, default_branch = $3, is_private = $4, updated_at = now()
		WHERE id = $1
		RETURNING `+repositoryColumns,
		arg.ID, arg.Description, arg.DefaultBranch, arg.IsPrivate)
	r, err := scanRepository(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Repository{}, apperror.NotFound("repository", arg.ID)
	}
	return r, err
}

type UpdateRepositorySyncStatusParams struct {
	ID         int64
	SyncStatus model.SyncStatus
	SyncError  *string
}

func (q *Queries) UpdateRepositorySyncStatus(ctx context.Context, arg UpdateRepositorySyncStatusParams) (model.Repository, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE repositories
		SET sync_status = $2, sync_error = $3, updated_at = now()
		WHERE id = $1
		RETURNING `+repositoryColumns,
		arg.ID, arg.SyncStatus, arg.SyncError)
	r, err := scanRepository(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Repository{}, apperror.NotFound("repository", arg.ID)
	}
	return r, err
}

// CompleteRepositorySync marks a successful run and advances the checkpoint.
func (q *Queries) CompleteRepositorySync(ctx context.Context, id int64) (model.Repository, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE repositories
		SET sync_status = 'completed', sync_error = NULL, last_synced_at = now(), updated_at = now()
		WHERE id = $1
		RETURNING `+repositoryColumns, id)
	r, err := scanRepository(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Repository{}, apperror.NotFound("repository", id)
	}
	return r, err
}

// CountRepositoriesBySyncStatus groups one owner's active repositories by
// their current sync status for the stats endpoint.
func (q *Queries) CountRepositoriesBySyncStatus(ctx context.Context, ownerID int64) (map[model.SyncStatus]int64, error) {
	rows, err := q.db.Query(ctx,
		`SELECT sync_status, count(*) FROM repositories WHERE owner_id = $1 AND is_active GROUP BY sync_status`,
		ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[model.SyncStatus]int64)
	for rows.Next() {
		var status model.SyncStatus
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		out[status] = n
	}
	return out, rows.Err()
}

func (q *Queries) DeactivateRepository(ctx context.Context, id int64) error {
	_, err := q.db.Exec(ctx,
		`UPDATE repositories SET is_active = FALSE, updated_at = now() WHERE id = $1`, id)
	return err
}

func (q *Queries) ReactivateRepository(ctx context.Context, id int64) error {
	_, err := q.db.Exec(ctx,
		`UPDATE repositories SET is_active = TRUE, updated_at = now() WHERE id = $1`, id)
	return err
}
