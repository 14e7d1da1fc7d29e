// internal/database/selections.go
package database

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/indrek8/ai-git-analyzer/internal/apperror"
	"github.com/indrek8/ai-git-analyzer/internal/model"
)

const selectionColumns = `id, github_repo_id, name, full_name, description, url, clone_url, default_branch,
	is_private, is_fork, is_archived, stargazers_count, watchers_count, forks_count, size, language,
	status, selected_at, repository_id, github_user_id, github_organization_id, selected_by_user_id,
	created_at, updated_at`

func scanSelection(row pgx.Row) (model.RepositorySelection, error) {
	var s model.RepositorySelection
	err := row.Scan(&s.ID, &s.GitHubRepoID, &s.Name, &s.FullName, &s.Description, &s.URL, &s.CloneURL,
		&s.DefaultBranch, &s.IsPrivate, &s.IsFork, &s.IsArchived, &s.StargazersCount, &s.WatchersCount,
		&s.ForksCount, &s.Size, &s.Language, &s.Status, &s.SelectedAt, &s.RepositoryID, &s.GitHubUserID,
		&s.GitHubOrgID, &s.SelectedByID, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

func (q *Queries) collectSelections(ctx context.Context, sql string, args ...any) ([]model.RepositorySelection, error) {
	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.RepositorySelection
	for rows.Next() {
		s, err := scanSelection(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

type CreateSelectionParams struct {
	GitHubRepoID  int64
	Name          string
	FullName      string
	Description   *string
	URL           string
	CloneURL      *string
	DefaultBranch string
	IsPrivate     bool
	IsFork        bool
	IsArchived    bool

	StargazersCount int32
	WatchersCount   int32
	ForksCount      int32
	Size            int32
	Language        *string

	GitHubUserID *int64
	GitHubOrgID  *int64
	SelectedByID int64
}

// CreateSelection inserts a selection row. A duplicate for the same remote
// repository and account reports ErrConflict without erroring the enclosing
// transaction, so reconciliation can treat a racing insert as a skip.
func (q *Queries) CreateSelection(ctx context.Context, arg CreateSelectionParams) (model.RepositorySelection, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO repository_selections (github_repo_id, name, full_name, description, url, clone_url,
			default_branch, is_private, is_fork, is_archived, stargazers_count, watchers_count, forks_count,
			size, language, github_user_id, github_organization_id, selected_by_user_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT DO NOTHING
		RETURNING `+selectionColumns,
		arg.GitHubRepoID, arg.Name, arg.FullName, arg.Description, arg.URL, arg.CloneURL, arg.DefaultBranch,
		arg.IsPrivate, arg.IsFork, arg.IsArchived, arg.StargazersCount, arg.WatchersCount, arg.ForksCount,
		arg.Size, arg.Language, arg.GitHubUserID, arg.GitHubOrgID, arg.SelectedByID)
	s, err := scanSelection(row)
	if errors.Is(err, pgx.ErrNoRows) || isUniqueViolation(err) {
		return model.RepositorySelection{}, apperror.Conflict("repository selection already exists for this account")
	}
	return s, err
}

func (q *Queries) GetSelection(ctx context.Context, id int64) (model.RepositorySelection, error) {
	row := q.db.QueryRow(ctx, `SELECT `+selectionColumns+` FROM repository_selections WHERE id = $1`, id)
	s, err := scanSelection(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.RepositorySelection{}, apperror.NotFound("repository selection", id)
	}
	return s, err
}

type GetSelectionByRemoteRepoParams struct {
	GitHubRepoID int64
	GitHubUserID *int64
	GitHubOrgID  *int64
}

// GetSelectionByRemoteRepo finds the selection for one remote repository
// within one source account. Reconciliation uses it to decide insert vs skip.
func (q *Queries) GetSelectionByRemoteRepo(ctx context.Context, arg GetSelectionByRemoteRepoParams) (model.RepositorySelection, error) {
	row := q.db.QueryRow(ctx, `
		SELECT `+selectionColumns+` FROM repository_selections
		WHERE github_repo_id = $1
		  AND github_user_id IS NOT DISTINCT FROM $2
		  AND github_organization_id IS NOT DISTINCT FROM $3`,
		arg.GitHubRepoID, arg.GitHubUserID, arg.GitHubOrgID)
	s, err := scanSelection(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.RepositorySelection{}, apperror.NotFound("repository selection", arg.GitHubRepoID)
	}
	return s, err
}

// GetSelectionForRepository returns the earliest selection linked to a
// promoted repository. Sync uses it to reach the owning source account.
func (q *Queries) GetSelectionForRepository(ctx context.Context, repositoryID int64) (model.RepositorySelection, error) {
	row := q.db.QueryRow(ctx, `
		SELECT `+selectionColumns+` FROM repository_selections
		WHERE repository_id = $1
		ORDER BY id LIMIT 1`, repositoryID)
	s, err := scanSelection(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.RepositorySelection{}, apperror.NotFound("repository selection for repository", repositoryID)
	}
	return s, err
}

type ListSelectionsForAccountParams struct {
	GitHubUserID *int64
	GitHubOrgID  *int64
	Status       *model.SelectionStatus
}

func (q *Queries) ListSelectionsForAccount(ctx context.Context, arg ListSelectionsForAccountParams) ([]model.RepositorySelection, error) {
	return q.collectSelections(ctx, `
		SELECT `+selectionColumns+` FROM repository_selections
		WHERE github_user_id IS NOT DISTINCT FROM $1
		  AND github_organization_id IS NOT DISTINCT FROM $2
		  AND ($3::text IS NULL OR status = $3::text)
		ORDER BY full_name`,
		arg.GitHubUserID, arg.GitHubOrgID, arg.Status)
}

type BulkUpdateSelectionStatusParams struct {
	IDs          []int64
	GitHubUserID *int64
	GitHubOrgID  *int64
	Status       model.SelectionStatus
	SelectedAt   *time.Time
}

// BulkUpdateSelectionStatus sets the decision status on the given
// selections, scoped to one account so foreign ids are silently ignored.
// Returns the number of rows changed.
func (q *Queries) BulkUpdateSelectionStatus(ctx context.Context, arg BulkUpdateSelectionStatusParams) (int64, error) {
	tag, err := q.db.Exec(ctx, `
		UPDATE repository_selections
		SET status = $2, selected_at = $3, updated_at = now()
		WHERE id = ANY($1)
		  AND github_user_id IS NOT DISTINCT FROM $4
		  AND github_organization_id IS NOT DISTINCT FROM $5`,
		arg.IDs, arg.Status, arg.SelectedAt, arg.GitHubUserID, arg.GitHubOrgID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

type UpdateSelectionMetadataParams struct {
	ID          int64
	Description *string
	IsArchived  bool

	StargazersCount int32
	WatchersCount   int32
	ForksCount      int32
	Size            int32
	Language        *string
}

// UpdateSelectionMetadata refreshes the mutable remote fields of a selection
// without touching its status or linkage.
func (q *Queries) UpdateSelectionMetadata(ctx context.Context, arg UpdateSelectionMetadataParams) (model.RepositorySelection, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE repository_selections
		SET description = $2, is_archived = $3, stargazers_count = $4, watchers_count = $5,
			forks_count = $6, size = $7, language = $8, updated_at = now()
		WHERE id = $1
		RETURNING `+selectionColumns,
		arg.ID, arg.Description, arg.IsArchived, arg.StargazersCount, arg.WatchersCount,
		arg.ForksCount, arg.Size, arg.Language)
	s, err := scanSelection(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.RepositorySelection{}, apperror.NotFound("repository selection", arg.ID)
	}
	return s, err
}

type ListPromotableSelectionsParams struct {
	GitHubUserID *int64
	GitHubOrgID  *int64
}

// ListPromotableSelections returns selections the user has chosen but that
// have no monitored repository yet.
func (q *Queries) ListPromotableSelections(ctx context.Context, arg ListPromotableSelectionsParams) ([]model.RepositorySelection, error) {
	return q.collectSelections(ctx, `
		SELECT `+selectionColumns+` FROM repository_selections
		WHERE status = 'selected' AND repository_id IS NULL
		  AND github_user_id IS NOT DISTINCT FROM $1
		  AND github_organization_id IS NOT DISTINCT FROM $2
		ORDER BY id`,
		arg.GitHubUserID, arg.GitHubOrgID)
}

type LinkSelectionToRepositoryParams struct {
	ID           int64
	RepositoryID int64
}

// LinkSelectionToRepository marks the selection synced and points it at the
// promoted repository.
func (q *Queries) LinkSelectionToRepository(ctx context.Context, arg LinkSelectionToRepositoryParams) (model.RepositorySelection, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE repository_selections
		SET repository_id = $2, status = 'synced', updated_at = now()
		WHERE id = $1
		RETURNING `+selectionColumns,
		arg.ID, arg.RepositoryID)
	s, err := scanSelection(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.RepositorySelection{}, apperror.NotFound("repository selection", arg.ID)
	}
	return s, err
}

// ListDeselectedLinkedSelections returns deselected rows still pointing at a
// repository. Cleanup detaches and deactivates those repositories.
func (q *Queries) ListDeselectedLinkedSelections(ctx context.Context) ([]model.RepositorySelection, error) {
	return q.collectSelections(ctx, `
		SELECT `+selectionColumns+` FROM repository_selections
		WHERE status = 'deselected' AND repository_id IS NOT NULL
		ORDER BY id`)
}

func (q *Queries) ClearSelectionRepository(ctx context.Context, id int64) error {
	_, err := q.db.Exec(ctx,
		`UPDATE repository_selections SET repository_id = NULL, updated_at = now() WHERE id = $1`, id)
	return err
}

// DeleteSelectionsForInactiveAccounts removes selections whose source
// account has been deactivated. Returns the number of rows removed.
func (q *Queries) DeleteSelectionsForInactiveAccounts(ctx context.Context) (int64, error) {
	tag, err := q.db.Exec(ctx, `
		DELETE FROM repository_selections s
		WHERE (s.github_user_id IS NOT NULL
				AND EXISTS (SELECT 1 FROM github_users u WHERE u.id = s.github_user_id AND NOT u.is_active))
		   OR (s.github_organization_id IS NOT NULL
				AND EXISTS (SELECT 1 FROM github_organizations o WHERE o.id = s.github_organization_id AND NOT o.is_active))`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
