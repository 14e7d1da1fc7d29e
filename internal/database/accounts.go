// internal/database/accounts.go
package database

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/indrek8/ai-git-analyzer/internal/apperror"
	"github.com/indrek8/ai-git-analyzer/internal/model"
)

const githubUserColumns = `id, username, github_id, display_name, email, avatar_url, bio, company, location, blog,
	public_repos, public_gists, followers, following, is_active, auto_sync, last_synced_at, added_by_user_id,
	created_at, updated_at`

func scanGitHubUser(row pgx.Row) (model.GitHubUser, error) {
	var u model.GitHubUser
	err := row.Scan(&u.ID, &u.Username, &u.GitHubID, &u.DisplayName, &u.Email, &u.AvatarURL, &u.Bio,
		&u.Company, &u.Location, &u.Blog, &u.PublicRepos, &u.PublicGists, &u.Followers, &u.Following,
		&u.IsActive, &u.AutoSync, &u.LastSyncedAt, &u.AddedByID, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

type CreateGitHubUserParams struct {
	Username    string
	GitHubID    int64
	DisplayName *string
	Email       *string
	AvatarURL   *string
	Bio         *string
	Company     *string
	Location    *string
	Blog        *string
	PublicRepos int32
	PublicGists int32
	Followers   int32
	Following   int32
	AddedByID   int64
}

func (q *Queries) CreateGitHubUser(ctx context.Context, arg CreateGitHubUserParams) (model.GitHubUser, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO github_users (username, github_id, display_name, email, avatar_url, bio, company, location, blog,
			public_repos, public_gists, followers, following, added_by_user_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING `+githubUserColumns,
		arg.Username, arg.GitHubID, arg.DisplayName, arg.Email, arg.AvatarURL, arg.Bio, arg.Company,
		arg.Location, arg.Blog, arg.PublicRepos, arg.PublicGists, arg.Followers, arg.Following, arg.AddedByID)
	u, err := scanGitHubUser(row)
	if isUniqueViolation(err) {
		return model.GitHubUser{}, apperror.Conflict("github account is already registered")
	}
	return u, err
}

func (q *Queries) GetGitHubUser(ctx context.Context, id int64) (model.GitHubUser, error) {
	row := q.db.QueryRow(ctx, `SELECT `+githubUserColumns+` FROM github_users WHERE id = $1`, id)
	u, err := scanGitHubUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.GitHubUser{}, apperror.NotFound("github account", id)
	}
	return u, err
}

type GetGitHubUserByRemoteIDParams struct {
	GitHubID  int64
	AddedByID int64
}

func (q *Queries) GetGitHubUserByRemoteID(ctx context.Context, arg GetGitHubUserByRemoteIDParams) (model.GitHubUser, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+githubUserColumns+` FROM github_users WHERE github_id = $1 AND added_by_user_id = $2`,
		arg.GitHubID, arg.AddedByID)
	u, err := scanGitHubUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.GitHubUser{}, apperror.NotFound("github account", arg.GitHubID)
	}
	return u, err
}

func (q *Queries) ListGitHubUsers(ctx context.Context, addedByID int64) ([]model.GitHubUser, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+githubUserColumns+` FROM github_users WHERE added_by_user_id = $1 ORDER BY id`, addedByID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.GitHubUser
	for rows.Next() {
		u, err := scanGitHubUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// ListSyncableGitHubUsers returns every active account with auto sync on,
// across all local users. The periodic refresh walks this list.
func (q *Queries) ListSyncableGitHubUsers(ctx context.Context) ([]model.GitHubUser, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+githubUserColumns+` FROM github_users WHERE is_active AND auto_sync ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.GitHubUser
	for rows.Next() {
		u, err := scanGitHubUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

type UpdateGitHubUserProfileParams struct {
	ID          int64
	DisplayName *string
	Email       *string
	AvatarURL   *string
	Bio         *string
	Company     *string
	Location    *string
	Blog        *string
	PublicRepos int32
	PublicGists int32
	Followers   int32
	Following   int32
}

func (q *Queries) UpdateGitHubUserProfile(ctx context.Context, arg UpdateGitHubUserProfileParams) (model.GitHubUser, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE github_users
		SET display_name = $2, email = $3, avatar_url = $4, bio = $5, company = $6, location = $7, blog = $8,
			public_repos = $9, public_gists = $10, followers = $11, following = $12, updated_at = now()
		WHERE id = $1
		RETURNING `+githubUserColumns,
		arg.ID, arg.DisplayName, arg.Email, arg.AvatarURL, arg.Bio, arg.Company, arg.Location, arg.Blog,
		arg.PublicRepos, arg.PublicGists, arg.Followers, arg.Following)
	u, err := scanGitHubUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.GitHubUser{}, apperror.NotFound("github account", arg.ID)
	}
	return u, err
}

func (q *Queries) TouchGitHubUserSynced(ctx context.Context, id int64) error {
	_, err := q.db.Exec(ctx,
		`UPDATE github_users SET last_synced_at = now(), updated_at = now() WHERE id = $1`, id)
	return err
}

// DeleteGitHubUser removes the account; selections cascade.
func (q *Queries) DeleteGitHubUser(ctx context.Context, id int64) error {
	tag, err := q.db.Exec(ctx, `DELETE FROM github_users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("github account", id)
	}
	return nil
}

const githubOrgColumns = `id, login, github_id, display_name, description, email, avatar_url, blog, location, company,
	public_repos, public_gists, followers, following, access_token, token_scopes, is_active, auto_sync,
	last_synced_at, added_by_user_id, created_at, updated_at`

func scanGitHubOrganization(row pgx.Row) (model.GitHubOrganization, error) {
	var o model.GitHubOrganization
	err := row.Scan(&o.ID, &o.Login, &o.GitHubID, &o.DisplayName, &o.Description, &o.Email, &o.AvatarURL,
		&o.Blog, &o.Location, &o.Company, &o.PublicRepos, &o.PublicGists, &o.Followers, &o.Following,
		&o.AccessToken, &o.TokenScopes, &o.IsActive, &o.AutoSync, &o.LastSyncedAt, &o.AddedByID,
		&o.CreatedAt, &o.UpdatedAt)
	return o, err
}

type CreateGitHubOrganizationParams struct {
	Login       string
	GitHubID    int64
	DisplayName *string
	Description *string
	Email       *string
	AvatarURL   *string
	Blog        *string
	Location    *string
	Company     *string
	PublicRepos int32
	PublicGists int32
	Followers   int32
	Following   int32
	AccessToken *string
	TokenScopes *string
	AddedByID   int64
}

func (q *Queries) CreateGitHubOrganization(ctx context.Context, arg CreateGitHubOrganizationParams) (model.GitHubOrganization, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO github_organizations (login, github_id, display_name, description, email, avatar_url, blog,
			location, company, public_repos, public_gists, followers, following, access_token, token_scopes,
			added_by_user_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING `+githubOrgColumns,
		arg.Login, arg.GitHubID, arg.DisplayName, arg.Description, arg.Email, arg.AvatarURL, arg.Blog,
		arg.Location, arg.Company, arg.PublicRepos, arg.PublicGists, arg.Followers, arg.Following,
		arg.AccessToken, arg.TokenScopes, arg.AddedByID)
	o, err := scanGitHubOrganization(row)
	if isUniqueViolation(err) {
		return model.GitHubOrganization{}, apperror.Conflict("github organization is already registered")
	}
	return o, err
}

func (q *Queries) GetGitHubOrganization(ctx context.Context, id int64) (model.GitHubOrganization, error) {
	row := q.db.QueryRow(ctx, `SELECT `+githubOrgColumns+` FROM github_organizations WHERE id = $1`, id)
	o, err := scanGitHubOrganization(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.GitHubOrganization{}, apperror.NotFound("github organization", id)
	}
	return o, err
}

type GetGitHubOrganizationByRemoteIDParams struct {
	GitHubID  int64
	AddedByID int64
}

func (q *Queries) GetGitHubOrganizationByRemoteID(ctx context.Context, arg GetGitHubOrganizationByRemoteIDParams) (model.GitHubOrganization, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+githubOrgColumns+` FROM github_organizations WHERE github_id = $1 AND added_by_user_id = $2`,
		arg.GitHubID, arg.AddedByID)
	o, err := scanGitHubOrganization(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.GitHubOrganization{}, apperror.NotFound("github organization", arg.GitHubID)
	}
	return o, err
}

func (q *Queries) ListGitHubOrganizations(ctx context.Context, addedByID int64) ([]model.GitHubOrganization, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+githubOrgColumns+` FROM github_organizations WHERE added_by_user_id = $1 ORDER BY id`, addedByID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.GitHubOrganization
	for rows.Next() {
		o, err := scanGitHubOrganization(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (q *Queries) ListSyncableGitHubOrganizations(ctx context.Context) ([]model.GitHubOrganization, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+githubOrgColumns+` FROM github_organizations WHERE is_active AND auto_sync ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.GitHubOrganization
	for rows.Next() {
		o, err := scanGitHubOrganization(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

type UpdateGitHubOrganizationProfileParams struct {
	ID          int64
	DisplayName *string
	Description *string
	Email       *string
	AvatarURL   *string
	Blog        *string
	Location    *string
	Company     *string
	PublicRepos int32
	PublicGists int32
	Followers   int32
	Following   int32
}

func (q *Queries) UpdateGitHubOrganizationProfile(ctx context.Context, arg UpdateGitHubOrganizationProfileParams) (model.GitHubOrganization, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE github_organizations
		SET display_name = $2, description = $3, email = $4, avatar_url = $5, blog = $6, location = $7,
			company = $8, public_repos = $9, public_gists = $10, followers = $11, following = $12,
			updated_at = now()
		WHERE id = $1
		RETURNING `+githubOrgColumns,
		arg.ID, arg.DisplayName, arg.Description, arg.Email, arg.AvatarURL, arg.Blog, arg.Location, arg.Company,
		arg.PublicRepos, arg.PublicGists, arg.Followers, arg.Following)
	o, err := scanGitHubOrganization(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.GitHubOrganization{}, apperror.NotFound("github organization", arg.ID)
	}
	return o, err
}

type UpdateGitHubOrganizationTokenParams struct {
	ID          int64
	AccessToken *string
	TokenScopes *string
}

// UpdateGitHubOrganizationToken stores the OAuth token granted for the org.
func (q *Queries) UpdateGitHubOrganizationToken(ctx context.Context, arg UpdateGitHubOrganizationTokenParams) (model.GitHubOrganization, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE github_organizations
		SET access_token = $2, token_scopes = $3, updated_at = now()
		WHERE id = $1
		RETURNING `+githubOrgColumns,
		arg.ID, arg.AccessToken, arg.TokenScopes)
	o, err := scanGitHubOrganization(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.GitHubOrganization{}, apperror.NotFound("github organization", arg.ID)
	}
	return o, err
}

func (q *Queries) TouchGitHubOrganizationSynced(ctx context.Context, id int64) error {
	_, err := q.db.Exec(ctx,
		`UPDATE github_organizations SET last_synced_at = now(), updated_at = now() WHERE id = $1`, id)
	return err
}

func (q *Queries) DeleteGitHubOrganization(ctx context.Context, id int64) error {
	tag, err := q.db.Exec(ctx, `DELETE FROM github_organizations WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("github organization", id)
	}
	return nil
}
