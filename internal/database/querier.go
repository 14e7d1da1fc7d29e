// internal/database/querier.go
package database

import (
	"context"

	"github.com/indrek8/ai-git-analyzer/internal/model"
)

// Querier is the query surface shared by the SQL store, the in-memory store
// and test mocks. Transaction-scoped code receives a Querier bound to the
// transaction.
type Querier interface {
	// users
	CreateUser(ctx context.Context, arg CreateUserParams) (model.User, error)
	GetUserByID(ctx context.Context, id int64) (model.User, error)
	GetUserByEmail(ctx context.Context, email string) (model.User, error)
	GetUserByUsername(ctx context.Context, username string) (model.User, error)
	UpdateUserGitHubToken(ctx context.Context, arg UpdateUserGitHubTokenParams) (model.User, error)

	// github accounts
	CreateGitHubUser(ctx context.Context, arg CreateGitHubUserParams) (model.GitHubUser, error)
	GetGitHubUser(ctx context.Context, id int64) (model.GitHubUser, error)
	GetGitHubUserByRemoteID(ctx context.Context, arg GetGitHubUserByRemoteIDParams) (model.GitHubUser, error)
	ListGitHubUsers(ctx context.Context, addedByID int64) ([]model.GitHubUser, error)
	ListSyncableGitHubUsers(ctx context.Context) ([]model.GitHubUser, error)
	UpdateGitHubUserProfile(ctx context.Context, arg UpdateGitHubUserProfileParams) (model.GitHubUser, error)
	TouchGitHubUserSynced(ctx context.Context, id int64) error
	DeleteGitHubUser(ctx context.Context, id int64) error
	CreateGitHubOrganization(ctx context.Context, arg CreateGitHubOrganizationParams) (model.GitHubOrganization, error)
	GetGitHubOrganization(ctx context.Context, id int64) (model.GitHubOrganization, error)
	GetGitHubOrganizationByRemoteID(ctx context.Context, arg GetGitHubOrganizationByRemoteIDParams) (model.GitHubOrganization, error)
	ListGitHubOrganizations(ctx context.Context, addedByID int64) ([]model.GitHubOrganization, error)
	ListSyncableGitHubOrganizations(ctx context.Context) ([]model.GitHubOrganization, error)
	UpdateGitHubOrganizationProfile(ctx context.Context, arg UpdateGitHubOrganizationProfileParams) (model.GitHubOrganization, error)
	UpdateGitHubOrganizationToken(ctx context.Context, arg UpdateGitHubOrganizationTokenParams) (model.GitHubOrganization, error)
	TouchGitHubOrganizationSynced(ctx context.Context, id int64) error
	DeleteGitHubOrganization(ctx context.Context, id int64) error

	// repository selections
	CreateSelection(ctx context.Context, arg CreateSelectionParams) (model.RepositorySelection, error)
	GetSelection(ctx context.Context, id int64) (model.RepositorySelection, error)
	GetSelectionByRemoteRepo(ctx context.Context, arg GetSelectionByRemoteRepoParams) (model.RepositorySelection, error)
	GetSelectionForRepository(ctx context.Context, repositoryID int64) (model.RepositorySelection, error)
	ListSelectionsForAccount(ctx context.Context, arg ListSelectionsForAccountParams) ([]model.RepositorySelection, error)
	BulkUpdateSelectionStatus(ctx context.Context, arg BulkUpdateSelectionStatusParams) (int64, error)
	UpdateSelectionMetadata(ctx context.Context, arg UpdateSelectionMetadataParams) (model.RepositorySelection, error)
	ListPromotableSelections(ctx context.Context, arg ListPromotableSelectionsParams) ([]model.RepositorySelection, error)
	LinkSelectionToRepository(ctx context.Context, arg LinkSelectionToRepositoryParams) (model.RepositorySelection, error)
	ListDeselectedLinkedSelections(ctx context.Context) ([]model.RepositorySelection, error)
	ClearSelectionRepository(ctx context.Context, id int64) error
	DeleteSelectionsForInactiveAccounts(ctx context.Context) (int64, error)

	// repositories
	CreateRepository(ctx context.Context, arg CreateRepositoryParams) (model.Repository, error)
	GetRepository(ctx context.Context, id int64) (model.Repository, error)
	GetRepositoryByURL(ctx context.Context, arg GetRepositoryByURLParams) (model.Repository, error)
	ListRepositoriesByOwner(ctx context.Context, ownerID int64) ([]model.Repository, error)
	ListActiveRepositories(ctx context.Context) ([]model.Repository, error)
	UpdateRepositoryMetadata(ctx context.Context, arg UpdateRepositoryMetadataParams) (model.Repository, error)
	UpdateRepositorySyncStatus(ctx context.Context, arg UpdateRepositorySyncStatusParams) (model.Repository, error)
	CompleteRepositorySync(ctx context.Context, id int64) (model.Repository, error)
	CountRepositoriesBySyncStatus(ctx context.Context, ownerID int64) (map[model.SyncStatus]int64, error)
	DeactivateRepository(ctx context.Context, id int64) error
	ReactivateRepository(ctx context.Context, id int64) error

	// developers
	GetDeveloperByEmail(ctx context.Context, email string) (model.Developer, error)
	CreateDeveloper(ctx context.Context, arg CreateDeveloperParams) (model.Developer, error)
	ListDevelopers(ctx context.Context) ([]model.Developer, error)

	// commits
	CreateCommits(ctx context.Context, args []CreateCommitsParams) (int64, error)
	CommitExists(ctx context.Context, arg CommitExistsParams) (bool, error)
	ListCommitsByRepository(ctx context.Context, arg ListCommitsByRepositoryParams) ([]model.Commit, error)
	CountCommitsByRepository(ctx context.Context, repositoryID int64) (int64, error)
}

var _ Querier = (*Queries)(nil)
