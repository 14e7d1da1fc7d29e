// internal/accounts/service.go

// Package accounts manages the registered source accounts: the GitHub
// users and organizations a local user monitors, their repository
// selection decisions, and the access tokens used to read them.
package accounts

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/indrek8/ai-git-analyzer/internal/apperror"
	"github.com/indrek8/ai-git-analyzer/internal/database"
	"github.com/indrek8/ai-git-analyzer/internal/model"
	"github.com/indrek8/ai-git-analyzer/internal/source"
	"github.com/indrek8/ai-git-analyzer/internal/syncer"
	"github.com/indrek8/ai-git-analyzer/internal/tasks"
)

// Service implements account registration and selection management.
// Everything is scoped to the local user who added the account: other
// users' accounts are invisible, and lookups for them report not found
// rather than forbidden.
type Service struct {
	store   database.Store
	sources source.ClientFactory
	queue   *tasks.Queue
	logger  *slog.Logger
}

func New(store database.Store, sources source.ClientFactory, queue *tasks.Queue, logger *slog.Logger) *Service {
	return &Service{
		store:   store,
		sources: sources,
		queue:   queue,
		logger:  logger.With("component", "accounts"),
	}
}

// AddGitHubUser looks username up on GitHub and registers the account for
// ownerID. The lookup runs with the owner's personal token when one is
// stored. Registering the same GitHub account twice is a conflict.
func (s *Service) AddGitHubUser(ctx context.Context, ownerID int64, username string) (model.GitHubUser, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return model.GitHubUser{}, apperror.Validation("username", "username must not be empty")
	}

	client, err := s.sources.ClientFor(model.ProviderGitHub, s.ownerToken(ctx, ownerID))
	if err != nil {
		return model.GitHubUser{}, err
	}
	profile, err := client.UserProfile(ctx, username)
	if err != nil {
		return model.GitHubUser{}, err
	}

	// Match on the remote id, not the login, so a renamed account cannot be
	// registered twice.
	if _, err := s.store.GetGitHubUserByRemoteID(ctx, database.GetGitHubUserByRemoteIDParams{
		GitHubID:  profile.RemoteID,
		AddedByID: ownerID,
	}); err == nil {
		return model.GitHubUser{}, apperror.Conflict("github user already added")
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return model.GitHubUser{}, err
	}

	u, err := s.store.CreateGitHubUser(ctx, database.CreateGitHubUserParams{
		Username:    profile.Login,
		GitHubID:    profile.RemoteID,
		DisplayName: profile.DisplayName,
		Email:       profile.Email,
		AvatarURL:   profile.AvatarURL,
		Bio:         profile.Bio,
		Company:     profile.Company,
		Location:    profile.Location,
		Blog:        profile.Blog,
		PublicRepos: profile.PublicRepos,
		PublicGists: profile.PublicGists,
		Followers:   profile.Followers,
		Following:   profile.Following,
		AddedByID:   ownerID,
	})
	if err != nil {
		return model.GitHubUser{}, err
	}

	s.logger.Info("github user registered", "username", u.Username, "owner_id", ownerID)
	return u, nil
}

// ListGitHubUsers returns the GitHub users ownerID monitors.
func (s *Service) ListGitHubUsers(ctx context.Context, ownerID int64) ([]model.GitHubUser, error) {
	return s.store.ListGitHubUsers(ctx, ownerID)
}

// GetGitHubUser returns one monitored GitHub user. Accounts added by
// someone else report not found.
func (s *Service) GetGitHubUser(ctx context.Context, ownerID, id int64) (model.GitHubUser, error) {
	u, err := s.store.GetGitHubUser(ctx, id)
	if err != nil {
		return model.GitHubUser{}, err
	}
	if u.AddedByID != ownerID {
		return model.GitHubUser{}, apperror.NotFound("github account", id)
	}
	return u, nil
}

// RemoveGitHubUser stops monitoring a GitHub user. Its selections go with
// it; already-synced repositories and their commit history stay.
func (s *Service) RemoveGitHubUser(ctx context.Context, ownerID, id int64) error {
	u, err := s.GetGitHubUser(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteGitHubUser(ctx, u.ID); err != nil {
		return err
	}
	s.logger.Info("github user removed", "username", u.Username, "owner_id", ownerID)
	return nil
}

// ListGitHubOrganizations returns the organizations ownerID monitors.
func (s *Service) ListGitHubOrganizations(ctx context.Context, ownerID int64) ([]model.GitHubOrganization, error) {
	return s.store.ListGitHubOrganizations(ctx, ownerID)
}

// GetGitHubOrganization returns one monitored organization, scoped to its
// owner like GetGitHubUser.
func (s *Service) GetGitHubOrganization(ctx context.Context, ownerID, id int64) (model.GitHubOrganization, error) {
	o, err := s.store.GetGitHubOrganization(ctx, id)
	if err != nil {
		return model.GitHubOrganization{}, err
	}
	if o.AddedByID != ownerID {
		return model.GitHubOrganization{}, apperror.NotFound("github organization", id)
	}
	return o, nil
}

// RemoveGitHubOrganization stops monitoring an organization.
func (s *Service) RemoveGitHubOrganization(ctx context.Context, ownerID, id int64) error {
	o, err := s.GetGitHubOrganization(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteGitHubOrganization(ctx, o.ID); err != nil {
		return err
	}
	s.logger.Info("github organization removed", "login", o.Login, "owner_id", ownerID)
	return nil
}

// ConnectOrganizations registers every organization the OAuth token can
// read, storing the token so private repositories become listable. Already
// registered organizations get the fresh token instead of a duplicate row.
func (s *Service) ConnectOrganizations(ctx context.Context, ownerID int64, token, scopes string) ([]model.GitHubOrganization, error) {
	if token == "" {
		return nil, apperror.Validation("token", "access token must not be empty")
	}

	client, err := s.sources.ClientFor(model.ProviderGitHub, token)
	if err != nil {
		return nil, err
	}
	profiles, err := client.ListAuthenticatedOrgs(ctx)
	if err != nil {
		return nil, err
	}

	connected := make([]model.GitHubOrganization, 0, len(profiles))
	for _, p := range profiles {
		org, err := s.upsertOrganization(ctx, ownerID, p, token, scopes)
		if err != nil {
			return nil, err
		}
		connected = append(connected, org)
	}

	s.logger.Info("github organizations connected", "count", len(connected), "owner_id", ownerID)
	return connected, nil
}

func (s *Service) upsertOrganization(ctx context.Context, ownerID int64, p model.RemoteProfile, token, scopes string) (model.GitHubOrganization, error) {
	existing, err := s.store.GetGitHubOrganizationByRemoteID(ctx, database.GetGitHubOrganizationByRemoteIDParams{
		GitHubID:  p.RemoteID,
		AddedByID: ownerID,
	})
	switch {
	case err == nil:
		return s.store.UpdateGitHubOrganizationToken(ctx, database.UpdateGitHubOrganizationTokenParams{
			ID:          existing.ID,
			AccessToken: &token,
			TokenScopes: &scopes,
		})
	case errors.Is(err, apperror.ErrNotFound):
		return s.store.CreateGitHubOrganization(ctx, database.CreateGitHubOrganizationParams{
			Login:       p.Login,
			GitHubID:    p.RemoteID,
			DisplayName: p.DisplayName,
			Description: p.Description,
			Email:       p.Email,
			AvatarURL:   p.AvatarURL,
			Blog:        p.Blog,
			Location:    p.Location,
			Company:     p.Company,
			PublicRepos: p.PublicRepos,
			PublicGists: p.PublicGists,
			Followers:   p.Followers,
			Following:   p.Following,
			AccessToken: &token,
			TokenScopes: &scopes,
			AddedByID:   ownerID,
		})
	default:
		return model.GitHubOrganization{}, err
	}
}

// ListSelections returns the account's repository selections, optionally
// filtered by decision status.
func (s *Service) ListSelections(ctx context.Context, ownerID int64, ref model.AccountRef, status *model.SelectionStatus) ([]model.RepositorySelection, error) {
	userID, orgID, err := s.selectionScope(ctx, ownerID, ref)
	if err != nil {
		return nil, err
	}
	return s.store.ListSelectionsForAccount(ctx, database.ListSelectionsForAccountParams{
		GitHubUserID: userID,
		GitHubOrgID:  orgID,
		Status:       status,
	})
}

// UpdateSelections applies one decision to the given selections. Only the
// selecting statuses are accepted; ids that do not belong to the account
// are silently ignored. Deselecting triggers the cleanup task so unlinked
// repositories stop syncing.
func (s *Service) UpdateSelections(ctx context.Context, ownerID int64, ref model.AccountRef, selectionIDs []int64, status model.SelectionStatus) (int64, error) {
	if status != model.SelectionSelected && status != model.SelectionDeselected {
		return 0, apperror.Validation("status", "status must be selected or deselected")
	}
	userID, orgID, err := s.selectionScope(ctx, ownerID, ref)
	if err != nil {
		return 0, err
	}

	var selectedAt *time.Time
	if status == model.SelectionSelected {
		now := time.Now().UTC()
		selectedAt = &now
	}

	updated, err := s.store.BulkUpdateSelectionStatus(ctx, database.BulkUpdateSelectionStatusParams{
		IDs:          selectionIDs,
		GitHubUserID: userID,
		GitHubOrgID:  orgID,
		Status:       status,
		SelectedAt:   selectedAt,
	})
	if err != nil {
		return 0, err
	}

	if status == model.SelectionDeselected && updated > 0 {
		if _, err := s.queue.Enqueue(syncer.TaskCleanupDeselected, nil); err != nil {
			s.logger.Warn("cleanup task not enqueued", "error", err)
		}
	}
	return updated, nil
}

// selectionScope resolves ref into the selection foreign keys after
// checking the account belongs to ownerID.
func (s *Service) selectionScope(ctx context.Context, ownerID int64, ref model.AccountRef) (*int64, *int64, error) {
	switch ref.Kind {
	case model.AccountKindUser:
		u, err := s.GetGitHubUser(ctx, ownerID, ref.ID)
		if err != nil {
			return nil, nil, err
		}
		return &u.ID, nil, nil
	case model.AccountKindOrg:
		o, err := s.GetGitHubOrganization(ctx, ownerID, ref.ID)
		if err != nil {
			return nil, nil, err
		}
		return nil, &o.ID, nil
	}
	return nil, nil, apperror.Validation("kind", "unknown account kind")
}

// StoreUserToken saves the user's personal GitHub token; an empty token
// clears it.
func (s *Service) StoreUserToken(ctx context.Context, userID int64, token string) (model.User, error) {
	var ptr *string
	if token = strings.TrimSpace(token); token != "" {
		ptr = &token
	}
	return s.store.UpdateUserGitHubToken(ctx, database.UpdateUserGitHubTokenParams{
		ID:          userID,
		GitHubToken: ptr,
	})
}

// ownerToken fetches the owner's stored personal token, empty when absent.
func (s *Service) ownerToken(ctx context.Context, ownerID int64) string {
	u, err := s.store.GetUserByID(ctx, ownerID)
	if err == nil && u.GitHubToken != nil {
		return *u.GitHubToken
	}
	return ""
}
