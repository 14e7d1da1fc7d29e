// internal/syncer/reconcile.go
package syncer

import (
	"context"
	"errors"
	"fmt"

	"github.com/indrek8/ai-git-analyzer/internal/apperror"
	"github.com/indrek8/ai-git-analyzer/internal/database"
	"github.com/indrek8/ai-git-analyzer/internal/model"
	"github.com/indrek8/ai-git-analyzer/internal/source"
	"github.com/indrek8/ai-git-analyzer/internal/tasks"
)

// ReconcileResult summarizes one account reconciliation run.
type ReconcileResult struct {
	Account           string            `json:"account"`
	Kind              model.AccountKind `json:"kind"`
	ReposFound        int               `json:"repos_found"`
	SelectionsCreated int               `json:"selections_created"`
	SelectionsUpdated int               `json:"selections_updated"`
	SelectionsSkipped int               `json:"selections_skipped"`
}

// ReconcileAccount refreshes the account's profile and folds its remote
// repository listing into the selection set: repositories not seen before
// are inserted as pending decisions, known rows get their remote metadata
// refreshed while status and linkage are left untouched so user decisions
// survive every refresh.
func (s *Syncer) ReconcileAccount(ctx context.Context, ref model.AccountRef, job *tasks.Job) (*ReconcileResult, error) {
	acc, err := s.loadAccount(ctx, ref)
	if err != nil {
		return nil, err
	}
	logger := s.logger.With("account", acc.login, "kind", ref.Kind)

	result, err := withRetry(ctx, logger, func() (*ReconcileResult, error) {
		return s.reconcileOnce(ctx, acc, job)
	})
	if err != nil {
		return nil, err
	}

	logger.Info("account reconciled",
		"repos_found", result.ReposFound,
		"selections_created", result.SelectionsCreated,
		"selections_updated", result.SelectionsUpdated)
	return result, nil
}

func (s *Syncer) reconcileOnce(ctx context.Context, acc account, job *tasks.Job) (*ReconcileResult, error) {
	report := progressReporter(job)

	client, err := s.sources.ClientFor(model.ProviderGitHub, acc.token)
	if err != nil {
		return nil, err
	}

	report(5, "refreshing profile")
	if err := s.refreshProfile(ctx, client, acc); err != nil {
		return nil, err
	}

	report(10, "listing repositories")
	var remote []model.RemoteRepository
	if acc.ref.Kind == model.AccountKindOrg {
		remote, err = client.ListOrgRepositories(ctx, acc.login)
	} else {
		remote, err = client.ListUserRepositories(ctx, acc.login)
	}
	if err != nil {
		return nil, err
	}

	result := &ReconcileResult{
		Account:    acc.login,
		Kind:       acc.ref.Kind,
		ReposFound: len(remote),
	}

	err = s.store.WithTx(ctx, func(q database.Querier) error {
		for i, rr := range remote {
			sel, err := q.GetSelectionByRemoteRepo(ctx, database.GetSelectionByRemoteRepoParams{
				GitHubRepoID: rr.RemoteID,
				GitHubUserID: acc.userID,
				GitHubOrgID:  acc.orgID,
			})
			switch {
			case err == nil:
				if selectionMetadataChanged(sel, rr) {
					if _, err := q.UpdateSelectionMetadata(ctx, database.UpdateSelectionMetadataParams{
						ID:              sel.ID,
						Description:     rr.Description,
						IsArchived:      rr.IsArchived,
						StargazersCount: rr.StargazersCount,
						WatchersCount:   rr.WatchersCount,
						ForksCount:      rr.ForksCount,
						Size:            rr.Size,
						Language:        rr.Language,
					}); err != nil {
						return err
					}
					result.SelectionsUpdated++
				} else {
					result.SelectionsSkipped++
				}
			case errors.Is(err, apperror.ErrNotFound):
				// A racing reconcile may insert the row between the lookup
				// and the create; the duplicate is a skip, not a failure.
				switch _, err := q.CreateSelection(ctx, selectionFromRemote(rr, acc)); {
				case err == nil:
					result.SelectionsCreated++
				case errors.Is(err, apperror.ErrConflict):
					result.SelectionsSkipped++
				default:
					return err
				}
			default:
				return err
			}
			report(20+(i+1)*70/len(remote), fmt.Sprintf("reconciled %d/%d repositories", i+1, len(remote)))
		}
		return nil
	})
	if err != nil {
		result.SelectionsCreated = 0
		result.SelectionsUpdated = 0
		result.SelectionsSkipped = 0
		return nil, err
	}

	report(95, "finalizing")
	if err := s.touchAccountSynced(ctx, acc.ref); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Syncer) refreshProfile(ctx context.Context, client source.Client, acc account) error {
	if acc.ref.Kind == model.AccountKindOrg {
		profile, err := client.OrgProfile(ctx, acc.login)
		if err != nil {
			return err
		}
		_, err = s.store.UpdateGitHubOrganizationProfile(ctx, database.UpdateGitHubOrganizationProfileParams{
			ID:          acc.ref.ID,
			DisplayName: profile.DisplayName,
			Description: profile.Description,
			Email:       profile.Email,
			AvatarURL:   profile.AvatarURL,
			Blog:        profile.Blog,
			Location:    profile.Location,
			Company:     profile.Company,
			PublicRepos: profile.PublicRepos,
			PublicGists: profile.PublicGists,
			Followers:   profile.Followers,
			Following:   profile.Following,
		})
		return err
	}

	profile, err := client.UserProfile(ctx, acc.login)
	if err != nil {
		return err
	}
	_, err = s.store.UpdateGitHubUserProfile(ctx, database.UpdateGitHubUserProfileParams{
		ID:          acc.ref.ID,
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
	})
	return err
}

// selectionMetadataChanged reports whether any mutable remote field differs
// from the stored selection. Unchanged rows are skipped, not counted as
// updated.
func selectionMetadataChanged(sel model.RepositorySelection, rr model.RemoteRepository) bool {
	return !strPtrEq(sel.Description, rr.Description) ||
		sel.IsArchived != rr.IsArchived ||
		sel.StargazersCount != rr.StargazersCount ||
		sel.WatchersCount != rr.WatchersCount ||
		sel.ForksCount != rr.ForksCount ||
		sel.Size != rr.Size ||
		!strPtrEq(sel.Language, rr.Language)
}

func strPtrEq(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func selectionFromRemote(rr model.RemoteRepository, acc account) database.CreateSelectionParams {
	return database.CreateSelectionParams{
		GitHubRepoID:    rr.RemoteID,
		Name:            rr.Name,
		FullName:        rr.FullName,
		Description:     rr.Description,
		URL:             rr.URL,
		CloneURL:        optStr(rr.CloneURL),
		DefaultBranch:   rr.DefaultBranch,
		IsPrivate:       rr.IsPrivate,
		IsFork:          rr.IsFork,
		IsArchived:      rr.IsArchived,
		StargazersCount: rr.StargazersCount,
		WatchersCount:   rr.WatchersCount,
		ForksCount:      rr.ForksCount,
		Size:            rr.Size,
		Language:        rr.Language,
		GitHubUserID:    acc.userID,
		GitHubOrgID:     acc.orgID,
		SelectedByID:    acc.addedBy,
	}
}
