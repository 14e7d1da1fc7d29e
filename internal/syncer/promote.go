// internal/syncer/promote.go
package syncer

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/indrek8/ai-git-analyzer/internal/apperror"
	"github.com/indrek8/ai-git-analyzer/internal/database"
	"github.com/indrek8/ai-git-analyzer/internal/model"
	"github.com/indrek8/ai-git-analyzer/internal/tasks"
)

// PromoteResult summarizes one selection promotion run.
type PromoteResult struct {
	Account          string `json:"account"`
	ReposCreated     int    `json:"repos_created"`
	SelectionsLinked int    `json:"selections_linked"`
	SyncsEnqueued    int    `json:"syncs_enqueued"`
}

// PromoteSelections turns every chosen-but-unlinked selection of the
// account into a monitored repository. Repositories are matched by
// (URL, owner) so re-selecting never duplicates one; only actual creations
// count as created. The whole pass is one transaction, and ingestion jobs
// are enqueued only after it commits.
func (s *Syncer) PromoteSelections(ctx context.Context, ref model.AccountRef, enqueue bool, job *tasks.Job) (*PromoteResult, error) {
	report := progressReporter(job)

	acc, err := s.loadAccount(ctx, ref)
	if err != nil {
		return nil, err
	}
	logger := s.logger.With("account", acc.login, "kind", ref.Kind)

	result := &PromoteResult{Account: acc.login}
	var repoIDs []int64
	seen := make(map[int64]struct{})

	report(10, "collecting selected repositories")
	err = s.store.WithTx(ctx, func(q database.Querier) error {
		sels, err := q.ListPromotableSelections(ctx, database.ListPromotableSelectionsParams{
			GitHubUserID: acc.userID,
			GitHubOrgID:  acc.orgID,
		})
		if err != nil {
			return err
		}

		for i, sel := range sels {
			repo, err := q.GetRepositoryByURL(ctx, database.GetRepositoryByURLParams{
				URL:     sel.URL,
				OwnerID: sel.SelectedByID,
			})
			switch {
			case errors.Is(err, apperror.ErrNotFound):
				repo, err = q.CreateRepository(ctx, repositoryFromSelection(sel))
				if err != nil {
					return err
				}
				result.ReposCreated++
			case err != nil:
				return err
			default:
				if !repo.IsActive {
					if err := q.ReactivateRepository(ctx, repo.ID); err != nil {
						return err
					}
				}
			}

			if _, err := q.LinkSelectionToRepository(ctx, database.LinkSelectionToRepositoryParams{
				ID:           sel.ID,
				RepositoryID: repo.ID,
			}); err != nil {
				return err
			}
			result.SelectionsLinked++

			if _, ok := seen[repo.ID]; !ok {
				seen[repo.ID] = struct{}{}
				repoIDs = append(repoIDs, repo.ID)
			}
			report(10+(i+1)*80/len(sels), fmt.Sprintf("promoted %d/%d selections", i+1, len(sels)))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if enqueue {
		for _, id := range repoIDs {
			if _, err := s.queue.Enqueue(TaskSyncRepository, SyncRepositoryPayload{RepositoryID: id}); err != nil {
				// Promotion already committed; the periodic refresh will
				// pick the repository up.
				logger.Warn("could not enqueue repository sync", "repository_id", id, "error", err)
				continue
			}
			result.SyncsEnqueued++
		}
	}

	report(95, "finalizing")
	logger.Info("selections promoted",
		"repos_created", result.ReposCreated,
		"selections_linked", result.SelectionsLinked,
		"syncs_enqueued", result.SyncsEnqueued)
	return result, nil
}

func repositoryFromSelection(sel model.RepositorySelection) database.CreateRepositoryParams {
	externalID := strconv.FormatInt(sel.GitHubRepoID, 10)
	return database.CreateRepositoryParams{
		Name:          sel.Name,
		FullName:      sel.FullName,
		URL:           sel.URL,
		CloneURL:      sel.CloneURL,
		Provider:      model.ProviderGitHub,
		ExternalID:    &externalID,
		Description:   sel.Description,
		DefaultBranch: sel.DefaultBranch,
		IsPrivate:     sel.IsPrivate,
		OwnerID:       sel.SelectedByID,
	}
}
