// internal/syncer/cleanup.go
package syncer

import (
	"context"
	"time"

	"github.com/indrek8/ai-git-analyzer/internal/database"
	"github.com/indrek8/ai-git-analyzer/internal/tasks"
)

// jobRetention is how long finished background jobs stay queryable.
const jobRetention = 24 * time.Hour

// CleanupResult summarizes one cleanup pass.
type CleanupResult struct {
	RepositoriesDetached int   `json:"repositories_detached"`
	SelectionsRemoved    int64 `json:"selections_removed"`
	JobsPruned           int   `json:"jobs_pruned"`
}

// CleanupDeselected handles selections the user has withdrawn: each one
// still pointing at a repository is unlinked, and the repository is
// deactivated so the periodic refresh stops syncing it. History is kept.
func (s *Syncer) CleanupDeselected(ctx context.Context, _ *tasks.Job) (*CleanupResult, error) {
	result := &CleanupResult{}

	err := s.store.WithTx(ctx, func(q database.Querier) error {
		sels, err := q.ListDeselectedLinkedSelections(ctx)
		if err != nil {
			return err
		}
		for _, sel := range sels {
			repoID := *sel.RepositoryID
			if err := q.ClearSelectionRepository(ctx, sel.ID); err != nil {
				return err
			}
			if err := q.DeactivateRepository(ctx, repoID); err != nil {
				return err
			}
			result.RepositoriesDetached++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.RepositoriesDetached > 0 {
		s.logger.Info("deselected repositories detached", "count", result.RepositoriesDetached)
	}
	return result, nil
}

// CleanupOrphaned drops selections whose source account has been
// deactivated and prunes finished background jobs past retention.
func (s *Syncer) CleanupOrphaned(ctx context.Context, _ *tasks.Job) (*CleanupResult, error) {
	removed, err := s.store.DeleteSelectionsForInactiveAccounts(ctx)
	if err != nil {
		return nil, err
	}

	result := &CleanupResult{
		SelectionsRemoved: removed,
		JobsPruned:        s.queue.PruneFinished(jobRetention),
	}
	if result.SelectionsRemoved > 0 || result.JobsPruned > 0 {
		s.logger.Info("orphaned data cleaned up",
			"selections_removed", result.SelectionsRemoved,
			"jobs_pruned", result.JobsPruned)
	}
	return result, nil
}
