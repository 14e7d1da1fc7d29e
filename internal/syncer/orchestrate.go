// internal/syncer/orchestrate.go
package syncer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/indrek8/ai-git-analyzer/internal/apperror"
	"github.com/indrek8/ai-git-analyzer/internal/model"
	"github.com/indrek8/ai-git-analyzer/internal/tasks"
)

// BulkItemResult is the outcome of one repository within a bulk sync.
type BulkItemResult struct {
	RepositoryID int64       `json:"repository_id"`
	JobID        string      `json:"job_id,omitempty"`
	Status       string      `json:"status"` // completed, failed, timed_out
	Error        string      `json:"error,omitempty"`
	Result       *SyncResult `json:"result,omitempty"`
}

// BulkSyncResult aggregates a bulk sync run.
type BulkSyncResult struct {
	Total     int              `json:"total"`
	Completed int              `json:"completed"`
	Failed    int              `json:"failed"`
	Items     []BulkItemResult `json:"items"`
}

// BulkSync fans one sync job per repository out onto the queue, in chunks,
// and waits each chunk out before dispatching the next. Ownership is an
// all-or-nothing precondition: if any id does not resolve to one of the
// owner's repositories the whole batch is rejected before any dispatch.
// After that, one item failing or timing out never disturbs its siblings;
// a timed-out job keeps running in the background and is merely recorded
// as failed here.
func (s *Syncer) BulkSync(ctx context.Context, ownerID int64, repositoryIDs []int64, job *tasks.Job) (*BulkSyncResult, error) {
	report := progressReporter(job)
	ids := dedupeIDs(repositoryIDs)
	if len(ids) == 0 {
		return nil, apperror.Validation("repository_ids", "no repositories given")
	}

	report(5, "validating ownership")
	if err := s.ValidateOwnership(ctx, ownerID, ids); err != nil {
		return nil, err
	}

	result := &BulkSyncResult{Total: len(ids)}
	logger := s.logger.With("owner_id", ownerID, "total", len(ids))
	logger.Info("bulk sync started")

	for start := 0; start < len(ids); start += bulkChunkSize {
		end := min(start+bulkChunkSize, len(ids))
		chunk := ids[start:end]

		// Dispatch the whole chunk before waiting on any of it.
		jobs := make([]*tasks.Job, len(chunk))
		for i, id := range chunk {
			j, err := s.queue.Enqueue(TaskSyncRepository, SyncRepositoryPayload{RepositoryID: id})
			if err != nil {
				s.resolveBulkItem(result, BulkItemResult{
					RepositoryID: id,
					Status:       "failed",
					Error:        err.Error(),
				}, report)
				continue
			}
			jobs[i] = j
		}

		for i, j := range jobs {
			if j == nil {
				continue
			}
			item := s.awaitBulkItem(ctx, chunk[i], j)
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.resolveBulkItem(result, item, report)
		}
	}

	logger.Info("bulk sync finished", "completed", result.Completed, "failed", result.Failed)
	return result, nil
}

// ValidateOwnership verifies every id resolves to a repository of the
// owner. Unknown ids fail the same way foreign ids do, so the error does
// not leak which repositories exist. The API layer calls this before
// enqueueing a bulk sync so the rejection is synchronous.
func (s *Syncer) ValidateOwnership(ctx context.Context, ownerID int64, ids []int64) error {
	var bad []string
	for _, id := range ids {
		repo, err := s.store.GetRepository(ctx, id)
		switch {
		case errors.Is(err, apperror.ErrNotFound):
			bad = append(bad, fmt.Sprint(id))
		case err != nil:
			return err
		case repo.OwnerID != ownerID:
			bad = append(bad, fmt.Sprint(id))
		}
	}
	if len(bad) > 0 {
		return apperror.OwnershipMismatch(
			fmt.Sprintf("repositories not found or not owned by you: %s", strings.Join(bad, ", ")))
	}
	return nil
}

func (s *Syncer) awaitBulkItem(ctx context.Context, repositoryID int64, j *tasks.Job) BulkItemResult {
	item := BulkItemResult{RepositoryID: repositoryID, JobID: j.ID.String()}

	done, err := s.queue.Await(ctx, j.ID, bulkAwaitTimeout)
	if errors.Is(err, tasks.ErrAwaitTimeout) {
		item.Status = "timed_out"
		item.Error = fmt.Sprintf("no result within %s; sync continues in background", bulkAwaitTimeout)
		return item
	}
	if err != nil {
		item.Status = "failed"
		item.Error = err.Error()
		return item
	}

	v := done.Snapshot()
	if v.Status != tasks.StatusSuccess {
		item.Status = "failed"
		item.Error = v.Error
		return item
	}
	item.Status = "completed"
	if r, ok := v.Result.(*SyncResult); ok {
		item.Result = r
	}
	return item
}

// resolveBulkItem records an item outcome and republishes aggregate
// progress as (completed+failed)/total.
func (s *Syncer) resolveBulkItem(result *BulkSyncResult, item BulkItemResult, report func(int, string)) {
	if item.Status == "completed" {
		result.Completed++
	} else {
		result.Failed++
	}
	result.Items = append(result.Items, item)

	resolved := result.Completed + result.Failed
	report(resolved*100/result.Total,
		fmt.Sprintf("synced %d/%d repositories (%d failed)", resolved, result.Total, result.Failed))
}

// RefreshResult summarizes one unattended refresh sweep.
type RefreshResult struct {
	AccountsTotal  int `json:"accounts_total"`
	AccountsSynced int `json:"accounts_synced"`
	AccountsFailed int `json:"accounts_failed"`
	ReposEnqueued  int `json:"repos_enqueued"`
}

// RefreshAllSources is the scheduled, unattended variant of reconciliation:
// every active source account is refreshed sequentially, each under its own
// deadline, and a failure is logged and counted without stopping the sweep.
// Afterwards every active repository not currently syncing gets a commit
// sync enqueued so history keeps flowing without user action.
func (s *Syncer) RefreshAllSources(ctx context.Context, job *tasks.Job) (*RefreshResult, error) {
	report := progressReporter(job)
	report(5, "collecting active accounts")

	users, err := s.store.ListSyncableGitHubUsers(ctx)
	if err != nil {
		return nil, err
	}
	orgs, err := s.store.ListSyncableGitHubOrganizations(ctx)
	if err != nil {
		return nil, err
	}

	refs := make([]model.AccountRef, 0, len(users)+len(orgs))
	for i := range users {
		refs = append(refs, users[i].Ref())
	}
	for i := range orgs {
		refs = append(refs, orgs[i].Ref())
	}

	result := &RefreshResult{AccountsTotal: len(refs)}
	s.logger.Info("periodic refresh started", "accounts", len(refs))

	for i, ref := range refs {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		tctx, cancel := context.WithTimeout(ctx, refreshSyncTimeout)
		_, err := s.ReconcileAccount(tctx, ref, nil)
		cancel()
		if err != nil {
			result.AccountsFailed++
			s.logger.Warn("periodic refresh: account failed",
				"kind", ref.Kind, "account_id", ref.ID, "error", err)
		} else {
			result.AccountsSynced++
		}

		report(10+(i+1)*70/len(refs), fmt.Sprintf("refreshed %d/%d accounts", i+1, len(refs)))
	}

	report(85, "enqueueing repository syncs")
	repos, err := s.store.ListActiveRepositories(ctx)
	if err != nil {
		return nil, err
	}
	for _, repo := range repos {
		if repo.SyncStatus == model.SyncSyncing {
			continue
		}
		if _, err := s.queue.Enqueue(TaskSyncRepository, SyncRepositoryPayload{RepositoryID: repo.ID}); err != nil {
			s.logger.Warn("periodic refresh: could not enqueue repository sync",
				"repository_id", repo.ID, "error", err)
			continue
		}
		result.ReposEnqueued++
	}

	report(95, "finalizing")
	s.logger.Info("periodic refresh finished",
		"accounts_synced", result.AccountsSynced,
		"accounts_failed", result.AccountsFailed,
		"repos_enqueued", result.ReposEnqueued)
	return result, nil
}

func dedupeIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
