// internal/syncer/tasks.go
package syncer

import (
	"context"
	"fmt"

	"github.com/indrek8/ai-git-analyzer/internal/model"
	"github.com/indrek8/ai-git-analyzer/internal/tasks"
)

// Task names under which the syncer's operations run on the queue.
const (
	TaskSyncRepository    = "repository_sync"
	TaskReconcileAccount  = "account_reconcile"
	TaskBulkSync          = "repository_bulk_sync"
	TaskRefreshAll        = "source_refresh_all"
	TaskCleanupDeselected = "cleanup_deselected"
	TaskCleanupOrphaned   = "cleanup_orphaned"
)

// SyncRepositoryPayload asks for one repository's commit history.
type SyncRepositoryPayload struct {
	RepositoryID int64 `json:"repository_id"`
}

// ReconcileAccountPayload asks for one account's remote listing to be
// reconciled into candidate selections.
type ReconcileAccountPayload struct {
	Account model.AccountRef `json:"account"`
}

// BulkSyncPayload asks for several repositories to sync on behalf of one
// owner.
type BulkSyncPayload struct {
	RepositoryIDs []int64 `json:"repository_ids"`
	OwnerID       int64   `json:"owner_id"`
}

// RegisterTasks installs the syncer's handlers on the queue. Call once at
// startup, before the queue starts.
func (s *Syncer) RegisterTasks(q *tasks.Queue) {
	q.Register(TaskSyncRepository, func(ctx context.Context, job *tasks.Job) (any, error) {
		p, err := payloadAs[SyncRepositoryPayload](job)
		if err != nil {
			return nil, err
		}
		return s.SyncRepository(ctx, p.RepositoryID, job)
	})
	q.Register(TaskReconcileAccount, func(ctx context.Context, job *tasks.Job) (any, error) {
		p, err := payloadAs[ReconcileAccountPayload](job)
		if err != nil {
			return nil, err
		}
		return s.ReconcileAccount(ctx, p.Account, job)
	})
	q.Register(TaskBulkSync, func(ctx context.Context, job *tasks.Job) (any, error) {
		p, err := payloadAs[BulkSyncPayload](job)
		if err != nil {
			return nil, err
		}
		return s.BulkSync(ctx, p.OwnerID, p.RepositoryIDs, job)
	})
	q.Register(TaskRefreshAll, func(ctx context.Context, job *tasks.Job) (any, error) {
		return s.RefreshAllSources(ctx, job)
	})
	q.Register(TaskCleanupDeselected, func(ctx context.Context, job *tasks.Job) (any, error) {
		return s.CleanupDeselected(ctx, job)
	})
	q.Register(TaskCleanupOrphaned, func(ctx context.Context, job *tasks.Job) (any, error) {
		return s.CleanupOrphaned(ctx, job)
	})
}

// payloadAs recovers the typed payload the enqueuer submitted.
func payloadAs[T any](job *tasks.Job) (T, error) {
	p, ok := job.Payload.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("task %s: unexpected payload type %T", job.Name, job.Payload)
	}
	return p, nil
}
