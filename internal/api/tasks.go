// internal/api/tasks.go
package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/indrek8/ai-git-analyzer/internal/apperror"
	"github.com/indrek8/ai-git-analyzer/internal/database"
	"github.com/indrek8/ai-git-analyzer/internal/model"
	"github.com/indrek8/ai-git-analyzer/internal/syncer"
	"github.com/indrek8/ai-git-analyzer/internal/tasks"
)

type bulkSyncRequest struct {
	RepositoryIDs []int64 `json:"repository_ids"`
}

// taskStartedResponse acknowledges a dispatched background task.
type taskStartedResponse struct {
	TaskID  string `json:"task_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

func startedResponse(job *tasks.Job, message string) taskStartedResponse {
	return taskStartedResponse{TaskID: job.ID.String(), Status: "started", Message: message}
}

// startBulkSync dispatches a bulk commit sync. Ownership of every id is
// validated synchronously; one foreign or unknown id rejects the whole
// request before anything is enqueued.
// POST /api/tasks/repositories/bulk-sync
func (h *Handler) startBulkSync(w http.ResponseWriter, r *http.Request) {
	var req bulkSyncRequest
	if err := decodeJSON(r, &req); err != nil {
		respondAppError(w, h.logger, err)
		return
	}
	if len(req.RepositoryIDs) == 0 {
		respondAppError(w, h.logger, apperror.Validation("repository_ids", "repository_ids must not be empty"))
		return
	}

	user := currentUser(r)
	if err := h.syncer.ValidateOwnership(r.Context(), user.ID, req.RepositoryIDs); err != nil {
		respondAppError(w, h.logger, err)
		return
	}

	job, err := h.queue.Enqueue(syncer.TaskBulkSync, syncer.BulkSyncPayload{
		RepositoryIDs: req.RepositoryIDs,
		OwnerID:       user.ID,
	})
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, startedResponse(job,
		fmt.Sprintf("Bulk sync started for %d repositories", len(req.RepositoryIDs))))
}

// refreshGitHubUser dispatches a repository-list refresh for one account.
// POST /api/tasks/github-users/{id}/refresh
func (h *Handler) refreshGitHubUser(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamID(r, "id")
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}
	u, err := h.accounts.GetGitHubUser(r.Context(), currentUser(r).ID, id)
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}

	job, err := h.queue.Enqueue(syncer.TaskReconcileAccount, syncer.ReconcileAccountPayload{Account: u.Ref()})
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, startedResponse(job,
		fmt.Sprintf("Repository refresh started for GitHub user %s", u.Username)))
}

// refreshGitHubOrganization dispatches a repository-list refresh for one
// organization.
// POST /api/tasks/github-organizations/{id}/refresh
func (h *Handler) refreshGitHubOrganization(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamID(r, "id")
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}
	o, err := h.accounts.GetGitHubOrganization(r.Context(), currentUser(r).ID, id)
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}

	job, err := h.queue.Enqueue(syncer.TaskReconcileAccount, syncer.ReconcileAccountPayload{Account: o.Ref()})
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, startedResponse(job,
		fmt.Sprintf("Repository refresh started for GitHub organization %s", o.Login)))
}

// startPeriodicRefresh dispatches the refresh-everything sweep. Admin only.
// POST /api/tasks/periodic-refresh
func (h *Handler) startPeriodicRefresh(w http.ResponseWriter, r *http.Request) {
	job, err := h.queue.Enqueue(syncer.TaskRefreshAll, nil)
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, startedResponse(job, "Periodic refresh started for all GitHub sources"))
}

// taskStatus reports one background job's state and progress.
// GET /api/tasks/status/{taskID}
func (h *Handler) taskStatus(w http.ResponseWriter, r *http.Request) {
	job, err := h.taskByID(r)
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}

	v := job.Snapshot()
	resp := map[string]any{
		"task_id":  v.ID,
		"status":   v.Status,
		"progress": v.Progress,
	}
	switch v.Status {
	case tasks.StatusStarted:
		resp["meta"] = map[string]any{"progress": v.Progress, "message": v.Message}
	case tasks.StatusSuccess:
		resp["result"] = v.Result
	case tasks.StatusFailure, tasks.StatusRevoked:
		resp["result"] = map[string]string{"error": v.Error}
	}
	respondWithJSON(w, http.StatusOK, resp)
}

// cancelTask revokes a pending or running job. Finished jobs cannot be
// cancelled; that is reported, not treated as an error.
// DELETE /api/tasks/cancel/{taskID}
func (h *Handler) cancelTask(w http.ResponseWriter, r *http.Request) {
	job, err := h.taskByID(r)
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}

	if h.queue.Revoke(job.ID) {
		respondWithJSON(w, http.StatusOK, map[string]string{
			"message": fmt.Sprintf("Task %s cancelled successfully", job.ID),
		})
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Task %s cannot be cancelled (status: %s)", job.ID, job.Status()),
	})
}

// repositorySyncStatus reports one repository's sync state.
// GET /api/tasks/repository/{id}/sync-status
func (h *Handler) repositorySyncStatus(w http.ResponseWriter, r *http.Request) {
	repo, err := h.ownedRepository(r)
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{
		"repository_id":  repo.ID,
		"name":           repo.Name,
		"sync_status":    repo.SyncStatus,
		"last_synced_at": repo.LastSyncedAt,
		"sync_error":     repo.SyncError,
	})
}

// forceRepositorySync resets a repository to pending, clears any previous
// error and dispatches an immediate sync.
// POST /api/tasks/repository/{id}/force-sync
func (h *Handler) forceRepositorySync(w http.ResponseWriter, r *http.Request) {
	repo, err := h.ownedRepository(r)
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}

	if _, err := h.store.UpdateRepositorySyncStatus(r.Context(), database.UpdateRepositorySyncStatusParams{
		ID:         repo.ID,
		SyncStatus: model.SyncPending,
		SyncError:  nil,
	}); err != nil {
		respondAppError(w, h.logger, err)
		return
	}

	job, err := h.queue.Enqueue(syncer.TaskSyncRepository, syncer.SyncRepositoryPayload{RepositoryID: repo.ID})
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, startedResponse(job,
		fmt.Sprintf("Force sync started for repository %s", repo.Name)))
}

// activeTasks lists jobs that have not finished yet, newest first.
// GET /api/tasks/active
func (h *Handler) activeTasks(w http.ResponseWriter, r *http.Request) {
	type activeTask struct {
		TaskID    string       `json:"task_id"`
		TaskName  string       `json:"task_name"`
		Status    tasks.Status `json:"status"`
		CreatedAt time.Time    `json:"created_at"`
		Progress  int          `json:"progress"`
	}

	active := make([]activeTask, 0)
	for _, v := range h.queue.List() {
		if v.Status.Terminal() {
			continue
		}
		active = append(active, activeTask{
			TaskID:    v.ID,
			TaskName:  v.Name,
			Status:    v.Status,
			CreatedAt: v.EnqueuedAt,
			Progress:  v.Progress,
		})
	}
	respondWithJSON(w, http.StatusOK, map[string]any{"active_tasks": active})
}

// taskStats summarizes the caller's repositories by sync status and counts
// their registered sources.
// GET /api/tasks/stats
func (h *Handler) taskStats(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	counts, err := h.store.CountRepositoriesBySyncStatus(r.Context(), user.ID)
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}
	users, err := h.accounts.ListGitHubUsers(r.Context(), user.ID)
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}
	orgs, err := h.accounts.ListGitHubOrganizations(r.Context(), user.ID)
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}

	var total int64
	for _, n := range counts {
		total += n
	}
	respondWithJSON(w, http.StatusOK, map[string]any{
		"repository_sync": map[string]int64{
			"total":     total,
			"completed": counts[model.SyncCompleted],
			"failed":    counts[model.SyncFailed],
			"pending":   counts[model.SyncPending] + counts[model.SyncSyncing],
		},
		"github_sources": map[string]int{
			"users":         len(users),
			"organizations": len(orgs),
		},
	})
}

// taskByID resolves the {taskID} route parameter to a tracked job.
func (h *Handler) taskByID(r *http.Request) (*tasks.Job, error) {
	id, err := uuid.Parse(chi.URLParam(r, "taskID"))
	if err != nil {
		return nil, apperror.Validation("task_id", "invalid task ID")
	}
	job, ok := h.queue.Get(id)
	if !ok {
		return nil, apperror.NotFound("task", id)
	}
	return job, nil
}

// ownedRepository resolves {id} to a repository owned by the caller.
// Foreign repositories report not found, not forbidden.
func (h *Handler) ownedRepository(r *http.Request) (model.Repository, error) {
	id, err := urlParamID(r, "id")
	if err != nil {
		return model.Repository{}, err
	}
	repo, err := h.store.GetRepository(r.Context(), id)
	if err != nil {
		return model.Repository{}, err
	}
	if repo.OwnerID != currentUser(r).ID {
		return model.Repository{}, apperror.NotFound("repository", id)
	}
	return repo, nil
}
