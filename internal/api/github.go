// internal/api/github.go
package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/indrek8/ai-git-analyzer/internal/apperror"
	"github.com/indrek8/ai-git-analyzer/internal/model"
	"github.com/indrek8/ai-git-analyzer/internal/syncer"
)

type githubUserResponse struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	DisplayName  *string    `json:"display_name"`
	AvatarURL    *string    `json:"avatar_url"`
	PublicRepos  int32      `json:"public_repos"`
	IsActive     bool       `json:"is_active"`
	LastSyncedAt *time.Time `json:"last_synced_at"`
}

func toGitHubUserResponse(u model.GitHubUser) githubUserResponse {
	return githubUserResponse{
		ID:           u.ID,
		Username:     u.Username,
		DisplayName:  u.DisplayName,
		AvatarURL:    u.AvatarURL,
		PublicRepos:  u.PublicRepos,
		IsActive:     u.IsActive,
		LastSyncedAt: u.LastSyncedAt,
	}
}

type githubOrgResponse struct {
	ID           int64      `json:"id"`
	Login        string     `json:"login"`
	DisplayName  *string    `json:"display_name"`
	AvatarURL    *string    `json:"avatar_url"`
	PublicRepos  int32      `json:"public_repos"`
	IsActive     bool       `json:"is_active"`
	LastSyncedAt *time.Time `json:"last_synced_at"`
}

func toGitHubOrgResponse(o model.GitHubOrganization) githubOrgResponse {
	return githubOrgResponse{
		ID:           o.ID,
		Login:        o.Login,
		DisplayName:  o.DisplayName,
		AvatarURL:    o.AvatarURL,
		PublicRepos:  o.PublicRepos,
		IsActive:     o.IsActive,
		LastSyncedAt: o.LastSyncedAt,
	}
}

type selectionResponse struct {
	ID              int64                 `json:"id"`
	Name            string                `json:"name"`
	FullName        string                `json:"full_name"`
	Description     *string               `json:"description"`
	Language        *string               `json:"language"`
	StargazersCount int32                 `json:"stargazers_count"`
	Status          model.SelectionStatus `json:"status"`
	IsPrivate       bool                  `json:"is_private"`
	IsFork          bool                  `json:"is_fork"`
	SelectedAt      *time.Time            `json:"selected_at"`
	RepositoryID    *int64                `json:"repository_id"`
}

func toSelectionResponse(s model.RepositorySelection) selectionResponse {
	return selectionResponse{
		ID:              s.ID,
		Name:            s.Name,
		FullName:        s.FullName,
		Description:     s.Description,
		Language:        s.Language,
		StargazersCount: s.StargazersCount,
		Status:          s.Status,
		IsPrivate:       s.IsPrivate,
		IsFork:          s.IsFork,
		SelectedAt:      s.SelectedAt,
		RepositoryID:    s.RepositoryID,
	}
}

type addGitHubUserRequest struct {
	Username string `json:"username"`
}

// listGitHubUsers returns the GitHub users the caller monitors.
// GET /api/github/users
func (h *Handler) listGitHubUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.accounts.ListGitHubUsers(r.Context(), currentUser(r).ID)
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}
	out := make([]githubUserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toGitHubUserResponse(u))
	}
	respondWithJSON(w, http.StatusOK, out)
}

// addGitHubUser registers a GitHub user for monitoring.
// POST /api/github/users
func (h *Handler) addGitHubUser(w http.ResponseWriter, r *http.Request) {
	var req addGitHubUserRequest
	if err := decodeJSON(r, &req); err != nil {
		respondAppError(w, h.logger, err)
		return
	}

	u, err := h.accounts.AddGitHubUser(r.Context(), currentUser(r).ID, req.Username)
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, toGitHubUserResponse(u))
}

// removeGitHubUser stops monitoring a GitHub user.
// DELETE /api/github/users/{id}
func (h *Handler) removeGitHubUser(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamID(r, "id")
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}
	if err := h.accounts.RemoveGitHubUser(r.Context(), currentUser(r).ID, id); err != nil {
		respondAppError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "GitHub user removed successfully"})
}

// listGitHubOrganizations returns the organizations the caller monitors.
// GET /api/github/organizations
func (h *Handler) listGitHubOrganizations(w http.ResponseWriter, r *http.Request) {
	orgs, err := h.accounts.ListGitHubOrganizations(r.Context(), currentUser(r).ID)
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}
	out := make([]githubOrgResponse, 0, len(orgs))
	for _, o := range orgs {
		out = append(out, toGitHubOrgResponse(o))
	}
	respondWithJSON(w, http.StatusOK, out)
}

// removeGitHubOrganization stops monitoring an organization.
// DELETE /api/github/organizations/{id}
func (h *Handler) removeGitHubOrganization(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamID(r, "id")
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}
	if err := h.accounts.RemoveGitHubOrganization(r.Context(), currentUser(r).ID, id); err != nil {
		respondAppError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "GitHub organization removed successfully"})
}

// listAccountRepositories returns an account's repository selections.
// With ?refresh=true the remote listing is reconciled first, so new
// repositories show up as pending decisions. ?status= filters by decision.
// GET /api/github/users/{id}/repositories
// GET /api/github/organizations/{id}/repositories
func (h *Handler) listAccountRepositories(kind model.AccountKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := urlParamID(r, "id")
		if err != nil {
			respondAppError(w, h.logger, err)
			return
		}
		user := currentUser(r)
		ref := model.AccountRef{Kind: kind, ID: id}

		if err := h.checkAccountOwnership(r, user.ID, ref); err != nil {
			respondAppError(w, h.logger, err)
			return
		}

		if refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh")); refresh {
			if _, err := h.syncer.ReconcileAccount(r.Context(), ref, nil); err != nil {
				respondAppError(w, h.logger, err)
				return
			}
		}

		var status *model.SelectionStatus
		if raw := r.URL.Query().Get("status"); raw != "" {
			parsed, err := model.ParseSelectionStatus(raw)
			if err != nil {
				respondAppError(w, h.logger, apperror.Validation("status", err.Error()))
				return
			}
			status = &parsed
		}

		sels, err := h.accounts.ListSelections(r.Context(), user.ID, ref, status)
		if err != nil {
			respondAppError(w, h.logger, err)
			return
		}
		out := make([]selectionResponse, 0, len(sels))
		for _, s := range sels {
			out = append(out, toSelectionResponse(s))
		}
		respondWithJSON(w, http.StatusOK, out)
	}
}

type bulkSelectionUpdate struct {
	RepositoryIDs []int64 `json:"repository_ids"`
	Status        string  `json:"status"`
}

// bulkUpdateSelections ticks or unticks repositories in one call.
// POST /api/github/users/{id}/repositories/bulk-update
// POST /api/github/organizations/{id}/repositories/bulk-update
func (h *Handler) bulkUpdateSelections(kind model.AccountKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := urlParamID(r, "id")
		if err != nil {
			respondAppError(w, h.logger, err)
			return
		}
		var req bulkSelectionUpdate
		if err := decodeJSON(r, &req); err != nil {
			respondAppError(w, h.logger, err)
			return
		}

		ref := model.AccountRef{Kind: kind, ID: id}
		updated, err := h.accounts.UpdateSelections(r.Context(), currentUser(r).ID, ref,
			req.RepositoryIDs, model.SelectionStatus(req.Status))
		if err != nil {
			respondAppError(w, h.logger, err)
			return
		}
		respondWithJSON(w, http.StatusOK, map[string]any{
			"message":       fmt.Sprintf("Updated %d repository selections", updated),
			"updated_count": updated,
		})
	}
}

// syncSelectedRepositories promotes the account's chosen selections into
// monitored repositories and enqueues their first commit sync.
// POST /api/github/users/{id}/repositories/sync-selected
// POST /api/github/organizations/{id}/repositories/sync-selected
func (h *Handler) syncSelectedRepositories(kind model.AccountKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := urlParamID(r, "id")
		if err != nil {
			respondAppError(w, h.logger, err)
			return
		}
		user := currentUser(r)
		ref := model.AccountRef{Kind: kind, ID: id}

		if err := h.checkAccountOwnership(r, user.ID, ref); err != nil {
			respondAppError(w, h.logger, err)
			return
		}

		result, err := h.syncer.PromoteSelections(r.Context(), ref, true, nil)
		if err != nil {
			respondAppError(w, h.logger, err)
			return
		}
		respondWithJSON(w, http.StatusOK, map[string]any{
			"message": fmt.Sprintf("Synced %d repositories for monitoring", result.ReposCreated),
			"result":  result,
		})
	}
}

// cleanupDeselected triggers the deselected-repository cleanup task.
// POST /api/github/cleanup/deselected
func (h *Handler) cleanupDeselected(w http.ResponseWriter, r *http.Request) {
	job, err := h.queue.Enqueue(syncer.TaskCleanupDeselected, nil)
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{
		"message": "Cleanup task started",
		"task_id": job.ID.String(),
	})
}

// cleanupOrphaned triggers the orphaned-data cleanup task. Admin only.
// POST /api/github/cleanup/orphaned
func (h *Handler) cleanupOrphaned(w http.ResponseWriter, r *http.Request) {
	job, err := h.queue.Enqueue(syncer.TaskCleanupOrphaned, nil)
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{
		"message": "Orphaned data cleanup task started",
		"task_id": job.ID.String(),
	})
}

// checkAccountOwnership verifies the account exists and belongs to the
// caller before a handler touches it through the syncer.
func (h *Handler) checkAccountOwnership(r *http.Request, ownerID int64, ref model.AccountRef) error {
	switch ref.Kind {
	case model.AccountKindUser:
		_, err := h.accounts.GetGitHubUser(r.Context(), ownerID, ref.ID)
		return err
	case model.AccountKindOrg:
		_, err := h.accounts.GetGitHubOrganization(r.Context(), ownerID, ref.ID)
		return err
	}
	return apperror.Validation("kind", "unknown account kind")
}
