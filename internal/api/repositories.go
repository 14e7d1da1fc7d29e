// internal/api/repositories.go
package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/indrek8/ai-git-analyzer/internal/apperror"
	"github.com/indrek8/ai-git-analyzer/internal/database"
	"github.com/indrek8/ai-git-analyzer/internal/model"
)

type repositoryResponse struct {
	ID            int64            `json:"id"`
	Name          string           `json:"name"`
	FullName      string           `json:"full_name"`
	URL           string           `json:"url"`
	Provider      model.Provider   `json:"provider"`
	Description   *string          `json:"description"`
	DefaultBranch string           `json:"default_branch"`
	IsPrivate     bool             `json:"is_private"`
	IsActive      bool             `json:"is_active"`
	SyncStatus    model.SyncStatus `json:"sync_status"`
	SyncError     *string          `json:"sync_error,omitempty"`
	LastSyncedAt  *time.Time       `json:"last_synced_at"`
	CreatedAt     time.Time        `json:"created_at"`
}

func toRepositoryResponse(repo model.Repository) repositoryResponse {
	return repositoryResponse{
		ID:            repo.ID,
		Name:          repo.Name,
		FullName:      repo.FullName,
		URL:           repo.URL,
		Provider:      repo.Provider,
		Description:   repo.Description,
		DefaultBranch: repo.DefaultBranch,
		IsPrivate:     repo.IsPrivate,
		IsActive:      repo.IsActive,
		SyncStatus:    repo.SyncStatus,
		SyncError:     repo.SyncError,
		LastSyncedAt:  repo.LastSyncedAt,
		CreatedAt:     repo.CreatedAt,
	}
}

type commitResponse struct {
	ID           int64     `json:"id"`
	SHA          string    `json:"sha"`
	Message      string    `json:"message"`
	AuthorName   string    `json:"author_name"`
	AuthorEmail  string    `json:"author_email"`
	CommitDate   time.Time `json:"commit_date"`
	LinesAdded   int32     `json:"lines_added"`
	LinesRemoved int32     `json:"lines_removed"`
	FilesChanged int32     `json:"files_changed"`
	IsMerge      bool      `json:"is_merge"`
	Branch       *string   `json:"branch,omitempty"`
}

func toCommitResponse(c model.Commit) commitResponse {
	return commitResponse{
		ID:           c.ID,
		SHA:          c.SHA,
		Message:      c.Message,
		AuthorName:   c.AuthorName,
		AuthorEmail:  c.AuthorEmail,
		CommitDate:   c.CommitDate,
		LinesAdded:   c.LinesAdded,
		LinesRemoved: c.LinesRemoved,
		FilesChanged: c.FilesChanged,
		IsMerge:      c.IsMerge,
		Branch:       c.Branch,
	}
}

// listRepositories returns the caller's monitored repositories.
// GET /api/repositories
func (h *Handler) listRepositories(w http.ResponseWriter, r *http.Request) {
	repos, err := h.store.ListRepositoriesByOwner(r.Context(), currentUser(r).ID)
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}
	out := make([]repositoryResponse, 0, len(repos))
	for _, repo := range repos {
		out = append(out, toRepositoryResponse(repo))
	}
	respondWithJSON(w, http.StatusOK, out)
}

// getRepository returns one of the caller's repositories.
// GET /api/repositories/{id}
func (h *Handler) getRepository(w http.ResponseWriter, r *http.Request) {
	repo, err := h.ownedRepository(r)
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, toRepositoryResponse(repo))
}

// listRepositoryCommits pages through a repository's ingested commits,
// newest first.
// GET /api/repositories/{id}/commits?limit=N&offset=M
func (h *Handler) listRepositoryCommits(w http.ResponseWriter, r *http.Request) {
	repo, err := h.ownedRepository(r)
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}

	limit, offset, err := pagination(r, 50, 200)
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}

	commits, err := h.store.ListCommitsByRepository(r.Context(), database.ListCommitsByRepositoryParams{
		RepositoryID: repo.ID,
		Limit:        limit,
		Offset:       offset,
	})
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}
	total, err := h.store.CountCommitsByRepository(r.Context(), repo.ID)
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}

	out := make([]commitResponse, 0, len(commits))
	for _, c := range commits {
		out = append(out, toCommitResponse(c))
	}
	respondWithJSON(w, http.StatusOK, map[string]any{
		"commits": out,
		"total":   total,
		"limit":   limit,
		"offset":  offset,
	})
}

// pagination parses limit/offset query parameters with bounds.
func pagination(r *http.Request, defaultLimit, maxLimit int32) (limit, offset int32, err error) {
	limit = defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, perr := strconv.ParseInt(raw, 10, 32)
		if perr != nil || n <= 0 || n > int64(maxLimit) {
			return 0, 0, apperror.Validation("limit", fmt.Sprintf("'limit' must be an integer between 1 and %d", maxLimit))
		}
		limit = int32(n)
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		n, perr := strconv.ParseInt(raw, 10, 32)
		if perr != nil || n < 0 {
			return 0, 0, apperror.Validation("offset", "'offset' must be a non-negative integer")
		}
		offset = int32(n)
	}
	return limit, offset, nil
}
