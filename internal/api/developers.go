// internal/api/developers.go
package api

import (
	"net/http"
	"time"

	"github.com/indrek8/ai-git-analyzer/internal/model"
)

type developerResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	GitName   *string   `json:"git_name"`
	GitEmail  *string   `json:"git_email"`
	IsMerged  bool      `json:"is_merged"`
	CreatedAt time.Time `json:"created_at"`
}

func toDeveloperResponse(d model.Developer) developerResponse {
	return developerResponse{
		ID:        d.ID,
		Name:      d.Name,
		Email:     d.Email,
		GitName:   d.GitName,
		GitEmail:  d.GitEmail,
		IsMerged:  d.IsMerged,
		CreatedAt: d.CreatedAt,
	}
}

// listDevelopers returns the commit-author identities resolved during
// ingestion.
// GET /api/developers
func (h *Handler) listDevelopers(w http.ResponseWriter, r *http.Request) {
	devs, err := h.store.ListDevelopers(r.Context())
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}
	out := make([]developerResponse, 0, len(devs))
	for _, d := range devs {
		out = append(out, toDeveloperResponse(d))
	}
	respondWithJSON(w, http.StatusOK, map[string]any{"developers": out})
}
