// internal/api/auth.go
package api

import (
	"net/http"
	"time"

	"github.com/indrek8/ai-git-analyzer/internal/model"
)

type registerRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	User        userResponse `json:"user"`
}

// userResponse never carries the stored GitHub token, only whether one
// exists so the settings page can reflect it.
type userResponse struct {
	ID             int64     `json:"id"`
	Email          string    `json:"email"`
	Username       string    `json:"username"`
	IsActive       bool      `json:"is_active"`
	IsAdmin        bool      `json:"is_admin"`
	HasGitHubToken bool      `json:"has_github_token"`
	CreatedAt      time.Time `json:"created_at"`
}

func toUserResponse(u model.User) userResponse {
	return userResponse{
		ID:             u.ID,
		Email:          u.Email,
		Username:       u.Username,
		IsActive:       u.IsActive,
		IsAdmin:        u.IsAdmin,
		HasGitHubToken: u.GitHubToken != nil && *u.GitHubToken != "",
		CreatedAt:      u.CreatedAt,
	}
}

// register creates a local account.
// POST /api/auth/register
func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondAppError(w, h.logger, err)
		return
	}

	u, err := h.auth.Register(r.Context(), req.Email, req.Username, req.Password)
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, toUserResponse(u))
}

// login verifies credentials and issues a bearer token.
// POST /api/auth/login
func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondAppError(w, h.logger, err)
		return
	}

	u, token, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, loginResponse{
		AccessToken: token,
		TokenType:   "bearer",
		User:        toUserResponse(u),
	})
}

// me returns the authenticated user.
// GET /api/auth/me
func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, toUserResponse(currentUser(r)))
}

type saveTokenRequest struct {
	Token string `json:"token"`
}

// saveGitHubToken stores the caller's personal access token; an empty
// token clears it.
// PUT /api/auth/github-token
func (h *Handler) saveGitHubToken(w http.ResponseWriter, r *http.Request) {
	var req saveTokenRequest
	if err := decodeJSON(r, &req); err != nil {
		respondAppError(w, h.logger, err)
		return
	}

	u, err := h.accounts.StoreUserToken(r.Context(), currentUser(r).ID, req.Token)
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, toUserResponse(u))
}
