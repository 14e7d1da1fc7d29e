// internal/api/oauth.go
package api

import (
	"net/http"
	"strings"

	"github.com/indrek8/ai-git-analyzer/internal/apperror"
	"github.com/indrek8/ai-git-analyzer/internal/model"
)

type remoteProfileResponse struct {
	ID        int64   `json:"id"`
	Login     string  `json:"login"`
	Name      *string `json:"name"`
	Email     *string `json:"email"`
	AvatarURL *string `json:"avatar_url"`
}

func toRemoteProfileResponse(p model.RemoteProfile) remoteProfileResponse {
	return remoteProfileResponse{
		ID:        p.RemoteID,
		Login:     p.Login,
		Name:      p.DisplayName,
		Email:     p.Email,
		AvatarURL: p.AvatarURL,
	}
}

// oauthAuthorize starts the personal OAuth flow. The caller stores the
// state and compares it when GitHub redirects back.
// GET /api/github/oauth/authorize
func (h *Handler) oauthAuthorize(w http.ResponseWriter, r *http.Request) {
	if !h.oauth.Configured() {
		respondWithError(w, http.StatusInternalServerError, "GitHub OAuth not configured")
		return
	}
	authURL, state, err := h.oauth.AuthorizeURL()
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{
		"auth_url": authURL,
		"state":    state,
	})
}

// oauthCallback finishes the personal flow: exchanges the code, stores the
// token on the caller's account and echoes the granted scopes.
// GET /api/github/oauth/callback?code=...&state=...
func (h *Handler) oauthCallback(w http.ResponseWriter, r *http.Request) {
	if !h.oauth.Configured() {
		respondWithError(w, http.StatusInternalServerError, "GitHub OAuth not configured")
		return
	}
	code := r.URL.Query().Get("code")
	if code == "" {
		respondAppError(w, h.logger, apperror.Validation("code", "code query parameter is required"))
		return
	}

	token, scopes, err := h.oauth.Exchange(r.Context(), code)
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}

	client, err := h.sources.ClientFor(model.ProviderGitHub, token)
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}
	profile, err := client.AuthenticatedUser(r.Context())
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}

	if _, err := h.accounts.StoreUserToken(r.Context(), currentUser(r).ID, token); err != nil {
		respondAppError(w, h.logger, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{
		"access_token": token,
		"user":         toRemoteProfileResponse(profile),
		"scopes":       splitScopes(scopes),
	})
}

// connectOrganizations starts the organization OAuth flow, which asks for
// admin:org on top of the personal scopes.
// POST /api/github/organizations/connect
func (h *Handler) connectOrganizations(w http.ResponseWriter, r *http.Request) {
	if !h.oauth.Configured() {
		respondWithError(w, http.StatusInternalServerError, "GitHub OAuth not configured")
		return
	}
	authURL, state, err := h.oauth.AuthorizeURL("admin:org")
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{
		"auth_url": authURL,
		"state":    state,
		"type":     "organization",
	})
}

// organizationOAuthCallback finishes the organization flow: exchanges the
// code, registers every organization the token can read and stores the
// token on each.
// POST /api/github/organizations/oauth-callback?code=...&state=...
func (h *Handler) organizationOAuthCallback(w http.ResponseWriter, r *http.Request) {
	if !h.oauth.Configured() {
		respondWithError(w, http.StatusInternalServerError, "GitHub OAuth not configured")
		return
	}
	code := r.URL.Query().Get("code")
	if code == "" {
		respondAppError(w, h.logger, apperror.Validation("code", "code query parameter is required"))
		return
	}

	token, scopes, err := h.oauth.Exchange(r.Context(), code)
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}

	orgs, err := h.accounts.ConnectOrganizations(r.Context(), currentUser(r).ID, token, scopes)
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}

	summaries := make([]map[string]any, 0, len(orgs))
	for _, o := range orgs {
		summaries = append(summaries, map[string]any{
			"id":           o.ID,
			"login":        o.Login,
			"display_name": o.DisplayName,
		})
	}
	respondWithJSON(w, http.StatusOK, map[string]any{
		"message":       "Successfully connected organizations",
		"organizations": summaries,
	})
}

func splitScopes(scopes string) []string {
	if scopes == "" {
		return []string{}
	}
	return strings.Split(scopes, ",")
}
