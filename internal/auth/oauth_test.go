// internal/auth/oauth_test.go
package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/indrek8/ai-git-analyzer/internal/apperror"
)

func TestGitHubOAuth_Configured(t *testing.T) {
	assert.True(t, NewGitHubOAuth("id", "secret", "", nil).Configured())
	assert.False(t, NewGitHubOAuth("", "", "", nil).Configured())
	assert.False(t, NewGitHubOAuth("id", "", "", nil).Configured())
}

func TestGitHubOAuth_AuthorizeURL(t *testing.T) {
	oauth := NewGitHubOAuth("client-id", "client-secret",
		"http://localhost:8000/api/auth/github/callback", []string{"repo", "read:user"})

	authURL, state, err := oauth.AuthorizeURL()
	require.NoError(t, err)
	require.NotEmpty(t, state)

	parsed, err := url.Parse(authURL)
	require.NoError(t, err)
	query := parsed.Query()
	assert.Equal(t, "client-id", query.Get("client_id"))
	assert.Equal(t, state, query.Get("state"))
	assert.Equal(t, "repo read:user", query.Get("scope"))
	assert.Equal(t, "false", query.Get("allow_signup"))
	assert.Equal(t, "http://localhost:8000/api/auth/github/callback", query.Get("redirect_uri"))

	t.Run("extra scopes extend the configured set", func(t *testing.T) {
		orgURL, _, err := oauth.AuthorizeURL("admin:org")
		require.NoError(t, err)
		parsed, err := url.Parse(orgURL)
		require.NoError(t, err)
		assert.Equal(t, "repo read:user admin:org", parsed.Query().Get("scope"))

		// The base scope set must not accumulate extras across calls.
		baseURL, _, err := oauth.AuthorizeURL()
		require.NoError(t, err)
		parsed, err = url.Parse(baseURL)
		require.NoError(t, err)
		assert.Equal(t, "repo read:user", parsed.Query().Get("scope"))
	})

	t.Run("state is fresh per request", func(t *testing.T) {
		_, first, err := oauth.AuthorizeURL()
		require.NoError(t, err)
		_, second, err := oauth.AuthorizeURL()
		require.NoError(t, err)
		assert.NotEqual(t, first, second)
	})
}

func TestGitHubOAuth_Exchange(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		assert.Equal(t, "the-code", r.FormValue("code"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "gho_exchange",
			"token_type":   "bearer",
			"scope":        "repo,read:user",
		})
	}))
	t.Cleanup(server.Close)

	oauth := NewGitHubOAuth("client-id", "client-secret", "http://localhost/cb", []string{"repo"})
	oauth.config.Endpoint = oauth2.Endpoint{
		AuthURL:  server.URL + "/authorize",
		TokenURL: server.URL + "/token",
	}

	token, scopes, err := oauth.Exchange(context.Background(), "the-code")
	require.NoError(t, err)
	assert.Equal(t, "gho_exchange", token)
	assert.Equal(t, "repo,read:user", scopes)
}

func TestGitHubOAuth_ExchangeRejectedCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad_verification_code", http.StatusBadRequest)
	}))
	t.Cleanup(server.Close)

	oauth := NewGitHubOAuth("client-id", "client-secret", "http://localhost/cb", nil)
	oauth.config.Endpoint = oauth2.Endpoint{TokenURL: server.URL + "/token"}

	_, _, err := oauth.Exchange(context.Background(), "bad-code")
	assert.ErrorIs(t, err, apperror.ErrValidation)
}
