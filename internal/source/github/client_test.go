// internal/source/github/client_test.go
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-github/v62/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/indrek8/ai-git-analyzer/internal/apperror"
)

// setupTestClient points a Client at an httptest server. go-github prefixes
// enterprise base URLs with /api/v3, so handlers see paths under that
// prefix.
func setupTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := NewClient("", logger)

	gh, err := github.NewClient(server.Client()).WithEnterpriseURLs(server.URL, server.URL)
	require.NoError(t, err)
	client.gh = gh
	return client
}

func TestUserProfile(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/users/hubot", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id": 501, "login": "hubot", "name": "Hubot", "public_repos": 2, "followers": 9}`)
	})
	client := setupTestClient(t, handler)

	p, err := client.UserProfile(context.Background(), "hubot")
	require.NoError(t, err)
	assert.Equal(t, int64(501), p.RemoteID)
	assert.Equal(t, "hubot", p.Login)
	require.NotNil(t, p.DisplayName)
	assert.Equal(t, "Hubot", *p.DisplayName)
	assert.Equal(t, int32(2), p.PublicRepos)
	assert.Equal(t, int32(9), p.Followers)
}

func TestListUserRepositories_Paginates(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/users/hubot/repos", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("page") {
		case "", "1":
			w.Header().Set("Link", `<https://git.example.test/api/v3/users/hubot/repos?page=2>; rel="next"`)
			fmt.Fprint(w, `[
				{"id": 1, "name": "alpha", "full_name": "hubot/alpha", "default_branch": "develop", "stargazers_count": 3, "private": true},
				{"id": 2, "name": "beta", "full_name": "hubot/beta"}
			]`)
		case "2":
			fmt.Fprint(w, `[{"id": 3, "name": "gamma", "full_name": "hubot/gamma"}]`)
		}
	})
	client := setupTestClient(t, handler)

	repos, err := client.ListUserRepositories(context.Background(), "hubot")
	require.NoError(t, err)
	require.Len(t, repos, 3)

	assert.Equal(t, int64(1), repos[0].RemoteID)
	assert.Equal(t, "hubot/alpha", repos[0].FullName)
	assert.Equal(t, "develop", repos[0].DefaultBranch)
	assert.Equal(t, int32(3), repos[0].StargazersCount)
	assert.True(t, repos[0].IsPrivate)

	// A repository without a default branch falls back to main.
	assert.Equal(t, "main", repos[1].DefaultBranch)
	assert.Equal(t, "hubot/gamma", repos[2].FullName)
}

func TestListCommits_CapsListing(t *testing.T) {
	var pages atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := pages.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Link", fmt.Sprintf(`<https://git.example.test/api/v3/repos/hubot/alpha/commits?page=%d>; rel="next"`, page+1))
		commits := make([]map[string]any, perPage)
		for i := range commits {
			commits[i] = map[string]any{"sha": fmt.Sprintf("sha-%d-%d", page, i)}
		}
		_ = json.NewEncoder(w).Encode(commits)
	})
	client := setupTestClient(t, handler)

	refs, err := client.ListCommits(context.Background(), "hubot", "alpha", nil)
	require.NoError(t, err)
	assert.Len(t, refs, maxItems)
	assert.Equal(t, int32(maxItems/perPage), pages.Load(), "listing must stop at the cap, not follow links forever")
}

func TestListCommits_SinceAndFallbackIdentity(t *testing.T) {
	var gotSince atomic.Value
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSince.Store(r.URL.Query().Get("since"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[{"sha": "noauthor"}]`)
	})
	client := setupTestClient(t, handler)

	since := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	refs, err := client.ListCommits(context.Background(), "hubot", "alpha", &since)
	require.NoError(t, err)
	assert.Equal(t, "2024-05-01T10:00:00Z", gotSince.Load())

	// Commits without author identity still get stable developer keys.
	require.Len(t, refs, 1)
	assert.Equal(t, "Unknown", refs[0].AuthorName)
	assert.Equal(t, "unknown@example.com", refs[0].AuthorEmail)
}

func TestCommitDetail(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/repos/hubot/alpha/commits/abc123", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"sha": "abc123",
			"commit": {
				"message": "merge feature",
				"author": {"name": "Alice", "email": "alice@example.com", "date": "2024-05-01T10:00:00Z"},
				"committer": {"name": "Bob", "email": "bob@example.com"}
			},
			"stats": {"additions": 10, "deletions": 2},
			"files": [
				{"filename": "new.go", "status": "added"},
				{"filename": "old.go", "status": "removed"},
				{"filename": "main.go", "status": "modified"},
				{"filename": "moved.go", "status": "renamed"}
			],
			"parents": [{"sha": "p1"}, {"sha": "p2"}]
		}`)
	})
	client := setupTestClient(t, handler)

	d, err := client.CommitDetail(context.Background(), "hubot", "alpha", "abc123")
	require.NoError(t, err)
	assert.Equal(t, "abc123", d.SHA)
	assert.Equal(t, "merge feature", d.Message)
	assert.Equal(t, "Alice", d.AuthorName)
	assert.Equal(t, "alice@example.com", d.AuthorEmail)
	assert.Equal(t, "Bob", d.CommitterName)
	assert.Equal(t, "bob@example.com", d.CommitterEmail)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), d.CommitDate)
	assert.Equal(t, int32(10), d.LinesAdded)
	assert.Equal(t, int32(2), d.LinesRemoved)
	assert.Equal(t, int32(4), d.FilesChanged)
	assert.Equal(t, []string{"new.go"}, d.FilesAdded)
	assert.Equal(t, []string{"old.go"}, d.FilesDeleted)
	assert.Equal(t, []string{"main.go", "moved.go"}, d.FilesModified, "renamed files count as modified")
	assert.Equal(t, []string{"p1", "p2"}, d.ParentSHAs)
	assert.True(t, d.IsMerge)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusNotFound, apperror.ErrUpstreamNotFound},
		{http.StatusForbidden, apperror.ErrUpstreamRateLimited},
		{http.StatusTooManyRequests, apperror.ErrUpstreamRateLimited},
		{http.StatusInternalServerError, apperror.ErrUpstreamUnavailable},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, `{"message": "nope"}`)
			})
			client := setupTestClient(t, handler)

			_, err := client.UserProfile(context.Background(), "ghost")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
