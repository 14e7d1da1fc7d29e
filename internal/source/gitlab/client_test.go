// internal/source/gitlab/client_test.go
package gitlab

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/indrek8/ai-git-analyzer/internal/apperror"
)

// setupTestClient points a Client at an httptest server. The library
// appends /api/v4 to the base URL, and the server unescapes project path
// ids, so handlers match plain paths like /api/v4/projects/acme/tool.
func setupTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client, err := NewClient("", server.URL, logger)
	require.NoError(t, err)
	return client
}

func TestUserProfile_GitLab(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v4/users", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("username") {
		case "hubot":
			fmt.Fprint(w, `[{"id": 7, "username": "hubot", "name": "Hubot", "location": "Earth"}]`)
		default:
			fmt.Fprint(w, `[]`)
		}
	})
	client := setupTestClient(t, handler)

	p, err := client.UserProfile(context.Background(), "hubot")
	require.NoError(t, err)
	assert.Equal(t, int64(7), p.RemoteID)
	assert.Equal(t, "hubot", p.Login)
	require.NotNil(t, p.DisplayName)
	assert.Equal(t, "Hubot", *p.DisplayName)

	// The username lookup returns an empty list, not a 404.
	_, err = client.UserProfile(context.Background(), "ghost")
	assert.ErrorIs(t, err, apperror.ErrUpstreamNotFound)
}

func TestListUserRepositories_PaginatesByHeader(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v4/users/hubot/projects", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("page") {
		case "", "1":
			w.Header().Set("X-Next-Page", "2")
			fmt.Fprint(w, `[
				{"id": 1, "path": "alpha", "path_with_namespace": "hubot/alpha", "default_branch": "develop", "star_count": 3, "visibility": "private"},
				{"id": 2, "path": "beta", "path_with_namespace": "hubot/beta", "visibility": "public"}
			]`)
		case "2":
			fmt.Fprint(w, `[{"id": 3, "path": "gamma", "path_with_namespace": "hubot/gamma"}]`)
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

	assert.False(t, repos[1].IsPrivate)
	// A project without a default branch falls back to main.
	assert.Equal(t, "main", repos[2].DefaultBranch)
}

func TestCommitDetail_GitLab(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/v4/projects/acme/tool/repository/commits/abc123":
			fmt.Fprint(w, `{
				"id": "abc123",
				"message": "fix parser",
				"author_name": "Alice",
				"author_email": "alice@example.com",
				"committer_name": "Bob",
				"committer_email": "bob@example.com",
				"committed_date": "2024-05-01T10:00:00Z",
				"parent_ids": ["p1"],
				"stats": {"additions": 5, "deletions": 1}
			}`)
		case "/api/v4/projects/acme/tool/repository/commits/abc123/diff":
			fmt.Fprint(w, `[
				{"new_path": "new.go", "old_path": "new.go", "new_file": true},
				{"new_path": "gone.go", "old_path": "gone.go", "deleted_file": true},
				{"new_path": "main.go", "old_path": "main.go"}
			]`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})
	client := setupTestClient(t, handler)

	d, err := client.CommitDetail(context.Background(), "acme", "tool", "abc123")
	require.NoError(t, err)
	assert.Equal(t, "abc123", d.SHA)
	assert.Equal(t, "fix parser", d.Message)
	assert.Equal(t, "Alice", d.AuthorName)
	assert.Equal(t, "Bob", d.CommitterName)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), d.CommitDate)
	assert.Equal(t, int32(5), d.LinesAdded)
	assert.Equal(t, int32(1), d.LinesRemoved)
	assert.Equal(t, int32(3), d.FilesChanged)
	assert.Equal(t, []string{"new.go"}, d.FilesAdded)
	assert.Equal(t, []string{"gone.go"}, d.FilesDeleted)
	assert.Equal(t, []string{"main.go"}, d.FilesModified)
	assert.Equal(t, []string{"p1"}, d.ParentSHAs)
	assert.False(t, d.IsMerge)
}

func TestErrorMapping_GitLab(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message": "404 Project Not Found"}`)
	})
	client := setupTestClient(t, handler)

	_, err := client.RepositoryInfo(context.Background(), "acme", "missing")
	assert.ErrorIs(t, err, apperror.ErrUpstreamNotFound)
}
