//go:build integration

// cmd/service/integration_test.go
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/indrek8/ai-git-analyzer/internal/accounts"
	"github.com/indrek8/ai-git-analyzer/internal/api"
	"github.com/indrek8/ai-git-analyzer/internal/auth"
	"github.com/indrek8/ai-git-analyzer/internal/database"
	"github.com/indrek8/ai-git-analyzer/internal/model"
	"github.com/indrek8/ai-git-analyzer/internal/source"
	"github.com/indrek8/ai-git-analyzer/internal/syncer"
	"github.com/indrek8/ai-git-analyzer/internal/tasks"
)

func setupTestDatabase(ctx context.Context, t *testing.T) (*pgxpool.Pool, func()) {
	// Start a postgres container
	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test-db"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second)),
	)
	require.NoError(t, err)

	// Get the connection string
	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	// Run migrations
	m, err := migrate.New("file://../../migrations", connStr)
	require.NoError(t, err)
	err = m.Up()
	require.NoError(t, err)

	// Create a connection pool
	dbpool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	// Teardown function to be called by the test
	teardown := func() {
		dbpool.Close()
		err := pgContainer.Terminate(ctx)
		require.NoError(t, err)
	}

	return dbpool, teardown
}

// stubFactory hands every provider the same canned client so the test never
// talks to a real code host.
type stubFactory struct{ client source.Client }

func (f *stubFactory) ClientFor(model.Provider, string) (source.Client, error) {
	return f.client, nil
}

type stubClient struct{}

func strp(s string) *string { return &s }

func (c *stubClient) UserProfile(_ context.Context, login string) (model.RemoteProfile, error) {
	return model.RemoteProfile{RemoteID: 501, Login: login, DisplayName: strp("Hubot"), PublicRepos: 2}, nil
}

func (c *stubClient) OrgProfile(_ context.Context, login string) (model.RemoteProfile, error) {
	return model.RemoteProfile{RemoteID: 901, Login: login, DisplayName: strp("Hubot Org")}, nil
}

func (c *stubClient) AuthenticatedUser(context.Context) (model.RemoteProfile, error) {
	return model.RemoteProfile{RemoteID: 501, Login: "hubot"}, nil
}

func (c *stubClient) ListAuthenticatedOrgs(context.Context) ([]model.RemoteProfile, error) {
	return nil, nil
}

func (c *stubClient) remoteRepos() []model.RemoteRepository {
	return []model.RemoteRepository{
		{
			RemoteID:      1001,
			Name:          "alpha",
			FullName:      "hubot/alpha",
			URL:           "https://github.com/hubot/alpha",
			CloneURL:      "https://github.com/hubot/alpha.git",
			DefaultBranch: "main",
			Language:      strp("Go"),
		},
		{
			RemoteID:      1002,
			Name:          "beta",
			FullName:      "hubot/beta",
			URL:           "https://github.com/hubot/beta",
			CloneURL:      "https://github.com/hubot/beta.git",
			DefaultBranch: "main",
		},
	}
}

func (c *stubClient) RepositoryInfo(_ context.Context, _, name string) (model.RemoteRepository, error) {
	for _, r := range c.remoteRepos() {
		if r.Name == name {
			return r, nil
		}
	}
	return model.RemoteRepository{}, nil
}

func (c *stubClient) ListUserRepositories(context.Context, string) ([]model.RemoteRepository, error) {
	return c.remoteRepos(), nil
}

func (c *stubClient) ListOrgRepositories(context.Context, string) ([]model.RemoteRepository, error) {
	return c.remoteRepos(), nil
}

func (c *stubClient) ListCommits(context.Context, string, string, *time.Time) ([]model.CommitRef, error) {
	return []model.CommitRef{
		{SHA: "aaa111", Message: "feat: new feature", AuthorName: "tester", AuthorEmail: "t@t.com",
			CommitDate: time.Date(2024, 5, 2, 12, 0, 0, 0, time.UTC)},
		{SHA: "bbb222", Message: "fix: a bug", AuthorName: "tester", AuthorEmail: "t@t.com",
			CommitDate: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)},
	}, nil
}

func (c *stubClient) CommitDetail(_ context.Context, _, _, sha string) (model.CommitDetail, error) {
	detail := model.CommitDetail{
		SHA:          sha,
		AuthorName:   "tester",
		AuthorEmail:  "t@t.com",
		LinesAdded:   10,
		LinesRemoved: 2,
		FilesChanged: 1,
		FilesAdded:   []string{"main.go"},
		ParentSHAs:   []string{"000000"},
	}
	switch sha {
	case "aaa111":
		detail.Message = "feat: new feature"
		detail.CommitDate = time.Date(2024, 5, 2, 12, 0, 0, 0, time.UTC)
	case "bbb222":
		detail.Message = "fix: a bug"
		detail.CommitDate = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	}
	return detail, nil
}

// doJSON fires one API request and decodes the response body into out when
// out is non-nil.
func doJSON(t *testing.T, method, url, token string, body, out any) int {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if out != nil {
		require.NoError(t, json.Unmarshal(raw, out), "body: %s", raw)
	}
	return resp.StatusCode
}

// getJSON is the polling variant of doJSON. It never fails the test, so it
// is safe inside Eventually conditions, which run off the test goroutine.
func getJSON(url, token string, out any) int {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return 0
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0
	}
	if out != nil && json.Unmarshal(raw, out) != nil {
		return 0
	}
	return resp.StatusCode
}

func TestAPI_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbpool, teardown := setupTestDatabase(ctx, t)
	defer teardown()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	store := database.NewStore(dbpool)
	sources := &stubFactory{client: &stubClient{}}

	queue := tasks.NewQueue(2, 32, logger)
	core := syncer.New(store, sources, queue, logger)
	core.RegisterTasks(queue)
	go queue.Start(ctx)

	tokenSvc := auth.NewTokenService("integration-test-secret", time.Hour)
	passwordSvc := auth.NewPasswordServiceWithCost(4) // fast hashes for tests
	authSvc := auth.NewService(store, tokenSvc, passwordSvc, logger)
	accountsSvc := accounts.New(store, sources, queue, logger)

	router := api.NewRouter(api.Deps{
		Store:    store,
		Accounts: accountsSvc,
		Auth:     authSvc,
		Syncer:   core,
		Queue:    queue,
		Sources:  sources,
		OAuth:    auth.NewGitHubOAuth("", "", "", nil),
		AuthMW:   auth.NewMiddleware(tokenSvc, store),
		Logger:   logger,
	})
	server := httptest.NewServer(router)
	defer server.Close()

	// Register and log in
	status := doJSON(t, http.MethodPost, server.URL+"/api/auth/register", "",
		map[string]string{"email": "dev@example.com", "username": "dev", "password": "hunter2hunter2"}, nil)
	require.Equal(t, http.StatusCreated, status)

	var login struct {
		AccessToken string `json:"access_token"`
	}
	status = doJSON(t, http.MethodPost, server.URL+"/api/auth/login", "",
		map[string]string{"username": "dev", "password": "hunter2hunter2"}, &login)
	require.Equal(t, http.StatusOK, status)
	require.NotEmpty(t, login.AccessToken)
	token := login.AccessToken

	// Track a GitHub user
	var ghUser struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
	}
	status = doJSON(t, http.MethodPost, server.URL+"/api/github/users", token,
		map[string]string{"username": "hubot"}, &ghUser)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "hubot", ghUser.Username)

	// Inline refresh discovers the stub's two repositories as candidates
	var selections []struct {
		ID       int64  `json:"id"`
		FullName string `json:"full_name"`
		Status   string `json:"status"`
	}
	userPath := server.URL + "/api/github/users/" + itoa(ghUser.ID)
	status = doJSON(t, http.MethodGet, userPath+"/repositories?refresh=true", token, nil, &selections)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, selections, 2)
	assert.Equal(t, "pending", selections[0].Status)

	// Select both and promote them to monitored repositories
	ids := []int64{selections[0].ID, selections[1].ID}
	var updated struct {
		UpdatedCount int `json:"updated_count"`
	}
	status = doJSON(t, http.MethodPost, userPath+"/repositories/bulk-update", token,
		map[string]any{"repository_ids": ids, "status": "selected"}, &updated)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 2, updated.UpdatedCount)

	status = doJSON(t, http.MethodPost, userPath+"/repositories/sync-selected", token, nil, nil)
	require.Equal(t, http.StatusOK, status)

	// The queue workers ingest commit history in the background
	var repos []struct {
		ID         int64  `json:"id"`
		FullName   string `json:"full_name"`
		SyncStatus string `json:"sync_status"`
		IsActive   bool   `json:"is_active"`
	}
	require.Eventually(t, func() bool {
		repos = repos[:0]
		if getJSON(server.URL+"/api/repositories", token, &repos) != http.StatusOK {
			return false
		}
		if len(repos) != 2 {
			return false
		}
		for _, r := range repos {
			if r.SyncStatus != string(model.SyncCompleted) {
				return false
			}
		}
		return true
	}, 15*time.Second, 100*time.Millisecond, "repositories never finished syncing")

	// Commits are stored newest first
	var page struct {
		Total   int64 `json:"total"`
		Commits []struct {
			SHA     string `json:"sha"`
			Message string `json:"message"`
		} `json:"commits"`
	}
	status = doJSON(t, http.MethodGet, server.URL+"/api/repositories/"+itoa(repos[0].ID)+"/commits", token, nil, &page)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, int64(2), page.Total)
	require.Len(t, page.Commits, 2)
	assert.Equal(t, "aaa111", page.Commits[0].SHA)
	assert.Equal(t, "fix: a bug", page.Commits[1].Message)

	// Deselecting detaches the repository via the background cleanup task
	status = doJSON(t, http.MethodPost, userPath+"/repositories/bulk-update", token,
		map[string]any{"repository_ids": ids[:1], "status": "deselected"}, &updated)
	require.Equal(t, http.StatusOK, status)

	require.Eventually(t, func() bool {
		repos = repos[:0]
		if getJSON(server.URL+"/api/repositories", token, &repos) != http.StatusOK {
			return false
		}
		inactive := 0
		for _, r := range repos {
			if !r.IsActive {
				inactive++
			}
		}
		return inactive == 1
	}, 15*time.Second, 100*time.Millisecond, "deselected repository was never detached")
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
