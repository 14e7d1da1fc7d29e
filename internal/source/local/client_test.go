// internal/source/local/client_test.go
package local

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/indrek8/ai-git-analyzer/internal/apperror"
)

func newTestClient(t *testing.T) (*Client, string) {
	t.Helper()
	base := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewClient(base, logger), base
}

func initRepo(t *testing.T, base, owner, name string) (*git.Repository, string) {
	t.Helper()
	dir := filepath.Join(base, owner, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	return repo, dir
}

// commitFiles writes and removes files, stages everything and commits as
// Alice. Returns the commit SHA.
func commitFiles(t *testing.T, repo *git.Repository, dir string, files map[string]string, remove []string, msg string, when time.Time) string {
	t.Helper()
	w, err := repo.Worktree()
	require.NoError(t, err)

	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	for _, name := range remove {
		require.NoError(t, os.Remove(filepath.Join(dir, name)))
	}
	require.NoError(t, w.AddWithOptions(&git.AddOptions{All: true}))

	sha, err := w.Commit(msg, &git.CommitOptions{
		Author: &object.Signature{Name: "Alice", Email: "alice@example.com", When: when},
	})
	require.NoError(t, err)
	return sha.String()
}

func TestListCommits(t *testing.T) {
	client, base := newTestClient(t)
	repo, dir := initRepo(t, base, "acme", "tool")

	t1 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	first := commitFiles(t, repo, dir, map[string]string{"a.txt": "one\n"}, nil, "first", t1)
	second := commitFiles(t, repo, dir, map[string]string{"a.txt": "one\ntwo\n"}, nil, "second", t2)

	refs, err := client.ListCommits(context.Background(), "acme", "tool", nil)
	require.NoError(t, err)
	require.Len(t, refs, 2)

	assert.Equal(t, second, refs[0].SHA)
	assert.Equal(t, "second", refs[0].Message)
	assert.Equal(t, "Alice", refs[0].AuthorName)
	assert.Equal(t, "alice@example.com", refs[0].AuthorEmail)
	assert.WithinDuration(t, t2, refs[0].CommitDate, time.Second)
	assert.Equal(t, first, refs[1].SHA)
}

func TestListCommits_Since(t *testing.T) {
	client, base := newTestClient(t)
	repo, dir := initRepo(t, base, "acme", "tool")

	t1 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	commitFiles(t, repo, dir, map[string]string{"a.txt": "one\n"}, nil, "first", t1)
	second := commitFiles(t, repo, dir, map[string]string{"a.txt": "one\ntwo\n"}, nil, "second", t2)

	cut := t1.Add(30 * time.Minute)
	refs, err := client.ListCommits(context.Background(), "acme", "tool", &cut)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, second, refs[0].SHA)
}

func TestListCommits_EmptyRepository(t *testing.T) {
	client, base := newTestClient(t)
	initRepo(t, base, "acme", "empty")

	refs, err := client.ListCommits(context.Background(), "acme", "empty", nil)
	require.NoError(t, err)
	assert.Empty(t, refs)
}

func TestCommitDetail_RootCommit(t *testing.T) {
	client, base := newTestClient(t)
	repo, dir := initRepo(t, base, "acme", "tool")

	when := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	sha := commitFiles(t, repo, dir, map[string]string{
		"a.txt": "one\ntwo\n",
		"b.txt": "x\n",
	}, nil, "initial", when)

	d, err := client.CommitDetail(context.Background(), "acme", "tool", sha)
	require.NoError(t, err)
	assert.Equal(t, sha, d.SHA)
	assert.Equal(t, "initial", d.Message)
	assert.False(t, d.IsMerge)
	assert.Empty(t, d.ParentSHAs)
	assert.Equal(t, int32(2), d.FilesChanged)
	assert.ElementsMatch(t, []string{"a.txt", "b.txt"}, d.FilesAdded)
	assert.Equal(t, int32(3), d.LinesAdded)
	assert.Equal(t, int32(0), d.LinesRemoved)
}

func TestCommitDetail_ClassifiesChanges(t *testing.T) {
	client, base := newTestClient(t)
	repo, dir := initRepo(t, base, "acme", "tool")

	t1 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	first := commitFiles(t, repo, dir, map[string]string{
		"a.txt": "one\n",
		"b.txt": "x\n",
	}, nil, "initial", t1)
	second := commitFiles(t, repo, dir, map[string]string{
		"a.txt": "one\ntwo\n",
		"c.txt": "new\n",
	}, []string{"b.txt"}, "change", t1.Add(time.Hour))

	d, err := client.CommitDetail(context.Background(), "acme", "tool", second)
	require.NoError(t, err)
	assert.Equal(t, []string{first}, d.ParentSHAs)
	assert.Equal(t, int32(3), d.FilesChanged)
	assert.ElementsMatch(t, []string{"c.txt"}, d.FilesAdded)
	assert.ElementsMatch(t, []string{"b.txt"}, d.FilesDeleted)
	assert.ElementsMatch(t, []string{"a.txt"}, d.FilesModified)
	assert.Equal(t, int32(2), d.LinesAdded)
	assert.Equal(t, int32(1), d.LinesRemoved)
}

func TestCommitDetail_UnknownSHA(t *testing.T) {
	client, base := newTestClient(t)
	repo, dir := initRepo(t, base, "acme", "tool")
	commitFiles(t, repo, dir, map[string]string{"a.txt": "one\n"}, nil, "first", time.Now())

	_, err := client.CommitDetail(context.Background(), "acme", "tool",
		"0123456789abcdef0123456789abcdef01234567")
	assert.ErrorIs(t, err, apperror.ErrUpstreamNotFound)
}

func TestListUserRepositories(t *testing.T) {
	client, base := newTestClient(t)

	repo, dir := initRepo(t, base, "acme", "alpha")
	commitFiles(t, repo, dir, map[string]string{"a.txt": "one\n"}, nil, "first", time.Now())
	initRepo(t, base, "acme", "beta")
	// A plain directory is not a repository and must be skipped.
	require.NoError(t, os.MkdirAll(filepath.Join(base, "acme", "notes"), 0o755))

	repos, err := client.ListUserRepositories(context.Background(), "acme")
	require.NoError(t, err)
	require.Len(t, repos, 2)
	assert.Equal(t, "acme/alpha", repos[0].FullName)
	assert.Equal(t, "master", repos[0].DefaultBranch)
	// An empty repository has no HEAD yet, so the branch falls back.
	assert.Equal(t, "main", repos[1].DefaultBranch)

	_, err = client.ListUserRepositories(context.Background(), "ghost")
	assert.ErrorIs(t, err, apperror.ErrUpstreamNotFound)
}

func TestUserProfile_FromDirectory(t *testing.T) {
	client, base := newTestClient(t)
	require.NoError(t, os.MkdirAll(filepath.Join(base, "acme"), 0o755))

	p, err := client.UserProfile(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, "acme", p.Login)

	_, err = client.UserProfile(context.Background(), "ghost")
	assert.ErrorIs(t, err, apperror.ErrUpstreamNotFound)
}
