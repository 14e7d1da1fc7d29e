// internal/source/local/client.go
package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/indrek8/ai-git-analyzer/internal/apperror"
	"github.com/indrek8/ai-git-analyzer/internal/model"
)

const maxItems = 1000

// Client reads commit history straight from git repositories on disk,
// laid out as <base>/<owner>/<name>. It backs the "local" provider, which
// needs no network and no tokens.
type Client struct {
	base   string
	logger *slog.Logger
}

func NewClient(base string, logger *slog.Logger) *Client {
	return &Client{base: base, logger: logger}
}

func (c *Client) repoPath(owner, name string) string {
	return filepath.Join(c.base, owner, name)
}

// UserProfile synthesizes a profile from the owner directory; local
// repositories have no account metadata.
func (c *Client) UserProfile(_ context.Context, login string) (model.RemoteProfile, error) {
	info, err := os.Stat(filepath.Join(c.base, login))
	if err != nil || !info.IsDir() {
		return model.RemoteProfile{}, apperror.UpstreamNotFound(fmt.Sprintf("local owner %q not found", login))
	}
	return model.RemoteProfile{Login: login}, nil
}

func (c *Client) OrgProfile(ctx context.Context, login string) (model.RemoteProfile, error) {
	return c.UserProfile(ctx, login)
}

// Local repositories carry no account identity, so the token-based lookups
// have nothing to return.
func (c *Client) AuthenticatedUser(context.Context) (model.RemoteProfile, error) {
	return model.RemoteProfile{}, apperror.UpstreamNotFound("local provider has no authenticated identity")
}

func (c *Client) ListAuthenticatedOrgs(context.Context) ([]model.RemoteProfile, error) {
	return nil, apperror.UpstreamNotFound("local provider has no authenticated identity")
}

func (c *Client) RepositoryInfo(_ context.Context, owner, name string) (model.RemoteRepository, error) {
	path := c.repoPath(owner, name)
	repo, err := git.PlainOpen(path)
	if err != nil {
		return model.RemoteRepository{}, mapErr(owner+"/"+name, err)
	}

	branch := "main"
	if head, err := repo.Head(); err == nil && head.Name().IsBranch() {
		branch = head.Name().Short()
	}

	return model.RemoteRepository{
		Name:          name,
		FullName:      owner + "/" + name,
		URL:           path,
		CloneURL:      path,
		DefaultBranch: branch,
	}, nil
}

// ListUserRepositories scans the owner directory for git repositories.
func (c *Client) ListUserRepositories(ctx context.Context, login string) ([]model.RemoteRepository, error) {
	entries, err := os.ReadDir(filepath.Join(c.base, login))
	if err != nil {
		return nil, apperror.UpstreamNotFound(fmt.Sprintf("local owner %q not found", login))
	}

	var all []model.RemoteRepository
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		info, err := c.RepositoryInfo(ctx, login, e.Name())
		if err != nil {
			continue // not a git repository
		}
		all = append(all, info)
	}
	return all, nil
}

func (c *Client) ListOrgRepositories(ctx context.Context, org string) ([]model.RemoteRepository, error) {
	return c.ListUserRepositories(ctx, org)
}

// ListCommits walks the log from HEAD, newest first.
func (c *Client) ListCommits(ctx context.Context, owner, name string, since *time.Time) ([]model.CommitRef, error) {
	repo, err := git.PlainOpen(c.repoPath(owner, name))
	if err != nil {
		return nil, mapErr(owner+"/"+name, err)
	}

	head, err := repo.Head()
	if err != nil {
		return nil, nil // empty repository
	}

	iter, err := repo.Log(&git.LogOptions{From: head.Hash(), Since: since})
	if err != nil {
		return nil, mapErr(owner+"/"+name, err)
	}
	defer iter.Close()

	var all []model.CommitRef
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		commit, err := iter.Next()
		if errors.Is(err, io.EOF) {
			return all, nil
		}
		if err != nil {
			return nil, mapErr(owner+"/"+name, err)
		}
		all = append(all, model.CommitRef{
			SHA:         commit.Hash.String(),
			Message:     commit.Message,
			AuthorName:  fallbackName(commit.Author.Name),
			AuthorEmail: fallbackEmail(commit.Author.Email),
			CommitDate:  commit.Author.When.UTC(),
		})
		if len(all) >= maxItems {
			return all, nil
		}
	}
}

// CommitDetail diffs the commit against its first parent; a root commit
// reports every file as added.
func (c *Client) CommitDetail(ctx context.Context, owner, name, sha string) (model.CommitDetail, error) {
	repo, err := git.PlainOpen(c.repoPath(owner, name))
	if err != nil {
		return model.CommitDetail{}, mapErr(owner+"/"+name, err)
	}

	commit, err := repo.CommitObject(plumbing.NewHash(sha))
	if err != nil {
		return model.CommitDetail{}, mapErr(sha, err)
	}

	d := model.CommitDetail{
		SHA:            commit.Hash.String(),
		Message:        commit.Message,
		AuthorName:     fallbackName(commit.Author.Name),
		AuthorEmail:    fallbackEmail(commit.Author.Email),
		CommitterName:  commit.Committer.Name,
		CommitterEmail: commit.Committer.Email,
		CommitDate:     commit.Author.When.UTC(),
		IsMerge:        commit.NumParents() > 1,
	}
	for _, p := range commit.ParentHashes {
		d.ParentSHAs = append(d.ParentSHAs, p.String())
	}

	if commit.NumParents() == 0 {
		stats, err := commit.StatsContext(ctx)
		if err != nil {
			return model.CommitDetail{}, mapErr(sha, err)
		}
		d.FilesChanged = int32(len(stats))
		for _, fs := range stats {
			d.FilesAdded = append(d.FilesAdded, fs.Name)
			d.LinesAdded += int32(fs.Addition)
			d.LinesRemoved += int32(fs.Deletion)
		}
		return d, nil
	}

	parent, err := commit.Parent(0)
	if err != nil {
		return model.CommitDetail{}, mapErr(sha, err)
	}
	patch, err := parent.PatchContext(ctx, commit)
	if err != nil {
		return model.CommitDetail{}, mapErr(sha, err)
	}

	filePatches := patch.FilePatches()
	d.FilesChanged = int32(len(filePatches))
	for _, fp := range filePatches {
		from, to := fp.Files()
		switch {
		case from == nil && to != nil:
			d.FilesAdded = append(d.FilesAdded, to.Path())
		case from != nil && to == nil:
			d.FilesDeleted = append(d.FilesDeleted, from.Path())
		case to != nil:
			d.FilesModified = append(d.FilesModified, to.Path())
		}
	}
	for _, fs := range patch.Stats() {
		d.LinesAdded += int32(fs.Addition)
		d.LinesRemoved += int32(fs.Deletion)
	}

	return d, nil
}

func fallbackName(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

func fallbackEmail(s string) string {
	if s == "" {
		return "unknown@example.com"
	}
	return s
}

func mapErr(what string, err error) error {
	if errors.Is(err, git.ErrRepositoryNotExists) || errors.Is(err, plumbing.ErrObjectNotFound) ||
		errors.Is(err, object.ErrEntryNotFound) {
		return apperror.UpstreamNotFound(fmt.Sprintf("local repository %s: %v", what, err))
	}
	return apperror.UpstreamUnavailable(fmt.Sprintf("local repository %s: %v", what, err))
}
