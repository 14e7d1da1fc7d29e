// internal/source/gitlab/client.go
package gitlab

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	gitlab "gitlab.com/gitlab-org/api/client-go"

	"github.com/indrek8/ai-git-analyzer/internal/apperror"
	"github.com/indrek8/ai-git-analyzer/internal/model"
)

const (
	perPage  = 100
	maxItems = 1000
)

// Client reads GitLab data through the v4 API and normalizes it into the
// internal model types. Groups play the role organizations play on GitHub.
type Client struct {
	gl     *gitlab.Client
	logger *slog.Logger
}

// NewClient creates a Client for gitlab.com, or for a self-hosted instance
// when baseURL is non-empty.
func NewClient(token, baseURL string, logger *slog.Logger) (*Client, error) {
	opts := []gitlab.ClientOptionFunc{}
	if baseURL != "" {
		opts = append(opts, gitlab.WithBaseURL(baseURL))
	}
	gl, err := gitlab.NewClient(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating gitlab client: %w", err)
	}
	return &Client{gl: gl, logger: logger}, nil
}

func (c *Client) UserProfile(ctx context.Context, login string) (model.RemoteProfile, error) {
	users, _, err := c.gl.Users.ListUsers(&gitlab.ListUsersOptions{
		Username: gitlab.Ptr(login),
	}, gitlab.WithContext(ctx))
	if err != nil {
		return model.RemoteProfile{}, mapErr(err)
	}
	if len(users) == 0 {
		return model.RemoteProfile{}, apperror.UpstreamNotFound(fmt.Sprintf("gitlab user %q not found", login))
	}

	u := users[0]
	return model.RemoteProfile{
		RemoteID:    int64(u.ID),
		Login:       u.Username,
		DisplayName: optStr(u.Name),
		Email:       optStr(u.PublicEmail),
		AvatarURL:   optStr(u.AvatarURL),
		Bio:         optStr(u.Bio),
		Company:     optStr(u.Organization),
		Location:    optStr(u.Location),
		Blog:        optStr(u.WebsiteURL),
	}, nil
}

func (c *Client) OrgProfile(ctx context.Context, login string) (model.RemoteProfile, error) {
	g, _, err := c.gl.Groups.GetGroup(login, &gitlab.GetGroupOptions{}, gitlab.WithContext(ctx))
	if err != nil {
		return model.RemoteProfile{}, mapErr(err)
	}
	return model.RemoteProfile{
		RemoteID:    int64(g.ID),
		Login:       g.FullPath,
		DisplayName: optStr(g.Name),
		Description: optStr(g.Description),
		AvatarURL:   optStr(g.AvatarURL),
	}, nil
}

// AuthenticatedUser returns the profile behind the client's token.
func (c *Client) AuthenticatedUser(ctx context.Context) (model.RemoteProfile, error) {
	u, _, err := c.gl.Users.CurrentUser(gitlab.WithContext(ctx))
	if err != nil {
		return model.RemoteProfile{}, mapErr(err)
	}
	return model.RemoteProfile{
		RemoteID:    int64(u.ID),
		Login:       u.Username,
		DisplayName: optStr(u.Name),
		Email:       optStr(u.Email),
		AvatarURL:   optStr(u.AvatarURL),
		Bio:         optStr(u.Bio),
		Company:     optStr(u.Organization),
		Location:    optStr(u.Location),
		Blog:        optStr(u.WebsiteURL),
	}, nil
}

// ListAuthenticatedOrgs lists the groups the token can read.
func (c *Client) ListAuthenticatedOrgs(ctx context.Context) ([]model.RemoteProfile, error) {
	opt := &gitlab.ListGroupsOptions{
		ListOptions:    gitlab.ListOptions{PerPage: perPage, Page: 1},
		MinAccessLevel: gitlab.Ptr(gitlab.ReporterPermissions),
	}

	var all []model.RemoteProfile
	for {
		groups, resp, err := c.gl.Groups.ListGroups(opt, gitlab.WithContext(ctx))
		if err != nil {
			return nil, mapErr(err)
		}
		for _, g := range groups {
			all = append(all, model.RemoteProfile{
				RemoteID:    int64(g.ID),
				Login:       g.FullPath,
				DisplayName: optStr(g.Name),
				Description: optStr(g.Description),
				AvatarURL:   optStr(g.AvatarURL),
			})
		}
		if resp.NextPage == 0 {
			return all, nil
		}
		opt.Page = int64(resp.NextPage)
	}
}

func (c *Client) RepositoryInfo(ctx context.Context, owner, name string) (model.RemoteRepository, error) {
	p, _, err := c.gl.Projects.GetProject(owner+"/"+name, nil, gitlab.WithContext(ctx))
	if err != nil {
		return model.RemoteRepository{}, mapErr(err)
	}
	return toRemoteRepository(p), nil
}

func (c *Client) ListUserRepositories(ctx context.Context, login string) ([]model.RemoteRepository, error) {
	opt := &gitlab.ListProjectsOptions{
		ListOptions: gitlab.ListOptions{PerPage: perPage, Page: 1},
	}

	var all []model.RemoteRepository
	for {
		c.logger.Debug("listing gitlab user projects", "login", login, "page", opt.Page)
		projects, resp, err := c.gl.Projects.ListUserProjects(login, opt, gitlab.WithContext(ctx))
		if err != nil {
			return nil, mapErr(err)
		}
		for _, p := range projects {
			all = append(all, toRemoteRepository(p))
		}
		if len(all) >= maxItems {
			return all[:maxItems], nil
		}
		if resp.NextPage == 0 {
			return all, nil
		}
		opt.Page = int64(resp.NextPage)
	}
}

func (c *Client) ListOrgRepositories(ctx context.Context, org string) ([]model.RemoteRepository, error) {
	opt := &gitlab.ListGroupProjectsOptions{
		ListOptions: gitlab.ListOptions{PerPage: perPage, Page: 1},
	}

	var all []model.RemoteRepository
	for {
		c.logger.Debug("listing gitlab group projects", "group", org, "page", opt.Page)
		projects, resp, err := c.gl.Groups.ListGroupProjects(org, opt, gitlab.WithContext(ctx))
		if err != nil {
			return nil, mapErr(err)
		}
		for _, p := range projects {
			all = append(all, toRemoteRepository(p))
		}
		if len(all) >= maxItems {
			return all[:maxItems], nil
		}
		if resp.NextPage == 0 {
			return all, nil
		}
		opt.Page = int64(resp.NextPage)
	}
}

func (c *Client) ListCommits(ctx context.Context, owner, name string, since *time.Time) ([]model.CommitRef, error) {
	pid := owner + "/" + name
	opt := &gitlab.ListCommitsOptions{
		Since:       since,
		ListOptions: gitlab.ListOptions{PerPage: perPage, Page: 1},
	}

	var all []model.CommitRef
	for {
		c.logger.Debug("listing gitlab commits", "project", pid, "page", opt.Page)
		commits, resp, err := c.gl.Commits.ListCommits(pid, opt, gitlab.WithContext(ctx))
		if err != nil {
			return nil, mapErr(err)
		}
		for _, gc := range commits {
			all = append(all, toCommitRef(gc))
		}
		if len(all) >= maxItems {
			return all[:maxItems], nil
		}
		if resp.NextPage == 0 {
			return all, nil
		}
		opt.Page = int64(resp.NextPage)
	}
}

func (c *Client) CommitDetail(ctx context.Context, owner, name, sha string) (model.CommitDetail, error) {
	pid := owner + "/" + name

	gc, _, err := c.gl.Commits.GetCommit(pid, sha, &gitlab.GetCommitOptions{
		Stats: gitlab.Ptr(true),
	}, gitlab.WithContext(ctx))
	if err != nil {
		return model.CommitDetail{}, mapErr(err)
	}

	d := model.CommitDetail{
		SHA:            gc.ID,
		Message:        gc.Message,
		AuthorName:     fallbackName(gc.AuthorName),
		AuthorEmail:    fallbackEmail(gc.AuthorEmail),
		CommitterName:  gc.CommitterName,
		CommitterEmail: gc.CommitterEmail,
		CommitDate:     commitDate(gc),
		ParentSHAs:     gc.ParentIDs,
		IsMerge:        len(gc.ParentIDs) > 1,
	}
	if gc.Stats != nil {
		d.LinesAdded = int32(gc.Stats.Additions)
		d.LinesRemoved = int32(gc.Stats.Deletions)
	}

	diffs, _, err := c.gl.Commits.GetCommitDiff(pid, sha, &gitlab.GetCommitDiffOptions{PerPage: perPage}, gitlab.WithContext(ctx))
	if err != nil {
		return model.CommitDetail{}, mapErr(err)
	}
	d.FilesChanged = int32(len(diffs))
	for _, diff := range diffs {
		switch {
		case diff.NewFile:
			d.FilesAdded = append(d.FilesAdded, diff.NewPath)
		case diff.DeletedFile:
			d.FilesDeleted = append(d.FilesDeleted, diff.OldPath)
		default:
			d.FilesModified = append(d.FilesModified, diff.NewPath)
		}
	}

	return d, nil
}

func toRemoteRepository(p *gitlab.Project) model.RemoteRepository {
	branch := p.DefaultBranch
	if branch == "" {
		branch = "main"
	}
	return model.RemoteRepository{
		RemoteID:        int64(p.ID),
		Name:            p.Path,
		FullName:        p.PathWithNamespace,
		Description:     optStr(p.Description),
		URL:             p.WebURL,
		CloneURL:        p.HTTPURLToRepo,
		DefaultBranch:   branch,
		IsPrivate:       p.Visibility == gitlab.PrivateVisibility,
		IsFork:          p.ForkedFromProject != nil,
		IsArchived:      p.Archived,
		StargazersCount: int32(p.StarCount),
		ForksCount:      int32(p.ForksCount),
	}
}

func toCommitRef(gc *gitlab.Commit) model.CommitRef {
	return model.CommitRef{
		SHA:         gc.ID,
		Message:     gc.Message,
		AuthorName:  fallbackName(gc.AuthorName),
		AuthorEmail: fallbackEmail(gc.AuthorEmail),
		CommitDate:  commitDate(gc),
	}
}

func commitDate(gc *gitlab.Commit) time.Time {
	if gc.CommittedDate != nil {
		return gc.CommittedDate.UTC()
	}
	if gc.CreatedAt != nil {
		return gc.CreatedAt.UTC()
	}
	return time.Time{}
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

func optStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var respErr *gitlab.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		switch respErr.Response.StatusCode {
		case http.StatusNotFound:
			return apperror.UpstreamNotFound("gitlab: " + err.Error())
		case http.StatusForbidden, http.StatusTooManyRequests:
			return apperror.UpstreamRateLimited("gitlab: " + err.Error())
		}
	}
	return apperror.UpstreamUnavailable("gitlab: " + err.Error())
}
