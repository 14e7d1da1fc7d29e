// internal/source/github/client.go
package github

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/go-github/v62/github"
	"golang.org/x/oauth2"

	"github.com/indrek8/ai-git-analyzer/internal/apperror"
	"github.com/indrek8/ai-git-analyzer/internal/model"
)

const (
	perPage  = 100
	maxItems = 1000
)

// Client reads GitHub data through the REST API and normalizes it into the
// internal model types.
type Client struct {
	gh     *github.Client
	logger *slog.Logger
}

// NewClient creates a Client. An empty token yields an unauthenticated
// client, which GitHub rate-limits aggressively.
func NewClient(token string, logger *slog.Logger) *Client {
	httpClient := http.DefaultClient
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		httpClient = oauth2.NewClient(context.Background(), ts)
	}
	return &Client{
		gh:     github.NewClient(httpClient),
		logger: logger,
	}
}

func (c *Client) UserProfile(ctx context.Context, login string) (model.RemoteProfile, error) {
	u, _, err := c.gh.Users.Get(ctx, login)
	if err != nil {
		return model.RemoteProfile{}, mapErr(err)
	}
	return toUserProfile(u), nil
}

func (c *Client) OrgProfile(ctx context.Context, login string) (model.RemoteProfile, error) {
	o, _, err := c.gh.Organizations.Get(ctx, login)
	if err != nil {
		return model.RemoteProfile{}, mapErr(err)
	}
	return model.RemoteProfile{
		RemoteID:    o.GetID(),
		Login:       o.GetLogin(),
		DisplayName: o.Name,
		Description: o.Description,
		Email:       o.Email,
		AvatarURL:   o.AvatarURL,
		Blog:        o.Blog,
		Location:    o.Location,
		Company:     o.Company,
		PublicRepos: int32(o.GetPublicRepos()),
		PublicGists: int32(o.GetPublicGists()),
		Followers:   int32(o.GetFollowers()),
		Following:   int32(o.GetFollowing()),
	}, nil
}

// AuthenticatedUser returns the profile of the user the token belongs to.
func (c *Client) AuthenticatedUser(ctx context.Context) (model.RemoteProfile, error) {
	u, _, err := c.gh.Users.Get(ctx, "")
	if err != nil {
		return model.RemoteProfile{}, mapErr(err)
	}
	return toUserProfile(u), nil
}

// ListAuthenticatedOrgs returns full profiles for the organizations the
// token can read. The membership listing only carries summaries, so each
// organization is fetched individually.
func (c *Client) ListAuthenticatedOrgs(ctx context.Context) ([]model.RemoteProfile, error) {
	opts := &github.ListOptions{PerPage: perPage}

	var all []model.RemoteProfile
	for {
		orgs, resp, err := c.gh.Organizations.List(ctx, "", opts)
		if err != nil {
			return nil, mapErr(err)
		}
		for _, o := range orgs {
			profile, err := c.OrgProfile(ctx, o.GetLogin())
			if err != nil {
				return nil, err
			}
			all = append(all, profile)
		}
		if resp.NextPage == 0 {
			return all, nil
		}
		opts.Page = resp.NextPage
	}
}

func (c *Client) RepositoryInfo(ctx context.Context, owner, name string) (model.RemoteRepository, error) {
	repo, _, err := c.gh.Repositories.Get(ctx, owner, name)
	if err != nil {
		return model.RemoteRepository{}, mapErr(err)
	}
	return toRemoteRepository(repo), nil
}

// ListUserRepositories pages through the repositories owned by a user.
func (c *Client) ListUserRepositories(ctx context.Context, login string) ([]model.RemoteRepository, error) {
	opts := &github.RepositoryListByUserOptions{
		Type:        "owner",
		Sort:        "updated",
		ListOptions: github.ListOptions{PerPage: perPage},
	}

	var all []model.RemoteRepository
	for {
		c.logger.Debug("listing user repositories", "login", login, "page", opts.Page)
		repos, resp, err := c.gh.Repositories.ListByUser(ctx, login, opts)
		if err != nil {
			return nil, mapErr(err)
		}
		for _, r := range repos {
			all = append(all, toRemoteRepository(r))
		}
		if len(all) >= maxItems {
			return all[:maxItems], nil
		}
		if resp.NextPage == 0 {
			return all, nil
		}
		opts.Page = resp.NextPage
	}
}

// ListOrgRepositories pages through an organization's repositories.
func (c *Client) ListOrgRepositories(ctx context.Context, org string) ([]model.RemoteRepository, error) {
	opts := &github.RepositoryListByOrgOptions{
		Type:        "all",
		Sort:        "updated",
		ListOptions: github.ListOptions{PerPage: perPage},
	}

	var all []model.RemoteRepository
	for {
		c.logger.Debug("listing org repositories", "org", org, "page", opts.Page)
		repos, resp, err := c.gh.Repositories.ListByOrg(ctx, org, opts)
		if err != nil {
			return nil, mapErr(err)
		}
		for _, r := range repos {
			all = append(all, toRemoteRepository(r))
		}
		if len(all) >= maxItems {
			return all[:maxItems], nil
		}
		if resp.NextPage == 0 {
			return all, nil
		}
		opts.Page = resp.NextPage
	}
}

// ListCommits pages through a repository's commit listing, newest first.
func (c *Client) ListCommits(ctx context.Context, owner, name string, since *time.Time) ([]model.CommitRef, error) {
	opts := &github.CommitsListOptions{
		ListOptions: github.ListOptions{PerPage: perPage},
	}
	if since != nil {
		opts.Since = *since
	}

	var all []model.CommitRef
	for {
		c.logger.Debug("listing commits", "owner", owner, "repo", name, "page", opts.Page)
		commits, resp, err := c.gh.Repositories.ListCommits(ctx, owner, name, opts)
		if err != nil {
			return nil, mapErr(err)
		}
		for _, rc := range commits {
			all = append(all, toCommitRef(rc))
		}
		if len(all) >= maxItems {
			return all[:maxItems], nil
		}
		if resp.NextPage == 0 {
			return all, nil
		}
		opts.Page = resp.NextPage
	}
}

// CommitDetail fetches one commit with stats and file list.
func (c *Client) CommitDetail(ctx context.Context, owner, name, sha string) (model.CommitDetail, error) {
	rc, _, err := c.gh.Repositories.GetCommit(ctx, owner, name, sha, nil)
	if err != nil {
		return model.CommitDetail{}, mapErr(err)
	}

	d := model.CommitDetail{
		SHA:            rc.GetSHA(),
		Message:        rc.GetCommit().GetMessage(),
		AuthorName:     authorName(rc.GetCommit().GetAuthor()),
		AuthorEmail:    authorEmail(rc.GetCommit().GetAuthor()),
		CommitterName:  rc.GetCommit().GetCommitter().GetName(),
		CommitterEmail: rc.GetCommit().GetCommitter().GetEmail(),
		CommitDate:     rc.GetCommit().GetAuthor().GetDate().Time.UTC(),
		LinesAdded:     int32(rc.GetStats().GetAdditions()),
		LinesRemoved:   int32(rc.GetStats().GetDeletions()),
		FilesChanged:   int32(len(rc.Files)),
	}

	for _, f := range rc.Files {
		switch f.GetStatus() {
		case "added":
			d.FilesAdded = append(d.FilesAdded, f.GetFilename())
		case "removed":
			d.FilesDeleted = append(d.FilesDeleted, f.GetFilename())
		default:
			d.FilesModified = append(d.FilesModified, f.GetFilename())
		}
	}

	for _, p := range rc.Parents {
		d.ParentSHAs = append(d.ParentSHAs, p.GetSHA())
	}
	d.IsMerge = len(rc.Parents) > 1

	return d, nil
}

func toUserProfile(u *github.User) model.RemoteProfile {
	return model.RemoteProfile{
		RemoteID:    u.GetID(),
		Login:       u.GetLogin(),
		DisplayName: u.Name,
		Email:       u.Email,
		AvatarURL:   u.AvatarURL,
		Bio:         u.Bio,
		Company:     u.Company,
		Location:    u.Location,
		Blog:        u.Blog,
		PublicRepos: int32(u.GetPublicRepos()),
		PublicGists: int32(u.GetPublicGists()),
		Followers:   int32(u.GetFollowers()),
		Following:   int32(u.GetFollowing()),
	}
}

func toRemoteRepository(r *github.Repository) model.RemoteRepository {
	branch := r.GetDefaultBranch()
	if branch == "" {
		branch = "main"
	}
	return model.RemoteRepository{
		RemoteID:        r.GetID(),
		Name:            r.GetName(),
		FullName:        r.GetFullName(),
		Description:     r.Description,
		URL:             r.GetHTMLURL(),
		CloneURL:        r.GetCloneURL(),
		DefaultBranch:   branch,
		IsPrivate:       r.GetPrivate(),
		IsFork:          r.GetFork(),
		IsArchived:      r.GetArchived(),
		StargazersCount: int32(r.GetStargazersCount()),
		WatchersCount:   int32(r.GetWatchersCount()),
		ForksCount:      int32(r.GetForksCount()),
		Size:            int32(r.GetSize()),
		Language:        r.Language,
	}
}

func toCommitRef(rc *github.RepositoryCommit) model.CommitRef {
	return model.CommitRef{
		SHA:         rc.GetSHA(),
		Message:     rc.GetCommit().GetMessage(),
		AuthorName:  authorName(rc.GetCommit().GetAuthor()),
		AuthorEmail: authorEmail(rc.GetCommit().GetAuthor()),
		CommitDate:  rc.GetCommit().GetAuthor().GetDate().Time.UTC(),
	}
}

// Author identity feeds developer resolution, so empty values get stable
// fallbacks instead of empty strings.
func authorName(a *github.CommitAuthor) string {
	if a.GetName() == "" {
		return "Unknown"
	}
	return a.GetName()
}

func authorEmail(a *github.CommitAuthor) string {
	if a.GetEmail() == "" {
		return "unknown@example.com"
	}
	return a.GetEmail()
}

// mapErr translates go-github failures into the upstream error classes.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return apperror.UpstreamRateLimited("github rate limit exceeded: " + err.Error())
	}
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return apperror.UpstreamRateLimited("github secondary rate limit: " + err.Error())
	}

	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		switch respErr.Response.StatusCode {
		case http.StatusNotFound:
			return apperror.UpstreamNotFound("github: " + err.Error())
		case http.StatusForbidden, http.StatusTooManyRequests:
			return apperror.UpstreamRateLimited("github: " + err.Error())
		}
	}
	return apperror.UpstreamUnavailable("github: " + err.Error())
}
