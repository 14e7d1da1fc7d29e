// internal/source/source.go
package source

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/indrek8/ai-git-analyzer/internal/apperror"
	"github.com/indrek8/ai-git-analyzer/internal/model"
)

const (
	// PerPage is the page size every provider requests.
	PerPage = 100

	// MaxListedItems caps paginated listings. Pagination stops once a page
	// brings the running total to this many items or a page comes back
	// short.
	MaxListedItems = 1000
)

// Client reads repositories, profiles and commit history from one code
// host. Implementations normalize wire types into the model.Remote* forms
// and translate provider failures into the apperror upstream classes, so
// the sync core is provider-agnostic.
type Client interface {
	UserProfile(ctx context.Context, login string) (model.RemoteProfile, error)
	OrgProfile(ctx context.Context, login string) (model.RemoteProfile, error)

	// AuthenticatedUser returns the profile behind the client's token;
	// ListAuthenticatedOrgs the organizations that token can read. The
	// OAuth connect flows use these.
	AuthenticatedUser(ctx context.Context) (model.RemoteProfile, error)
	ListAuthenticatedOrgs(ctx context.Context) ([]model.RemoteProfile, error)

	RepositoryInfo(ctx context.Context, owner, name string) (model.RemoteRepository, error)
	ListUserRepositories(ctx context.Context, login string) ([]model.RemoteRepository, error)
	ListOrgRepositories(ctx context.Context, org string) ([]model.RemoteRepository, error)

	// ListCommits returns commit refs newest first. A nil since means full
	// history, subject to MaxListedItems.
	ListCommits(ctx context.Context, owner, name string, since *time.Time) ([]model.CommitRef, error)
	CommitDetail(ctx context.Context, owner, name, sha string) (model.CommitDetail, error)
}

// ClientFactory builds a Client for a provider using the given access
// token. An empty token yields an unauthenticated client where the
// provider allows one.
type ClientFactory interface {
	ClientFor(provider model.Provider, token string) (Client, error)
}

var hostMarkers = []string{"github.com/", "gitlab.com/"}

// ParseRepositoryURL extracts owner and repository name from a code host
// URL. Trailing slashes and a ".git" suffix are ignored, as are path
// segments past the repository name.
func ParseRepositoryURL(raw string) (owner, name string, err error) {
	trimmed := strings.TrimSuffix(strings.TrimRight(raw, "/"), ".git")

	rest := ""
	for _, marker := range hostMarkers {
		if i := strings.Index(trimmed, marker); i >= 0 {
			rest = trimmed[i+len(marker):]
			break
		}
	}
	if rest == "" {
		return "", "", apperror.MalformedInput(fmt.Sprintf("unrecognized repository URL %q", raw))
	}

	parts := strings.Split(rest, "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", apperror.MalformedInput(fmt.Sprintf("repository URL %q has no owner/name path", raw))
	}
	return parts[0], parts[1], nil
}
