// internal/source/factory.go
package source

import (
	"fmt"
	"log/slog"

	"github.com/indrek8/ai-git-analyzer/internal/apperror"
	"github.com/indrek8/ai-git-analyzer/internal/model"
	"github.com/indrek8/ai-git-analyzer/internal/source/github"
	"github.com/indrek8/ai-git-analyzer/internal/source/gitlab"
	"github.com/indrek8/ai-git-analyzer/internal/source/local"
)

var (
	_ Client = (*github.Client)(nil)
	_ Client = (*gitlab.Client)(nil)
	_ Client = (*local.Client)(nil)
)

// Factory builds provider clients. The fallback token is used for GitHub
// when the caller has none of its own.
type Factory struct {
	fallbackToken string
	gitlabBaseURL string
	localBase     string
	logger        *slog.Logger
}

var _ ClientFactory = (*Factory)(nil)

func NewFactory(fallbackToken, gitlabBaseURL, localBase string, logger *slog.Logger) *Factory {
	return &Factory{
		fallbackToken: fallbackToken,
		gitlabBaseURL: gitlabBaseURL,
		localBase:     localBase,
		logger:        logger,
	}
}

func (f *Factory) ClientFor(provider model.Provider, token string) (Client, error) {
	switch provider {
	case model.ProviderGitHub:
		if token == "" {
			token = f.fallbackToken
		}
		return github.NewClient(token, f.logger), nil
	case model.ProviderGitLab:
		return gitlab.NewClient(token, f.gitlabBaseURL, f.logger)
	case model.ProviderLocal:
		if f.localBase == "" {
			return nil, apperror.Validation("provider", "local provider requires LOCAL_REPO_BASE to be configured")
		}
		return local.NewClient(f.localBase, f.logger), nil
	default:
		return nil, apperror.Validation("provider", fmt.Sprintf("provider %q is not supported", provider))
	}
}
