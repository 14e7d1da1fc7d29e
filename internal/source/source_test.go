// internal/source/source_test.go
package source

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/indrek8/ai-git-analyzer/internal/apperror"
	"github.com/indrek8/ai-git-analyzer/internal/model"
)

func TestParseRepositoryURL(t *testing.T) {
	tests := []struct {
		name  string
		url   string
		owner string
		repo  string
	}{
		{"github https", "https://github.com/acme/tool", "acme", "tool"},
		{"git suffix", "https://github.com/acme/tool.git", "acme", "tool"},
		{"trailing slash", "https://github.com/acme/tool/", "acme", "tool"},
		{"extra path segments", "https://github.com/acme/tool/tree/main/docs", "acme", "tool"},
		{"gitlab https", "https://gitlab.com/acme/tool", "acme", "tool"},
		{"no scheme", "github.com/acme/tool", "acme", "tool"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			owner, name, err := ParseRepositoryURL(tt.url)
			require.NoError(t, err)
			assert.Equal(t, tt.owner, owner)
			assert.Equal(t, tt.repo, name)
		})
	}
}

func TestParseRepositoryURL_Malformed(t *testing.T) {
	urls := []string{
		"",
		"https://example.com/acme/tool",
		"https://github.com/acme",
		"https://github.com/",
		"git@github.com:acme/tool.git",
	}
	for _, u := range urls {
		_, _, err := ParseRepositoryURL(u)
		assert.ErrorIs(t, err, apperror.ErrMalformedInput, "url %q", u)
	}
}

func TestFactoryClientFor(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("github", func(t *testing.T) {
		f := NewFactory("fallback", "", "", logger)
		c, err := f.ClientFor(model.ProviderGitHub, "")
		require.NoError(t, err)
		assert.NotNil(t, c)
	})

	t.Run("local requires a base directory", func(t *testing.T) {
		f := NewFactory("", "", "", logger)
		_, err := f.ClientFor(model.ProviderLocal, "")
		assert.ErrorIs(t, err, apperror.ErrValidation)
	})

	t.Run("local with base", func(t *testing.T) {
		f := NewFactory("", "", t.TempDir(), logger)
		c, err := f.ClientFor(model.ProviderLocal, "")
		require.NoError(t, err)
		assert.NotNil(t, c)
	})

	t.Run("unsupported provider", func(t *testing.T) {
		f := NewFactory("", "", "", logger)
		_, err := f.ClientFor(model.Provider("svn"), "")
		assert.ErrorIs(t, err, apperror.ErrValidation)
	})
}
