// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	LogLevel string `mapstructure:"LOG_LEVEL"`
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	DBURL    string `mapstructure:"DB_URL"`

	// Auth
	JWTSecret string        `mapstructure:"JWT_SECRET"`
	TokenTTL  time.Duration `mapstructure:"TOKEN_TTL"`

	// GitHub integration. GithubToken is the fallback token for reads when
	// neither the requesting user nor the source account carries one.
	GithubToken        string `mapstructure:"GITHUB_TOKEN"`
	GithubClientID     string `mapstructure:"GITHUB_CLIENT_ID"`
	GithubClientSecret string `mapstructure:"GITHUB_CLIENT_SECRET"`
	GithubRedirectURL  string `mapstructure:"GITHUB_REDIRECT_URL"`
	GithubOAuthScopes  string `mapstructure:"GITHUB_OAUTH_SCOPES"`

	// Other providers. GitlabBaseURL overrides gitlab.com for self-hosted
	// instances; LocalRepoBase roots the "local" provider's repository tree.
	GitlabBaseURL string `mapstructure:"GITLAB_BASE_URL"`
	LocalRepoBase string `mapstructure:"LOCAL_REPO_BASE"`

	// Background work
	WorkerCount     int    `mapstructure:"WORKER_COUNT"`
	QueueSize       int    `mapstructure:"QUEUE_SIZE"`
	RefreshSchedule string `mapstructure:"REFRESH_SCHEDULE"`
	CleanupSchedule string `mapstructure:"CLEANUP_SCHEDULE"`
}

// LoadConfig reads configuration from file and/or environment variables.
func LoadConfig() (*Config, error) {
	// Set default values
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("HTTP_ADDR", ":8080")
	viper.SetDefault("TOKEN_TTL", "30m")
	viper.SetDefault("GITHUB_REDIRECT_URL", "http://localhost:8080/api/github/oauth/callback")
	viper.SetDefault("GITHUB_OAUTH_SCOPES", "repo,read:org,read:user,user:email")
	viper.SetDefault("GITLAB_BASE_URL", "")
	viper.SetDefault("LOCAL_REPO_BASE", "")
	viper.SetDefault("WORKER_COUNT", 8)
	viper.SetDefault("QUEUE_SIZE", 256)
	viper.SetDefault("REFRESH_SCHEDULE", "@every 6h")
	viper.SetDefault("CLEANUP_SCHEDULE", "@every 24h")

	// Load from .env file if it exists
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	_ = viper.ReadInConfig() // Ignore error if file not found

	// Bind environment variables
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Validate required fields
	if cfg.DBURL == "" {
		return nil, errors.New("DB_URL is a required configuration field")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is a required configuration field")
	}
	if len(cfg.JWTSecret) < 16 {
		return nil, errors.New("JWT_SECRET must be at least 16 characters")
	}
	if cfg.WorkerCount < 1 {
		return nil, fmt.Errorf("WORKER_COUNT must be positive, got %d", cfg.WorkerCount)
	}
	if cfg.QueueSize < 1 {
		return nil, fmt.Errorf("QUEUE_SIZE must be positive, got %d", cfg.QueueSize)
	}

	return &cfg, nil
}

// OAuthConfigured reports whether the GitHub OAuth app settings are present.
// The connect-organization flow requires them; everything else degrades to
// token-based access.
func (c *Config) OAuthConfigured() bool {
	return c.GithubClientID != "" && c.GithubClientSecret != ""
}
