// cmd/service/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/indrek8/ai-git-analyzer/internal/accounts"
	"github.com/indrek8/ai-git-analyzer/internal/api"
	"github.com/indrek8/ai-git-analyzer/internal/auth"
	"github.com/indrek8/ai-git-analyzer/internal/config"
	"github.com/indrek8/ai-git-analyzer/internal/database"
	"github.com/indrek8/ai-git-analyzer/internal/source"
	"github.com/indrek8/ai-git-analyzer/internal/syncer"
	"github.com/indrek8/ai-git-analyzer/internal/tasks"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Application startup error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Initialize structured logger
	logLevel := new(slog.LevelVar)
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger := slog.New(handler)
	slog.SetDefault(logger)

	// 2. Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	setLogLevel(cfg.LogLevel, logLevel)
	logger.Info("Configuration loaded successfully")

	// 3. Setup context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// 4. Initialize database connection and run migrations
	dbpool, err := pgxpool.New(ctx, cfg.DBURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer dbpool.Close()
	logger.Info("Database connection established")

	if err := runMigrations(cfg.DBURL); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}
	logger.Info("Database migrations applied successfully")

	// 5. Initialize application components
	store := database.NewStore(dbpool)
	sources := source.NewFactory(cfg.GithubToken, cfg.GitlabBaseURL, cfg.LocalRepoBase, logger)
	queue := tasks.NewQueue(cfg.WorkerCount, cfg.QueueSize, logger)

	core := syncer.New(store, sources, queue, logger)
	core.RegisterTasks(queue)

	tokenSvc := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	passwordSvc := auth.NewPasswordService()
	authSvc := auth.NewService(store, tokenSvc, passwordSvc, logger)
	authMW := auth.NewMiddleware(tokenSvc, store)
	oauth := auth.NewGitHubOAuth(cfg.GithubClientID, cfg.GithubClientSecret, cfg.GithubRedirectURL,
		strings.Split(cfg.GithubOAuthScopes, ","))
	if !cfg.OAuthConfigured() {
		logger.Warn("GitHub OAuth app not configured, connect flows are disabled")
	}

	accountsSvc := accounts.New(store, sources, queue, logger)

	// 6. Schedule periodic refresh and cleanup
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.RefreshSchedule, func() {
		if _, err := queue.Enqueue(syncer.TaskRefreshAll, nil); err != nil {
			logger.Warn("scheduled refresh not enqueued", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("invalid REFRESH_SCHEDULE %q: %w", cfg.RefreshSchedule, err)
	}
	if _, err := scheduler.AddFunc(cfg.CleanupSchedule, func() {
		if _, err := queue.Enqueue(syncer.TaskCleanupOrphaned, nil); err != nil {
			logger.Warn("scheduled cleanup not enqueued", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("invalid CLEANUP_SCHEDULE %q: %w", cfg.CleanupSchedule, err)
	}

	// 7. Build the HTTP API
	router := api.NewRouter(api.Deps{
		Store:    store,
		Accounts: accountsSvc,
		Auth:     authSvc,
		Syncer:   core,
		Queue:    queue,
		Sources:  sources,
		OAuth:    oauth,
		AuthMW:   authMW,
		Logger:   logger,
	})
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 8. Run workers, scheduler and server until a shutdown signal arrives
	scheduler.Start()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return queue.Start(gctx)
	})
	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received")
		<-scheduler.Stop().Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return server.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	logger.Info("Application stopped")
	return err
}

func runMigrations(dbURL string) error {
	m, err := migrate.New("file://migrations", dbURL)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

func setLogLevel(level string, v *slog.LevelVar) {
	switch level {
	case "debug":
		v.Set(slog.LevelDebug)
	case "warn":
		v.Set(slog.LevelWarn)
	case "error":
		v.Set(slog.LevelError)
	default:
		v.Set(slog.LevelInfo)
	}
}
