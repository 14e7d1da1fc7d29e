// internal/api/handler.go

// Package api exposes the service over HTTP: local-account auth, GitHub
// source management, repository selection, sync task control and commit
// reads. Handlers stay thin; the services they call own the semantics.
package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/indrek8/ai-git-analyzer/internal/accounts"
	"github.com/indrek8/ai-git-analyzer/internal/apperror"
	"github.com/indrek8/ai-git-analyzer/internal/auth"
	"github.com/indrek8/ai-git-analyzer/internal/database"
	"github.com/indrek8/ai-git-analyzer/internal/model"
	"github.com/indrek8/ai-git-analyzer/internal/source"
	"github.com/indrek8/ai-git-analyzer/internal/syncer"
	"github.com/indrek8/ai-git-analyzer/internal/tasks"
)

// Handler is the container for API dependencies.
type Handler struct {
	store    database.Store
	accounts *accounts.Service
	auth     *auth.Service
	syncer   *syncer.Syncer
	queue    *tasks.Queue
	sources  source.ClientFactory
	oauth    *auth.GitHubOAuth
	logger   *slog.Logger
}

// Deps bundles everything the router needs.
type Deps struct {
	Store    database.Store
	Accounts *accounts.Service
	Auth     *auth.Service
	Syncer   *syncer.Syncer
	Queue    *tasks.Queue
	Sources  source.ClientFactory
	OAuth    *auth.GitHubOAuth
	AuthMW   *auth.Middleware
	Logger   *slog.Logger
}

// NewRouter creates and configures a chi router with all API routes. The
// request timeout leaves room for inline refreshes, which can sit through
// the sync core's retry backoff.
func NewRouter(deps Deps) http.Handler {
	h := &Handler{
		store:    deps.Store,
		accounts: deps.Accounts,
		auth:     deps.Auth,
		syncer:   deps.Syncer,
		queue:    deps.Queue,
		sources:  deps.Sources,
		oauth:    deps.OAuth,
		logger:   deps.Logger,
	}

	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger) // Chi's default logger
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(300 * time.Second))

	r.Get("/health", h.healthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.register)
			r.Post("/login", h.login)
			r.Group(func(r chi.Router) {
				r.Use(deps.AuthMW.RequireAuth)
				r.Get("/me", h.me)
				r.Put("/github-token", h.saveGitHubToken)
			})
		})

		r.Route("/github", func(r chi.Router) {
			r.Use(deps.AuthMW.RequireAuth)
			r.Get("/oauth/authorize", h.oauthAuthorize)
			r.Get("/oauth/callback", h.oauthCallback)

			r.Get("/users", h.listGitHubUsers)
			r.Post("/users", h.addGitHubUser)
			r.Delete("/users/{id}", h.removeGitHubUser)
			r.Get("/users/{id}/repositories", h.listAccountRepositories(model.AccountKindUser))
			r.Post("/users/{id}/repositories/bulk-update", h.bulkUpdateSelections(model.AccountKindUser))
			r.Post("/users/{id}/repositories/sync-selected", h.syncSelectedRepositories(model.AccountKindUser))

			r.Get("/organizations", h.listGitHubOrganizations)
			r.Post("/organizations/connect", h.connectOrganizations)
			r.Post("/organizations/oauth-callback", h.organizationOAuthCallback)
			r.Delete("/organizations/{id}", h.removeGitHubOrganization)
			r.Get("/organizations/{id}/repositories", h.listAccountRepositories(model.AccountKindOrg))
			r.Post("/organizations/{id}/repositories/bulk-update", h.bulkUpdateSelections(model.AccountKindOrg))
			r.Post("/organizations/{id}/repositories/sync-selected", h.syncSelectedRepositories(model.AccountKindOrg))

			r.Post("/cleanup/deselected", h.cleanupDeselected)
			r.With(deps.AuthMW.RequireAdmin).Post("/cleanup/orphaned", h.cleanupOrphaned)
		})

		r.Route("/tasks", func(r chi.Router) {
			r.Use(deps.AuthMW.RequireAuth)
			r.Post("/repositories/bulk-sync", h.startBulkSync)
			r.Post("/github-users/{id}/refresh", h.refreshGitHubUser)
			r.Post("/github-organizations/{id}/refresh", h.refreshGitHubOrganization)
			r.With(deps.AuthMW.RequireAdmin).Post("/periodic-refresh", h.startPeriodicRefresh)
			r.Get("/status/{taskID}", h.taskStatus)
			r.Delete("/cancel/{taskID}", h.cancelTask)
			r.Get("/repository/{id}/sync-status", h.repositorySyncStatus)
			r.Post("/repository/{id}/force-sync", h.forceRepositorySync)
			r.Get("/active", h.activeTasks)
			r.Get("/stats", h.taskStats)
		})

		r.Route("/repositories", func(r chi.Router) {
			r.Use(deps.AuthMW.RequireAuth)
			r.Get("/", h.listRepositories)
			r.Get("/{id}", h.getRepository)
			r.Get("/{id}/commits", h.listRepositoryCommits)
		})

		r.With(deps.AuthMW.RequireAuth).Get("/developers", h.listDevelopers)
	})

	return r
}

// healthCheck is a simple health endpoint.
func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// urlParamID parses a numeric {id}-style route parameter.
func urlParamID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.Validation(name, "invalid "+name+" parameter")
	}
	return id, nil
}

// currentUser pulls the authenticated user set by the auth middleware.
// Routes registered under RequireAuth always have one.
func currentUser(r *http.Request) model.User {
	u, _ := auth.UserFromContext(r.Context())
	return u
}
