// internal/syncer/syncer.go
package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/indrek8/ai-git-analyzer/internal/apperror"
	"github.com/indrek8/ai-git-analyzer/internal/database"
	"github.com/indrek8/ai-git-analyzer/internal/model"
	"github.com/indrek8/ai-git-analyzer/internal/source"
	"github.com/indrek8/ai-git-analyzer/internal/tasks"
)

const (
	// commitBatchSize is how many commits each ingestion transaction holds.
	commitBatchSize = 50

	// bulkChunkSize is how many repository syncs a bulk run dispatches at a
	// time; bulkAwaitTimeout bounds the wait for each.
	bulkChunkSize    = 5
	bulkAwaitTimeout = 300 * time.Second

	// refreshSyncTimeout bounds each account during the periodic refresh.
	refreshSyncTimeout = 180 * time.Second
)

// Syncer drives everything between the code hosts and the database:
// account reconciliation, selection promotion, commit ingestion and the
// periodic refresh and cleanup passes.
type Syncer struct {
	store   database.Store
	sources source.ClientFactory
	queue   *tasks.Queue
	logger  *slog.Logger

	mu      sync.Mutex
	syncing map[int64]struct{}
}

func New(store database.Store, sources source.ClientFactory, queue *tasks.Queue, logger *slog.Logger) *Syncer {
	return &Syncer{
		store:   store,
		sources: sources,
		queue:   queue,
		logger:  logger,
		syncing: make(map[int64]struct{}),
	}
}

// acquire claims the per-repository sync slot. A second sync for the same
// repository fails fast instead of queueing behind the first.
func (s *Syncer) acquire(repositoryID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.syncing[repositoryID]; busy {
		return apperror.SyncInProgress(repositoryID)
	}
	s.syncing[repositoryID] = struct{}{}
	return nil
}

func (s *Syncer) release(repositoryID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.syncing, repositoryID)
}

// resolveToken picks the access token for reading a repository: the owning
// organization's OAuth token when one exists, then the repository owner's
// personal token. An empty result falls back to the factory's default.
func (s *Syncer) resolveToken(ctx context.Context, repo model.Repository) string {
	sel, err := s.store.GetSelectionForRepository(ctx, repo.ID)
	if err == nil && sel.GitHubOrgID != nil {
		org, err := s.store.GetGitHubOrganization(ctx, *sel.GitHubOrgID)
		if err == nil && org.AccessToken != nil && *org.AccessToken != "" {
			return *org.AccessToken
		}
	}

	owner, err := s.store.GetUserByID(ctx, repo.OwnerID)
	if err == nil && owner.GitHubToken != nil && *owner.GitHubToken != "" {
		return *owner.GitHubToken
	}
	return ""
}

// ownerAndName derives the owner/name pair for provider calls, preferring
// the stored full name over re-parsing the URL.
func ownerAndName(repo model.Repository) (string, string, error) {
	if owner, name, ok := strings.Cut(repo.FullName, "/"); ok && owner != "" && name != "" {
		return owner, name, nil
	}
	return source.ParseRepositoryURL(repo.URL)
}

// account is the kind-independent view of a source account the sync code
// works with.
type account struct {
	ref      model.AccountRef
	login    string
	token    string
	userID   *int64 // selection FK when kind is user
	orgID    *int64 // selection FK when kind is org
	addedBy  int64
	autoSync bool
}

// loadAccount resolves an AccountRef into the fields sync needs, including
// the token to read with.
func (s *Syncer) loadAccount(ctx context.Context, ref model.AccountRef) (account, error) {
	switch ref.Kind {
	case model.AccountKindUser:
		u, err := s.store.GetGitHubUser(ctx, ref.ID)
		if err != nil {
			return account{}, err
		}
		acc := account{ref: u.Ref(), login: u.Username, addedBy: u.AddedByID, autoSync: u.AutoSync}
		id := u.ID
		acc.userID = &id
		acc.token = s.adderToken(ctx, u.AddedByID)
		return acc, nil

	case model.AccountKindOrg:
		o, err := s.store.GetGitHubOrganization(ctx, ref.ID)
		if err != nil {
			return account{}, err
		}
		acc := account{ref: o.Ref(), login: o.Login, addedBy: o.AddedByID, autoSync: o.AutoSync}
		id := o.ID
		acc.orgID = &id
		if o.AccessToken != nil && *o.AccessToken != "" {
			acc.token = *o.AccessToken
		} else {
			acc.token = s.adderToken(ctx, o.AddedByID)
		}
		return acc, nil
	}
	return account{}, fmt.Errorf("unknown account kind %q", ref.Kind)
}

func (s *Syncer) adderToken(ctx context.Context, userID int64) string {
	u, err := s.store.GetUserByID(ctx, userID)
	if err == nil && u.GitHubToken != nil {
		return *u.GitHubToken
	}
	return ""
}

func (s *Syncer) touchAccountSynced(ctx context.Context, ref model.AccountRef) error {
	switch ref.Kind {
	case model.AccountKindUser:
		return s.store.TouchGitHubUserSynced(ctx, ref.ID)
	case model.AccountKindOrg:
		return s.store.TouchGitHubOrganizationSynced(ctx, ref.ID)
	}
	return nil
}

// errMsg flattens an error for the sync_error column.
func errMsg(err error) *string {
	if err == nil {
		return nil
	}
	msg := err.Error()
	return &msg
}
