// internal/model/repository.go
package model

import "time"

// Provider is the closed set of code hosts a repository can come from.
// Source clients are selected by provider (see internal/source); adding a
// variant means implementing source.Client and extending the factory, with
// no changes to callers.
type Provider string

const (
	ProviderGitHub    Provider = "github"
	ProviderGitLab    Provider = "gitlab"
	ProviderBitbucket Provider = "bitbucket"
	ProviderLocal     Provider = "local"
)

// SyncStatus is the repository sync lifecycle: pending → syncing →
// completed|failed, with failed → syncing again on retry.
type SyncStatus string

const (
	SyncPending   SyncStatus = "pending"
	SyncSyncing   SyncStatus = "syncing"
	SyncCompleted SyncStatus = "completed"
	SyncFailed    SyncStatus = "failed"
)

// Repository is a promoted, first-class monitored repository. At most one
// exists per (URL, OwnerID) pair. LastSyncedAt doubles as the commit
// ingestion checkpoint: nil means no successful sync yet, so the next run
// fetches full history (subject to the listing cap).
type Repository struct {
	ID            int64
	Name          string
	FullName      string
	URL           string
	CloneURL      *string
	Provider      Provider
	ExternalID    *string // provider's repository ID
	Description   *string
	DefaultBranch string
	IsPrivate     bool
	IsActive      bool
	LastSyncedAt  *time.Time
	SyncStatus    SyncStatus
	SyncError     *string
	OwnerID       int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
