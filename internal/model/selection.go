// internal/model/selection.go
package model

import (
	"fmt"
	"time"
)

// SelectionStatus tracks the user's monitoring decision for one candidate
// repository.
type SelectionStatus string

const (
	SelectionPending    SelectionStatus = "pending"    // not yet decided
	SelectionSelected   SelectionStatus = "selected"   // user wants to monitor
	SelectionDeselected SelectionStatus = "deselected" // user explicitly declined
	SelectionSynced     SelectionStatus = "synced"     // promoted to a Repository
)

// ParseSelectionStatus validates a status string from the API.
func ParseSelectionStatus(s string) (SelectionStatus, error) {
	switch SelectionStatus(s) {
	case SelectionPending, SelectionSelected, SelectionDeselected, SelectionSynced:
		return SelectionStatus(s), nil
	}
	return "", fmt.Errorf("invalid selection status %q", s)
}

// RepositorySelection is one remote repository as seen from one source
// account, pending a monitoring decision. Exactly one of GitHubUserID and
// GitHubOrgID is set. At most one selection exists per (GitHubRepoID,
// account) pair; reconciliation relies on that uniqueness.
type RepositorySelection struct {
	ID            int64
	GitHubRepoID  int64 // GitHub's internal repo ID
	Name          string
	FullName      string // e.g. "owner/repo"
	Description   *string
	URL           string
	CloneURL      *string
	DefaultBranch string
	IsPrivate     bool
	IsFork        bool
	IsArchived    bool

	StargazersCount int32
	WatchersCount   int32
	ForksCount      int32
	Size            int32 // KB, as reported upstream
	Language        *string

	Status     SelectionStatus
	SelectedAt *time.Time

	RepositoryID *int64 // set once promoted
	GitHubUserID *int64
	GitHubOrgID  *int64
	SelectedByID int64 // local user who owns the decision

	CreatedAt time.Time
	UpdatedAt time.Time
}
