// internal/model/commit.go
package model

import "time"

// Commit is one ingested commit. Unique per (RepositoryID, SHA); ingesting
// an already-stored SHA for the same repository is a no-op.
type Commit struct {
	ID             int64
	SHA            string
	Message        string
	AuthorName     string
	AuthorEmail    string
	CommitterName  *string
	CommitterEmail *string
	CommitDate     time.Time

	RepositoryID int64
	DeveloperID  *int64

	LinesAdded   int32
	LinesRemoved int32
	FilesChanged int32

	FilesModified []string
	FilesAdded    []string
	FilesDeleted  []string

	Branch     *string
	ParentSHAs []string
	IsMerge    bool
	IsAnalyzed bool

	CreatedAt time.Time
	UpdatedAt time.Time
}
