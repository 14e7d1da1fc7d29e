// internal/model/remote.go
package model

import "time"

// The types below are the normalized forms produced by source clients
// (internal/source). They carry exactly what the sync core needs, so the
// core never sees a provider's wire types.

// RemoteRepository is one repository as reported by a code host.
type RemoteRepository struct {
	RemoteID      int64
	Name          string
	FullName      string
	Description   *string
	URL           string
	CloneURL      string
	DefaultBranch string
	IsPrivate     bool
	IsFork        bool
	IsArchived    bool

	StargazersCount int32
	WatchersCount   int32
	ForksCount      int32
	Size            int32
	Language        *string
}

// RemoteProfile is a user or organization profile as reported by a code
// host.
type RemoteProfile struct {
	RemoteID    int64
	Login       string
	DisplayName *string
	Email       *string
	AvatarURL   *string
	Bio         *string
	Description *string
	Company     *string
	Location    *string
	Blog        *string
	PublicRepos int32
	PublicGists int32
	Followers   int32
	Following   int32
}

// CommitRef is one entry from a commit listing; detail is fetched
// separately per SHA.
type CommitRef struct {
	SHA         string
	Message     string
	AuthorName  string
	AuthorEmail string
	CommitDate  time.Time
}

// CommitDetail is a fully normalized commit: per-file counters summed into
// line totals, every changed file classified into exactly one of
// added/modified/deleted, IsMerge true iff the commit has more than one
// parent, and CommitDate an absolute UTC instant.
type CommitDetail struct {
	SHA            string
	Message        string
	AuthorName     string
	AuthorEmail    string
	CommitterName  string
	CommitterEmail string
	CommitDate     time.Time

	LinesAdded   int32
	LinesRemoved int32
	FilesChanged int32

	FilesModified []string
	FilesAdded    []string
	FilesDeleted  []string

	ParentSHAs []string
	IsMerge    bool
}
