// internal/model/account.go
package model

import "time"

// AccountKind discriminates the two source-account tables.
type AccountKind string

const (
	AccountKindUser AccountKind = "user"
	AccountKindOrg  AccountKind = "org"
)

// AccountRef identifies one source account: exactly one of the two tables,
// by row id. Sync code that works for both kinds takes an AccountRef and
// switches on Kind.
type AccountRef struct {
	Kind AccountKind
	ID   int64
}

// GitHubUser is an individual GitHub account monitored for repositories.
type GitHubUser struct {
	ID           int64
	Username     string
	GitHubID     int64 // GitHub's numeric user ID
	DisplayName  *string
	Email        *string
	AvatarURL    *string
	Bio          *string
	Company      *string
	Location     *string
	Blog         *string
	PublicRepos  int32
	PublicGists  int32
	Followers    int32
	Following    int32
	IsActive     bool
	AutoSync     bool
	LastSyncedAt *time.Time
	AddedByID    int64 // local user who added this account
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Ref returns the AccountRef for this account.
func (u *GitHubUser) Ref() AccountRef {
	return AccountRef{Kind: AccountKindUser, ID: u.ID}
}

// GitHubOrganization is an organization account monitored for repositories.
// Unlike individual accounts it can carry an OAuth access token, granted
// during the connect flow, for reading private repositories.
type GitHubOrganization struct {
	ID           int64
	Login        string
	GitHubID     int64 // GitHub's numeric org ID
	DisplayName  *string
	Description  *string
	Email        *string
	AvatarURL    *string
	Blog         *string
	Location     *string
	Company      *string
	PublicRepos  int32
	PublicGists  int32
	Followers    int32
	Following    int32
	AccessToken  *string
	TokenScopes  *string
	IsActive     bool
	AutoSync     bool
	LastSyncedAt *time.Time
	AddedByID    int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Ref returns the AccountRef for this organization.
func (o *GitHubOrganization) Ref() AccountRef {
	return AccountRef{Kind: AccountKindOrg, ID: o.ID}
}
