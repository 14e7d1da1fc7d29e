// internal/model/developer.go
package model

import "time"

// Developer is a resolved commit-author identity, keyed by email. Lookup is
// first-match-wins (lowest id) and a Developer is created lazily the first
// time a commit arrives from an unseen email. MergedWithID supports manual
// identity deduplication later; resolution itself never follows it.
type Developer struct {
	ID           int64
	Name         string
	Email        string
	UserID       *int64 // optional link to a local user account
	GitName      *string
	GitEmail     *string
	IsMerged     bool
	MergedWithID *int64
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
