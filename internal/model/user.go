// internal/model/user.go
package model

import "time"

// User is a local account that registers sources and owns monitored
// repositories. GitHubToken is an optional personal access token used for
// API reads on the user's behalf.
type User struct {
	ID             int64
	Email          string
	Username       string
	HashedPassword string
	IsActive       bool
	IsAdmin        bool
	GitHubToken    *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
