// internal/database/memory/memory.go
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/indrek8/ai-git-analyzer/internal/apperror"
	"github.com/indrek8/ai-git-analyzer/internal/database"
	"github.com/indrek8/ai-git-analyzer/internal/model"
)

// Store is an in-memory database.Store for tests. It enforces the same
// uniqueness rules as the SQL schema and returns the same domain errors.
// WithTx runs the function directly; rollback is not simulated.
type Store struct {
	mu sync.Mutex

	users       map[int64]model.User
	githubUsers map[int64]model.GitHubUser
	githubOrgs  map[int64]model.GitHubOrganization
	selections  map[int64]model.RepositorySelection
	repos       map[int64]model.Repository
	developers  map[int64]model.Developer
	commits     map[int64]model.Commit

	nextID int64
}

var _ database.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		users:       make(map[int64]model.User),
		githubUsers: make(map[int64]model.GitHubUser),
		githubOrgs:  make(map[int64]model.GitHubOrganization),
		selections:  make(map[int64]model.RepositorySelection),
		repos:       make(map[int64]model.Repository),
		developers:  make(map[int64]model.Developer),
		commits:     make(map[int64]model.Commit),
	}
}

func (s *Store) WithTx(_ context.Context, fn func(database.Querier) error) error {
	return fn(s)
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func ptrEq(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// users

func (s *Store) CreateUser(_ context.Context, arg database.CreateUserParams) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == arg.Email || u.Username == arg.Username {
			return model.User{}, apperror.Conflict("a user with this email or username already exists")
		}
	}
	now := time.Now()
	u := model.User{
		ID:             s.id(),
		Email:          arg.Email,
		Username:       arg.Username,
		HashedPassword: arg.HashedPassword,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) GetUserByID(_ context.Context, id int64) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return model.User{}, apperror.NotFound("user", id)
	}
	return u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, apperror.NotFound("user", email)
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return model.User{}, apperror.NotFound("user", username)
}

func (s *Store) UpdateUserGitHubToken(_ context.Context, arg database.UpdateUserGitHubTokenParams) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[arg.ID]
	if !ok {
		return model.User{}, apperror.NotFound("user", arg.ID)
	}
	u.GitHubToken = arg.GitHubToken
	u.UpdatedAt = time.Now()
	s.users[u.ID] = u
	return u, nil
}

// github accounts

func (s *Store) CreateGitHubUser(_ context.Context, arg database.CreateGitHubUserParams) (model.GitHubUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.githubUsers {
		if u.GitHubID == arg.GitHubID && u.AddedByID == arg.AddedByID {
			return model.GitHubUser{}, apperror.Conflict("github account is already registered")
		}
	}
	now := time.Now()
	u := model.GitHubUser{
		ID:          s.id(),
		Username:    arg.Username,
		GitHubID:    arg.GitHubID,
		DisplayName: arg.DisplayName,
		Email:       arg.Email,
		AvatarURL:   arg.AvatarURL,
		Bio:         arg.Bio,
		Company:     arg.Company,
		Location:    arg.Location,
		Blog:        arg.Blog,
		PublicRepos: arg.PublicRepos,
		PublicGists: arg.PublicGists,
		Followers:   arg.Followers,
		Following:   arg.Following,
		IsActive:    true,
		AutoSync:    true,
		AddedByID:   arg.AddedByID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.githubUsers[u.ID] = u
	return u, nil
}

func (s *Store) GetGitHubUser(_ context.Context, id int64) (model.GitHubUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.githubUsers[id]
	if !ok {
		return model.GitHubUser{}, apperror.NotFound("github account", id)
	}
	return u, nil
}

func (s *Store) GetGitHubUserByRemoteID(_ context.Context, arg database.GetGitHubUserByRemoteIDParams) (model.GitHubUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.githubUsers {
		if u.GitHubID == arg.GitHubID && u.AddedByID == arg.AddedByID {
			return u, nil
		}
	}
	return model.GitHubUser{}, apperror.NotFound("github account", arg.GitHubID)
}

func (s *Store) ListGitHubUsers(_ context.Context, addedByID int64) ([]model.GitHubUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.GitHubUser
	for _, u := range s.githubUsers {
		if u.AddedByID == addedByID {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ListSyncableGitHubUsers(_ context.Context) ([]model.GitHubUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.GitHubUser
	for _, u := range s.githubUsers {
		if u.IsActive && u.AutoSync {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) UpdateGitHubUserProfile(_ context.Context, arg database.UpdateGitHubUserProfileParams) (model.GitHubUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.githubUsers[arg.ID]
	if !ok {
		return model.GitHubUser{}, apperror.NotFound("github account", arg.ID)
	}
	u.DisplayName = arg.DisplayName
	u.Email = arg.Email
	u.AvatarURL = arg.AvatarURL
	u.Bio = arg.Bio
	u.Company = arg.Company
	u.Location = arg.Location
	u.Blog = arg.Blog
	u.PublicRepos = arg.PublicRepos
	u.PublicGists = arg.PublicGists
	u.Followers = arg.Followers
	u.Following = arg.Following
	u.UpdatedAt = time.Now()
	s.githubUsers[u.ID] = u
	return u, nil
}

func (s *Store) TouchGitHubUserSynced(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.githubUsers[id]
	if !ok {
		return nil
	}
	now := time.Now()
	u.LastSyncedAt = &now
	u.UpdatedAt = now
	s.githubUsers[id] = u
	return nil
}

func (s *Store) DeleteGitHubUser(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.githubUsers[id]; !ok {
		return apperror.NotFound("github account", id)
	}
	delete(s.githubUsers, id)
	for sid, sel := range s.selections {
		if sel.GitHubUserID != nil && *sel.GitHubUserID == id {
			delete(s.selections, sid)
		}
	}
	return nil
}

func (s *Store) CreateGitHubOrganization(_ context.Context, arg database.CreateGitHubOrganizationParams) (model.GitHubOrganization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.githubOrgs {
		if o.GitHubID == arg.GitHubID && o.AddedByID == arg.AddedByID {
			return model.GitHubOrganization{}, apperror.Conflict("github organization is already registered")
		}
	}
	now := time.Now()
	o := model.GitHubOrganization{
		ID:          s.id(),
		Login:       arg.Login,
		GitHubID:    arg.GitHubID,
		DisplayName: arg.DisplayName,
		Description: arg.Description,
		Email:       arg.Email,
		AvatarURL:   arg.AvatarURL,
		Blog:        arg.Blog,
		Location:    arg.Location,
		Company:     arg.Company,
		PublicRepos: arg.PublicRepos,
		PublicGists: arg.PublicGists,
		Followers:   arg.Followers,
		Following:   arg.Following,
		AccessToken: arg.AccessToken,
		TokenScopes: arg.TokenScopes,
		IsActive:    true,
		AutoSync:    true,
		AddedByID:   arg.AddedByID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.githubOrgs[o.ID] = o
	return o, nil
}

func (s *Store) GetGitHubOrganization(_ context.Context, id int64) (model.GitHubOrganization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.githubOrgs[id]
	if !ok {
		return model.GitHubOrganization{}, apperror.NotFound("github organization", id)
	}
	return o, nil
}

func (s *Store) GetGitHubOrganizationByRemoteID(_ context.Context, arg database.GetGitHubOrganizationByRemoteIDParams) (model.GitHubOrganization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.githubOrgs {
		if o.GitHubID == arg.GitHubID && o.AddedByID == arg.AddedByID {
			return o, nil
		}
	}
	return model.GitHubOrganization{}, apperror.NotFound("github organization", arg.GitHubID)
}

func (s *Store) ListGitHubOrganizations(_ context.Context, addedByID int64) ([]model.GitHubOrganization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.GitHubOrganization
	for _, o := range s.githubOrgs {
		if o.AddedByID == addedByID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ListSyncableGitHubOrganizations(_ context.Context) ([]model.GitHubOrganization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.GitHubOrganization
	for _, o := range s.githubOrgs {
		if o.IsActive && o.AutoSync {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) UpdateGitHubOrganizationProfile(_ context.Context, arg database.UpdateGitHubOrganizationProfileParams) (model.GitHubOrganization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.githubOrgs[arg.ID]
	if !ok {
		return model.GitHubOrganization{}, apperror.NotFound("github organization", arg.ID)
	}
	o.DisplayName = arg.DisplayName
	o.Description = arg.Description
	o.Email = arg.Email
	o.AvatarURL = arg.AvatarURL
	o.Blog = arg.Blog
	o.Location = arg.Location
	o.Company = arg.Company
	o.PublicRepos = arg.PublicRepos
	o.PublicGists = arg.PublicGists
	o.Followers = arg.Followers
	o.Following = arg.Following
	o.UpdatedAt = time.Now()
	s.githubOrgs[o.ID] = o
	return o, nil
}

func (s *Store) UpdateGitHubOrganizationToken(_ context.Context, arg database.UpdateGitHubOrganizationTokenParams) (model.GitHubOrganization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.githubOrgs[arg.ID]
	if !ok {
		return model.GitHubOrganization{}, apperror.NotFound("github organization", arg.ID)
	}
	o.AccessToken = arg.AccessToken
	o.TokenScopes = arg.TokenScopes
	o.UpdatedAt = time.Now()
	s.githubOrgs[o.ID] = o
	return o, nil
}

func (s *Store) TouchGitHubOrganizationSynced(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.githubOrgs[id]
	if !ok {
		return nil
	}
	now := time.Now()
	o.LastSyncedAt = &now
	o.UpdatedAt = now
	s.githubOrgs[id] = o
	return nil
}

func (s *Store) DeleteGitHubOrganization(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.githubOrgs[id]; !ok {
		return apperror.NotFound("github organization", id)
	}
	delete(s.githubOrgs, id)
	for sid, sel := range s.selections {
		if sel.GitHubOrgID != nil && *sel.GitHubOrgID == id {
			delete(s.selections, sid)
		}
	}
	return nil
}

// repository selections

func (s *Store) CreateSelection(_ context.Context, arg database.CreateSelectionParams) (model.RepositorySelection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sel := range s.selections {
		if sel.GitHubRepoID == arg.GitHubRepoID &&
			ptrEq(sel.GitHubUserID, arg.GitHubUserID) && ptrEq(sel.GitHubOrgID, arg.GitHubOrgID) {
			return model.RepositorySelection{}, apperror.Conflict("repository selection already exists for this account")
		}
	}
	now := time.Now()
	sel := model.RepositorySelection{
		ID:              s.id(),
		GitHubRepoID:    arg.GitHubRepoID,
		Name:            arg.Name,
		FullName:        arg.FullName,
		Description:     arg.Description,
		URL:             arg.URL,
		CloneURL:        arg.CloneURL,
		DefaultBranch:   arg.DefaultBranch,
		IsPrivate:       arg.IsPrivate,
		IsFork:          arg.IsFork,
		IsArchived:      arg.IsArchived,
		StargazersCount: arg.StargazersCount,
		WatchersCount:   arg.WatchersCount,
		ForksCount:      arg.ForksCount,
		Size:            arg.Size,
		Language:        arg.Language,
		Status:          model.SelectionPending,
		GitHubUserID:    arg.GitHubUserID,
		GitHubOrgID:     arg.GitHubOrgID,
		SelectedByID:    arg.SelectedByID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	s.selections[sel.ID] = sel
	return sel, nil
}

func (s *Store) GetSelection(_ context.Context, id int64) (model.RepositorySelection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sel, ok := s.selections[id]
	if !ok {
		return model.RepositorySelection{}, apperror.NotFound("repository selection", id)
	}
	return sel, nil
}

func (s *Store) GetSelectionByRemoteRepo(_ context.Context, arg database.GetSelectionByRemoteRepoParams) (model.RepositorySelection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sel := range s.selections {
		if sel.GitHubRepoID == arg.GitHubRepoID &&
			ptrEq(sel.GitHubUserID, arg.GitHubUserID) && ptrEq(sel.GitHubOrgID, arg.GitHubOrgID) {
			return sel, nil
		}
	}
	return model.RepositorySelection{}, apperror.NotFound("repository selection", arg.GitHubRepoID)
}

func (s *Store) GetSelectionForRepository(_ context.Context, repositoryID int64) (model.RepositorySelection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var match *model.RepositorySelection
	for id := range s.selections {
		sel := s.selections[id]
		if sel.RepositoryID != nil && *sel.RepositoryID == repositoryID && (match == nil || sel.ID < match.ID) {
			match = &sel
		}
	}
	if match == nil {
		return model.RepositorySelection{}, apperror.NotFound("repository selection for repository", repositoryID)
	}
	return *match, nil
}

func (s *Store) ListSelectionsForAccount(_ context.Context, arg database.ListSelectionsForAccountParams) ([]model.RepositorySelection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.RepositorySelection
	for _, sel := range s.selections {
		if !ptrEq(sel.GitHubUserID, arg.GitHubUserID) || !ptrEq(sel.GitHubOrgID, arg.GitHubOrgID) {
			continue
		}
		if arg.Status != nil && sel.Status != *arg.Status {
			continue
		}
		out = append(out, sel)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	return out, nil
}

func (s *Store) BulkUpdateSelectionStatus(_ context.Context, arg database.BulkUpdateSelectionStatusParams) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var updated int64
	for _, id := range arg.IDs {
		sel, ok := s.selections[id]
		if !ok || !ptrEq(sel.GitHubUserID, arg.GitHubUserID) || !ptrEq(sel.GitHubOrgID, arg.GitHubOrgID) {
			continue
		}
		sel.Status = arg.Status
		sel.SelectedAt = arg.SelectedAt
		sel.UpdatedAt = time.Now()
		s.selections[id] = sel
		updated++
	}
	return updated, nil
}

func (s *Store) UpdateSelectionMetadata(_ context.Context, arg database.UpdateSelectionMetadataParams) (model.RepositorySelection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sel, ok := s.selections[arg.ID]
	if !ok {
		return model.RepositorySelection{}, apperror.NotFound("repository selection", arg.ID)
	}
	sel.Description = arg.Description
	sel.IsArchived = arg.IsArchived
	sel.StargazersCount = arg.StargazersCount
	sel.WatchersCount = arg.WatchersCount
	sel.ForksCount = arg.ForksCount
	sel.Size = arg.Size
	sel.Language = arg.Language
	sel.UpdatedAt = time.Now()
	s.selections[sel.ID] = sel
	return sel, nil
}

func (s *Store) ListPromotableSelections(_ context.Context, arg database.ListPromotableSelectionsParams) ([]model.RepositorySelection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.RepositorySelection
	for _, sel := range s.selections {
		if sel.Status != model.SelectionSelected || sel.RepositoryID != nil {
			continue
		}
		if !ptrEq(sel.GitHubUserID, arg.GitHubUserID) || !ptrEq(sel.GitHubOrgID, arg.GitHubOrgID) {
			continue
		}
		out = append(out, sel)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) LinkSelectionToRepository(_ context.Context, arg database.LinkSelectionToRepositoryParams) (model.RepositorySelection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sel, ok := s.selections[arg.ID]
	if !ok {
		return model.RepositorySelection{}, apperror.NotFound("repository selection", arg.ID)
	}
	repoID := arg.RepositoryID
	sel.RepositoryID = &repoID
	sel.Status = model.SelectionSynced
	sel.UpdatedAt = time.Now()
	s.selections[sel.ID] = sel
	return sel, nil
}

func (s *Store) ListDeselectedLinkedSelections(_ context.Context) ([]model.RepositorySelection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.RepositorySelection
	for _, sel := range s.selections {
		if sel.Status == model.SelectionDeselected && sel.RepositoryID != nil {
			out = append(out, sel)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ClearSelectionRepository(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sel, ok := s.selections[id]
	if !ok {
		return nil
	}
	sel.RepositoryID = nil
	sel.UpdatedAt = time.Now()
	s.selections[id] = sel
	return nil
}

func (s *Store) DeleteSelectionsForInactiveAccounts(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed int64
	for id, sel := range s.selections {
		inactive := false
		if sel.GitHubUserID != nil {
			u, ok := s.githubUsers[*sel.GitHubUserID]
			inactive = ok && !u.IsActive
		} else if sel.GitHubOrgID != nil {
			o, ok := s.githubOrgs[*sel.GitHubOrgID]
			inactive = ok && !o.IsActive
		}
		if inactive {
			delete(s.selections, id)
			removed++
		}
	}
	return removed, nil
}

// repositories

func (s *Store) CreateRepository(_ context.Context, arg database.CreateRepositoryParams) (model.Repository, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.repos {
		if r.URL == arg.URL && r.OwnerID == arg.OwnerID {
			return model.Repository{}, apperror.Conflict("repository is already registered for this user")
		}
	}
	now := time.Now()
	r := model.Repository{
		ID:            s.id(),
		Name:          arg.Name,
		FullName:      arg.FullName,
		URL:           arg.URL,
		CloneURL:      arg.CloneURL,
		Provider:      arg.Provider,
		ExternalID:    arg.ExternalID,
		Description:   arg.Description,
		DefaultBranch: arg.DefaultBranch,
		IsPrivate:     arg.IsPrivate,
		IsActive:      true,
		SyncStatus:    model.SyncPending,
		OwnerID:       arg.OwnerID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	s.repos[r.ID] = r
	return r, nil
}

func (s *Store) GetRepository(_ context.Context, id int64) (model.Repository, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.repos[id]
	if !ok {
		return model.Repository{}, apperror.NotFound("repository", id)
	}
	return r, nil
}

func (s *Store) GetRepositoryByURL(_ context.Context, arg database.GetRepositoryByURLParams) (model.Repository, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.repos {
		if r.URL == arg.URL && r.OwnerID == arg.OwnerID {
			return r, nil
		}
	}
	return model.Repository{}, apperror.NotFound("repository", arg.URL)
}

func (s *Store) ListRepositoriesByOwner(_ context.Context, ownerID int64) ([]model.Repository, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Repository
	for _, r := range s.repos {
		if r.OwnerID == ownerID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	return out, nil
}

func (s *Store) ListActiveRepositories(_ context.Context) ([]model.Repository, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Repository
	for _, r := range s.repos {
		if r.IsActive {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) UpdateRepositoryMetadata(_ context.Context, arg database.UpdateRepositoryMetadataParams) (model.Repository, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.repos[arg.ID]
	if !ok {
		return model.Repository{}, apperror.NotFound("repository", arg.ID)
	}
	r.Description = arg.Description
	r.DefaultBranch = arg.DefaultBranch
	r.IsPrivate = arg.IsPrivate
	r.UpdatedAt = time.Now()
	s.repos[r.ID] = r
	return r, nil
}

func (s *Store) UpdateRepositorySyncStatus(_ context.Context, arg database.UpdateRepositorySyncStatusParams) (model.Repository, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.repos[arg.ID]
	if !ok {
		return model.Repository{}, apperror.NotFound("repository", arg.ID)
	}
	r.SyncStatus = arg.SyncStatus
	r.SyncError = arg.SyncError
	r.UpdatedAt = time.Now()
	s.repos[r.ID] = r
	return r, nil
}

func (s *Store) CompleteRepositorySync(_ context.Context, id int64) (model.Repository, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.repos[id]
	if !ok {
		return model.Repository{}, apperror.NotFound("repository", id)
	}
	now := time.Now()
	r.SyncStatus = model.SyncCompleted
	r.SyncError = nil
	r.LastSyncedAt = &now
	r.UpdatedAt = now
	s.repos[r.ID] = r
	return r, nil
}

func (s *Store) CountRepositoriesBySyncStatus(_ context.Context, ownerID int64) (map[model.SyncStatus]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[model.SyncStatus]int64)
	for _, r := range s.repos {
		if r.IsActive && r.OwnerID == ownerID {
			out[r.SyncStatus]++
		}
	}
	return out, nil
}

func (s *Store) DeactivateRepository(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.repos[id]
	if !ok {
		return nil
	}
	r.IsActive = false
	r.UpdatedAt = time.Now()
	s.repos[id] = r
	return nil
}

func (s *Store) ReactivateRepository(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.repos[id]
	if !ok {
		return nil
	}
	r.IsActive = true
	r.UpdatedAt = time.Now()
	s.repos[id] = r
	return nil
}

// developers

func (s *Store) GetDeveloperByEmail(_ context.Context, email string) (model.Developer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var match *model.Developer
	for id := range s.developers {
		d := s.developers[id]
		if d.Email == email && (match == nil || d.ID < match.ID) {
			match = &d
		}
	}
	if match == nil {
		return model.Developer{}, apperror.NotFound("developer", email)
	}
	return *match, nil
}

func (s *Store) CreateDeveloper(_ context.Context, arg database.CreateDeveloperParams) (model.Developer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	d := model.Developer{
		ID:        s.id(),
		Name:      arg.Name,
		Email:     arg.Email,
		GitName:   arg.GitName,
		GitEmail:  arg.GitEmail,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.developers[d.ID] = d
	return d, nil
}

func (s *Store) ListDevelopers(_ context.Context) ([]model.Developer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Developer
	for _, d := range s.developers {
		if d.IsActive {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// commits

func (s *Store) CreateCommits(_ context.Context, args []database.CreateCommitsParams) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var inserted int64
	for _, arg := range args {
		exists := false
		for _, c := range s.commits {
			if c.RepositoryID == arg.RepositoryID && c.SHA == arg.SHA {
				exists = true
				break
			}
		}
		if exists {
			continue
		}
		now := time.Now()
		c := model.Commit{
			ID:             s.id(),
			SHA:            arg.SHA,
			Message:        arg.Message,
			AuthorName:     arg.AuthorName,
			AuthorEmail:    arg.AuthorEmail,
			CommitterName:  arg.CommitterName,
			CommitterEmail: arg.CommitterEmail,
			CommitDate:     arg.CommitDate,
			RepositoryID:   arg.RepositoryID,
			DeveloperID:    arg.DeveloperID,
			LinesAdded:     arg.LinesAdded,
			LinesRemoved:   arg.LinesRemoved,
			FilesChanged:   arg.FilesChanged,
			FilesModified:  arg.FilesModified,
			FilesAdded:     arg.FilesAdded,
			FilesDeleted:   arg.FilesDeleted,
			Branch:         arg.Branch,
			ParentSHAs:     arg.ParentSHAs,
			IsMerge:        arg.IsMerge,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		s.commits[c.ID] = c
		inserted++
	}
	return inserted, nil
}

func (s *Store) CommitExists(_ context.Context, arg database.CommitExistsParams) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.commits {
		if c.RepositoryID == arg.RepositoryID && c.SHA == arg.SHA {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) ListCommitsByRepository(_ context.Context, arg database.ListCommitsByRepositoryParams) ([]model.Commit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []model.Commit
	for _, c := range s.commits {
		if c.RepositoryID == arg.RepositoryID {
			all = append(all, c)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CommitDate.After(all[j].CommitDate) })

	start := int(arg.Offset)
	if start > len(all) {
		start = len(all)
	}
	end := start + int(arg.Limit)
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], nil
}

func (s *Store) CountCommitsByRepository(_ context.Context, repositoryID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, c := range s.commits {
		if c.RepositoryID == repositoryID {
			n++
		}
	}
	return n, nil
}

// SetAccountActive flips the active flag on a github account, for tests
// that exercise cleanup.
func (s *Store) SetAccountActive(ref model.AccountRef, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch ref.Kind {
	case model.AccountKindUser:
		if u, ok := s.githubUsers[ref.ID]; ok {
			u.IsActive = active
			s.githubUsers[ref.ID] = u
		}
	case model.AccountKindOrg:
		if o, ok := s.githubOrgs[ref.ID]; ok {
			o.IsActive = active
			s.githubOrgs[ref.ID] = o
		}
	}
}

// SetUserAdmin grants or revokes the admin flag, for tests that exercise
// admin-only routes.
func (s *Store) SetUserAdmin(id int64, admin bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		u.IsAdmin = admin
		s.users[id] = u
	}
}

// SetUserActive flips the active flag on a local account, for tests that
// exercise disabled-account handling.
func (s *Store) SetUserActive(id int64, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		u.IsActive = active
		s.users[id] = u
	}
}
