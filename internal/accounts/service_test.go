// internal/accounts/service_test.go
package accounts

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/indrek8/ai-git-analyzer/internal/apperror"
	"github.com/indrek8/ai-git-analyzer/internal/database"
	"github.com/indrek8/ai-git-analyzer/internal/database/memory"
	"github.com/indrek8/ai-git-analyzer/internal/model"
	"github.com/indrek8/ai-git-analyzer/internal/source"
	"github.com/indrek8/ai-git-analyzer/internal/syncer"
	"github.com/indrek8/ai-git-analyzer/internal/tasks"
)

func ptr[T any](v T) *T { return &v }

// fakeSource implements source.Client with canned profiles. Only the
// methods the accounts service reaches are configurable.
type fakeSource struct {
	profiles map[string]model.RemoteProfile
	orgs     []model.RemoteProfile
	orgsErr  error
}

func (f *fakeSource) UserProfile(_ context.Context, login string) (model.RemoteProfile, error) {
	p, ok := f.profiles[login]
	if !ok {
		return model.RemoteProfile{}, apperror.UpstreamNotFound("user " + login + " not found")
	}
	return p, nil
}

func (f *fakeSource) OrgProfile(ctx context.Context, login string) (model.RemoteProfile, error) {
	return f.UserProfile(ctx, login)
}

func (f *fakeSource) AuthenticatedUser(context.Context) (model.RemoteProfile, error) {
	return model.RemoteProfile{}, apperror.Unauthorized("no authenticated user")
}

func (f *fakeSource) ListAuthenticatedOrgs(context.Context) ([]model.RemoteProfile, error) {
	if f.orgsErr != nil {
		return nil, f.orgsErr
	}
	return f.orgs, nil
}

func (f *fakeSource) RepositoryInfo(_ context.Context, owner, name string) (model.RemoteRepository, error) {
	return model.RemoteRepository{}, apperror.UpstreamNotFound("repository " + owner + "/" + name + " not found")
}

func (f *fakeSource) ListUserRepositories(context.Context, string) ([]model.RemoteRepository, error) {
	return nil, nil
}

func (f *fakeSource) ListOrgRepositories(context.Context, string) ([]model.RemoteRepository, error) {
	return nil, nil
}

func (f *fakeSource) ListCommits(context.Context, string, string, *time.Time) ([]model.CommitRef, error) {
	return nil, nil
}

func (f *fakeSource) CommitDetail(_ context.Context, _, _, sha string) (model.CommitDetail, error) {
	return model.CommitDetail{}, apperror.UpstreamNotFound("commit " + sha + " not found")
}

// fakeFactory hands out one shared fake client and records the token it
// was asked to use.
type fakeFactory struct {
	client    *fakeSource
	lastToken string
}

func (f *fakeFactory) ClientFor(_ model.Provider, token string) (source.Client, error) {
	f.lastToken = token
	return f.client, nil
}

func newTestService(t *testing.T) (*Service, *memory.Store, *fakeFactory, *tasks.Queue) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.NewStore()
	factory := &fakeFactory{client: &fakeSource{profiles: map[string]model.RemoteProfile{}}}
	queue := tasks.NewQueue(1, 16, logger)
	queue.Register(syncer.TaskCleanupDeselected, func(context.Context, *tasks.Job) (any, error) {
		return nil, nil
	})
	return New(store, factory, queue, logger), store, factory, queue
}

func seedOwner(t *testing.T, store *memory.Store, username string) model.User {
	t.Helper()
	u, err := store.CreateUser(context.Background(), database.CreateUserParams{
		Email:          username + "@example.com",
		Username:       username,
		HashedPassword: "hashed",
	})
	require.NoError(t, err)
	return u
}

func TestAddGitHubUser(t *testing.T) {
	svc, store, factory, _ := newTestService(t)
	ctx := context.Background()
	owner := seedOwner(t, store, "alice")

	factory.client.profiles["hubot"] = model.RemoteProfile{
		RemoteID:    501,
		Login:       "hubot",
		DisplayName: ptr("Hubot"),
		PublicRepos: 2,
		Followers:   9,
	}

	u, err := svc.AddGitHubUser(ctx, owner.ID, " hubot ")
	require.NoError(t, err)
	assert.Equal(t, "hubot", u.Username)
	assert.Equal(t, int64(501), u.GitHubID)
	assert.Equal(t, owner.ID, u.AddedByID)
	assert.True(t, u.IsActive)
	assert.Empty(t, factory.lastToken, "no personal token stored yet")

	listed, err := svc.ListGitHubUsers(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)

	t.Run("second registration conflicts", func(t *testing.T) {
		_, err := svc.AddGitHubUser(ctx, owner.ID, "hubot")
		assert.ErrorIs(t, err, apperror.ErrConflict)
	})

	t.Run("blank username", func(t *testing.T) {
		_, err := svc.AddGitHubUser(ctx, owner.ID, "   ")
		assert.ErrorIs(t, err, apperror.ErrValidation)
	})

	t.Run("unknown on the source", func(t *testing.T) {
		_, err := svc.AddGitHubUser(ctx, owner.ID, "ghost")
		assert.ErrorIs(t, err, apperror.ErrUpstreamNotFound)
	})
}

func TestAddGitHubUser_UsesStoredToken(t *testing.T) {
	svc, store, factory, _ := newTestService(t)
	ctx := context.Background()
	owner := seedOwner(t, store, "alice")

	_, err := svc.StoreUserToken(ctx, owner.ID, "gho_personal")
	require.NoError(t, err)

	factory.client.profiles["hubot"] = model.RemoteProfile{RemoteID: 501, Login: "hubot"}
	_, err = svc.AddGitHubUser(ctx, owner.ID, "hubot")
	require.NoError(t, err)
	assert.Equal(t, "gho_personal", factory.lastToken)
}

func TestGetGitHubUser_ScopedToOwner(t *testing.T) {
	svc, store, factory, _ := newTestService(t)
	ctx := context.Background()
	alice := seedOwner(t, store, "alice")
	bob := seedOwner(t, store, "bob")

	factory.client.profiles["hubot"] = model.RemoteProfile{RemoteID: 501, Login: "hubot"}
	added, err := svc.AddGitHubUser(ctx, alice.ID, "hubot")
	require.NoError(t, err)

	got, err := svc.GetGitHubUser(ctx, alice.ID, added.ID)
	require.NoError(t, err)
	assert.Equal(t, added.ID, got.ID)

	_, err = svc.GetGitHubUser(ctx, bob.ID, added.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound, "other owners see not found, not forbidden")
}

func TestRemoveGitHubUser(t *testing.T) {
	svc, store, factory, _ := newTestService(t)
	ctx := context.Background()
	alice := seedOwner(t, store, "alice")
	bob := seedOwner(t, store, "bob")

	factory.client.profiles["hubot"] = model.RemoteProfile{RemoteID: 501, Login: "hubot"}
	added, err := svc.AddGitHubUser(ctx, alice.ID, "hubot")
	require.NoError(t, err)

	sel, err := store.CreateSelection(ctx, database.CreateSelectionParams{
		GitHubRepoID:  9101,
		Name:          "alpha",
		FullName:      "hubot/alpha",
		URL:           "https://github.com/hubot/alpha",
		DefaultBranch: "main",
		GitHubUserID:  &added.ID,
		SelectedByID:  alice.ID,
	})
	require.NoError(t, err)

	err = svc.RemoveGitHubUser(ctx, bob.ID, added.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound, "only the owner can remove")

	require.NoError(t, svc.RemoveGitHubUser(ctx, alice.ID, added.ID))

	_, err = svc.GetGitHubUser(ctx, alice.ID, added.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	_, err = store.GetSelection(ctx, sel.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound, "selections go with the account")
}

func TestConnectOrganizations(t *testing.T) {
	svc, store, factory, _ := newTestService(t)
	ctx := context.Background()
	owner := seedOwner(t, store, "alice")

	factory.client.orgs = []model.RemoteProfile{
		{RemoteID: 9001, Login: "acme"},
		{RemoteID: 9002, Login: "globex"},
	}

	connected, err := svc.ConnectOrganizations(ctx, owner.ID, "gho_oauth", "repo,admin:org")
	require.NoError(t, err)
	require.Len(t, connected, 2)
	for _, org := range connected {
		require.NotNil(t, org.AccessToken)
		assert.Equal(t, "gho_oauth", *org.AccessToken)
		require.NotNil(t, org.TokenScopes)
		assert.Equal(t, "repo,admin:org", *org.TokenScopes)
		assert.Equal(t, owner.ID, org.AddedByID)
	}
	assert.Equal(t, "gho_oauth", factory.lastToken)

	t.Run("reconnect refreshes the token", func(t *testing.T) {
		again, err := svc.ConnectOrganizations(ctx, owner.ID, "gho_rotated", "repo")
		require.NoError(t, err)
		require.Len(t, again, 2)

		listed, err := svc.ListGitHubOrganizations(ctx, owner.ID)
		require.NoError(t, err)
		require.Len(t, listed, 2, "no duplicate rows on reconnect")
		for _, org := range listed {
			require.NotNil(t, org.AccessToken)
			assert.Equal(t, "gho_rotated", *org.AccessToken)
		}
	})

	t.Run("blank token", func(t *testing.T) {
		_, err := svc.ConnectOrganizations(ctx, owner.ID, "", "")
		assert.ErrorIs(t, err, apperror.ErrValidation)
	})
}

func TestSelectionLifecycle(t *testing.T) {
	svc, store, factory, queue := newTestService(t)
	ctx := context.Background()
	owner := seedOwner(t, store, "alice")

	factory.client.profiles["hubot"] = model.RemoteProfile{RemoteID: 501, Login: "hubot"}
	account, err := svc.AddGitHubUser(ctx, owner.ID, "hubot")
	require.NoError(t, err)
	ref := account.Ref()

	seedSelection := func(t *testing.T, repoID int64, name string) model.RepositorySelection {
		t.Helper()
		sel, err := store.CreateSelection(ctx, database.CreateSelectionParams{
			GitHubRepoID:  repoID,
			Name:          name,
			FullName:      "hubot/" + name,
			URL:           "https://github.com/hubot/" + name,
			DefaultBranch: "main",
			GitHubUserID:  &account.ID,
			SelectedByID:  owner.ID,
		})
		require.NoError(t, err)
		return sel
	}
	alpha := seedSelection(t, 9101, "alpha")
	beta := seedSelection(t, 9102, "beta")

	all, err := svc.ListSelections(ctx, owner.ID, ref, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	updated, err := svc.UpdateSelections(ctx, owner.ID, ref, []int64{alpha.ID, beta.ID}, model.SelectionSelected)
	require.NoError(t, err)
	assert.EqualValues(t, 2, updated)

	status := model.SelectionSelected
	selected, err := svc.ListSelections(ctx, owner.ID, ref, &status)
	require.NoError(t, err)
	require.Len(t, selected, 2)
	for _, sel := range selected {
		require.NotNil(t, sel.SelectedAt)
	}

	t.Run("deselecting queues the cleanup task", func(t *testing.T) {
		updated, err := svc.UpdateSelections(ctx, owner.ID, ref, []int64{beta.ID}, model.SelectionDeselected)
		require.NoError(t, err)
		assert.EqualValues(t, 1, updated)

		jobs := queue.List()
		require.Len(t, jobs, 1)
		assert.Equal(t, syncer.TaskCleanupDeselected, jobs[0].Name)
	})

	t.Run("foreign ids are ignored", func(t *testing.T) {
		mallory := seedOwner(t, store, "mallory")
		factory.client.profiles["evilcorp"] = model.RemoteProfile{RemoteID: 666, Login: "evilcorp"}
		other, err := svc.AddGitHubUser(ctx, mallory.ID, "evilcorp")
		require.NoError(t, err)

		updated, err := svc.UpdateSelections(ctx, mallory.ID, other.Ref(), []int64{alpha.ID}, model.SelectionSelected)
		require.NoError(t, err)
		assert.Zero(t, updated)
	})

	t.Run("pending is not a decision", func(t *testing.T) {
		_, err := svc.UpdateSelections(ctx, owner.ID, ref, []int64{alpha.ID}, model.SelectionPending)
		assert.ErrorIs(t, err, apperror.ErrValidation)
	})
}

func TestStoreUserToken(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	ctx := context.Background()
	owner := seedOwner(t, store, "alice")

	u, err := svc.StoreUserToken(ctx, owner.ID, "  gho_token  ")
	require.NoError(t, err)
	require.NotNil(t, u.GitHubToken)
	assert.Equal(t, "gho_token", *u.GitHubToken)

	u, err = svc.StoreUserToken(ctx, owner.ID, "")
	require.NoError(t, err)
	assert.Nil(t, u.GitHubToken, "an empty token clears the stored one")
}
