package app_test

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leszmonitor/dashboard/internal/api"
	"github.com/leszmonitor/dashboard/internal/app"
	"github.com/leszmonitor/dashboard/internal/config"
	"github.com/leszmonitor/dashboard/internal/domain"
	"github.com/leszmonitor/dashboard/internal/logger"
	"github.com/leszmonitor/dashboard/internal/querycache"
	"github.com/leszmonitor/dashboard/internal/testutil"
)

func newApp(t *testing.T) (*app.App, *testutil.FakeAPI) {
	t.Helper()
	f := testutil.NewFakeAPI(t)
	cfg := &config.Config{
		APIBaseURL:        f.URL(),
		Environment:       "test",
		TokenPath:         filepath.Join(t.TempDir(), "login_token"),
		CacheTTLSeconds:   300,
		RequestTimeoutSec: 5,
	}
	a, err := app.New(cfg, logger.NewNop())
	require.NoError(t, err)
	return a, f
}

func TestApp_LoginEstablishesSession(t *testing.T) {
	a, f := newApp(t)
	f.SeedUser("alice", "pw")

	require.NoError(t, a.Login(context.Background(), "alice", "pw"))

	tok, ok, err := a.Tokens.Get()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NotEmpty(t, tok)

	assert.Equal(t, "alice", a.Session.Username())
	user := a.Session.User()
	require.NotNil(t, user, "login resolves the user record")
	assert.Equal(t, "alice", user.Username)
}

func TestApp_LoginInvalidCredentials(t *testing.T) {
	a, f := newApp(t)
	f.SeedUser("alice", "pw")

	err := a.Login(context.Background(), "alice", "wrong")

	require.Error(t, err)
	_, ok, readErr := a.Tokens.Get()
	require.NoError(t, readErr)
	assert.False(t, ok, "a failed login stores nothing")
	assert.Empty(t, a.Session.Username())
}

func TestApp_RegisterLogsIn(t *testing.T) {
	a, _ := newApp(t)

	require.NoError(t, a.Register(context.Background(), "carol", "pw"))

	assert.Equal(t, "carol", a.Session.Username())
	_, ok, err := a.Tokens.Get()
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestApp_Logout(t *testing.T) {
	a, f := newApp(t)
	f.SeedUser("alice", "pw")
	require.NoError(t, a.Login(context.Background(), "alice", "pw"))

	require.NoError(t, a.Logout())

	_, ok, err := a.Tokens.Get()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, a.Session.Username())
	assert.Nil(t, a.Session.User())

	// The next protected navigation lands on the login page.
	page, err := a.Nav.Navigate(context.Background(), "/alpha/dashboard")
	require.NoError(t, err)
	assert.Equal(t, "/login", page.Path)
}

func TestApp_WorkspacesServedFromCache(t *testing.T) {
	a, f := newApp(t)
	f.SeedUser("alice", "pw")
	f.SeedTeam("alpha", "Alpha")
	f.SeedTeam("beta", "Beta")
	require.NoError(t, a.Login(context.Background(), "alice", "pw"))
	ctx := context.Background()

	teams, err := a.Workspaces(ctx)
	require.NoError(t, err)
	assert.Len(t, teams, 2)

	_, err = a.Workspaces(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, f.Hits("GET", "/teams"), "a fresh team list is reused")
}

func TestApp_AddGroupInvalidatesGroupList(t *testing.T) {
	a, f := newApp(t)
	f.SeedUser("alice", "pw")
	f.SeedTeam("alpha", "Alpha")
	require.NoError(t, a.Login(context.Background(), "alice", "pw"))
	ctx := context.Background()

	// Mount the groups list so the invalidation has a live subscriber.
	var mu sync.Mutex
	var latest []domain.Group
	sub := a.Cache.Subscribe(querycache.K("groups", "alpha"), func(r querycache.Result) {
		if groups, ok := r.Data.([]domain.Group); ok {
			mu.Lock()
			latest = append([]domain.Group(nil), groups...)
			mu.Unlock()
		}
	})
	defer sub.Unsubscribe()

	page, err := a.Nav.Navigate(ctx, "/alpha/groups")
	require.NoError(t, err)
	require.NotNil(t, page)

	created, err := a.AddGroup(ctx, "alpha", domain.GroupInput{Name: "Web"})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(latest) == 1 && latest[0].ID == created.ID
	}, time.Second, 5*time.Millisecond, "the list view reflects the mutation without a reload")
}

func TestApp_DeleteGroupInvalidatesGroupList(t *testing.T) {
	a, f := newApp(t)
	f.SeedUser("alice", "pw")
	f.SeedTeam("alpha", "Alpha")
	group := f.SeedGroup("alpha", "Web")
	require.NoError(t, a.Login(context.Background(), "alice", "pw"))
	ctx := context.Background()

	var mu sync.Mutex
	var latest []domain.Group
	sub := a.Cache.Subscribe(querycache.K("groups", "alpha"), func(r querycache.Result) {
		if groups, ok := r.Data.([]domain.Group); ok {
			mu.Lock()
			latest = append([]domain.Group(nil), groups...)
			mu.Unlock()
		}
	})
	defer sub.Unsubscribe()

	_, err := a.Nav.Navigate(ctx, "/alpha/groups")
	require.NoError(t, err)

	require.NoError(t, a.DeleteGroup(ctx, "alpha", group.ID))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(latest) == 0
	}, time.Second, 5*time.Millisecond)
}

func TestApp_RemoveMemberOwnerRejectedBeforeNetwork(t *testing.T) {
	a, f := newApp(t)
	f.SeedUser("alice", "pw")
	f.SeedTeam("alpha", "Alpha",
		testutil.Member("alice", domain.RoleOwner),
		testutil.Member("bob", domain.RoleMember),
	)
	require.NoError(t, a.Login(context.Background(), "alice", "pw"))
	ctx := context.Background()

	err := a.RemoveMember(ctx, "alpha", "alice")

	assert.ErrorIs(t, err, domain.ErrOwnerImmutable)
	assert.Equal(t, 0, f.Hits("DELETE", "/teams/alpha/members"),
		"the owner check must run before any network call")
}

func TestApp_RemoveMemberInvalidatesTeam(t *testing.T) {
	a, f := newApp(t)
	f.SeedUser("alice", "pw")
	f.SeedTeam("alpha", "Alpha",
		testutil.Member("alice", domain.RoleOwner),
		testutil.Member("bob", domain.RoleMember),
	)
	require.NoError(t, a.Login(context.Background(), "alice", "pw"))
	ctx := context.Background()

	var memberCount atomic.Int32
	sub := a.Cache.Subscribe(querycache.K("team", "alpha"), func(r querycache.Result) {
		if team, ok := r.Data.(*domain.Team); ok {
			memberCount.Store(int32(len(team.Members)))
		}
	})
	defer sub.Unsubscribe()

	_, err := a.Nav.Navigate(ctx, "/alpha/members")
	require.NoError(t, err)
	require.Equal(t, int32(2), memberCount.Load())

	require.NoError(t, a.RemoveMember(ctx, "alpha", "bob"))

	assert.Equal(t, 1, f.Hits("DELETE", "/teams/alpha/members"))
	require.Eventually(t, func() bool { return memberCount.Load() == 1 }, time.Second, 5*time.Millisecond)
}

func TestApp_AddMemberValidatesRole(t *testing.T) {
	a, f := newApp(t)
	f.SeedUser("alice", "pw")
	f.SeedTeam("alpha", "Alpha")
	require.NoError(t, a.Login(context.Background(), "alice", "pw"))

	err := a.AddMember(context.Background(), "alpha", api.MemberInput{
		Username: "bob",
		Role:     domain.TeamRole("superuser"),
	})

	assert.ErrorIs(t, err, domain.ErrInvalidRole)
	assert.Equal(t, 0, f.Hits("POST", "/teams/alpha/members"))
}

func TestApp_AddMemberInvalidatesTeam(t *testing.T) {
	a, f := newApp(t)
	f.SeedUser("alice", "pw")
	f.SeedUser("bob", "pw")
	f.SeedTeam("alpha", "Alpha", testutil.Member("alice", domain.RoleOwner))
	require.NoError(t, a.Login(context.Background(), "alice", "pw"))
	ctx := context.Background()

	var memberCount atomic.Int32
	sub := a.Cache.Subscribe(querycache.K("team", "alpha"), func(r querycache.Result) {
		if team, ok := r.Data.(*domain.Team); ok {
			memberCount.Store(int32(len(team.Members)))
		}
	})
	defer sub.Unsubscribe()

	_, err := a.Nav.Navigate(ctx, "/alpha/members")
	require.NoError(t, err)

	require.NoError(t, a.AddMember(ctx, "alpha", api.MemberInput{
		Username: "bob",
		Role:     domain.RoleViewer,
	}))

	require.Eventually(t, func() bool { return memberCount.Load() == 2 }, time.Second, 5*time.Millisecond)
}
