package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/leszmonitor/dashboard/internal/api"
	"github.com/leszmonitor/dashboard/internal/config"
	"github.com/leszmonitor/dashboard/internal/domain"
	"github.com/leszmonitor/dashboard/internal/navigator"
	"github.com/leszmonitor/dashboard/internal/querycache"
	"github.com/leszmonitor/dashboard/internal/session"
	"github.com/leszmonitor/dashboard/internal/token"
)

// App wires the dashboard core together and exposes the actions the shell
// triggers from forms: authentication and the group/member mutations. Every
// mutation's only consistency mechanism is invalidating the affected cache
// prefix; reads in flight during a mutation may still observe the old state
// once, and the subsequent cache refresh re-renders subscribers.
type App struct {
	Tokens  *token.Store
	Session *session.Store
	Client  *api.Client
	Cache   *querycache.Cache
	Nav     *navigator.Navigator

	log *zap.SugaredLogger
}

// New builds the application from configuration.
func New(cfg *config.Config, log *zap.SugaredLogger) (*App, error) {
	tokenPath := cfg.TokenPath
	if tokenPath == "" {
		var err error
		tokenPath, err = token.DefaultPath()
		if err != nil {
			return nil, err
		}
	}

	tokens := token.NewStore(tokenPath)
	sess := session.NewStore()
	client := api.NewClient(cfg.APIBaseURL, tokens, cfg.RequestTimeout(), log)
	cache := querycache.New(cfg.CacheTTL(), log)
	nav := navigator.New(navigator.Deps{
		Tokens:  tokens,
		Session: sess,
		Client:  client,
		Cache:   cache,
		Logger:  log,
	})

	return &App{
		Tokens:  tokens,
		Session: sess,
		Client:  client,
		Cache:   cache,
		Nav:     nav,
		log:     log,
	}, nil
}

// Login exchanges credentials for a token, persists it, publishes the decoded
// identity and resolves the user record. The token write completes before any
// dependent fetch is issued.
func (a *App) Login(ctx context.Context, username, password string) error {
	jwt, err := a.Client.Login(ctx, username, password)
	if err != nil {
		return err
	}
	if err := a.Tokens.Set(jwt); err != nil {
		return err
	}

	claims, err := token.DecodeClaims(jwt)
	if err != nil {
		// The server issued a token we cannot read; treat it as no identity
		// rather than failing the login.
		a.log.Warnw("could not decode issued token", "error", err)
		return nil
	}
	a.Session.SetUsername(claims.Username)

	v, err := a.Cache.Get(ctx, querycache.K("user", claims.Username), func(ctx context.Context) (any, error) {
		return a.Client.GetUser(ctx, claims.Username)
	})
	if err != nil {
		a.log.Warnw("could not resolve user after login", "username", claims.Username, "error", err)
		return nil
	}
	if user, ok := v.(*domain.User); ok {
		a.Session.SetUser(user)
	}
	return nil
}

// Register creates an account and logs it in, matching the dashboard's
// registration flow.
func (a *App) Register(ctx context.Context, username, password string) error {
	if err := a.Client.Register(ctx, username, password); err != nil {
		return err
	}
	return a.Login(ctx, username, password)
}

// Logout destroys the token and clears the identity slots.
func (a *App) Logout() error {
	if err := a.Tokens.Delete(); err != nil {
		return err
	}
	a.Session.ClearIdentity()
	return nil
}

// AddGroup creates a group and invalidates the team's group list so mounted
// views reflect it without a reload.
func (a *App) AddGroup(ctx context.Context, teamID string, input domain.GroupInput) (*domain.Group, error) {
	group, err := a.Client.AddGroup(ctx, teamID, input)
	if err != nil {
		return nil, err
	}
	a.Cache.Invalidate(querycache.K("groups", teamID))
	return group, nil
}

// DeleteGroup removes a group and invalidates the team's group list.
func (a *App) DeleteGroup(ctx context.Context, teamID, groupID string) error {
	if err := a.Client.DeleteGroup(ctx, teamID, groupID); err != nil {
		return err
	}
	a.Cache.Invalidate(querycache.K("groups", teamID))
	return nil
}

// AddMember adds a user to the team and invalidates the cached team, whose
// embedded member list backs the members page.
func (a *App) AddMember(ctx context.Context, teamID string, input api.MemberInput) error {
	if !input.Role.IsValid() {
		return fmt.Errorf("%w: %q", domain.ErrInvalidRole, input.Role)
	}
	if err := a.Client.AddMember(ctx, teamID, input); err != nil {
		return err
	}
	a.Cache.Invalidate(querycache.K("team", teamID))
	return nil
}

// RemoveMember removes a user from the team. An owner is rejected before any
// network call; this is a convenience check mirroring the disabled action in
// the shell, not a security boundary.
func (a *App) RemoveMember(ctx context.Context, teamID, username string) error {
	team, err := a.currentTeam(ctx, teamID)
	if err != nil {
		return err
	}
	if member, ok := team.Member(username); ok && member.Role == domain.RoleOwner {
		return domain.ErrOwnerImmutable
	}
	if err := a.Client.RemoveMember(ctx, teamID, username); err != nil {
		return err
	}
	a.Cache.Invalidate(querycache.K("team", teamID))
	return nil
}

// Workspaces returns the teams the workspace switcher offers, through the
// cache under ("teams").
func (a *App) Workspaces(ctx context.Context) ([]domain.Team, error) {
	v, err := a.Cache.Get(ctx, querycache.K("teams"), func(ctx context.Context) (any, error) {
		return a.Client.ListTeams(ctx)
	})
	if err != nil {
		return nil, err
	}
	teams, ok := v.([]domain.Team)
	if !ok {
		return nil, fmt.Errorf("unexpected cache value for teams")
	}
	return teams, nil
}

// currentTeam prefers the workspace team already in the session store when it
// matches, otherwise resolves through the cache.
func (a *App) currentTeam(ctx context.Context, teamID string) (*domain.Team, error) {
	if team := a.Session.Team(); team != nil && team.DisplayID == teamID {
		return team, nil
	}
	v, err := a.Cache.Get(ctx, querycache.K("team", teamID), func(ctx context.Context) (any, error) {
		return a.Client.GetTeam(ctx, teamID)
	})
	if err != nil {
		return nil, err
	}
	team, ok := v.(*domain.Team)
	if !ok || team == nil {
		return nil, fmt.Errorf("unexpected cache value for team %s", teamID)
	}
	return team, nil
}
