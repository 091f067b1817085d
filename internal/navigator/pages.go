package navigator

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/leszmonitor/dashboard/internal/domain"
	"github.com/leszmonitor/dashboard/internal/querycache"
)

// Page handlers build view-models only; fields, tables and styling belong to
// the shell. Team-scoped pages read the current team from the session store,
// which loadWorkspace has already re-resolved for this navigation.

func (n *Navigator) loginPage(w http.ResponseWriter, _ *http.Request) error {
	writeData(w, map[string]any{"form": "login"}, n.log)
	return nil
}

func (n *Navigator) registerPage(w http.ResponseWriter, _ *http.Request) error {
	writeData(w, map[string]any{"form": "register"}, n.log)
	return nil
}

func (n *Navigator) userPage(w http.ResponseWriter, r *http.Request) error {
	username := chi.URLParam(r, "username")
	v, err := n.cache.Get(r.Context(), querycache.K("user", username), func(ctx context.Context) (any, error) {
		return n.client.GetUser(ctx, username)
	})
	if err != nil {
		return err
	}
	user, ok := v.(*domain.User)
	if !ok {
		return fmt.Errorf("unexpected cache value for user %s", username)
	}
	writeData(w, map[string]any{"user": user}, n.log)
	return nil
}

func (n *Navigator) dashboardPage(w http.ResponseWriter, _ *http.Request) error {
	team := n.session.Team()
	if team == nil {
		return domain.ErrNoWorkspace
	}
	writeData(w, map[string]any{"team": team}, n.log)
	return nil
}

func (n *Navigator) groupsPage(w http.ResponseWriter, r *http.Request) error {
	displayID := chi.URLParam(r, "teamId")
	v, err := n.cache.Get(r.Context(), querycache.K("groups", displayID), func(ctx context.Context) (any, error) {
		return n.client.ListGroups(ctx, displayID)
	})
	if err != nil {
		return err
	}
	groups, ok := v.([]domain.Group)
	if !ok {
		return fmt.Errorf("unexpected cache value for groups of %s", displayID)
	}
	writeData(w, map[string]any{"team": displayID, "groups": groups}, n.log)
	return nil
}

func (n *Navigator) membersPage(w http.ResponseWriter, r *http.Request) error {
	team := n.session.Team()
	if team == nil {
		return domain.ErrNoWorkspace
	}

	v, err := n.cache.Get(r.Context(), querycache.K("users"), func(ctx context.Context) (any, error) {
		return n.client.ListUsers(ctx)
	})
	if err != nil {
		return err
	}
	users, ok := v.([]domain.User)
	if !ok {
		return fmt.Errorf("unexpected cache value for users")
	}

	// Member-picker candidates: everyone not already on the team.
	candidates := make([]string, 0, len(users))
	for _, u := range users {
		if _, member := team.Member(u.Username); !member {
			candidates = append(candidates, u.Username)
		}
	}

	writeData(w, map[string]any{
		"team":       team.DisplayID,
		"members":    team.Members,
		"roles":      domain.AllTeamRoles,
		"candidates": candidates,
	}, n.log)
	return nil
}

func (n *Navigator) settingsPage(w http.ResponseWriter, _ *http.Request) error {
	team := n.session.Team()
	if team == nil {
		return domain.ErrNoWorkspace
	}
	writeData(w, map[string]any{"team": team}, n.log)
	return nil
}
