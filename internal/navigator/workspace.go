package navigator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/leszmonitor/dashboard/internal/domain"
	"github.com/leszmonitor/dashboard/internal/querycache"
)

// loadWorkspace resolves the team named by the URL before any nested page
// renders. The resolution always goes through the query cache under
// ("team", displayId); the session store's team slot is only a cache of the
// previous resolution and is never trusted across navigations. On success the
// slot is overwritten wholesale, so a page under /teamB can never observe
// teamA's data. On failure the subtree renders nothing.
func (n *Navigator) loadWorkspace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		displayID := strings.TrimSpace(chi.URLParam(r, "teamId"))
		if displayID == "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		team, err := n.resolveTeam(r.Context(), displayID)
		if err != nil {
			if errors.Is(err, domain.ErrUnauthenticated) {
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}
			n.log.Warnw("workspace resolution failed", "team", displayID, "error", err)
			w.WriteHeader(http.StatusNoContent)
			return
		}

		n.session.SetTeam(team)
		next.ServeHTTP(w, r)
	})
}

func (n *Navigator) resolveTeam(ctx context.Context, displayID string) (*domain.Team, error) {
	v, err := n.cache.Get(ctx, querycache.K("team", displayID), func(ctx context.Context) (any, error) {
		return n.client.GetTeam(ctx, displayID)
	})
	if err != nil {
		return nil, err
	}
	team, ok := v.(*domain.Team)
	if !ok || team == nil {
		return nil, fmt.Errorf("unexpected cache value for team %s", displayID)
	}
	return team, nil
}

// teamIndex lands /{teamId} on its dashboard.
func (n *Navigator) teamIndex(w http.ResponseWriter, r *http.Request) {
	displayID := chi.URLParam(r, "teamId")
	http.Redirect(w, r, "/"+displayID+"/dashboard", http.StatusSeeOther)
}
