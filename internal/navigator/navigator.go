package navigator

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/leszmonitor/dashboard/internal/api"
	"github.com/leszmonitor/dashboard/internal/querycache"
	"github.com/leszmonitor/dashboard/internal/session"
	"github.com/leszmonitor/dashboard/internal/token"
)

const maxRedirects = 5

// Deps are the collaborators the navigator composes pages from.
type Deps struct {
	Tokens  *token.Store
	Session *session.Store
	Client  *api.Client
	Cache   *querycache.Cache
	Logger  *zap.SugaredLogger
}

// Page is the outcome of a navigation: the path finally rendered after
// redirects, its status, and the view-model envelope the page produced.
type Page struct {
	Path   string
	Status int
	Body   json.RawMessage
}

// Navigator drives the dashboard's route tree in-process. Every navigation is
// a synthetic GET against the tree; guards run as middleware before the
// destination page is constructed, exactly once per navigation.
type Navigator struct {
	mux     *chi.Mux
	tokens  *token.Store
	session *session.Store
	client  *api.Client
	cache   *querycache.Cache
	log     *zap.SugaredLogger
}

// New builds the navigator and its route tree. The tree mirrors the
// dashboard's URL surface: /login and /register are unguarded, everything
// else requires a stored token, and the /{teamId} subtree resolves its team
// before any nested page renders.
func New(deps Deps) *Navigator {
	n := &Navigator{
		tokens:  deps.Tokens,
		session: deps.Session,
		client:  deps.Client,
		cache:   deps.Cache,
		log:     deps.Logger,
	}

	r := chi.NewRouter()
	r.Get("/login", n.page(n.loginPage))
	r.Get("/register", n.page(n.registerPage))

	r.Group(func(r chi.Router) {
		r.Use(n.requireToken)
		r.Get("/", n.rootRedirect)
		r.Get("/user/{username}", n.page(n.userPage))
		r.Route("/{teamId}", func(r chi.Router) {
			r.Use(n.loadWorkspace)
			r.Get("/", n.teamIndex)
			r.Get("/dashboard", n.page(n.dashboardPage))
			r.Get("/groups", n.page(n.groupsPage))
			r.Get("/members", n.page(n.membersPage))
			r.Get("/settings", n.page(n.settingsPage))
		})
	})

	n.mux = r
	return n
}

// Navigate renders the page at path, following guard redirects. It returns
// the finally rendered page; a redirect chain that does not settle is an
// error.
func (n *Navigator) Navigate(ctx context.Context, path string) (*Page, error) {
	current := path
	for i := 0; i < maxRedirects; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, current, nil)
		if err != nil {
			return nil, fmt.Errorf("navigate to %s: %w", current, err)
		}

		rec := newRecorder()
		n.mux.ServeHTTP(rec, req)

		if loc := rec.header.Get("Location"); rec.code >= 300 && rec.code < 400 && loc != "" {
			n.log.Debugw("navigation redirected", "from", current, "to", loc)
			current = loc
			continue
		}
		return &Page{Path: current, Status: rec.code, Body: rec.body.Bytes()}, nil
	}
	return nil, fmt.Errorf("navigation to %s did not settle after %d redirects", path, maxRedirects)
}
