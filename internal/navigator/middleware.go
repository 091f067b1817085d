package navigator

import (
	"errors"
	"net/http"

	"github.com/leszmonitor/dashboard/internal/domain"
	"github.com/leszmonitor/dashboard/internal/token"
)

// requireToken gates every protected route. Presence of a token is necessary
// and sufficient; validity is discovered lazily when the first authenticated
// fetch comes back 401 and the error boundary redirects to /login.
func (n *Navigator) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok, err := n.tokens.Get()
		if err != nil {
			n.log.Warnw("token read failed during guard", "error", err)
		}
		if err != nil || !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// rootRedirect sends an authenticated visit to the bare root to the user's
// default workspace. A token that does not decode to a username renders
// nothing rather than erroring.
func (n *Navigator) rootRedirect(w http.ResponseWriter, r *http.Request) {
	raw, ok, err := n.tokens.Get()
	if err == nil && ok {
		if claims, derr := token.DecodeClaims(raw); derr == nil {
			http.Redirect(w, r, "/"+claims.Username+"/dashboard", http.StatusSeeOther)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// page adapts an error-returning page handler. The route boundary is the one
// place an Unauthenticated failure becomes a redirect to /login; every other
// failure renders an error envelope so the shell shows an empty panel instead
// of tearing down.
func (n *Navigator) page(h func(w http.ResponseWriter, r *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := h(w, r)
		if err == nil {
			return
		}
		if errors.Is(err, domain.ErrUnauthenticated) {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		n.log.Warnw("page render failed", "path", r.URL.Path, "error", err)
		writeError(w, "load_failed", err.Error(), n.log)
	}
}
