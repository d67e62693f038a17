package middleware

import (
	"context"
	"net/http"
	"net/url"

	"github.com/innoad/adsession"
)

// Session is the view of the session manager a guard needs.
// *adsession.Manager satisfies it.
type Session interface {
	Current() adsession.Session
	IsAdmin() bool
	HasAnyPermission(perms ...string) bool
	HasRouteAccess(path string) bool
}

// Outcome classifies a guard decision.
type Outcome uint8

const (
	Allow Outcome = iota
	// DenyUnauthenticated sends the user to the login path.
	DenyUnauthenticated
	// DenyForbidden sends an authenticated user to the forbidden path.
	DenyForbidden
)

func (o Outcome) String() string {
	switch o {
	case Allow:
		return "allow"
	case DenyUnauthenticated:
		return "unauthenticated"
	case DenyForbidden:
		return "forbidden"
	default:
		return "unknown"
	}
}

// Decision is the result of Check. Redirect is empty when the request is
// allowed.
type Decision struct {
	Outcome  Outcome
	Redirect string
}

// Allowed reports whether the request may proceed.
func (d Decision) Allowed() bool { return d.Outcome == Allow }

type sessionContextKey struct{}

// SessionFromContext returns the session the guard admitted the request
// with.
func SessionFromContext(ctx context.Context) (adsession.Session, bool) {
	s, ok := ctx.Value(sessionContextKey{}).(adsession.Session)
	return s, ok
}

// Guard answers route access questions from the current session.
type Guard struct {
	session Session
	routes  adsession.RoutesConfig
}

func NewGuard(session Session, routes adsession.RoutesConfig) *Guard {
	return &Guard{session: session, routes: routes}
}

// Check decides whether the current session may open path. required is
// satisfied by any one of its permissions; an empty list only requires
// authentication. Administrators are always allowed.
//
// When the routes config enforces prefixes, the role's route prefixes are
// consulted as well.
func (g *Guard) Check(path string, required ...string) Decision {
	if g == nil || g.session == nil || !g.session.Current().IsAuthenticated() {
		return Decision{Outcome: DenyUnauthenticated, Redirect: g.loginRedirect(path)}
	}
	if g.session.IsAdmin() {
		return Decision{Outcome: Allow}
	}
	if len(required) > 0 && !g.session.HasAnyPermission(required...) {
		return Decision{Outcome: DenyForbidden, Redirect: g.routes.ForbiddenPath}
	}
	if g.routes.EnforceRoutePrefixes && !g.session.HasRouteAccess(path) {
		return Decision{Outcome: DenyForbidden, Redirect: g.routes.ForbiddenPath}
	}
	return Decision{Outcome: Allow}
}

// Middleware enforces Check on every request, redirecting denied requests
// with 302 Found. The login redirect carries the requested URI in the
// configured return parameter.
func (g *Guard) Middleware(required ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := g.Check(r.URL.Path, required...)
			if !d.Allowed() {
				if d.Outcome == DenyUnauthenticated {
					d.Redirect = g.loginRedirect(r.URL.RequestURI())
				}
				http.Redirect(w, r, d.Redirect, http.StatusFound)
				return
			}
			ctx := context.WithValue(r.Context(), sessionContextKey{}, g.session.Current())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (g *Guard) loginRedirect(returnTo string) string {
	if g == nil {
		return ""
	}
	if returnTo == "" || g.routes.ReturnParam == "" {
		return g.routes.LoginPath
	}
	q := url.Values{}
	q.Set(g.routes.ReturnParam, returnTo)
	return g.routes.LoginPath + "?" + q.Encode()
}
