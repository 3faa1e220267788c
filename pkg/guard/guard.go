// Package guard decides whether a page may be shown for the current
// session, and where to send the user when it may not.
package guard

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/aussiebroadwan/examprep/pkg/httpx"
	"github.com/aussiebroadwan/examprep/pkg/session"
	"github.com/aussiebroadwan/examprep/pkg/slogx"
)

// Default navigation targets.
const (
	PathLogin        = "/login"
	PathRegister     = "/register"
	PathUnauthorized = "/unauthorized"
	PathHome         = "/home"
)

// Route describes a guarded page. Roles, when set, lists the roles allowed
// to see it.
type Route struct {
	Path  string
	Roles []string
}

// Decision is the outcome of a guard check. Redirect is set when Allow is
// false.
type Decision struct {
	Allow    bool
	Redirect string
}

var allow = Decision{Allow: true}

// Guard protects pages that need a signed-in user.
type Guard struct {
	ctrl *session.Controller
}

func New(ctrl *session.Controller) *Guard {
	return &Guard{ctrl: ctrl}
}

// CanActivate checks route for the current session. attemptedURL is the
// path and query the user asked for; it is carried to the login page as
// returnUrl.
func (g *Guard) CanActivate(ctx context.Context, route Route, attemptedURL string) Decision {
	v := g.ctrl.Validator()

	if v.IsTokenValid("") && g.ctrl.State().Status != session.StatusUnauthenticated {
		return g.checkRoles(route)
	}

	if v.ShouldRefresh() {
		_, err := g.ctrl.Refresh(ctx)
		if err == nil {
			return g.checkRoles(route)
		}
		slogx.FromContext(ctx).Debug("guard refresh failed", slog.String("path", route.Path), slog.Any("error", err))
	}

	return Decision{Redirect: LoginURL(attemptedURL)}
}

func (g *Guard) checkRoles(route Route) Decision {
	if len(route.Roles) == 0 {
		return allow
	}
	if !g.ctrl.CurrentUser().HasRole(route.Roles...) {
		return Decision{Redirect: PathUnauthorized}
	}
	return allow
}

// Middleware enforces route on an HTTP handler, answering denied requests
// with 303 See Other.
func (g *Guard) Middleware(route Route) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := g.CanActivate(r.Context(), route, r.URL.RequestURI())
			if !d.Allow {
				slogx.FromContext(r.Context()).Debug("route denied",
					slog.String("path", r.URL.Path),
					slog.String("redirect", d.Redirect),
				)
				http.Redirect(w, r, d.Redirect, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// LoginURL is the login page with attemptedURL as returnUrl.
func LoginURL(attemptedURL string) string {
	if attemptedURL == "" {
		return PathLogin
	}
	return PathLogin + "?" + url.Values{"returnUrl": {attemptedURL}}.Encode()
}

// GuestGuard keeps signed-in users away from the login and registration
// pages.
type GuestGuard struct {
	ctrl *session.Controller

	// DefaultPath is where signed-in users go when no usable returnUrl is
	// present. Default: /home.
	DefaultPath string
}

func NewGuest(ctrl *session.Controller) *GuestGuard {
	return &GuestGuard{ctrl: ctrl, DefaultPath: PathHome}
}

// CanActivate allows anonymous users. Signed-in users are sent to the
// returnUrl query parameter of attemptedURL when it is a local path, else
// to DefaultPath.
func (g *GuestGuard) CanActivate(_ context.Context, attemptedURL string) Decision {
	if !g.ctrl.IsAuthenticated() {
		return allow
	}
	if target, ok := ReturnURL(attemptedURL); ok {
		return Decision{Redirect: target}
	}
	return Decision{Redirect: g.DefaultPath}
}

// Middleware enforces the guest check on an HTTP handler.
func (g *GuestGuard) Middleware() httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := g.CanActivate(r.Context(), r.URL.RequestURI())
			if !d.Allow {
				http.Redirect(w, r, d.Redirect, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ReturnURL extracts a safe returnUrl from attemptedURL. Only local
// absolute paths qualify, and never the guest pages themselves.
func ReturnURL(attemptedURL string) (string, bool) {
	u, err := url.Parse(attemptedURL)
	if err != nil {
		return "", false
	}
	return SafeLocalPath(u.Query().Get("returnUrl"))
}

// SafeLocalPath reports whether target is a same-origin path that is safe
// to redirect to.
func SafeLocalPath(target string) (string, bool) {
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return "", false
	}
	u, err := url.Parse(target)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return "", false
	}
	switch u.Path {
	case PathLogin, PathRegister:
		return "", false
	}
	return target, true
}
