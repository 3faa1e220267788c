package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/examprep/pkg/authclient"
	"github.com/aussiebroadwan/examprep/pkg/guard"
	"github.com/aussiebroadwan/examprep/pkg/httpx"
	"github.com/aussiebroadwan/examprep/pkg/session"
	"github.com/aussiebroadwan/examprep/pkg/slogx"
)

// Portal paths not owned by the guard package.
const (
	PathLogout  = "/logout"
	PathProfile = "/profile"
	PathAdmin   = "/admin"
	PathSession = "/session"
	PathAPI     = "/api"
)

// AdminRoute admits administrators and moderators.
var AdminRoute = guard.Route{
	Path:  PathAdmin,
	Roles: []string{authclient.RoleAdmin, authclient.RoleModerator},
}

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	controller   *session.Controller
	guard        *guard.Guard
	guest        *guard.GuestGuard
	proxy        http.Handler
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
}

// NewRouter builds the portal router. API calls under /api/ are forwarded
// to apiBaseURL through transport.
func NewRouter(
	controller *session.Controller,
	transport http.RoundTripper,
	apiBaseURL, buildVersion string,
	logger *slog.Logger,
) (*Router, error) {
	if logger == nil {
		logger = slogx.Discard()
	}

	proxy, err := NewAPIProxy(apiBaseURL, transport, logger)
	if err != nil {
		return nil, fmt.Errorf("api proxy: %w", err)
	}

	r := &Router{
		Mux:          http.NewServeMux(),
		controller:   controller,
		guard:        guard.New(controller),
		guest:        guard.NewGuest(controller),
		proxy:        proxy,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r, nil
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerPages()
	r.registerAPI()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	h := &AuthHandler{Controller: r.controller}
	guest := r.guest.Middleware()

	r.Mux.Handle("GET "+guard.PathLogin, httpx.Chain(http.HandlerFunc(h.HandleLoginPage), guest))

	// Rate limited by IP + username to slow down credential stuffing.
	r.Mux.Handle("POST "+guard.PathLogin,
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			guest,
			httpx.RateLimitByIPAndJSONField(httpx.StrictLimit, "username"),
		),
	)

	r.Mux.Handle("GET "+guard.PathRegister, httpx.Chain(http.HandlerFunc(h.HandleRegisterPage), guest))
	r.Mux.Handle("POST "+guard.PathRegister,
		httpx.Chain(http.HandlerFunc(h.HandleRegister),
			guest,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	r.Mux.HandleFunc("POST "+PathLogout, h.HandleLogout)
}

func (r *Router) registerPages() {
	h := &PagesHandler{Controller: r.controller}

	r.Mux.Handle("GET /{$}", http.RedirectHandler(guard.PathHome, http.StatusSeeOther))
	r.Mux.HandleFunc("GET "+guard.PathHome, h.HandleHome)
	r.Mux.HandleFunc("GET "+guard.PathUnauthorized, h.HandleUnauthorized)
	r.Mux.HandleFunc("GET "+PathSession, h.HandleSession)

	r.Mux.Handle("GET "+PathProfile,
		httpx.Chain(http.HandlerFunc(h.HandleProfile),
			r.guard.Middleware(guard.Route{Path: PathProfile}),
		),
	)
	r.Mux.Handle("GET "+PathAdmin,
		httpx.Chain(http.HandlerFunc(h.HandleAdmin),
			r.guard.Middleware(AdminRoute),
		),
	)
}

func (r *Router) registerAPI() {
	r.Mux.Handle(PathAPI+"/", r.proxy)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
}
