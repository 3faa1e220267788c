// Package devapi is a development stand-in for the exam platform REST
// backend. It implements just enough of the auth contract (login,
// registration, refresh, profile) to run the portal and the session tests
// against real signed tokens.
package devapi

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/aussiebroadwan/examprep/pkg/authclient"
	"github.com/aussiebroadwan/examprep/pkg/cryptox"
	"github.com/aussiebroadwan/examprep/pkg/httpx"
	"github.com/aussiebroadwan/examprep/pkg/jwtx"
	"github.com/aussiebroadwan/examprep/pkg/slogx"

	_ "github.com/aussiebroadwan/examprep/api/devapi" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Options configures a Server. Zero values get development defaults.
type Options struct {
	Issuer        string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	RotateRefresh bool

	// Signer mints tokens. A fresh Ed25519 key is generated when nil.
	Signer jwtx.Signer
	Hasher cryptox.PasswordHasher

	// LoginLimit throttles POST /login/ per client IP and username. A zero
	// value disables throttling.
	LoginLimit httpx.RateLimitConfig

	Logger *slog.Logger
	Now    func() time.Time
}

// SeedUser is an account created at startup.
type SeedUser struct {
	Username  string
	Password  string
	Email     string
	FirstName string
	LastName  string
	Role      string
}

// Server holds the backend state and HTTP handlers.
type Server struct {
	opts     Options
	signer   jwtx.Signer
	verifier *jwtx.EdDSAVerifier
	users    *Registry
	logger   *slog.Logger
	now      func() time.Time

	mu            sync.Mutex
	usedRefresh   map[string]time.Time // jti -> exp, for rotation
	revokedBefore map[string]time.Time // user id -> refresh tokens issued before are invalid
}

func New(opts Options) (*Server, error) {
	if opts.Issuer == "" {
		opts.Issuer = "examprep-devapi"
	}
	if opts.AccessTTL == 0 {
		opts.AccessTTL = jwtx.DefaultAccessTokenTTL
	}
	if opts.RefreshTTL == 0 {
		opts.RefreshTTL = jwtx.DefaultRefreshTokenTTL
	}
	if opts.Logger == nil {
		opts.Logger = slogx.Discard()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	signer := opts.Signer
	if signer == nil {
		pemKey, err := cryptox.GenerateEd25519Key()
		if err != nil {
			return nil, err
		}
		if signer, err = jwtx.NewSignerEdDSA("devapi-1", pemKey); err != nil {
			return nil, err
		}
	}

	return &Server{
		opts:          opts,
		signer:        signer,
		verifier:      jwtx.NewVerifierEdDSA(signer, opts.Issuer).WithClock(opts.Now),
		users:         NewRegistry(),
		logger:        opts.Logger,
		now:           opts.Now,
		usedRefresh:   make(map[string]time.Time),
		revokedBefore: make(map[string]time.Time),
	}, nil
}

// Seed creates accounts, hashing their passwords.
func (s *Server) Seed(users ...SeedUser) error {
	for _, su := range users {
		hash, err := s.opts.Hasher.Hash(su.Password)
		if err != nil {
			return fmt.Errorf("hash password for %s: %w", su.Username, err)
		}
		if _, err := s.users.Create(User{
			Username:     su.Username,
			Email:        su.Email,
			FirstName:    su.FirstName,
			LastName:     su.LastName,
			Role:         su.Role,
			PasswordHash: hash,
			CreatedAt:    s.now(),
		}); err != nil {
			return fmt.Errorf("seed %s: %w", su.Username, err)
		}
	}
	return nil
}

// Users exposes the registry.
func (s *Server) Users() *Registry { return s.users }

// Handler returns the HTTP API, with its OpenAPI browser under /swagger/.
//
//	@title						Exam Prep Development API
//	@version					0.1.0
//	@description				Local stand-in for the exam platform REST backend: login, registration, token refresh and profile.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/examprep
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8000
//	@BasePath					/
//	@schemes					http
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	login := http.Handler(http.HandlerFunc(s.handleLogin))
	if s.opts.LoginLimit.RequestsPerWindow > 0 {
		login = httpx.RateLimitByIPAndJSONField(s.opts.LoginLimit, "username")(login)
	}
	authn := httpx.AuthnMiddleware(s.verifier)

	mux.Handle("POST /login/", login)
	mux.HandleFunc("POST /register/", s.handleRegister)
	mux.HandleFunc("POST /token/refresh/", s.handleRefresh)
	mux.HandleFunc("POST /password-reset/", s.handlePasswordReset)
	mux.Handle("GET /profile/", authn(http.HandlerFunc(s.handleProfile)))
	mux.Handle("GET /users/{id}/", authn(http.HandlerFunc(s.handleUserByID)))
	mux.Handle("GET /exams/", authn(http.HandlerFunc(s.handleExams)))
	mux.HandleFunc("GET /livez", s.handleLivez)
	mux.Handle("GET /swagger/", httpSwagger.Handler())

	return httpx.Chain(mux, slogx.HTTPMiddleware(s.logger))
}

// MintTokens issues a pair for username with explicit lifetimes. Negative
// lifetimes produce already-expired tokens.
func (s *Server) MintTokens(username string, accessTTL, refreshTTL time.Duration) (authclient.TokenPair, error) {
	u, err := s.users.ByUsername(username)
	if err != nil {
		return authclient.TokenPair{}, err
	}
	return s.issuePair(u, accessTTL, refreshTTL)
}

// RevokeSessions invalidates every refresh token issued to username so far.
func (s *Server) RevokeSessions(username string) error {
	u, err := s.users.ByUsername(username)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Tokens carry second precision; anything issued up to now is revoked.
	s.revokedBefore[u.ID.String()] = s.now().Truncate(time.Second).Add(time.Second)
	return nil
}

func (s *Server) issuePair(u User, accessTTL, refreshTTL time.Duration) (authclient.TokenPair, error) {
	now := s.now()

	access, err := s.signer.Sign(jwtx.NewAccessClaims(u.ID.String(), u.Username, u.Role, s.opts.Issuer, accessTTL, now))
	if err != nil {
		return authclient.TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := s.signer.Sign(jwtx.NewRefreshClaims(u.ID.String(), s.opts.Issuer, refreshTTL, now))
	if err != nil {
		return authclient.TokenPair{}, fmt.Errorf("sign refresh token: %w", err)
	}
	return authclient.TokenPair{Access: access, Refresh: refresh}, nil
}
