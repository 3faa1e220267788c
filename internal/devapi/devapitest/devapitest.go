// Package devapitest starts a devapi backend on an httptest server and
// records what clients send to it.
package devapitest

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/examprep/internal/devapi"
	"github.com/aussiebroadwan/examprep/pkg/authclient"
)

// Demo credentials seeded into every Env.
const (
	Username      = "alice"
	Password      = "Secret1!"
	AdminUsername = "root"
	AdminPassword = "Admin123!"
)

// PathAlways401 answers 401 to any authenticated or anonymous request and
// records the request bodies it received.
const PathAlways401 = "/always401/"

// Env is a running backend.
type Env struct {
	API    *devapi.Server
	Server *httptest.Server

	refreshDelay atomic.Int64
	refreshCalls atomic.Int32

	mu      sync.Mutex
	bearers map[string][]string // path -> Authorization headers seen
	bodies  []string
}

// New starts a backend seeded with a user and an admin.
func New(t *testing.T, opts devapi.Options) *Env {
	t.Helper()

	api, err := devapi.New(opts)
	require.NoError(t, err)
	require.NoError(t, api.Seed(
		devapi.SeedUser{Username: Username, Password: Password, Email: "alice@example.com", FirstName: "Alice", LastName: "Martin", Role: authclient.RoleUser},
		devapi.SeedUser{Username: AdminUsername, Password: AdminPassword, Email: "root@example.com", FirstName: "Root", LastName: "Admin", Role: authclient.RoleAdmin},
	))

	env := &Env{API: api, bearers: make(map[string][]string)}
	inner := api.Handler()

	env.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		env.record(r)

		switch {
		case r.URL.Path == PathAlways401:
			raw, _ := io.ReadAll(r.Body)
			env.mu.Lock()
			env.bodies = append(env.bodies, string(raw))
			env.mu.Unlock()
			w.WriteHeader(http.StatusUnauthorized)
			return
		case strings.HasSuffix(r.URL.Path, "/token/refresh/"):
			env.refreshCalls.Add(1)
			if d := time.Duration(env.refreshDelay.Load()); d > 0 {
				time.Sleep(d)
			}
		}
		inner.ServeHTTP(w, r)
	}))
	t.Cleanup(env.Server.Close)

	return env
}

func (e *Env) record(r *http.Request) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.bearers[r.URL.Path] = append(e.bearers[r.URL.Path], r.Header.Get("Authorization"))
}

// SetRefreshDelay holds every refresh request for d before answering.
func (e *Env) SetRefreshDelay(d time.Duration) { e.refreshDelay.Store(int64(d)) }

// URL is the backend base URL.
func (e *Env) URL() string { return e.Server.URL }

// Client returns an authclient for the backend.
func (e *Env) Client() *authclient.Client { return authclient.NewClient(e.Server.URL) }

// RefreshCalls counts requests to the refresh endpoint.
func (e *Env) RefreshCalls() int { return int(e.refreshCalls.Load()) }

// Bearers returns the Authorization headers seen on path, in order.
func (e *Env) Bearers(path string) []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.bearers[path]...)
}

// Bodies returns the request bodies received on PathAlways401.
func (e *Env) Bodies() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.bodies...)
}

// Mint issues tokens for username with the given lifetimes.
func (e *Env) Mint(t *testing.T, username string, accessTTL, refreshTTL time.Duration) authclient.TokenPair {
	t.Helper()

	pair, err := e.API.MintTokens(username, accessTTL, refreshTTL)
	require.NoError(t, err)
	return pair
}
