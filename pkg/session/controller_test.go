package session_test

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/examprep/internal/devapi"
	"github.com/aussiebroadwan/examprep/internal/devapi/devapitest"
	"github.com/aussiebroadwan/examprep/pkg/authclient"
	"github.com/aussiebroadwan/examprep/pkg/session"
	"github.com/aussiebroadwan/examprep/pkg/tokenstore"
)

func TestLoginPopulatesSession(t *testing.T) {
	t.Parallel()
	f := newFixture(t, devapi.Options{})

	state := f.login(t, false)

	pair, ok := f.store.Tokens()
	require.True(t, ok)
	require.NotEmpty(t, pair.Access)
	require.NotEmpty(t, pair.Refresh)

	require.True(t, f.ctrl.IsAuthenticated())
	require.Equal(t, session.StatusAuthenticated, state.Status)
	require.True(t, state.IsAuthenticated)
	require.Equal(t, session.ReasonLogin, state.Reason)
	require.NotNil(t, state.CurrentUser)
	require.Equal(t, "alice", state.CurrentUser.Username)
	require.Equal(t, "alice", f.ctrl.CurrentUser().Username)

	cached, ok := f.store.User()
	require.True(t, ok)
	require.Equal(t, "alice", cached.Username)

	require.False(t, f.store.Remembered())
	require.Zero(t, f.durable.Len())
}

func TestLoginRememberMe(t *testing.T) {
	t.Parallel()
	f := newFixture(t, devapi.Options{})

	f.login(t, true)

	require.True(t, f.store.Remembered())
	require.Zero(t, f.ephemeral.Len())
}

func TestLoginFailure(t *testing.T) {
	t.Parallel()
	f := newFixture(t, devapi.Options{})

	state, err := f.ctrl.Login(context.Background(), authclient.Credentials{Username: "alice", Password: "nope"})
	require.Error(t, err)
	require.Equal(t, authclient.MsgBadCredentials, session.UserMessage(err))
	require.Equal(t, session.StatusUnauthenticated, state.Status)
	require.False(t, f.ctrl.IsAuthenticated())
	f.requireEmpty(t)
}

// profileFailing wraps a backend whose profile endpoint is broken.
type profileFailing struct{ session.Backend }

func (profileFailing) Profile(context.Context, string, string) (*authclient.User, error) {
	return nil, &authclient.APIError{StatusCode: http.StatusInternalServerError}
}

func TestLoginSurvivesProfileFailure(t *testing.T) {
	t.Parallel()
	env := devapitest.New(t, devapi.Options{})
	f := newFixtureWithBackend(t, env, profileFailing{env.Client()})

	state := f.login(t, false)

	require.True(t, state.IsAuthenticated)
	require.Nil(t, state.CurrentUser)
	require.True(t, f.ctrl.IsAuthenticated())
}

func TestRegisterDoesNotLogIn(t *testing.T) {
	t.Parallel()
	f := newFixture(t, devapi.Options{})

	res, err := f.ctrl.Register(context.Background(), authclient.RegisterRequest{
		Username:        "new_user",
		Email:           "new@example.com",
		FirstName:       "New",
		LastName:        "User",
		Password:        "Secret1!",
		ConfirmPassword: "Secret1!",
	})
	require.NoError(t, err)
	require.Equal(t, "new_user", res.Username)

	require.False(t, f.ctrl.IsAuthenticated())
	require.Equal(t, session.StatusUnauthenticated, f.ctrl.State().Status)
	f.requireEmpty(t)

	_, err = f.ctrl.Register(context.Background(), authclient.RegisterRequest{Username: "x"})
	var valErr authclient.ValidationErrors
	require.True(t, errors.As(err, &valErr))
}

func TestLogoutIsIdempotent(t *testing.T) {
	t.Parallel()
	f := newFixture(t, devapi.Options{})

	require.NotPanics(t, f.ctrl.Logout)
	f.requireEmpty(t)

	f.login(t, true)
	f.ctrl.Logout()
	f.ctrl.Logout()

	f.requireEmpty(t)
	require.False(t, f.ctrl.IsAuthenticated())
	require.Nil(t, f.ctrl.CurrentUser())
	require.Equal(t, session.ReasonLogout, f.ctrl.State().Reason)
}

func TestInit(t *testing.T) {
	t.Parallel()

	t.Run("nothing stored", func(t *testing.T) {
		f := newFixture(t, devapi.Options{})
		state := f.ctrl.Init(context.Background())
		require.Equal(t, session.StatusUnauthenticated, state.Status)
	})

	t.Run("dead tokens are cleared silently", func(t *testing.T) {
		f := newFixture(t, devapi.Options{})
		pair := f.env.Mint(t, devapitest.Username, -time.Minute, -time.Second)
		require.NoError(t, f.store.SetTokens(pair.Access, pair.Refresh, true))

		state := f.ctrl.Init(context.Background())
		require.Equal(t, session.StatusUnauthenticated, state.Status)
		require.Equal(t, session.ReasonInit, state.Reason)
		f.requireEmpty(t)
	})

	t.Run("recoverable session uses cached user", func(t *testing.T) {
		f := newFixture(t, devapi.Options{})
		pair := f.env.Mint(t, devapitest.Username, -time.Minute, time.Hour)
		require.NoError(t, f.store.SetTokens(pair.Access, pair.Refresh, true))
		require.NoError(t, f.store.SetUser(authclient.User{ID: "1", Username: "alice"}))

		state := f.ctrl.Init(context.Background())
		require.Equal(t, session.StatusAuthenticated, state.Status)
		require.Equal(t, "alice", state.CurrentUser.Username)
		require.True(t, f.ctrl.IsAuthenticated())
		require.Zero(t, f.env.RefreshCalls())
	})

	t.Run("valid session without cached user fetches profile", func(t *testing.T) {
		f := newFixture(t, devapi.Options{})
		pair := f.env.Mint(t, devapitest.Username, time.Minute, time.Hour)
		require.NoError(t, f.store.SetTokens(pair.Access, pair.Refresh, false))

		state := f.ctrl.Init(context.Background())
		require.Equal(t, session.StatusAuthenticated, state.Status)
		require.Equal(t, "alice", state.CurrentUser.Username)
	})
}

func TestRefreshReplacesAccessOnly(t *testing.T) {
	t.Parallel()
	f := newFixture(t, devapi.Options{})
	pair := f.env.Mint(t, devapitest.Username, -10*time.Second, 24*time.Hour)
	require.NoError(t, f.store.SetTokens(pair.Access, pair.Refresh, false))
	f.ctrl.Init(context.Background())

	access, err := f.ctrl.Refresh(context.Background())
	require.NoError(t, err)
	require.NotEqual(t, pair.Access, access)

	stored, ok := f.store.Tokens()
	require.True(t, ok)
	require.Equal(t, access, stored.Access)
	require.Equal(t, pair.Refresh, stored.Refresh)
	require.Equal(t, session.StatusAuthenticated, f.ctrl.State().Status)
	require.True(t, f.ctrl.Validator().IsTokenValid(""))
}

func TestRefreshStoresRotatedToken(t *testing.T) {
	t.Parallel()
	f := newFixture(t, devapi.Options{RotateRefresh: true})
	pair := f.env.Mint(t, devapitest.Username, -10*time.Second, 24*time.Hour)
	require.NoError(t, f.store.SetTokens(pair.Access, pair.Refresh, true))

	_, err := f.ctrl.Refresh(context.Background())
	require.NoError(t, err)

	require.NotEqual(t, pair.Refresh, f.store.RefreshToken())
	require.True(t, f.store.Remembered())
}

func TestRefreshRejectedEndsSession(t *testing.T) {
	t.Parallel()
	f := newFixture(t, devapi.Options{})
	f.login(t, true)
	require.NoError(t, f.env.API.RevokeSessions(devapitest.Username))

	events, cancel := f.ctrl.Subscribe()
	defer cancel()
	<-events // current state

	_, err := f.ctrl.Refresh(context.Background())
	require.ErrorIs(t, err, session.ErrSessionExpired)
	require.Equal(t, session.MsgSessionExpired, session.UserMessage(err))

	state := f.ctrl.State()
	require.Equal(t, session.StatusUnauthenticated, state.Status)
	require.Equal(t, session.ReasonExpired, state.Reason)
	require.Nil(t, state.CurrentUser)
	require.False(t, f.ctrl.IsAuthenticated())
	f.requireEmpty(t)

	var last session.SessionState
	require.Eventually(t, func() bool {
		select {
		case last = <-events:
		default:
		}
		return last.Reason == session.ReasonExpired
	}, time.Second, 5*time.Millisecond)
}

func TestRefreshWithExpiredRefreshTokenSkipsBackend(t *testing.T) {
	t.Parallel()
	f := newFixture(t, devapi.Options{})
	pair := f.env.Mint(t, devapitest.Username, -time.Minute, -time.Second)
	require.NoError(t, f.store.SetTokens(pair.Access, pair.Refresh, false))

	_, err := f.ctrl.Refresh(context.Background())
	require.ErrorIs(t, err, session.ErrSessionExpired)
	require.Zero(t, f.env.RefreshCalls())
	f.requireEmpty(t)
}

// refreshUnreachable simulates a backend that cannot be reached for refresh.
type refreshUnreachable struct{ session.Backend }

func (refreshUnreachable) RefreshToken(context.Context, string) (*authclient.RefreshResponse, error) {
	return nil, &authclient.APIError{Message: "failed to send request", Err: errors.New("connection refused")}
}

func TestRefreshNetworkFailureKeepsSession(t *testing.T) {
	t.Parallel()
	env := devapitest.New(t, devapi.Options{})
	f := newFixtureWithBackend(t, env, refreshUnreachable{env.Client()})
	f.login(t, false)
	before, _ := f.store.Tokens()

	_, err := f.ctrl.Refresh(context.Background())
	require.Error(t, err)
	require.NotErrorIs(t, err, session.ErrSessionExpired)
	require.Equal(t, authclient.MsgNetwork, session.UserMessage(err))

	after, ok := f.store.Tokens()
	require.True(t, ok)
	require.Equal(t, before, after)
	require.Equal(t, session.StatusAuthenticated, f.ctrl.State().Status)
	require.NotNil(t, f.ctrl.CurrentUser())
}

// brokenWrites is a storage area whose writes fail once broken is set.
type brokenWrites struct {
	*tokenstore.Memory
	broken atomic.Bool
}

func (s *brokenWrites) Set(key, value string) error {
	if s.broken.Load() {
		return errors.New("disk full")
	}
	return s.Memory.Set(key, value)
}

func TestRefreshStoreFailureEndsSession(t *testing.T) {
	t.Parallel()
	env := devapitest.New(t, devapi.Options{})
	area := &brokenWrites{Memory: tokenstore.NewMemory()}
	store := tokenstore.New(area, tokenstore.NewMemory(), nil)
	ctrl := session.NewController(session.Config{Backend: env.Client(), Store: store})
	defer ctrl.Close()

	pair := env.Mint(t, devapitest.Username, -10*time.Second, 24*time.Hour)
	require.NoError(t, store.SetTokens(pair.Access, pair.Refresh, false))
	ctrl.Init(context.Background())
	area.broken.Store(true)

	_, err := ctrl.Refresh(context.Background())
	require.ErrorIs(t, err, session.ErrSessionExpired)
	require.Equal(t, 1, env.RefreshCalls())

	state := ctrl.State()
	require.Equal(t, session.StatusUnauthenticated, state.Status)
	require.Equal(t, session.ReasonExpired, state.Reason)
	require.False(t, ctrl.IsAuthenticated())

	_, ok := store.Tokens()
	require.False(t, ok)
	require.Zero(t, area.Len())
}

func TestLogoutDuringRefreshWins(t *testing.T) {
	t.Parallel()
	f := newFixture(t, devapi.Options{})
	f.env.SetRefreshDelay(200 * time.Millisecond)
	pair := f.env.Mint(t, devapitest.Username, -10*time.Second, 24*time.Hour)
	require.NoError(t, f.store.SetTokens(pair.Access, pair.Refresh, true))
	f.ctrl.Init(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := f.ctrl.Refresh(context.Background())
		done <- err
	}()

	require.Eventually(t, func() bool {
		return f.ctrl.State().Status == session.StatusRefreshing
	}, time.Second, time.Millisecond)
	f.ctrl.Logout()

	require.ErrorIs(t, <-done, session.ErrSessionExpired)
	require.Equal(t, session.StatusUnauthenticated, f.ctrl.State().Status)
	require.Equal(t, session.ReasonLogout, f.ctrl.State().Reason)
	f.requireEmpty(t)
}

func TestRefreshLoadsMissingProfile(t *testing.T) {
	t.Parallel()
	f := newFixture(t, devapi.Options{})
	pair := f.env.Mint(t, devapitest.Username, -10*time.Second, 24*time.Hour)
	require.NoError(t, f.store.SetTokens(pair.Access, pair.Refresh, false))

	state := f.ctrl.Init(context.Background())
	require.Equal(t, session.StatusAuthenticated, state.Status)
	require.Nil(t, state.CurrentUser)

	_, err := f.ctrl.Refresh(context.Background())
	require.NoError(t, err)

	user := f.ctrl.CurrentUser()
	require.NotNil(t, user)
	require.Equal(t, devapitest.Username, user.Username)
	require.Equal(t, session.StatusAuthenticated, f.ctrl.State().Status)

	cached, ok := f.store.User()
	require.True(t, ok)
	require.Equal(t, devapitest.Username, cached.Username)
}

func TestReloadUser(t *testing.T) {
	t.Parallel()
	env := devapitest.New(t, devapi.Options{})
	f := newFixtureWithBackend(t, env, profileFailing{env.Client()})
	f.login(t, false)
	require.Nil(t, f.ctrl.CurrentUser())

	// Swap in a working backend over the same store.
	ctrl := session.NewController(session.Config{Backend: env.Client(), Store: f.store})
	defer ctrl.Close()
	ctrl.Init(context.Background())

	user, err := ctrl.ReloadUser(context.Background())
	require.NoError(t, err)
	require.Equal(t, "alice", user.Username)
	require.Equal(t, "alice", ctrl.CurrentUser().Username)
}

func TestSubscribe(t *testing.T) {
	t.Parallel()
	f := newFixture(t, devapi.Options{})

	events, cancel := f.ctrl.Subscribe()

	initial := <-events
	require.Equal(t, session.StatusUnauthenticated, initial.Status)

	f.login(t, false)
	next := <-events
	require.Equal(t, session.StatusAuthenticated, next.Status)
	require.Equal(t, "alice", next.CurrentUser.Username)

	// Snapshots are private copies.
	next.CurrentUser.Username = "mallory"
	require.Equal(t, "alice", f.ctrl.CurrentUser().Username)

	cancel()
	cancel()
	_, open := <-events
	require.False(t, open)
}

func TestSlowSubscriberSeesLatestState(t *testing.T) {
	t.Parallel()
	f := newFixture(t, devapi.Options{})

	events, cancel := f.ctrl.Subscribe()
	defer cancel()

	f.login(t, false)
	f.ctrl.Logout()
	f.login(t, true)

	latest := <-events
	require.Equal(t, session.StatusAuthenticated, latest.Status)
	require.Equal(t, session.ReasonLogin, latest.Reason)

	select {
	case extra := <-events:
		t.Fatalf("unexpected queued state %+v", extra)
	default:
	}
}
