package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/aussiebroadwan/examprep/pkg/authclient"
	"github.com/aussiebroadwan/examprep/pkg/jwtx"
	"github.com/aussiebroadwan/examprep/pkg/slogx"
	"github.com/aussiebroadwan/examprep/pkg/tokenstore"
)

// Backend is the subset of the REST backend the controller calls.
// *authclient.Client implements it.
type Backend interface {
	Login(ctx context.Context, creds authclient.Credentials) (*authclient.LoginResponse, error)
	Register(ctx context.Context, req authclient.RegisterRequest) (*authclient.RegisterResponse, error)
	RefreshToken(ctx context.Context, refresh string) (*authclient.RefreshResponse, error)
	Profile(ctx context.Context, access, userID string) (*authclient.User, error)
}

// Config wires a Controller.
type Config struct {
	Backend Backend
	Store   *tokenstore.Store
	Logger  *slog.Logger

	// Now overrides the clock used for expiry checks.
	Now func() time.Time
}

// Controller owns the session. Every state change goes through its methods
// and is broadcast to subscribers.
type Controller struct {
	backend   Backend
	store     *tokenstore.Store
	validator *Validator
	logger    *slog.Logger

	flight singleflight.Group

	mu    sync.Mutex
	state SessionState
	// epoch changes every time the session is cleared or replaced.
	epoch   uint64
	subs    map[int]chan SessionState
	nextSub int
}

func NewController(cfg Config) *Controller {
	logger := cfg.Logger
	if logger == nil {
		logger = slogx.Discard()
	}
	return &Controller{
		backend:   cfg.Backend,
		store:     cfg.Store,
		validator: NewValidator(cfg.Store, cfg.Now),
		logger:    logger,
		state:     newState(StatusUnauthenticated, nil, ""),
		subs:      make(map[int]chan SessionState),
	}
}

// Validator exposes the controller's token validator.
func (c *Controller) Validator() *Validator { return c.validator }

// Init rehydrates the session from the token store. Stored tokens that can
// no longer produce a valid access token are cleared silently.
func (c *Controller) Init(ctx context.Context) SessionState {
	pair, ok := c.store.Tokens()
	if !ok || (!c.validator.IsTokenValid(pair.Access) && !c.validator.IsRefreshTokenValid()) {
		if err := c.store.RemoveTokens(); err != nil {
			c.logger.Warn("failed to clear stale session", slog.Any("error", err))
		}
		return c.transition(StatusUnauthenticated, nil, ReasonInit)
	}

	user, _ := c.store.User()
	if user == nil && c.validator.IsTokenValid(pair.Access) {
		user = c.fetchUser(ctx, pair.Access)
	}

	c.logger.Info("session restored",
		slog.Bool("remembered", c.store.Remembered()),
		slog.Bool("access_valid", c.validator.IsTokenValid(pair.Access)),
	)
	return c.transition(StatusAuthenticated, user, ReasonInit)
}

// Login authenticates with the backend and stores the resulting tokens in
// the area selected by creds.RememberMe. The profile is fetched on a best
// effort basis; without it the session is still authenticated.
func (c *Controller) Login(ctx context.Context, creds authclient.Credentials) (SessionState, error) {
	res, err := c.backend.Login(ctx, creds)
	if err != nil {
		c.logger.Info("login failed", slog.String("username", creds.Username), slog.Any("error", err))
		return c.State(), err
	}

	if err := c.store.SetTokens(res.Tokens.Access, res.Tokens.Refresh, creds.RememberMe); err != nil {
		return c.State(), fmt.Errorf("store tokens: %w", err)
	}
	c.mu.Lock()
	c.epoch++
	c.mu.Unlock()

	user := res.User
	if user == nil || user.ID == "" {
		user = c.fetchUser(ctx, res.Tokens.Access)
	} else if err := c.store.SetUser(*user); err != nil {
		c.logger.Warn("failed to cache user", slog.Any("error", err))
	}

	c.logger.Info("login succeeded",
		slog.String("username", creds.Username),
		slog.Bool("remember_me", creds.RememberMe),
		slogx.RedactToken("access", res.Tokens.Access),
	)
	return c.transition(StatusAuthenticated, user, ReasonLogin), nil
}

// Register creates an account. It never changes the session; the caller
// is expected to send the user to the login page afterwards.
func (c *Controller) Register(ctx context.Context, req authclient.RegisterRequest) (*authclient.RegisterResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return c.backend.Register(ctx, req)
}

// Logout clears all stored state. It always succeeds and may be called
// any number of times.
func (c *Controller) Logout() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.epoch++
	if err := c.store.RemoveTokens(); err != nil {
		c.logger.Warn("failed to clear token storage", slog.Any("error", err))
	}
	c.setLocked(newState(StatusUnauthenticated, nil, ReasonLogout))
}

// Refresh obtains a new access token. Concurrent callers share one backend
// call. A rejected or unusable refresh token ends the session and returns
// ErrSessionExpired; transport failures keep the session and return the
// underlying error.
func (c *Controller) Refresh(ctx context.Context) (string, error) {
	ch := c.flight.DoChan("refresh", func() (any, error) {
		return c.refresh(context.WithoutCancel(ctx))
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// freshToken returns a usable access token for a caller that found stale
// unusable. If another caller already replaced it, no refresh is made.
func (c *Controller) freshToken(ctx context.Context, stale string) (string, error) {
	if current := c.store.AccessToken(); current != stale && c.validator.IsTokenValid(current) {
		return current, nil
	}
	return c.Refresh(ctx)
}

func (c *Controller) refresh(ctx context.Context) (string, error) {
	c.mu.Lock()
	epoch := c.epoch
	c.mu.Unlock()

	refresh := c.store.RefreshToken()
	if refresh == "" || !c.validator.IsRefreshTokenValid() {
		c.expire("refresh token missing or expired")
		return "", ErrSessionExpired
	}

	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		return "", ErrSessionExpired
	}
	prev := c.state
	c.setLocked(newState(StatusRefreshing, prev.CurrentUser, ReasonRefresh))
	c.mu.Unlock()

	res, err := c.backend.RefreshToken(ctx, refresh)
	if err != nil {
		if isRejection(err) {
			c.expire("refresh token rejected")
			return "", fmt.Errorf("%w: %w", ErrSessionExpired, err)
		}

		c.logger.Warn("token refresh failed", slog.Any("error", err))
		c.mu.Lock()
		if c.state.Status == StatusRefreshing {
			c.setLocked(newState(StatusAuthenticated, c.state.CurrentUser, prev.Reason))
		}
		c.mu.Unlock()
		return "", err
	}

	c.mu.Lock()
	// A logout while the call was in flight wins.
	if c.epoch != epoch {
		c.mu.Unlock()
		return "", ErrSessionExpired
	}
	if err := c.store.UpdateAccessToken(res.Access); err != nil {
		c.expireLocked("refreshed token could not be stored")
		c.mu.Unlock()
		return "", fmt.Errorf("%w: %w", ErrSessionExpired, err)
	}
	if res.Refresh != "" {
		if err := c.store.UpdateRefreshToken(res.Refresh); err != nil {
			c.logger.Warn("failed to store rotated refresh token", slog.Any("error", err))
		}
	}

	c.logger.Debug("access token refreshed",
		slogx.RedactToken("access", res.Access),
		slog.Bool("rotated", res.Refresh != ""),
	)
	user := c.state.CurrentUser
	c.setLocked(newState(StatusAuthenticated, user, ReasonRefresh))
	c.mu.Unlock()

	if user == nil {
		c.loadMissingUser(ctx, epoch, res.Access)
	}
	return res.Access, nil
}

// loadMissingUser fills in the profile after a refresh restored a session
// that had none cached. A failure leaves the session without a profile.
func (c *Controller) loadMissingUser(ctx context.Context, epoch uint64, access string) {
	user := c.fetchUser(ctx, access)
	if user == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch || c.state.Status == StatusUnauthenticated || c.state.CurrentUser != nil {
		return
	}
	c.setLocked(newState(c.state.Status, user, ReasonProfile))
}

// isRejection reports whether the backend refused the refresh token itself,
// as opposed to being unreachable or failing internally.
func isRejection(err error) bool {
	var apiErr *authclient.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.StatusCode {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
		return true
	}
	return false
}

func (c *Controller) expire(why string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.expireLocked(why)
}

// expireLocked clears the session. Must be called with mu held.
func (c *Controller) expireLocked(why string) {
	c.epoch++
	c.logger.Info("session expired", slog.String("cause", why))
	if err := c.store.RemoveTokens(); err != nil {
		c.logger.Warn("failed to clear token storage", slog.Any("error", err))
	}
	c.setLocked(newState(StatusUnauthenticated, nil, ReasonExpired))
}

// IsAuthenticated combines token validity with the in-memory state.
func (c *Controller) IsAuthenticated() bool {
	return c.validator.HasValidSession() && c.State().Status != StatusUnauthenticated
}

// State returns the current snapshot.
func (c *Controller) State() SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.state
	s.CurrentUser = cloneUser(s.CurrentUser)
	return s
}

// CurrentUser returns a copy of the cached profile, or nil.
func (c *Controller) CurrentUser() *authclient.User {
	return c.State().CurrentUser
}

// ReloadUser fetches the profile again, refreshing the access token first
// when needed.
func (c *Controller) ReloadUser(ctx context.Context) (*authclient.User, error) {
	access := c.store.AccessToken()
	if !c.validator.IsTokenValid(access) {
		var err error
		if access, err = c.Refresh(ctx); err != nil {
			return nil, err
		}
	}

	user, err := c.loadUser(ctx, access)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Status == StatusUnauthenticated {
		return nil, ErrSessionExpired
	}
	if err := c.store.SetUser(*user); err != nil {
		c.logger.Warn("failed to cache user", slog.Any("error", err))
	}
	c.setLocked(newState(c.state.Status, user, ReasonProfile))
	return cloneUser(user), nil
}

// fetchUser loads and caches the profile, logging and returning nil on
// failure.
func (c *Controller) fetchUser(ctx context.Context, access string) *authclient.User {
	user, err := c.loadUser(ctx, access)
	if err != nil {
		c.logger.Warn("failed to load user profile", slog.Any("error", err))
		return nil
	}
	if err := c.store.SetUser(*user); err != nil {
		c.logger.Warn("failed to cache user", slog.Any("error", err))
	}
	return user
}

func (c *Controller) loadUser(ctx context.Context, access string) (*authclient.User, error) {
	var userID string
	if claims, err := jwtx.Decode(access); err == nil {
		userID = claims.UserID.String()
	}
	return c.backend.Profile(ctx, access, userID)
}

func (c *Controller) transition(status Status, user *authclient.User, reason Reason) SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.setLocked(newState(status, user, reason))
	s := c.state
	s.CurrentUser = cloneUser(s.CurrentUser)
	return s
}

// ============================================================================
// Subscriptions
// ============================================================================

// Subscribe returns a channel that receives the current state immediately
// and every later change. A slow reader only ever sees the latest pending
// state. Call cancel to unsubscribe; it closes the channel.
func (c *Controller) Subscribe() (<-chan SessionState, func()) {
	ch := make(chan SessionState, 1)

	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	ch <- c.snapshotLocked()
	c.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if _, ok := c.subs[id]; ok {
				delete(c.subs, id)
				close(ch)
			}
		})
	}
	return ch, cancel
}

// Close unsubscribes everyone.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
}

// setLocked replaces the state and notifies subscribers. Must be called
// with mu held.
func (c *Controller) setLocked(s SessionState) {
	if reflect.DeepEqual(c.state, s) {
		return
	}
	c.state = s

	for _, ch := range c.subs {
		snap := c.snapshotLocked()
		select {
		case ch <- snap:
		default:
			// Replace the stale pending value.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

func (c *Controller) snapshotLocked() SessionState {
	s := c.state
	s.CurrentUser = cloneUser(s.CurrentUser)
	return s
}
