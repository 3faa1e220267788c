package tokenstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/aussiebroadwan/examprep/pkg/authclient"
	"github.com/aussiebroadwan/examprep/pkg/slogx"
)

// Storage keys.
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyCurrentUser  = "current_user"
	KeyRememberMe   = "remember_me"
)

var allKeys = []string{KeyAccessToken, KeyRefreshToken, KeyCurrentUser, KeyRememberMe}

var (
	// ErrIncompletePair is returned by SetTokens when either token is empty.
	ErrIncompletePair = errors.New("tokenstore: access and refresh tokens are both required")

	// ErrNoSession is returned by updates when no token pair is stored.
	ErrNoSession = errors.New("tokenstore: no session stored")
)

// Store keeps the token pair and cached user in exactly one of two areas:
// the ephemeral one by default, or the durable one when the user asked to
// be remembered. Reads prefer the ephemeral area. An area holding only half
// a pair counts as empty.
type Store struct {
	mu        sync.Mutex
	ephemeral Storage
	durable   Storage
	logger    *slog.Logger
}

// New creates a Store. A nil logger discards output.
func New(ephemeral, durable Storage, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slogx.Discard()
	}
	return &Store{
		ephemeral: ephemeral,
		durable:   durable,
		logger:    logger,
	}
}

// SetTokens writes the pair to the area selected by remember and clears
// every key from the other area. Any previously cached user is dropped.
func (s *Store) SetTokens(access, refresh string, remember bool) error {
	if access == "" || refresh == "" {
		return ErrIncompletePair
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	target, other := s.ephemeral, s.durable
	if remember {
		target, other = s.durable, s.ephemeral
	}

	if err := other.Delete(allKeys...); err != nil {
		return fmt.Errorf("clear previous area: %w", err)
	}
	if err := target.Delete(KeyCurrentUser); err != nil {
		return fmt.Errorf("clear cached user: %w", err)
	}

	// Refresh first so a crash between writes leaves a partial pair, which
	// reads treat as absent.
	if err := target.Set(KeyRefreshToken, refresh); err != nil {
		return fmt.Errorf("write refresh token: %w", err)
	}
	if err := target.Set(KeyAccessToken, access); err != nil {
		return fmt.Errorf("write access token: %w", err)
	}
	if err := target.Set(KeyRememberMe, strconv.FormatBool(remember)); err != nil {
		return fmt.Errorf("write remember flag: %w", err)
	}
	return nil
}

// AccessToken returns the stored access token, or "" when there is no
// complete pair.
func (s *Store) AccessToken() string {
	pair, _ := s.Tokens()
	return pair.Access
}

// RefreshToken returns the stored refresh token, or "" when there is no
// complete pair.
func (s *Store) RefreshToken() string {
	pair, _ := s.Tokens()
	return pair.Refresh
}

// Tokens returns the complete pair from the authoritative area.
func (s *Store) Tokens() (authclient.TokenPair, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, pair, ok := s.locate()
	return pair, ok
}

// Remembered reports whether the pair lives in the durable area.
func (s *Store) Remembered() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if pair, err := readPair(s.ephemeral); err == nil && pair.Complete() {
		return false
	}
	pair, err := readPair(s.durable)
	return err == nil && pair.Complete()
}

// UpdateAccessToken replaces the access token in whichever area holds the
// pair.
func (s *Store) UpdateAccessToken(access string) error {
	return s.update(KeyAccessToken, access)
}

// UpdateRefreshToken replaces the refresh token in whichever area holds the
// pair. Used when the backend rotates refresh tokens.
func (s *Store) UpdateRefreshToken(refresh string) error {
	return s.update(KeyRefreshToken, refresh)
}

func (s *Store) update(key, value string) error {
	if value == "" {
		return ErrIncompletePair
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	area, _, ok := s.locate()
	if !ok {
		return ErrNoSession
	}
	if err := area.Set(key, value); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// RemoveTokens deletes every key from both areas. Safe to call repeatedly.
// Both areas are always attempted; the errors are joined.
func (s *Store) RemoveTokens() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return errors.Join(
		s.ephemeral.Delete(allKeys...),
		s.durable.Delete(allKeys...),
	)
}

// SetUser caches the profile next to the token pair.
func (s *Store) SetUser(user authclient.User) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	area, _, ok := s.locate()
	if !ok {
		return ErrNoSession
	}
	if err := area.Set(KeyCurrentUser, string(raw)); err != nil {
		return fmt.Errorf("write user: %w", err)
	}
	return nil
}

// User returns the cached profile. A cached value that cannot be decoded
// is deleted and reported as absent.
func (s *Store) User() (*authclient.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	area, _, ok := s.locate()
	if !ok {
		return nil, false
	}

	raw, ok, err := area.Get(KeyCurrentUser)
	if err != nil {
		s.logger.Warn("failed to read cached user", slog.Any("error", err))
		return nil, false
	}
	if !ok || raw == "" {
		return nil, false
	}

	var user authclient.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		s.logger.Warn("discarding corrupt cached user", slog.Any("error", err))
		_ = area.Delete(KeyCurrentUser)
		return nil, false
	}
	return &user, true
}

// locate finds the area holding a complete pair, ephemeral first. Must be
// called with mu held.
func (s *Store) locate() (Storage, authclient.TokenPair, bool) {
	for _, area := range []Storage{s.ephemeral, s.durable} {
		pair, err := readPair(area)
		if err != nil {
			s.logger.Warn("failed to read token storage", slog.Any("error", err))
			continue
		}
		if pair.Complete() {
			return area, pair, true
		}
	}
	return nil, authclient.TokenPair{}, false
}

func readPair(area Storage) (authclient.TokenPair, error) {
	access, _, err := area.Get(KeyAccessToken)
	if err != nil {
		return authclient.TokenPair{}, err
	}
	refresh, _, err := area.Get(KeyRefreshToken)
	if err != nil {
		return authclient.TokenPair{}, err
	}
	return authclient.TokenPair{Access: access, Refresh: refresh}, nil
}
