package session

import (
	"time"

	"github.com/aussiebroadwan/examprep/pkg/jwtx"
)

// TokenSource is the read side of the token store.
type TokenSource interface {
	AccessToken() string
	RefreshToken() string
}

// Validator answers token validity questions from the claims alone. It
// never contacts the backend and never returns errors: anything that cannot
// be decoded is invalid.
type Validator struct {
	tokens TokenSource
	now    func() time.Time
}

// NewValidator creates a Validator. A nil now uses time.Now.
func NewValidator(tokens TokenSource, now func() time.Time) *Validator {
	if now == nil {
		now = time.Now
	}
	return &Validator{tokens: tokens, now: now}
}

// IsTokenValid reports whether token decodes and expires strictly in the
// future. An empty token checks the stored access token.
func (v *Validator) IsTokenValid(token string) bool {
	if token == "" {
		token = v.tokens.AccessToken()
	}
	return jwtx.IsValidAt(token, v.now())
}

// ExpirationDate returns the exp claim of token, or the stored access
// token when token is empty.
func (v *Validator) ExpirationDate(token string) (time.Time, bool) {
	if token == "" {
		token = v.tokens.AccessToken()
	}
	return jwtx.ExpiresAt(token)
}

// IsRefreshTokenValid reports whether the stored refresh token is unexpired.
func (v *Validator) IsRefreshTokenValid() bool {
	return jwtx.IsValidAt(v.tokens.RefreshToken(), v.now())
}

// ShouldRefresh is true when the access token is unusable but a refresh
// token is stored.
func (v *Validator) ShouldRefresh() bool {
	return !v.IsTokenValid("") && v.tokens.RefreshToken() != ""
}

// HasValidSession is true when the access token is valid or the session is
// recoverable through a refresh.
func (v *Validator) HasValidSession() bool {
	return v.IsTokenValid("") || v.tokens.RefreshToken() != ""
}
