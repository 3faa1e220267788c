package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default token lifetimes issued by the development backend.
const (
	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 24 * time.Hour
)

// Token types carried in the "token_type" claim.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

var (
	ErrMalformed    = errors.New("jwtx: malformed token")
	ErrExpired      = errors.New("jwtx: token expired")
	ErrInvalidClaim = errors.New("jwtx: invalid claims")
)

// Claims mirror what the exam backend puts into its tokens. Only exp is
// guaranteed; access tokens also carry the user identifier.
type Claims struct {
	jwt.RegisteredClaims

	TokenType string   `json:"token_type,omitempty"`
	UserID    StringID `json:"user_id,omitempty"`
	Username  string   `json:"username,omitempty"`
	Role      string   `json:"role,omitempty"`
}

// StringID is a claim that some backends encode as a JSON number and others
// as a string.
type StringID string

func (id *StringID) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] != '"' {
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*id = StringID(n.String())
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*id = StringID(s)
	return nil
}

func (id StringID) String() string { return string(id) }

// NewAccessClaims builds minimally-correct access token claims.
func NewAccessClaims(userID, username, role, issuer string, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: registered(userID, issuer, ttl, now),
		TokenType:        TokenTypeAccess,
		UserID:           StringID(userID),
		Username:         username,
		Role:             role,
	}
}

// NewRefreshClaims builds refresh token claims. Refresh tokens carry the
// user id so a backend can mint a new access token from them alone.
func NewRefreshClaims(userID, issuer string, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: registered(userID, issuer, ttl, now),
		TokenType:        TokenTypeRefresh,
		UserID:           StringID(userID),
	}
}

func registered(subject, issuer string, ttl time.Duration, now time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        NewJTI(),
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// Decode reads the payload of a JWT without verifying its signature. The
// client has no key material; it only needs exp and the user claims to
// decide whether a token is worth sending. Tokens without exp are
// malformed.
func Decode(token string) (*Claims, error) {
	if token == "" {
		return nil, ErrMalformed
	}

	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, errors.Join(ErrMalformed, err)
	}
	if claims.ExpiresAt == nil {
		return nil, ErrMalformed
	}
	return claims, nil
}

// ExpiresAt returns the exp claim of token, or false when it cannot be decoded.
func ExpiresAt(token string) (time.Time, bool) {
	claims, err := Decode(token)
	if err != nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// IsValidAt reports whether token decodes and its exp is strictly after now.
func IsValidAt(token string, now time.Time) bool {
	exp, ok := ExpiresAt(token)
	return ok && now.Before(exp)
}
