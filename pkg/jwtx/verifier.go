package jwtx

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Verifier validates a JWT and gives you back the claims if it's legit.
type Verifier interface {
	Verify(token string) (*Claims, error)
}

// EdDSAVerifier validates JWTs signed with a single Ed25519 key.
type EdDSAVerifier struct {
	kid    string
	pub    ed25519.PublicKey
	issuer string
	leeway time.Duration
	now    func() time.Time
}

// NewVerifierEdDSA creates a verifier for tokens minted by signer.
func NewVerifierEdDSA(signer Signer, issuer string) *EdDSAVerifier {
	return &EdDSAVerifier{
		kid:    signer.KID(),
		pub:    signer.Public(),
		issuer: issuer,
		leeway: 5 * time.Second,
		now:    time.Now,
	}
}

// WithClock replaces the time source used for exp checks.
func (v *EdDSAVerifier) WithClock(now func() time.Time) *EdDSAVerifier {
	v.now = now
	return v
}

// Verify validates the JWT string and returns its parsed Claims.
func (v *EdDSAVerifier) Verify(tokenStr string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.leeway),
		jwt.WithTimeFunc(v.now),
	)

	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		if kid, _ := t.Header["kid"].(string); kid != v.kid {
			return nil, fmt.Errorf("jwtx: unknown kid %q", kid)
		}
		return v.pub, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, fmt.Errorf("jwtx: parse or verify: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaim
	}
	if v.issuer != "" && claims.Issuer != v.issuer {
		return nil, ErrInvalidClaim
	}
	return claims, nil
}
