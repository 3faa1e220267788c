package authclient

import (
	"context"
	"fmt"
	"net/http"
)

// Login exchanges credentials for a token pair.
func (c *Client) Login(ctx context.Context, creds Credentials) (*LoginResponse, error) {
	resp, err := c.doJSON(ctx, http.MethodPost, PathLogin, "", creds)
	if err != nil {
		return nil, err
	}

	var out LoginResponse
	if err := decodeJSON(resp, &out); err != nil {
		return nil, err
	}
	if !out.Tokens.Complete() {
		return nil, fmt.Errorf("%w: login response is missing a token", ErrMalformedResponse)
	}
	return &out, nil
}

// Register creates an account. The payload is validated locally first and
// a ValidationErrors is returned without contacting the backend when it
// fails.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	resp, err := c.doJSON(ctx, http.MethodPost, PathRegister, "", req)
	if err != nil {
		return nil, err
	}

	var out RegisterResponse
	if err := decodeJSON(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RefreshToken obtains a new access token. The returned Refresh is empty
// unless the backend rotated the refresh token.
func (c *Client) RefreshToken(ctx context.Context, refresh string) (*RefreshResponse, error) {
	payload := map[string]string{"refresh": refresh}

	resp, err := c.doJSON(ctx, http.MethodPost, PathTokenRefresh, "", payload)
	if err != nil {
		return nil, err
	}

	var out RefreshResponse
	if err := decodeJSON(resp, &out); err != nil {
		return nil, err
	}
	if out.Access == "" {
		return nil, fmt.Errorf("%w: refresh response is missing access", ErrMalformedResponse)
	}
	return &out, nil
}

// PasswordReset asks the backend to send a reset link to email.
func (c *Client) PasswordReset(ctx context.Context, email string) error {
	payload := map[string]string{"email": email}

	resp, err := c.doJSON(ctx, http.MethodPost, PathPasswordReset, "", payload)
	if err != nil {
		return err
	}
	return decodeJSON(resp, nil)
}
