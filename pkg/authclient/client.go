package authclient

import (
	"net/http"
	"strings"
	"time"
)

// Backend endpoint paths, relative to BaseURL.
const (
	PathLogin         = "/login/"
	PathRegister      = "/register/"
	PathTokenRefresh  = "/token/refresh/"
	PathPasswordReset = "/password-reset/"
	PathProfile       = "/profile/"
)

// Client talks to the exam platform REST backend. It performs no token
// management of its own; callers pass the access token where one is needed.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client

	// ProfilePath is the endpoint returning the current user. A "{id}"
	// placeholder is replaced with the user id from the access token,
	// e.g. "/users/{id}/". Default: "/profile/".
	ProfilePath string
}

// NewClient creates a backend client with a 10 second timeout.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		ProfilePath: PathProfile,
	}
}

// AuthPaths lists the endpoints that must never carry or trigger bearer
// authentication.
func AuthPaths() []string {
	return []string{PathLogin, PathRegister, PathPasswordReset, PathTokenRefresh}
}
