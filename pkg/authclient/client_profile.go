package authclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Profile fetches the current user with the given access token. userID
// fills the "{id}" placeholder of ProfilePath and is ignored otherwise.
func (c *Client) Profile(ctx context.Context, access, userID string) (*User, error) {
	path := c.ProfilePath
	if path == "" {
		path = PathProfile
	}
	if strings.Contains(path, "{id}") {
		if userID == "" {
			return nil, fmt.Errorf("authclient: profile path %q needs a user id", path)
		}
		path = strings.ReplaceAll(path, "{id}", url.PathEscape(userID))
	}

	resp, err := c.doJSON(ctx, http.MethodGet, path, access, nil)
	if err != nil {
		return nil, err
	}

	var user User
	if err := decodeJSON(resp, &user); err != nil {
		return nil, err
	}
	if user.ID == "" || user.Username == "" {
		return nil, fmt.Errorf("%w: profile is missing id or username", ErrMalformedResponse)
	}
	return &user, nil
}
