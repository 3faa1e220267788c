package authclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Roles known to the platform.
const (
	RoleAdmin     = "admin"
	RoleUser      = "user"
	RoleModerator = "moderator"
)

// ============================================================================
// Tokens
// ============================================================================

// TokenPair is an access/refresh JWT pair.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Complete reports whether both tokens are present.
func (p TokenPair) Complete() bool {
	return p.Access != "" && p.Refresh != ""
}

// Credentials are submitted by the login form. RememberMe is a client side
// decision and is never sent to the backend.
type Credentials struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	RememberMe bool   `json:"-"`
}

// LoginResponse is the login endpoint reply. Older backend revisions wrap
// the pair as {"token": {...}}; both shapes decode into Tokens.
type LoginResponse struct {
	Tokens TokenPair
	User   *User
}

func (r *LoginResponse) UnmarshalJSON(data []byte) error {
	var wire struct {
		Access  string     `json:"access"`
		Refresh string     `json:"refresh"`
		Token   *TokenPair `json:"token"`
		User    *User      `json:"user"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	r.Tokens = TokenPair{Access: wire.Access, Refresh: wire.Refresh}
	if !r.Tokens.Complete() && wire.Token != nil {
		r.Tokens = *wire.Token
	}
	r.User = wire.User
	return nil
}

// RefreshResponse is the refresh endpoint reply. Refresh is set only when
// the backend rotates refresh tokens.
type RefreshResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

// ============================================================================
// Users
// ============================================================================

// UserID accepts both numeric and string ids from the backend.
type UserID string

func (id *UserID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = UserID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("user id: %w", err)
	}
	if _, err := strconv.ParseInt(n.String(), 10, 64); err != nil {
		return fmt.Errorf("user id %q: %w", n, err)
	}
	*id = UserID(n.String())
	return nil
}

func (id UserID) String() string { return string(id) }

// User is the profile record the backend returns for the current user.
type User struct {
	ID          UserID           `json:"id"`
	FirstName   string           `json:"first_name"`
	LastName    string           `json:"last_name"`
	Username    string           `json:"username"`
	Email       string           `json:"email"`
	Role        string           `json:"role"`
	Avatar      string           `json:"avatar,omitempty"`
	IsActive    *bool            `json:"is_active,omitempty"`
	Preferences *UserPreferences `json:"preferences,omitempty"`
}

// HasRole reports whether the user's role is one of roles.
func (u *User) HasRole(roles ...string) bool {
	if u == nil || u.Role == "" {
		return false
	}
	for _, r := range roles {
		if u.Role == r {
			return true
		}
	}
	return false
}

type UserPreferences struct {
	Theme         string                   `json:"theme,omitempty"` // "light" | "dark"
	Language      string                   `json:"language,omitempty"`
	Notifications *NotificationPreferences `json:"notifications,omitempty"`
	Privacy       *PrivacyPreferences      `json:"privacy,omitempty"`
}

type NotificationPreferences struct {
	Email bool `json:"email"`
	Push  bool `json:"push"`
	SMS   bool `json:"sms"`
}

type PrivacyPreferences struct {
	ProfileVisibility string `json:"profile_visibility,omitempty"` // "public" | "private"
	ShowEmail         bool   `json:"show_email"`
}

// ============================================================================
// Registration
// ============================================================================

// RegisterRequest is the registration payload.
type RegisterRequest struct {
	Username        string `json:"username" validate:"required,username"`
	Email           string `json:"email" validate:"required,email"`
	FirstName       string `json:"first_name" validate:"required,personname"`
	LastName        string `json:"last_name" validate:"required,personname"`
	Password        string `json:"password" validate:"required,strongpassword"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
}

// RegisterResponse is the created-user confirmation.
type RegisterResponse struct {
	ID       UserID `json:"id,omitempty"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Message  string `json:"message,omitempty"`
}
