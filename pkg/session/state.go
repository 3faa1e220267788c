package session

import "github.com/aussiebroadwan/examprep/pkg/authclient"

// Status is the controller's position in the session state machine.
type Status int

const (
	StatusUnauthenticated Status = iota
	StatusAuthenticated
	StatusRefreshing
)

func (s Status) String() string {
	switch s {
	case StatusAuthenticated:
		return "authenticated"
	case StatusRefreshing:
		return "refreshing"
	default:
		return "unauthenticated"
	}
}

func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Reason records what caused the latest transition.
type Reason string

const (
	ReasonInit    Reason = "init"
	ReasonLogin   Reason = "login"
	ReasonLogout  Reason = "logout"
	ReasonRefresh Reason = "refresh"
	ReasonExpired Reason = "expired"
	ReasonProfile Reason = "profile"
)

// SessionState is an immutable snapshot. CurrentUser points at a private
// copy; mutating it does not affect the controller.
type SessionState struct {
	Status          Status           `json:"status"`
	IsAuthenticated bool             `json:"is_authenticated"`
	CurrentUser     *authclient.User `json:"current_user"`
	Reason          Reason           `json:"reason,omitempty"`
}

func newState(status Status, user *authclient.User, reason Reason) SessionState {
	return SessionState{
		Status:          status,
		IsAuthenticated: status != StatusUnauthenticated,
		CurrentUser:     cloneUser(user),
		Reason:          reason,
	}
}

func cloneUser(u *authclient.User) *authclient.User {
	if u == nil {
		return nil
	}
	c := *u
	if u.Preferences != nil {
		p := *u.Preferences
		if p.Notifications != nil {
			n := *p.Notifications
			p.Notifications = &n
		}
		if p.Privacy != nil {
			pr := *p.Privacy
			p.Privacy = &pr
		}
		c.Preferences = &p
	}
	if u.IsActive != nil {
		a := *u.IsActive
		c.IsActive = &a
	}
	return &c
}
