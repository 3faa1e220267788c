package devapi

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/examprep/pkg/authclient"
	"github.com/aussiebroadwan/examprep/pkg/idx"
)

var (
	ErrUserExists   = errors.New("devapi: username or email already registered")
	ErrUserNotFound = errors.New("devapi: user not found")
)

// User is a registered account.
type User struct {
	ID           idx.ID
	Username     string
	Email        string
	FirstName    string
	LastName     string
	Role         string
	PasswordHash string
	CreatedAt    time.Time
}

// Profile is the wire representation of u.
func (u User) Profile() authclient.User {
	active := true
	return authclient.User{
		ID:        authclient.UserID(u.ID.String()),
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role,
		IsActive:  &active,
	}
}

// Registry is an in-memory user table. Usernames and emails are unique,
// compared case-insensitively.
type Registry struct {
	mu         sync.RWMutex
	byID       map[idx.ID]User
	byUsername map[string]idx.ID
	byEmail    map[string]idx.ID
}

func NewRegistry() *Registry {
	return &Registry{
		byID:       make(map[idx.ID]User),
		byUsername: make(map[string]idx.ID),
		byEmail:    make(map[string]idx.ID),
	}
}

// Create stores u, assigning an id when it has none.
func (r *Registry) Create(u User) (User, error) {
	uname, email := strings.ToLower(u.Username), strings.ToLower(u.Email)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byUsername[uname]; ok {
		return User{}, ErrUserExists
	}
	if _, ok := r.byEmail[email]; ok && email != "" {
		return User{}, ErrUserExists
	}

	if u.ID.IsZero() {
		u.ID = idx.New()
	}
	if u.Role == "" {
		u.Role = authclient.RoleUser
	}

	r.byID[u.ID] = u
	r.byUsername[uname] = u.ID
	if email != "" {
		r.byEmail[email] = u.ID
	}
	return u, nil
}

func (r *Registry) ByUsername(username string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byUsername[strings.ToLower(username)]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return r.byID[id], nil
}

func (r *Registry) ByID(id idx.ID) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}
