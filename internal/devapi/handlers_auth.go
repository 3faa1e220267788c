package devapi

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/examprep/pkg/authclient"
	"github.com/aussiebroadwan/examprep/pkg/httpx"
	"github.com/aussiebroadwan/examprep/pkg/jwtx"
	"github.com/aussiebroadwan/examprep/pkg/slogx"
)

const (
	detailBadCredentials = "No active account found with the given credentials"
	detailTokenInvalid   = "Token is invalid or expired"
	msgFieldRequired     = "This field is required."
)

type fieldErrors map[string][]string

func writeFieldErrors(w http.ResponseWriter, fields fieldErrors) {
	httpx.WriteJSON(w, http.StatusBadRequest, fields)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// handleLogin godoc
//
//	@Summary		Log in
//	@Description	Exchanges a username and password for an access and refresh token pair
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		loginRequest			true	"credentials"
//	@Success		200		{object}	authclient.TokenPair	"token pair"
//	@Failure		400		"missing fields"
//	@Failure		401		"invalid credentials"
//	@Failure		429		"too many attempts"
//	@Router			/login/ [post]
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	log := slogx.FromContext(r.Context())

	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteDetail(w, http.StatusBadRequest, "Invalid JSON body.")
		return
	}

	missing := fieldErrors{}
	if strings.TrimSpace(req.Username) == "" {
		missing["username"] = []string{msgFieldRequired}
	}
	if req.Password == "" {
		missing["password"] = []string{msgFieldRequired}
	}
	if len(missing) > 0 {
		writeFieldErrors(w, missing)
		return
	}

	u, err := s.users.ByUsername(req.Username)
	if err != nil {
		httpx.WriteDetail(w, http.StatusUnauthorized, detailBadCredentials)
		return
	}
	if err := s.opts.Hasher.Verify(req.Password, u.PasswordHash); err != nil {
		log.Info("login rejected", slog.String("username", u.Username))
		httpx.WriteDetail(w, http.StatusUnauthorized, detailBadCredentials)
		return
	}

	pair, err := s.issuePair(u, s.opts.AccessTTL, s.opts.RefreshTTL)
	if err != nil {
		log.Error("failed to issue tokens", slog.Any("error", err))
		httpx.WriteDetail(w, http.StatusInternalServerError, "Internal server error.")
		return
	}

	log.Info("login succeeded", slog.String("user_id", u.ID.String()))
	httpx.WriteJSON(w, http.StatusOK, pair)
}

// handleRegister godoc
//
//	@Summary		Register
//	@Description	Creates a user account with the default role
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authclient.RegisterRequest	true	"account"
//	@Success		201		{object}	authclient.RegisterResponse	"created user"
//	@Failure		400		"per-field validation errors"
//	@Failure		409		"username or email taken"
//	@Router			/register/ [post]
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	log := slogx.FromContext(r.Context())

	var req authclient.RegisterRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteDetail(w, http.StatusBadRequest, "Invalid JSON body.")
		return
	}

	if err := req.Validate(); err != nil {
		var valErr authclient.ValidationErrors
		if !errors.As(err, &valErr) {
			httpx.WriteDetail(w, http.StatusBadRequest, err.Error())
			return
		}
		fields := fieldErrors{}
		for k, msg := range valErr {
			fields[k] = []string{msg}
		}
		writeFieldErrors(w, fields)
		return
	}

	hash, err := s.opts.Hasher.Hash(req.Password)
	if err != nil {
		log.Error("failed to hash password", slog.Any("error", err))
		httpx.WriteDetail(w, http.StatusInternalServerError, "Internal server error.")
		return
	}

	u, err := s.users.Create(User{
		Username:     req.Username,
		Email:        req.Email,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Role:         authclient.RoleUser,
		PasswordHash: hash,
		CreatedAt:    s.now(),
	})
	if errors.Is(err, ErrUserExists) {
		httpx.WriteDetail(w, http.StatusConflict, "A user with that username or email already exists.")
		return
	}
	if err != nil {
		log.Error("failed to create user", slog.Any("error", err))
		httpx.WriteDetail(w, http.StatusInternalServerError, "Internal server error.")
		return
	}

	log.Info("user registered", slog.String("user_id", u.ID.String()))
	httpx.WriteJSON(w, http.StatusCreated, authclient.RegisterResponse{
		ID:       authclient.UserID(u.ID.String()),
		Username: u.Username,
		Email:    u.Email,
		Message:  "Account created.",
	})
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

// handleRefresh godoc
//
//	@Summary		Refresh access token
//	@Description	Issues a new access token; with rotation enabled a new refresh token is returned too
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		refreshRequest				true	"refresh token"
//	@Success		200		{object}	authclient.RefreshResponse	"new access token"
//	@Failure		401		"refresh token invalid, expired or revoked"
//	@Router			/token/refresh/ [post]
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	log := slogx.FromContext(r.Context())

	var req refreshRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteDetail(w, http.StatusBadRequest, "Invalid JSON body.")
		return
	}
	if req.Refresh == "" {
		writeFieldErrors(w, fieldErrors{"refresh": {msgFieldRequired}})
		return
	}

	claims, err := s.verifier.Verify(req.Refresh)
	if err != nil || claims.TokenType != jwtx.TokenTypeRefresh {
		log.Debug("refresh token rejected", slog.Any("error", err))
		writeTokenInvalid(w)
		return
	}

	u, err := s.users.ByID(idFromClaims(claims))
	if err != nil || !s.refreshUsable(claims) {
		writeTokenInvalid(w)
		return
	}

	pair, err := s.issuePair(u, s.opts.AccessTTL, s.opts.RefreshTTL)
	if err != nil {
		log.Error("failed to issue tokens", slog.Any("error", err))
		httpx.WriteDetail(w, http.StatusInternalServerError, "Internal server error.")
		return
	}

	res := authclient.RefreshResponse{Access: pair.Access}
	if s.opts.RotateRefresh {
		if !s.consumeRefresh(claims) {
			writeTokenInvalid(w)
			return
		}
		res.Refresh = pair.Refresh
	}

	log.Debug("access token refreshed", slog.String("user_id", u.ID.String()), slog.Bool("rotated", res.Refresh != ""))
	httpx.WriteJSON(w, http.StatusOK, res)
}

// refreshUsable checks revocation and, with rotation, reuse.
func (s *Server) refreshUsable(c *jwtx.Claims) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if before, ok := s.revokedBefore[c.UserID.String()]; ok {
		if c.IssuedAt == nil || c.IssuedAt.Before(before) {
			return false
		}
	}
	_, used := s.usedRefresh[c.ID]
	return !used
}

// consumeRefresh marks a rotated refresh token as spent. It returns false
// when another request spent it first.
func (s *Server) consumeRefresh(c *jwtx.Claims) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, used := s.usedRefresh[c.ID]; used {
		return false
	}
	s.usedRefresh[c.ID] = c.ExpiresAt.Time

	// Forget spent tokens that could no longer verify anyway.
	now := s.now()
	for jti, exp := range s.usedRefresh {
		if now.After(exp) {
			delete(s.usedRefresh, jti)
		}
	}
	return true
}

// handlePasswordReset godoc
//
//	@Summary		Request password reset
//	@Description	Accepts a reset request; the response never reveals whether the address exists
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Success		200	"request accepted"
//	@Router			/password-reset/ [post]
func (s *Server) handlePasswordReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil || req.Email == "" {
		writeFieldErrors(w, fieldErrors{"email": {msgFieldRequired}})
		return
	}

	// Same answer whether or not the address is known.
	slogx.FromContext(r.Context()).Info("password reset requested", slogx.RedactToken("email", strings.ToLower(req.Email)))
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"detail": "Password reset e-mail has been sent."})
}

func writeTokenInvalid(w http.ResponseWriter) {
	httpx.WriteJSON(w, http.StatusUnauthorized, map[string]string{
		"detail": detailTokenInvalid,
		"code":   "token_not_valid",
	})
}
