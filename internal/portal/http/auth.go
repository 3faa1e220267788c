package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/examprep/pkg/authclient"
	"github.com/aussiebroadwan/examprep/pkg/guard"
	"github.com/aussiebroadwan/examprep/pkg/httpx"
	"github.com/aussiebroadwan/examprep/pkg/session"
	"github.com/aussiebroadwan/examprep/pkg/slogx"
)

// AuthHandler serves the guest pages and the logout action.
type AuthHandler struct {
	Controller *session.Controller
}

type loginRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	RememberMe bool   `json:"remember_me"`
}

type pageResponse struct {
	Page       string           `json:"page"`
	ReturnURL  string           `json:"return_url,omitempty"`
	Registered bool             `json:"registered,omitempty"`
	User       *authclient.User `json:"user,omitempty"`
}

func (h *AuthHandler) HandleLoginPage(w http.ResponseWriter, r *http.Request) {
	target, _ := guard.ReturnURL(r.URL.RequestURI())
	httpx.WriteJSON(w, http.StatusOK, pageResponse{
		Page:       "login",
		ReturnURL:  target,
		Registered: r.URL.Query().Get("registered") == "true",
	})
}

// HandleLogin signs in and redirects to the returnUrl of the login page, or
// to /home.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteDetail(w, http.StatusBadRequest, authclient.MsgValidation)
		return
	}

	_, err := h.Controller.Login(r.Context(), authclient.Credentials{
		Username:   req.Username,
		Password:   req.Password,
		RememberMe: req.RememberMe,
	})
	if err != nil {
		slogx.FromContext(r.Context()).Info("login failed", "username", req.Username, "error", err)
		writeError(w, err)
		return
	}

	target, ok := guard.ReturnURL(r.URL.RequestURI())
	if !ok {
		target = guard.PathHome
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (h *AuthHandler) HandleRegisterPage(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, pageResponse{Page: "register"})
}

// HandleRegister creates the account and sends the user to the login page.
// It does not sign in.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req authclient.RegisterRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteDetail(w, http.StatusBadRequest, authclient.MsgValidation)
		return
	}

	if _, err := h.Controller.Register(r.Context(), req); err != nil {
		writeError(w, err)
		return
	}

	slogx.FromContext(r.Context()).Info("account registered", "username", req.Username)
	http.Redirect(w, r, guard.PathLogin+"?registered=true", http.StatusSeeOther)
}

func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.Controller.Logout()
	http.Redirect(w, r, guard.PathLogin, http.StatusSeeOther)
}

type errorResponse struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields,omitempty"`
}

// writeError answers with the localized message for err. Backend client
// errors keep their status; anything else is a bad gateway.
func writeError(w http.ResponseWriter, err error) {
	var (
		valErr authclient.ValidationErrors
		apiErr *authclient.APIError
	)
	switch {
	case errors.As(err, &valErr):
		httpx.WriteJSON(w, http.StatusBadRequest, errorResponse{Detail: valErr.First(), Fields: valErr})
	case errors.Is(err, session.ErrSessionExpired):
		httpx.WriteDetail(w, http.StatusUnauthorized, session.MsgSessionExpired)
	case errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500:
		httpx.WriteDetail(w, apiErr.StatusCode, apiErr.UserMessage())
	default:
		httpx.WriteDetail(w, http.StatusBadGateway, session.UserMessage(err))
	}
}
