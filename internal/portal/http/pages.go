package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/examprep/pkg/authclient"
	"github.com/aussiebroadwan/examprep/pkg/httpx"
	"github.com/aussiebroadwan/examprep/pkg/session"
)

// PagesHandler serves the content pages. Presentation is left to the
// client; every page is a JSON document.
type PagesHandler struct {
	Controller *session.Controller
}

func (h *PagesHandler) HandleHome(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, pageResponse{Page: "home", User: h.Controller.CurrentUser()})
}

// HandleProfile returns the signed-in user, fetching it when the cached
// profile is missing.
func (h *PagesHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	user := h.Controller.CurrentUser()
	if user == nil {
		var err error
		if user, err = h.Controller.ReloadUser(r.Context()); err != nil {
			writeError(w, err)
			return
		}
	}
	httpx.WriteJSON(w, http.StatusOK, pageResponse{Page: "profile", User: user})
}

func (h *PagesHandler) HandleAdmin(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, pageResponse{Page: "admin", User: h.Controller.CurrentUser()})
}

func (h *PagesHandler) HandleUnauthorized(w http.ResponseWriter, r *http.Request) {
	httpx.WriteDetail(w, http.StatusForbidden, authclient.MsgForbidden)
}

type sessionResponse struct {
	session.SessionState
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// HandleSession reports the current session state and the access token
// expiry. Token values are never included.
func (h *PagesHandler) HandleSession(w http.ResponseWriter, r *http.Request) {
	resp := sessionResponse{SessionState: h.Controller.State()}
	if exp, ok := h.Controller.Validator().ExpirationDate(""); ok && resp.IsAuthenticated {
		resp.ExpiresAt = &exp
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}
