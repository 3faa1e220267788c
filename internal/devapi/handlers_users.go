package devapi

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/examprep/pkg/authclient"
	"github.com/aussiebroadwan/examprep/pkg/httpx"
	"github.com/aussiebroadwan/examprep/pkg/idx"
	"github.com/aussiebroadwan/examprep/pkg/jwtx"
)

func idFromClaims(c *jwtx.Claims) idx.ID {
	return idx.ID(c.UserID.String())
}

// handleProfile godoc
//
//	@Summary		Current user
//	@Description	Returns the user identified by the bearer token
//	@Tags			Users
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	authclient.User	"user"
//	@Failure		401	"missing or invalid token"
//	@Router			/profile/ [get]
func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	claims, ok := httpx.ClaimsFromContext(r.Context())
	if !ok {
		httpx.WriteDetail(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
		return
	}

	u, err := s.users.ByID(idFromClaims(claims))
	if err != nil {
		httpx.WriteDetail(w, http.StatusNotFound, "User not found.")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, u.Profile())
}

// handleUserByID godoc
//
//	@Summary		User by id
//	@Description	Returns a user by id; only the user themself or an admin may read it
//	@Tags			Users
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string			true	"user id"
//	@Success		200	{object}	authclient.User	"user"
//	@Failure		401	"missing or invalid token"
//	@Failure		403	"not allowed"
//	@Failure		404	"unknown user"
//	@Router			/users/{id}/ [get]
func (s *Server) handleUserByID(w http.ResponseWriter, r *http.Request) {
	claims, ok := httpx.ClaimsFromContext(r.Context())
	if !ok {
		httpx.WriteDetail(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
		return
	}

	id, err := idx.Parse(r.PathValue("id"))
	if err != nil {
		httpx.WriteDetail(w, http.StatusNotFound, "User not found.")
		return
	}
	if id != idFromClaims(claims) && claims.Role != authclient.RoleAdmin {
		httpx.WriteDetail(w, http.StatusForbidden, "You do not have permission to perform this action.")
		return
	}

	u, err := s.users.ByID(id)
	if err != nil {
		httpx.WriteDetail(w, http.StatusNotFound, "User not found.")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, u.Profile())
}

type exam struct {
	ID              int    `json:"id"`
	Title           string `json:"title"`
	Category        string `json:"category"`
	Year            int    `json:"year"`
	DurationMinutes int    `json:"duration_minutes"`
}

var sampleExams = []exam{
	{ID: 1, Title: "Mathématiques - Session principale", Category: "bac", Year: 2024, DurationMinutes: 240},
	{ID: 2, Title: "Physique-Chimie", Category: "bac", Year: 2024, DurationMinutes: 210},
	{ID: 3, Title: "Culture générale", Category: "concours", Year: 2023, DurationMinutes: 120},
}

// handleExams godoc
//
//	@Summary		List exams
//	@Description	Sample authenticated resource
//	@Tags			Exams
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	"exams"
//	@Failure		401	"missing or invalid token"
//	@Router			/exams/ [get]
func (s *Server) handleExams(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"count":   len(sampleExams),
		"results": sampleExams,
	})
}

// handleLivez godoc
//
//	@Summary		Health check
//	@Description	Liveness check
//	@Tags			Health
//	@Produce		json
//	@Success		200	"status"
//	@Router			/livez [get]
func (s *Server) handleLivez(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   s.now().UTC().Format(time.RFC3339),
	})
}
