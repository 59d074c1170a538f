package handler

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/rainbowtourguides/backend/internal/domain"
)

// DemoLoginRequest is the body of POST /api/auth/demo.
type DemoLoginRequest struct {
	Email string      `json:"email"`
	Role  domain.Role `json:"role"`
}

// DemoLoginResponse carries the bearer token for the upserted user.
type DemoLoginResponse struct {
	Token  string      `json:"token"`
	UserID uuid.UUID   `json:"userId"`
	Role   domain.Role `json:"role"`
}

// DemoLogin handles POST /api/auth/demo. Mounted only when demo auth is enabled.
func (s *Server) DemoLogin(w http.ResponseWriter, r *http.Request) {
	var body DemoLoginRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	token, a, err := s.demoAuth.DemoLogin(r.Context(), body.Email, body.Role)
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DemoLoginResponse{Token: token, UserID: a.UserID, Role: a.Role})
}
