package server

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
)

// TokenRequest represents the request body for /auth/token
type TokenRequest struct {
	APIKey string `json:"api_key" validate:"required"`
}

// TokenResponse carries an issued bearer token
type TokenResponse struct {
	Token    string    `json:"token"`
	ClientID uuid.UUID `json:"client_id"`
}

// handleIssueToken exchanges the shared API key for a short-lived bearer
// token. Extension clients call this once per session; the token then
// authorizes the mutating routes.
func (s *Server) handleIssueToken(w http.ResponseWriter, r *http.Request) {
	if s.jwtService == nil || s.apiKey == "" {
		s.errorResponse(w, http.StatusServiceUnavailable, "token auth is not configured")
		return
	}

	var req TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	if subtle.ConstantTimeCompare([]byte(req.APIKey), []byte(s.apiKey)) != 1 {
		s.errorResponse(w, http.StatusUnauthorized, "invalid API key")
		return
	}

	clientID := uuid.New()
	token, err := s.jwtService.GenerateToken(clientID)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "failed to issue token")
		return
	}

	s.jsonResponse(w, http.StatusOK, TokenResponse{Token: token, ClientID: clientID})
}
