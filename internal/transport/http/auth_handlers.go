package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/peermeet/signal-server/internal/auth"
)

// AuthHandlers provides the token-issuance endpoint.
type AuthHandlers struct {
	auth *auth.Service
	log  *zerolog.Logger
}

// NewAuthHandlers creates a new auth handlers instance.
func NewAuthHandlers(authService *auth.Service, logger *zerolog.Logger) *AuthHandlers {
	return &AuthHandlers{auth: authService, log: logger}
}

// TokenRequest represents the guest token request body.
type TokenRequest struct {
	Name string `json:"name" binding:"required,min=1,max=64"`
}

// TokenResponse represents the guest token response body.
type TokenResponse struct {
	Token         string `json:"token"`
	ParticipantID string `json:"participantId"`
}

// IssueToken mints a guest signaling token for a display name.
// POST /api/auth/token
func (h *AuthHandlers) IssueToken(c *gin.Context) {
	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid token request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	token, participantID, err := h.auth.IssueGuestToken(req.Name)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to issue token")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, TokenResponse{Token: token, ParticipantID: participantID})
}
