package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const defaultTTL = 24 * time.Hour

// Service issues and verifies guest signaling tokens. There are no
// accounts; a token binds a fresh participant id to a display name.
type Service struct {
	cfg *JWTConfig
}

// NewService builds an auth service with HS256 signing.
func NewService(secret, issuer string) *Service {
	return &Service{
		cfg: &JWTConfig{
			Secret: []byte(secret),
			Issuer: issuer,
			TTL:    defaultTTL,
		},
	}
}

// IssueGuestToken mints a token for the given display name and returns
// it along with the participant id it is bound to.
func (s *Service) IssueGuestToken(name string) (token, participantID string, err error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", "", fmt.Errorf("display name is required")
	}

	participantID = uuid.NewString()
	token, err = GenerateToken(s.cfg, participantID, name)
	if err != nil {
		return "", "", fmt.Errorf("issue token: %w", err)
	}
	return token, participantID, nil
}

// Verify validates a presented token and returns its claims.
func (s *Service) Verify(token string) (*Claims, error) {
	return ValidateToken(s.cfg, token)
}
