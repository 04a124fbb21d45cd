package domain

import (
	"time"

	"github.com/google/uuid"
)

// RecoverySession is the short-lived session minted after OTP verification.
// It exists to authorize exactly one password change and is revoked as soon
// as that change lands.
type RecoverySession struct {
	UserID       uuid.UUID `json:"user_id"`
	Email        string    `json:"email"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Bundle flattens the session into the ResetToken shape the flow stores.
func (s *RecoverySession) Bundle() ResetToken {
	return ResetToken{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		Email:        s.Email,
		UserID:       s.UserID.String(),
		ExpiresAt:    s.ExpiresAt.Unix(),
		TokenType:    s.TokenType,
	}
}
