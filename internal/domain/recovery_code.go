package domain

import (
	"time"

	"github.com/google/uuid"
)

// RecoveryCode is a stored one-time reset code. Only the argon2 hash of the
// code is kept; the cleartext digits exist solely inside the email.
type RecoveryCode struct {
	ID        int64     `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	CodeHash  []byte    `json:"-"`
	CodeSalt  []byte    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	Consumed  bool      `json:"consumed"`
	CreatedAt time.Time `json:"created_at"`
}

// Usable reports whether the code can still redeem a reset at the given time.
func (c *RecoveryCode) Usable(now time.Time) bool {
	return !c.Consumed && now.Before(c.ExpiresAt)
}
