package domain

import (
	"time"

	"github.com/google/uuid"
)

// Account is the minimal user record the local auth provider needs: an
// identity plus salted password material. Profile data lives elsewhere.
type Account struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash []byte    `json:"-"`
	PasswordSalt []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
