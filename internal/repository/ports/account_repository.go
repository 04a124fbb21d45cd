package ports

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/fitfuel/fitfuel-api/internal/domain"
)

// ErrNotFound is returned by repositories when a lookup matches nothing.
// Declared here so callers do not couple to a storage driver's sentinel.
var ErrNotFound = errors.New("record not found")

type AccountRepository interface {
	FindByEmail(ctx context.Context, email string) (*domain.Account, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash, passwordSalt []byte) error
}
