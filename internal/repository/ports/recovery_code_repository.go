package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/fitfuel/fitfuel-api/internal/domain"
)

type RecoveryCodeRepository interface {
	Create(ctx context.Context, userID uuid.UUID, codeHash, codeSalt []byte, expiresAt time.Time) (*domain.RecoveryCode, error)
	// FindPendingByUser returns the newest unconsumed code regardless of
	// expiry; the caller decides whether an expired code reads as
	// "expired" or "invalid".
	FindPendingByUser(ctx context.Context, userID uuid.UUID) (*domain.RecoveryCode, error)
	MarkConsumed(ctx context.Context, id int64) error
	// ConsumeByUser voids every outstanding code for the user.
	ConsumeByUser(ctx context.Context, userID uuid.UUID) error
}
