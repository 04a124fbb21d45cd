package ports

import (
	"context"

	"github.com/fitfuel/fitfuel-api/internal/domain"
)

// TokenStore is the ephemeral home of an in-flight reset-token bundle.
// Implementations hold at most one bundle per key, overwrite on Set, and
// must never persist bundles durably.
type TokenStore interface {
	Set(ctx context.Context, key string, bundle domain.ResetToken) error
	// Get returns nil with no error when the key holds nothing.
	Get(ctx context.Context, key string) (*domain.ResetToken, error)
	Clear(ctx context.Context, key string) error
}
