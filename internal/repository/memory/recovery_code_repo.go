package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fitfuel/fitfuel-api/internal/domain"
	"github.com/fitfuel/fitfuel-api/internal/repository/ports"
)

// RecoveryCodeRepository stores one-time reset codes in memory with the
// same consume-before-create discipline the SQL implementation would use.
type RecoveryCodeRepository struct {
	mu     sync.Mutex
	nextID int64
	codes  []*domain.RecoveryCode
}

func NewRecoveryCodeRepository() *RecoveryCodeRepository {
	return &RecoveryCodeRepository{}
}

func (r *RecoveryCodeRepository) Create(ctx context.Context, userID uuid.UUID, codeHash, codeSalt []byte, expiresAt time.Time) (*domain.RecoveryCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	code := &domain.RecoveryCode{
		ID:        r.nextID,
		UserID:    userID,
		CodeHash:  append([]byte(nil), codeHash...),
		CodeSalt:  append([]byte(nil), codeSalt...),
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}
	r.codes = append(r.codes, code)
	clone := *code
	return &clone, nil
}

// FindPendingByUser returns the newest unconsumed code, expired or not.
func (r *RecoveryCodeRepository) FindPendingByUser(ctx context.Context, userID uuid.UUID) (*domain.RecoveryCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.codes) - 1; i >= 0; i-- {
		code := r.codes[i]
		if code.UserID == userID && !code.Consumed {
			clone := *code
			return &clone, nil
		}
	}
	return nil, ports.ErrNotFound
}

func (r *RecoveryCodeRepository) MarkConsumed(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, code := range r.codes {
		if code.ID == id {
			code.Consumed = true
			return nil
		}
	}
	return ports.ErrNotFound
}

// ConsumeByUser voids every outstanding code for the user, so only the
// latest requested code is ever redeemable.
func (r *RecoveryCodeRepository) ConsumeByUser(ctx context.Context, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, code := range r.codes {
		if code.UserID == userID {
			code.Consumed = true
		}
	}
	return nil
}
