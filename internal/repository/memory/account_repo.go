package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fitfuel/fitfuel-api/internal/domain"
	"github.com/fitfuel/fitfuel-api/internal/repository/ports"
)

// AccountRepository is the in-process account directory used by the local
// auth provider in development and tests.
type AccountRepository struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]*domain.Account
	byEmail map[string]uuid.UUID
}

func NewAccountRepository() *AccountRepository {
	return &AccountRepository{
		byID:    make(map[uuid.UUID]*domain.Account),
		byEmail: make(map[string]uuid.UUID),
	}
}

// Seed inserts an account, minting an ID when absent. Intended for dev
// bootstrap and tests.
func (r *AccountRepository) Seed(account domain.Account) *domain.Account {
	r.mu.Lock()
	defer r.mu.Unlock()
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now()
	}
	account.Email = strings.ToLower(strings.TrimSpace(account.Email))
	clone := account
	r.byID[clone.ID] = &clone
	r.byEmail[clone.Email] = clone.ID
	return &account
}

func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, ports.ErrNotFound
	}
	clone := *r.byID[id]
	return &clone, nil
}

func (r *AccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	account, ok := r.byID[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	clone := *account
	return &clone, nil
}

func (r *AccountRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash, passwordSalt []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.byID[id]
	if !ok {
		return ports.ErrNotFound
	}
	account.PasswordHash = append([]byte(nil), passwordHash...)
	account.PasswordSalt = append([]byte(nil), passwordSalt...)
	account.UpdatedAt = time.Now()
	return nil
}
