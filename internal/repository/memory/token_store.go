// Package memory holds the in-process implementations of the ephemeral
// stores: the per-client token store and the dev/test account directory.
package memory

import (
	"context"
	"sync"

	"github.com/fitfuel/fitfuel-api/internal/domain"
)

// TokenStore keeps reset-token bundles in process memory. Bundles are
// overwritten on Set; expiry is the flow's concern, not the store's, so an
// expired bundle is still returned and the flow discards it with a proper
// error. Nothing here survives a restart, which is the point.
type TokenStore struct {
	mu      sync.Mutex
	bundles map[string]domain.ResetToken
}

func NewTokenStore() *TokenStore {
	return &TokenStore{bundles: make(map[string]domain.ResetToken)}
}

func (s *TokenStore) Set(ctx context.Context, key string, bundle domain.ResetToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bundles[key] = bundle
	return nil
}

func (s *TokenStore) Get(ctx context.Context, key string) (*domain.ResetToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bundle, ok := s.bundles[key]
	if !ok {
		return nil, nil
	}
	clone := bundle
	return &clone, nil
}

func (s *TokenStore) Clear(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.bundles, key)
	return nil
}
