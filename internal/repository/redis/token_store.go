// Package redis provides Redis-backed variants of the ephemeral stores for
// deployments where the API runs more than one replica.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fitfuel/fitfuel-api/internal/domain"
)

// ErrUnavailable wraps any Redis transport failure so callers can treat the
// store being down as one condition.
var ErrUnavailable = errors.New("redis store unavailable")

const tokenKeyPrefix = "reset:bundle:"

// TokenStore holds reset-token bundles in Redis under a TTL, so abandoned
// flows clean up after themselves without a sweeper.
type TokenStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewTokenStore builds a store. A non-positive ttl falls back to 15 minutes,
// matching the reset-code lifetime.
func NewTokenStore(client redis.UniversalClient, ttl time.Duration) *TokenStore {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &TokenStore{client: client, ttl: ttl}
}

func (s *TokenStore) Set(ctx context.Context, key string, bundle domain.ResetToken) error {
	payload, err := json.Marshal(bundle)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, tokenKeyPrefix+key, payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *TokenStore) Get(ctx context.Context, key string) (*domain.ResetToken, error) {
	payload, err := s.client.Get(ctx, tokenKeyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	var bundle domain.ResetToken
	if err := json.Unmarshal(payload, &bundle); err != nil {
		return nil, err
	}
	return &bundle, nil
}

func (s *TokenStore) Clear(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, tokenKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
