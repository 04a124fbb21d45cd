package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/fitfuel/fitfuel-api/internal/domain"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, goredis.UniversalClient) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return srv, client
}

func TestTokenStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	srv, client := newTestClient(t)
	store := NewTokenStore(client, time.Minute)

	bundle := domain.ResetToken{
		AccessToken:  "header.payload.sig",
		RefreshToken: "refresh",
		Email:        "user@example.com",
		UserID:       "user-1",
		ExpiresAt:    time.Now().Add(time.Hour).Unix(),
		TokenType:    "bearer",
	}
	if err := store.Set(ctx, "flow-1", bundle); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := store.Get(ctx, "flow-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || *got != bundle {
		t.Fatalf("round trip mismatch: %+v", got)
	}

	if err := store.Clear(ctx, "flow-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err = store.Get(ctx, "flow-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Fatal("expected nil after clear")
	}

	t.Run("ttl evicts abandoned bundles", func(t *testing.T) {
		if err := store.Set(ctx, "flow-2", bundle); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		srv.FastForward(2 * time.Minute)
		got, err := store.Get(ctx, "flow-2")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != nil {
			t.Fatal("expected bundle evicted after ttl")
		}
	})
}

func TestResetLimiterFixedWindow(t *testing.T) {
	ctx := context.Background()
	srv, client := newTestClient(t)
	limiter := NewResetLimiter(client, 5, 15*time.Minute)

	for i := 0; i < 5; i++ {
		if err := limiter.Allow(ctx, "user@example.com"); err != nil {
			t.Fatalf("attempt %d: unexpected error: %v", i+1, err)
		}
	}
	if err := limiter.Allow(ctx, "user@example.com"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("6th attempt should be limited, got %v", err)
	}

	if err := limiter.Allow(ctx, "other@example.com"); err != nil {
		t.Fatalf("separate identifier should have its own budget, got %v", err)
	}

	remaining, err := limiter.Remaining(ctx, "user@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if remaining <= 0 || remaining > 15*time.Minute {
		t.Fatalf("unexpected remaining window: %v", remaining)
	}

	srv.FastForward(16 * time.Minute)
	if err := limiter.Allow(ctx, "user@example.com"); err != nil {
		t.Fatalf("window lapse should re-admit, got %v", err)
	}

	remaining, err = limiter.Remaining(ctx, "nobody@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if remaining != 0 {
		t.Fatalf("unknown identifier should report 0, got %v", remaining)
	}
}
