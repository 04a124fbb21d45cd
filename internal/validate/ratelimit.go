package validate

import (
	"sync"
	"time"
)

const (
	defaultMaxAttempts = 5
	defaultWindow      = 15 * time.Minute
)

type limiterEntry struct {
	count     int
	resetTime time.Time
}

// RateLimiter is an in-process fixed-window attempt counter keyed by an
// arbitrary identifier. Windows reset lazily on the first check after they
// lapse; there is no background sweep.
type RateLimiter struct {
	mu          sync.Mutex
	maxAttempts int
	window      time.Duration
	entries     map[string]*limiterEntry
	now         func() time.Time
}

// NewRateLimiter builds a limiter. Non-positive arguments fall back to the
// defaults of 5 attempts per 15 minutes.
func NewRateLimiter(maxAttempts int, window time.Duration) *RateLimiter {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	if window <= 0 {
		window = defaultWindow
	}
	return &RateLimiter{
		maxAttempts: maxAttempts,
		window:      window,
		entries:     make(map[string]*limiterEntry),
		now:         time.Now,
	}
}

// IsAllowed counts an attempt for the identifier and reports whether it is
// still inside the budget. A lapsed window restarts at count 1.
func (l *RateLimiter) IsAllowed(identifier string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	entry, ok := l.entries[identifier]
	if !ok || !now.Before(entry.resetTime) {
		l.entries[identifier] = &limiterEntry{count: 1, resetTime: now.Add(l.window)}
		return true
	}

	entry.count++
	return entry.count <= l.maxAttempts
}

// RemainingTime reports how long until the identifier's window resets,
// floored at zero.
func (l *RateLimiter) RemainingTime(identifier string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[identifier]
	if !ok {
		return 0
	}
	remaining := entry.resetTime.Sub(l.now())
	if remaining < 0 {
		return 0
	}
	return remaining
}
