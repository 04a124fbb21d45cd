package http

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fitfuel/fitfuel-api/internal/service"
)

// FlowRegistry tracks live reset flows by a server-issued ID. Entries age
// out after the TTL so abandoned flows do not pile up.
type FlowRegistry struct {
	factory func() *service.ResetFlow
	ttl     time.Duration
	now     func() time.Time

	mu      sync.Mutex
	entries map[string]*registryEntry
}

type registryEntry struct {
	flow      *service.ResetFlow
	expiresAt time.Time
}

func NewFlowRegistry(factory func() *service.ResetFlow, ttl time.Duration) *FlowRegistry {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &FlowRegistry{
		factory: factory,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]*registryEntry),
	}
}

// Create starts a fresh flow and returns its ID.
func (r *FlowRegistry) Create() (string, *service.ResetFlow) {
	flow := r.factory()
	id := uuid.NewString()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.purgeLocked()
	r.entries[id] = &registryEntry{flow: flow, expiresAt: r.now().Add(r.ttl)}
	return id, flow
}

// Get returns the flow for the ID, refreshing its TTL.
func (r *FlowRegistry) Get(id string) (*service.ResetFlow, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.purgeLocked()

	entry, ok := r.entries[id]
	if !ok {
		return nil, false
	}
	entry.expiresAt = r.now().Add(r.ttl)
	return entry.flow, true
}

// Remove drops the flow and releases its resources.
func (r *FlowRegistry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.entries[id]; ok {
		entry.flow.Close()
		delete(r.entries, id)
	}
}

func (r *FlowRegistry) purgeLocked() {
	now := r.now()
	for id, entry := range r.entries {
		if now.After(entry.expiresAt) {
			entry.flow.Close()
			delete(r.entries, id)
		}
	}
}
