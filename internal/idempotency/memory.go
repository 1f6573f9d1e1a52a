package idempotency

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	txID    string
	expires time.Time
}

// MemoryGuard holds claims in process memory.
type MemoryGuard struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]entry
	now     func() time.Time
}

func NewMemoryGuard(ttl time.Duration) *MemoryGuard {
	return &MemoryGuard{ttl: ttl, entries: make(map[string]entry), now: time.Now}
}

func (g *MemoryGuard) Claim(ctx context.Context, key string) (string, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if e, ok := g.entries[key]; ok && now.Before(e.expires) {
		return e.txID, false, nil
	}
	g.entries[key] = entry{expires: now.Add(g.ttl)}
	return "", true, nil
}

func (g *MemoryGuard) Complete(ctx context.Context, key, txID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	e, ok := g.entries[key]
	if !ok {
		e.expires = g.now().Add(g.ttl)
	}
	e.txID = txID
	g.entries[key] = e
	return nil
}

func (g *MemoryGuard) Release(ctx context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.entries, key)
	return nil
}
