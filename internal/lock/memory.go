package lock

import (
	"context"
	"sync"
	"time"

	"github.com/cimillas/ticket-booking/internal/clock"
)

type memoryEntry struct {
	token     string
	expiresAt time.Time
}

// MemoryBackend keeps leases in a process-local table. It is created once at
// startup and handed to the Manager; it gives no exclusion across processes.
type MemoryBackend struct {
	mu      sync.Mutex
	clock   clock.Clock
	entries map[string]memoryEntry
}

func NewMemoryBackend(clk clock.Clock) *MemoryBackend {
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &MemoryBackend{
		clock:   clk,
		entries: make(map[string]memoryEntry),
	}
}

func (b *MemoryBackend) Name() string { return "memory" }

// SetIfAbsent stores token under key unless a live entry already holds it.
// Entries are live until their expiry instant has passed.
func (b *MemoryBackend) SetIfAbsent(_ context.Context, key, token string, ttl time.Duration) (bool, error) {
	now := b.clock.Now()

	b.mu.Lock()
	defer b.mu.Unlock()

	if existing, ok := b.entries[key]; ok && !now.After(existing.expiresAt) {
		return false, nil
	}
	b.entries[key] = memoryEntry{token: token, expiresAt: now.Add(ttl)}
	b.sweepLocked(now)
	return true, nil
}

func (b *MemoryBackend) CompareAndDelete(_ context.Context, key, token string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	existing, ok := b.entries[key]
	if !ok || existing.token != token {
		return false, nil
	}
	delete(b.entries, key)
	return true, nil
}

// Len returns the number of entries currently in the table, expired or not.
func (b *MemoryBackend) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// Expiry is checked on acquisition too; sweeping only keeps the table small.
func (b *MemoryBackend) sweepLocked(now time.Time) {
	for key, entry := range b.entries {
		if now.After(entry.expiresAt) {
			delete(b.entries, key)
		}
	}
}
