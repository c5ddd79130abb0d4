package dedup

import (
	"context"
	"sync"
	"time"
)

// MemoryDeduplicator is the in-process implementation used in tests and
// single-node dev runs. Expired entries are swept lazily on access.
type MemoryDeduplicator struct {
	mu   sync.Mutex
	seen map[string]time.Time // message id -> expiry
	ttl  time.Duration
	now  func() time.Time
}

var _ Deduplicator = (*MemoryDeduplicator)(nil)

func NewMemoryDeduplicator(ttl time.Duration) *MemoryDeduplicator {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &MemoryDeduplicator{
		seen: make(map[string]time.Time),
		ttl:  ttl,
		now:  time.Now,
	}
}

func (d *MemoryDeduplicator) CheckAndMark(_ context.Context, messageID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if exp, ok := d.seen[messageID]; ok && now.Before(exp) {
		return true, nil
	}
	d.seen[messageID] = now.Add(d.ttl)

	// bounded sweep so the map does not grow with dead entries
	if len(d.seen) > 4096 {
		for id, exp := range d.seen {
			if now.After(exp) {
				delete(d.seen, id)
			}
		}
	}
	return false, nil
}

func (d *MemoryDeduplicator) Unmark(_ context.Context, messageID string) error {
	d.mu.Lock()
	delete(d.seen, messageID)
	d.mu.Unlock()
	return nil
}
