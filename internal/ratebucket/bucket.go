package ratebucket

import (
	"sync"
	"time"
)

// Bucket counts events per key inside a fixed window. The window is anchored
// at the first event for a key and resets once it elapses; Record reports
// true only when an event pushes the count past the configured rate.
type Bucket struct {
	mu      sync.Mutex
	rate    int
	per     time.Duration
	entries map[string]*entry
}

type entry struct {
	windowStart time.Time
	count       int
}

func New(rate int, per time.Duration) *Bucket {
	return &Bucket{
		rate:    rate,
		per:     per,
		entries: make(map[string]*entry),
	}
}

// Record adds one event for key at time now and reports whether the bucket
// tripped. State for keys whose window has long elapsed is pruned lazily.
func (b *Bucket) Record(key string, now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	item := b.entries[key]
	if item == nil || now.Sub(item.windowStart) >= b.per {
		item = &entry{windowStart: now}
		b.entries[key] = item
	}
	item.count++
	return item.count > b.rate
}

// Count returns the live count for key without recording an event.
func (b *Bucket) Count(key string, now time.Time) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	item := b.entries[key]
	if item == nil || now.Sub(item.windowStart) >= b.per {
		return 0
	}
	return item.count
}

// Reset drops all state for key.
func (b *Bucket) Reset(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.entries, key)
}
