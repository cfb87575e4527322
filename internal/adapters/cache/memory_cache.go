package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/quietroom/therapy-booking/backend/internal/domain/entities"
	"github.com/quietroom/therapy-booking/backend/internal/domain/providers"
)

type memoryEntry struct {
	intervals  []entities.BusyInterval
	insertedAt time.Time
	ttl        time.Duration
}

// MemoryCache is the in-process busy cache. Expiry is lazy (checked on Get,
// no background sweep). When the entry count passes maxEntries the store is
// compacted to the most recently inserted half.
type MemoryCache struct {
	mu         sync.Mutex
	entries    map[string]*memoryEntry
	order      []string
	maxEntries int
	now        func() time.Time
}

// NewMemoryCache creates an in-process busy cache with a hard entry cap
func NewMemoryCache(maxEntries int) providers.BusyCache {
	return newMemoryCache(maxEntries, time.Now)
}

func newMemoryCache(maxEntries int, now func() time.Time) *MemoryCache {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	return &MemoryCache{
		entries:    make(map[string]*memoryEntry),
		maxEntries: maxEntries,
		now:        now,
	}
}

// Get returns the cached intervals, deleting and missing on expired entries
func (c *MemoryCache) Get(ctx context.Context, key string) ([]entities.BusyInterval, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}

	if c.now().Sub(entry.insertedAt) > entry.ttl {
		c.remove(key)
		return nil, false
	}

	return entry.intervals, true
}

// Set stores intervals under a key, compacting when the cap is exceeded
func (c *MemoryCache) Set(ctx context.Context, key string, intervals []entities.BusyInterval, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; exists {
		c.remove(key)
	}

	c.entries[key] = &memoryEntry{
		intervals:  intervals,
		insertedAt: c.now(),
		ttl:        ttl,
	}
	c.order = append(c.order, key)

	if len(c.entries) > c.maxEntries {
		c.compact()
	}
}

// Invalidate drops every entry scoped to the calendar
func (c *MemoryCache) Invalidate(ctx context.Context, calendarID string) {
	prefix := providers.BusyKeyPrefix(calendarID)

	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			c.remove(key)
		}
	}
}

// Len returns the current entry count
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// compact keeps the most recently inserted half of the entries. Crude but
// it bounds memory without tracking access order. Caller holds the lock.
func (c *MemoryCache) compact() {
	keep := c.maxEntries / 2
	if keep < 1 {
		keep = 1
	}

	cut := len(c.order) - keep
	for _, key := range c.order[:cut] {
		delete(c.entries, key)
	}
	c.order = append([]string(nil), c.order[cut:]...)
}

// remove deletes a key from the map and the insertion order slice.
// Caller holds the lock.
func (c *MemoryCache) remove(key string) {
	delete(c.entries, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}
