package providers

import (
	"context"
	"fmt"
	"time"

	"github.com/quietroom/therapy-booking/backend/internal/domain/entities"
)

// BusyCache caches free/busy query results for a short TTL
type BusyCache interface {
	// Get returns the cached intervals for a key, or ok=false on a miss or
	// an expired entry.
	Get(ctx context.Context, key string) (intervals []entities.BusyInterval, ok bool)

	// Set stores intervals under a key with a TTL
	Set(ctx context.Context, key string, intervals []entities.BusyInterval, ttl time.Duration)

	// Invalidate removes every entry scoped to a calendar. Called after any
	// write so stale busy data from before the write is never served.
	Invalidate(ctx context.Context, calendarID string)
}

// BusyKey builds the cache key for a free/busy window query
func BusyKey(calendarID string, start, end time.Time) string {
	return fmt.Sprintf("busy:%s:%d:%d", calendarID, start.Unix(), end.Unix())
}

// BusyKeyPrefix is the invalidation prefix for a calendar's entries
func BusyKeyPrefix(calendarID string) string {
	return fmt.Sprintf("busy:%s:", calendarID)
}
