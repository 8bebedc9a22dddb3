package engine

import (
	"context"
	"sync"
	"time"

	"frostwatch/internal/types"
)

// DefaultCacheTTL is the validity window of a cached interpolated prediction.
const DefaultCacheTTL = time.Hour

// coordPrecision rounds cache-key coordinates to 4 decimal places (~11 m),
// so near-identical map clicks share an entry instead of missing on
// floating-point noise.
const coordPrecision = 1e4

// ComputeFunc produces the value for a cache key on a miss.
type ComputeFunc func(ctx context.Context) (*types.StationPrediction, error)

// cacheKey is the structured identity of a cached prediction: the rounded
// query point and the target date.
type cacheKey struct {
	lat  int64
	lon  int64
	date string
}

func keyFor(point types.GeoPoint, targetDate time.Time) cacheKey {
	return cacheKey{
		lat:  roundCoord(point.Lat),
		lon:  roundCoord(point.Lon),
		date: targetDate.Format("2006-01-02"),
	}
}

func roundCoord(v float64) int64 {
	if v >= 0 {
		return int64(v*coordPrecision + 0.5)
	}
	return int64(v*coordPrecision - 0.5)
}

// cacheEntry is a single in-flight or completed computation. ready is closed
// when value/err become readable; both are immutable afterward.
type cacheEntry struct {
	ready       chan struct{}
	value       *types.StationPrediction
	err         error
	completedAt time.Time
}

// Cache memoizes interpolated predictions per (rounded point, target date)
// with a fixed TTL. At most one computation runs per key at a time:
// concurrent requests for an in-flight key wait for the winner's result
// instead of recomputing. Expired entries are replaced transparently on the
// next access; there is no eviction beyond expiry-on-access, as the key
// space (clicks inside one municipality, one date each) is naturally
// bounded.
type Cache struct {
	ttl   time.Duration
	clock types.Clock

	mu      sync.Mutex
	entries map[cacheKey]*cacheEntry
}

// NewCache creates a Cache with the given TTL. A zero ttl selects
// DefaultCacheTTL; a nil clock selects the real clock.
func NewCache(ttl time.Duration, clock types.Clock) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if clock == nil {
		clock = types.RealClock{}
	}
	return &Cache{
		ttl:     ttl,
		clock:   clock,
		entries: make(map[cacheKey]*cacheEntry),
	}
}

// GetOrCompute returns the cached prediction for (point, targetDate) or runs
// compute to produce it. Failed computations are not cached: the error is
// delivered to the winner and any concurrent waiters, then the slot is
// cleared so the next access retries.
func (c *Cache) GetOrCompute(ctx context.Context, point types.GeoPoint, targetDate time.Time, compute ComputeFunc) (*types.StationPrediction, error) {
	key := keyFor(point, targetDate)

	c.mu.Lock()
	if entry, ok := c.entries[key]; ok && !c.expired(entry) {
		c.mu.Unlock()
		return c.wait(ctx, entry)
	}

	// Miss or expired: this request becomes the computing winner.
	entry := &cacheEntry{ready: make(chan struct{})}
	c.entries[key] = entry
	c.mu.Unlock()

	value, err := compute(ctx)

	c.mu.Lock()
	entry.value = value
	entry.err = err
	entry.completedAt = c.clock.Now()
	close(entry.ready)
	if err != nil {
		// Only clear the slot if it still belongs to this computation.
		if c.entries[key] == entry {
			delete(c.entries, key)
		}
	}
	c.mu.Unlock()

	return value, err
}

// expired reports whether a completed entry has outlived the TTL. In-flight
// entries never count as expired.
func (c *Cache) expired(entry *cacheEntry) bool {
	select {
	case <-entry.ready:
		return c.clock.Now().Sub(entry.completedAt) >= c.ttl
	default:
		return false
	}
}

// wait blocks until the entry's computation completes or ctx is done.
func (c *Cache) wait(ctx context.Context, entry *cacheEntry) (*types.StationPrediction, error) {
	select {
	case <-entry.ready:
		return entry.value, entry.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Len returns the number of live entries. Intended for tests and health
// reporting.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
