package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"frostwatch/internal/types"
)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 14, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var cacheDate = time.Date(2026, 1, 15, 0, 0, 0, 0, types.BogotaZone)

func countingCompute(calls *atomic.Int64, value *types.StationPrediction, err error) ComputeFunc {
	return func(context.Context) (*types.StationPrediction, error) {
		calls.Add(1)
		return value, err
	}
}

func TestCache_ComputesOncePerKey(t *testing.T) {
	cache := NewCache(time.Hour, newFakeClock())
	pt := types.GeoPoint{Lat: 4.75, Lon: -74.25}
	want := &types.StationPrediction{Temperature: 5}

	var calls atomic.Int64
	for i := 0; i < 3; i++ {
		got, err := cache.GetOrCompute(context.Background(), pt, cacheDate, countingCompute(&calls, want, nil))
		require.NoError(t, err)
		assert.Same(t, want, got)
	}

	assert.Equal(t, int64(1), calls.Load())
	assert.Equal(t, 1, cache.Len())
}

func TestCache_NearbyPointsShareEntry(t *testing.T) {
	cache := NewCache(time.Hour, newFakeClock())
	want := &types.StationPrediction{Temperature: 5}

	var calls atomic.Int64
	// 4 decimal places of rounding: these differ by ~1 m and share a key.
	a := types.GeoPoint{Lat: 4.750004, Lon: -74.250004}
	b := types.GeoPoint{Lat: 4.749996, Lon: -74.249996}

	_, err := cache.GetOrCompute(context.Background(), a, cacheDate, countingCompute(&calls, want, nil))
	require.NoError(t, err)
	_, err = cache.GetOrCompute(context.Background(), b, cacheDate, countingCompute(&calls, want, nil))
	require.NoError(t, err)

	assert.Equal(t, int64(1), calls.Load())
	assert.Equal(t, 1, cache.Len())
}

func TestCache_DistinctKeysComputeSeparately(t *testing.T) {
	cache := NewCache(time.Hour, newFakeClock())
	want := &types.StationPrediction{Temperature: 5}
	pt := types.GeoPoint{Lat: 4.75, Lon: -74.25}

	var calls atomic.Int64
	_, err := cache.GetOrCompute(context.Background(), pt, cacheDate, countingCompute(&calls, want, nil))
	require.NoError(t, err)
	_, err = cache.GetOrCompute(context.Background(), types.GeoPoint{Lat: 4.76, Lon: -74.25}, cacheDate, countingCompute(&calls, want, nil))
	require.NoError(t, err)
	_, err = cache.GetOrCompute(context.Background(), pt, cacheDate.AddDate(0, 0, 1), countingCompute(&calls, want, nil))
	require.NoError(t, err)

	assert.Equal(t, int64(3), calls.Load())
	assert.Equal(t, 3, cache.Len())
}

func TestCache_ExpiresAfterTTL(t *testing.T) {
	clock := newFakeClock()
	cache := NewCache(time.Hour, clock)
	pt := types.GeoPoint{Lat: 4.75, Lon: -74.25}
	want := &types.StationPrediction{Temperature: 5}

	var calls atomic.Int64
	_, err := cache.GetOrCompute(context.Background(), pt, cacheDate, countingCompute(&calls, want, nil))
	require.NoError(t, err)

	// Just inside the TTL: still cached.
	clock.Advance(59 * time.Minute)
	_, err = cache.GetOrCompute(context.Background(), pt, cacheDate, countingCompute(&calls, want, nil))
	require.NoError(t, err)
	assert.Equal(t, int64(1), calls.Load())

	// Past the TTL: recomputed.
	clock.Advance(2 * time.Minute)
	_, err = cache.GetOrCompute(context.Background(), pt, cacheDate, countingCompute(&calls, want, nil))
	require.NoError(t, err)
	assert.Equal(t, int64(2), calls.Load())
}

func TestCache_ErrorsAreNotCached(t *testing.T) {
	cache := NewCache(time.Hour, newFakeClock())
	pt := types.GeoPoint{Lat: 4.75, Lon: -74.25}
	boom := errors.New("downstream failure")

	var calls atomic.Int64
	_, err := cache.GetOrCompute(context.Background(), pt, cacheDate, countingCompute(&calls, nil, boom))
	require.ErrorIs(t, err, boom)
	assert.Zero(t, cache.Len(), "failed computation must not occupy a slot")

	want := &types.StationPrediction{Temperature: 5}
	got, err := cache.GetOrCompute(context.Background(), pt, cacheDate, countingCompute(&calls, want, nil))
	require.NoError(t, err)
	assert.Same(t, want, got)
	assert.Equal(t, int64(2), calls.Load())
}

func TestCache_ConcurrentRequestsDeduplicate(t *testing.T) {
	cache := NewCache(time.Hour, newFakeClock())
	pt := types.GeoPoint{Lat: 4.75, Lon: -74.25}
	want := &types.StationPrediction{Temperature: 5}

	var calls atomic.Int64
	gate := make(chan struct{})
	compute := func(context.Context) (*types.StationPrediction, error) {
		calls.Add(1)
		<-gate
		return want, nil
	}

	const n = 8
	var wg sync.WaitGroup
	results := make([]*types.StationPrediction, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = cache.GetOrCompute(context.Background(), pt, cacheDate, compute)
		}(i)
	}

	// Let all goroutines reach the cache before the winner finishes.
	time.Sleep(50 * time.Millisecond)
	close(gate)
	wg.Wait()

	assert.Equal(t, int64(1), calls.Load(), "only the winner computes")
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Same(t, want, results[i])
	}
}

func TestCache_WaiterRespectsContext(t *testing.T) {
	cache := NewCache(time.Hour, newFakeClock())
	pt := types.GeoPoint{Lat: 4.75, Lon: -74.25}

	gate := make(chan struct{})
	go func() {
		_, _ = cache.GetOrCompute(context.Background(), pt, cacheDate, func(context.Context) (*types.StationPrediction, error) {
			<-gate
			return &types.StationPrediction{}, nil
		})
	}()

	// Give the winner time to claim the slot.
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := cache.GetOrCompute(ctx, pt, cacheDate, func(context.Context) (*types.StationPrediction, error) {
		t.Fatal("waiter must not compute")
		return nil, nil
	})
	require.ErrorIs(t, err, context.Canceled)

	close(gate)
}

func TestNewCache_Defaults(t *testing.T) {
	cache := NewCache(0, nil)
	assert.Equal(t, DefaultCacheTTL, cache.ttl)
	assert.NotNil(t, cache.clock)
}

func TestRoundCoord(t *testing.T) {
	assert.Equal(t, int64(47500), roundCoord(4.75))
	assert.Equal(t, int64(47500), roundCoord(4.75004))
	assert.Equal(t, int64(47501), roundCoord(4.75006))
	assert.Equal(t, int64(-742500), roundCoord(-74.25))
	assert.Equal(t, int64(-742501), roundCoord(-74.25006))
	assert.Equal(t, int64(0), roundCoord(0))
}
