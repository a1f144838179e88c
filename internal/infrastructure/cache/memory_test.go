package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2099, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func TestMemoryCache_HitBeforeTTL_MissAfter(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	c := NewMemoryCache[[]string](time.Hour, WithClock[[]string](clock.Now))

	c.Put(ctx, "westminster_2099-01-10_2099-01-12_2_1", []string{"Savoy"})

	clock.Advance(time.Hour - time.Millisecond)
	v, ok := c.Get(ctx, "westminster_2099-01-10_2099-01-12_2_1")
	require.True(t, ok)
	assert.Equal(t, []string{"Savoy"}, v)

	clock.Advance(2 * time.Millisecond)
	_, ok = c.Get(ctx, "westminster_2099-01-10_2099-01-12_2_1")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len(), "expired entry must be evicted on lookup")
}

func TestMemoryCache_ExactTTLIsMiss(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	c := NewMemoryCache[int](time.Minute, WithClock[int](clock.Now))

	c.Put(ctx, "k", 1)
	clock.Advance(time.Minute)

	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
}

func TestMemoryCache_PutOverwritesAndRefreshes(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	c := NewMemoryCache[int](time.Minute, WithClock[int](clock.Now))

	c.Put(ctx, "k", 1)
	clock.Advance(50 * time.Second)
	c.Put(ctx, "k", 2)
	clock.Advance(50 * time.Second)

	v, ok := c.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestMemoryCache_MissingKey(t *testing.T) {
	c := NewMemoryCache[int](time.Minute)
	_, ok := c.Get(context.Background(), "absent")
	assert.False(t, ok)
	assert.Equal(t, int64(1), c.Stats().Misses)
}

func TestMemoryCache_LRUEviction(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache[int](time.Hour, WithMaxEntries[int](2))

	c.Put(ctx, "a", 1)
	c.Put(ctx, "b", 2)
	_, _ = c.Get(ctx, "a") // a становится свежее b
	c.Put(ctx, "c", 3)

	_, okB := c.Get(ctx, "b")
	_, okA := c.Get(ctx, "a")
	_, okC := c.Get(ctx, "c")
	assert.False(t, okB)
	assert.True(t, okA)
	assert.True(t, okC)
	assert.Equal(t, int64(1), c.Stats().Evictions)
}

func TestMemoryCache_ExpiredEvictedBeforeRecent(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	c := NewMemoryCache[int](time.Minute, WithClock[int](clock.Now), WithMaxEntries[int](2))

	c.Put(ctx, "old", 1)
	clock.Advance(30 * time.Second)
	c.Put(ctx, "fresh", 2)
	_, _ = c.Get(ctx, "old") // old свежее по использованию, но истечет раньше
	clock.Advance(40 * time.Second)
	c.Put(ctx, "newest", 3)

	_, okOld := c.Get(ctx, "old")
	_, okFresh := c.Get(ctx, "fresh")
	assert.False(t, okOld)
	assert.True(t, okFresh)
	assert.Equal(t, int64(0), c.Stats().Evictions)
}

func TestMemoryCache_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache[int](time.Hour, WithMaxEntries[int](50))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("k%d", (n*j)%80)
				c.Put(ctx, key, j)
				_, _ = c.Get(ctx, key)
			}
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), 50)
}
