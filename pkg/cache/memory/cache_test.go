package memory

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pario-ai/sage/pkg/cache"
)

var _ cache.Store = (*Cache)(nil)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func newTestCache(t *testing.T, ttl time.Duration) (*Cache, *fakeClock) {
	t.Helper()
	clk := &fakeClock{now: time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)}
	c := New(ttl, WithClock(clk.Now), WithShards(4))
	t.Cleanup(func() { _ = c.Close() })
	return c, clk
}

func TestSetAndGet(t *testing.T) {
	c, _ := newTestCache(t, time.Hour)

	c.Set("bugün günlerden ne", "Bugün Çarşamba", 0)

	e, ok := c.Get("bugün günlerden ne")
	require.True(t, ok)
	assert.Equal(t, "Bugün Çarşamba", e.Answer)
	assert.Equal(t, time.Hour, e.TTL)

	_, ok = c.Get("başka soru")
	assert.False(t, ok)
}

func TestGetPurgesExpired(t *testing.T) {
	c, clk := newTestCache(t, time.Hour)

	c.Set("q", "a", time.Minute)
	clk.Advance(time.Minute)

	_, ok := c.Get("q")
	assert.False(t, ok, "entry must not be returned once ttl elapsed")
	assert.Equal(t, 0, c.Len(), "expired entry must be removed by the lookup")
}

func TestSetOverwrites(t *testing.T) {
	c, _ := newTestCache(t, time.Hour)

	c.Set("q", "first", 0)
	c.Set("q", "second", 0)

	e, ok := c.Get("q")
	require.True(t, ok)
	assert.Equal(t, "second", e.Answer)
}

func TestDelete(t *testing.T) {
	c, _ := newTestCache(t, time.Hour)

	c.Set("q", "a", 0)
	c.Delete("q")

	_, ok := c.Get("q")
	assert.False(t, ok)
}

func TestStats(t *testing.T) {
	c, _ := newTestCache(t, time.Hour)

	c.Set("h1", "data", 0)
	c.Get("h1") // hit
	c.Get("h2") // miss

	stats, err := c.Stats()
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.Entries)
	assert.EqualValues(t, 1, stats.Hits)
	assert.EqualValues(t, 1, stats.Misses)
}

func TestClear(t *testing.T) {
	t.Run("expired only", func(t *testing.T) {
		c, clk := newTestCache(t, time.Hour)
		c.Set("old", "a", time.Minute)
		c.Set("fresh", "b", time.Hour)
		clk.Advance(2 * time.Minute)

		require.NoError(t, c.Clear(true))
		assert.Equal(t, 1, c.Len())
		_, ok := c.Get("fresh")
		assert.True(t, ok)
	})

	t.Run("all", func(t *testing.T) {
		c, _ := newTestCache(t, time.Hour)
		c.Set("a", "1", 0)
		c.Set("b", "2", 0)

		require.NoError(t, c.Clear(false))
		assert.Equal(t, 0, c.Len())
	})
}

func TestSweeperPurges(t *testing.T) {
	c := New(time.Millisecond)
	t.Cleanup(func() { _ = c.Close() })

	c.Set("q", "a", 0)
	c.StartSweeper(5 * time.Millisecond)

	assert.Eventually(t, func() bool { return c.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestCloseIsIdempotent(t *testing.T) {
	c := New(time.Hour)
	c.StartSweeper(time.Hour)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
}

func TestConcurrentAccess(t *testing.T) {
	c, clk := newTestCache(t, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("q%d", i%4)
			for j := 0; j < 100; j++ {
				c.Set(key, "a", 0)
				c.Get(key)
				if j%10 == 0 {
					clk.Advance(time.Second)
				}
			}
		}(i)
	}
	wg.Wait()

	stats, err := c.Stats()
	require.NoError(t, err)
	assert.EqualValues(t, 1600, stats.Hits+stats.Misses)
}
