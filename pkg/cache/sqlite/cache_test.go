package sqlite

import (
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/pario-ai/sage/pkg/cache"
)

var _ cache.Store = (*Cache)(nil)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func newTestCache(t *testing.T, ttl time.Duration) (*Cache, *clock) {
	t.Helper()
	clk := &clock{now: time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)}
	c, err := New(ttl, WithClock(clk.Now))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c, clk
}

func TestPutAndGet(t *testing.T) {
	c, _ := newTestCache(t, time.Hour)

	if err := c.Put("dolar kuru", "32 TL", 0); err != nil {
		t.Fatal(err)
	}

	e, ok := c.Get("dolar kuru")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if e.Answer != "32 TL" {
		t.Errorf("unexpected answer: %s", e.Answer)
	}
	if e.TTL != time.Hour {
		t.Errorf("expected default ttl, got %s", e.TTL)
	}

	if _, ok := c.Get("euro kuru"); ok {
		t.Error("expected cache miss for different key")
	}
}

func TestTTLExpiration(t *testing.T) {
	c, clk := newTestCache(t, time.Hour)

	c.Set("q", "data", time.Minute)
	clk.now = clk.now.Add(time.Minute)

	if _, ok := c.Get("q"); ok {
		t.Error("expected cache miss after TTL expiration")
	}

	stats, err := c.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.Entries != 0 {
		t.Errorf("expected expired row to be purged, got %d entries", stats.Entries)
	}
}

func TestDelete(t *testing.T) {
	c, _ := newTestCache(t, time.Hour)

	c.Set("q", "data", 0)
	c.Delete("q")

	if _, ok := c.Get("q"); ok {
		t.Error("expected miss after delete")
	}
}

func TestStats(t *testing.T) {
	c, _ := newTestCache(t, time.Hour)

	c.Set("h1", "data", 0)
	c.Get("h1") // hit
	c.Get("h2") // miss

	stats, err := c.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.Entries != 1 {
		t.Errorf("expected 1 entry, got %d", stats.Entries)
	}
	if stats.Hits != 1 {
		t.Errorf("expected 1 hit, got %d", stats.Hits)
	}
	if stats.Misses != 1 {
		t.Errorf("expected 1 miss, got %d", stats.Misses)
	}
}

func TestClear(t *testing.T) {
	c, clk := newTestCache(t, time.Hour)

	c.Set("h1", "data", time.Minute)
	c.Set("h2", "data", time.Hour)
	clk.now = clk.now.Add(2 * time.Minute)

	if err := c.Clear(true); err != nil {
		t.Fatal(err)
	}
	stats, _ := c.Stats()
	if stats.Entries != 1 {
		t.Errorf("expected 1 entry after clearing expired, got %d", stats.Entries)
	}

	if err := c.Clear(false); err != nil {
		t.Fatal(err)
	}
	stats, _ = c.Stats()
	if stats.Entries != 0 {
		t.Errorf("expected 0 entries after clear, got %d", stats.Entries)
	}
}

func TestInstancesAreIsolated(t *testing.T) {
	a, _ := newTestCache(t, time.Hour)
	b, _ := newTestCache(t, time.Hour)

	a.Set("q", "only in a", 0)
	if _, ok := b.Get("q"); ok {
		t.Error("expected separate in-memory databases")
	}
}

func TestNamedSharedMemoryDatabase(t *testing.T) {
	c, _ := newTestCache(t, time.Hour)
	if !strings.HasPrefix(c.dsn, "file:") || !strings.Contains(c.dsn, "mode=memory&cache=shared") {
		t.Fatalf("unexpected dsn %q", c.dsn)
	}
	c.Set("hava durumu", "güneşli", 0)

	other, err := sql.Open("sqlite", c.dsn)
	if err != nil {
		t.Fatal(err)
	}
	defer other.Close()

	var answer string
	if err := other.QueryRow(`SELECT answer FROM cache_entries WHERE query_key = ?`, "hava durumu").Scan(&answer); err != nil {
		t.Fatalf("second connection: %v", err)
	}
	if answer != "güneşli" {
		t.Errorf("expected shared entry, got %q", answer)
	}
}
