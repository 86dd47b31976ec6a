// Package memory provides the default in-process response cache.
package memory

import (
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pario-ai/sage/pkg/models"
)

const defaultShards = 32

type shard struct {
	mu      sync.Mutex
	entries map[string]models.CacheEntry
}

// Cache is a sharded TTL cache. Every operation on a key holds that key's
// shard lock, so expiry checks and purges are atomic per key.
type Cache struct {
	shards []*shard
	ttl    time.Duration
	now    func() time.Time
	hits   atomic.Int64
	misses atomic.Int64

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// Option customizes a Cache.
type Option func(*Cache)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithShards sets the number of lock shards.
func WithShards(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.shards = newShards(n)
		}
	}
}

// New creates a Cache whose entries default to ttl when Set is called with a zero TTL.
func New(ttl time.Duration, opts ...Option) *Cache {
	c := &Cache{
		shards: newShards(defaultShards),
		ttl:    ttl,
		now:    time.Now,
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func newShards(n int) []*shard {
	s := make([]*shard, n)
	for i := range s {
		s[i] = &shard{entries: make(map[string]models.CacheEntry)}
	}
	return s
}

func (c *Cache) shardFor(key string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return c.shards[h.Sum32()%uint32(len(c.shards))]
}

// Get returns the entry for key. An expired entry is deleted and reported as absent.
func (c *Cache) Get(key string) (models.CacheEntry, bool) {
	s := c.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		c.misses.Add(1)
		return models.CacheEntry{}, false
	}
	if !e.Valid(c.now()) {
		delete(s.entries, key)
		c.misses.Add(1)
		return models.CacheEntry{}, false
	}

	c.hits.Add(1)
	return e, true
}

// Set stores answer under key.
func (c *Cache) Set(key, answer string, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.ttl
	}
	s := c.shardFor(key)
	s.mu.Lock()
	s.entries[key] = models.CacheEntry{Answer: answer, CreatedAt: c.now(), TTL: ttl}
	s.mu.Unlock()
}

// Delete removes key.
func (c *Cache) Delete(key string) {
	s := c.shardFor(key)
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
}

// Len returns the number of stored entries, including expired ones not yet purged.
func (c *Cache) Len() int {
	n := 0
	for _, s := range c.shards {
		s.mu.Lock()
		n += len(s.entries)
		s.mu.Unlock()
	}
	return n
}

// Stats returns cache performance metrics.
func (c *Cache) Stats() (models.CacheStats, error) {
	return models.CacheStats{
		Entries: int64(c.Len()),
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
	}, nil
}

// Clear removes cache entries. If expiredOnly is true, only expired entries are removed.
func (c *Cache) Clear(expiredOnly bool) error {
	now := c.now()
	for _, s := range c.shards {
		s.mu.Lock()
		for k, e := range s.entries {
			if !expiredOnly || !e.Valid(now) {
				delete(s.entries, k)
			}
		}
		s.mu.Unlock()
	}
	return nil
}

// StartSweeper purges expired entries every interval until Close.
func (c *Cache) StartSweeper(interval time.Duration) {
	if interval <= 0 {
		return
	}
	c.wg.Add(1)
	go c.sweepLoop(interval)
}

func (c *Cache) sweepLoop(interval time.Duration) {
	defer c.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			_ = c.Clear(true)
		}
	}
}

// Close stops the sweeper, if any.
func (c *Cache) Close() error {
	c.stopOnce.Do(func() { close(c.done) })
	c.wg.Wait()
	return nil
}
