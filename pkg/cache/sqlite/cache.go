// Package sqlite provides a response cache backed by an in-memory SQLite database.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/pario-ai/sage/pkg/models"
)

// Cache is an exact-match answer cache backed by SQLite. The database is a
// named shared-cache in-memory database and is gone after Close.
type Cache struct {
	db     *sql.DB
	dsn    string
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
	hits   atomic.Int64
	misses atomic.Int64
}

const createCacheTable = `
CREATE TABLE IF NOT EXISTS cache_entries (
	query_key TEXT NOT NULL PRIMARY KEY,
	answer TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	ttl_ns INTEGER NOT NULL
);
`

// Option customizes a Cache.
type Option func(*Cache)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithLogger sets the logger used for write failures.
func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) { c.logger = l }
}

// New creates a Cache with the given default TTL.
func New(ttl time.Duration, opts ...Option) (*Cache, error) {
	dsn := memoryDSN(uuid.NewString())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}
	// the database disappears when its last connection closes
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec(createCacheTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate cache db: %w", err)
	}

	c := &Cache{db: db, dsn: dsn, ttl: ttl, now: time.Now, logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func memoryDSN(name string) string {
	return "file:sage-" + name + "?mode=memory&cache=shared"
}

// Get retrieves a cached answer. An expired row is deleted in the same transaction.
func (c *Cache) Get(key string) (models.CacheEntry, bool) {
	e, ok, err := c.lookup(key)
	if err != nil {
		c.logger.Warn("cache lookup failed", slog.String("error", err.Error()))
	}
	if !ok {
		c.misses.Add(1)
		return models.CacheEntry{}, false
	}
	c.hits.Add(1)
	return e, true
}

func (c *Cache) lookup(key string) (models.CacheEntry, bool, error) {
	tx, err := c.db.Begin()
	if err != nil {
		return models.CacheEntry{}, false, fmt.Errorf("cache begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var answer string
	var createdAt, ttlNs int64
	err = tx.QueryRow(
		`SELECT answer, created_at, ttl_ns FROM cache_entries WHERE query_key = ?`, key,
	).Scan(&answer, &createdAt, &ttlNs)
	if errors.Is(err, sql.ErrNoRows) {
		return models.CacheEntry{}, false, nil
	}
	if err != nil {
		return models.CacheEntry{}, false, fmt.Errorf("cache get: %w", err)
	}

	e := models.CacheEntry{
		Answer:    answer,
		CreatedAt: time.Unix(0, createdAt),
		TTL:       time.Duration(ttlNs),
	}
	if e.Valid(c.now()) {
		return e, true, nil
	}

	if _, err := tx.Exec(`DELETE FROM cache_entries WHERE query_key = ?`, key); err != nil {
		return models.CacheEntry{}, false, fmt.Errorf("cache purge: %w", err)
	}
	return models.CacheEntry{}, false, tx.Commit()
}

// Put stores an answer in the cache.
func (c *Cache) Put(key, answer string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.ttl
	}
	_, err := c.db.Exec(
		`INSERT OR REPLACE INTO cache_entries (query_key, answer, created_at, ttl_ns) VALUES (?, ?, ?, ?)`,
		key, answer, c.now().UnixNano(), int64(ttl),
	)
	if err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	return nil
}

// Set stores an answer, logging instead of returning write failures.
func (c *Cache) Set(key, answer string, ttl time.Duration) {
	if err := c.Put(key, answer, ttl); err != nil {
		c.logger.Warn("cache write failed", slog.String("error", err.Error()))
	}
}

// Delete removes key.
func (c *Cache) Delete(key string) {
	if _, err := c.db.Exec(`DELETE FROM cache_entries WHERE query_key = ?`, key); err != nil {
		c.logger.Warn("cache delete failed", slog.String("error", err.Error()))
	}
}

// Stats returns cache performance metrics.
func (c *Cache) Stats() (models.CacheStats, error) {
	var count int64
	err := c.db.QueryRow(`SELECT COUNT(*) FROM cache_entries`).Scan(&count)
	if err != nil {
		return models.CacheStats{}, fmt.Errorf("cache stats: %w", err)
	}
	return models.CacheStats{
		Entries: count,
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
	}, nil
}

// Clear removes cache entries. If expiredOnly is true, only expired entries are removed.
func (c *Cache) Clear(expiredOnly bool) error {
	var err error
	if expiredOnly {
		_, err = c.db.Exec(`DELETE FROM cache_entries WHERE created_at + ttl_ns <= ?`, c.now().UnixNano())
	} else {
		_, err = c.db.Exec(`DELETE FROM cache_entries`)
	}
	if err != nil {
		return fmt.Errorf("cache clear: %w", err)
	}
	return nil
}

// Close releases the database connection.
func (c *Cache) Close() error {
	return c.db.Close()
}
