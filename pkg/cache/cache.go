// Package cache defines the response cache shared by all resolution pipelines.
package cache

import (
	"time"

	"github.com/pario-ai/sage/pkg/models"
)

// Store is a TTL-keyed answer cache. Get never returns an expired entry and
// removes it as part of the same lookup. Set is last-write-wins.
type Store interface {
	Get(key string) (models.CacheEntry, bool)
	Set(key, answer string, ttl time.Duration)
	Delete(key string)
	Stats() (models.CacheStats, error)
	Clear(expiredOnly bool) error
	Close() error
}
