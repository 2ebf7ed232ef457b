// Package dedupcache keeps a short-lived in-process set of recently observed
// content hashes. It only short-circuits store lookups for hot repeats; the
// database unique index remains the dedup authority.
package dedupcache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Cache is a TTL-bound set of content hashes.
type Cache struct {
	inner *gocache.Cache
}

// New creates a cache whose entries expire after ttl.
func New(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Cache{inner: gocache.New(ttl, 10*time.Minute)}
}

// Seen reports whether the hash was marked within the TTL.
func (c *Cache) Seen(hash string) bool {
	_, found := c.inner.Get(hash)
	return found
}

// Mark records the hash, refreshing its TTL.
func (c *Cache) Mark(hash string) {
	c.inner.SetDefault(hash, struct{}{})
}
