package catalog

import (
	"sync"
	"time"
)

// DefaultCacheTTL is used when no TTL is configured.
const DefaultCacheTTL = 5 * time.Minute

// MaxCacheEntries limits the number of cached catalog entries (LRU eviction).
const MaxCacheEntries = 256

// Cache lookup results, reported to metrics.
const (
	lookupHit   = "hit"
	lookupMiss  = "miss"
	lookupStale = "stale"
)

// cache is a TTL cache with LRU eviction. Expired entries are kept until
// evicted so callers can fall back to them when a refetch fails.
type cache[V any] struct {
	mu         sync.RWMutex
	ttl        time.Duration
	maxEntries int
	entries    map[string]*cacheEntry[V]
	accessList []string // LRU tracking: most recent at end
	now        func() time.Time
}

type cacheEntry[V any] struct {
	value     V
	expiresAt time.Time
}

func newCache[V any](ttl time.Duration, maxEntries int) *cache[V] {
	if ttl == 0 {
		ttl = DefaultCacheTTL
	}
	if maxEntries <= 0 {
		maxEntries = MaxCacheEntries
	}
	return &cache[V]{
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]*cacheEntry[V]),
		accessList: make([]string, 0, maxEntries),
		now:        time.Now,
	}
}

// get returns the entry for key and whether it is still fresh.
// ok is false when nothing is cached.
func (c *cache[V]) get(key string) (value V, fresh, ok bool) {
	c.mu.RLock()
	entry, exists := c.entries[key]
	c.mu.RUnlock()
	if !exists {
		return value, false, false
	}

	c.mu.Lock()
	c.recordAccessLocked(key)
	c.mu.Unlock()
	return entry.value, entry.expiresAt.After(c.now()), true
}

// put stores value under key. A negative TTL disables caching.
func (c *cache[V]) put(key string, value V) {
	if c.ttl < 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictOldest()
	}
	c.entries[key] = &cacheEntry[V]{value: value, expiresAt: c.now().Add(c.ttl)}
	c.recordAccessLocked(key)
}

// clear removes all cached entries.
func (c *cache[V]) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*cacheEntry[V])
	c.accessList = make([]string, 0, c.maxEntries)
}

func (c *cache[V]) recordAccessLocked(key string) {
	for i, k := range c.accessList {
		if k == key {
			c.accessList = append(c.accessList[:i], c.accessList[i+1:]...)
			break
		}
	}
	c.accessList = append(c.accessList, key)
}

func (c *cache[V]) evictOldest() {
	if len(c.accessList) == 0 {
		return
	}
	oldest := c.accessList[0]
	c.accessList = c.accessList[1:]
	delete(c.entries, oldest)
}
