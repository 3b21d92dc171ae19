package server

import (
	"sync"
	"sync/atomic"
	"time"
)

// ResultCache is a concurrency-safe LRU cache of rendered analysis responses
// with TTL expiration.
type ResultCache struct {
	mu         sync.Mutex
	entries    map[string]*cachedResponse
	order      []string // front=least recently used
	maxEntries int
	ttl        time.Duration
	now        func() time.Time
	hits       atomic.Int64
	misses     atomic.Int64
}

type cachedResponse struct {
	body        []byte
	contentType string
	storedAt    time.Time
}

// CacheStats reports cache occupancy and hit rate.
type CacheStats struct {
	Entries    int     `json:"entries"`
	MaxEntries int     `json:"max_entries"`
	Hits       int64   `json:"hits"`
	Misses     int64   `json:"misses"`
	HitRate    float64 `json:"hit_rate"`
}

// NewResultCache returns a cache holding at most maxEntries responses for
// ttl each. maxEntries <= 0 disables caching.
func NewResultCache(maxEntries int, ttl time.Duration) *ResultCache {
	return &ResultCache{
		entries:    make(map[string]*cachedResponse),
		maxEntries: maxEntries,
		ttl:        ttl,
		now:        time.Now,
	}
}

// Get returns the cached body and content type for key. ok is false on a
// miss or an expired entry.
func (c *ResultCache) Get(key string) (body []byte, contentType string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, found := c.entries[key]
	if !found {
		c.misses.Add(1)
		return nil, "", false
	}
	if c.ttl > 0 && c.now().Sub(e.storedAt) > c.ttl {
		delete(c.entries, key)
		c.drop(key)
		c.misses.Add(1)
		return nil, "", false
	}

	c.drop(key)
	c.order = append(c.order, key)
	c.hits.Add(1)
	return e.body, e.contentType, true
}

// Put stores a response, evicting the least recently used entry when full.
func (c *ResultCache) Put(key string, body []byte, contentType string) {
	if c.maxEntries <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, found := c.entries[key]; found {
		c.drop(key)
	}
	for len(c.entries) >= c.maxEntries && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
	c.entries[key] = &cachedResponse{body: body, contentType: contentType, storedAt: c.now()}
	c.order = append(c.order, key)
}

// Purge empties the cache.
func (c *ResultCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*cachedResponse)
	c.order = nil
}

// Stats returns occupancy and hit counters.
func (c *ResultCache) Stats() CacheStats {
	c.mu.Lock()
	n := len(c.entries)
	c.mu.Unlock()

	hits, misses := c.hits.Load(), c.misses.Load()
	var rate float64
	if total := hits + misses; total > 0 {
		rate = float64(hits) / float64(total)
	}
	return CacheStats{Entries: n, MaxEntries: c.maxEntries, Hits: hits, Misses: misses, HitRate: rate}
}

// drop removes key from the LRU order. The caller holds mu.
func (c *ResultCache) drop(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}
