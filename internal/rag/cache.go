package rag

import (
	"strings"
	"sync"
	"time"
)

const (
	// defaultCacheTTL is how long a computed embedding stays valid.
	defaultCacheTTL = 24 * time.Hour

	// cacheSweepInterval is how often expired entries are collected.
	cacheSweepInterval = 10 * time.Minute
)

// embedCache is a process-local TTL cache for embedding vectors.
//
// Keys are normalized text (lower-cased, trimmed), not chunk IDs, so
// identical text across chunks shares a hit. Entries expire after the TTL
// and are collected both lazily on lookup and by a periodic sweep goroutine.
// The cache is an explicit service with Close(), not an ambient global.
type embedCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	ttl     time.Duration

	done     chan struct{}
	stopOnce sync.Once

	// now is swappable for tests.
	now func() time.Time
}

type cacheEntry struct {
	vector    []float32
	expiresAt time.Time
}

func newEmbedCache(ttl time.Duration) *embedCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	c := &embedCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		done:    make(chan struct{}),
		now:     time.Now,
	}
	go c.sweep()
	return c
}

// cacheKey normalizes text for cache lookup.
func cacheKey(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// get returns the cached vector for text, or nil on miss or expiry.
func (c *embedCache) get(text string) []float32 {
	key := cacheKey(text)

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil
	}
	if c.now().After(e.expiresAt) {
		delete(c.entries, key)
		return nil
	}
	return e.vector
}

// put stores a vector under the normalized text key.
func (c *embedCache) put(text string, vector []float32) {
	key := cacheKey(text)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{
		vector:    vector,
		expiresAt: c.now().Add(c.ttl),
	}
}

// len reports the number of live entries (including not-yet-swept expired ones).
func (c *embedCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// sweep removes expired entries on a fixed interval until Close.
func (c *embedCache) sweep() {
	ticker := time.NewTicker(cacheSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			now := c.now()
			c.mu.Lock()
			for k, e := range c.entries {
				if now.After(e.expiresAt) {
					delete(c.entries, k)
				}
			}
			c.mu.Unlock()
		}
	}
}

// close stops the sweep goroutine. Safe to call more than once.
func (c *embedCache) close() {
	c.stopOnce.Do(func() {
		close(c.done)
	})
}
