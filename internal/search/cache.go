package search

import (
	"fmt"
	"sync"
	"time"
)

// resultCache is a small TTL cache over search results. Search results
// go stale fast, so the TTL is short and a full clear on invalidation
// is acceptable.
type resultCache struct {
	mu         sync.RWMutex
	entries    map[string]cachedResult
	maxEntries int
	ttl        time.Duration
}

type cachedResult struct {
	matches   []Match
	expiresAt time.Time
}

func newResultCache(maxEntries int, ttl time.Duration) *resultCache {
	return &resultCache{
		entries:    make(map[string]cachedResult),
		maxEntries: maxEntries,
		ttl:        ttl,
	}
}

func cacheKey(q Query) string {
	return fmt.Sprintf("%s|%s|%d", q.Pattern, q.Dir, q.MaxMatches)
}

func (c *resultCache) get(q Query) ([]Match, bool) {
	c.mu.RLock()
	e, ok := c.entries[cacheKey(q)]
	c.mu.RUnlock()

	if !ok || time.Now().After(e.expiresAt) {
		return nil, false
	}
	return e.matches, true
}

func (c *resultCache) put(q Query, matches []Match) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= c.maxEntries {
		// Evict expired entries first; if none expired, drop one
		// arbitrary entry to stay bounded.
		now := time.Now()
		evicted := false
		for k, e := range c.entries {
			if now.After(e.expiresAt) {
				delete(c.entries, k)
				evicted = true
			}
		}
		if !evicted {
			for k := range c.entries {
				delete(c.entries, k)
				break
			}
		}
	}
	c.entries[cacheKey(q)] = cachedResult{matches: matches, expiresAt: time.Now().Add(c.ttl)}
}

func (c *resultCache) clear() {
	c.mu.Lock()
	c.entries = make(map[string]cachedResult)
	c.mu.Unlock()
}
