package analysis

import (
	"sync"
	"time"

	"github.com/marek/jobshield/internal/types"
)

// defaultCacheSize bounds the result cache.
const defaultCacheSize = 10

// defaultCacheTTL is how long a finished analysis answers repeat requests.
const defaultCacheTTL = 5 * time.Minute

// resultCache holds recent page results keyed by URL, evicting oldest-first
// at capacity. Inserts are timestamp-guarded: a result from an analysis that
// started earlier than the cached one is discarded, so a slow superseded run
// can never overwrite its successor.
type resultCache struct {
	mu      sync.Mutex
	size    int
	ttl     time.Duration
	entries map[string]*types.PageResult
	order   []string
}

func newResultCache(size int, ttl time.Duration) *resultCache {
	if size <= 0 {
		size = defaultCacheSize
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &resultCache{
		size:    size,
		ttl:     ttl,
		entries: make(map[string]*types.PageResult, size),
	}
}

func (c *resultCache) get(url string) (*types.PageResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	result, ok := c.entries[url]
	if !ok {
		return nil, false
	}
	if time.Since(result.CompletedAt) > c.ttl {
		delete(c.entries, url)
		return nil, false
	}
	return result, true
}

func (c *resultCache) put(result *types.PageResult) {
	if result == nil || result.PageURL == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.entries[result.PageURL]; ok {
		if result.StartedAt.Before(existing.StartedAt) {
			return
		}
		c.entries[result.PageURL] = result
		return
	}

	for len(c.entries) >= c.size && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
	c.entries[result.PageURL] = result
	c.order = append(c.order, result.PageURL)

	// Expired entries leave stale keys in order; compact once they dominate
	if len(c.order) > 2*c.size {
		live := c.order[:0]
		for _, key := range c.order {
			if _, ok := c.entries[key]; ok {
				live = append(live, key)
			}
		}
		c.order = live
	}
}

func (c *resultCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
