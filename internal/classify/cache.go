package classify

import (
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/marek/jobshield/internal/types"
)

// Classification cache bounds
const (
	defaultCacheTTL  = 5 * time.Minute
	defaultCacheSize = 100

	// cacheKeyContentLen is how much page text feeds the cache key; enough
	// to tell pages apart without hashing whole documents
	cacheKeyContentLen = 1000
)

type cacheItem struct {
	value    types.Classification
	storedAt time.Time
}

// decisionCache holds recent classifications keyed by URL+content hash.
// Insertion order is tracked so the oldest entry is evicted at capacity.
type decisionCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	size    int
	entries map[string]cacheItem
	order   []string
}

func newDecisionCache(ttl time.Duration, size int) *decisionCache {
	return &decisionCache{
		ttl:     ttl,
		size:    size,
		entries: make(map[string]cacheItem, size),
	}
}

func (d *decisionCache) get(key string) (types.Classification, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	item, ok := d.entries[key]
	if !ok {
		return types.Classification{}, false
	}
	if time.Since(item.storedAt) > d.ttl {
		delete(d.entries, key)
		return types.Classification{}, false
	}
	return item.value, true
}

func (d *decisionCache) put(key string, value types.Classification) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.entries[key]; exists {
		d.entries[key] = cacheItem{value: value, storedAt: time.Now()}
		return
	}

	for len(d.entries) >= d.size && len(d.order) > 0 {
		oldest := d.order[0]
		d.order = d.order[1:]
		delete(d.entries, oldest)
	}

	d.entries[key] = cacheItem{value: value, storedAt: time.Now()}
	d.order = append(d.order, key)

	// TTL-expired entries leave dangling order keys; compact occasionally
	if len(d.order) > 2*d.size {
		live := d.order[:0]
		for _, k := range d.order {
			if _, ok := d.entries[k]; ok {
				live = append(live, k)
			}
		}
		d.order = live
	}
}

func (d *decisionCache) len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.entries)
}

// cacheKey hashes the URL and the leading page content separately so that
// either changing invalidates the entry
func cacheKey(pageURL, content string) string {
	if len(content) > cacheKeyContentLen {
		content = content[:cacheKeyContentLen]
	}
	u := fnv.New64a()
	u.Write([]byte(pageURL)) //nolint:errcheck // fnv never errors
	c := fnv.New64a()
	c.Write([]byte(content)) //nolint:errcheck // fnv never errors
	return fmt.Sprintf("%x:%x", u.Sum64(), c.Sum64())
}
