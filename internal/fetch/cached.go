// Package fetch - cached.go provides URL fetching with in-memory caching
// and failure backoff, so repeated analyses of the same page do not hammer
// the upstream site.
package fetch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// DefaultPageCacheTTL is how long a fetched page stays reusable.
const DefaultPageCacheTTL = 15 * time.Minute

// maxCacheEntries bounds the page cache; oldest entries are evicted first.
const maxCacheEntries = 50

// failureThreshold is how many consecutive failures trigger backoff for a URL.
const failureThreshold = 3

// backoffBase is the initial backoff window after the failure threshold is hit.
const backoffBase = time.Minute

// backoffMax caps the backoff window regardless of failure count.
const backoffMax = time.Hour

// fetchConcurrency bounds parallel fetches in FetchMultiple.
const fetchConcurrency = 4

// CachedFetcher wraps URL fetching with an in-memory page cache.
type CachedFetcher struct {
	options   *Options
	cacheTTL  time.Duration
	skipCache bool // For testing or forcing fresh fetches

	mu       sync.Mutex
	pages    map[string]pageEntry
	order    []string
	failures map[string]failureEntry
	group    singleflight.Group
}

type pageEntry struct {
	result    *Result
	fetchedAt time.Time
}

type failureEntry struct {
	count int
	last  time.Time
}

// CachedFetcherConfig holds configuration for the cached fetcher.
type CachedFetcherConfig struct {
	CacheTTL  time.Duration
	SkipCache bool
	Options   *Options
}

// DefaultCachedFetcherConfig returns sensible defaults.
func DefaultCachedFetcherConfig() *CachedFetcherConfig {
	return &CachedFetcherConfig{
		CacheTTL:  DefaultPageCacheTTL,
		SkipCache: false,
		Options:   DefaultOptions(),
	}
}

// NewCachedFetcher creates a new cached fetcher.
func NewCachedFetcher(config *CachedFetcherConfig) *CachedFetcher {
	if config == nil {
		config = DefaultCachedFetcherConfig()
	}
	if config.Options == nil {
		config.Options = DefaultOptions()
	}
	if config.CacheTTL == 0 {
		config.CacheTTL = DefaultPageCacheTTL
	}
	return &CachedFetcher{
		options:   config.Options,
		cacheTTL:  config.CacheTTL,
		skipCache: config.SkipCache,
		pages:     make(map[string]pageEntry),
		failures:  make(map[string]failureEntry),
	}
}

// CachedResult extends Result with cache metadata.
type CachedResult struct {
	*Result
	FromCache bool      // Whether this result came from cache
	FetchedAt time.Time // When the underlying fetch happened
}

// Fetch retrieves a URL, using cache if available and fresh.
// Returns cached content if within TTL, otherwise fetches fresh content and caches it.
// Concurrent calls for the same URL share a single upstream fetch.
func (f *CachedFetcher) Fetch(ctx context.Context, urlStr string) (*CachedResult, error) {
	// Step 1: Refuse URLs that are in a failure backoff window
	if !f.skipCache {
		if wait, skip := f.inBackoff(urlStr); skip {
			return nil, &Error{
				URL:     urlStr,
				Message: fmt.Sprintf("skipped after repeated failures, retry in %s", wait.Round(time.Second)),
			}
		}
	}

	// Step 2: Try the in-memory cache
	if !f.skipCache {
		if cached, ok := f.lookup(urlStr); ok {
			return cached, nil
		}
	}

	// Step 3: Fetch fresh content, deduplicating concurrent callers
	v, err, _ := f.group.Do(urlStr, func() (interface{}, error) {
		return f.fetchFresh(ctx, urlStr)
	})
	if err != nil {
		return nil, err
	}
	return v.(*CachedResult), nil
}

func (f *CachedFetcher) fetchFresh(ctx context.Context, urlStr string) (*CachedResult, error) {
	result, err := URL(ctx, urlStr, f.options)
	if err != nil {
		f.recordFailure(urlStr)
		return nil, err
	}

	// Extract text using platform-aware selectors
	platform := DetectPlatform(urlStr)
	text, _ := ExtractMainText(result.HTML, PlatformContentSelectors(platform), PlatformNoiseSelectors(platform)...)
	result.Text = text

	// Script-rendered pages come back nearly empty over plain HTTP; retry
	// in a headless browser when enabled.
	if f.options.UseBrowser && ShouldUseBrowser(text) {
		if html, err := WithBrowser(ctx, urlStr, f.options.Timeout); err == nil {
			result.HTML = html
			text, _ = ExtractMainText(html, PlatformContentSelectors(platform), PlatformNoiseSelectors(platform)...)
			result.Text = text
		}
	}

	now := time.Now()
	f.store(urlStr, result, now)

	return &CachedResult{
		Result:    result,
		FromCache: false,
		FetchedAt: now,
	}, nil
}

// FetchMultiple fetches multiple URLs concurrently with caching.
// Returns results in the same order as input URLs. Failed fetches are nil in the result slice.
func (f *CachedFetcher) FetchMultiple(ctx context.Context, urls []string) ([]*CachedResult, []error) {
	results := make([]*CachedResult, len(urls))
	errors := make([]error, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)
	for i, url := range urls {
		i, url := i, url
		g.Go(func() error {
			result, err := f.Fetch(gctx, url)
			if err != nil {
				errors[i] = err
				return nil
			}
			results[i] = result
			return nil
		})
	}
	_ = g.Wait() // workers never return errors, they record them per URL

	return results, errors
}

// InvalidateCache drops a cached page, forcing a re-fetch on next request.
func (f *CachedFetcher) InvalidateCache(urlStr string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.pages, urlStr)
}

// lookup returns a cached result if present and fresh.
func (f *CachedFetcher) lookup(urlStr string) (*CachedResult, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entry, ok := f.pages[urlStr]
	if !ok {
		return nil, false
	}
	if time.Since(entry.fetchedAt) > f.cacheTTL {
		delete(f.pages, urlStr)
		return nil, false
	}
	return &CachedResult{
		Result:    entry.result,
		FromCache: true,
		FetchedAt: entry.fetchedAt,
	}, true
}

// store caches a fetched page, evicting the oldest entries at capacity,
// and clears any failure history for the URL.
func (f *CachedFetcher) store(urlStr string, result *Result, fetchedAt time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.pages[urlStr]; !exists {
		for len(f.pages) >= maxCacheEntries && len(f.order) > 0 {
			oldest := f.order[0]
			f.order = f.order[1:]
			delete(f.pages, oldest)
		}
		f.order = append(f.order, urlStr)
	}
	f.pages[urlStr] = pageEntry{result: result, fetchedAt: fetchedAt}
	delete(f.failures, urlStr)

	// Compact the eviction order once expired entries outnumber live ones
	if len(f.order) > 2*maxCacheEntries {
		live := f.order[:0]
		for _, key := range f.order {
			if _, ok := f.pages[key]; ok {
				live = append(live, key)
			}
		}
		f.order = live
	}
}

// recordFailure bumps the consecutive failure count for a URL.
func (f *CachedFetcher) recordFailure(urlStr string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entry := f.failures[urlStr]
	entry.count++
	entry.last = time.Now()
	f.failures[urlStr] = entry
}

// inBackoff reports whether a URL is inside its failure backoff window,
// and if so how long until it may be retried.
func (f *CachedFetcher) inBackoff(urlStr string) (time.Duration, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entry, ok := f.failures[urlStr]
	if !ok || entry.count < failureThreshold {
		return 0, false
	}

	window := backoffBase << uint(entry.count-failureThreshold)
	if window > backoffMax || window <= 0 {
		window = backoffMax
	}
	remaining := window - time.Since(entry.last)
	if remaining <= 0 {
		return 0, false
	}
	return remaining, true
}
