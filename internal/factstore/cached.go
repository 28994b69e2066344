package factstore

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/marek/jobshield/internal/resilience"
	"github.com/marek/jobshield/internal/types"
)

// Default document TTLs and fetch bounds
const (
	DefaultBlacklistTTL = 6 * time.Hour
	DefaultModelTTL     = 24 * time.Hour
	DefaultFetchTimeout = 10 * time.Second
)

// CacheConfig tunes the cached source
type CacheConfig struct {
	BlacklistTTL     time.Duration
	ModelTTL         time.Duration
	FetchTimeout     time.Duration
	BreakerThreshold uint32
	BreakerOpenFor   time.Duration
}

func (c *CacheConfig) applyDefaults() {
	if c.BlacklistTTL <= 0 {
		c.BlacklistTTL = DefaultBlacklistTTL
	}
	if c.ModelTTL <= 0 {
		c.ModelTTL = DefaultModelTTL
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = DefaultFetchTimeout
	}
}

type cacheEntry[T any] struct {
	value     T
	fetchedAt time.Time
	have      bool
}

func (e cacheEntry[T]) fresh(ttl time.Duration) bool {
	return e.have && time.Since(e.fetchedAt) < ttl
}

// CachedSource wraps a Store with per-document TTL caches, a circuit
// breaker, and uniform fetch timeouts. Expired reads trigger a refresh
// bounded by the fetch timeout; concurrent refreshes are deduplicated.
// A failed refresh serves the last-known value marked Stale.
type CachedSource struct {
	store   Store
	breaker *resilience.Breaker
	cfg     CacheConfig
	group   singleflight.Group

	mu        sync.RWMutex
	blacklist cacheEntry[types.BlacklistDoc]
	model     cacheEntry[types.ModelBlob]
}

// NewCachedSource wraps store with caching and resilience guards
func NewCachedSource(store Store, cfg CacheConfig) *CachedSource {
	cfg.applyDefaults()
	return &CachedSource{
		store:   store,
		breaker: resilience.NewBreaker("factstore", cfg.BreakerThreshold, cfg.BreakerOpenFor),
		cfg:     cfg,
	}
}

// Blacklist returns the domain blacklist snapshot, refreshing past the TTL
func (c *CachedSource) Blacklist(ctx context.Context) Snapshot[types.BlacklistDoc] {
	c.mu.RLock()
	entry := c.blacklist
	c.mu.RUnlock()

	if entry.fresh(c.cfg.BlacklistTTL) {
		return Snapshot[types.BlacklistDoc]{State: Fresh, Value: entry.value, AsOf: entry.fetchedAt}
	}

	doc, err := c.fetchBlacklist(ctx)
	if err == nil {
		return Snapshot[types.BlacklistDoc]{State: Fresh, Value: doc, AsOf: doc.FetchedAt}
	}
	if entry.have {
		return Snapshot[types.BlacklistDoc]{State: Stale, Value: entry.value, AsOf: entry.fetchedAt, Err: err}
	}
	return Snapshot[types.BlacklistDoc]{State: Unavailable, Err: err}
}

// Model returns the model blob snapshot, refreshing past the TTL
func (c *CachedSource) Model(ctx context.Context) Snapshot[types.ModelBlob] {
	c.mu.RLock()
	entry := c.model
	c.mu.RUnlock()

	if entry.fresh(c.cfg.ModelTTL) {
		return Snapshot[types.ModelBlob]{State: Fresh, Value: entry.value, AsOf: entry.fetchedAt}
	}

	blob, fetchedAt, err := c.fetchModel(ctx)
	if err == nil {
		return Snapshot[types.ModelBlob]{State: Fresh, Value: blob, AsOf: fetchedAt}
	}
	if entry.have {
		return Snapshot[types.ModelBlob]{State: Stale, Value: entry.value, AsOf: entry.fetchedAt, Err: err}
	}
	return Snapshot[types.ModelBlob]{State: Unavailable, Err: err}
}

func (c *CachedSource) fetchBlacklist(ctx context.Context) (types.BlacklistDoc, error) {
	v, err, _ := c.group.Do("blacklist", func() (interface{}, error) {
		outcome := resilience.Do(ctx, "blacklist_fetch", c.cfg.FetchTimeout,
			func(ctx context.Context) (types.BlacklistDoc, error) {
				return c.guardedBlacklistFetch(ctx)
			})

		switch outcome.Kind {
		case resilience.Success:
			doc := outcome.Value
			if doc.FetchedAt.IsZero() {
				doc.FetchedAt = time.Now()
			}
			c.mu.Lock()
			c.blacklist = cacheEntry[types.BlacklistDoc]{value: doc, fetchedAt: doc.FetchedAt, have: true}
			c.mu.Unlock()
			return doc, nil
		case resilience.TimedOut:
			return nil, &FetchTimeoutError{Op: "blacklist", Timeout: c.cfg.FetchTimeout}
		default:
			return nil, classifyFetchError("blacklist", outcome.Err)
		}
	})
	if err != nil {
		return types.BlacklistDoc{}, err
	}
	return v.(types.BlacklistDoc), nil
}

func (c *CachedSource) fetchModel(ctx context.Context) (types.ModelBlob, time.Time, error) {
	type modelFetch struct {
		blob      types.ModelBlob
		fetchedAt time.Time
	}

	v, err, _ := c.group.Do("model", func() (interface{}, error) {
		outcome := resilience.Do(ctx, "model_fetch", c.cfg.FetchTimeout,
			func(ctx context.Context) (types.ModelBlob, error) {
				return c.guardedModelFetch(ctx)
			})

		switch outcome.Kind {
		case resilience.Success:
			fetchedAt := time.Now()
			c.mu.Lock()
			c.model = cacheEntry[types.ModelBlob]{value: outcome.Value, fetchedAt: fetchedAt, have: true}
			c.mu.Unlock()
			return modelFetch{blob: outcome.Value, fetchedAt: fetchedAt}, nil
		case resilience.TimedOut:
			return nil, &FetchTimeoutError{Op: "model", Timeout: c.cfg.FetchTimeout}
		default:
			return nil, classifyFetchError("model", outcome.Err)
		}
	})
	if err != nil {
		return types.ModelBlob{}, time.Time{}, err
	}
	fetched := v.(modelFetch)
	return fetched.blob, fetched.fetchedAt, nil
}

func (c *CachedSource) guardedBlacklistFetch(ctx context.Context) (types.BlacklistDoc, error) {
	value, err := c.breaker.Execute(func() (interface{}, error) {
		return c.store.FetchDomainBlacklist(ctx)
	})
	if err != nil {
		return types.BlacklistDoc{}, err
	}
	return value.(types.BlacklistDoc), nil
}

func (c *CachedSource) guardedModelFetch(ctx context.Context) (types.ModelBlob, error) {
	value, err := c.breaker.Execute(func() (interface{}, error) {
		return c.store.FetchModelBlob(ctx)
	})
	if err != nil {
		return types.ModelBlob{}, err
	}
	return value.(types.ModelBlob), nil
}

// classifyFetchError maps raw fetch failures onto the error taxonomy,
// preserving already-classified errors
func classifyFetchError(op string, err error) error {
	var dataErr *DataUnavailableError
	if errors.As(err, &dataErr) {
		return err
	}
	var netErr *NetworkUnavailableError
	if errors.As(err, &netErr) {
		return err
	}
	var timeoutErr *FetchTimeoutError
	if errors.As(err, &timeoutErr) {
		return err
	}
	return &NetworkUnavailableError{Op: op, Cause: err}
}

// Invalidate expires both caches so the next read refreshes. Last-known
// values are kept for stale fallback.
func (c *CachedSource) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.blacklist.fetchedAt = time.Time{}
	c.model.fetchedAt = time.Time{}
}

// Stats describes the cache for the stats endpoint
type Stats struct {
	BlacklistAsOf   time.Time `json:"blacklist_as_of"`
	BlacklistCount  int       `json:"blacklist_count"`
	ModelAsOf       time.Time `json:"model_as_of"`
	ModelVersion    string    `json:"model_version"`
	BreakerState    string    `json:"breaker_state"`
	BlacklistCached bool      `json:"blacklist_cached"`
	ModelCached     bool      `json:"model_cached"`
}

// CacheStats reports cache ages and breaker state
func (c *CachedSource) CacheStats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{
		BlacklistAsOf:   c.blacklist.fetchedAt,
		BlacklistCount:  len(c.blacklist.value.Domains),
		ModelAsOf:       c.model.fetchedAt,
		ModelVersion:    c.model.value.Version,
		BreakerState:    c.breaker.State(),
		BlacklistCached: c.blacklist.have,
		ModelCached:     c.model.have,
	}
}
