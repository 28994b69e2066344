package factstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marek/jobshield/internal/resilience"
	"github.com/marek/jobshield/internal/types"
)

func seededStore() *MemoryStore {
	store := NewMemoryStore()
	store.SetBlacklist(types.BlacklistDoc{
		Domains: []string{"scam-jobs.example", "fake-hiring.test"},
		Version: "2026-08-01",
	})
	store.SetModel(types.ModelBlob{
		FeatureWeights: []types.FeatureWeight{
			{Pattern: "wire transfer", Weight: 0.8, Category: "payment"},
		},
		Threshold: 0.5,
		Accuracy:  0.97,
		Version:   "v3",
	})
	return store
}

func TestCachedSource_FreshFetchIsCached(t *testing.T) {
	store := seededStore()
	source := NewCachedSource(store, CacheConfig{})

	snap := source.Blacklist(context.Background())
	require.Equal(t, Fresh, snap.State)
	require.True(t, snap.Usable())
	assert.Len(t, snap.Value.Domains, 2)
	assert.False(t, snap.AsOf.IsZero())

	// Second read within the TTL must not touch the store
	again := source.Blacklist(context.Background())
	assert.Equal(t, Fresh, again.State)
	assert.Equal(t, 1, store.BlacklistCalls())
}

func TestCachedSource_StaleServedWhenRefreshFails(t *testing.T) {
	store := seededStore()
	source := NewCachedSource(store, CacheConfig{})

	first := source.Blacklist(context.Background())
	require.Equal(t, Fresh, first.State)

	source.Invalidate()
	store.FailBlacklist(errors.New("connection reset"))

	snap := source.Blacklist(context.Background())
	assert.Equal(t, Stale, snap.State)
	assert.True(t, snap.Usable())
	assert.Equal(t, first.Value.Domains, snap.Value.Domains)

	var netErr *NetworkUnavailableError
	assert.ErrorAs(t, snap.Err, &netErr)
}

func TestCachedSource_UnavailableWithoutCachedValue(t *testing.T) {
	source := NewCachedSource(NewMemoryStore(), CacheConfig{})

	snap := source.Blacklist(context.Background())
	assert.Equal(t, Unavailable, snap.State)
	assert.False(t, snap.Usable())

	var dataErr *DataUnavailableError
	assert.ErrorAs(t, snap.Err, &dataErr)
}

func TestCachedSource_ModelRefetchedAfterTTL(t *testing.T) {
	store := seededStore()
	source := NewCachedSource(store, CacheConfig{ModelTTL: 20 * time.Millisecond})

	first := source.Model(context.Background())
	require.Equal(t, Fresh, first.State)
	assert.Equal(t, "v3", first.Value.Version)

	time.Sleep(30 * time.Millisecond)

	store.SetModel(types.ModelBlob{
		FeatureWeights: []types.FeatureWeight{
			{Pattern: "wire transfer", Weight: 0.8, Category: "payment"},
		},
		Version: "v4",
	})
	second := source.Model(context.Background())
	assert.Equal(t, Fresh, second.State)
	assert.Equal(t, "v4", second.Value.Version)
	assert.Equal(t, 2, store.ModelCalls())
}

func TestCachedSource_SlowFetchReportsTimeout(t *testing.T) {
	store := seededStore()
	store.SetDelay(200 * time.Millisecond)
	source := NewCachedSource(store, CacheConfig{FetchTimeout: 20 * time.Millisecond})

	snap := source.Blacklist(context.Background())
	assert.Equal(t, Unavailable, snap.State)

	var timeoutErr *FetchTimeoutError
	require.ErrorAs(t, snap.Err, &timeoutErr)
	assert.Equal(t, 20*time.Millisecond, timeoutErr.Timeout)
}

func TestCachedSource_BreakerRejectsAfterRepeatedFailures(t *testing.T) {
	store := NewMemoryStore()
	store.FailBlacklist(errors.New("connection refused"))
	source := NewCachedSource(store, CacheConfig{BreakerThreshold: 2, BreakerOpenFor: time.Minute})

	for i := 0; i < 2; i++ {
		snap := source.Blacklist(context.Background())
		assert.Equal(t, Unavailable, snap.State)
	}
	require.Equal(t, 2, store.BlacklistCalls())

	// Third read is rejected without reaching the store
	snap := source.Blacklist(context.Background())
	assert.Equal(t, Unavailable, snap.State)
	assert.ErrorIs(t, snap.Err, resilience.ErrOpen)
	assert.Equal(t, 2, store.BlacklistCalls())
	assert.Equal(t, "open", source.CacheStats().BreakerState)
}

func TestCachedSource_ConcurrentReadsShareOneFetch(t *testing.T) {
	store := seededStore()
	store.SetDelay(30 * time.Millisecond)
	source := NewCachedSource(store, CacheConfig{})

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			snap := source.Blacklist(context.Background())
			assert.Equal(t, Fresh, snap.State)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, store.BlacklistCalls())
}

func TestCachedSource_CacheStats(t *testing.T) {
	store := seededStore()
	source := NewCachedSource(store, CacheConfig{})

	source.Blacklist(context.Background())
	source.Model(context.Background())

	stats := source.CacheStats()
	assert.True(t, stats.BlacklistCached)
	assert.Equal(t, 2, stats.BlacklistCount)
	assert.True(t, stats.ModelCached)
	assert.Equal(t, "v3", stats.ModelVersion)
	assert.Equal(t, "closed", stats.BreakerState)
	assert.False(t, stats.BlacklistAsOf.IsZero())
}

func TestMemoryStore_RecordsPersistedDocuments(t *testing.T) {
	store := NewMemoryStore()

	err := store.PersistFeedback(context.Background(), types.FeedbackRecord{
		PageURL:            "https://jobs.example/posting/1",
		UserClassification: types.PageJobPosting,
		WasCorrect:         true,
	})
	require.NoError(t, err)
	require.Len(t, store.Feedback(), 1)
	assert.Equal(t, "https://jobs.example/posting/1", store.Feedback()[0].PageURL)
}
