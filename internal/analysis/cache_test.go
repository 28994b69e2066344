package analysis

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marek/jobshield/internal/types"
)

func cacheableResult(url string, started time.Time) *types.PageResult {
	return &types.PageResult{
		ID:          uuid.New(),
		PageURL:     url,
		Verdict:     types.VerdictResult,
		StartedAt:   started,
		CompletedAt: time.Now(),
	}
}

func TestResultCache_Defaults(t *testing.T) {
	cache := newResultCache(0, 0)
	assert.Equal(t, defaultCacheSize, cache.size)
	assert.Equal(t, defaultCacheTTL, cache.ttl)
}

func TestResultCache_EvictsOldestAtCapacity(t *testing.T) {
	cache := newResultCache(3, time.Minute)

	for i := 0; i < 4; i++ {
		cache.put(cacheableResult(fmt.Sprintf("https://site%d.example/job", i), time.Now()))
	}

	assert.Equal(t, 3, cache.len())
	_, ok := cache.get("https://site0.example/job")
	assert.False(t, ok, "oldest entry should be evicted")
	for i := 1; i < 4; i++ {
		_, ok := cache.get(fmt.Sprintf("https://site%d.example/job", i))
		assert.True(t, ok)
	}
}

func TestResultCache_ExpiredEntryEvictedOnRead(t *testing.T) {
	cache := newResultCache(3, 10*time.Millisecond)
	cache.put(cacheableResult("https://a.example/job", time.Now()))

	time.Sleep(20 * time.Millisecond)

	_, ok := cache.get("https://a.example/job")
	assert.False(t, ok)
	assert.Equal(t, 0, cache.len())
}

func TestResultCache_StaleRunCannotOverwriteNewer(t *testing.T) {
	cache := newResultCache(3, time.Minute)
	now := time.Now()

	newer := cacheableResult("https://a.example/job", now)
	cache.put(newer)

	// A run that started earlier finished late; it must not win
	stale := cacheableResult("https://a.example/job", now.Add(-time.Minute))
	cache.put(stale)

	got, ok := cache.get("https://a.example/job")
	require.True(t, ok)
	assert.Equal(t, newer.ID, got.ID)
}

func TestResultCache_NewerRunReplacesInPlace(t *testing.T) {
	cache := newResultCache(3, time.Minute)
	now := time.Now()

	cache.put(cacheableResult("https://a.example/job", now))
	replacement := cacheableResult("https://a.example/job", now.Add(time.Second))
	cache.put(replacement)

	got, ok := cache.get("https://a.example/job")
	require.True(t, ok)
	assert.Equal(t, replacement.ID, got.ID)
	assert.Equal(t, 1, cache.len())
}

func TestResultCache_IgnoresUncacheableResults(t *testing.T) {
	cache := newResultCache(3, time.Minute)

	cache.put(nil)
	cache.put(&types.PageResult{ID: uuid.New(), Verdict: types.VerdictResult})

	assert.Equal(t, 0, cache.len())
}

func TestResultCache_ReinsertAfterExpiry(t *testing.T) {
	cache := newResultCache(3, 10*time.Millisecond)
	cache.put(cacheableResult("https://a.example/job", time.Now()))

	time.Sleep(20 * time.Millisecond)
	_, ok := cache.get("https://a.example/job")
	require.False(t, ok)

	fresh := cacheableResult("https://a.example/job", time.Now())
	cache.put(fresh)

	got, ok := cache.get("https://a.example/job")
	require.True(t, ok)
	assert.Equal(t, fresh.ID, got.ID)
}
