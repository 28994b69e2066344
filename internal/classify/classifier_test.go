package classify

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marek/jobshield/internal/patterns"
	"github.com/marek/jobshield/internal/types"
)

func testSignals(t *testing.T) *patterns.PageSignals {
	t.Helper()
	library, err := patterns.NewLibrary()
	require.NoError(t, err)
	return library.Signals()
}

func jobFeatures() types.ClassificationFeatures {
	return types.ClassificationFeatures{
		ContentDensity:   0.8,
		JobIndicators:    0.9,
		NavigationScore:  0.2,
		URLScore:         0.9,
		SemanticScore:    0.8,
		StructureScore:   0.7,
		LandingPageScore: 0.1,
	}
}

func landingFeatures() types.ClassificationFeatures {
	return types.ClassificationFeatures{
		ContentDensity:   0.2,
		JobIndicators:    0.1,
		NavigationScore:  0.9,
		URLScore:         0.1,
		SemanticScore:    0.3,
		StructureScore:   0.1,
		LandingPageScore: 0.9,
	}
}

func TestClassifier_JobPostingFeatures(t *testing.T) {
	c := NewClassifier(nil, nil, Config{})

	result := c.Classify(jobFeatures())
	assert.Equal(t, types.PageJobPosting, result.PageType)
	assert.True(t, result.ShouldAnalyze)
	assert.Greater(t, result.Confidence, 0.6)
	assert.Len(t, result.Breakdown, 7)
}

func TestClassifier_LandingPageSkipsAnalysis(t *testing.T) {
	c := NewClassifier(nil, nil, Config{})

	result := c.Classify(landingFeatures())
	assert.Equal(t, types.PageLandingPage, result.PageType)
	assert.Greater(t, result.Confidence, 0.8)
	assert.False(t, result.ShouldAnalyze)
}

func TestClassifier_Deterministic(t *testing.T) {
	c := NewClassifier(nil, nil, Config{})

	first := c.Classify(jobFeatures())
	second := c.Classify(jobFeatures())
	assert.Equal(t, first, second)
}

func TestClassifier_UncertainDefaultsToAnalyze(t *testing.T) {
	c := NewClassifier(nil, nil, Config{})

	// Everything neutral: weak landing call with no strong signal either way
	neutral := types.ClassificationFeatures{
		ContentDensity:   0.5,
		JobIndicators:    0.5,
		NavigationScore:  0.5,
		URLScore:         0.5,
		SemanticScore:    0.5,
		StructureScore:   0.5,
		LandingPageScore: 0.5,
	}
	result := c.Classify(neutral)
	assert.True(t, result.ShouldAnalyze)
}

func TestClassifier_StrongLandingSignalBlocksAnalysis(t *testing.T) {
	c := NewClassifier(nil, nil, Config{})

	// Weak landing call (confidence under the 0.8 skip bar) but a strong
	// landing indicator still blocks analysis
	features := types.ClassificationFeatures{
		ContentDensity:   0.5,
		JobIndicators:    0.5,
		NavigationScore:  0.5,
		URLScore:         0.5,
		SemanticScore:    0.5,
		StructureScore:   0.5,
		LandingPageScore: 0.9,
	}
	result := c.Classify(features)
	require.Equal(t, types.PageLandingPage, result.PageType)
	require.LessOrEqual(t, result.Confidence, 0.8)
	assert.False(t, result.ShouldAnalyze)
}

func TestClassifier_StrongJobIndicatorsForceAnalysis(t *testing.T) {
	c := NewClassifier(nil, nil, Config{})

	// Classified landing with middling confidence, but job indicators are
	// strong: recall wins
	features := types.ClassificationFeatures{
		ContentDensity:   0.2,
		JobIndicators:    0.8,
		NavigationScore:  0.8,
		URLScore:         0.5,
		SemanticScore:    0.2,
		StructureScore:   0.2,
		LandingPageScore: 0.55,
	}
	result := c.Classify(features)
	require.Equal(t, types.PageLandingPage, result.PageType)
	require.LessOrEqual(t, result.Confidence, 0.8)
	assert.True(t, result.ShouldAnalyze)
}

func TestClassifier_ConfidenceStaysWithinBounds(t *testing.T) {
	c := NewClassifier(nil, nil, Config{})

	for _, v := range []float64{0, 0.25, 0.5, 0.75, 1} {
		features := types.ClassificationFeatures{
			ContentDensity:   v,
			JobIndicators:    v,
			NavigationScore:  1 - v,
			URLScore:         v,
			SemanticScore:    v,
			StructureScore:   v,
			LandingPageScore: 1 - v,
		}
		result := c.Classify(features)
		assert.GreaterOrEqual(t, result.Confidence, 0.1, "v=%v", v)
		assert.LessOrEqual(t, result.Confidence, 0.99, "v=%v", v)
	}
}

type fixedAccuracy struct {
	value float64
}

func (f fixedAccuracy) ClassificationAccuracy(types.PageType) (float64, bool) {
	return f.value, true
}

func TestClassifier_HistoricalAccuracyShiftsConfidence(t *testing.T) {
	low := NewClassifier(nil, fixedAccuracy{value: 0.2}, Config{})
	high := NewClassifier(nil, fixedAccuracy{value: 0.99}, Config{})

	features := jobFeatures()
	assert.Less(t, low.Classify(features).Confidence, high.Classify(features).Confidence)
}

func TestClassifier_NudgeWeightsScalesAndClamps(t *testing.T) {
	c := NewClassifier(nil, nil, Config{})
	features := types.ClassificationFeatures{JobIndicators: 1.0}

	// Only the job indicator weight moves; a zero feature leaves its
	// weight untouched
	before := c.Weights()
	after := c.NudgeWeights(features, 0.01)
	assert.InDelta(t, before.JobIndicators+0.01, after.JobIndicators, 1e-9)
	assert.Equal(t, before.ContentDensity, after.ContentDensity)

	// Repeated nudges stop at the upper bound
	for i := 0; i < 100; i++ {
		after = c.NudgeWeights(features, 0.01)
	}
	assert.InDelta(t, MaxWeight, after.JobIndicators, 1e-9)

	for i := 0; i < 200; i++ {
		after = c.NudgeWeights(features, -0.01)
	}
	assert.InDelta(t, MinWeight, after.JobIndicators, 1e-9)
}

func TestClassifier_SetWeightsClamps(t *testing.T) {
	c := NewClassifier(nil, nil, Config{})
	c.SetWeights(Weights{ContentDensity: 2.0, JobIndicators: -1.0, Navigation: 0.2, URL: 0.2, Semantic: 0.2, Structure: 0.2, LandingPage: 0.2})

	w := c.Weights()
	assert.Equal(t, MaxWeight, w.ContentDensity)
	assert.Equal(t, MinWeight, w.JobIndicators)
}

const jobPageHTML = `<!DOCTYPE html>
<html><head><title>Senior Backend Engineer - Careers at Acme</title></head>
<body>
<h1>Senior Backend Engineer</h1>
<p>We are looking for an experienced engineer to join our platform team.
This is a full-time position. Job description: own the billing services
end to end, design APIs, and mentor junior engineers.</p>
<h2>Responsibilities</h2>
<p>Design and operate distributed systems. Review code. Participate in on-call.</p>
<h2>Requirements</h2>
<p>5+ years of experience with Go or Java. Qualifications include a degree
in computer science or equivalent practical experience.</p>
<h2>Salary and Benefits</h2>
<p>Compensation range $150,000 to $190,000. Benefits include health insurance
and 401(k) matching. Apply now through our careers portal.</p>
<a href="/apply">Apply for this job</a>
</body></html>`

const listingPageHTML = `<!DOCTYPE html>
<html><head><title>Browse Jobs | Acme Boards</title></head>
<body>
<h1>Open Positions</h1>
<div class="filters">Filter by department. Sort by date. Results per page: 20.</div>
<ul>
<li><a href="/jobs/1">Backend Engineer</a></li>
<li><a href="/jobs/2">Data Analyst</a></li>
<li><a href="/jobs/3">Product Designer</a></li>
<li><a href="/jobs/4">Support Specialist</a></li>
<li><a href="/jobs/5">Account Executive</a></li>
</ul>
<a href="/jobs?page=2">Load more</a>
<p>View all jobs or set up job alerts.</p>
</body></html>`

func TestFeaturesFromHTML_JobPosting(t *testing.T) {
	features, err := FeaturesFromHTML("https://acme.example/jobs/backend-engineer", jobPageHTML, testSignals(t))
	require.NoError(t, err)

	assert.GreaterOrEqual(t, features.JobIndicators, 0.5)
	assert.Equal(t, 0.9, features.URLScore)
	assert.Less(t, features.NavigationScore, 0.5)
	assert.Greater(t, features.StructureScore, 0.0)
	assert.Greater(t, features.SemanticScore, 0.0)
	assert.Zero(t, features.LandingPageScore)
}

func TestFeaturesFromHTML_ListingPage(t *testing.T) {
	features, err := FeaturesFromHTML("https://acme.example/jobs?page=1", listingPageHTML, testSignals(t))
	require.NoError(t, err)

	assert.GreaterOrEqual(t, features.LandingPageScore, 0.75)
	assert.Equal(t, 0.1, features.URLScore)
	assert.Greater(t, features.NavigationScore, features.ContentDensity)
}

func TestClassifyHTML_JobPageShouldAnalyze(t *testing.T) {
	c := NewClassifier(testSignals(t), nil, Config{})

	result, err := c.ClassifyHTML("https://acme.example/jobs/backend-engineer", jobPageHTML)
	require.NoError(t, err)
	assert.Equal(t, types.PageJobPosting, result.PageType)
	assert.True(t, result.ShouldAnalyze)
	assert.False(t, result.FromCache)
}

func TestClassifyHTML_ListingPageSkipped(t *testing.T) {
	c := NewClassifier(testSignals(t), nil, Config{})

	result, err := c.ClassifyHTML("https://acme.example/jobs?page=1", listingPageHTML)
	require.NoError(t, err)
	assert.Equal(t, types.PageLandingPage, result.PageType)
	assert.False(t, result.ShouldAnalyze)
}

func TestClassifyHTML_SecondCallServedFromCache(t *testing.T) {
	c := NewClassifier(testSignals(t), nil, Config{})

	first, err := c.ClassifyHTML("https://acme.example/jobs/1", jobPageHTML)
	require.NoError(t, err)
	require.False(t, first.FromCache)

	second, err := c.ClassifyHTML("https://acme.example/jobs/1", jobPageHTML)
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.PageType, second.PageType)

	// Different content under the same URL misses the cache
	third, err := c.ClassifyHTML("https://acme.example/jobs/1", listingPageHTML)
	require.NoError(t, err)
	assert.False(t, third.FromCache)
}

func TestDecisionCache_EvictsOldestAtCapacity(t *testing.T) {
	cache := newDecisionCache(time.Minute, 3)

	for i := 0; i < 4; i++ {
		cache.put(fmt.Sprintf("key-%d", i), types.Classification{Score: float64(i)})
	}

	assert.Equal(t, 3, cache.len())
	_, ok := cache.get("key-0")
	assert.False(t, ok, "oldest entry should be evicted")
	got, ok := cache.get("key-3")
	require.True(t, ok)
	assert.Equal(t, 3.0, got.Score)
}

func TestDecisionCache_EntriesExpire(t *testing.T) {
	cache := newDecisionCache(10*time.Millisecond, 3)
	cache.put("key", types.Classification{Score: 1})

	time.Sleep(20 * time.Millisecond)
	_, ok := cache.get("key")
	assert.False(t, ok)
}
