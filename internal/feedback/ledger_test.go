package feedback

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marek/jobshield/internal/classify"
	"github.com/marek/jobshield/internal/factstore"
	"github.com/marek/jobshield/internal/patterns"
	"github.com/marek/jobshield/internal/types"
)

func newTestClassifier(t *testing.T) *classify.Classifier {
	t.Helper()
	library, err := patterns.NewLibrary()
	require.NoError(t, err)
	return classify.NewClassifier(library.Signals(), nil, classify.Config{})
}

func newTestLedger(t *testing.T, nudger WeightNudger, store Persister, cfg Config) *Ledger {
	t.Helper()
	ledger := NewLedger(nudger, store, cfg)
	t.Cleanup(ledger.Close)
	return ledger
}

func record(pageType types.PageType, correct bool) types.FeedbackRecord {
	user := pageType
	if !correct {
		if pageType == types.PageJobPosting {
			user = types.PageLandingPage
		} else {
			user = types.PageJobPosting
		}
	}
	return types.FeedbackRecord{
		PageURL:              "https://example.com/jobs/1",
		UserClassification:   user,
		SystemClassification: pageType,
		WasCorrect:           correct,
		Features:             types.ClassificationFeatures{JobIndicators: 0.8, ContentDensity: 0.6},
	}
}

func TestLedger_RecordUpdatesBucketAccuracy(t *testing.T) {
	ledger := newTestLedger(t, nil, nil, Config{MinSamples: 1})

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, ledger.Record(ctx, record(types.PageJobPosting, true)))
	}
	require.NoError(t, ledger.Record(ctx, record(types.PageJobPosting, false)))

	accuracy, ok := ledger.ClassificationAccuracy(types.PageJobPosting)
	require.True(t, ok)
	assert.InDelta(t, 0.75, accuracy, 1e-9)
}

func TestLedger_AccuracyNeedsMinimumSamples(t *testing.T) {
	ledger := newTestLedger(t, nil, nil, Config{})

	ctx := context.Background()
	require.NoError(t, ledger.Record(ctx, record(types.PageJobPosting, true)))
	require.NoError(t, ledger.Record(ctx, record(types.PageJobPosting, true)))

	_, ok := ledger.ClassificationAccuracy(types.PageJobPosting)
	assert.False(t, ok, "two samples must not be trusted with the default minimum")
}

func TestLedger_IncorrectFeedbackNudgesWeights(t *testing.T) {
	classifier := newTestClassifier(t)
	ledger := newTestLedger(t, classifier, nil, Config{})
	before := classifier.Weights()

	// System said landing page, the user corrected to job posting: weights rise
	rec := types.FeedbackRecord{
		PageURL:              "https://example.com/jobs/2",
		UserClassification:   types.PageJobPosting,
		SystemClassification: types.PageLandingPage,
		WasCorrect:           false,
		Features:             types.ClassificationFeatures{JobIndicators: 0.8, ContentDensity: 0.5},
	}
	require.NoError(t, ledger.Record(context.Background(), rec))
	_ = ledger.Stats() // barrier: the record is applied before Stats returns

	after := classifier.Weights()
	assert.InDelta(t, before.JobIndicators+0.01*0.8, after.JobIndicators, 1e-9)
	assert.InDelta(t, before.ContentDensity+0.01*0.5, after.ContentDensity, 1e-9)
	assert.InDelta(t, before.URL, after.URL, 1e-9, "zero-valued features stay put")
}

func TestLedger_OverclassificationNudgesDown(t *testing.T) {
	classifier := newTestClassifier(t)
	ledger := newTestLedger(t, classifier, nil, Config{})
	before := classifier.Weights()

	// System said job posting, the user corrected to landing page: weights drop
	rec := types.FeedbackRecord{
		UserClassification:   types.PageLandingPage,
		SystemClassification: types.PageJobPosting,
		WasCorrect:           false,
		Features:             types.ClassificationFeatures{JobIndicators: 1.0},
	}
	require.NoError(t, ledger.Record(context.Background(), rec))
	_ = ledger.Stats()

	after := classifier.Weights()
	assert.InDelta(t, before.JobIndicators-0.01, after.JobIndicators, 1e-9)
}

func TestLedger_CorrectFeedbackLeavesWeightsAlone(t *testing.T) {
	classifier := newTestClassifier(t)
	ledger := newTestLedger(t, classifier, nil, Config{})
	before := classifier.Weights()

	require.NoError(t, ledger.Record(context.Background(), record(types.PageJobPosting, true)))
	_ = ledger.Stats()

	assert.Equal(t, before, classifier.Weights())
}

func TestLedger_UncertainCorrectionDoesNotNudge(t *testing.T) {
	classifier := newTestClassifier(t)
	ledger := newTestLedger(t, classifier, nil, Config{})
	before := classifier.Weights()

	rec := types.FeedbackRecord{
		UserClassification:   types.PageUncertain,
		SystemClassification: types.PageJobPosting,
		WasCorrect:           false,
		Features:             types.ClassificationFeatures{JobIndicators: 1.0},
	}
	require.NoError(t, ledger.Record(context.Background(), rec))
	_ = ledger.Stats()

	assert.Equal(t, before, classifier.Weights())
}

func TestLedger_ConfidenceAdjustmentTracksAccuracy(t *testing.T) {
	ledger := newTestLedger(t, nil, nil, Config{})

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, ledger.Record(ctx, record(types.PageJobPosting, true)))
		require.NoError(t, ledger.Record(ctx, record(types.PageLandingPage, false)))
	}

	assert.InDelta(t, 0.05, ledger.ConfidenceAdjustment(types.PageJobPosting), 1e-9)
	assert.InDelta(t, -0.05, ledger.ConfidenceAdjustment(types.PageLandingPage), 1e-9)
	assert.Zero(t, ledger.ConfidenceAdjustment(types.PageUncertain), "unseen bucket contributes nothing")
}

func TestLedger_RollingWindowEvictsOldOutcomes(t *testing.T) {
	ledger := newTestLedger(t, nil, nil, Config{AccuracyWindow: 4, MinSamples: 1})

	ctx := context.Background()
	for i := 0; i < 4; i++ {
		require.NoError(t, ledger.Record(ctx, record(types.PageJobPosting, false)))
	}
	for i := 0; i < 4; i++ {
		require.NoError(t, ledger.Record(ctx, record(types.PageJobPosting, true)))
	}

	accuracy, ok := ledger.ClassificationAccuracy(types.PageJobPosting)
	require.True(t, ok)
	assert.InDelta(t, 1.0, accuracy, 1e-9, "early failures must age out of the window")
}

func TestLedger_PersistsRecordsInBackground(t *testing.T) {
	store := factstore.NewMemoryStore()
	ledger := newTestLedger(t, nil, store, Config{})

	require.NoError(t, ledger.Record(context.Background(), record(types.PageJobPosting, true)))

	require.Eventually(t, func() bool {
		return len(store.Feedback()) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, types.PageJobPosting, store.Feedback()[0].SystemClassification)
}

func TestLedger_ClosedLedgerRejectsRecords(t *testing.T) {
	ledger := NewLedger(nil, nil, Config{})
	ledger.Close()

	err := ledger.Record(context.Background(), record(types.PageJobPosting, true))
	assert.ErrorIs(t, err, ErrLedgerClosed)

	_, ok := ledger.ClassificationAccuracy(types.PageJobPosting)
	assert.False(t, ok)
}

func TestLedger_ConcurrentRecordsAllApplied(t *testing.T) {
	ledger := newTestLedger(t, nil, nil, Config{})

	var wg sync.WaitGroup
	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 10; i++ {
				_ = ledger.Record(context.Background(), record(types.PageJobPosting, i%2 == 0))
			}
		}()
	}
	wg.Wait()

	stats := ledger.Stats()
	assert.Equal(t, 100, stats.TotalRecords)
	assert.Equal(t, 50, stats.CorrectRecords)
}

func TestLedger_StatsSnapshot(t *testing.T) {
	classifier := newTestClassifier(t)
	ledger := newTestLedger(t, classifier, nil, Config{})

	ctx := context.Background()
	require.NoError(t, ledger.Record(ctx, record(types.PageJobPosting, true)))
	require.NoError(t, ledger.Record(ctx, record(types.PageJobPosting, true)))
	require.NoError(t, ledger.Record(ctx, record(types.PageLandingPage, false)))

	stats := ledger.Stats()
	assert.Equal(t, 3, stats.TotalRecords)
	assert.Equal(t, 2, stats.CorrectRecords)
	assert.InDelta(t, 2.0/3.0, stats.OverallAccuracy, 1e-9)
	require.Contains(t, stats.Buckets, types.PageJobPosting)
	require.Contains(t, stats.Buckets, types.PageLandingPage)
	assert.Equal(t, 2, stats.Buckets[types.PageJobPosting].Samples)
	assert.InDelta(t, 1.0, stats.Buckets[types.PageJobPosting].Accuracy, 1e-9)
	assert.NotZero(t, stats.Weights.JobIndicators)
}
