// Package feedback maintains the adjustment ledger: user corrections nudge
// classifier weights, feed rolling per-bucket accuracy, and produce the small
// confidence deltas the orchestrator applies to finished analyses. A single
// goroutine owns all mutable state; public methods are message sends.
package feedback

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/marek/jobshield/internal/classify"
	"github.com/marek/jobshield/internal/observability"
	"github.com/marek/jobshield/internal/types"
)

// learningRate scales weight nudges from incorrect classifications.
const learningRate = 0.01

// maxAdjustment caps the confidence delta in either direction.
const maxAdjustment = 0.05

// adjustmentScale converts bucket accuracy distance from coin-flip into a
// confidence delta: accuracy 1.0 yields +0.05, accuracy 0.0 yields -0.05.
const adjustmentScale = 0.1

// defaultAccuracyWindow is the rolling sample count per page-type bucket.
const defaultAccuracyWindow = 50

// defaultMinSamples is how many outcomes a bucket needs before its accuracy
// is trusted by callers.
const defaultMinSamples = 5

// persistTimeout bounds the fire-and-forget write of a feedback record.
const persistTimeout = 5 * time.Second

// ErrLedgerClosed is returned for operations on a closed ledger.
var ErrLedgerClosed = errors.New("feedback ledger closed")

// WeightNudger is the classifier surface the ledger adjusts.
type WeightNudger interface {
	NudgeWeights(f types.ClassificationFeatures, delta float64) classify.Weights
	Weights() classify.Weights
}

// Persister receives feedback records for durable storage.
type Persister interface {
	PersistFeedback(ctx context.Context, record types.FeedbackRecord) error
}

// Config tunes the ledger. Zero values take the defaults.
type Config struct {
	AccuracyWindow int `json:"accuracy_window"`
	MinSamples     int `json:"min_samples"`
}

func (c *Config) applyDefaults() {
	if c.AccuracyWindow <= 0 {
		c.AccuracyWindow = defaultAccuracyWindow
	}
	if c.MinSamples <= 0 {
		c.MinSamples = defaultMinSamples
	}
}

// BucketStats summarizes one page-type bucket.
type BucketStats struct {
	Samples  int     `json:"samples"`
	Correct  int     `json:"correct"`
	Accuracy float64 `json:"accuracy"`
}

// Stats is a point-in-time snapshot of the ledger.
type Stats struct {
	TotalRecords    int                            `json:"total_records"`
	CorrectRecords  int                            `json:"correct_records"`
	OverallAccuracy float64                        `json:"overall_accuracy"`
	Buckets         map[types.PageType]BucketStats `json:"buckets"`
	Weights         classify.Weights               `json:"weights"`
}

// bucket holds a rolling window of correctness outcomes, newest last.
type bucket struct {
	outcomes []bool
	correct  int
}

func (b *bucket) add(ok bool, window int) {
	b.outcomes = append(b.outcomes, ok)
	if ok {
		b.correct++
	}
	for len(b.outcomes) > window {
		if b.outcomes[0] {
			b.correct--
		}
		b.outcomes = b.outcomes[1:]
	}
}

func (b *bucket) accuracy() float64 {
	if len(b.outcomes) == 0 {
		return 0
	}
	return float64(b.correct) / float64(len(b.outcomes))
}

// Ledger serializes feedback mutations through one writer goroutine.
type Ledger struct {
	nudger WeightNudger
	store  Persister
	cfg    Config

	calls chan func()
	quit  chan struct{}
	wg    sync.WaitGroup
	once  sync.Once

	// Owned by the writer goroutine; never touched from outside run.
	buckets map[types.PageType]*bucket
	total   int
	correct int
}

// Ledger supplies historical accuracy to the classifier.
var _ classify.AccuracySource = (*Ledger)(nil)

// NewLedger starts the writer goroutine. The nudger and store may be nil;
// nudging and persistence are then skipped.
func NewLedger(nudger WeightNudger, store Persister, cfg Config) *Ledger {
	cfg.applyDefaults()
	l := &Ledger{
		nudger:  nudger,
		store:   store,
		cfg:     cfg,
		calls:   make(chan func()),
		quit:    make(chan struct{}),
		buckets: make(map[types.PageType]*bucket),
	}
	l.wg.Add(1)
	go l.run()
	return l
}

func (l *Ledger) run() {
	defer l.wg.Done()
	for {
		select {
		case fn := <-l.calls:
			fn()
		case <-l.quit:
			return
		}
	}
}

// Close stops the writer goroutine. Pending callers receive ErrLedgerClosed.
func (l *Ledger) Close() {
	l.once.Do(func() {
		close(l.quit)
		l.wg.Wait()
	})
}

// send hands a closure to the writer goroutine. The calls channel is
// unbuffered, so a successful send guarantees the closure runs.
func (l *Ledger) send(ctx context.Context, fn func()) error {
	select {
	case l.calls <- fn:
		return nil
	case <-l.quit:
		return ErrLedgerClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Record ingests one feedback record: updates the accuracy bucket for the
// system's classification, nudges classifier weights on incorrect verdicts,
// and persists the record without blocking the caller on storage.
func (l *Ledger) Record(ctx context.Context, rec types.FeedbackRecord) error {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	return l.send(ctx, func() { l.apply(rec) })
}

func (l *Ledger) apply(rec types.FeedbackRecord) {
	l.total++
	if rec.WasCorrect {
		l.correct++
	}

	bkt := l.buckets[rec.SystemClassification]
	if bkt == nil {
		bkt = &bucket{}
		l.buckets[rec.SystemClassification] = bkt
	}
	bkt.add(rec.WasCorrect, l.cfg.AccuracyWindow)

	observeRecord(rec.WasCorrect)
	setBucketAccuracy(rec.SystemClassification, bkt.accuracy())

	if !rec.WasCorrect && l.nudger != nil {
		// The user's classification decides the direction; an uncertain
		// correction carries no direction and nudges nothing.
		switch rec.UserClassification {
		case types.PageJobPosting:
			l.nudger.NudgeWeights(rec.Features, learningRate)
		case types.PageLandingPage:
			l.nudger.NudgeWeights(rec.Features, -learningRate)
		}
	}

	if l.store != nil {
		go l.persist(rec)
	}
}

// persist writes the record with its own deadline; failures are logged and
// otherwise ignored so feedback ingestion never stalls on storage.
func (l *Ledger) persist(rec types.FeedbackRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := l.store.PersistFeedback(ctx, rec); err != nil {
		observability.Logger().Warn("feedback persist failed",
			zap.String("page_url", rec.PageURL),
			zap.Error(err))
	}
}

// ClassificationAccuracy implements classify.AccuracySource. The boolean is
// false until the bucket has MinSamples outcomes.
func (l *Ledger) ClassificationAccuracy(pageType types.PageType) (float64, bool) {
	type reply struct {
		accuracy float64
		ok       bool
	}
	out := make(chan reply, 1)
	err := l.send(context.Background(), func() {
		bkt := l.buckets[pageType]
		if bkt == nil || len(bkt.outcomes) < l.cfg.MinSamples {
			out <- reply{}
			return
		}
		out <- reply{accuracy: bkt.accuracy(), ok: true}
	})
	if err != nil {
		return 0, false
	}
	r := <-out
	return r.accuracy, r.ok
}

// ConfidenceAdjustment returns the signed delta for a page-type bucket,
// positive when the bucket has been accurate lately, zero without enough
// samples. Always within [-maxAdjustment, +maxAdjustment].
func (l *Ledger) ConfidenceAdjustment(pageType types.PageType) float64 {
	accuracy, ok := l.ClassificationAccuracy(pageType)
	if !ok {
		return 0
	}
	delta := (accuracy - 0.5) * adjustmentScale
	if delta > maxAdjustment {
		delta = maxAdjustment
	}
	if delta < -maxAdjustment {
		delta = -maxAdjustment
	}
	return delta
}

// Stats snapshots ledger counters, bucket accuracies, and current weights.
func (l *Ledger) Stats() Stats {
	out := make(chan Stats, 1)
	err := l.send(context.Background(), func() {
		stats := Stats{
			TotalRecords:   l.total,
			CorrectRecords: l.correct,
			Buckets:        make(map[types.PageType]BucketStats, len(l.buckets)),
		}
		if l.total > 0 {
			stats.OverallAccuracy = float64(l.correct) / float64(l.total)
		}
		for pageType, bkt := range l.buckets {
			stats.Buckets[pageType] = BucketStats{
				Samples:  len(bkt.outcomes),
				Correct:  bkt.correct,
				Accuracy: bkt.accuracy(),
			}
		}
		out <- stats
	})
	if err != nil {
		return Stats{}
	}
	stats := <-out
	if l.nudger != nil {
		stats.Weights = l.nudger.Weights()
	}
	return stats
}

// WeightSnapshot returns the classifier's current weights.
func (l *Ledger) WeightSnapshot() classify.Weights {
	if l.nudger == nil {
		return classify.Weights{}
	}
	return l.nudger.Weights()
}
