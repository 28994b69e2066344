// Package analysis sequences the fraud-detection pipeline: domain check,
// page classification gate, posting extraction, per-posting scoring,
// aggregation, and feedback-driven confidence adjustment. Every stage
// failure degrades into the next stage; the pipeline fails toward "ask a
// human", never toward a confident false verdict.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/marek/jobshield/internal/classify"
	"github.com/marek/jobshield/internal/extract"
	"github.com/marek/jobshield/internal/factstore"
	"github.com/marek/jobshield/internal/fetch"
	"github.com/marek/jobshield/internal/observability"
	"github.com/marek/jobshield/internal/patterns"
	"github.com/marek/jobshield/internal/reputation"
	"github.com/marek/jobshield/internal/resilience"
	"github.com/marek/jobshield/internal/scoring"
	"github.com/marek/jobshield/internal/types"
)

// Pipeline stage names recorded in StepRecords and metrics.
const (
	StageDomainCheck          = "domain_check"
	StagePageFetch            = "page_fetch"
	StageClassification       = "page_classification"
	StageExtraction           = "content_extraction"
	StageScoring              = "posting_scoring"
	StageAggregation          = "aggregation"
	StageConfidenceAdjustment = "confidence_adjustment"
)

// defaultStageTimeout bounds each pipeline stage.
const defaultStageTimeout = 10 * time.Second

// defaultScoreConcurrency bounds parallel posting scoring.
const defaultScoreConcurrency = 4

// persistTimeout bounds the fire-and-forget result write.
const persistTimeout = 5 * time.Second

// confidenceBoostScale converts fraud percentage into the aggregation
// confidence boost: a fully fraudulent page gains up to 0.15.
const confidenceBoostScale = 0.15

// confidenceCaps bound the boosted aggregate confidence per risk level.
var confidenceCaps = map[types.RiskLevel]float64{
	types.RiskHigh:   0.98,
	types.RiskMedium: 0.95,
	types.RiskLow:    0.90,
}

// InvalidRequestError reports a request with nothing to analyze. It is the
// one error Analyze surfaces instead of degrading.
type InvalidRequestError struct {
	Reason string
}

func (e *InvalidRequestError) Error() string {
	return "invalid analysis request: " + e.Reason
}

// ConfidenceSource supplies the feedback-derived confidence delta.
type ConfidenceSource interface {
	ConfidenceAdjustment(pageType types.PageType) float64
}

// Request carries one page to analyze. PageURL alone triggers a fetch;
// callers that already hold page HTML or extracted posting texts supply
// them and skip the corresponding stages.
type Request struct {
	PageURL      string   `json:"page_url"`
	HTML         string   `json:"html,omitempty"`
	Postings     []string `json:"postings,omitempty"`
	ForceRefresh bool     `json:"force_refresh,omitempty"`

	// OnStage, when set, receives each StepRecord as the stage completes.
	// It is called from the Analyze goroutine only. Cached results replay
	// no stages.
	OnStage func(types.StepRecord) `json:"-"`
}

// Config tunes the orchestrator. Zero values take the defaults.
type Config struct {
	StageTimeout       time.Duration
	SkipClassification bool
	CacheSize          int
	CacheTTL           time.Duration
	ScoreConcurrency   int
}

func (c *Config) applyDefaults() {
	if c.StageTimeout <= 0 {
		c.StageTimeout = defaultStageTimeout
	}
	if c.ScoreConcurrency <= 0 {
		c.ScoreConcurrency = defaultScoreConcurrency
	}
}

// Deps are the injected pipeline collaborators. Checker, Scorer, and
// Library are required; the rest degrade gracefully when nil.
type Deps struct {
	Checker    *reputation.Checker
	Classifier *classify.Classifier
	Scorer     *scoring.Scorer
	Library    *patterns.Library
	Source     *factstore.CachedSource
	Store      factstore.Store
	Ledger     ConfidenceSource
	Fetcher    *fetch.CachedFetcher
}

// Analyzer runs the staged pipeline and owns the bounded result cache.
type Analyzer struct {
	checker    *reputation.Checker
	classifier *classify.Classifier
	scorer     *scoring.Scorer
	library    *patterns.Library
	source     *factstore.CachedSource
	store      factstore.Store
	ledger     ConfidenceSource
	fetcher    *fetch.CachedFetcher
	cfg        Config
	cache      *resultCache
}

// New wires an Analyzer from its dependencies.
func New(deps Deps, cfg Config) (*Analyzer, error) {
	if deps.Checker == nil {
		return nil, errors.New("analysis: reputation checker is required")
	}
	if deps.Scorer == nil {
		return nil, errors.New("analysis: scorer is required")
	}
	if deps.Library == nil {
		return nil, errors.New("analysis: pattern library is required")
	}
	cfg.applyDefaults()
	return &Analyzer{
		checker:    deps.Checker,
		classifier: deps.Classifier,
		scorer:     deps.Scorer,
		library:    deps.Library,
		source:     deps.Source,
		store:      deps.Store,
		ledger:     deps.Ledger,
		fetcher:    deps.Fetcher,
		cfg:        cfg,
		cache:      newResultCache(cfg.CacheSize, cfg.CacheTTL),
	}, nil
}

// Analyze runs the full pipeline for one page. The returned error is non-nil
// only for requests with nothing to analyze; every downstream failure is
// absorbed into a degraded result instead.
func (a *Analyzer) Analyze(ctx context.Context, req Request) (result *types.PageResult, err error) {
	req.Postings = dropEmpty(req.Postings)
	if req.PageURL == "" && req.HTML == "" && len(req.Postings) == 0 {
		return nil, &InvalidRequestError{Reason: "no URL, HTML, or posting text"}
	}

	r := &run{a: a, req: req, started: time.Now().UTC()}

	// A panic anywhere below becomes ANALYSIS_FAILED, never a crash. Steps
	// recorded before the panic stay on the result.
	defer func() {
		if rec := recover(); rec != nil {
			observability.Logger().Error("analysis panicked",
				zap.String("page_url", req.PageURL),
				zap.Any("panic", rec))
			result = r.seal(r.failedResult())
			err = nil
		}
	}()

	if req.PageURL != "" && !req.ForceRefresh {
		if cached, ok := a.cache.get(req.PageURL); ok {
			observeCacheLookup(true)
			return cached, nil
		}
		observeCacheLookup(false)
	}

	result = r.execute(ctx)

	switch result.Verdict {
	case types.VerdictResult, types.VerdictDomainBlacklisted, types.VerdictSkippedLandingPage:
		a.cache.put(result)
		if a.store != nil && result.Verdict != types.VerdictSkippedLandingPage {
			go a.persist(result)
		}
	}
	return result, nil
}

// CacheLen reports how many results the cache currently holds.
func (a *Analyzer) CacheLen() int {
	return a.cache.len()
}

// persist writes a finished result with its own deadline; failures are
// logged and never affect the verdict already returned.
func (a *Analyzer) persist(result *types.PageResult) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := a.store.PersistAnalysisResult(ctx, result); err != nil {
		observability.Logger().Warn("analysis persist failed",
			zap.String("page_url", result.PageURL),
			zap.Error(err))
	}
}

// run is the per-analysis state threaded through the stages.
type run struct {
	a              *Analyzer
	req            Request
	started        time.Time
	steps          []types.StepRecord
	html           string
	fetchTried     bool
	classification *types.Classification
}

func (r *run) execute(ctx context.Context) *types.PageResult {
	r.html = r.req.HTML
	r.refreshModel(ctx)

	if terminal := r.domainCheck(ctx); terminal != nil {
		return r.seal(terminal)
	}
	if terminal := r.classify(ctx); terminal != nil {
		return r.seal(terminal)
	}
	postings := r.extract(ctx)
	scored := r.score(ctx, postings)
	return r.seal(r.finish(scored))
}

// refreshModel swaps in a newer model blob when the fact store has one.
// Failures keep the current table; the scorer falls back on its own.
func (r *run) refreshModel(ctx context.Context) {
	if r.a.source == nil {
		return
	}
	snap := r.a.source.Model(ctx)
	if !snap.Usable() {
		return
	}
	if _, info, ok := r.a.library.Model(); ok && info.Version == snap.Value.Version {
		return
	}
	if err := r.a.library.SetModel(snap.Value); err != nil {
		observability.Logger().Warn("model blob rejected",
			zap.String("version", snap.Value.Version),
			zap.Error(err))
	}
}

// domainCheck short-circuits the pipeline for blacklisted hosts.
func (r *run) domainCheck(ctx context.Context) *types.PageResult {
	if r.req.PageURL == "" {
		r.record(StageDomainCheck, types.StepSkipped, "no URL", 0)
		return nil
	}

	outcome := resilience.Do(ctx, StageDomainCheck, r.a.cfg.StageTimeout,
		func(ctx context.Context) (reputation.Result, error) {
			return r.a.checker.Check(ctx, r.req.PageURL)
		})
	if !outcome.OK() {
		r.record(StageDomainCheck, statusFor(outcome.Kind), errDetail(outcome.Err), outcome.Elapsed)
		return nil
	}

	check := outcome.Value
	if !check.IsFraudulent {
		status := types.StepOK
		detail := ""
		if check.FallbackUsed {
			status = types.StepDegraded
			detail = "blacklist unavailable, failed open"
		}
		r.record(StageDomainCheck, status, detail, outcome.Elapsed)
		return nil
	}

	r.record(StageDomainCheck, types.StepOK,
		fmt.Sprintf("blacklisted: %s", check.Matched), outcome.Elapsed)

	result := r.baseResult()
	result.Verdict = types.VerdictDomainBlacklisted
	result.IsFraud = true
	result.Confidence = check.Confidence
	result.RiskLevel = types.RiskHigh
	result.Method = check.Source
	result.Reasons = []string{
		fmt.Sprintf("domain %s matches blacklist entry %s", check.Domain, check.Matched),
	}
	return result
}

// classify gates the pipeline on page type. A landing page classified with
// high confidence ends the run; everything else proceeds.
func (r *run) classify(ctx context.Context) *types.PageResult {
	if r.a.cfg.SkipClassification || r.a.classifier == nil {
		r.record(StageClassification, types.StepSkipped, "classification disabled", 0)
		return nil
	}

	if r.html == "" && len(r.req.Postings) == 0 {
		r.fetchPage(ctx)
	}
	if r.html == "" {
		r.record(StageClassification, types.StepSkipped, "no page content", 0)
		return nil
	}

	outcome := resilience.Do(ctx, StageClassification, r.a.cfg.StageTimeout,
		func(context.Context) (types.Classification, error) {
			return r.a.classifier.ClassifyHTML(r.req.PageURL, r.html)
		})
	if !outcome.OK() {
		r.record(StageClassification, statusFor(outcome.Kind), errDetail(outcome.Err), outcome.Elapsed)
		return nil
	}

	cls := outcome.Value
	r.classification = &cls
	r.record(StageClassification, types.StepOK,
		fmt.Sprintf("%s (confidence %.2f)", cls.PageType, cls.Confidence), outcome.Elapsed)

	if cls.ShouldAnalyze {
		return nil
	}

	result := r.baseResult()
	result.Verdict = types.VerdictSkippedLandingPage
	result.IsFraud = false
	result.Confidence = cls.Confidence
	result.RiskLevel = types.RiskVeryLow
	result.Reasons = []string{
		fmt.Sprintf("page classified as %s with confidence %.2f", cls.PageType, cls.Confidence),
	}
	return result
}

// fetchPage retrieves the page when the caller supplied only a URL. It runs
// at most once per analysis; the result lands in r.html.
func (r *run) fetchPage(ctx context.Context) {
	if r.fetchTried || r.a.fetcher == nil || r.req.PageURL == "" {
		return
	}
	r.fetchTried = true

	outcome := resilience.Do(ctx, StagePageFetch, r.a.cfg.StageTimeout,
		func(ctx context.Context) (*fetch.CachedResult, error) {
			return r.a.fetcher.Fetch(ctx, r.req.PageURL)
		})
	if !outcome.OK() {
		r.record(StagePageFetch, statusFor(outcome.Kind), errDetail(outcome.Err), outcome.Elapsed)
		return
	}

	detail := fmt.Sprintf("%d bytes", len(outcome.Value.HTML))
	if outcome.Value.FromCache {
		detail += " (cached)"
	}
	r.record(StagePageFetch, types.StepOK, detail, outcome.Elapsed)
	r.html = outcome.Value.HTML
}

// extract produces posting texts: caller-provided first, then structured
// extraction from HTML, else nothing (scoring stage reports the gap).
func (r *run) extract(ctx context.Context) []extract.Posting {
	if len(r.req.Postings) > 0 {
		postings := make([]extract.Posting, len(r.req.Postings))
		for i, text := range r.req.Postings {
			postings[i] = extract.Posting{Index: i, Text: text, Chars: len(text)}
		}
		r.record(StageExtraction, types.StepOK,
			fmt.Sprintf("caller provided %d postings", len(postings)), 0)
		return postings
	}

	if r.html == "" {
		r.fetchPage(ctx)
	}
	if r.html == "" {
		r.record(StageExtraction, types.StepSkipped, "no page content", 0)
		return nil
	}

	outcome := resilience.Do(ctx, StageExtraction, r.a.cfg.StageTimeout,
		func(context.Context) (*extract.Result, error) {
			return extract.FromHTML(r.req.PageURL, r.html)
		})
	if !outcome.OK() {
		r.record(StageExtraction, statusFor(outcome.Kind), errDetail(outcome.Err), outcome.Elapsed)
		return nil
	}

	extracted := outcome.Value
	detail := fmt.Sprintf("%d postings via %s", len(extracted.Postings), extracted.Method)
	if extracted.Truncated {
		detail += " (truncated)"
	}
	r.record(StageExtraction, types.StepOK, detail, outcome.Elapsed)
	return extracted.Postings
}

// score runs the Content Scorer over every posting concurrently. Partial
// results survive timeouts; a posting whose model-profile scoring fails is
// retried on the fallback profile before being dropped.
func (r *run) score(ctx context.Context, postings []extract.Posting) []types.PostingResult {
	if len(postings) == 0 {
		r.record(StageScoring, types.StepSkipped, "no postings", 0)
		return nil
	}

	sctx, cancel := context.WithTimeout(ctx, r.a.cfg.StageTimeout)
	defer cancel()
	start := time.Now()

	results := make([]*types.PostingResult, len(postings))
	g, gctx := errgroup.WithContext(sctx)
	g.SetLimit(r.a.cfg.ScoreConcurrency)
	for i, posting := range postings {
		i, posting := i, posting
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			if res, ok := r.scorePosting(posting.Text); ok {
				res.Index = posting.Index
				results[i] = res
			}
			return nil
		})
	}
	_ = g.Wait() // workers record per-posting failures in place
	elapsed := time.Since(start)

	scored := make([]types.PostingResult, 0, len(results))
	for _, res := range results {
		if res != nil {
			scored = append(scored, *res)
		}
	}
	observePostingsScored(len(scored))

	switch {
	case len(scored) == 0:
		r.record(StageScoring, types.StepFailed, "no posting produced a score", elapsed)
	case len(scored) < len(postings):
		r.record(StageScoring, types.StepDegraded,
			fmt.Sprintf("scored %d of %d postings", len(scored), len(postings)), elapsed)
	default:
		r.record(StageScoring, types.StepOK,
			fmt.Sprintf("scored %d postings", len(scored)), elapsed)
	}
	return scored
}

// scorePosting scores one text, falling back to the built-in table when the
// active profile fails. Unusable text is dropped, not scored.
func (r *run) scorePosting(text string) (*types.PostingResult, bool) {
	res, err := r.a.scorer.Score(text)
	if err != nil {
		var invalid *scoring.InvalidInputError
		if errors.As(err, &invalid) {
			return nil, false
		}
		res, err = r.a.scorer.ScoreWith(scoring.FallbackProfile(r.a.library.Fallback()), text)
		if err != nil {
			observability.Logger().Warn("posting scoring failed", zap.Error(err))
			return nil, false
		}
	}
	return &types.PostingResult{
		IsFraud:    res.IsFraud,
		Confidence: res.Confidence,
		RiskLevel:  res.RiskLevel,
		Method:     res.Method,
		Reasons:    res.Reasons,
	}, true
}

// finish aggregates posting verdicts, applies the feedback adjustment, and
// builds the terminal result.
func (r *run) finish(scored []types.PostingResult) *types.PageResult {
	if len(scored) == 0 {
		r.record(StageAggregation, types.StepSkipped, "nothing to aggregate", 0)
		result := r.baseResult()
		result.Verdict = types.VerdictInconclusive
		result.IsFraud = false
		result.Confidence = 0
		result.RiskLevel = types.RiskVeryLow
		result.NeedsManualReview = true
		result.Reasons = []string{"no stage produced a usable signal"}
		return result
	}

	start := time.Now()
	result := r.baseResult()
	result.Verdict = types.VerdictResult
	result.Postings = scored
	result.PostingCount = len(scored)

	fraudCount := 0
	confidenceSum := 0.0
	for _, p := range scored {
		if p.IsFraud {
			fraudCount++
		}
		confidenceSum += p.Confidence
	}
	fraudPct := float64(fraudCount) / float64(len(scored)) * 100
	avgConfidence := confidenceSum / float64(len(scored))

	result.FraudCount = fraudCount
	result.FraudPercentage = fraudPct
	result.Method = majorityMethod(scored)

	switch {
	case fraudPct >= 50:
		result.RiskLevel = types.RiskHigh
		result.IsFraud = true
	case fraudPct >= 25:
		result.RiskLevel = types.RiskMedium
		result.IsFraud = true
	default:
		result.RiskLevel = types.RiskLow
		result.IsFraud = false
	}

	boost := fraudPct / 100 * confidenceBoostScale
	confidence := avgConfidence + boost
	if ceiling, ok := confidenceCaps[result.RiskLevel]; ok && confidence > ceiling {
		confidence = ceiling
	}
	result.Confidence = clamp01(confidence)
	result.Reasons = aggregateReasons(scored, fraudCount)

	r.record(StageAggregation, types.StepOK,
		fmt.Sprintf("%d of %d postings flagged (%.0f%%)", fraudCount, len(scored), fraudPct),
		time.Since(start))

	r.adjustConfidence(result)
	return result
}

// adjustConfidence applies the ledger delta for this page's classification
// bucket, keeping the final confidence inside [0,1].
func (r *run) adjustConfidence(result *types.PageResult) {
	if r.a.ledger == nil {
		r.record(StageConfidenceAdjustment, types.StepSkipped, "no feedback ledger", 0)
		return
	}
	if r.classification == nil {
		r.record(StageConfidenceAdjustment, types.StepSkipped, "no classification", 0)
		return
	}

	delta := r.a.ledger.ConfidenceAdjustment(r.classification.PageType)
	result.Confidence = clamp01(result.Confidence + delta)
	r.record(StageConfidenceAdjustment, types.StepOK,
		fmt.Sprintf("delta %+.3f for %s", delta, r.classification.PageType), 0)
}

func (r *run) baseResult() *types.PageResult {
	return &types.PageResult{
		ID:        uuid.New(),
		PageURL:   r.req.PageURL,
		StartedAt: r.started,
	}
}

func (r *run) failedResult() *types.PageResult {
	result := r.baseResult()
	result.Verdict = types.VerdictAnalysisFailed
	result.IsFraud = false
	result.Confidence = 0
	result.RiskLevel = types.RiskVeryLow
	result.NeedsManualReview = true
	result.Reasons = []string{"internal failure during analysis"}
	return result
}

// seal finalizes timing, step records, and metrics on a terminal result.
func (r *run) seal(result *types.PageResult) *types.PageResult {
	result.AnalysisSteps = r.steps
	result.CompletedAt = time.Now().UTC()
	observeAnalysis(string(result.Verdict), result.CompletedAt.Sub(r.started))
	return result
}

func (r *run) record(stage string, status types.StepStatus, detail string, elapsed time.Duration) {
	rec := types.StepRecord{
		Stage:     stage,
		Status:    status,
		Detail:    detail,
		ElapsedMs: elapsed.Milliseconds(),
	}
	r.steps = append(r.steps, rec)
	if r.req.OnStage != nil {
		r.req.OnStage(rec)
	}
}

// majorityMethod picks the scoring method most postings used; ties keep the
// earliest posting's method.
func majorityMethod(scored []types.PostingResult) string {
	counts := make(map[string]int, 2)
	for _, p := range scored {
		counts[p.Method]++
	}
	best := scored[0].Method
	for _, p := range scored[1:] {
		if counts[p.Method] > counts[best] {
			best = p.Method
		}
	}
	return best
}

// aggregateReasons merges the page summary with the strongest posting's
// reasons, capped to keep results readable.
func aggregateReasons(scored []types.PostingResult, fraudCount int) []string {
	const maxReasons = 6

	reasons := []string{
		fmt.Sprintf("%d of %d postings flagged as fraudulent", fraudCount, len(scored)),
	}

	var strongest *types.PostingResult
	for i := range scored {
		p := &scored[i]
		if fraudCount > 0 && !p.IsFraud {
			continue
		}
		if strongest == nil || p.Confidence > strongest.Confidence {
			strongest = p
		}
	}
	if strongest != nil {
		for _, reason := range strongest.Reasons {
			if len(reasons) >= maxReasons {
				break
			}
			reasons = append(reasons, reason)
		}
	}
	return reasons
}

func statusFor(kind resilience.Kind) types.StepStatus {
	switch kind {
	case resilience.Success:
		return types.StepOK
	case resilience.TimedOut:
		return types.StepTimedOut
	default:
		return types.StepFailed
	}
}

func errDetail(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func dropEmpty(postings []string) []string {
	kept := postings[:0]
	for _, p := range postings {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return kept
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
