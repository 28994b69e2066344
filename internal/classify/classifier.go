// Package classify decides whether a page is a single job posting worth
// scoring or a listings/landing page to skip. The decision is a weighted
// feature sum with an explicit per-feature breakdown; weights are mutable
// only through bounded feedback nudges.
package classify

import (
	"math"
	"sync"
	"time"

	"github.com/marek/jobshield/internal/patterns"
	"github.com/marek/jobshield/internal/types"
)

// DefaultThreshold separates job postings (above) from landing pages
const DefaultThreshold = 0.6

// Weight bounds for feedback nudges
const (
	MinWeight = 0.05
	MaxWeight = 0.5
)

// Confidence blend shares: distance from threshold, feature consistency,
// historical accuracy for the chosen class.
const (
	distanceShare    = 0.5
	consistencyShare = 0.3
	accuracyShare    = 0.2
)

// neutralAccuracy stands in for historical accuracy before any feedback
// has been recorded for a class
const neutralAccuracy = 0.7

// Confidence is clamped into this range; the classifier never claims
// certainty and never reports pure noise.
const (
	minConfidence = 0.1
	maxConfidence = 0.99
)

// shouldAnalyze policy cut points
const (
	skipLandingConfidence = 0.8
	proceedJobConfidence  = 0.6
	strongSignal          = 0.7
)

// Weights are the per-feature multipliers of the page-type score.
// Navigation and LandingPage are stored positive; navigation contributes
// via (1 - navigationScore) and landing page subtracts.
type Weights struct {
	ContentDensity float64 `json:"content_density"`
	JobIndicators  float64 `json:"job_indicators"`
	Navigation     float64 `json:"navigation"`
	URL            float64 `json:"url"`
	Semantic       float64 `json:"semantic"`
	Structure      float64 `json:"structure"`
	LandingPage    float64 `json:"landing_page"`
}

// DefaultWeights are the stock multipliers
var DefaultWeights = Weights{
	ContentDensity: 0.25,
	JobIndicators:  0.30,
	Navigation:     0.20,
	URL:            0.15,
	Semantic:       0.10,
	Structure:      0.10,
	LandingPage:    0.15,
}

// AccuracySource reports rolling classification accuracy per page type.
// The second return is false when no feedback exists for that class yet.
type AccuracySource interface {
	ClassificationAccuracy(pageType types.PageType) (float64, bool)
}

// Config tunes the classifier. Zero values take the defaults.
type Config struct {
	Weights   Weights
	Threshold float64
	CacheTTL  time.Duration
	CacheSize int
}

func (c *Config) applyDefaults() {
	if c.Weights == (Weights{}) {
		c.Weights = DefaultWeights
	}
	if c.Threshold <= 0 || c.Threshold >= 1 {
		c.Threshold = DefaultThreshold
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = defaultCacheTTL
	}
	if c.CacheSize <= 0 {
		c.CacheSize = defaultCacheSize
	}
}

// Classifier scores classification features into a page-type decision
type Classifier struct {
	mu        sync.RWMutex
	weights   Weights
	threshold float64

	signals  *patterns.PageSignals
	accuracy AccuracySource
	cache    *decisionCache
}

// NewClassifier builds a classifier over the library's page signals;
// accuracy may be nil until a feedback ledger is attached.
func NewClassifier(signals *patterns.PageSignals, accuracy AccuracySource, cfg Config) *Classifier {
	cfg.applyDefaults()
	return &Classifier{
		weights:   cfg.Weights.clamped(),
		threshold: cfg.Threshold,
		signals:   signals,
		accuracy:  accuracy,
		cache:     newDecisionCache(cfg.CacheTTL, cfg.CacheSize),
	}
}

// SetAccuracySource attaches the historical-accuracy provider
func (c *Classifier) SetAccuracySource(accuracy AccuracySource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accuracy = accuracy
}

// Classify is the pure decision: deterministic for identical features and
// identical weights.
func (c *Classifier) Classify(features types.ClassificationFeatures) types.Classification {
	f := features.Clamped()

	c.mu.RLock()
	w := c.weights
	threshold := c.threshold
	accuracy := c.accuracy
	c.mu.RUnlock()

	breakdown := map[string]float64{
		"content_density": w.ContentDensity * f.ContentDensity,
		"job_indicators":  w.JobIndicators * f.JobIndicators,
		"navigation":      w.Navigation * (1 - f.NavigationScore),
		"url":             w.URL * f.URLScore,
		"semantic":        w.Semantic * f.SemanticScore,
		"structure":       w.Structure * f.StructureScore,
		"landing_page":    -w.LandingPage * f.LandingPageScore,
	}

	var score float64
	for _, contribution := range breakdown {
		score += contribution
	}
	score = clamp01(score)

	pageType := types.PageLandingPage
	if score > threshold {
		pageType = types.PageJobPosting
	}

	confidence := blendConfidence(pageType, score, threshold, f, accuracy)

	return types.Classification{
		PageType:      pageType,
		Confidence:    confidence,
		ShouldAnalyze: decideShouldAnalyze(pageType, confidence, f),
		Score:         score,
		Breakdown:     breakdown,
	}
}

// blendConfidence mixes distance-from-threshold, feature consistency, and
// historical accuracy for the chosen class
func blendConfidence(pageType types.PageType, score, threshold float64, f types.ClassificationFeatures, accuracy AccuracySource) float64 {
	distance := 0.5 + math.Abs(score-threshold)
	if distance > 1 {
		distance = 1
	}

	consistency := featureConsistency(pageType, f)

	historical := neutralAccuracy
	if accuracy != nil {
		if a, ok := accuracy.ClassificationAccuracy(pageType); ok {
			historical = a
		}
	}

	confidence := distanceShare*distance + consistencyShare*consistency + accuracyShare*historical
	if confidence < minConfidence {
		return minConfidence
	}
	if confidence > maxConfidence {
		return maxConfidence
	}
	return confidence
}

// featureConsistency is the fraction of features pointing the same
// direction as the chosen class. Density, job indicators, URL, semantic,
// and structure point at job postings when high; navigation and landing
// point away. Features sitting exactly at 0.5 count for neither side.
func featureConsistency(pageType types.PageType, f types.ClassificationFeatures) float64 {
	positive := []float64{f.ContentDensity, f.JobIndicators, f.URLScore, f.SemanticScore, f.StructureScore}
	negative := []float64{f.NavigationScore, f.LandingPageScore}

	agree := 0
	for _, v := range positive {
		if (pageType == types.PageJobPosting && v > 0.5) || (pageType == types.PageLandingPage && v < 0.5) {
			agree++
		}
	}
	for _, v := range negative {
		if (pageType == types.PageJobPosting && v < 0.5) || (pageType == types.PageLandingPage && v > 0.5) {
			agree++
		}
	}
	return float64(agree) / float64(len(positive)+len(negative))
}

// decideShouldAnalyze prefers recall: when uncertain, analyze
func decideShouldAnalyze(pageType types.PageType, confidence float64, f types.ClassificationFeatures) bool {
	if pageType == types.PageLandingPage && confidence > skipLandingConfidence {
		return false
	}
	if pageType == types.PageJobPosting && confidence > proceedJobConfidence {
		return true
	}
	if f.JobIndicators >= strongSignal {
		return true
	}
	if f.LandingPageScore >= strongSignal {
		return false
	}
	return true
}

// Weights returns a copy of the current weights
func (c *Classifier) Weights() Weights {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.weights
}

// SetWeights replaces the weights wholesale, clamped to the weight bounds
func (c *Classifier) SetWeights(w Weights) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.weights = w.clamped()
}

// NudgeWeights shifts every weight by delta scaled by its feature value,
// clamped to the weight bounds, and returns the updated weights. Positive
// delta pushes future scores toward job_posting.
func (c *Classifier) NudgeWeights(f types.ClassificationFeatures, delta float64) Weights {
	f = f.Clamped()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.weights.ContentDensity = clampWeight(c.weights.ContentDensity + delta*f.ContentDensity)
	c.weights.JobIndicators = clampWeight(c.weights.JobIndicators + delta*f.JobIndicators)
	c.weights.Navigation = clampWeight(c.weights.Navigation + delta*f.NavigationScore)
	c.weights.URL = clampWeight(c.weights.URL + delta*f.URLScore)
	c.weights.Semantic = clampWeight(c.weights.Semantic + delta*f.SemanticScore)
	c.weights.Structure = clampWeight(c.weights.Structure + delta*f.StructureScore)
	c.weights.LandingPage = clampWeight(c.weights.LandingPage + delta*f.LandingPageScore)
	return c.weights
}

func (w Weights) clamped() Weights {
	return Weights{
		ContentDensity: clampWeight(w.ContentDensity),
		JobIndicators:  clampWeight(w.JobIndicators),
		Navigation:     clampWeight(w.Navigation),
		URL:            clampWeight(w.URL),
		Semantic:       clampWeight(w.Semantic),
		Structure:      clampWeight(w.Structure),
		LandingPage:    clampWeight(w.LandingPage),
	}
}

func clampWeight(v float64) float64 {
	if v < MinWeight {
		return MinWeight
	}
	if v > MaxWeight {
		return MaxWeight
	}
	return v
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
