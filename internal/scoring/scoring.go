// Package scoring evaluates job-posting text against weighted pattern
// tables. The rule-based and model-derived scorers are the same algorithm
// run under different profiles; profile selection follows model
// availability.
package scoring

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/marek/jobshield/internal/patterns"
	"github.com/marek/jobshield/internal/types"
)

// Bands are the final-score cut points for risk levels. Low is where
// very_low ends, Medium is the default fraud decision cutoff, High is
// where the high band starts.
type Bands struct {
	Low    float64 `json:"low"`
	Medium float64 `json:"medium"`
	High   float64 `json:"high"`
}

// DefaultBands reproduces the stock banding: <0.2 very_low, <0.4 low,
// <0.7 medium, else high.
var DefaultBands = Bands{Low: 0.2, Medium: 0.4, High: 0.7}

// defaultAccuracyBlend is how much of the final confidence comes from the
// model's reported accuracy when a model profile is active.
const defaultAccuracyBlend = 0.3

// mediumConfidenceDamping discounts confidence inside the medium band,
// where the verdict is least certain.
const mediumConfidenceDamping = 0.8

// Profile selects a pattern table plus the decision parameters to score
// it under. Accuracy <= 0 disables the accuracy blend.
type Profile struct {
	Method    string
	Table     *patterns.Table
	Threshold float64
	Accuracy  float64
}

// RuleProfile scores with the builtin rule table
func RuleProfile(table *patterns.Table) Profile {
	return Profile{Method: types.MethodRuleBased, Table: table}
}

// ModelProfile scores with a model-derived table, honoring the model's
// own decision threshold and blending its reported accuracy into the
// confidence.
func ModelProfile(table *patterns.Table, info patterns.ModelInfo) Profile {
	return Profile{
		Method:    types.MethodMLSimulation,
		Table:     table,
		Threshold: info.Threshold,
		Accuracy:  info.Accuracy,
	}
}

// FallbackProfile scores with the minimal hard-coded table, used when no
// other pattern data is available
func FallbackProfile(table *patterns.Table) Profile {
	return Profile{Method: types.MethodRuleBasedFallback, Table: table}
}

// Result is the scored verdict for one posting text
type Result struct {
	FraudScore      float64             `json:"fraud_score"`
	LegitimateScore float64             `json:"legitimate_score"`
	FinalScore      float64             `json:"final_score"`
	IsFraud         bool                `json:"is_fraud"`
	Confidence      float64             `json:"confidence"`
	RiskLevel       types.RiskLevel     `json:"risk_level"`
	Method          string              `json:"method"`
	MatchedFraud    []patterns.SetMatch `json:"matched_fraud,omitempty"`
	MatchedLegit    []patterns.SetMatch `json:"matched_legit,omitempty"`
	Reasons         []string            `json:"reasons,omitempty"`
}

// InvalidInputError reports unusable posting text. It surfaces to the
// caller rather than degrading, per the empty-input contract.
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string {
	return "invalid input: " + e.Reason
}

// ScoringError reports a pattern evaluation failure
type ScoringError struct {
	Method string
	Cause  error
}

func (e *ScoringError) Error() string {
	return fmt.Sprintf("scoring with %s failed: %v", e.Method, e.Cause)
}

func (e *ScoringError) Unwrap() error {
	return e.Cause
}

// Config tunes the scorer. Zero values take the stock bands and blend.
type Config struct {
	Bands         Bands
	AccuracyBlend float64
}

func (c *Config) applyDefaults() {
	if c.Bands == (Bands{}) {
		c.Bands = DefaultBands
	}
	if c.AccuracyBlend <= 0 || c.AccuracyBlend > 1 {
		c.AccuracyBlend = defaultAccuracyBlend
	}
}

// Scorer scores posting texts under the library's active profile
type Scorer struct {
	library *patterns.Library
	cfg     Config
}

// NewScorer returns a Scorer over library
func NewScorer(library *patterns.Library, cfg Config) *Scorer {
	cfg.applyDefaults()
	return &Scorer{library: library, cfg: cfg}
}

// ActiveProfile picks the model profile when a model table is loaded,
// the rule profile otherwise, and the fallback profile when even the
// rule table is unusable.
func (s *Scorer) ActiveProfile() Profile {
	if table, info, ok := s.library.Model(); ok {
		return ModelProfile(table, info)
	}
	if rules := s.library.Rules(); rules != nil && len(rules.FraudSets()) > 0 {
		return RuleProfile(rules)
	}
	return FallbackProfile(s.library.Fallback())
}

// Score evaluates text under the active profile
func (s *Scorer) Score(text string) (Result, error) {
	return s.ScoreWith(s.ActiveProfile(), text)
}

// ScoreWith evaluates text under an explicit profile. Fraud-set
// contributions sum to the fraud score, legitimacy contributions to the
// legitimate score; the final score is their difference clamped to [0,1].
func (s *Scorer) ScoreWith(profile Profile, text string) (Result, error) {
	if strings.TrimSpace(text) == "" {
		return Result{}, &InvalidInputError{Reason: "empty posting text"}
	}
	if profile.Table == nil {
		return Result{}, &ScoringError{Method: profile.Method, Cause: errors.New("profile has no pattern table")}
	}

	fraudMatches := byContribution(profile.Table.MatchFraud(text))
	legitMatches := byContribution(profile.Table.MatchLegit(text))

	var fraudScore, legitScore float64
	for _, m := range fraudMatches {
		fraudScore += m.Contribution
	}
	for _, m := range legitMatches {
		legitScore += m.Contribution
	}
	finalScore := clamp01(fraudScore - legitScore)

	level, isFraud, confidence := s.band(profile, finalScore)
	if profile.Accuracy > 0 {
		confidence = confidence*(1-s.cfg.AccuracyBlend) + profile.Accuracy*s.cfg.AccuracyBlend
	}

	return Result{
		FraudScore:      fraudScore,
		LegitimateScore: legitScore,
		FinalScore:      finalScore,
		IsFraud:         isFraud,
		Confidence:      clamp01(confidence),
		RiskLevel:       level,
		Method:          profile.Method,
		MatchedFraud:    fraudMatches,
		MatchedLegit:    legitMatches,
		Reasons:         buildReasons(fraudMatches, legitMatches),
	}, nil
}

// band places a final score into a risk level and derives the raw
// confidence. The profile threshold moves the fraud cutoff (the start of
// the medium band); it never reaches below the very_low/low boundary.
func (s *Scorer) band(profile Profile, score float64) (types.RiskLevel, bool, float64) {
	threshold := profile.Threshold
	if threshold <= 0 {
		threshold = s.cfg.Bands.Medium
	}
	if threshold < s.cfg.Bands.Low {
		threshold = s.cfg.Bands.Low
	}

	switch {
	case score >= threshold && score >= s.cfg.Bands.High:
		return types.RiskHigh, true, score
	case score >= threshold:
		return types.RiskMedium, true, score * mediumConfidenceDamping
	case score >= s.cfg.Bands.Low:
		return types.RiskLow, false, (1 - score) * mediumConfidenceDamping
	default:
		return types.RiskVeryLow, false, 1 - score
	}
}

func buildReasons(fraud, legit []patterns.SetMatch) []string {
	reasons := make([]string, 0, len(fraud)+len(legit))
	for _, m := range fraud {
		reasons = append(reasons, describeMatch(m, "fraud indicators"))
	}
	for _, m := range legit {
		reasons = append(reasons, describeMatch(m, "legitimacy markers"))
	}
	return reasons
}

func describeMatch(m patterns.SetMatch, kind string) string {
	if len(m.Matched) > 0 {
		return fmt.Sprintf("%s: %d of %d %s (e.g. %q)", m.Set, m.MatchCount, m.Total, kind, m.Matched[0])
	}
	return fmt.Sprintf("%s: %d of %d %s", m.Set, m.MatchCount, m.Total, kind)
}

// byContribution orders matches strongest-first for stable reason lists
func byContribution(matches []patterns.SetMatch) []patterns.SetMatch {
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Contribution > matches[j].Contribution
	})
	return matches
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
