// Package types provides type definitions for structured data used throughout the jobshield system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"time"

	"github.com/google/uuid"
)

// RiskLevel buckets a fraud score into a coarse severity band
type RiskLevel string

// Risk levels, lowest to highest
const (
	RiskVeryLow RiskLevel = "very_low"
	RiskLow     RiskLevel = "low"
	RiskMedium  RiskLevel = "medium"
	RiskHigh    RiskLevel = "high"
)

// riskRank orders risk levels for comparisons; unknown levels rank lowest
var riskRank = map[RiskLevel]int{
	RiskVeryLow: 1,
	RiskLow:     2,
	RiskMedium:  3,
	RiskHigh:    4,
}

// AtLeast reports whether r is the same or a higher risk band than other
func (r RiskLevel) AtLeast(other RiskLevel) bool {
	return riskRank[r] >= riskRank[other]
}

// Verdict is the terminal state of an analysis run
type Verdict string

// Terminal states of the analysis pipeline
const (
	VerdictResult             Verdict = "RESULT"
	VerdictDomainBlacklisted  Verdict = "DOMAIN_BLACKLISTED"
	VerdictSkippedLandingPage Verdict = "SKIPPED_LANDING_PAGE"
	VerdictInconclusive       Verdict = "INCONCLUSIVE"
	VerdictAnalysisFailed     Verdict = "ANALYSIS_FAILED"
)

// Scoring methods reported in results
const (
	MethodDomainBlacklist   = "domain_blacklist"
	MethodRuleBased         = "rule_based"
	MethodMLSimulation      = "ml_simulation"
	MethodRuleBasedFallback = "rule_based_fallback"
)

// StepStatus describes how a pipeline stage ended
type StepStatus string

// Stage outcomes recorded per analysis step
const (
	StepOK       StepStatus = "ok"
	StepDegraded StepStatus = "degraded"
	StepSkipped  StepStatus = "skipped"
	StepFailed   StepStatus = "failed"
	StepTimedOut StepStatus = "timed_out"
)

// StepRecord captures one pipeline stage's outcome, in execution order
type StepRecord struct {
	Stage     string     `json:"stage"`
	Status    StepStatus `json:"status"`
	Detail    string     `json:"detail,omitempty"`
	ElapsedMs int64      `json:"elapsed_ms"`
}

// PostingResult is the scored verdict for a single extracted posting
type PostingResult struct {
	Index      int       `json:"index"`
	IsFraud    bool      `json:"is_fraud"`
	Confidence float64   `json:"confidence"`
	RiskLevel  RiskLevel `json:"risk_level"`
	Method     string    `json:"method"`
	Reasons    []string  `json:"reasons,omitempty"`
}

// PageResult is the aggregated fraud verdict for one analyzed page
type PageResult struct {
	ID                uuid.UUID       `json:"id"`
	PageURL           string          `json:"page_url"`
	Verdict           Verdict         `json:"verdict"`
	IsFraud           bool            `json:"is_fraud"`
	Confidence        float64         `json:"confidence"`
	RiskLevel         RiskLevel       `json:"risk_level"`
	Method            string          `json:"method"`
	Reasons           []string        `json:"reasons,omitempty"`
	NeedsManualReview bool            `json:"needs_manual_review,omitempty"`
	PostingCount      int             `json:"posting_count"`
	FraudCount        int             `json:"fraud_count"`
	FraudPercentage   float64         `json:"fraud_percentage"`
	Postings          []PostingResult `json:"postings,omitempty"`
	AnalysisSteps     []StepRecord    `json:"analysis_steps"`
	StartedAt         time.Time       `json:"started_at"`
	CompletedAt       time.Time       `json:"completed_at"`
}
