package server

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/marek/jobshield/internal/observability"
	"github.com/marek/jobshield/internal/patterns"
)

// DomainResponse is the reputation answer for one domain, enriched with the
// community report count when the archive is available
type DomainResponse struct {
	Domain       string  `json:"domain"`
	IsFraudulent bool    `json:"is_fraudulent"`
	Matched      string  `json:"matched,omitempty"`
	Confidence   float64 `json:"confidence"`
	Source       string  `json:"source"`
	FallbackUsed bool    `json:"fallback_used"`
	ReportCount  *int    `json:"report_count,omitempty"`
}

// handleCheckDomain runs the blacklist check for one hostname
func (s *Server) handleCheckDomain(w http.ResponseWriter, r *http.Request) {
	domain := r.PathValue("domain")

	result, err := s.checker.Check(r.Context(), domain)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid domain: "+err.Error())
		return
	}

	resp := DomainResponse{
		Domain:       result.Domain,
		IsFraudulent: result.IsFraudulent,
		Matched:      result.Matched,
		Confidence:   result.Confidence,
		Source:       result.Source,
		FallbackUsed: result.FallbackUsed,
	}

	if s.archive != nil {
		count, err := s.archive.CountReportsForDomain(r.Context(), result.Domain)
		if err != nil {
			// Reputation still answers without the archive; log and move on.
			observability.Logger().Warn("report count lookup failed",
				zap.String("domain", result.Domain), zap.Error(err))
		} else {
			resp.ReportCount = &count
		}
	}

	s.jsonResponse(w, http.StatusOK, resp)
}

// PatternSetSummary describes one pattern set without its full keyword list
type PatternSetSummary struct {
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Keywords int     `json:"keywords"`
	Regexes  int     `json:"regexes"`
	Weight   float64 `json:"weight"`
}

// PatternsResponse describes the active pattern tables
type PatternsResponse struct {
	AsOf      time.Time           `json:"as_of"`
	FraudSets []PatternSetSummary `json:"fraud_sets"`
	LegitSets []PatternSetSummary `json:"legit_sets"`
	Model     *patterns.ModelInfo `json:"model,omitempty"`
	ModelSets int                 `json:"model_sets,omitempty"`
	HasModel  bool                `json:"has_model"`
}

// handleGetPatterns reports the active pattern tables and model version
func (s *Server) handleGetPatterns(w http.ResponseWriter, _ *http.Request) {
	if s.library == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "pattern library is not configured")
		return
	}

	rules := s.library.Rules()
	resp := PatternsResponse{
		AsOf:      s.library.AsOf(),
		FraudSets: summarizeSets(rules.FraudSets()),
		LegitSets: summarizeSets(rules.LegitSets()),
	}

	if modelTable, info, ok := s.library.Model(); ok {
		resp.HasModel = true
		resp.Model = &info
		resp.ModelSets = len(modelTable.FraudSets()) + len(modelTable.LegitSets())
	}

	s.jsonResponse(w, http.StatusOK, resp)
}

func summarizeSets(sets []patterns.Set) []PatternSetSummary {
	summaries := make([]PatternSetSummary, 0, len(sets))
	for _, set := range sets {
		summaries = append(summaries, PatternSetSummary{
			Name:     set.Name,
			Category: set.Category,
			Keywords: len(set.Keywords),
			Regexes:  len(set.Regexes),
			Weight:   set.Weight,
		})
	}
	return summaries
}
