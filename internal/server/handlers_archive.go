package server

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/marek/jobshield/internal/db"
)

// handleListAnalyses lists archived analyses, newest first, with optional
// page_url, risk_level, and fraud filters
func (s *Server) handleListAnalyses(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "analysis archive is not configured")
		return
	}

	filters := db.AnalysisFilters{
		PageURL:   r.URL.Query().Get("page_url"),
		RiskLevel: r.URL.Query().Get("risk_level"),
	}
	if fraudStr := r.URL.Query().Get("fraud"); fraudStr != "" {
		fraud, err := strconv.ParseBool(fraudStr)
		if err != nil {
			s.errorResponse(w, http.StatusBadRequest, "Invalid fraud parameter (expected true or false)")
			return
		}
		filters.Fraud = &fraud
	}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 1 {
			s.errorResponse(w, http.StatusBadRequest, "Invalid limit parameter")
			return
		}
		filters.Limit = limit
	}

	analyses, err := s.archive.ListAnalyses(r.Context(), filters)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Failed to list analyses: "+err.Error())
		return
	}
	if analyses == nil {
		analyses = []db.AnalysisSummary{}
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"analyses": analyses,
		"count":    len(analyses),
	})
}

// handleGetAnalysis retrieves one archived analysis with its full result
func (s *Server) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "analysis archive is not configured")
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid analysis ID format")
		return
	}

	result, err := s.archive.GetAnalysis(r.Context(), id)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Failed to get analysis: "+err.Error())
		return
	}
	if result == nil {
		s.errorResponse(w, http.StatusNotFound, "Analysis not found")
		return
	}

	s.jsonResponse(w, http.StatusOK, result)
}

// handleStats reports ledger accuracy, cache freshness, and archive totals
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := map[string]any{
		"result_cache_entries": s.analyzer.CacheLen(),
	}

	if s.ledger != nil {
		stats["feedback"] = s.ledger.Stats()
	}
	if s.source != nil {
		stats["fact_store"] = s.source.CacheStats()
	}
	if s.archive != nil {
		archiveStats, err := s.archive.Stats(r.Context())
		if err != nil {
			s.errorResponse(w, http.StatusInternalServerError, "Failed to get archive stats: "+err.Error())
			return
		}
		stats["archive"] = archiveStats
	}

	s.jsonResponse(w, http.StatusOK, stats)
}
