package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/marek/jobshield/internal/db"
	"github.com/marek/jobshield/internal/reputation"
	"github.com/marek/jobshield/internal/types"
)

// ReportRequest represents the request body for /reports
type ReportRequest struct {
	PageURL    string `json:"page_url" validate:"omitempty,url"`
	Domain     string `json:"domain,omitempty"`
	Reason     string `json:"reason" validate:"required,max=2000"`
	ReporterID string `json:"reporter_id,omitempty"`
}

// handleCreateReport stores a community fraud report
func (s *Server) handleCreateReport(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "report archive is not configured")
		return
	}

	var req ReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	// Reports are keyed by normalized domain so counts aggregate across
	// page variants of the same site.
	domain := reputation.NormalizeHost(req.Domain)
	if domain == "" {
		domain = reputation.NormalizeHost(req.PageURL)
	}
	if domain == "" {
		s.errorResponse(w, http.StatusBadRequest, "Either domain or page_url is required")
		return
	}

	report := types.CommunityReport{
		PageURL:    req.PageURL,
		Domain:     domain,
		Reason:     req.Reason,
		ReporterID: req.ReporterID,
	}
	if err := s.archive.CreateReport(r.Context(), &report); err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Failed to store report: "+err.Error())
		return
	}

	s.jsonResponse(w, http.StatusAccepted, report)
}

// handleListReports lists community reports, newest first
func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "report archive is not configured")
		return
	}

	filters := db.ReportFilters{
		Domain: reputation.NormalizeHost(r.URL.Query().Get("domain")),
	}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 1 {
			s.errorResponse(w, http.StatusBadRequest, "Invalid limit parameter")
			return
		}
		filters.Limit = limit
	}

	reports, err := s.archive.ListReports(r.Context(), filters)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Failed to list reports: "+err.Error())
		return
	}
	if reports == nil {
		reports = []types.CommunityReport{}
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"reports": reports,
		"count":   len(reports),
	})
}

// handleGetReport retrieves a single community report by ID
func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "report archive is not configured")
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid report ID format")
		return
	}

	report, err := s.archive.GetReport(r.Context(), id)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Failed to get report: "+err.Error())
		return
	}
	if report == nil {
		s.errorResponse(w, http.StatusNotFound, "Report not found")
		return
	}

	s.jsonResponse(w, http.StatusOK, report)
}
