package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/marek/jobshield/internal/analysis"
	"github.com/marek/jobshield/internal/observability"
	"github.com/marek/jobshield/internal/types"
)

// validate checks request struct tags before a request reaches the pipeline.
var validate = validator.New()

// AnalyzeRequest represents the request body for /analyze
type AnalyzeRequest struct {
	PageURL      string   `json:"page_url" validate:"omitempty,url"`
	HTML         string   `json:"html,omitempty"`
	Postings     []string `json:"postings,omitempty"`
	ForceRefresh bool     `json:"force_refresh,omitempty"`
}

// ClassifyRequest represents the request body for /classify. Callers supply
// either raw page HTML or an already-computed feature record.
type ClassifyRequest struct {
	PageURL  string                        `json:"page_url,omitempty" validate:"omitempty,url"`
	HTML     string                        `json:"html,omitempty"`
	Features *types.ClassificationFeatures `json:"features,omitempty"`
}

// handleAnalyze runs the full pipeline for one page and returns the verdict
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	result, err := s.analyzer.Analyze(r.Context(), analysis.Request{
		PageURL:      req.PageURL,
		HTML:         req.HTML,
		Postings:     req.Postings,
		ForceRefresh: req.ForceRefresh,
	})
	if err != nil {
		var invalid *analysis.InvalidRequestError
		if errors.As(err, &invalid) {
			s.errorResponse(w, http.StatusBadRequest, invalid.Error())
			return
		}
		observability.Logger().Error("analysis failed",
			zap.String("page_url", req.PageURL), zap.Error(err))
		s.errorResponse(w, http.StatusInternalServerError, "analysis failed")
		return
	}

	s.jsonResponse(w, http.StatusOK, result)
}

// handleAnalyzeStream runs the pipeline while streaming per-stage progress
// as SSE events, then sends the final result
func (s *Server) handleAnalyzeStream(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	sse, err := newSSEStream(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	result, err := s.analyzer.Analyze(r.Context(), analysis.Request{
		PageURL:      req.PageURL,
		HTML:         req.HTML,
		Postings:     req.Postings,
		ForceRefresh: req.ForceRefresh,
		OnStage: func(step types.StepRecord) {
			sse.event("stage", step) //nolint:errcheck // client gone mid-stream is not actionable
		},
	})
	if err != nil {
		sse.sendError(err.Error())
		return
	}

	sse.event("result", result) //nolint:errcheck
	sse.sendComplete(result.ID.String(), string(result.Verdict))
}

// handleClassify exposes the page-type pre-filter so callers can decide
// whether a full analysis is worth running
func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req ClassifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	if req.Features != nil {
		s.jsonResponse(w, http.StatusOK, s.classifier.Classify(req.Features.Clamped()))
		return
	}

	if req.HTML == "" {
		s.errorResponse(w, http.StatusBadRequest, "Either html or features is required")
		return
	}

	classification, err := s.classifier.ClassifyHTML(req.PageURL, req.HTML)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Could not classify page: "+err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, classification)
}
