package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/marek/jobshield/internal/types"
)

// FeedbackRequest represents the request body for /feedback
type FeedbackRequest struct {
	PageURL              string                        `json:"page_url" validate:"omitempty,url"`
	UserClassification   types.PageType                `json:"user_classification" validate:"required,oneof=job_posting landing_page uncertain"`
	SystemClassification types.PageType                `json:"system_classification" validate:"required,oneof=job_posting landing_page uncertain"`
	Features             *types.ClassificationFeatures `json:"features,omitempty"`
	ReporterID           string                        `json:"reporter_id,omitempty"`
}

// handleSubmitFeedback records a user correction of a page classification.
// The ledger nudges classifier weights and persists the record on its own
// schedule; the caller only learns whether the record was accepted.
func (s *Server) handleSubmitFeedback(w http.ResponseWriter, r *http.Request) {
	if s.ledger == nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "feedback ledger is not configured")
		return
	}

	var req FeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	record := types.FeedbackRecord{
		PageURL:              req.PageURL,
		UserClassification:   req.UserClassification,
		SystemClassification: req.SystemClassification,
		WasCorrect:           req.UserClassification == req.SystemClassification,
		ReporterID:           req.ReporterID,
		Timestamp:            time.Now().UTC(),
	}
	if req.Features != nil {
		record.Features = req.Features.Clamped()
	}

	if err := s.ledger.Record(r.Context(), record); err != nil {
		s.errorResponse(w, http.StatusServiceUnavailable, "feedback ledger unavailable: "+err.Error())
		return
	}

	s.jsonResponse(w, http.StatusAccepted, map[string]string{"status": "recorded"})
}
