package types

import (
	"time"

	"github.com/google/uuid"
)

// FeedbackRecord captures a user correction (or confirmation) of a system
// classification. Append-only; drives small weight nudges in the classifier.
type FeedbackRecord struct {
	PageURL              string                 `json:"page_url"`
	UserClassification   PageType               `json:"user_classification"`
	SystemClassification PageType               `json:"system_classification"`
	WasCorrect           bool                   `json:"was_correct"`
	Features             ClassificationFeatures `json:"features"`
	ReporterID           string                 `json:"reporter_id,omitempty"`
	Timestamp            time.Time              `json:"timestamp"`
}

// CommunityReport is a user-submitted fraud report for a page or domain
type CommunityReport struct {
	ID         uuid.UUID `json:"id"`
	PageURL    string    `json:"page_url"`
	Domain     string    `json:"domain"`
	Reason     string    `json:"reason"`
	ReporterID string    `json:"reporter_id"`
	CreatedAt  time.Time `json:"created_at"`
}
