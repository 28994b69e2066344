package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/marek/jobshield/internal/types"
)

// PersistFeedback archives one user feedback record. Classification
// features are stored as JSONB so later retraining can replay them.
func (db *DB) PersistFeedback(ctx context.Context, record types.FeedbackRecord) error {
	features, err := json.Marshal(record.Features)
	if err != nil {
		return fmt.Errorf("failed to marshal feedback features: %w", err)
	}

	createdAt := record.Timestamp
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO feedback (id, page_url, user_classification, system_classification, was_correct, features, reporter_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		uuid.New(), record.PageURL, string(record.UserClassification),
		string(record.SystemClassification), record.WasCorrect, features,
		record.ReporterID, createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to archive feedback: %w", err)
	}
	return nil
}

// FeedbackFilters holds optional filters for listing feedback
type FeedbackFilters struct {
	PageURL string
	Correct *bool
	Limit   int
}

// ListFeedback retrieves archived feedback records, newest first
func (db *DB) ListFeedback(ctx context.Context, filters FeedbackFilters) ([]types.FeedbackRecord, error) {
	if filters.Limit == 0 {
		filters.Limit = 50
	}

	query := `SELECT page_url, user_classification, system_classification, was_correct, features, reporter_id, created_at
		FROM feedback WHERE 1=1`
	args := []any{}
	argNum := 1

	if filters.PageURL != "" {
		query += fmt.Sprintf(" AND page_url ILIKE $%d", argNum)
		args = append(args, "%"+filters.PageURL+"%")
		argNum++
	}
	if filters.Correct != nil {
		query += fmt.Sprintf(" AND was_correct = $%d", argNum)
		args = append(args, *filters.Correct)
		argNum++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", argNum)
	args = append(args, filters.Limit)

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}
	defer rows.Close()

	var records []types.FeedbackRecord
	for rows.Next() {
		var rec types.FeedbackRecord
		var userClass, systemClass string
		var features []byte
		if err := rows.Scan(&rec.PageURL, &userClass, &systemClass, &rec.WasCorrect, &features, &rec.ReporterID, &rec.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan feedback: %w", err)
		}
		rec.UserClassification = types.PageType(userClass)
		rec.SystemClassification = types.PageType(systemClass)
		if len(features) > 0 {
			if err := json.Unmarshal(features, &rec.Features); err != nil {
				return nil, fmt.Errorf("failed to decode feedback features: %w", err)
			}
		}
		records = append(records, rec)
	}
	return records, nil
}
