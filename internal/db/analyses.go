package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/marek/jobshield/internal/types"
)

// PersistAnalysisResult archives a completed analysis. The full result is
// stored as JSONB next to the columns the list and stats queries filter on.
// Replays of an already-archived run are ignored.
func (db *DB) PersistAnalysisResult(ctx context.Context, result *types.PageResult) error {
	if result == nil || result.ID == uuid.Nil {
		return fmt.Errorf("cannot archive analysis without an id")
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal analysis result: %w", err)
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO analyses (id, page_url, is_fraud, confidence, risk_level, method, result, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (id) DO NOTHING`,
		result.ID, result.PageURL, result.IsFraud, result.Confidence,
		string(result.RiskLevel), result.Method, payload, result.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to archive analysis %s: %w", result.ID, err)
	}
	return nil
}

// GetAnalysis retrieves an archived analysis by ID, or nil if none exists
func (db *DB) GetAnalysis(ctx context.Context, id uuid.UUID) (*types.PageResult, error) {
	var payload []byte
	err := db.pool.QueryRow(ctx,
		`SELECT result FROM analyses WHERE id = $1`,
		id,
	).Scan(&payload)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get analysis: %w", err)
	}

	var result types.PageResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("failed to decode analysis %s: %w", id, err)
	}
	return &result, nil
}

// AnalysisSummary is a lightweight view of an archived analysis for listing
type AnalysisSummary struct {
	ID         uuid.UUID `json:"id"`
	PageURL    string    `json:"page_url"`
	IsFraud    bool      `json:"is_fraud"`
	Confidence float64   `json:"confidence"`
	RiskLevel  string    `json:"risk_level"`
	Method     string    `json:"method"`
	CreatedAt  time.Time `json:"created_at"`
}

// AnalysisFilters holds optional filters for listing archived analyses
type AnalysisFilters struct {
	PageURL   string
	RiskLevel string
	Fraud     *bool
	Limit     int
}

// ListAnalyses retrieves archived analyses, newest first, with optional filters
func (db *DB) ListAnalyses(ctx context.Context, filters AnalysisFilters) ([]AnalysisSummary, error) {
	if filters.Limit == 0 {
		filters.Limit = 50
	}

	query := `SELECT id, page_url, is_fraud, confidence, risk_level, method, created_at
		FROM analyses WHERE 1=1`
	args := []any{}
	argNum := 1

	if filters.PageURL != "" {
		query += fmt.Sprintf(" AND page_url ILIKE $%d", argNum)
		args = append(args, "%"+filters.PageURL+"%")
		argNum++
	}
	if filters.RiskLevel != "" {
		query += fmt.Sprintf(" AND risk_level = $%d", argNum)
		args = append(args, filters.RiskLevel)
		argNum++
	}
	if filters.Fraud != nil {
		query += fmt.Sprintf(" AND is_fraud = $%d", argNum)
		args = append(args, *filters.Fraud)
		argNum++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", argNum)
	args = append(args, filters.Limit)

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}
	defer rows.Close()

	var summaries []AnalysisSummary
	for rows.Next() {
		var s AnalysisSummary
		if err := rows.Scan(&s.ID, &s.PageURL, &s.IsFraud, &s.Confidence, &s.RiskLevel, &s.Method, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan analysis: %w", err)
		}
		summaries = append(summaries, s)
	}
	return summaries, nil
}

// ArchiveStats summarizes everything persisted to the archive
type ArchiveStats struct {
	Analyses      int     `json:"analyses"`
	FraudVerdicts int     `json:"fraud_verdicts"`
	AvgConfidence float64 `json:"avg_confidence"`
	Feedback      int     `json:"feedback"`
	CorrectCalls  int     `json:"correct_calls"`
	Reports       int     `json:"reports"`
}

// Accuracy returns the fraction of feedback where the system call matched
// the user's, or 0 when no feedback has been recorded
func (s ArchiveStats) Accuracy() float64 {
	if s.Feedback == 0 {
		return 0
	}
	return float64(s.CorrectCalls) / float64(s.Feedback)
}

// Stats computes aggregate counts across all three archive tables
func (db *DB) Stats(ctx context.Context) (*ArchiveStats, error) {
	var stats ArchiveStats
	err := db.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM analyses),
			(SELECT COUNT(CASE WHEN is_fraud THEN 1 END) FROM analyses),
			(SELECT COALESCE(AVG(confidence), 0) FROM analyses),
			(SELECT COUNT(*) FROM feedback),
			(SELECT COUNT(CASE WHEN was_correct THEN 1 END) FROM feedback),
			(SELECT COUNT(*) FROM reports)`,
	).Scan(&stats.Analyses, &stats.FraudVerdicts, &stats.AvgConfidence,
		&stats.Feedback, &stats.CorrectCalls, &stats.Reports)
	if err != nil {
		return nil, fmt.Errorf("failed to load archive stats: %w", err)
	}
	return &stats, nil
}
