package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/marek/jobshield/internal/types"
)

// CreateReport stores a community fraud report, assigning an ID and
// timestamp when the caller did not provide them.
func (db *DB) CreateReport(ctx context.Context, report *types.CommunityReport) error {
	if report.Domain == "" {
		return fmt.Errorf("cannot store report without a domain")
	}
	if report.ID == uuid.Nil {
		report.ID = uuid.New()
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now().UTC()
	}

	_, err := db.pool.Exec(ctx,
		`INSERT INTO reports (id, page_url, domain, reason, reporter_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		report.ID, report.PageURL, report.Domain, report.Reason, report.ReporterID, report.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to store report: %w", err)
	}
	return nil
}

// GetReport retrieves a community report by ID, or nil if none exists
func (db *DB) GetReport(ctx context.Context, id uuid.UUID) (*types.CommunityReport, error) {
	var report types.CommunityReport
	err := db.pool.QueryRow(ctx,
		`SELECT id, page_url, domain, reason, reporter_id, created_at
		 FROM reports WHERE id = $1`,
		id,
	).Scan(&report.ID, &report.PageURL, &report.Domain, &report.Reason, &report.ReporterID, &report.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	return &report, nil
}

// ReportFilters holds optional filters for listing community reports
type ReportFilters struct {
	Domain string
	Limit  int
}

// ListReports retrieves community reports, newest first, with optional filters
func (db *DB) ListReports(ctx context.Context, filters ReportFilters) ([]types.CommunityReport, error) {
	if filters.Limit == 0 {
		filters.Limit = 50
	}

	query := `SELECT id, page_url, domain, reason, reporter_id, created_at
		FROM reports WHERE 1=1`
	args := []any{}
	argNum := 1

	if filters.Domain != "" {
		query += fmt.Sprintf(" AND domain = $%d", argNum)
		args = append(args, filters.Domain)
		argNum++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", argNum)
	args = append(args, filters.Limit)

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	var reports []types.CommunityReport
	for rows.Next() {
		var r types.CommunityReport
		if err := rows.Scan(&r.ID, &r.PageURL, &r.Domain, &r.Reason, &r.ReporterID, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		reports = append(reports, r)
	}
	return reports, nil
}

// CountReportsForDomain returns how many community reports name the domain.
// Domain reputation lookups use this to enrich blacklist answers.
func (db *DB) CountReportsForDomain(ctx context.Context, domain string) (int, error) {
	var count int
	err := db.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM reports WHERE domain = $1`,
		domain,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count reports for %s: %w", domain, err)
	}
	return count, nil
}
