package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/decoylab/lure/internal/dispatch"
)

// ReportRow is one archived dispatch outcome.
type ReportRow struct {
	ID        uuid.UUID
	SessionID string
	Attempts  int
	Delivered bool
	LastError string
	CreatedAt time.Time
}

// SaveReport archives a dispatch outcome. Implements dispatch.Archiver.
func (s *Store) SaveReport(ctx context.Context, report dispatch.Report, attempts int, delivered bool, lastError string) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO dispatched_reports (id, session_id, payload, attempts, delivered, last_error)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.New(), report.SessionID, payload, attempts, delivered, lastError,
	)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

// ReportsForSession returns archived outcomes for a session, newest first.
func (s *Store) ReportsForSession(ctx context.Context, sessionID string) ([]ReportRow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, session_id, attempts, delivered, last_error, created_at
		FROM dispatched_reports
		WHERE session_id = $1
		ORDER BY created_at DESC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}
	defer rows.Close()

	var out []ReportRow
	for rows.Next() {
		var r ReportRow
		if err := rows.Scan(&r.ID, &r.SessionID, &r.Attempts, &r.Delivered, &r.LastError, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan report row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate report rows: %w", err)
	}
	return out, nil
}
