package metrics

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"meal-planner/internal/shared"
)

const timeLayout = "2006-01-02 15:04:05"

// reportCollaborator marks rows written by the failure-reporting boundary
// rather than by an individual external call.
const reportCollaborator = "app"

// CallMetric records the outcome of a single external call or user-visible failure.
type CallMetric struct {
	Collaborator string
	Operation    string
	LatencyMS    int64
	OK           bool
	ErrorKind    string
	ErrorMessage string
	Timestamp    time.Time
}

// Store handles persistence of metrics to SQLite.
type Store struct {
	db *sql.DB
}

// NewStore initializes the Store with an existing database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Record saves a metric to the database.
func (s *Store) Record(ctx context.Context, m CallMetric) error {
	ts := m.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO external_calls (collaborator, operation, latency_ms, ok, error_kind, error_message, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.Collaborator, m.Operation, m.LatencyMS, m.OK, m.ErrorKind, m.ErrorMessage, ts.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("failed to record metric: %w", err)
	}
	return nil
}

// RecordCall records metrics directly from shared.CallMeta. Failures to
// persist are logged, never returned to the caller of the external service.
func (s *Store) RecordCall(ctx context.Context, meta shared.CallMeta) {
	if err := s.Record(context.WithoutCancel(ctx), MapCall(meta)); err != nil {
		log.Printf("Warning: %v", err)
	}
}

// Report is the failure-reporting boundary: every permission or remote failure
// shown to a user passes through here once.
func (s *Store) Report(ctx context.Context, kind, operation string, err error) {
	if err == nil {
		return
	}
	log.Printf("Reported %s failure in %s: %v", kind, operation, err)
	m := CallMetric{
		Collaborator: reportCollaborator,
		Operation:    operation,
		ErrorKind:    kind,
		ErrorMessage: err.Error(),
	}
	if recErr := s.Record(context.WithoutCancel(ctx), m); recErr != nil {
		log.Printf("Warning: %v", recErr)
	}
}

// DailySummary represents call totals for a single day.
type DailySummary struct {
	Date         string
	Calls        int
	Failures     int
	Reported     int
	AvgLatencyMS float64
}

// GetDailySummary retrieves totals for the last N days, newest first.
func (s *Store) GetDailySummary(ctx context.Context, days int) ([]DailySummary, error) {
	since := time.Now().UTC().AddDate(0, 0, -days).Format(timeLayout)
	rows, err := s.db.QueryContext(ctx, `
		SELECT strftime('%Y-%m-%d', timestamp) AS day,
		       SUM(CASE WHEN collaborator != ? THEN 1 ELSE 0 END),
		       SUM(CASE WHEN collaborator != ? AND ok = 0 THEN 1 ELSE 0 END),
		       SUM(CASE WHEN collaborator = ? THEN 1 ELSE 0 END),
		       AVG(CASE WHEN collaborator != ? THEN latency_ms END)
		FROM external_calls
		WHERE timestamp >= ?
		GROUP BY day
		ORDER BY day DESC`,
		reportCollaborator, reportCollaborator, reportCollaborator, reportCollaborator, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily summary: %w", err)
	}
	defer rows.Close()

	var results []DailySummary
	for rows.Next() {
		var (
			day     sql.NullString
			avg     sql.NullFloat64
			summary DailySummary
		)
		if err := rows.Scan(&day, &summary.Calls, &summary.Failures, &summary.Reported, &avg); err != nil {
			return nil, fmt.Errorf("failed to scan daily summary: %w", err)
		}
		summary.Date = "Unknown"
		if day.Valid {
			summary.Date = day.String
		}
		if avg.Valid {
			summary.AvgLatencyMS = avg.Float64
		}
		results = append(results, summary)
	}
	return results, rows.Err()
}

// Cleanup removes records older than the specified number of days.
func (s *Store) Cleanup(ctx context.Context, olderThanDays int) (int64, error) {
	threshold := time.Now().UTC().AddDate(0, 0, -olderThanDays).Format(timeLayout)
	res, err := s.db.ExecContext(ctx, `DELETE FROM external_calls WHERE timestamp < ?`, threshold)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up metrics: %w", err)
	}
	return res.RowsAffected()
}

// MapCall converts shared.CallMeta to a CallMetric.
func MapCall(meta shared.CallMeta) CallMetric {
	m := CallMetric{
		Collaborator: meta.Collaborator,
		Operation:    meta.Operation,
		LatencyMS:    meta.Latency.Milliseconds(),
		OK:           meta.OK(),
		Timestamp:    time.Now().UTC(),
	}
	if meta.Err != nil {
		m.ErrorKind = "remote"
		m.ErrorMessage = meta.Err.Error()
	}
	return m
}
