// Package sqlite provides a SQLite-backed metrics storage implementation.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sqlitemigrate "github.com/louisbranch/splitlab/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/splitlab/internal/services/metrics/storage"
	"github.com/louisbranch/splitlab/internal/services/metrics/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

const timeFormat = time.RFC3339Nano

// Store persists the event log in SQLite.
type Store struct {
	sqlDB *sql.DB
}

// Open opens a SQLite metrics store and applies embedded migrations.
// The parent directory is created when absent so a fresh data volume works.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	if dir := filepath.Dir(cleanPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// RecordEvent appends one event row.
func (s *Store) RecordEvent(ctx context.Context, event storage.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	visitorID := strings.TrimSpace(event.VisitorID)
	variant := strings.TrimSpace(event.Variant)
	eventType := strings.TrimSpace(event.EventType)
	if visitorID == "" || variant == "" || eventType == "" {
		return fmt.Errorf("visitor id, variant, and event type are required")
	}
	metadata := event.Metadata
	if strings.TrimSpace(metadata) == "" {
		metadata = "{}"
	}
	createdAt := event.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		"INSERT INTO events (visitor_id, variant, event_type, metadata, created_at) VALUES (?, ?, ?, ?, ?)",
		visitorID,
		variant,
		eventType,
		metadata,
		createdAt.Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("record event: %w", err)
	}
	return nil
}

// CountByVariant returns filtered event counts grouped by variant, in
// lexical variant order.
func (s *Store) CountByVariant(ctx context.Context, filter storage.Filter) ([]storage.VariantCount, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	whereSQL, params := filterClause(filter)
	rows, err := s.sqlDB.QueryContext(
		ctx,
		"SELECT variant, COUNT(*) FROM events "+whereSQL+" GROUP BY variant ORDER BY variant",
		params...,
	)
	if err != nil {
		return nil, fmt.Errorf("count by variant: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var counts []storage.VariantCount
	for rows.Next() {
		var count storage.VariantCount
		if err := rows.Scan(&count.Variant, &count.Count); err != nil {
			return nil, fmt.Errorf("scan variant count: %w", err)
		}
		counts = append(counts, count)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate variant counts: %w", err)
	}
	return counts, nil
}

// CountByEventType returns filtered event counts grouped by event type, in
// lexical event type order.
func (s *Store) CountByEventType(ctx context.Context, filter storage.Filter) ([]storage.EventTypeCount, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	whereSQL, params := filterClause(filter)
	rows, err := s.sqlDB.QueryContext(
		ctx,
		"SELECT event_type, COUNT(*) FROM events "+whereSQL+" GROUP BY event_type ORDER BY event_type",
		params...,
	)
	if err != nil {
		return nil, fmt.Errorf("count by event type: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var counts []storage.EventTypeCount
	for rows.Next() {
		var count storage.EventTypeCount
		if err := rows.Scan(&count.EventType, &count.Count); err != nil {
			return nil, fmt.Errorf("scan event type count: %w", err)
		}
		counts = append(counts, count)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event type counts: %w", err)
	}
	return counts, nil
}

// CountByVariantEventType returns the filtered (variant, event_type) count
// matrix ordered by variant then event type.
func (s *Store) CountByVariantEventType(ctx context.Context, filter storage.Filter) ([]storage.BreakdownCount, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	whereSQL, params := filterClause(filter)
	rows, err := s.sqlDB.QueryContext(
		ctx,
		"SELECT variant, event_type, COUNT(*) FROM events "+whereSQL+
			" GROUP BY variant, event_type ORDER BY variant, event_type",
		params...,
	)
	if err != nil {
		return nil, fmt.Errorf("count by variant and event type: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var counts []storage.BreakdownCount
	for rows.Next() {
		var count storage.BreakdownCount
		if err := rows.Scan(&count.Variant, &count.EventType, &count.Count); err != nil {
			return nil, fmt.Errorf("scan breakdown count: %w", err)
		}
		counts = append(counts, count)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate breakdown counts: %w", err)
	}
	return counts, nil
}

// RecentEvents returns up to limit filtered events, newest first by
// insertion order.
func (s *Store) RecentEvents(ctx context.Context, filter storage.Filter, limit int) ([]storage.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}

	whereSQL, params := filterClause(filter)
	params = append(params, limit)
	rows, err := s.sqlDB.QueryContext(
		ctx,
		"SELECT id, visitor_id, variant, event_type, metadata, created_at FROM events "+whereSQL+
			" ORDER BY id DESC LIMIT ?",
		params...,
	)
	if err != nil {
		return nil, fmt.Errorf("list recent events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []storage.Event
	for rows.Next() {
		var event storage.Event
		var createdAt string
		if err := rows.Scan(&event.ID, &event.VisitorID, &event.Variant, &event.EventType, &event.Metadata, &createdAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		parsed, err := time.Parse(timeFormat, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		event.CreatedAt = parsed
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

func filterClause(filter storage.Filter) (string, []any) {
	var clauses []string
	var params []any
	if variant := strings.TrimSpace(filter.Variant); variant != "" {
		clauses = append(clauses, "variant = ?")
		params = append(params, variant)
	}
	if eventType := strings.TrimSpace(filter.EventType); eventType != "" {
		clauses = append(clauses, "event_type = ?")
		params = append(params, eventType)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(clauses, " AND "), params
}

var _ storage.EventStore = (*Store)(nil)
