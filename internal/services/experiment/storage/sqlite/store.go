// Package sqlite provides a SQLite-backed experiment storage implementation.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sqlitemigrate "github.com/louisbranch/splitlab/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/splitlab/internal/services/experiment/storage"
	"github.com/louisbranch/splitlab/internal/services/experiment/storage/sqlite/migrations"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

const timeFormat = time.RFC3339Nano

// Store persists experiment state in SQLite.
type Store struct {
	sqlDB *sql.DB
}

// Open opens a SQLite experiment store and applies embedded migrations.
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

// GetAssignment returns the stored assignment for a visitor.
func (s *Store) GetAssignment(ctx context.Context, visitorID string) (storage.Assignment, error) {
	if err := ctx.Err(); err != nil {
		return storage.Assignment{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Assignment{}, fmt.Errorf("storage is not configured")
	}
	visitorID = strings.TrimSpace(visitorID)
	if visitorID == "" {
		return storage.Assignment{}, fmt.Errorf("visitor id is required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		"SELECT visitor_id, variant, assigned_at FROM assignments WHERE visitor_id = ?",
		visitorID,
	)
	var assignment storage.Assignment
	var assignedAt string
	if err := row.Scan(&assignment.VisitorID, &assignment.Variant, &assignedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Assignment{}, storage.ErrNotFound
		}
		return storage.Assignment{}, fmt.Errorf("get assignment: %w", err)
	}
	parsed, err := time.Parse(timeFormat, assignedAt)
	if err != nil {
		return storage.Assignment{}, fmt.Errorf("parse assigned_at: %w", err)
	}
	assignment.AssignedAt = parsed
	return assignment, nil
}

// CreateAssignment inserts one assignment record. The primary key on
// visitor_id reports concurrent first-time requests as ErrAlreadyExists so
// the caller can re-read the winning row.
func (s *Store) CreateAssignment(ctx context.Context, assignment storage.Assignment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	visitorID := strings.TrimSpace(assignment.VisitorID)
	variant := strings.TrimSpace(assignment.Variant)
	if visitorID == "" {
		return fmt.Errorf("visitor id is required")
	}
	if variant == "" {
		return fmt.Errorf("variant is required")
	}
	assignedAt := assignment.AssignedAt.UTC()
	if assignedAt.IsZero() {
		assignedAt = time.Now().UTC()
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		"INSERT INTO assignments (visitor_id, variant, assigned_at) VALUES (?, ?, ?)",
		visitorID,
		variant,
		assignedAt.Format(timeFormat),
	)
	if err != nil {
		if isAssignmentUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("create assignment: %w", err)
	}
	return nil
}

// Flags returns every stored config flag. Values are decoded from the
// canonical lowercase text encoding.
func (s *Store) Flags(ctx context.Context) (map[string]bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(ctx, "SELECT key, value FROM config")
	if err != nil {
		return nil, fmt.Errorf("list flags: %w", err)
	}
	defer func() { _ = rows.Close() }()

	flags := make(map[string]bool)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan flag: %w", err)
		}
		flags[key] = value == "true"
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate flags: %w", err)
	}
	return flags, nil
}

// SeedFlags inserts each default flag only when the key is absent, so
// operator changes survive restarts.
func (s *Store) SeedFlags(ctx context.Context, defaults map[string]bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	for key, value := range defaults {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		if _, err := s.sqlDB.ExecContext(
			ctx,
			"INSERT OR IGNORE INTO config (key, value) VALUES (?, ?)",
			key,
			encodeFlag(value),
		); err != nil {
			return fmt.Errorf("seed flag %s: %w", key, err)
		}
	}
	return nil
}

// SetFlag overwrites the value of an existing flag. Keys that were never
// seeded are left untouched.
func (s *Store) SetFlag(ctx context.Context, key string, value bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("flag key is required")
	}

	if _, err := s.sqlDB.ExecContext(
		ctx,
		"UPDATE config SET value = ? WHERE key = ?",
		encodeFlag(value),
		key,
	); err != nil {
		return fmt.Errorf("set flag %s: %w", key, err)
	}
	return nil
}

func encodeFlag(value bool) string {
	if value {
		return "true"
	}
	return "false"
}

func isAssignmentUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "unique constraint failed") &&
		strings.Contains(message, "assignments.visitor_id")
}

var _ storage.Store = (*Store)(nil)
