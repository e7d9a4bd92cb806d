// Package storage defines persistence contracts for experiment service state.
package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound indicates a requested record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists indicates a uniqueness-constrained record already exists.
	ErrAlreadyExists = errors.New("record already exists")
)

// Assignment stores one permanent visitor-to-variant assignment.
type Assignment struct {
	VisitorID  string
	Variant    string
	AssignedAt time.Time
}

// AssignmentStore persists visitor assignments. Assignments are insert-only:
// the first write for a visitor wins and later writes fail with
// ErrAlreadyExists.
type AssignmentStore interface {
	GetAssignment(ctx context.Context, visitorID string) (Assignment, error)
	CreateAssignment(ctx context.Context, assignment Assignment) error
}

// FlagStore persists experiment configuration flags.
type FlagStore interface {
	// Flags returns every stored flag keyed by name.
	Flags(ctx context.Context) (map[string]bool, error)
	// SeedFlags inserts each default only when its key is absent.
	SeedFlags(ctx context.Context, defaults map[string]bool) error
	// SetFlag overwrites the value of an existing flag. Unknown keys are
	// not created.
	SetFlag(ctx context.Context, key string, value bool) error
}

// Store combines the experiment persistence contracts.
type Store interface {
	AssignmentStore
	FlagStore
	Close() error
}
