// Package storage defines persistence contracts for metrics service state.
package storage

import (
	"context"
	"time"
)

// Event is one recorded visitor interaction. Metadata is an opaque JSON
// blob stored and returned verbatim; visitor_id and variant are
// client-supplied and never validated against assignments.
type Event struct {
	ID        int64
	VisitorID string
	Variant   string
	EventType string
	Metadata  string
	CreatedAt time.Time
}

// Filter restricts aggregation queries to exact matches. Empty fields
// apply no restriction.
type Filter struct {
	Variant   string
	EventType string
}

// VariantCount is one row of a per-variant rollup.
type VariantCount struct {
	Variant string
	Count   int64
}

// EventTypeCount is one row of a per-event-type rollup.
type EventTypeCount struct {
	EventType string
	Count     int64
}

// BreakdownCount is one row of the (variant, event_type) matrix.
type BreakdownCount struct {
	Variant   string
	EventType string
	Count     int64
}

// EventStore persists the append-only event log and serves rollups over it.
type EventStore interface {
	RecordEvent(ctx context.Context, event Event) error
	CountByVariant(ctx context.Context, filter Filter) ([]VariantCount, error)
	CountByEventType(ctx context.Context, filter Filter) ([]EventTypeCount, error)
	CountByVariantEventType(ctx context.Context, filter Filter) ([]BreakdownCount, error)
	RecentEvents(ctx context.Context, filter Filter, limit int) ([]Event, error)
	Close() error
}
