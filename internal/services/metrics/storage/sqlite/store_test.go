package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/louisbranch/splitlab/internal/services/metrics/storage"
)

func openTempStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "metrics-test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func recordEvent(t *testing.T, store *Store, visitorID, variant, eventType string) {
	t.Helper()
	err := store.RecordEvent(context.Background(), storage.Event{
		VisitorID: visitorID,
		Variant:   variant,
		EventType: eventType,
	})
	if err != nil {
		t.Fatalf("record event (%s, %s, %s): %v", visitorID, variant, eventType, err)
	}
}

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	if _, err := Open(""); err == nil {
		t.Fatal("expected empty path error")
	}
}

func TestRecordEventRequiresFields(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	cases := []storage.Event{
		{Variant: "A", EventType: "page_view"},
		{VisitorID: "v1", EventType: "page_view"},
		{VisitorID: "v1", Variant: "A"},
		{VisitorID: "  ", Variant: "A", EventType: "page_view"},
	}
	for i, event := range cases {
		if err := store.RecordEvent(context.Background(), event); err == nil {
			t.Fatalf("case %d: expected error for incomplete event", i)
		}
	}
}

func TestRecordEventDefaultsMetadata(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	recordEvent(t, store, "v1", "A", "page_view")

	events, err := store.RecentEvents(context.Background(), storage.Filter{}, 10)
	if err != nil {
		t.Fatalf("recent events: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Metadata != "{}" {
		t.Fatalf("metadata = %q, want empty object", events[0].Metadata)
	}
	if events[0].CreatedAt.IsZero() {
		t.Fatal("created_at was not set")
	}
}

func TestRecordEventKeepsMetadataVerbatim(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	metadata := `{"cta":"signup","source":"hero"}`
	err := store.RecordEvent(context.Background(), storage.Event{
		VisitorID: "v1",
		Variant:   "B",
		EventType: "cta_click",
		Metadata:  metadata,
	})
	if err != nil {
		t.Fatalf("record event: %v", err)
	}

	events, err := store.RecentEvents(context.Background(), storage.Filter{}, 10)
	if err != nil {
		t.Fatalf("recent events: %v", err)
	}
	if events[0].Metadata != metadata {
		t.Fatalf("metadata = %q, want %q", events[0].Metadata, metadata)
	}
}

func TestCountsGroupAndOrder(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	recordEvent(t, store, "v1", "B", "page_view")
	recordEvent(t, store, "v2", "A", "page_view")
	recordEvent(t, store, "v3", "A", "form_submit")
	recordEvent(t, store, "v4", "B", "page_view")

	byVariant, err := store.CountByVariant(context.Background(), storage.Filter{})
	if err != nil {
		t.Fatalf("count by variant: %v", err)
	}
	if len(byVariant) != 2 || byVariant[0].Variant != "A" || byVariant[1].Variant != "B" {
		t.Fatalf("variant order = %+v", byVariant)
	}
	if byVariant[0].Count != 2 || byVariant[1].Count != 2 {
		t.Fatalf("variant counts = %+v", byVariant)
	}

	byType, err := store.CountByEventType(context.Background(), storage.Filter{})
	if err != nil {
		t.Fatalf("count by event type: %v", err)
	}
	if len(byType) != 2 || byType[0].EventType != "form_submit" || byType[1].EventType != "page_view" {
		t.Fatalf("event type order = %+v", byType)
	}

	matrix, err := store.CountByVariantEventType(context.Background(), storage.Filter{})
	if err != nil {
		t.Fatalf("count breakdown: %v", err)
	}
	want := []storage.BreakdownCount{
		{Variant: "A", EventType: "form_submit", Count: 1},
		{Variant: "A", EventType: "page_view", Count: 1},
		{Variant: "B", EventType: "page_view", Count: 2},
	}
	if len(matrix) != len(want) {
		t.Fatalf("breakdown = %+v", matrix)
	}
	for i := range want {
		if matrix[i] != want[i] {
			t.Fatalf("breakdown[%d] = %+v, want %+v", i, matrix[i], want[i])
		}
	}
}

func TestFilterRestrictsAllQueries(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	recordEvent(t, store, "v1", "A", "page_view")
	recordEvent(t, store, "v2", "B", "page_view")
	recordEvent(t, store, "v3", "B", "form_submit")

	filter := storage.Filter{Variant: "B"}
	byVariant, err := store.CountByVariant(context.Background(), filter)
	if err != nil {
		t.Fatalf("count by variant: %v", err)
	}
	if len(byVariant) != 1 || byVariant[0].Variant != "B" || byVariant[0].Count != 2 {
		t.Fatalf("filtered variant counts = %+v", byVariant)
	}

	both := storage.Filter{Variant: "B", EventType: "form_submit"}
	events, err := store.RecentEvents(context.Background(), both, 10)
	if err != nil {
		t.Fatalf("recent events: %v", err)
	}
	if len(events) != 1 || events[0].VisitorID != "v3" {
		t.Fatalf("filtered events = %+v", events)
	}
}

func TestRecentEventsNewestFirstAndCapped(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	for i := 0; i < 10; i++ {
		recordEvent(t, store, fmt.Sprintf("v%d", i), "A", "page_view")
	}

	events, err := store.RecentEvents(context.Background(), storage.Filter{}, 3)
	if err != nil {
		t.Fatalf("recent events: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	if events[0].ID <= events[1].ID || events[1].ID <= events[2].ID {
		t.Fatalf("events not newest-first: %+v", events)
	}
	if events[0].VisitorID != "v9" {
		t.Fatalf("newest event = %+v", events[0])
	}
}

func TestRecentEventsRejectsNonPositiveLimit(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	if _, err := store.RecentEvents(context.Background(), storage.Filter{}, 0); err == nil {
		t.Fatal("expected error for zero limit")
	}
}
