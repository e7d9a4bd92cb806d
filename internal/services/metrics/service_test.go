package metrics

import (
	"context"
	"path/filepath"
	"testing"

	apperrors "github.com/louisbranch/splitlab/internal/platform/errors"
	"github.com/louisbranch/splitlab/internal/services/metrics/storage"
	metricsqlite "github.com/louisbranch/splitlab/internal/services/metrics/storage/sqlite"
)

func newTestService(t *testing.T, recentEventsCap int) *Service {
	t.Helper()
	store, err := metricsqlite.Open(filepath.Join(t.TempDir(), "metrics-test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return NewService(store, recentEventsCap)
}

func recordAll(t *testing.T, service *Service, requests []RecordRequest) {
	t.Helper()
	for _, req := range requests {
		if err := service.Record(context.Background(), req); err != nil {
			t.Fatalf("record %+v: %v", req, err)
		}
	}
}

func TestRecordRejectsMissingFields(t *testing.T) {
	t.Parallel()

	service := newTestService(t, 0)
	cases := []RecordRequest{
		{VisitorID: "", Variant: "A", EventType: "page_view"},
		{VisitorID: "v-1", Variant: "  ", EventType: "page_view"},
		{VisitorID: "v-1", Variant: "A", EventType: ""},
	}
	for _, req := range cases {
		err := service.Record(context.Background(), req)
		if !apperrors.IsKind(err, apperrors.KindInvalidInput) {
			t.Fatalf("Record(%+v) error = %v, want invalid input", req, err)
		}
	}
}

func TestRecordDefaultsMetadata(t *testing.T) {
	t.Parallel()

	service := newTestService(t, 0)
	recordAll(t, service, []RecordRequest{
		{VisitorID: "v-1", Variant: "A", EventType: "page_view"},
	})

	report, err := service.Stats(context.Background(), storage.Filter{})
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if len(report.RecentEvents) != 1 {
		t.Fatalf("recent events = %d, want 1", len(report.RecentEvents))
	}
	if got := report.RecentEvents[0].Metadata; got != "{}" {
		t.Fatalf("metadata = %q, want {}", got)
	}
}

func TestStatsConversionRollup(t *testing.T) {
	t.Parallel()

	service := newTestService(t, 0)
	var requests []RecordRequest
	for i := 0; i < 3; i++ {
		requests = append(requests, RecordRequest{VisitorID: "v-a", Variant: "A", EventType: "page_view"})
	}
	requests = append(requests, RecordRequest{VisitorID: "v-a", Variant: "A", EventType: "form_submit"})
	for i := 0; i < 2; i++ {
		requests = append(requests, RecordRequest{VisitorID: "v-b", Variant: "B", EventType: "page_view"})
		requests = append(requests, RecordRequest{VisitorID: "v-b", Variant: "B", EventType: "form_submit"})
	}
	recordAll(t, service, requests)

	report, err := service.Stats(context.Background(), storage.Filter{})
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	want := []ConversionEntry{
		{Variant: "A", PageViews: 3, FormSubmits: 1, ConversionRate: 33.33},
		{Variant: "B", PageViews: 2, FormSubmits: 2, ConversionRate: 100},
	}
	if len(report.Conversion) != len(want) {
		t.Fatalf("conversion rows = %d, want %d", len(report.Conversion), len(want))
	}
	for i, entry := range want {
		if report.Conversion[i] != entry {
			t.Fatalf("conversion[%d] = %+v, want %+v", i, report.Conversion[i], entry)
		}
	}
}

func TestStatsConversionWithoutPageViews(t *testing.T) {
	t.Parallel()

	service := newTestService(t, 0)
	recordAll(t, service, []RecordRequest{
		{VisitorID: "v-1", Variant: "B", EventType: "form_submit"},
	})

	report, err := service.Stats(context.Background(), storage.Filter{})
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	want := ConversionEntry{Variant: "B", PageViews: 0, FormSubmits: 1, ConversionRate: 0}
	if len(report.Conversion) != 1 || report.Conversion[0] != want {
		t.Fatalf("conversion = %+v, want [%+v]", report.Conversion, want)
	}
}

func TestStatsIgnoresUnrelatedEventTypesInConversion(t *testing.T) {
	t.Parallel()

	service := newTestService(t, 0)
	recordAll(t, service, []RecordRequest{
		{VisitorID: "v-1", Variant: "A", EventType: "cta_click"},
		{VisitorID: "v-1", Variant: "A", EventType: "page_view"},
	})

	report, err := service.Stats(context.Background(), storage.Filter{})
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	want := ConversionEntry{Variant: "A", PageViews: 1, FormSubmits: 0, ConversionRate: 0}
	if len(report.Conversion) != 1 || report.Conversion[0] != want {
		t.Fatalf("conversion = %+v, want [%+v]", report.Conversion, want)
	}
	if len(report.TotalsByEventType) != 2 {
		t.Fatalf("totals by event type = %+v, want two rows", report.TotalsByEventType)
	}
}

func TestStatsEchoesFilters(t *testing.T) {
	t.Parallel()

	service := newTestService(t, 0)
	recordAll(t, service, []RecordRequest{
		{VisitorID: "v-1", Variant: "A", EventType: "page_view"},
		{VisitorID: "v-2", Variant: "B", EventType: "page_view"},
	})

	report, err := service.Stats(context.Background(), storage.Filter{Variant: "A"})
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if report.Filters.Variant == nil || *report.Filters.Variant != "A" {
		t.Fatalf("filters.variant = %v, want A", report.Filters.Variant)
	}
	if report.Filters.EventType != nil {
		t.Fatalf("filters.event_type = %v, want nil", *report.Filters.EventType)
	}
	if len(report.TotalsByVariant) != 1 || report.TotalsByVariant[0].Variant != "A" {
		t.Fatalf("totals by variant = %+v, want only A", report.TotalsByVariant)
	}
}

func TestStatsEmptyStore(t *testing.T) {
	t.Parallel()

	service := newTestService(t, 0)
	report, err := service.Stats(context.Background(), storage.Filter{})
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if report.TotalsByVariant == nil || len(report.TotalsByVariant) != 0 {
		t.Fatalf("totals by variant = %#v, want empty non-nil slice", report.TotalsByVariant)
	}
	if report.Conversion == nil || len(report.Conversion) != 0 {
		t.Fatalf("conversion = %#v, want empty non-nil slice", report.Conversion)
	}
	if report.RecentEvents == nil || len(report.RecentEvents) != 0 {
		t.Fatalf("recent events = %#v, want empty non-nil slice", report.RecentEvents)
	}
}

func TestStatsCapsRecentEvents(t *testing.T) {
	t.Parallel()

	service := newTestService(t, 2)
	recordAll(t, service, []RecordRequest{
		{VisitorID: "v-1", Variant: "A", EventType: "page_view"},
		{VisitorID: "v-2", Variant: "A", EventType: "page_view"},
		{VisitorID: "v-3", Variant: "A", EventType: "page_view"},
	})

	report, err := service.Stats(context.Background(), storage.Filter{})
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if len(report.RecentEvents) != 2 {
		t.Fatalf("recent events = %d, want 2", len(report.RecentEvents))
	}
	if report.RecentEvents[0].VisitorID != "v-3" || report.RecentEvents[1].VisitorID != "v-2" {
		t.Fatalf("recent events order = %+v, want newest first", report.RecentEvents)
	}
}
