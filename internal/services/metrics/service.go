package metrics

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	apperrors "github.com/louisbranch/splitlab/internal/platform/errors"
	"github.com/louisbranch/splitlab/internal/services/metrics/storage"
)

// Event types that feed the conversion rollup.
const (
	EventTypePageView   = "page_view"
	EventTypeFormSubmit = "form_submit"
)

// DefaultRecentEventsCap bounds the recentEvents slice of a stats report.
const DefaultRecentEventsCap = 200

// Service implements event recording and aggregation over an event store.
type Service struct {
	store           storage.EventStore
	recentEventsCap int
}

// NewService builds a metrics service backed by the given store. A
// non-positive cap falls back to DefaultRecentEventsCap.
func NewService(store storage.EventStore, recentEventsCap int) *Service {
	if recentEventsCap <= 0 {
		recentEventsCap = DefaultRecentEventsCap
	}
	return &Service{store: store, recentEventsCap: recentEventsCap}
}

// RecordRequest is one validated event submission.
type RecordRequest struct {
	VisitorID string
	Variant   string
	EventType string
	Metadata  string
}

// Record validates and appends one event. Metadata defaults to an empty
// JSON object and is stored verbatim.
func (s *Service) Record(ctx context.Context, req RecordRequest) error {
	visitorID := strings.TrimSpace(req.VisitorID)
	variant := strings.TrimSpace(req.Variant)
	eventType := strings.TrimSpace(req.EventType)
	if visitorID == "" || variant == "" || eventType == "" {
		return apperrors.E(apperrors.KindInvalidInput, "visitor_id, variant, and event_type are required")
	}
	metadata := strings.TrimSpace(req.Metadata)
	if metadata == "" || metadata == "null" {
		metadata = "{}"
	}

	err := s.store.RecordEvent(ctx, storage.Event{
		VisitorID: visitorID,
		Variant:   variant,
		EventType: eventType,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("record event: %w", err)
	}
	return nil
}

// FilterEcho reports the filter values applied to a stats query.
type FilterEcho struct {
	Variant   *string `json:"variant"`
	EventType *string `json:"event_type"`
}

// VariantTotal is one row of the per-variant totals.
type VariantTotal struct {
	Variant string `json:"variant"`
	Count   int64  `json:"count"`
}

// EventTypeTotal is one row of the per-event-type totals.
type EventTypeTotal struct {
	EventType string `json:"event_type"`
	Count     int64  `json:"count"`
}

// BreakdownEntry is one cell of the (variant, event_type) count matrix.
type BreakdownEntry struct {
	Variant   string `json:"variant"`
	EventType string `json:"event_type"`
	Count     int64  `json:"count"`
}

// ConversionEntry reports page views, form submissions, and the derived
// conversion percentage for one variant.
type ConversionEntry struct {
	Variant        string  `json:"variant"`
	PageViews      int64   `json:"page_views"`
	FormSubmits    int64   `json:"form_submits"`
	ConversionRate float64 `json:"conversion_rate"`
}

// EventRecord is one event as returned in a stats report.
type EventRecord struct {
	ID        int64  `json:"id"`
	VisitorID string `json:"visitor_id"`
	Variant   string `json:"variant"`
	EventType string `json:"event_type"`
	Metadata  string `json:"metadata"`
	CreatedAt string `json:"created_at"`
}

// StatsReport is the full aggregation response for a stats query.
type StatsReport struct {
	Filters               FilterEcho        `json:"filters"`
	TotalsByVariant       []VariantTotal    `json:"totalsByVariant"`
	TotalsByEventType     []EventTypeTotal  `json:"totalsByEventType"`
	VariantEventBreakdown []BreakdownEntry  `json:"variantEventBreakdown"`
	Conversion            []ConversionEntry `json:"conversion"`
	RecentEvents          []EventRecord     `json:"recentEvents"`
}

// Stats computes grouped counts, the conversion rollup, and the recent
// event slice for the given filter.
func (s *Service) Stats(ctx context.Context, filter storage.Filter) (StatsReport, error) {
	byVariant, err := s.store.CountByVariant(ctx, filter)
	if err != nil {
		return StatsReport{}, fmt.Errorf("totals by variant: %w", err)
	}
	byEventType, err := s.store.CountByEventType(ctx, filter)
	if err != nil {
		return StatsReport{}, fmt.Errorf("totals by event type: %w", err)
	}
	breakdown, err := s.store.CountByVariantEventType(ctx, filter)
	if err != nil {
		return StatsReport{}, fmt.Errorf("variant event breakdown: %w", err)
	}
	recent, err := s.store.RecentEvents(ctx, filter, s.recentEventsCap)
	if err != nil {
		return StatsReport{}, fmt.Errorf("recent events: %w", err)
	}

	report := StatsReport{
		Filters:               echoFilter(filter),
		TotalsByVariant:       make([]VariantTotal, 0, len(byVariant)),
		TotalsByEventType:     make([]EventTypeTotal, 0, len(byEventType)),
		VariantEventBreakdown: make([]BreakdownEntry, 0, len(breakdown)),
		Conversion:            conversionRollup(breakdown),
		RecentEvents:          make([]EventRecord, 0, len(recent)),
	}
	for _, row := range byVariant {
		report.TotalsByVariant = append(report.TotalsByVariant, VariantTotal(row))
	}
	for _, row := range byEventType {
		report.TotalsByEventType = append(report.TotalsByEventType, EventTypeTotal(row))
	}
	for _, row := range breakdown {
		report.VariantEventBreakdown = append(report.VariantEventBreakdown, BreakdownEntry(row))
	}
	for _, event := range recent {
		report.RecentEvents = append(report.RecentEvents, EventRecord{
			ID:        event.ID,
			VisitorID: event.VisitorID,
			Variant:   event.Variant,
			EventType: event.EventType,
			Metadata:  event.Metadata,
			CreatedAt: event.CreatedAt.Format(time.RFC3339Nano),
		})
	}
	return report, nil
}

// conversionRollup derives per-variant conversion rates from the breakdown
// matrix. Variants appearing in either the page_view or form_submit slice
// are included; a variant with no page views reports rate 0 rather than a
// division error.
func conversionRollup(breakdown []storage.BreakdownCount) []ConversionEntry {
	pageViews := make(map[string]int64)
	formSubmits := make(map[string]int64)
	for _, row := range breakdown {
		switch row.EventType {
		case EventTypePageView:
			pageViews[row.Variant] = row.Count
		case EventTypeFormSubmit:
			formSubmits[row.Variant] = row.Count
		}
	}

	variants := make([]string, 0, len(pageViews)+len(formSubmits))
	seen := make(map[string]bool)
	for variant := range pageViews {
		if !seen[variant] {
			seen[variant] = true
			variants = append(variants, variant)
		}
	}
	for variant := range formSubmits {
		if !seen[variant] {
			seen[variant] = true
			variants = append(variants, variant)
		}
	}
	sort.Strings(variants)

	entries := make([]ConversionEntry, 0, len(variants))
	for _, variant := range variants {
		views := pageViews[variant]
		submits := formSubmits[variant]
		rate := 0.0
		if views > 0 {
			rate = math.Round(float64(submits)/float64(views)*100*100) / 100
		}
		entries = append(entries, ConversionEntry{
			Variant:        variant,
			PageViews:      views,
			FormSubmits:    submits,
			ConversionRate: rate,
		})
	}
	return entries
}

func echoFilter(filter storage.Filter) FilterEcho {
	echo := FilterEcho{}
	if variant := strings.TrimSpace(filter.Variant); variant != "" {
		echo.Variant = &variant
	}
	if eventType := strings.TrimSpace(filter.EventType); eventType != "" {
		echo.EventType = &eventType
	}
	return echo
}
