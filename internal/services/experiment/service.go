package experiment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/louisbranch/splitlab/internal/platform/errors"
	"github.com/louisbranch/splitlab/internal/services/experiment/bucket"
	"github.com/louisbranch/splitlab/internal/services/experiment/storage"
)

// Service implements variant assignment and flag management over a store.
type Service struct {
	store storage.Store
}

// NewService builds an experiment service backed by the given store.
func NewService(store storage.Store) *Service {
	return &Service{store: store}
}

// AssignResult is the outcome of one assignment request.
type AssignResult struct {
	VisitorID               string
	Variant                 string
	ExperimentEnabled       bool
	PreferredVariantApplied bool
}

// Assign resolves the variant for a visitor. The first assignment for a
// visitor is permanent: existing rows win over any preference or flag state.
// For first-time visitors the kill switch takes precedence over an explicit
// preference — with experimentEnabled off every new visitor lands on the
// control variant no matter what they asked for.
func (s *Service) Assign(ctx context.Context, visitorID, preferredVariant string) (AssignResult, error) {
	visitorID = strings.TrimSpace(visitorID)
	if visitorID == "" {
		return AssignResult{}, apperrors.E(apperrors.KindInvalidInput, "visitor_id is required")
	}
	preferredVariant = strings.ToUpper(strings.TrimSpace(preferredVariant))
	if preferredVariant != "" && !bucket.IsValid(preferredVariant) {
		return AssignResult{}, apperrors.E(apperrors.KindInvalidInput, "preferred_variant must be A or B")
	}

	flags, err := s.store.Flags(ctx)
	if err != nil {
		return AssignResult{}, fmt.Errorf("load flags: %w", err)
	}
	enabled, ok := flags[FlagExperimentEnabled]
	if !ok {
		enabled = true
	}

	existing, err := s.store.GetAssignment(ctx, visitorID)
	switch {
	case err == nil:
		return AssignResult{
			VisitorID:         visitorID,
			Variant:           existing.Variant,
			ExperimentEnabled: enabled,
		}, nil
	case errors.Is(err, storage.ErrNotFound):
		// First request for this visitor, fall through to choose.
	default:
		return AssignResult{}, fmt.Errorf("get assignment: %w", err)
	}

	variant := bucket.ChooseVariant(visitorID)
	preferredApplied := false
	switch {
	case !enabled:
		variant = bucket.VariantA
	case preferredVariant != "":
		variant = preferredVariant
		preferredApplied = true
	}

	createErr := s.store.CreateAssignment(ctx, storage.Assignment{
		VisitorID:  visitorID,
		Variant:    variant,
		AssignedAt: time.Now().UTC(),
	})
	if createErr != nil {
		if !errors.Is(createErr, storage.ErrAlreadyExists) {
			return AssignResult{}, fmt.Errorf("create assignment: %w", createErr)
		}
		// Lost a concurrent first-assignment race; the stored row wins.
		winner, err := s.store.GetAssignment(ctx, visitorID)
		if err != nil {
			return AssignResult{}, fmt.Errorf("re-read assignment after conflict: %w", err)
		}
		return AssignResult{
			VisitorID:         visitorID,
			Variant:           winner.Variant,
			ExperimentEnabled: enabled,
		}, nil
	}

	return AssignResult{
		VisitorID:               visitorID,
		Variant:                 variant,
		ExperimentEnabled:       enabled,
		PreferredVariantApplied: preferredApplied,
	}, nil
}

// Flags returns the full flag map.
func (s *Service) Flags(ctx context.Context) (map[string]bool, error) {
	flags, err := s.store.Flags(ctx)
	if err != nil {
		return nil, fmt.Errorf("load flags: %w", err)
	}
	return flags, nil
}

// UpdateFlags applies a partial flag update and returns the full post-update
// map. Entries with unknown keys or non-boolean values are skipped without
// error; clients relying on the config surface tolerate partial patches.
func (s *Service) UpdateFlags(ctx context.Context, patch map[string]any) (map[string]bool, error) {
	current, err := s.store.Flags(ctx)
	if err != nil {
		return nil, fmt.Errorf("load flags: %w", err)
	}

	for key, raw := range patch {
		if _, known := current[key]; !known {
			continue
		}
		value, isBool := raw.(bool)
		if !isBool {
			continue
		}
		if err := s.store.SetFlag(ctx, key, value); err != nil {
			return nil, fmt.Errorf("update flag %s: %w", key, err)
		}
	}

	updated, err := s.store.Flags(ctx)
	if err != nil {
		return nil, fmt.Errorf("reload flags: %w", err)
	}
	return updated, nil
}
