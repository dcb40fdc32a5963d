package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"tripkit/pkg/model"
	"tripkit/pkg/store"
)

// seedStateKey tracks which seed revision has been imported.
const seedStateKey = "catalog_seed_version"

// Service provides access to the destination and hidden spot reference data.
type Service struct {
	catalog store.CatalogStore
	state   store.StateStore
}

// New creates a catalog service over the given store.
func New(catalog store.CatalogStore, state store.StateStore) *Service {
	return &Service{catalog: catalog, state: state}
}

// EnsureSeeded imports the built-in destination data if the database does not
// already carry the current seed revision. User-added rows are never touched.
func (s *Service) EnsureSeeded(ctx context.Context) error {
	stored, found := s.state.GetState(ctx, seedStateKey)
	if found && stored == seedVersion {
		return nil // Up to date
	}

	slog.Info("Seeding destination catalog", "version", seedVersion)

	for i := range seedDestinations {
		d := &seedDestinations[i]
		if err := s.catalog.SaveDestination(ctx, d); err != nil {
			return fmt.Errorf("failed to seed destination %s: %w", d.ID, err)
		}
	}
	for i := range seedSpots {
		sp := &seedSpots[i]
		if err := s.catalog.SaveSpot(ctx, sp); err != nil {
			return fmt.Errorf("failed to seed spot %s: %w", sp.ID, err)
		}
	}

	if err := s.state.SetState(ctx, seedStateKey, seedVersion); err != nil {
		return fmt.Errorf("failed to update seed state: %w", err)
	}

	count, err := s.catalog.CountDestinations(ctx)
	if err == nil {
		slog.Info("Catalog seeded", "destinations", count, "spots", len(seedSpots))
	}
	return nil
}

// Candidates returns up to limit destinations, excluding any whose country or
// locality appears in the exclusions list. Matching is case-insensitive.
func (s *Service) Candidates(ctx context.Context, exclusions []string, limit int) ([]*model.Destination, error) {
	// Over-fetch so exclusions don't shrink the pool below limit.
	// A limit of zero means no cap.
	fetch := limit
	if limit > 0 && len(exclusions) > 0 {
		fetch = limit + len(exclusions)*4
	}

	all, err := s.catalog.ListDestinations(ctx, fetch)
	if err != nil {
		return nil, fmt.Errorf("failed to list destinations: %w", err)
	}

	var result []*model.Destination
	for _, d := range all {
		if excluded(d, exclusions) {
			continue
		}
		result = append(result, d)
		if len(result) == limit {
			break
		}
	}
	return result, nil
}

// SpotsFor returns the hidden spots belonging to a destination.
func (s *Service) SpotsFor(ctx context.Context, destinationID string) ([]*model.HiddenSpot, error) {
	return s.catalog.GetSpots(ctx, destinationID)
}

// Get returns a single destination by ID, or nil if unknown.
func (s *Service) Get(ctx context.Context, id string) (*model.Destination, error) {
	return s.catalog.GetDestination(ctx, id)
}

// Fallbacks returns the static safety-net recommendations used when the
// scoring stage cannot produce results. They carry pre-written justifications
// and are flagged as fallback content by the caller.
func (s *Service) Fallbacks(ctx context.Context) []model.Recommendation {
	recs := make([]model.Recommendation, 0, len(fallbackIDs))
	for _, id := range fallbackIDs {
		d, err := s.catalog.GetDestination(ctx, id)
		if err != nil || d == nil {
			continue
		}
		spots, _ := s.catalog.GetSpots(ctx, id)
		rec := model.Recommendation{
			DestinationID: d.ID,
			Destination:   d,
			Score:         0,
			Justification: fallbackJustifications[id],
		}
		for _, sp := range spots {
			rec.Spots = append(rec.Spots, *sp)
		}
		recs = append(recs, rec)
	}
	return recs
}

func excluded(d *model.Destination, exclusions []string) bool {
	for _, ex := range exclusions {
		ex = strings.ToLower(strings.TrimSpace(ex))
		if ex == "" {
			continue
		}
		if strings.ToLower(d.Country) == ex || strings.ToLower(d.Locality) == ex || strings.ToLower(d.Name) == ex {
			return true
		}
	}
	return false
}
