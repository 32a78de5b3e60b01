package resolver

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/newslinker/internal/linker"
)

// Scope carries the per-article context used to disambiguate locations.
// The admin areas among the siblings are computed on first use and reused
// for every location of the same article.
type Scope struct {
	siblings []string
	computed bool
	areas    []linker.AdminArea
}

// NewScope returns a scope over the location names found in one article.
func NewScope(siblings []string) *Scope {
	return &Scope{siblings: siblings}
}

// LocationResolver adds country-aware disambiguation on top of Resolver.
type LocationResolver struct {
	*Resolver
}

// NewLocation wraps r for location resolution.
func NewLocation(r *Resolver) *LocationResolver {
	return &LocationResolver{Resolver: r}
}

// ResolveLocation resolves a location name. It tries the generic cascade,
// then same-name rows within a country named elsewhere in the article, then
// the most populous of several same-name rows.
func (l *LocationResolver) ResolveLocation(ctx context.Context, name string, scope *Scope) (Match, error) {
	if name == "" {
		return Match{}, nil
	}
	m, err := l.Resolve(ctx, linker.Location, name)
	if err != nil || m.Found {
		return m, err
	}

	if scope == nil {
		scope = NewScope(nil)
	}
	for _, area := range l.adminAreas(ctx, scope) {
		m, err := l.inCountry(ctx, name, area)
		if err != nil {
			return Match{}, err
		}
		if m.Found {
			l.logger.Debug("location resolved by country",
				zap.String("name", name),
				zap.String("country", area.CountryCode),
				zap.Int64("id", m.ID),
			)
			return m, nil
		}
	}

	locs, err := l.catalog.PopulatedLocations(ctx, name)
	if err != nil {
		return Match{}, fmt.Errorf("resolve location %q by population: %w", name, err)
	}
	if len(locs) > 1 {
		return found(locs[0].ID, ViaPopulation), nil
	}
	return Match{}, nil
}

func (l *LocationResolver) inCountry(ctx context.Context, name string, area linker.AdminArea) (Match, error) {
	locs, err := l.catalog.LocationsInCountry(ctx, name, area.CountryCode)
	if err != nil {
		return Match{}, fmt.Errorf("resolve location %q in %s: %w", name, area.CountryCode, err)
	}
	switch {
	case len(locs) == 1:
		return found(locs[0].ID, ViaCountry), nil
	case len(locs) > 1:
		if best, ok := mostPopulous(locs); ok {
			return found(best.ID, ViaCountry), nil
		}
	}
	ids, err := l.catalog.SimilarLocationsInCountry(ctx, name, area.CountryCode, l.threshold)
	if err != nil {
		return Match{}, fmt.Errorf("resolve similar location %q in %s: %w", name, area.CountryCode, err)
	}
	if len(ids) == 1 {
		return found(ids[0], ViaCountrySimilar), nil
	}
	ids, err = l.catalog.LocationAliasesInCountry(ctx, name, area.CountryCode)
	if err != nil {
		return Match{}, fmt.Errorf("resolve location alias %q in %s: %w", name, area.CountryCode, err)
	}
	if len(ids) == 1 {
		return found(ids[0], ViaCountryAlias), nil
	}
	return Match{}, nil
}

func mostPopulous(locs []linker.CatalogEntity) (linker.CatalogEntity, bool) {
	var best linker.CatalogEntity
	ok := false
	for _, loc := range locs {
		if loc.Population == nil {
			continue
		}
		if !ok || *loc.Population > *best.Population {
			best = loc
			ok = true
		}
	}
	return best, ok
}

// adminAreas returns the siblings recognized as countries or first-level
// divisions, computing them once per scope.
func (l *LocationResolver) adminAreas(ctx context.Context, scope *Scope) []linker.AdminArea {
	if scope.computed {
		return scope.areas
	}
	scope.computed = true
	for _, sibling := range scope.siblings {
		area, ok := l.adminArea(ctx, sibling)
		if ok {
			scope.areas = append(scope.areas, area)
		}
	}
	return scope.areas
}

func (l *LocationResolver) adminArea(ctx context.Context, name string) (linker.AdminArea, bool) {
	if name == "" {
		return linker.AdminArea{}, false
	}
	for _, stage := range linker.Stages() {
		areas, err := l.catalog.MatchAdminArea(ctx, stage, name, l.threshold)
		if err != nil {
			l.logger.Warn("admin area lookup failed",
				zap.String("name", name),
				zap.String("stage", stage.String()),
				zap.Error(err),
			)
			return linker.AdminArea{}, false
		}
		if len(areas) == 1 {
			return areas[0], true
		}
	}
	return linker.AdminArea{}, false
}
