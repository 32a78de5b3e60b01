// Package resolver maps extracted entity names onto existing catalog rows.
//
// Resolution is read-only. When no stage yields exactly one row the caller
// is expected to create the entity.
package resolver

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/newslinker/internal/linker"
)

// DefaultThreshold is the trigram similarity a fuzzy match must exceed.
const DefaultThreshold = 0.5

// Labels describing how a location was resolved outside the generic cascade.
const (
	ViaCountry        = "country"
	ViaCountrySimilar = "country_similar"
	ViaCountryAlias   = "country_alias"
	ViaPopulation     = "population"
)

// Match is the result of a resolution attempt.
type Match struct {
	ID    int64
	Found bool
	// Via names the stage that produced the match.
	Via string
}

func found(id int64, via string) Match {
	return Match{ID: id, Found: true, Via: via}
}

// Resolver runs the generic cascade against a catalog.
type Resolver struct {
	catalog   linker.Catalog
	threshold float64
	logger    *zap.Logger
}

// New constructs a Resolver. A non-positive threshold selects DefaultThreshold.
func New(catalog linker.Catalog, threshold float64, logger *zap.Logger) (*Resolver, error) {
	if catalog == nil {
		return nil, errors.New("resolver: catalog is required")
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if threshold > 1 {
		return nil, fmt.Errorf("resolver: threshold %.2f out of range", threshold)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{catalog: catalog, threshold: threshold, logger: logger}, nil
}

// Threshold returns the similarity cut-off in use.
func (r *Resolver) Threshold() float64 {
	return r.threshold
}

// Resolve walks the cascade for name and stops at the first stage that
// yields exactly one row. Empty or ambiguous results move on to the next
// stage; a lookup error aborts the attempt.
func (r *Resolver) Resolve(ctx context.Context, category linker.Category, name string) (Match, error) {
	if name == "" {
		return Match{}, nil
	}
	for _, stage := range linker.Stages() {
		ids, err := r.catalog.Match(ctx, stage, category, name, r.threshold)
		if err != nil {
			return Match{}, fmt.Errorf("resolve %s %q by %s: %w", category, name, stage, err)
		}
		if len(ids) == 1 {
			r.logger.Debug("entity resolved",
				zap.String("category", string(category)),
				zap.String("name", name),
				zap.String("stage", stage.String()),
				zap.Int64("id", ids[0]),
			)
			return found(ids[0], stage.String()), nil
		}
		if len(ids) > 1 {
			r.logger.Debug("ambiguous stage",
				zap.String("category", string(category)),
				zap.String("name", name),
				zap.String("stage", stage.String()),
				zap.Int("candidates", len(ids)),
			)
		}
	}
	return Match{}, nil
}
