package linker

import (
	"context"
	"errors"
)

// Queue carries article records from producers to the coordinator.
// Enqueue must never block; Dequeue blocks until a record is available.
type Queue interface {
	Enqueue(record ArticleRecord) error
	Dequeue(ctx context.Context) (ArticleRecord, error)
}

// Store performs the writes of the pipeline.
type Store interface {
	InsertArticle(ctx context.Context, record ArticleRecord) (int64, error)
	InsertCatalogEntity(ctx context.Context, category Category, name string) (int64, error)
	InsertLink(ctx context.Context, category Category, articleID, entityID int64) error
}

// SeenChecker reports whether an article URL has already been stored.
type SeenChecker interface {
	ArticleExists(ctx context.Context, url string) (bool, error)
}

// Catalog is the read side of the entity catalog used by the resolvers.
// Every method issues a single lookup and never writes.
type Catalog interface {
	// Match returns the ids of category rows matching name at the given stage.
	Match(ctx context.Context, stage MatchStage, category Category, name string, threshold float64) ([]int64, error)
	// MatchAdminArea returns the reference admin areas matching name at the given stage.
	MatchAdminArea(ctx context.Context, stage MatchStage, name string, threshold float64) ([]AdminArea, error)
	// LocationsInCountry returns locations named exactly name within a country.
	LocationsInCountry(ctx context.Context, name, countryCode string) ([]CatalogEntity, error)
	// SimilarLocationsInCountry returns ids of locations in a country whose
	// name is more similar to name than threshold.
	SimilarLocationsInCountry(ctx context.Context, name, countryCode string, threshold float64) ([]int64, error)
	// LocationAliasesInCountry returns ids of locations in a country carrying name as an alias.
	LocationAliasesInCountry(ctx context.Context, name, countryCode string) ([]int64, error)
	// PopulatedLocations returns locations named exactly name that have a
	// population, highest population first.
	PopulatedLocations(ctx context.Context, name string) ([]CatalogEntity, error)
}

// ErrQueueClosed is returned by Dequeue once a queue is closed and drained.
var ErrQueueClosed = errors.New("queue closed")
