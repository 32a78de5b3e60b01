package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/JakeFAU/newslinker/internal/linker"
)

type adminRow struct {
	area    linker.AdminArea
	aliases []string
}

// Catalog is an in-memory entity catalog and article store. It backs dry
// runs and tests and follows the same matching rules as the PostgreSQL
// engine.
type Catalog struct {
	mu       sync.RWMutex
	nextID   int64
	entities map[linker.Category][]linker.CatalogEntity
	admin    []adminRow
	articles []linker.ArticleRecord
	links    []linker.ArticleLink
}

// NewCatalog constructs an empty Catalog.
func NewCatalog() *Catalog {
	return &Catalog{entities: make(map[linker.Category][]linker.CatalogEntity)}
}

func (c *Catalog) allocID() int64 {
	c.nextID++
	return c.nextID
}

// AddEntity seeds a catalog row and returns its id. The ID of ent is ignored.
func (c *Catalog) AddEntity(category linker.Category, ent linker.CatalogEntity) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	ent.ID = c.allocID()
	ent.Aliases = slices.Clone(ent.Aliases)
	c.entities[category] = append(c.entities[category], ent)
	return ent.ID
}

// AddAdminArea seeds a row of the admin-area reference table.
func (c *Catalog) AddAdminArea(name, countryCode string, aliases ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.admin = append(c.admin, adminRow{
		area:    linker.AdminArea{Name: name, CountryCode: countryCode},
		aliases: slices.Clone(aliases),
	})
}

// Entities returns a copy of the rows of a category.
func (c *Catalog) Entities(category linker.Category) []linker.CatalogEntity {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.entities[category])
}

// Articles returns the stored articles in insertion order.
func (c *Catalog) Articles() []linker.ArticleRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.articles)
}

// Links returns the stored article links in insertion order.
func (c *Catalog) Links() []linker.ArticleLink {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.links)
}

// InsertArticle stores the record and returns its id.
func (c *Catalog) InsertArticle(_ context.Context, record linker.ArticleRecord) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.articles = append(c.articles, record)
	return c.allocID(), nil
}

// InsertCatalogEntity creates a row named name.
func (c *Catalog) InsertCatalogEntity(_ context.Context, category linker.Category, name string) (int64, error) {
	if !category.Valid() {
		return 0, fmt.Errorf("insert catalog entity: unknown category %q", category)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.allocID()
	c.entities[category] = append(c.entities[category], linker.CatalogEntity{ID: id, Name: name})
	return id, nil
}

// InsertLink records a link; non-positive ids are ignored.
func (c *Catalog) InsertLink(_ context.Context, category linker.Category, articleID, entityID int64) error {
	if articleID <= 0 || entityID <= 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.links = append(c.links, linker.ArticleLink{ArticleID: articleID, EntityID: entityID, Category: category})
	return nil
}

// ArticleExists reports whether an article with url was stored.
func (c *Catalog) ArticleExists(_ context.Context, url string) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, a := range c.articles {
		if a.URL == url {
			return true, nil
		}
	}
	return false, nil
}

func stageMatches(stage linker.MatchStage, name string, rowName string, aliases []string, threshold float64) (bool, error) {
	switch stage {
	case linker.StageName:
		return rowName == name, nil
	case linker.StageAlias:
		return slices.Contains(aliases, name), nil
	case linker.StageSimilarName:
		return Similarity(rowName, name) > threshold, nil
	case linker.StageSimilarAlias:
		return slices.ContainsFunc(aliases, func(a string) bool {
			return Similarity(a, name) > threshold
		}), nil
	default:
		return false, fmt.Errorf("unsupported match stage %s", stage)
	}
}

// Match returns the ids of category rows matching name at stage.
func (c *Catalog) Match(_ context.Context, stage linker.MatchStage, category linker.Category, name string, threshold float64) ([]int64, error) {
	if !category.Valid() {
		return nil, fmt.Errorf("match: unknown category %q", category)
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	var ids []int64
	for _, ent := range c.entities[category] {
		ok, err := stageMatches(stage, name, ent.Name, ent.Aliases, threshold)
		if err != nil {
			return nil, err
		}
		if ok {
			ids = append(ids, ent.ID)
		}
	}
	return ids, nil
}

// MatchAdminArea returns the admin areas matching name at stage.
func (c *Catalog) MatchAdminArea(_ context.Context, stage linker.MatchStage, name string, threshold float64) ([]linker.AdminArea, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []linker.AdminArea
	for _, row := range c.admin {
		ok, err := stageMatches(stage, name, row.area.Name, row.aliases, threshold)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, row.area)
		}
	}
	return out, nil
}

// LocationsInCountry returns locations named exactly name in countryCode.
func (c *Catalog) LocationsInCountry(_ context.Context, name, countryCode string) ([]linker.CatalogEntity, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []linker.CatalogEntity
	for _, ent := range c.entities[linker.Location] {
		if ent.Name == name && ent.CountryCode == countryCode {
			out = append(out, ent)
		}
	}
	return out, nil
}

// SimilarLocationsInCountry returns ids of locations in countryCode whose
// name is more similar to name than threshold.
func (c *Catalog) SimilarLocationsInCountry(_ context.Context, name, countryCode string, threshold float64) ([]int64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var ids []int64
	for _, ent := range c.entities[linker.Location] {
		if ent.CountryCode == countryCode && Similarity(ent.Name, name) > threshold {
			ids = append(ids, ent.ID)
		}
	}
	return ids, nil
}

// LocationAliasesInCountry returns ids of locations in countryCode with
// name as an alias.
func (c *Catalog) LocationAliasesInCountry(_ context.Context, name, countryCode string) ([]int64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var ids []int64
	for _, ent := range c.entities[linker.Location] {
		if ent.CountryCode == countryCode && slices.Contains(ent.Aliases, name) {
			ids = append(ids, ent.ID)
		}
	}
	return ids, nil
}

// PopulatedLocations returns locations named exactly name with a known
// population, most populous first.
func (c *Catalog) PopulatedLocations(_ context.Context, name string) ([]linker.CatalogEntity, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []linker.CatalogEntity
	for _, ent := range c.entities[linker.Location] {
		if ent.Name == name && ent.Population != nil {
			out = append(out, ent)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return *out[i].Population > *out[j].Population
	})
	return out, nil
}
