package resolver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/newslinker/internal/linker"
	"github.com/JakeFAU/newslinker/internal/storage/memory"
)

func newLocationResolver(t *testing.T, cat linker.Catalog) *LocationResolver {
	t.Helper()
	return NewLocation(newResolver(t, cat))
}

func TestResolveLocationUsesSiblingCountry(t *testing.T) {
	t.Parallel()

	cat := memory.NewCatalog()
	cat.AddAdminArea("France", "FR")
	fr := cat.AddEntity(linker.Location, linker.CatalogEntity{Name: "Paris", CountryCode: "FR"})
	cat.AddEntity(linker.Location, linker.CatalogEntity{Name: "Paris", CountryCode: "US"})
	l := newLocationResolver(t, cat)

	m, err := l.ResolveLocation(context.Background(), "Paris", NewScope([]string{"Paris", "France"}))
	require.NoError(t, err)
	require.Equal(t, Match{ID: fr, Found: true, Via: ViaCountry}, m)
}

func TestResolveLocationCountryPrefersPopulation(t *testing.T) {
	t.Parallel()

	cat := memory.NewCatalog()
	cat.AddAdminArea("United States", "US", "USA")
	cat.AddEntity(linker.Location, linker.CatalogEntity{Name: "Springfield", CountryCode: "US", Population: pop(116000)})
	il := cat.AddEntity(linker.Location, linker.CatalogEntity{Name: "Springfield", CountryCode: "US", Population: pop(167000)})
	cat.AddEntity(linker.Location, linker.CatalogEntity{Name: "Springfield", CountryCode: "US"})
	l := newLocationResolver(t, cat)

	m, err := l.ResolveLocation(context.Background(), "Springfield", NewScope([]string{"USA", "Springfield"}))
	require.NoError(t, err)
	require.Equal(t, il, m.ID)
	require.Equal(t, ViaCountry, m.Via)
}

func TestResolveLocationCountryAlias(t *testing.T) {
	t.Parallel()

	cat := memory.NewCatalog()
	cat.AddAdminArea("United Kingdom", "GB")
	cat.AddAdminArea("United States", "US")
	gb := cat.AddEntity(linker.Location, linker.CatalogEntity{Name: "London", CountryCode: "GB", Aliases: []string{"The City"}})
	cat.AddEntity(linker.Location, linker.CatalogEntity{Name: "Manhattan", CountryCode: "US", Aliases: []string{"The City"}})
	l := newLocationResolver(t, cat)

	m, err := l.ResolveLocation(context.Background(), "The City", NewScope([]string{"The City", "United Kingdom"}))
	require.NoError(t, err)
	require.Equal(t, Match{ID: gb, Found: true, Via: ViaCountryAlias}, m)
}

func TestResolveLocationCountrySimilarName(t *testing.T) {
	t.Parallel()

	cat := memory.NewCatalog()
	cat.AddAdminArea("Germany", "DE")
	de := cat.AddEntity(linker.Location, linker.CatalogEntity{Name: "Frankfurt am Main", CountryCode: "DE"})
	cat.AddEntity(linker.Location, linker.CatalogEntity{Name: "Frankfurt", CountryCode: "US"})
	l := newLocationResolver(t, cat)

	// Both rows are similar enough to be ambiguous without country context.
	m, err := l.ResolveLocation(context.Background(), "Frankfurt am Mein", NewScope([]string{"Frankfurt am Mein", "Germany"}))
	require.NoError(t, err)
	require.Equal(t, Match{ID: de, Found: true, Via: ViaCountrySimilar}, m)
}

func TestResolveLocationCountrySimilarNameNeedsSingleRow(t *testing.T) {
	t.Parallel()

	cat := memory.NewCatalog()
	cat.AddAdminArea("Germany", "DE")
	cat.AddEntity(linker.Location, linker.CatalogEntity{Name: "Frankfurt am Main", CountryCode: "DE"})
	cat.AddEntity(linker.Location, linker.CatalogEntity{Name: "Frankfurt", CountryCode: "DE"})
	l := newLocationResolver(t, cat)

	m, err := l.ResolveLocation(context.Background(), "Frankfurt am Mein", NewScope([]string{"Frankfurt am Mein", "Germany"}))
	require.NoError(t, err)
	require.False(t, m.Found)
}

func TestResolveLocationPopulationFallback(t *testing.T) {
	t.Parallel()

	cat := memory.NewCatalog()
	cat.AddEntity(linker.Location, linker.CatalogEntity{Name: "Portland", CountryCode: "US", Population: pop(68000)})
	oregon := cat.AddEntity(linker.Location, linker.CatalogEntity{Name: "Portland", CountryCode: "US", Population: pop(650000)})
	l := newLocationResolver(t, cat)

	m, err := l.ResolveLocation(context.Background(), "Portland", NewScope([]string{"Portland"}))
	require.NoError(t, err)
	require.Equal(t, Match{ID: oregon, Found: true, Via: ViaPopulation}, m)
}

func TestResolveLocationPopulationFallbackNeedsTwoPopulatedRows(t *testing.T) {
	t.Parallel()

	cat := memory.NewCatalog()
	cat.AddEntity(linker.Location, linker.CatalogEntity{Name: "Portland", Population: pop(650000)})
	cat.AddEntity(linker.Location, linker.CatalogEntity{Name: "Portland"})
	l := newLocationResolver(t, cat)

	m, err := l.ResolveLocation(context.Background(), "Portland", nil)
	require.NoError(t, err)
	require.False(t, m.Found)
}

func TestResolveLocationGenericCascadeFirst(t *testing.T) {
	t.Parallel()

	spy := newSpy()
	spy.AddAdminArea("Japan", "JP")
	id := spy.AddEntity(linker.Location, linker.CatalogEntity{Name: "Kyoto", CountryCode: "JP"})
	l := newLocationResolver(t, spy)

	m, err := l.ResolveLocation(context.Background(), "Kyoto", NewScope([]string{"Japan"}))
	require.NoError(t, err)
	require.Equal(t, Match{ID: id, Found: true, Via: "name"}, m)
	require.Zero(t, spy.adminCalls)
}

func TestScopeComputedOncePerArticle(t *testing.T) {
	t.Parallel()

	spy := newSpy()
	spy.AddAdminArea("Germany", "DE")
	l := newLocationResolver(t, spy)
	scope := NewScope([]string{"Germany"})
	ctx := context.Background()

	_, err := l.ResolveLocation(ctx, "Neustadt", scope)
	require.NoError(t, err)
	calls := spy.adminCalls
	require.Positive(t, calls)

	_, err = l.ResolveLocation(ctx, "Altstadt", scope)
	require.NoError(t, err)
	require.Equal(t, calls, spy.adminCalls)
}

func TestAdminLookupErrorSkipsSibling(t *testing.T) {
	t.Parallel()

	spy := newSpy()
	spy.AddAdminArea("Canada", "CA")
	spy.AddAdminArea("Australia", "AU")
	spy.failAdmin["Canada"] = true
	spy.AddEntity(linker.Location, linker.CatalogEntity{Name: "Perth", CountryCode: "GB"})
	au := spy.AddEntity(linker.Location, linker.CatalogEntity{Name: "Perth", CountryCode: "AU"})
	l := newLocationResolver(t, spy)

	m, err := l.ResolveLocation(context.Background(), "Perth", NewScope([]string{"Canada", "Australia"}))
	require.NoError(t, err)
	require.Equal(t, au, m.ID)
}

func TestResolveLocationNotFound(t *testing.T) {
	t.Parallel()

	l := newLocationResolver(t, memory.NewCatalog())

	m, err := l.ResolveLocation(context.Background(), "Atlantis", NewScope([]string{"Atlantis"}))
	require.NoError(t, err)
	require.False(t, m.Found)

	m, err = l.ResolveLocation(context.Background(), "", nil)
	require.NoError(t, err)
	require.False(t, m.Found)
}
