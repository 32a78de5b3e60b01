// Package site turns article URLs into plain text, one scraper per news
// site.
package site

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// ErrUnsupportedSite is matched by errors.Is for unknown site identifiers.
var ErrUnsupportedSite = errors.New("unsupported site")

// UnsupportedSiteError names the identifier that had no registered scraper.
type UnsupportedSiteError struct {
	ID string
}

func (e *UnsupportedSiteError) Error() string {
	return fmt.Sprintf("unsupported site %q", e.ID)
}

// Is reports whether target is ErrUnsupportedSite.
func (e *UnsupportedSiteError) Is(target error) bool {
	return target == ErrUnsupportedSite
}

// Scraper extracts the article text behind a URL. An empty string with a
// nil error means the page held no article body.
type Scraper interface {
	Scrape(ctx context.Context, url string) (string, error)
}

// Factory builds a scraper around a shared fetcher.
type Factory func(*Fetcher) Scraper

// Registry maps site identifiers, as stored in subscriptions, to scrapers.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register binds id to f, replacing any previous binding.
func (r *Registry) Register(id string, f Factory) {
	r.factories[id] = f
}

// New builds the scraper registered under id.
func (r *Registry) New(id string, fetcher *Fetcher) (Scraper, error) {
	f, ok := r.factories[id]
	if !ok {
		return nil, &UnsupportedSiteError{ID: id}
	}
	return f(fetcher), nil
}

// IDs lists the registered identifiers in sorted order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.factories))
	for id := range r.factories {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Identifiers of the built-in scrapers.
const (
	BBCID         = "BBCWebsite"
	ReadabilityID = "ReadabilityWebsite"
)

// DefaultRegistry returns a registry with every built-in scraper.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(BBCID, func(f *Fetcher) Scraper { return NewBBC(f) })
	r.Register(ReadabilityID, func(f *Fetcher) Scraper { return NewReadability(f) })
	return r
}
