package linker

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExitText marks the termination record on the work queue.
const ExitText = "EXITCALLED"

// DebugArticleID is reserved for dry runs; links against it are never written.
const DebugArticleID int64 = -1

// Category identifies one catalog of named entities.
type Category string

// Catalog categories recognized by the pipeline.
const (
	Person       Category = "person"
	Location     Category = "location"
	Facility     Category = "facility"
	Organization Category = "organization"
	Event        Category = "event"
)

type categoryTables struct {
	table      string
	linkTable  string
	linkColumn string
}

var tables = map[Category]categoryTables{
	Person:       {table: "people", linkTable: "article_people", linkColumn: "people_id"},
	Location:     {table: "locations", linkTable: "article_locations", linkColumn: "location_id"},
	Facility:     {table: "facilities", linkTable: "article_facilities", linkColumn: "facility_id"},
	Organization: {table: "organizations", linkTable: "article_organizations", linkColumn: "organization_id"},
	Event:        {table: "events", linkTable: "article_events", linkColumn: "event_id"},
}

// Categories returns every category in processing order. Locations come
// last so the other categories are linked before the slower geographic
// disambiguation runs.
func Categories() []Category {
	return []Category{Person, Facility, Organization, Event, Location}
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	_, ok := tables[c]
	return ok
}

// Table returns the catalog table name for the category.
func (c Category) Table() string {
	return tables[c].table
}

// LinkTable returns the join table linking articles to the category.
func (c Category) LinkTable() string {
	return tables[c].linkTable
}

// LinkColumn returns the entity column of the join table.
func (c Category) LinkColumn() string {
	return tables[c].linkColumn
}

// ParseCategory maps a category name (case-insensitive) to a Category.
func ParseCategory(name string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(name)))
	if !c.Valid() {
		return "", fmt.Errorf("unknown category %q", name)
	}
	return c, nil
}

// ArticleRecord is one extracted article travelling from a producer to the
// coordinator. Records are treated as immutable once enqueued.
type ArticleRecord struct {
	Title    string
	URL      string
	Text     string
	Site     string
	Entities map[Category][]string
}

// Sentinel returns the termination record.
func Sentinel() ArticleRecord {
	return ArticleRecord{Text: ExitText}
}

// IsSentinel reports whether the record signals shutdown. Only the text is
// inspected.
func (r ArticleRecord) IsSentinel() bool {
	return r.Text == ExitText
}

// Names returns the candidate names for a category.
func (r ArticleRecord) Names(c Category) []string {
	if r.Entities == nil {
		return nil
	}
	return r.Entities[c]
}

// EntityCount returns the number of candidate names across categories.
func (r ArticleRecord) EntityCount() int {
	n := 0
	for _, names := range r.Entities {
		n += len(names)
	}
	return n
}

type message struct {
	Title         string   `json:"title"`
	URL           string   `json:"url"`
	Text          string   `json:"text"`
	Site          string   `json:"site"`
	People        []string `json:"people"`
	Locations     []string `json:"locations"`
	Facilities    []string `json:"facilities"`
	Organizations []string `json:"organizations"`
	Events        []string `json:"events"`
}

// MarshalJSON encodes the record in the queue message format.
func (r ArticleRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(message{
		Title:         r.Title,
		URL:           r.URL,
		Text:          r.Text,
		Site:          r.Site,
		People:        nonNil(r.Names(Person)),
		Locations:     nonNil(r.Names(Location)),
		Facilities:    nonNil(r.Names(Facility)),
		Organizations: nonNil(r.Names(Organization)),
		Events:        nonNil(r.Names(Event)),
	})
}

// UnmarshalJSON decodes a queue message.
func (r *ArticleRecord) UnmarshalJSON(data []byte) error {
	var m message
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("decode article record: %w", err)
	}
	*r = ArticleRecord{
		Title: m.Title,
		URL:   m.URL,
		Text:  m.Text,
		Site:  m.Site,
		Entities: map[Category][]string{
			Person:       m.People,
			Location:     m.Locations,
			Facility:     m.Facilities,
			Organization: m.Organizations,
			Event:        m.Events,
		},
	}
	return nil
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

// CatalogEntity is one row of a category table.
type CatalogEntity struct {
	ID          int64
	Name        string
	Aliases     []string
	Population  *int64
	CountryCode string
}

// AdminArea is a country or first-level administrative division used to
// disambiguate locations.
type AdminArea struct {
	Name        string
	CountryCode string
}

// ArticleLink joins an article to a catalog entity.
type ArticleLink struct {
	ArticleID int64
	EntityID  int64
	Category  Category
}

// ProblemEntity is a name the NLP model is known to miss.
type ProblemEntity struct {
	Name  string
	Label string
}

// Subscription is a feed URL and the identifier of the scraper handling it.
type Subscription struct {
	URL  string
	Site string
}

// CommitOutcome summarizes the writes performed for one article.
type CommitOutcome struct {
	ArticleID     int64
	ArticleStored bool
	Linked        int
	Created       int
	LinksDropped  int
	Skipped       int
}

// Dropped reports whether any write for the article was lost.
func (o CommitOutcome) Dropped() bool {
	return !o.ArticleStored || o.LinksDropped > 0
}
