package linker

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCategoryTables(t *testing.T) {
	t.Parallel()

	require.Equal(t, "people", Person.Table())
	require.Equal(t, "article_people", Person.LinkTable())
	require.Equal(t, "people_id", Person.LinkColumn())
	require.Equal(t, "article_locations", Location.LinkTable())
	require.Equal(t, "location_id", Location.LinkColumn())
	require.Equal(t, "events", Event.Table())
	require.False(t, Category("planet").Valid())
	require.Empty(t, Category("planet").Table())
}

func TestCategoriesProcessLocationsLast(t *testing.T) {
	t.Parallel()

	cats := Categories()
	require.Len(t, cats, 5)
	require.Equal(t, Location, cats[len(cats)-1])
	for _, c := range cats {
		require.True(t, c.Valid(), c)
	}
}

func TestParseCategory(t *testing.T) {
	t.Parallel()

	c, err := ParseCategory(" Organization ")
	require.NoError(t, err)
	require.Equal(t, Organization, c)

	_, err = ParseCategory("galaxy")
	require.Error(t, err)
}

func TestSentinelDetectedByTextOnly(t *testing.T) {
	t.Parallel()

	require.True(t, Sentinel().IsSentinel())
	rec := ArticleRecord{Title: "real", URL: "https://example.com", Text: ExitText}
	require.True(t, rec.IsSentinel())
	require.False(t, ArticleRecord{Text: "exitcalled"}.IsSentinel())
}

func TestArticleRecordDecodesQueueMessage(t *testing.T) {
	t.Parallel()

	payload := `{"title":"Storm","url":"https://news.example/a","text":"body","site":"news.example",
		"people":["Jane Doe"],"locations":["Paris","France"],"facilities":[],"organizations":["UN"],"events":null}`

	var rec ArticleRecord
	require.NoError(t, json.Unmarshal([]byte(payload), &rec))
	require.Equal(t, "Storm", rec.Title)
	require.Equal(t, "news.example", rec.Site)
	require.Equal(t, []string{"Paris", "France"}, rec.Names(Location))
	require.Equal(t, []string{"UN"}, rec.Names(Organization))
	require.Empty(t, rec.Names(Event))
	require.Equal(t, 4, rec.EntityCount())

	out, err := json.Marshal(rec)
	require.NoError(t, err)
	require.Contains(t, string(out), `"events":[]`)
	require.Contains(t, string(out), `"people":["Jane Doe"]`)
}

func TestCommitOutcomeDropped(t *testing.T) {
	t.Parallel()

	require.True(t, CommitOutcome{}.Dropped())
	require.False(t, CommitOutcome{ArticleStored: true, Linked: 3}.Dropped())
	require.True(t, CommitOutcome{ArticleStored: true, LinksDropped: 1}.Dropped())
}
