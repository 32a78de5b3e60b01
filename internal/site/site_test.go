package site

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const bbcPage = `<html><head><title>Story</title></head><body>
<div class="story-body__inner">
<p>Boris Johnson spoke in <a href="/london">London</a> on Monday.</p>
<figure><img src="x.jpg"><figcaption>Photo caption</figcaption></figure>
<script>var tracking = true;</script>
<div class="social-embed">Embedded tweet</div>
<ul class="story-body__unordered-list"><li>Related story</li></ul>
<p>He didn't stop.<a class="story-body__link-external">Follow us</a></p>
</div>
</body></html>`

func newTestFetcher() *Fetcher {
	return NewFetcher(FetchConfig{UserAgent: "newslinker-test", Timeout: 2 * time.Second})
}

func TestFixText(t *testing.T) {
	t.Parallel()

	require.Equal(t, "can not stop", FixText("can't stop"))
	require.Equal(t, "do not ", FixText("don't"))
	require.Equal(t, "i am here", FixText("I'm here"))
	require.Equal(t, `He said "go". Then`, FixText(`He said "go".Then`))
	require.Equal(t, "Wait! Now", FixText("Wait!Now"))
	require.Equal(t, "Boris  plan", FixText("Boris’s plan"))
	require.Equal(t, `"Quote" now`, FixText(`“Quote" now`))
}

func TestParseBBCStripsNoise(t *testing.T) {
	t.Parallel()

	text, err := parseBBC([]byte(bbcPage))
	require.NoError(t, err)

	require.Contains(t, text, "Boris Johnson spoke in London on Monday.")
	require.Contains(t, text, "He did not  stop.")
	for _, noise := range []string{"caption", "tracking", "Embedded tweet", "Related story", "Follow us"} {
		require.NotContains(t, text, noise)
	}
}

func TestParseBBCFallsBackToArticleParagraphs(t *testing.T) {
	t.Parallel()

	text, err := parseBBC([]byte(`<html><body><article><p>First para.</p><figure>x</figure><p>Second para.</p></article></body></html>`))
	require.NoError(t, err)
	require.Equal(t, "First para. Second para.", text)
}

func TestBBCWebsiteScrape(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "newslinker-test", r.UserAgent())
		w.Header().Set("Content-Type", "text/html")
		_, _ = fmt.Fprint(w, bbcPage)
	}))
	defer srv.Close()

	text, err := NewBBC(newTestFetcher()).Scrape(context.Background(), srv.URL+"/news/1")
	require.NoError(t, err)
	require.Contains(t, text, "Boris Johnson")
}

func TestFetchReportsHTTPErrors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.NotFound(w, nil)
	}))
	defer srv.Close()

	_, err := newTestFetcher().Fetch(context.Background(), srv.URL+"/missing")
	require.ErrorContains(t, err, "404")
}

func TestFetchRevisitsSameURL(t *testing.T) {
	t.Parallel()

	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		_, _ = fmt.Fprint(w, "<html><body>ok</body></html>")
	}))
	defer srv.Close()

	f := newTestFetcher()
	for range 2 {
		page, err := f.Fetch(context.Background(), srv.URL)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, page.StatusCode)
	}
	require.Equal(t, 2, hits)
}

func TestFetchIsSafeForConcurrentProducers(t *testing.T) {
	t.Parallel()

	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.UserAgent() != "newslinker-test" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = fmt.Fprint(w, "<html><body>ok</body></html>")
	}))
	defer srv.Close()

	f := NewFetcher(FetchConfig{UserAgent: "newslinker-test", Timeout: time.Second})
	const workers = 8
	errs := make(chan error, workers)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.Fetch(context.Background(), srv.URL)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	require.Equal(t, int64(workers), hits.Load())
}

func TestReadabilityWebsiteScrape(t *testing.T) {
	t.Parallel()

	var body strings.Builder
	body.WriteString(`<html><head><title>Summit</title></head><body><nav>Home | World | Sport</nav><article>`)
	for i := range 6 {
		fmt.Fprintf(&body, "<p>Paragraph %d: Leaders from France, Germany and Italy met in Brussels on Thursday, "+
			"agreeing a new framework for energy cooperation, trade and climate policy across the continent.</p>", i)
	}
	body.WriteString(`</article><footer>Copyright</footer></body></html>`)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = fmt.Fprint(w, body.String())
	}))
	defer srv.Close()

	text, err := NewReadability(newTestFetcher()).Scrape(context.Background(), srv.URL+"/summit")
	require.NoError(t, err)
	require.Contains(t, text, "Leaders from France, Germany and Italy met in Brussels")
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	r := DefaultRegistry()
	require.Equal(t, []string{BBCID, ReadabilityID}, r.IDs())

	s, err := r.New(BBCID, newTestFetcher())
	require.NoError(t, err)
	require.IsType(t, &BBCWebsite{}, s)

	_, err = r.New("CNNWebsite", newTestFetcher())
	require.ErrorIs(t, err, ErrUnsupportedSite)
	var unsupported *UnsupportedSiteError
	require.True(t, errors.As(err, &unsupported))
	require.Equal(t, "CNNWebsite", unsupported.ID)
}
