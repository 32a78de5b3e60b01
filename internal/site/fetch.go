package site

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/gocolly/colly/v2"
)

// FetchConfig controls collector behavior.
type FetchConfig struct {
	UserAgent string
	Timeout   time.Duration
	// HostRPS limits requests per second to a single host; zero is unlimited.
	HostRPS   float64
	HostBurst int
}

// Page is a fetched HTML document.
type Page struct {
	URL        *url.URL
	StatusCode int
	Body       []byte
}

// Fetcher downloads article pages with colly.
type Fetcher struct {
	cfg           FetchConfig
	baseCollector *colly.Collector
	limiter       *hostLimiter
}

// NewFetcher builds a Fetcher.
func NewFetcher(cfg FetchConfig) *Fetcher {
	c := colly.NewCollector(colly.Async(false), colly.AllowURLRevisit())
	c.WithTransport(newHTTPTransport())
	if cfg.Timeout == 0 {
		cfg.Timeout = 20 * time.Second
	}
	// Clones share the base collector's HTTP client, so the client is only
	// configured here.
	c.SetRequestTimeout(cfg.Timeout)
	if cfg.UserAgent != "" {
		c.UserAgent = cfg.UserAgent
	}
	return &Fetcher{
		cfg:           cfg,
		baseCollector: c,
		limiter:       newHostLimiter(cfg.HostRPS, cfg.HostBurst),
	}
}

// Fetch executes a single GET for pageURL.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (Page, error) {
	if err := f.limiter.Wait(ctx, pageURL); err != nil {
		return Page{}, fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	var (
		page     Page
		fetchErr error
	)
	collector := f.baseCollector.Clone()

	collector.OnResponse(func(r *colly.Response) {
		page = Page{
			URL:        r.Request.URL,
			StatusCode: r.StatusCode,
			Body:       append([]byte(nil), r.Body...),
		}
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			fetchErr = fmt.Errorf("status %d: %w", r.StatusCode, err)
			return
		}
		fetchErr = err
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(pageURL)
	}()

	select {
	case <-ctx.Done():
		return Page{}, fmt.Errorf("fetch %s canceled: %w", pageURL, ctx.Err())
	case err := <-done:
		if fetchErr != nil {
			return Page{}, fmt.Errorf("fetch %s: %w", pageURL, fetchErr)
		}
		if err != nil {
			return Page{}, fmt.Errorf("visit %s: %w", pageURL, err)
		}
		return page, nil
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
