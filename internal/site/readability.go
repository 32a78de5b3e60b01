package site

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	readability "github.com/go-shiori/go-readability"
)

// ReadabilityWebsite scrapes any article page with the readability
// heuristics.
type ReadabilityWebsite struct {
	fetcher *Fetcher
}

// NewReadability constructs a generic scraper.
func NewReadability(fetcher *Fetcher) *ReadabilityWebsite {
	return &ReadabilityWebsite{fetcher: fetcher}
}

// Scrape downloads url and returns the main article text.
func (r *ReadabilityWebsite) Scrape(ctx context.Context, url string) (string, error) {
	page, err := r.fetcher.Fetch(ctx, url)
	if err != nil {
		return "", err
	}
	article, err := readability.FromReader(bytes.NewReader(page.Body), page.URL)
	if err != nil {
		return "", fmt.Errorf("extract article %s: %w", url, err)
	}
	text := strings.Join(strings.Fields(article.TextContent), " ")
	return FixText(text), nil
}
