package site

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// bbcNoise lists elements stripped before the body text is read: embeds,
// "related" lists and follow-us links.
const bbcNoise = "figure, script, style, div.social-embed, ul.story-body__unordered-list, a.story-body__link-external"

// BBCWebsite scrapes BBC News article pages.
type BBCWebsite struct {
	fetcher *Fetcher
}

// NewBBC constructs a BBC scraper.
func NewBBC(fetcher *Fetcher) *BBCWebsite {
	return &BBCWebsite{fetcher: fetcher}
}

// Scrape downloads url and returns the cleaned story body.
func (b *BBCWebsite) Scrape(ctx context.Context, url string) (string, error) {
	page, err := b.fetcher.Fetch(ctx, url)
	if err != nil {
		return "", err
	}
	return parseBBC(page.Body)
}

func parseBBC(body []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parse bbc page: %w", err)
	}
	doc.Find(bbcNoise).Remove()

	var parts []string
	doc.Find("div.story-body__inner").Each(func(_ int, s *goquery.Selection) {
		parts = append(parts, selectionText(s))
	})
	if len(parts) == 0 {
		// Current page layout.
		doc.Find("article p").Each(func(_ int, s *goquery.Selection) {
			parts = append(parts, selectionText(s))
		})
	}
	return FixText(strings.TrimSpace(strings.Join(parts, " "))), nil
}
