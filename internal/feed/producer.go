// Package feed produces article records from RSS and Atom subscriptions.
package feed

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/newslinker/internal/linker"
	"github.com/JakeFAU/newslinker/internal/metrics"
	"github.com/JakeFAU/newslinker/internal/site"
)

// Feed item outcome labels.
const (
	ItemEnqueued = "enqueued"
	ItemSeen     = "seen"
	ItemEmpty    = "empty"
	ItemFailed   = "failed"
)

// EntityExtractor finds candidate names in article text.
type EntityExtractor interface {
	Extract(ctx context.Context, text string) (map[linker.Category][]string, error)
}

// Config controls feed downloads.
type Config struct {
	UserAgent string
	Timeout   time.Duration
}

// Producer reads one subscription and enqueues every new article in it.
type Producer struct {
	sub       linker.Subscription
	parser    *gofeed.Parser
	scraper   site.Scraper
	extractor EntityExtractor
	seen      linker.SeenChecker
	queue     linker.Queue
	logger    *zap.Logger
}

// NewProducer wires a producer for sub.
func NewProducer(
	sub linker.Subscription,
	cfg Config,
	scraper site.Scraper,
	extractor EntityExtractor,
	seen linker.SeenChecker,
	queue linker.Queue,
	logger *zap.Logger,
) (*Producer, error) {
	switch {
	case sub.URL == "":
		return nil, errors.New("subscription url is required")
	case scraper == nil:
		return nil, errors.New("scraper is required")
	case extractor == nil:
		return nil, errors.New("extractor is required")
	case seen == nil:
		return nil, errors.New("seen checker is required")
	case queue == nil:
		return nil, errors.New("queue is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	parser := gofeed.NewParser()
	parser.UserAgent = cfg.UserAgent
	parser.Client = &http.Client{Timeout: cfg.Timeout}
	return &Producer{
		sub:       sub,
		parser:    parser,
		scraper:   scraper,
		extractor: extractor,
		seen:      seen,
		queue:     queue,
		logger:    logger.With(zap.String("feed", sub.URL), zap.String("site", sub.Site)),
	}, nil
}

// Process parses the feed and enqueues a record for every item not yet
// stored. Item failures are logged and skipped; only a feed that cannot be
// read is an error. It returns the number of records enqueued.
func (p *Producer) Process(ctx context.Context) (int, error) {
	feed, err := p.parser.ParseURLWithContext(p.sub.URL, ctx)
	if err != nil {
		return 0, fmt.Errorf("parse feed %s: %w", p.sub.URL, err)
	}
	enqueued := 0
	for _, item := range feed.Items {
		if ctx.Err() != nil {
			return enqueued, ctx.Err()
		}
		if item == nil || item.Link == "" {
			continue
		}
		outcome := p.processItem(ctx, item)
		metrics.ObserveFeedItem(item.Link, outcome)
		if outcome == ItemEnqueued {
			enqueued++
		}
	}
	p.logger.Info("feed processed", zap.Int("items", len(feed.Items)), zap.Int("enqueued", enqueued))
	return enqueued, nil
}

func (p *Producer) processItem(ctx context.Context, item *gofeed.Item) string {
	logger := p.logger.With(zap.String("url", item.Link))
	seen, err := p.seen.ArticleExists(ctx, item.Link)
	if err != nil {
		logger.Warn("seen check failed", zap.Error(err))
		return ItemFailed
	}
	if seen {
		return ItemSeen
	}
	text, err := p.scraper.Scrape(ctx, item.Link)
	if err != nil {
		logger.Warn("scrape failed", zap.Error(err))
		return ItemFailed
	}
	if text == "" {
		logger.Debug("no article text")
		return ItemEmpty
	}
	entities, err := p.extractor.Extract(ctx, text)
	if err != nil {
		logger.Warn("entity extraction failed", zap.Error(err))
		return ItemFailed
	}
	rec := linker.ArticleRecord{
		Title:    item.Title,
		URL:      item.Link,
		Text:     text,
		Site:     hostOf(item.Link),
		Entities: entities,
	}
	if err := p.queue.Enqueue(rec); err != nil {
		logger.Error("enqueue failed", zap.Error(err))
		return ItemFailed
	}
	return ItemEnqueued
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Host
}

// RunAll processes producers in parallel, at most concurrency at a time.
// A failing feed does not stop the others; all failures are joined.
func RunAll(ctx context.Context, producers []*Producer, concurrency int) (int, error) {
	if concurrency <= 0 {
		concurrency = 1
	}
	var (
		g     errgroup.Group
		total atomic.Int64
		mu    sync.Mutex
		errs  []error
	)
	g.SetLimit(concurrency)
	for _, p := range producers {
		g.Go(func() error {
			n, err := p.Process(ctx)
			total.Add(int64(n))
			if err != nil {
				p.logger.Error("feed failed", zap.Error(err))
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return int(total.Load()), errors.Join(errs...)
}
