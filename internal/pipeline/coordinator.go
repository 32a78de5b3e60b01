// Package pipeline drains the work queue and persists each article with
// its resolved entity links.
package pipeline

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JakeFAU/newslinker/internal/linker"
	"github.com/JakeFAU/newslinker/internal/metrics"
	"github.com/JakeFAU/newslinker/internal/resolver"
)

// ErrNotConfigured is returned by Run when a required collaborator is missing.
var ErrNotConfigured = errors.New("coordinator not configured")

// Article outcome labels.
const (
	OutcomeStored  = "stored"
	OutcomePartial = "partial"
	OutcomeDropped = "dropped"
)

// Link outcome labels.
const (
	LinkLinked  = "linked"
	LinkDropped = "dropped"
	LinkSkipped = "skipped"
)

const viaCreated = "created"

type depthReporter interface {
	Len() int
}

// Coordinator is the single consumer of the work queue. It owns its store
// exclusively and processes one article at a time.
type Coordinator struct {
	queue     linker.Queue
	store     linker.Store
	resolver  *resolver.Resolver
	locations *resolver.LocationResolver
	logger    *zap.Logger
}

// New constructs a Coordinator.
func New(queue linker.Queue, store linker.Store, res *resolver.Resolver, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Coordinator{
		queue:    queue,
		store:    store,
		resolver: res,
		logger:   logger,
	}
	if res != nil {
		c.locations = resolver.NewLocation(res)
	}
	return c
}

// Run consumes the queue until the termination record arrives, the queue is
// closed and drained, or ctx is canceled. Failures on individual articles
// are logged and counted; they never stop the loop.
func (c *Coordinator) Run(ctx context.Context) error {
	if c.queue == nil || c.store == nil || c.resolver == nil {
		return ErrNotConfigured
	}
	logger := c.logger.With(zap.String("run_id", uuid.NewString()))
	logger.Info("coordinator started")
	processed := 0
	for {
		c.reportDepth()
		rec, err := c.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info("coordinator canceled", zap.Int("articles", processed))
				return ctx.Err()
			}
			if errors.Is(err, linker.ErrQueueClosed) {
				logger.Info("queue closed", zap.Int("articles", processed))
				return nil
			}
			logger.Error("queue dequeue failed", zap.Error(err))
			continue
		}
		if rec.IsSentinel() {
			logger.Info("termination record received", zap.Int("articles", processed))
			return nil
		}
		out := c.PersistArticle(ctx, rec)
		processed++
		logger.Debug("article processed",
			zap.String("url", rec.URL),
			zap.Int64("article_id", out.ArticleID),
			zap.Int("linked", out.Linked),
			zap.Int("created", out.Created),
			zap.Int("dropped", out.LinksDropped),
			zap.Int("skipped", out.Skipped),
		)
	}
}

func (c *Coordinator) reportDepth() {
	if d, ok := c.queue.(depthReporter); ok {
		metrics.SetQueueDepth(d.Len())
	}
}

// PersistArticle stores rec and links every candidate name to a catalog
// row, creating rows for names that do not resolve. The article is written
// before any link; if that write fails nothing else is attempted.
func (c *Coordinator) PersistArticle(ctx context.Context, rec linker.ArticleRecord) linker.CommitOutcome {
	var out linker.CommitOutcome
	articleID, err := c.store.InsertArticle(ctx, rec)
	if err != nil {
		c.logger.Error("article insert failed, dropping record",
			zap.String("url", rec.URL),
			zap.Int("entities", rec.EntityCount()),
			zap.Error(err),
		)
		metrics.ObserveArticle(OutcomeDropped)
		return out
	}
	out.ArticleID = articleID
	out.ArticleStored = true

	for _, category := range linker.Categories() {
		names := trimNames(rec.Names(category))
		var scope *resolver.Scope
		if category == linker.Location {
			scope = resolver.NewScope(names)
		}
		for _, name := range names {
			c.persistName(ctx, category, name, articleID, scope, &out)
		}
	}

	if out.Dropped() {
		metrics.ObserveArticle(OutcomePartial)
	} else {
		metrics.ObserveArticle(OutcomeStored)
	}
	return out
}

// trimNames returns names with surrounding whitespace removed. Blank names
// are kept so they are counted the same way as before trimming.
func trimNames(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = strings.TrimSpace(n)
	}
	return out
}

func (c *Coordinator) persistName(
	ctx context.Context,
	category linker.Category,
	name string,
	articleID int64,
	scope *resolver.Scope,
	out *linker.CommitOutcome,
) {
	if name == "" {
		return
	}
	m, err := c.resolve(ctx, category, name, scope)
	if err != nil {
		c.logger.Warn("resolution failed, skipping name",
			zap.String("category", string(category)),
			zap.String("name", name),
			zap.Error(err),
		)
		out.Skipped++
		metrics.ObserveLink(string(category), LinkSkipped)
		return
	}
	if !m.Found {
		id, err := c.store.InsertCatalogEntity(ctx, category, name)
		if err != nil {
			c.logger.Error("catalog insert failed",
				zap.String("category", string(category)),
				zap.String("name", name),
				zap.Error(err),
			)
			out.LinksDropped++
			metrics.ObserveLink(string(category), LinkDropped)
			return
		}
		out.Created++
		m = resolver.Match{ID: id, Found: true, Via: viaCreated}
	}
	metrics.ObserveResolution(string(category), m.Via)

	if err := c.store.InsertLink(ctx, category, articleID, m.ID); err != nil {
		c.logger.Error("link insert failed",
			zap.String("category", string(category)),
			zap.String("name", name),
			zap.Int64("article_id", articleID),
			zap.Int64("entity_id", m.ID),
			zap.Error(err),
		)
		out.LinksDropped++
		metrics.ObserveLink(string(category), LinkDropped)
		return
	}
	out.Linked++
	metrics.ObserveLink(string(category), LinkLinked)
}

func (c *Coordinator) resolve(ctx context.Context, category linker.Category, name string, scope *resolver.Scope) (resolver.Match, error) {
	if category == linker.Location {
		return c.locations.ResolveLocation(ctx, name, scope)
	}
	return c.resolver.Resolve(ctx, category, name)
}
