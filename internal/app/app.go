// Package app wires configuration into the collaborators of a newslinker
// process: database engines, feed producers, the queue, the coordinator and
// the metrics listener.
package app

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/newslinker/internal/api"
	"github.com/JakeFAU/newslinker/internal/config"
	"github.com/JakeFAU/newslinker/internal/extract"
	"github.com/JakeFAU/newslinker/internal/feed"
	"github.com/JakeFAU/newslinker/internal/linker"
	"github.com/JakeFAU/newslinker/internal/pipeline"
	queuememory "github.com/JakeFAU/newslinker/internal/queue/memory"
	"github.com/JakeFAU/newslinker/internal/resolver"
	"github.com/JakeFAU/newslinker/internal/site"
	"github.com/JakeFAU/newslinker/internal/storage/memory"
	"github.com/JakeFAU/newslinker/internal/storage/postgres"
)

// maxRecordBytes bounds a single JSONL line accepted by Ingest.
const maxRecordBytes = 16 << 20

// App is the dependency container shared by the CLI commands.
type App struct {
	cfg        config.Config
	logger     *zap.Logger
	registry   *site.Registry
	openEngine func(ctx context.Context) (*postgres.Engine, error)
	recognizer extract.Recognizer
}

// Option customizes an App.
type Option func(*App)

// WithDialer makes every engine the App opens use dial instead of a real
// PostgreSQL connection.
func WithDialer(dial postgres.DialFunc) Option {
	return func(a *App) {
		a.openEngine = func(ctx context.Context) (*postgres.Engine, error) {
			return postgres.NewWithDialer(ctx, dial, a.cfg.Resolver.ReadRetries, a.logger)
		}
	}
}

// WithRegistry replaces the default scraper registry.
func WithRegistry(r *site.Registry) Option {
	return func(a *App) { a.registry = r }
}

// WithRecognizer replaces the HTTP entity recognizer.
func WithRecognizer(r extract.Recognizer) Option {
	return func(a *App) { a.recognizer = r }
}

// New validates cfg and builds an App.
func New(cfg config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{
		cfg:      cfg,
		logger:   logger,
		registry: site.DefaultRegistry(),
	}
	a.openEngine = func(ctx context.Context) (*postgres.Engine, error) {
		if err := a.cfg.ValidateDB(); err != nil {
			return nil, fmt.Errorf("invalid database config: %w", err)
		}
		return postgres.New(ctx, a.PostgresConfig(), a.logger)
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Logger returns the process logger.
func (a *App) Logger() *zap.Logger { return a.logger }

// Config returns the loaded configuration.
func (a *App) Config() config.Config { return a.cfg }

// PostgresConfig maps the database settings onto the engine configuration.
// The configured table name is the database holding the schema.
func (a *App) PostgresConfig() postgres.Config {
	return postgres.Config{
		Host:           a.cfg.DB.Host,
		Port:           a.cfg.DB.Port,
		User:           a.cfg.DB.User,
		Password:       a.cfg.DB.Password,
		Database:       a.cfg.DB.Table,
		ConnectTimeout: a.cfg.DB.ConnectTimeout,
		ReadRetries:    a.cfg.Resolver.ReadRetries,
	}
}

// Close flushes the logger.
func (a *App) Close() {
	_ = a.logger.Sync()
}

// Migrate applies the embedded schema migrations.
func (a *App) Migrate(ctx context.Context, direction string) error {
	if err := a.cfg.ValidateDB(); err != nil {
		return fmt.Errorf("invalid database config: %w", err)
	}
	return postgres.Migrate(ctx, a.PostgresConfig(), direction)
}

// Run reads every subscription, pushes the extracted articles through the
// queue and links them in the catalog. It returns once the coordinator has
// consumed the termination record or ctx is canceled.
func (a *App) Run(ctx context.Context) error {
	ref, err := a.openEngine(ctx)
	if err != nil {
		return fmt.Errorf("open reference engine: %w", err)
	}
	defer a.closeEngine(ref)

	subs, err := ref.Subscriptions(ctx)
	if err != nil {
		return fmt.Errorf("load subscriptions: %w", err)
	}
	problems, err := ref.ProblemEntities(ctx)
	if err != nil {
		return fmt.Errorf("load problem entities: %w", err)
	}
	extractor, err := a.newExtractor(problems)
	if err != nil {
		return err
	}

	q := queuememory.NewQueue()
	defer q.Close()

	producers, engines, err := a.buildProducers(ctx, subs, extractor, q)
	defer func() {
		for _, e := range engines {
			a.closeEngine(e)
		}
	}()
	if err != nil {
		return err
	}

	store, err := a.openEngine(ctx)
	if err != nil {
		return fmt.Errorf("open coordinator engine: %w", err)
	}
	defer a.closeEngine(store)
	coord, err := a.newCoordinator(q, store, store)
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)
	if addr := a.cfg.Server.MetricsAddr; addr != "" {
		srv := api.NewServer(ref.Ping, a.logger)
		g.Go(func() error { return srv.ListenAndServe(gctx, addr) })
	}
	g.Go(func() error {
		defer cancel()
		return coord.Run(gctx)
	})
	g.Go(func() error {
		n, ferr := feed.RunAll(gctx, producers, a.cfg.Feeds.Concurrency)
		a.logger.Info("feeds processed", zap.Int("producers", len(producers)), zap.Int("enqueued", n))
		if ferr != nil {
			a.logger.Warn("some feeds failed", zap.Error(ferr))
		}
		return q.Enqueue(linker.Sentinel())
	})
	return g.Wait()
}

// IngestResult summarizes an Ingest call.
type IngestResult struct {
	Records int
	// Catalog holds the resulting rows of a dry run; nil otherwise.
	Catalog *memory.Catalog
}

// Ingest decodes one queue message per line from r and persists the records
// through the coordinator. A dry run resolves against an empty in-memory
// catalog instead of PostgreSQL. Reading stops at the termination record.
func (a *App) Ingest(ctx context.Context, r io.Reader, dryRun bool) (IngestResult, error) {
	var (
		res   IngestResult
		store linker.Store
		cat   linker.Catalog
	)
	if dryRun {
		mem := memory.NewCatalog()
		res.Catalog = mem
		store, cat = mem, mem
	} else {
		engine, err := a.openEngine(ctx)
		if err != nil {
			return res, fmt.Errorf("open coordinator engine: %w", err)
		}
		defer a.closeEngine(engine)
		store, cat = engine, engine
	}

	q := queuememory.NewQueue()
	defer q.Close()
	n, err := enqueueLines(r, q)
	res.Records = n
	if err != nil {
		return res, err
	}
	if err := q.Enqueue(linker.Sentinel()); err != nil {
		return res, fmt.Errorf("enqueue termination record: %w", err)
	}

	coord, err := a.newCoordinator(q, store, cat)
	if err != nil {
		return res, err
	}
	if err := coord.Run(ctx); err != nil {
		return res, fmt.Errorf("run coordinator: %w", err)
	}
	return res, nil
}

func enqueueLines(r io.Reader, q linker.Queue) (int, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxRecordBytes)
	n, line := 0, 0
	for sc.Scan() {
		line++
		raw := strings.TrimSpace(sc.Text())
		if raw == "" {
			continue
		}
		var rec linker.ArticleRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return n, fmt.Errorf("decode line %d: %w", line, err)
		}
		if rec.IsSentinel() {
			break
		}
		if err := q.Enqueue(rec); err != nil {
			return n, fmt.Errorf("enqueue line %d: %w", line, err)
		}
		n++
	}
	if err := sc.Err(); err != nil {
		return n, fmt.Errorf("read input: %w", err)
	}
	return n, nil
}

func (a *App) newCoordinator(q linker.Queue, store linker.Store, cat linker.Catalog) (*pipeline.Coordinator, error) {
	res, err := resolver.New(cat, a.cfg.Resolver.SimilarityThreshold, a.logger)
	if err != nil {
		return nil, fmt.Errorf("build resolver: %w", err)
	}
	return pipeline.New(q, store, res, a.logger), nil
}

func (a *App) newExtractor(problems []linker.ProblemEntity) (*extract.Extractor, error) {
	rec := a.recognizer
	if rec == nil {
		httpRec, err := extract.NewHTTPRecognizer(a.cfg.Extract.NLPEndpoint, a.cfg.Extract.NLPTimeout)
		if err != nil {
			return nil, fmt.Errorf("build recognizer: %w", err)
		}
		rec = httpRec
	}
	x, err := extract.NewExtractor(rec, problems, a.cfg.Extract.FuzzyRatio, a.logger)
	if err != nil {
		return nil, fmt.Errorf("build extractor: %w", err)
	}
	return x, nil
}

// buildProducers creates one producer per supported subscription, each with
// its own engine. Subscriptions naming an unknown scraper are skipped. The
// returned engines must be closed by the caller even when err is non-nil.
func (a *App) buildProducers(
	ctx context.Context,
	subs []linker.Subscription,
	extractor feed.EntityExtractor,
	q linker.Queue,
) ([]*feed.Producer, []*postgres.Engine, error) {
	fetcher := site.NewFetcher(site.FetchConfig{
		UserAgent: a.cfg.Feeds.UserAgent,
		Timeout:   a.cfg.Feeds.RequestTimeout,
		HostRPS:   a.cfg.Feeds.HostRPS,
		HostBurst: a.cfg.Feeds.HostBurst,
	})
	feedCfg := feed.Config{UserAgent: a.cfg.Feeds.UserAgent, Timeout: a.cfg.Feeds.RequestTimeout}

	var (
		producers []*feed.Producer
		engines   []*postgres.Engine
	)
	for _, sub := range subs {
		scraper, err := a.registry.New(sub.Site, fetcher)
		if err != nil {
			if errors.Is(err, site.ErrUnsupportedSite) {
				a.logger.Warn("skipping subscription", zap.String("feed", sub.URL), zap.Error(err))
				continue
			}
			return producers, engines, fmt.Errorf("build scraper for %s: %w", sub.URL, err)
		}
		engine, err := a.openEngine(ctx)
		if err != nil {
			return producers, engines, fmt.Errorf("open producer engine for %s: %w", sub.URL, err)
		}
		engines = append(engines, engine)
		p, err := feed.NewProducer(sub, feedCfg, scraper, extractor, engine, q, a.logger)
		if err != nil {
			return producers, engines, fmt.Errorf("build producer for %s: %w", sub.URL, err)
		}
		producers = append(producers, p)
	}
	return producers, engines, nil
}

func (a *App) closeEngine(e *postgres.Engine) {
	if e == nil {
		return
	}
	if err := e.Close(context.Background()); err != nil {
		a.logger.Warn("close engine failed", zap.Error(err))
	}
}
