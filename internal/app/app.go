// Package app initializes and holds long-lived application services, acting
// as a dependency injection container for the CLI and the HTTP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/JakeFAU/polite-scraper/internal/batch"
	"github.com/JakeFAU/polite-scraper/internal/config"
	collyfetcher "github.com/JakeFAU/polite-scraper/internal/fetcher/colly"
	"github.com/JakeFAU/polite-scraper/internal/id/uuid"
	"github.com/JakeFAU/polite-scraper/internal/policy/ratelimit"
	"github.com/JakeFAU/polite-scraper/internal/results"
	"github.com/JakeFAU/polite-scraper/internal/scraper"
	"github.com/JakeFAU/polite-scraper/internal/storage/gcs"
	"github.com/JakeFAU/polite-scraper/internal/storage/memory"
	"github.com/JakeFAU/polite-scraper/internal/storage/postgres"
	"github.com/JakeFAU/polite-scraper/internal/strategies"
)

const defaultRobotsLoadTimeout = 10 * time.Second

var (
	// ErrUnknownStrategy is returned when no strategy is registered under a name.
	ErrUnknownStrategy = errors.New("unknown strategy")
	// ErrOriginNotAllowed is returned for an origin override that is neither
	// configured nor a strategy default.
	ErrOriginNotAllowed = errors.New("origin not allowed")
)

// Outcome describes one completed scrape.
type Outcome struct {
	Strategy string         `json:"strategy"`
	URL      string         `json:"url"`
	Absent   bool           `json:"absent"`
	Result   scraper.Result `json:"result"`
	RecordID string         `json:"record_id,omitempty"`
}

// App holds the shared services: the transport, cache, per-origin scrapers
// and the result recorder.
type App struct {
	cfg          config.Config
	logger       *zap.Logger
	transport    scraper.Fetcher
	cache        scraper.Cache
	sleeper      scraper.Sleeper
	robotsClient *http.Client
	recorder     *results.Recorder
	runner       *batch.Runner

	origins  map[string]struct{} // normalized origins overrides may target
	scrapers sync.Map            // normalized origin -> *originScraper
	closers  []func()
}

type originScraper struct {
	once    sync.Once
	scraper *scraper.Scraper
	err     error
}

// Option customizes App construction.
type Option func(*options)

type options struct {
	logger       *zap.Logger
	transport    scraper.Fetcher
	cache        scraper.Cache
	store        results.Store
	sleeper      scraper.Sleeper
	robotsClient *http.Client
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithTransport replaces the colly transport.
func WithTransport(transport scraper.Fetcher) Option {
	return func(o *options) { o.transport = transport }
}

// WithCache replaces the configured cache backend.
func WithCache(cache scraper.Cache) Option {
	return func(o *options) { o.cache = cache }
}

// WithResultStore replaces the configured result store.
func WithResultStore(store results.Store) Option {
	return func(o *options) { o.store = store }
}

// WithSleeper replaces the backoff sleeper.
func WithSleeper(sleeper scraper.Sleeper) Option {
	return func(o *options) { o.sleeper = sleeper }
}

// WithRobotsClient sets the HTTP client used to load robots.txt.
func WithRobotsClient(client *http.Client) Option {
	return func(o *options) { o.robotsClient = client }
}

// New builds an App from cfg. It fails fast when a configured backend cannot
// be initialized.
func New(ctx context.Context, cfg config.Config, opts ...Option) (*App, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.sleeper == nil {
		o.sleeper = scraper.TimerSleeper()
	}
	a := &App{
		cfg:          cfg,
		logger:       o.logger,
		transport:    o.transport,
		cache:        o.cache,
		sleeper:      o.sleeper,
		robotsClient: o.robotsClient,
		origins:      knownOrigins(cfg),
	}

	if a.transport == nil {
		a.transport = collyfetcher.New(collyfetcher.Config{
			UserAgent: cfg.Fetch.UserAgent,
			Timeout:   cfg.Fetch.RequestTimeout(),
		})
	}

	if a.cache == nil {
		cache, err := a.newCache(ctx)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.cache = cache
	}

	store := o.store
	if store == nil {
		var err error
		store, err = a.newResultStore(ctx)
		if err != nil {
			a.Close()
			return nil, err
		}
	}
	recorder, err := results.NewRecorder(store, uuid.New(), a.logger.Named("results"))
	if err != nil {
		store.Close()
		a.Close()
		return nil, err
	}
	a.recorder = recorder
	a.closers = append(a.closers, recorder.Close)

	limiter := ratelimit.New(ratelimit.Config{
		DefaultRPS:   cfg.Server.PerHostRPS,
		DefaultBurst: cfg.Server.Burst,
	})
	a.runner = batch.NewRunner(batch.Config{Concurrency: cfg.Server.Concurrency}, limiter, a.logger)

	a.logger.Info("application services initialized",
		zap.String("cache_backend", cfg.Cache.Backend),
		zap.Bool("respect_robots", cfg.Robots.Respect),
		zap.Bool("postgres_results", cfg.Results.DSN != ""),
	)
	return a, nil
}

func (a *App) newCache(ctx context.Context) (scraper.Cache, error) {
	switch a.cfg.Cache.Backend {
	case config.CacheBackendFS:
		return scraper.NewFileCache(a.cfg.Cache.Dir, a.logger.Named("cache")), nil
	case config.CacheBackendMemory:
		return memory.NewCache(), nil
	case config.CacheBackendGCS:
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("create gcs client: %w", err)
		}
		a.closers = append(a.closers, func() {
			if err := client.Close(); err != nil {
				a.logger.Warn("close gcs client", zap.Error(err))
			}
		})
		return gcs.New(client, gcs.Config{
			Bucket: a.cfg.Cache.GCSBucket,
			Prefix: a.cfg.Cache.GCSPrefix,
		}, a.logger.Named("cache"))
	case config.CacheBackendNone:
		return scraper.NoCache(), nil
	default:
		return nil, fmt.Errorf("unknown cache backend: %s", a.cfg.Cache.Backend)
	}
}

func (a *App) newResultStore(ctx context.Context) (results.Store, error) {
	if strings.TrimSpace(a.cfg.Results.DSN) == "" {
		return memory.NewResultStore(0), nil
	}
	store, err := postgres.NewResultStore(ctx, postgres.ResultStoreConfig{
		DSN:   a.cfg.Results.DSN,
		Table: a.cfg.Results.Table,
	})
	if err != nil {
		return nil, err
	}
	if err := store.EnsureSchema(ctx); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

// Logger returns the shared logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Config returns the configuration the App was built from.
func (a *App) Config() config.Config {
	return a.cfg
}

// Recorder returns the result recorder.
func (a *App) Recorder() *results.Recorder {
	return a.recorder
}

// Recent lists recorded scrapes, newest first.
func (a *App) Recent(ctx context.Context, limit int) ([]results.Record, error) {
	return a.recorder.Recent(ctx, limit)
}

// Strategies lists the registered strategy names.
func (a *App) Strategies() []string {
	return strategies.Names()
}

// knownOrigins collects the configured origins and every strategy default.
func knownOrigins(cfg config.Config) map[string]struct{} {
	known := make(map[string]struct{})
	add := func(origin string) {
		if normalized, err := scraper.NormalizeOrigin(origin); err == nil {
			known[normalized] = struct{}{}
		}
	}
	for _, origin := range cfg.Origins {
		add(origin)
	}
	for _, name := range strategies.Names() {
		if origin, ok := strategies.DefaultOrigin(name); ok {
			add(origin)
		}
	}
	return known
}

// OriginFor resolves the origin a strategy targets: the override if given,
// then the configured origin, then the strategy's default. An override must
// name a configured or default origin.
func (a *App) OriginFor(name, override string) (string, error) {
	if _, ok := strategies.Lookup(name); !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
	if strings.TrimSpace(override) != "" {
		normalized, err := scraper.NormalizeOrigin(override)
		if err != nil {
			return "", err
		}
		if _, ok := a.origins[normalized]; !ok {
			return "", fmt.Errorf("%w: %q", ErrOriginNotAllowed, override)
		}
		return normalized, nil
	}
	if origin, ok := a.cfg.Origin(name); ok {
		return origin, nil
	}
	origin, _ := strategies.DefaultOrigin(name)
	return origin, nil
}

// Scrape runs the named strategy against its origin and records the result.
// Failing scrapes are not recorded.
func (a *App) Scrape(ctx context.Context, name, originOverride string) (Outcome, error) {
	strategy, ok := strategies.Lookup(name)
	if !ok {
		return Outcome{Strategy: name}, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
	origin, err := a.OriginFor(name, originOverride)
	if err != nil {
		return Outcome{Strategy: name}, err
	}
	s, err := a.scraperFor(ctx, origin)
	if err != nil {
		return Outcome{Strategy: strategy.Name()}, err
	}
	target, err := s.URLFor(strategy)
	if err != nil {
		return Outcome{Strategy: strategy.Name()}, err
	}
	return a.scrapeWith(ctx, s, strategy, target)
}

func (a *App) scrapeWith(ctx context.Context, s *scraper.Scraper, strategy scraper.Strategy, target string) (Outcome, error) {
	out := Outcome{Strategy: strategy.Name(), URL: target, Absent: true, Result: scraper.Absent()}
	result, err := s.Scrape(ctx, strategy)
	if err != nil {
		return out, err
	}
	out.Result = result
	out.Absent = result.IsAbsent()

	rec, err := a.recorder.Record(ctx, strategy.Name(), target, result)
	if err != nil {
		a.logger.Warn("failed to record scrape result", zap.String("strategy", strategy.Name()), zap.Error(err))
		return out, nil
	}
	out.RecordID = rec.ID
	return out, nil
}

// BatchOutcome is one entry of a batch scrape.
type BatchOutcome struct {
	Outcome
	Err error `json:"-"`
}

// ScrapeBatch scrapes each named strategy concurrently. Unknown names and
// failures are reported per entry, in the order the names were given.
func (a *App) ScrapeBatch(ctx context.Context, names []string, originOverride string) []BatchOutcome {
	out := make([]BatchOutcome, len(names))
	scrapers := make(map[string]*scraper.Scraper, len(names))
	var (
		jobs    []batch.Job
		indexes []int
	)
	for i, name := range names {
		out[i].Strategy = name
		out[i].Absent = true
		strategy, ok := strategies.Lookup(name)
		if !ok {
			out[i].Err = fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
			continue
		}
		origin, err := a.OriginFor(name, originOverride)
		if err != nil {
			out[i].Err = err
			continue
		}
		s, err := a.scraperFor(ctx, origin)
		if err != nil {
			out[i].Err = err
			continue
		}
		target, err := s.URLFor(strategy)
		if err != nil {
			out[i].Err = err
			continue
		}
		out[i].Strategy = strategy.Name()
		out[i].URL = target
		scrapers[strategy.Name()] = s
		jobs = append(jobs, batch.Job{Strategy: strategy.Name(), URL: target})
		indexes = append(indexes, i)
	}

	outcomes := a.runner.Run(ctx, jobs, func(ctx context.Context, job batch.Job) (scraper.Result, error) {
		strategy, _ := strategies.Lookup(job.Strategy)
		o, err := a.scrapeWith(ctx, scrapers[job.Strategy], strategy, job.URL)
		return o.Result, err
	})
	for j, o := range outcomes {
		i := indexes[j]
		out[i].Result = o.Result
		out[i].Absent = o.Result.IsAbsent()
		out[i].Err = o.Err
	}
	return out
}

// scraperFor returns the Scraper for origin, loading its robots.txt on first use.
func (a *App) scraperFor(ctx context.Context, origin string) (*scraper.Scraper, error) {
	normalized, err := scraper.NormalizeOrigin(origin)
	if err != nil {
		return nil, err
	}
	v, _ := a.scrapers.LoadOrStore(normalized, &originScraper{})
	entry := v.(*originScraper)
	entry.once.Do(func() {
		entry.scraper, entry.err = a.buildScraper(ctx, normalized)
	})
	return entry.scraper, entry.err
}

// buildScraper runs once per origin and its gate is reused by every later
// caller, so robots.txt is loaded under its own deadline rather than the
// first caller's cancellation.
func (a *App) buildScraper(ctx context.Context, origin string) (*scraper.Scraper, error) {
	logger := a.logger.With(zap.String("origin", origin))
	timeout := a.cfg.Fetch.RequestTimeout()
	if timeout <= 0 {
		timeout = defaultRobotsLoadTimeout
	}
	loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	robots := scraper.NewRobotsPolicy(loadCtx, origin, scraper.RobotsConfig{
		UserAgent:     a.cfg.Fetch.UserAgent,
		Respect:       a.cfg.Robots.Respect,
		FallbackAllow: a.cfg.Robots.FallbackAllow,
		Timeout:       a.cfg.Fetch.RequestTimeout(),
		Sleeper:       a.sleeper,
	}, a.robotsClient, logger.Named("robots"))

	fetcher, err := scraper.NewRetryingFetcher(a.transport,
		scraper.WithCache(a.cache),
		scraper.WithRobots(robots),
		scraper.WithRetryPolicy(scraper.NewExponentialRetryPolicy(
			a.cfg.Fetch.MaxRetries,
			a.cfg.Fetch.InitialDelay(),
			a.cfg.Fetch.BackoffFactor,
		)),
		scraper.WithSleeper(a.sleeper),
		scraper.WithLogger(logger.Named("fetcher")),
	)
	if err != nil {
		return nil, err
	}
	return scraper.New(scraper.Config{
		Origin:        origin,
		ScrapeTimeout: a.cfg.Fetch.ScrapeTimeout(),
	}, fetcher, logger)
}

// Close releases every service in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
	_ = a.logger.Sync()
}
