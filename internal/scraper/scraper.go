package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/JakeFAU/polite-scraper/internal/metrics"
)

// Config configures a Scraper.
type Config struct {
	// Origin is the scheme and host every target path is resolved against.
	Origin string
	// ScrapeTimeout bounds a whole Scrape call, backoff included. Zero
	// disables the bound.
	ScrapeTimeout time.Duration
}

// Scraper resolves a strategy's target, fetches it and hands the parsed
// document to the strategy.
type Scraper struct {
	origin  string
	pages   PageFetcher
	timeout time.Duration
	logger  *zap.Logger
}

// New validates cfg and returns a Scraper fetching through pages.
func New(cfg Config, pages PageFetcher, logger *zap.Logger) (*Scraper, error) {
	origin, err := NormalizeOrigin(cfg.Origin)
	if err != nil {
		return nil, err
	}
	if pages == nil {
		return nil, errors.New("page fetcher is required")
	}
	if cfg.ScrapeTimeout < 0 {
		return nil, fmt.Errorf("scrape timeout must be non-negative, got %s", cfg.ScrapeTimeout)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scraper{
		origin:  origin,
		pages:   pages,
		timeout: cfg.ScrapeTimeout,
		logger:  logger.With(zap.String("origin", origin)),
	}, nil
}

// Origin returns the normalized origin.
func (s *Scraper) Origin() string {
	return s.origin
}

// URLFor returns the absolute URL the strategy targets.
func (s *Scraper) URLFor(strategy Strategy) (string, error) {
	if strategy == nil {
		return "", fmt.Errorf("%w: nil strategy", ErrInvalidTarget)
	}
	return ResolveURL(s.origin, strategy.TargetPath())
}

// Scrape runs one fetch-and-parse cycle. An Absent result with a nil error
// means the strategy found nothing to extract. Errors wrap ErrInvalidTarget,
// ErrPolicyDenied, ErrNetworkExhausted, ErrStrategyFailed or a context error.
func (s *Scraper) Scrape(ctx context.Context, strategy Strategy) (Result, error) {
	rawURL, err := s.URLFor(strategy)
	if err != nil {
		s.logger.Error("invalid scrape target", zap.Error(err))
		return Absent(), err
	}
	name := strategy.Name()
	logger := s.logger.With(zap.String("strategy", name), zap.String("url", rawURL))

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	body, err := s.pages.Fetch(ctx, rawURL)
	if err != nil {
		metrics.ObserveScrape(name, scrapeStatus(err))
		logger.Error("scrape fetch failed", zap.Error(err))
		return Absent(), err
	}

	result, err := s.parse(name, body, strategy)
	if err != nil {
		metrics.ObserveScrape(name, "strategy_failed")
		logger.Error("strategy failed", zap.Error(err))
		return Absent(), err
	}
	if result.IsAbsent() {
		metrics.ObserveScrape(name, "absent")
		logger.Warn("strategy found no data")
		return result, nil
	}
	metrics.ObserveScrape(name, "ok")
	logger.Info("scrape complete", zap.Stringer("kind", result.Kind()), zap.Int("records", len(result.Records())))
	return result, nil
}

func (s *Scraper) parse(name, body string, strategy Strategy) (result Result, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("strategy panicked",
				zap.String("strategy", name),
				zap.Any("panic", rec),
				zap.Stack("stack"),
			)
			result = Absent()
			err = fmt.Errorf("%w: %s panicked: %v", ErrStrategyFailed, name, rec)
		}
	}()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return Absent(), fmt.Errorf("%w: %s: parse markup: %w", ErrStrategyFailed, name, err)
	}
	result, err = strategy.Parse(doc)
	if err != nil {
		return Absent(), fmt.Errorf("%w: %s: %w", ErrStrategyFailed, name, err)
	}
	return result, nil
}

func scrapeStatus(err error) string {
	switch {
	case errors.Is(err, ErrPolicyDenied):
		return "denied"
	case errors.Is(err, ErrNetworkExhausted):
		return "exhausted"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}
