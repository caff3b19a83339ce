package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/polite-scraper/internal/metrics"
)

// RetryingFetcher resolves a URL to a body: cache first, then the robots
// policy, then the network with retries.
type RetryingFetcher struct {
	transport Fetcher
	cache     Cache
	robots    RobotsPolicy
	retry     RetryPolicy
	sleeper   Sleeper
	logger    *zap.Logger
}

// FetcherOption customizes a RetryingFetcher.
type FetcherOption func(*RetryingFetcher)

// WithCache sets the response cache. A nil cache disables caching.
func WithCache(cache Cache) FetcherOption {
	return func(f *RetryingFetcher) {
		if cache == nil {
			cache = NoCache()
		}
		f.cache = cache
	}
}

// WithRobots sets the robots policy. A nil policy allows everything.
func WithRobots(policy RobotsPolicy) FetcherOption {
	return func(f *RetryingFetcher) {
		if policy == nil {
			policy = AllowAll()
		}
		f.robots = policy
	}
}

// WithRetryPolicy overrides the default exponential policy.
func WithRetryPolicy(policy RetryPolicy) FetcherOption {
	return func(f *RetryingFetcher) {
		if policy != nil {
			f.retry = policy
		}
	}
}

// WithSleeper overrides how backoff delays are waited out.
func WithSleeper(sleeper Sleeper) FetcherOption {
	return func(f *RetryingFetcher) {
		if sleeper != nil {
			f.sleeper = sleeper
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) FetcherOption {
	return func(f *RetryingFetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// NewRetryingFetcher wires a transport with its collaborators. Without
// options it uses no cache, allows every URL and retries three times starting
// at one second with a factor of two.
func NewRetryingFetcher(transport Fetcher, opts ...FetcherOption) (*RetryingFetcher, error) {
	if transport == nil {
		return nil, errors.New("fetch transport is required")
	}
	f := &RetryingFetcher{
		transport: transport,
		cache:     NoCache(),
		robots:    AllowAll(),
		retry:     NewExponentialRetryPolicy(3, time.Second, 2),
		sleeper:   TimerSleeper(),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Fetch implements PageFetcher.
func (f *RetryingFetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	logger := f.logger.With(zap.String("url", rawURL))

	if body, ok := f.cache.Get(ctx, rawURL); ok {
		metrics.ObserveCacheLookup(true)
		logger.Debug("cache hit")
		return body, nil
	}
	metrics.ObserveCacheLookup(false)

	allowed := f.robots.Allowed(ctx, rawURL)
	metrics.ObserveRobotsDecision(rawURL, allowed)
	if !allowed {
		logger.Warn("fetch disallowed by robots.txt")
		return "", fmt.Errorf("%w: %s", ErrPolicyDenied, rawURL)
	}

	var lastErr error
	attempts := 0
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("fetch %s: %w", rawURL, err)
		}
		attempts++
		start := time.Now()
		resp, err := f.transport.Fetch(ctx, FetchRequest{URL: rawURL})
		if err == nil && !isSuccess(resp.StatusCode) {
			err = &StatusError{URL: rawURL, StatusCode: resp.StatusCode}
		}
		if err == nil {
			metrics.ObserveFetchAttempt(rawURL, "success", time.Since(start))
			body := string(resp.Body)
			if putErr := f.cache.Put(ctx, rawURL, body); putErr != nil {
				logger.Warn("cache write failed; returning fetched body", zap.Error(putErr))
			}
			logger.Info("fetched", zap.Int("attempt", attempt), zap.Int("bytes", len(resp.Body)))
			return body, nil
		}
		metrics.ObserveFetchAttempt(rawURL, "error", time.Since(start))
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("fetch %s: %w", rawURL, ctxErr)
		}
		lastErr = err
		if !f.retry.ShouldRetry(err, attempt) {
			break
		}
		delay := f.retry.Backoff(attempt)
		metrics.ObserveBackoff(rawURL, delay)
		logger.Warn("fetch attempt failed; backing off",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		if err := f.sleeper.Sleep(ctx, delay); err != nil {
			return "", fmt.Errorf("fetch %s: %w", rawURL, err)
		}
	}
	logger.Error("fetch failed", zap.Int("attempts", attempts), zap.Error(lastErr))
	return "", fmt.Errorf("%w: %s after %d attempts: %w", ErrNetworkExhausted, rawURL, attempts, lastErr)
}

func isSuccess(code int) bool {
	return code >= http.StatusOK && code < http.StatusMultipleChoices
}
