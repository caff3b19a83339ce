package scraper

import (
	"context"
	"time"
)

// Fetcher issues a single HTTP GET. Non-2xx responses are returned, not
// treated as errors; errors are reserved for transport failures.
type Fetcher interface {
	Fetch(ctx context.Context, request FetchRequest) (FetchResponse, error)
}

// RobotsPolicy answers whether a URL may be fetched.
type RobotsPolicy interface {
	Allowed(ctx context.Context, rawURL string) bool
}

// Cache maps absolute URLs to previously fetched bodies.
type Cache interface {
	Get(ctx context.Context, rawURL string) (string, bool)
	Put(ctx context.Context, rawURL string, body string) error
}

// RetryPolicy decides whether and how long to wait before another attempt.
type RetryPolicy interface {
	ShouldRetry(err error, attempt int) bool
	Backoff(attempt int) time.Duration
}

// Sleeper blocks for a delay unless the context finishes first.
type Sleeper interface {
	Sleep(ctx context.Context, delay time.Duration) error
}

// PageFetcher returns the body for an absolute URL.
type PageFetcher interface {
	Fetch(ctx context.Context, rawURL string) (string, error)
}
