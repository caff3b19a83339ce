package scraper

import (
	"context"
	"crypto/rand"
	"errors"
	"math"
	"math/big"
	"time"
)

const maxJitter = time.Second

// ExponentialRetryPolicy allows maxRetries retries after the first attempt and
// waits initialDelay * factor^attempt plus up to one second of jitter.
type ExponentialRetryPolicy struct {
	maxRetries   int
	initialDelay time.Duration
	factor       float64
	jitter       func() time.Duration
}

// NewExponentialRetryPolicy builds a policy. Negative inputs are clamped to
// zero.
func NewExponentialRetryPolicy(maxRetries int, initialDelay time.Duration, factor float64) *ExponentialRetryPolicy {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if initialDelay < 0 {
		initialDelay = 0
	}
	if factor < 0 {
		factor = 0
	}
	return &ExponentialRetryPolicy{
		maxRetries:   maxRetries,
		initialDelay: initialDelay,
		factor:       factor,
		jitter:       uniformJitter,
	}
}

// WithJitter replaces the jitter source; tests use it for determinism.
func (p *ExponentialRetryPolicy) WithJitter(fn func() time.Duration) *ExponentialRetryPolicy {
	if fn == nil {
		fn = func() time.Duration { return 0 }
	}
	p.jitter = fn
	return p
}

// MaxRetries returns the number of retries permitted after the first attempt.
func (p *ExponentialRetryPolicy) MaxRetries() int {
	return p.maxRetries
}

// ShouldRetry reports whether attempt (zero-based) may be followed by another.
// Cancellation of the caller's context is never retried.
func (p *ExponentialRetryPolicy) ShouldRetry(err error, attempt int) bool {
	if err == nil {
		return false
	}
	if attempt >= p.maxRetries {
		return false
	}
	return !errors.Is(err, context.Canceled)
}

// Backoff returns the wait duration after the given zero-based attempt.
func (p *ExponentialRetryPolicy) Backoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	delay := float64(p.initialDelay) * math.Pow(p.factor, float64(attempt))
	if delay > float64(math.MaxInt64/2) {
		delay = float64(math.MaxInt64 / 2)
	}
	return time.Duration(delay) + p.jitter()
}

func uniformJitter() time.Duration {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(maxJitter)))
	if err != nil {
		return maxJitter / 2
	}
	return time.Duration(n.Int64())
}
