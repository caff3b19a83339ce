package scraper

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExponentialRetryPolicyShouldRetry(t *testing.T) {
	policy := NewExponentialRetryPolicy(3, time.Second, 2)
	failure := errors.New("connection reset")

	assert.False(t, policy.ShouldRetry(nil, 0))
	for attempt := 0; attempt < 3; attempt++ {
		assert.True(t, policy.ShouldRetry(failure, attempt), "attempt %d", attempt)
	}
	assert.False(t, policy.ShouldRetry(failure, 3), "maxRetries=3 allows four attempts in total")
	assert.False(t, policy.ShouldRetry(fmt.Errorf("wrapped: %w", context.Canceled), 0))
	assert.True(t, policy.ShouldRetry(context.DeadlineExceeded, 0), "request timeouts are transient")
	assert.True(t, policy.ShouldRetry(&StatusError{URL: "u", StatusCode: 503}, 0))
}

func TestExponentialRetryPolicyBackoff(t *testing.T) {
	policy := NewExponentialRetryPolicy(5, time.Second, 2).WithJitter(nil)

	assert.Equal(t, time.Second, policy.Backoff(0))
	assert.Equal(t, 2*time.Second, policy.Backoff(1))
	assert.Equal(t, 4*time.Second, policy.Backoff(2))
	assert.Equal(t, 8*time.Second, policy.Backoff(3))
}

func TestExponentialRetryPolicyJitterBounds(t *testing.T) {
	policy := NewExponentialRetryPolicy(1, 500*time.Millisecond, 3)
	for i := 0; i < 50; i++ {
		delay := policy.Backoff(1)
		require.GreaterOrEqual(t, delay, 1500*time.Millisecond)
		require.Less(t, delay, 2500*time.Millisecond)
	}
}

func TestExponentialRetryPolicyClampsInputs(t *testing.T) {
	policy := NewExponentialRetryPolicy(-1, -time.Second, -2).WithJitter(nil)
	assert.Equal(t, 0, policy.MaxRetries())
	assert.Equal(t, time.Duration(0), policy.Backoff(3))
	assert.False(t, policy.ShouldRetry(errors.New("x"), 0))

	flat := NewExponentialRetryPolicy(2, time.Second, 0).WithJitter(nil)
	assert.Equal(t, time.Second, flat.Backoff(0), "factor^0 is one")
	assert.Equal(t, time.Duration(0), flat.Backoff(1))
}

func TestTimerSleeperHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := TimerSleeper().Sleep(ctx, 5*time.Second)
	require.ErrorIs(t, err, context.Canceled)
	require.Less(t, time.Since(start), time.Second, "sleep should exit immediately when context is done")
}

func TestTimerSleeperWaits(t *testing.T) {
	start := time.Now()
	require.NoError(t, TimerSleeper().Sleep(context.Background(), 20*time.Millisecond))
	require.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}
