package scraper

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"
)

// defaultRobotsRetry waits 250ms then 500ms between the three robots.txt
// attempts.
func defaultRobotsRetry() RetryPolicy {
	return NewExponentialRetryPolicy(2, 250*time.Millisecond, 2).WithJitter(nil)
}

// robotsTransport re-dials robots.txt after timeouts, pacing attempts with the
// same RetryPolicy and Sleeper contract the page fetcher uses. Anything other
// than a timeout is handed back at once so the gate can apply its fallback.
type robotsTransport struct {
	next    http.RoundTripper
	retry   RetryPolicy
	sleeper Sleeper
}

func newRobotsClient(cfg RobotsConfig) *http.Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultRobotsTimeout
	}
	rt := &robotsTransport{next: http.DefaultTransport, retry: cfg.Retry, sleeper: cfg.Sleeper}
	if rt.retry == nil {
		rt.retry = defaultRobotsRetry()
	}
	if rt.sleeper == nil {
		rt.sleeper = TimerSleeper()
	}
	return &http.Client{Timeout: timeout, Transport: rt}
}

func (t *robotsTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("robots transport: nil request")
	}
	ctx := req.Context()
	for attempt := 0; ; attempt++ {
		resp, err := t.next.RoundTrip(req.Clone(ctx))
		if err == nil {
			return resp, nil
		}
		if !isTimeout(err) {
			return nil, fmt.Errorf("robots roundtrip: %w", err)
		}
		if !t.retry.ShouldRetry(err, attempt) {
			return nil, fmt.Errorf("robots roundtrip after %d attempts: %w", attempt+1, err)
		}
		if serr := t.sleeper.Sleep(ctx, t.retry.Backoff(attempt)); serr != nil {
			return nil, fmt.Errorf("robots roundtrip: %w", serr)
		}
	}
}

// isTimeout matches dial, handshake and deadline timeouts.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return strings.Contains(err.Error(), "handshake timeout")
}
