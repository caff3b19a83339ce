package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/temoto/robotstxt"
	"go.uber.org/zap"

	"github.com/JakeFAU/polite-scraper/internal/metrics"
)

const (
	defaultRobotsTimeout = 10 * time.Second
	maxRobotsBytes       = 1 << 20
)

// RobotsConfig controls how robots.txt is loaded and enforced.
type RobotsConfig struct {
	UserAgent string
	Respect   bool
	// FallbackAllow is applied when robots.txt cannot be loaded.
	FallbackAllow bool
	Timeout       time.Duration
	// Retry and Sleeper pace re-dials after timeouts. Nil values use a short
	// fixed schedule on a real timer.
	Retry   RetryPolicy
	Sleeper Sleeper
}

// RobotsGate holds the robots.txt rules of one origin, loaded once at
// construction. Load failures fall back to the configured default; evaluation
// failures always deny.
type RobotsGate struct {
	origin        string
	userAgent     string
	data          *robotstxt.RobotsData
	fallbackAllow bool
	logger        *zap.Logger
}

// NewRobotsPolicy returns an allow-all policy when robots are not respected,
// otherwise a RobotsGate for origin.
func NewRobotsPolicy(
	ctx context.Context,
	origin string,
	cfg RobotsConfig,
	client *http.Client,
	logger *zap.Logger,
) RobotsPolicy {
	if !cfg.Respect {
		return AllowAll()
	}
	return NewRobotsGate(ctx, origin, cfg, client, logger)
}

// NewRobotsGate fetches {origin}/robots.txt and builds the gate. It never
// fails: an unreachable or unparseable robots.txt is logged and the fallback
// applies.
func NewRobotsGate(
	ctx context.Context,
	origin string,
	cfg RobotsConfig,
	client *http.Client,
	logger *zap.Logger,
) *RobotsGate {
	if logger == nil {
		logger = zap.NewNop()
	}
	if client == nil {
		client = newRobotsClient(cfg)
	}
	g := &RobotsGate{
		origin:        origin,
		userAgent:     cfg.UserAgent,
		fallbackAllow: cfg.FallbackAllow,
		logger:        logger,
	}
	robotsURL, err := ResolveURL(origin, "/robots.txt")
	if err == nil {
		g.data, err = loadRobots(ctx, client, robotsURL, cfg.UserAgent)
	}
	if err != nil {
		metrics.ObserveRobotsFallback(origin)
		logger.Warn("robots.txt unavailable; applying fallback policy",
			zap.String("origin", origin),
			zap.Bool("fallback_allow", cfg.FallbackAllow),
			zap.Error(err),
		)
		return g
	}
	logger.Info("robots.txt loaded", zap.String("origin", origin))
	return g
}

// Loaded reports whether robots.txt rules were retrieved.
func (g *RobotsGate) Loaded() bool {
	return g != nil && g.data != nil
}

// Allowed implements RobotsPolicy.
func (g *RobotsGate) Allowed(_ context.Context, rawURL string) (allowed bool) {
	defer func() {
		if rec := recover(); rec != nil {
			g.logger.Error("robots evaluation panicked; denying", zap.String("url", rawURL), zap.Any("panic", rec))
			allowed = false
		}
	}()
	parsed, err := url.Parse(rawURL)
	if err != nil {
		g.logger.Warn("robots evaluation failed; denying", zap.String("url", rawURL), zap.Error(err))
		return false
	}
	if !parsed.IsAbs() || parsed.Host == "" {
		g.logger.Warn("robots evaluation needs an absolute URL; denying", zap.String("url", rawURL))
		return false
	}
	if g.data == nil {
		return g.fallbackAllow
	}
	group := g.data.FindGroup(g.userAgent)
	if group == nil {
		return true
	}
	return group.Test(requestPath(parsed))
}

func loadRobots(ctx context.Context, client *http.Client, robotsURL, userAgent string) (*robotstxt.RobotsData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("new robots request: %w", err)
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch robots: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBytes))
	if err != nil {
		return nil, fmt.Errorf("read robots body: %w", err)
	}
	// A 5xx says nothing about the rules, so it counts as a load failure.
	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, &StatusError{URL: robotsURL, StatusCode: resp.StatusCode}
	}
	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		return nil, fmt.Errorf("parse robots: %w", err)
	}
	return data, nil
}

type allowAllPolicy struct{}

// AllowAll returns a policy that permits every URL.
func AllowAll() RobotsPolicy { return allowAllPolicy{} }

func (allowAllPolicy) Allowed(context.Context, string) bool { return true }

type denyAllPolicy struct{}

// DenyAll returns a policy that refuses every URL.
func DenyAll() RobotsPolicy { return denyAllPolicy{} }

func (denyAllPolicy) Allowed(context.Context, string) bool { return false }
