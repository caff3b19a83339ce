// Package batch scrapes several targets concurrently with a bounded number of
// workers and a per-host request rate.
package batch

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/polite-scraper/internal/scraper"
)

const defaultConcurrency = 4

// Job names one strategy and the absolute URL it will fetch.
type Job struct {
	Strategy string
	URL      string
}

// Func performs a single scrape.
type Func func(ctx context.Context, job Job) (scraper.Result, error)

// Waiter blocks until a request to rawURL may proceed.
type Waiter interface {
	Wait(ctx context.Context, rawURL string) error
}

// Outcome is the result of one job. Err is nil on success, including when
// Result is absent.
type Outcome struct {
	Job      Job
	Result   scraper.Result
	Err      error
	Duration time.Duration
}

// Config controls a Runner.
type Config struct {
	Concurrency int
}

// Runner fans jobs out over a bounded errgroup.
type Runner struct {
	concurrency int
	limiter     Waiter
	logger      *zap.Logger
}

// NewRunner builds a Runner. A nil limiter disables rate limiting.
func NewRunner(cfg Config, limiter Waiter, logger *zap.Logger) *Runner {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		concurrency: cfg.Concurrency,
		limiter:     limiter,
		logger:      logger.Named("batch"),
	}
}

// Run executes every job and returns outcomes in job order. A failing job
// never cancels its siblings; a cancelled ctx marks the jobs that had not
// finished with the context error.
func (r *Runner) Run(ctx context.Context, jobs []Job, fn Func) []Outcome {
	outcomes := make([]Outcome, len(jobs))
	if fn == nil {
		for i, job := range jobs {
			outcomes[i] = Outcome{Job: job, Err: errors.New("batch: nil scrape func")}
		}
		return outcomes
	}

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i, job := range jobs {
		g.Go(func() error {
			outcomes[i] = r.runOne(ctx, job, fn)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
		}
	}
	r.logger.Info("batch complete", zap.Int("jobs", len(jobs)), zap.Int("failed", failed))
	return outcomes
}

func (r *Runner) runOne(ctx context.Context, job Job, fn Func) Outcome {
	start := time.Now()
	out := Outcome{Job: job, Result: scraper.Absent()}
	if err := ctx.Err(); err != nil {
		out.Err = err
		return out
	}
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx, job.URL); err != nil {
			out.Err = err
			out.Duration = time.Since(start)
			return out
		}
	}
	out.Result, out.Err = fn(ctx, job)
	out.Duration = time.Since(start)
	if out.Err != nil {
		r.logger.Warn("batch job failed",
			zap.String("strategy", job.Strategy),
			zap.String("url", job.URL),
			zap.Error(out.Err),
		)
	}
	return out
}
