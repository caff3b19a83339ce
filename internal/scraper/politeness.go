package scraper

import (
	"context"
	"fmt"
	"time"
)

// timerSleeper waits on a timer and aborts early when ctx is done.
type timerSleeper struct{}

// TimerSleeper returns the Sleeper used in production.
func TimerSleeper() Sleeper { return timerSleeper{} }

func (timerSleeper) Sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("sleep canceled: %w", err)
		}
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("sleep canceled: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}
