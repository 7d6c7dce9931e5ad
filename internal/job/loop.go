package job

import (
	"context"
	"time"

	"sentiment-pattern-bot/internal/metrics"
	"sentiment-pattern-bot/pkg/logger"
)

// pollLoop runs fn after delay and then on every tick until ctx is done.
func pollLoop(ctx context.Context, name string, delay, interval time.Duration, fn func(context.Context) error) {
	if delay > 0 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}

	runTimed(ctx, name, fn)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runTimed(ctx, name, fn)
		}
	}
}

func runTimed(ctx context.Context, name string, fn func(context.Context) error) {
	start := time.Now()
	err := fn(ctx)
	metrics.RecordJobExecution(name, time.Since(start), err)
	if err != nil && ctx.Err() == nil {
		logger.Get().Errorw("job run failed", "job", name, "error", err)
	}
}
