package job

import (
	"context"
	"time"

	"sentiment-pattern-bot/internal/domain"
	"sentiment-pattern-bot/pkg/logger"

	"go.opentelemetry.io/otel/trace"
)

type IngestRunner interface {
	RunCycle(ctx context.Context) (domain.IngestRunResult, error)
}

// IngestJob pulls social content on a fixed interval.
type IngestJob struct {
	tracer       trace.Tracer
	runner       IngestRunner
	pollInterval time.Duration
}

func NewIngestJob(tracer trace.Tracer, runner IngestRunner, pollInterval time.Duration) *IngestJob {
	if pollInterval <= 0 {
		pollInterval = 15 * time.Minute
	}
	return &IngestJob{tracer: tracer, runner: runner, pollInterval: pollInterval}
}

// Start blocks until ctx is cancelled.
func (j *IngestJob) Start(ctx context.Context) {
	if j.runner == nil {
		logger.Get().Info("ingest job disabled: no runner")
		<-ctx.Done()
		return
	}
	pollLoop(ctx, "ingest", 0, j.pollInterval, j.runOnce)
}

func (j *IngestJob) runOnce(ctx context.Context) error {
	ctx, span := j.tracer.Start(ctx, "ingest-job.run-once")
	defer span.End()

	result, err := j.runner.RunCycle(ctx)
	if err != nil {
		return err
	}
	for _, e := range result.Errors {
		logger.Get().Warnw("ingest warning", "error", e)
	}
	return nil
}
