package job

import (
	"context"
	"fmt"
	"time"

	"sentiment-pattern-bot/internal/domain"
	"sentiment-pattern-bot/pkg/logger"

	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel/trace"
)

const DefaultPatternSchedule = "0 */6 * * *"

type AnalysisRunner interface {
	AnalyzeAll(ctx context.Context) (domain.AnalysisRunResult, error)
}

// PatternJob runs the full analysis on a cron schedule evaluated in UTC.
type PatternJob struct {
	tracer   trace.Tracer
	runner   AnalysisRunner
	schedule string
	cron     *cron.Cron
	now      func() time.Time
}

func NewPatternJob(tracer trace.Tracer, runner AnalysisRunner, schedule string) (*PatternJob, error) {
	if schedule == "" {
		schedule = DefaultPatternSchedule
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid pattern schedule %q: %w", schedule, err)
	}
	return &PatternJob{
		tracer:   tracer,
		runner:   runner,
		schedule: schedule,
		cron:     cron.New(cron.WithLocation(time.UTC)),
		now:      time.Now,
	}, nil
}

// Start runs one analysis immediately, then follows the schedule until ctx
// is cancelled. Overlapping runs are skipped.
func (j *PatternJob) Start(ctx context.Context) {
	if j.runner == nil {
		logger.Get().Info("pattern job disabled: no runner")
		<-ctx.Done()
		return
	}

	runTimed(ctx, "pattern-analysis", j.RunOnce)

	job := cron.NewChain(cron.SkipIfStillRunning(cron.DiscardLogger)).Then(cron.FuncJob(func() {
		runTimed(ctx, "pattern-analysis", j.RunOnce)
		logger.Get().Infow("pattern job next run", "next_run", j.nextRun())
	}))
	if _, err := j.cron.AddJob(j.schedule, job); err != nil {
		logger.Get().Errorw("pattern job schedule rejected", "schedule", j.schedule, "error", err)
		<-ctx.Done()
		return
	}

	j.cron.Start()
	logger.Get().Infow("pattern job scheduled", "schedule", j.schedule, "next_run", j.nextRun())
	<-ctx.Done()
	<-j.cron.Stop().Done()
}

// Next reports when the schedule fires after t.
func (j *PatternJob) Next(t time.Time) time.Time {
	sched, err := cron.ParseStandard(j.schedule)
	if err != nil {
		return time.Time{}
	}
	return sched.Next(t.UTC())
}

func (j *PatternJob) nextRun() string {
	return j.Next(j.now()).Format(time.RFC3339)
}

func (j *PatternJob) RunOnce(ctx context.Context) error {
	ctx, span := j.tracer.Start(ctx, "pattern-job.run-once")
	defer span.End()

	result, err := j.runner.AnalyzeAll(ctx)
	if err != nil {
		return err
	}
	for _, e := range result.Errors {
		logger.Get().Warnw("analysis warning", "run_id", result.RunID, "error", e)
	}
	return nil
}
