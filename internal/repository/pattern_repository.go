package repository

import (
	"context"
	"strings"
	"time"

	"sentiment-pattern-bot/internal/domain"
	"sentiment-pattern-bot/internal/pattern"

	"cloud.google.com/go/civil"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// PatternRecord is a persisted pattern together with the run that produced it.
type PatternRecord struct {
	domain.Pattern
	RunID      string    `json:"run_id"`
	WindowDays int       `json:"window_days"`
	AnalyzedAt time.Time `json:"analysis_date"`
}

type PatternRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewPatternRepository(pool PgxPool, tracer trace.Tracer) *PatternRepository {
	return &PatternRepository{pool: pool, tracer: tracer}
}

// SaveAnalysis stores an analysis and its signals in one batch. Re-running the
// same windows overwrites the earlier rows.
func (r *PatternRepository) SaveAnalysis(ctx context.Context, runID string, analysis *pattern.Analysis, signals []domain.Signal) error {
	if analysis == nil {
		return nil
	}
	patterns := analysis.Patterns()
	if len(patterns) == 0 && len(signals) == 0 {
		return nil
	}

	ctx, span := r.tracer.Start(ctx, "pattern-repo.save-analysis")
	defer span.End()
	span.SetAttributes(
		attribute.String("symbol", analysis.Symbol),
		attribute.Int("patterns", len(patterns)),
		attribute.Int("signals", len(signals)),
	)

	analyzedAt := analysis.AnalyzedAt
	if analyzedAt.IsZero() {
		analyzedAt = time.Now()
	}

	batch := &pgx.Batch{}
	for _, p := range patterns {
		batch.Queue(
			`INSERT INTO patterns (run_id, symbol, window_start, window_end, window_days, avg_sentiment,
			     mention_count, price_change_percent, confidence, classification, analysis_date)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			 ON CONFLICT (symbol, window_start, window_end, window_days) DO UPDATE SET
			     run_id = EXCLUDED.run_id,
			     avg_sentiment = EXCLUDED.avg_sentiment,
			     mention_count = EXCLUDED.mention_count,
			     price_change_percent = EXCLUDED.price_change_percent,
			     confidence = EXCLUDED.confidence,
			     classification = EXCLUDED.classification,
			     analysis_date = EXCLUDED.analysis_date`,
			runID, p.Symbol, p.WindowStart.In(time.UTC), p.WindowEnd.In(time.UTC), analysis.WindowDays,
			p.AvgSentiment, p.MentionCount, p.PriceChangePercent, p.Confidence, string(p.Classification),
			utc(analyzedAt),
		)
	}
	for _, s := range signals {
		batch.Queue(
			`INSERT INTO signals (run_id, symbol, signal_type, confidence, expected_return, pattern_date, reason)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 ON CONFLICT (symbol, signal_type, pattern_date) DO UPDATE SET
			     run_id = EXCLUDED.run_id,
			     confidence = EXCLUDED.confidence,
			     expected_return = EXCLUDED.expected_return,
			     reason = EXCLUDED.reason,
			     created_at = NOW()`,
			runID, s.Symbol, string(s.SignalType), s.Confidence, s.ExpectedReturn,
			s.PatternDate.In(time.UTC), s.Reason,
		)
	}

	if _, err := execBatch(ctx, r.pool, batch); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

// LatestPatterns lists the most recently analysed patterns across symbols.
// An empty symbol means every symbol.
func (r *PatternRepository) LatestPatterns(ctx context.Context, symbol string, limit int) ([]PatternRecord, error) {
	ctx, span := r.tracer.Start(ctx, "pattern-repo.latest-patterns")
	defer span.End()

	rows, err := r.pool.Query(ctx,
		`SELECT run_id::text, symbol, window_start, window_end, window_days, avg_sentiment,
		     mention_count, price_change_percent, confidence, classification, analysis_date
		 FROM patterns
		 WHERE ($1 = '' OR symbol = $1)
		 ORDER BY analysis_date DESC, symbol ASC, window_start ASC
		 LIMIT $2`,
		strings.ToUpper(symbol), clampLimit(limit, defaultListLimit, maxListLimit),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PatternRecord
	for rows.Next() {
		var rec PatternRecord
		var start, end, analyzedAt time.Time
		if err := rows.Scan(
			&rec.RunID, &rec.Symbol, &start, &end, &rec.WindowDays, &rec.AvgSentiment,
			&rec.MentionCount, &rec.PriceChangePercent, &rec.Confidence, &rec.Classification, &analyzedAt,
		); err != nil {
			return nil, err
		}
		rec.WindowStart = civil.DateOf(start.UTC())
		rec.WindowEnd = civil.DateOf(end.UTC())
		rec.AnalyzedAt = analyzedAt.UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

// LatestSignals lists a symbol's stored signals, newest first.
func (r *PatternRepository) LatestSignals(ctx context.Context, symbol string, limit int) ([]domain.Signal, error) {
	ctx, span := r.tracer.Start(ctx, "pattern-repo.latest-signals")
	defer span.End()

	rows, err := r.pool.Query(ctx,
		`SELECT id, symbol, signal_type, confidence, expected_return, pattern_date, reason
		 FROM signals
		 WHERE symbol = $1
		 ORDER BY created_at DESC, pattern_date DESC
		 LIMIT $2`,
		strings.ToUpper(symbol), clampLimit(limit, defaultListLimit, maxListLimit),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Signal
	for rows.Next() {
		var s domain.Signal
		var day time.Time
		if err := rows.Scan(&s.ID, &s.Symbol, &s.SignalType, &s.Confidence, &s.ExpectedReturn, &day, &s.Reason); err != nil {
			return nil, err
		}
		s.PatternDate = civil.DateOf(day.UTC())
		out = append(out, s)
	}
	return out, rows.Err()
}
