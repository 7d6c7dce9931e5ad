package repository

import (
	"context"
	"strings"
	"time"

	"sentiment-pattern-bot/internal/domain"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type SentimentRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewSentimentRepository(pool PgxPool, tracer trace.Tracer) *SentimentRepository {
	return &SentimentRepository{pool: pool, tracer: tracer}
}

// InsertRecords upserts records keyed by (source, content_id, symbol), so
// rescoring the same post replaces its earlier score.
func (r *SentimentRepository) InsertRecords(ctx context.Context, records []domain.SentimentRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	ctx, span := r.tracer.Start(ctx, "sentiment-repo.insert-records")
	defer span.End()
	span.SetAttributes(attribute.Int("records", len(records)))

	batch := &pgx.Batch{}
	for _, rec := range records {
		batch.Queue(
			`INSERT INTO sentiment_records (symbol, ts, score, label, source, content_id, model)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 ON CONFLICT (source, content_id, symbol) DO UPDATE SET
			     ts = EXCLUDED.ts,
			     score = EXCLUDED.score,
			     label = EXCLUDED.label,
			     model = EXCLUDED.model`,
			strings.ToUpper(rec.Symbol), utc(rec.Timestamp), rec.Score, string(rec.Label),
			string(rec.Source), rec.ContentID, rec.Model,
		)
	}

	affected, err := execBatch(ctx, r.pool, batch)
	if err != nil {
		span.RecordError(err)
		return int(affected), err
	}
	return int(affected), nil
}

// ListBySymbol returns a symbol's records at or after since, oldest first.
func (r *SentimentRepository) ListBySymbol(ctx context.Context, symbol string, since time.Time) ([]domain.SentimentRecord, error) {
	ctx, span := r.tracer.Start(ctx, "sentiment-repo.list-by-symbol")
	defer span.End()

	rows, err := r.pool.Query(ctx,
		`SELECT id, symbol, ts, score, label, source, content_id, model
		 FROM sentiment_records
		 WHERE symbol = $1 AND ts >= $2
		 ORDER BY ts ASC, id ASC`,
		strings.ToUpper(symbol), utc(since),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.SentimentRecord
	for rows.Next() {
		var rec domain.SentimentRecord
		var ts time.Time
		if err := rows.Scan(&rec.ID, &rec.Symbol, &ts, &rec.Score, &rec.Label, &rec.Source, &rec.ContentID, &rec.Model); err != nil {
			return nil, err
		}
		rec.Timestamp = ts.UTC()
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ActiveSymbols lists symbols with at least minMentions records since the
// cutoff, busiest first.
func (r *SentimentRepository) ActiveSymbols(ctx context.Context, since time.Time, minMentions int) ([]string, error) {
	ctx, span := r.tracer.Start(ctx, "sentiment-repo.active-symbols")
	defer span.End()

	if minMentions < 1 {
		minMentions = 1
	}
	rows, err := r.pool.Query(ctx,
		`SELECT symbol
		 FROM sentiment_records
		 WHERE ts >= $1
		 GROUP BY symbol
		 HAVING COUNT(*) >= $2
		 ORDER BY COUNT(*) DESC, symbol ASC`,
		utc(since), minMentions,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		symbols = append(symbols, s)
	}
	return symbols, rows.Err()
}
