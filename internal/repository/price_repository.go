package repository

import (
	"context"
	"strings"
	"time"

	"sentiment-pattern-bot/internal/domain"

	"cloud.google.com/go/civil"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/trace"
)

type PriceRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewPriceRepository(pool PgxPool, tracer trace.Tracer) *PriceRepository {
	return &PriceRepository{pool: pool, tracer: tracer}
}

func (r *PriceRepository) UpsertPoints(ctx context.Context, points []domain.PricePoint) error {
	if len(points) == 0 {
		return nil
	}

	ctx, span := r.tracer.Start(ctx, "price-repo.upsert-points")
	defer span.End()

	batch := &pgx.Batch{}
	for _, p := range points {
		batch.Queue(
			`INSERT INTO price_points (symbol, trade_date, open, high, low, close, volume)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 ON CONFLICT (symbol, trade_date) DO UPDATE SET
			     open = EXCLUDED.open,
			     high = EXCLUDED.high,
			     low = EXCLUDED.low,
			     close = EXCLUDED.close,
			     volume = EXCLUDED.volume,
			     updated_at = NOW()`,
			strings.ToUpper(p.Symbol), p.Date.In(time.UTC), p.Open, p.High, p.Low, p.Close, p.Volume,
		)
	}

	_, err := execBatch(ctx, r.pool, batch)
	return err
}

// ListPoints returns bars with from <= date <= to in ascending date order.
func (r *PriceRepository) ListPoints(ctx context.Context, symbol string, from, to civil.Date) ([]domain.PricePoint, error) {
	ctx, span := r.tracer.Start(ctx, "price-repo.list-points")
	defer span.End()

	rows, err := r.pool.Query(ctx,
		`SELECT symbol, trade_date, open, high, low, close, volume
		 FROM price_points
		 WHERE symbol = $1 AND trade_date >= $2 AND trade_date <= $3
		 ORDER BY trade_date ASC`,
		strings.ToUpper(symbol), from.In(time.UTC), to.In(time.UTC),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []domain.PricePoint
	for rows.Next() {
		var p domain.PricePoint
		var day time.Time
		if err := rows.Scan(&p.Symbol, &day, &p.Open, &p.High, &p.Low, &p.Close, &p.Volume); err != nil {
			return nil, err
		}
		p.Date = civil.DateOf(day.UTC())
		points = append(points, p)
	}
	return points, rows.Err()
}

// LatestDate reports the newest stored bar date for symbol.
func (r *PriceRepository) LatestDate(ctx context.Context, symbol string) (civil.Date, bool, error) {
	ctx, span := r.tracer.Start(ctx, "price-repo.latest-date")
	defer span.End()

	var day *time.Time
	err := r.pool.QueryRow(ctx,
		`SELECT MAX(trade_date) FROM price_points WHERE symbol = $1`,
		strings.ToUpper(symbol),
	).Scan(&day)
	if err != nil {
		return civil.Date{}, false, err
	}
	if day == nil {
		return civil.Date{}, false, nil
	}
	return civil.DateOf(day.UTC()), true, nil
}
