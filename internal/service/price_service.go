package service

import (
	"context"
	"fmt"
	"time"

	"sentiment-pattern-bot/internal/domain"
	"sentiment-pattern-bot/pkg/logger"

	"cloud.google.com/go/civil"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type PriceHistoryProvider interface {
	FetchDailyHistory(ctx context.Context, symbol, rng string) ([]domain.PricePoint, error)
}

type PriceStore interface {
	UpsertPoints(ctx context.Context, points []domain.PricePoint) error
	ListPoints(ctx context.Context, symbol string, from, to civil.Date) ([]domain.PricePoint, error)
	LatestDate(ctx context.Context, symbol string) (civil.Date, bool, error)
}

// incrementalRanges are tried shortest first once a symbol has stored bars.
var incrementalRanges = []struct {
	rng  string
	days int
}{
	{"5d", 5},
	{"1mo", 30},
	{"3mo", 90},
	{"6mo", 180},
	{"1y", 365},
	{"2y", 730},
}

// PriceService keeps daily price history in Postgres up to date.
type PriceService struct {
	tracer       trace.Tracer
	provider     PriceHistoryProvider
	repo         PriceStore
	historyRange string
	invalidator  CacheInvalidator
	now          func() time.Time
}

func NewPriceService(tracer trace.Tracer, provider PriceHistoryProvider, repo PriceStore, historyRange string) *PriceService {
	if historyRange == "" {
		historyRange = "3mo"
	}
	return &PriceService{
		tracer:       tracer,
		provider:     provider,
		repo:         repo,
		historyRange: historyRange,
		now:          time.Now,
	}
}

// SetCacheInvalidator drops cached analyses for symbols whose bars change.
func (s *PriceService) SetCacheInvalidator(inv CacheInvalidator) {
	s.invalidator = inv
}

// RefreshHistory fetches daily bars for symbol and upserts them. The first
// fetch uses the configured range; later ones only cover the gap since the
// newest stored bar. It returns the number of bars stored.
func (s *PriceService) RefreshHistory(ctx context.Context, symbol string) (int, error) {
	ctx, span := s.tracer.Start(ctx, "price-service.refresh-history")
	defer span.End()

	symbol, err := NormalizeSymbol(symbol)
	if err != nil {
		return 0, err
	}

	rng := s.historyRange
	latest, ok, err := s.repo.LatestDate(ctx, symbol)
	if err != nil {
		logger.Get().Warnw("latest price date lookup failed, fetching full range", "symbol", symbol, "error", err)
	} else if ok {
		rng = s.rangeSince(latest)
	}
	span.SetAttributes(attribute.String("symbol", symbol), attribute.String("range", rng))

	points, err := s.provider.FetchDailyHistory(ctx, symbol, rng)
	if err != nil {
		return 0, fmt.Errorf("fetch history for %s: %w", symbol, err)
	}
	if len(points) == 0 {
		return 0, nil
	}
	for i := range points {
		points[i].Symbol = symbol
	}

	if err := s.repo.UpsertPoints(ctx, points); err != nil {
		return 0, fmt.Errorf("upsert history for %s: %w", symbol, err)
	}
	invalidateAnalyses(ctx, s.invalidator, []string{symbol})
	return len(points), nil
}

// rangeSince picks the shortest range covering the days since latest,
// never wider than the configured range.
func (s *PriceService) rangeSince(latest civil.Date) string {
	gap := domain.DateOf(s.now()).DaysSince(latest) + 1
	limit := rangeDays(s.historyRange)
	for _, r := range incrementalRanges {
		if r.days >= limit {
			break
		}
		if r.days >= gap {
			return r.rng
		}
	}
	return s.historyRange
}

func rangeDays(rng string) int {
	for _, r := range incrementalRanges {
		if r.rng == rng {
			return r.days
		}
	}
	return 0
}

// RefreshAll refreshes every symbol, collecting per-symbol failures instead
// of stopping at the first one.
func (s *PriceService) RefreshAll(ctx context.Context, symbols []string) (int, []string) {
	ctx, span := s.tracer.Start(ctx, "price-service.refresh-all")
	defer span.End()

	var stored int
	var errs []string
	for _, symbol := range symbols {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err().Error())
			break
		}
		n, err := s.RefreshHistory(ctx, symbol)
		if err != nil {
			errs = append(errs, err.Error())
			continue
		}
		stored += n
	}
	logger.Get().Infow("refreshed price history", "symbols", len(symbols), "bars", stored, "errors", len(errs))
	return stored, errs
}

// History returns stored bars for symbol between from and to inclusive.
func (s *PriceService) History(ctx context.Context, symbol string, from, to civil.Date) ([]domain.PricePoint, error) {
	ctx, span := s.tracer.Start(ctx, "price-service.history")
	defer span.End()

	symbol, err := NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	if to.Before(from) {
		return nil, nil
	}
	return s.repo.ListPoints(ctx, symbol, from, to)
}
