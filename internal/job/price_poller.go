package job

import (
	"context"
	"errors"
	"strings"
	"time"

	"sentiment-pattern-bot/pkg/logger"

	"go.opentelemetry.io/otel/trace"
)

type PriceDataRefresher interface {
	RefreshAll(ctx context.Context, symbols []string) (int, []string)
}

// PricePoller refreshes daily history for the watchlist in the background.
type PricePoller struct {
	tracer       trace.Tracer
	priceService PriceDataRefresher
	symbols      func() []string
	pollInterval time.Duration
	startDelay   time.Duration
}

func NewPricePoller(tracer trace.Tracer, priceService PriceDataRefresher, symbols func() []string, pollIntervalSecs int) *PricePoller {
	if pollIntervalSecs <= 0 {
		pollIntervalSecs = 3600
	}
	return &PricePoller{
		tracer:       tracer,
		priceService: priceService,
		symbols:      symbols,
		pollInterval: time.Duration(pollIntervalSecs) * time.Second,
		startDelay:   10 * time.Second,
	}
}

// Start blocks until ctx is cancelled. The first refresh is staggered behind
// the ingest job so both do not hit upstream APIs at once.
func (p *PricePoller) Start(ctx context.Context) {
	logger.Get().Infow("price poller starting", "interval", p.pollInterval.String())
	pollLoop(ctx, "price-refresh", p.startDelay, p.pollInterval, p.refresh)
	logger.Get().Info("price poller stopped")
}

func (p *PricePoller) refresh(ctx context.Context) error {
	ctx, span := p.tracer.Start(ctx, "price-poller.refresh")
	defer span.End()

	var symbols []string
	if p.symbols != nil {
		symbols = p.symbols()
	}
	if len(symbols) == 0 {
		return nil
	}

	_, errs := p.priceService.RefreshAll(ctx, symbols)
	if len(errs) == len(symbols) {
		return errors.New("all price refreshes failed: " + strings.Join(errs, "; "))
	}
	for _, e := range errs {
		logger.Get().Warnw("price refresh warning", "error", e)
	}
	return nil
}
