package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"sentiment-pattern-bot/internal/domain"
	"sentiment-pattern-bot/internal/metrics"
	"sentiment-pattern-bot/internal/pattern"
	"sentiment-pattern-bot/internal/repository"
	"sentiment-pattern-bot/internal/ta"
	"sentiment-pattern-bot/pkg/logger"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

type SentimentReader interface {
	ListBySymbol(ctx context.Context, symbol string, since time.Time) ([]domain.SentimentRecord, error)
	ActiveSymbols(ctx context.Context, since time.Time, minMentions int) ([]string, error)
}

type PriceReader interface {
	History(ctx context.Context, symbol string, from, to civil.Date) ([]domain.PricePoint, error)
}

type PatternStore interface {
	SaveAnalysis(ctx context.Context, runID string, analysis *pattern.Analysis, signals []domain.Signal) error
	LatestPatterns(ctx context.Context, symbol string, limit int) ([]repository.PatternRecord, error)
	LatestSignals(ctx context.Context, symbol string, limit int) ([]domain.Signal, error)
}

type CacheInvalidator interface {
	Delete(ctx context.Context, keys ...string) error
}

type AnalysisCache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any) error
	CacheInvalidator
}

type AnalysisConfig struct {
	Pattern      pattern.Config
	Watchlist    []string
	LookbackDays int
	Workers      int
}

// Report is one symbol's analysis with the signals it produced and the
// indicator context of its latest close.
type Report struct {
	*pattern.Analysis
	RunID      string          `json:"run_id"`
	Signals    []domain.Signal `json:"signals"`
	Indicators *ta.Snapshot    `json:"indicators,omitempty"`
}

type AnalysisService struct {
	tracer    trace.Tracer
	detector  *pattern.Detector
	sentiment SentimentReader
	prices    PriceReader
	store     PatternStore
	cache     AnalysisCache
	cfg       AnalysisConfig

	now   func() time.Time
	newID func() string
}

func NewAnalysisService(
	tracer trace.Tracer,
	sentiment SentimentReader,
	prices PriceReader,
	store PatternStore,
	cache AnalysisCache,
	cfg AnalysisConfig,
) (*AnalysisService, error) {
	detector, err := pattern.NewDetector(cfg.Pattern)
	if err != nil {
		return nil, err
	}
	if cfg.LookbackDays <= 0 {
		cfg.LookbackDays = 90
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if len(cfg.Watchlist) == 0 {
		cfg.Watchlist = append([]string(nil), domain.DefaultWatchlist...)
	}
	return &AnalysisService{
		tracer:    tracer,
		detector:  detector,
		sentiment: sentiment,
		prices:    prices,
		store:     store,
		cache:     cache,
		cfg:       cfg,
		now:       time.Now,
		newID:     func() string { return uuid.NewString() },
	}, nil
}

func (s *AnalysisService) Config() pattern.Config {
	return s.detector.Config()
}

// Analyze returns the cached report for symbol when there is one and runs a
// fresh analysis otherwise.
func (s *AnalysisService) Analyze(ctx context.Context, symbol string) (*Report, error) {
	ctx, span := s.tracer.Start(ctx, "analysis-service.analyze")
	defer span.End()

	symbol, err := NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("symbol", symbol))

	if s.cache != nil {
		var cached Report
		hit, err := s.cache.Get(ctx, cacheKey(symbol), &cached)
		if err != nil {
			logger.Get().Warnw("analysis cache read failed", "symbol", symbol, "error", err)
		}
		metrics.RecordCacheLookup(hit)
		if hit && cached.Analysis != nil {
			return &cached, nil
		}
	}

	return s.run(ctx, s.newID(), symbol)
}

func (s *AnalysisService) run(ctx context.Context, runID, symbol string) (*Report, error) {
	ctx, span := s.tracer.Start(ctx, "analysis-service.run")
	defer span.End()

	now := s.now().UTC()
	since := domain.DateOf(now).AddDays(-s.cfg.LookbackDays)

	records, err := s.sentiment.ListBySymbol(ctx, symbol, since.In(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("load sentiment for %s: %w", symbol, err)
	}
	// One extra week on each side lets nearest-date lookups resolve across
	// weekends and holidays at the edges of the window.
	points, err := s.prices.History(ctx, symbol, since.AddDays(-7), domain.DateOf(now).AddDays(7))
	if err != nil {
		return nil, fmt.Errorf("load prices for %s: %w", symbol, err)
	}

	analysis := s.detector.Analyze(symbol, records, points)
	series := pattern.NewPriceSeries(points)
	analysis.AnalyzedAt = now
	signals := analysis.Signals(s.detector.Config().ConfidenceSignalThreshold)

	report := &Report{
		Analysis:   analysis,
		RunID:      runID,
		Signals:    signals,
		Indicators: ta.Latest(series.Closes()),
	}
	if report.Signals == nil {
		report.Signals = []domain.Signal{}
	}

	if s.store != nil {
		if err := s.store.SaveAnalysis(ctx, runID, analysis, signals); err != nil {
			return nil, fmt.Errorf("save analysis for %s: %w", symbol, err)
		}
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey(symbol), report); err != nil {
			logger.Get().Warnw("analysis cache write failed", "symbol", symbol, "error", err)
		}
	}

	for _, p := range analysis.Patterns() {
		metrics.PatternsDetected.WithLabelValues(string(p.Classification)).Inc()
	}
	for _, sig := range signals {
		metrics.SignalsEmitted.WithLabelValues(string(sig.SignalType)).Inc()
	}

	span.SetAttributes(
		attribute.Int("records", len(records)),
		attribute.Int("price_points", len(points)),
		attribute.Int("patterns", analysis.Summary.TotalPatterns),
		attribute.Int("signals", len(signals)),
	)
	return report, nil
}

// AnalyzeAll runs a fresh analysis for the watchlist plus every symbol with
// enough recent mentions, bounded by the configured worker count.
func (s *AnalysisService) AnalyzeAll(ctx context.Context) (domain.AnalysisRunResult, error) {
	ctx, span := s.tracer.Start(ctx, "analysis-service.analyze-all")
	defer span.End()

	runID := s.newID()
	result := domain.AnalysisRunResult{RunID: runID}

	symbols, err := s.symbols(ctx)
	if err != nil {
		result.Errors = append(result.Errors, "active symbols: "+err.Error())
	}

	reports, errs := s.fanOut(ctx, symbols, func(ctx context.Context, symbol string) (*Report, error) {
		return s.run(ctx, runID, symbol)
	})
	result.Errors = append(result.Errors, errs...)
	result.SymbolsAnalyzed = len(reports)
	for _, r := range reports {
		result.PatternsFound += r.Summary.TotalPatterns
		result.SignalsEmitted += len(r.Signals)
	}

	if ctx.Err() != nil {
		return result, ctx.Err()
	}

	logger.Get().Infow("analysis run complete",
		"run_id", runID,
		"symbols", result.SymbolsAnalyzed,
		"patterns", result.PatternsFound,
		"signals", result.SignalsEmitted,
		"errors", len(result.Errors),
	)
	return result, nil
}

// Correlations ranks the watchlist and active symbols by how strongly their
// sentiment patterns tracked price moves.
func (s *AnalysisService) Correlations(ctx context.Context) ([]pattern.Correlation, error) {
	ctx, span := s.tracer.Start(ctx, "analysis-service.correlations")
	defer span.End()

	symbols, err := s.symbols(ctx)
	if err != nil {
		logger.Get().Warnw("active symbols lookup failed", "error", err)
	}

	reports, errs := s.fanOut(ctx, symbols, s.Analyze)
	if len(reports) == 0 && len(errs) > 0 {
		return nil, errors.New(errs[0])
	}

	analyses := make([]*pattern.Analysis, 0, len(reports))
	for _, r := range reports {
		analyses = append(analyses, r.Analysis)
	}
	ranked := pattern.RankCorrelations(analyses, s.detector.Config().CorrelationThreshold)
	if ranked == nil {
		ranked = []pattern.Correlation{}
	}
	return ranked, nil
}

// Signals returns stored signals for symbol, or computes them when no store
// is configured.
func (s *AnalysisService) Signals(ctx context.Context, symbol string, limit int) ([]domain.Signal, error) {
	ctx, span := s.tracer.Start(ctx, "analysis-service.signals")
	defer span.End()

	symbol, err := NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	if s.store != nil {
		signals, err := s.store.LatestSignals(ctx, symbol, limit)
		if err != nil {
			return nil, err
		}
		if signals == nil {
			signals = []domain.Signal{}
		}
		return signals, nil
	}

	report, err := s.Analyze(ctx, symbol)
	if err != nil {
		return nil, err
	}
	signals := report.Signals
	if limit > 0 && len(signals) > limit {
		signals = signals[:limit]
	}
	return signals, nil
}

// LatestPatterns lists persisted patterns. An empty symbol lists every symbol.
func (s *AnalysisService) LatestPatterns(ctx context.Context, symbol string, limit int) ([]repository.PatternRecord, error) {
	ctx, span := s.tracer.Start(ctx, "analysis-service.latest-patterns")
	defer span.End()

	if symbol != "" {
		var err error
		if symbol, err = NormalizeSymbol(symbol); err != nil {
			return nil, err
		}
	}
	if s.store == nil {
		return []repository.PatternRecord{}, nil
	}
	records, err := s.store.LatestPatterns(ctx, symbol, limit)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []repository.PatternRecord{}
	}
	return records, nil
}

func (s *AnalysisService) symbols(ctx context.Context) ([]string, error) {
	set := make(map[string]struct{}, len(s.cfg.Watchlist))
	for _, sym := range s.cfg.Watchlist {
		if norm, err := NormalizeSymbol(sym); err == nil {
			set[norm] = struct{}{}
		}
	}

	since := domain.DateOf(s.now()).AddDays(-s.cfg.LookbackDays).In(time.UTC)
	active, err := s.sentiment.ActiveSymbols(ctx, since, s.detector.Config().MinMentions)
	for _, sym := range active {
		if norm, nerr := NormalizeSymbol(sym); nerr == nil {
			set[norm] = struct{}{}
		}
	}

	out := make([]string, 0, len(set))
	for sym := range set {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out, err
}

func (s *AnalysisService) fanOut(
	ctx context.Context,
	symbols []string,
	fn func(context.Context, string) (*Report, error),
) ([]*Report, []string) {
	var (
		mu      sync.Mutex
		reports = make([]*Report, 0, len(symbols))
		errs    []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for _, symbol := range symbols {
		symbol := symbol
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			report, err := fn(gctx, symbol)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, symbol+": "+err.Error())
				return nil
			}
			reports = append(reports, report)
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(reports, func(i, j int) bool { return reports[i].Symbol < reports[j].Symbol })
	sort.Strings(errs)
	return reports, errs
}

func cacheKey(symbol string) string {
	return "analysis:" + symbol
}

// invalidateAnalyses drops cached reports so the next Analyze sees new data.
func invalidateAnalyses(ctx context.Context, inv CacheInvalidator, symbols []string) {
	if inv == nil || len(symbols) == 0 {
		return
	}
	keys := make([]string, len(symbols))
	for i, sym := range symbols {
		keys[i] = cacheKey(sym)
	}
	if err := inv.Delete(ctx, keys...); err != nil {
		logger.Get().Warnw("analysis cache invalidation failed", "symbols", len(symbols), "error", err)
	}
}
