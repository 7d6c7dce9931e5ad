package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"sentiment-pattern-bot/internal/domain"
	"sentiment-pattern-bot/internal/pattern"
	"sentiment-pattern-bot/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type analysisFixture struct {
	svc       *AnalysisService
	sentiment *stubSentiment
	store     *stubPatternStore
	cache     *memCache
}

func newAnalysisFixture(t *testing.T, withStore bool) analysisFixture {
	t.Helper()

	records, points := bullishTSLA()
	sent := &stubSentiment{
		records: map[string][]domain.SentimentRecord{"TSLA": records},
		active:  []string{"GME"},
	}
	prices := &stubPrices{points: map[string][]domain.PricePoint{"TSLA": points}}
	cache := newMemCache()

	var store *stubPatternStore
	var ps PatternStore
	if withStore {
		store = &stubPatternStore{}
		ps = store
	}

	svc, err := NewAnalysisService(testTracer, sent, prices, ps, cache, AnalysisConfig{
		Pattern:   pattern.DefaultConfig(),
		Watchlist: []string{"TSLA", "not a symbol"},
		Workers:   2,
	})
	require.NoError(t, err)
	svc.now = func() time.Time { return time.Date(2024, 1, 20, 12, 0, 0, 0, time.UTC) }
	var ids atomic.Int32
	svc.newID = func() string {
		return fmt.Sprintf("run-%d", ids.Add(1))
	}
	return analysisFixture{svc: svc, sentiment: sent, store: store, cache: cache}
}

func TestAnalysisService_AnalyzeDetectsAndPersists(t *testing.T) {
	f := newAnalysisFixture(t, true)

	report, err := f.svc.Analyze(context.Background(), "$tsla")
	require.NoError(t, err)

	assert.Equal(t, "TSLA", report.Symbol)
	assert.Equal(t, "run-1", report.RunID)
	assert.Equal(t, time.Date(2024, 1, 20, 12, 0, 0, 0, time.UTC), report.AnalyzedAt)
	require.Len(t, report.Bullish, 1)
	assert.InDelta(t, 8.0, report.Bullish[0].PriceChangePercent, 1e-9)

	require.Len(t, report.Signals, 1)
	assert.Equal(t, domain.SignalBuy, report.Signals[0].SignalType)

	require.NotNil(t, report.Indicators)
	assert.Equal(t, 108.0, report.Indicators.LastClose)
	assert.Nil(t, report.Indicators.SMA20)

	require.Len(t, f.store.saved, 1)
	assert.Equal(t, savedAnalysis{runID: "run-1", symbol: "TSLA", patterns: 1, signals: 1}, f.store.saved[0])
	assert.Contains(t, f.cache.data, "analysis:TSLA")
}

func TestAnalysisService_AnalyzeServesCache(t *testing.T) {
	f := newAnalysisFixture(t, true)
	ctx := context.Background()

	first, err := f.svc.Analyze(ctx, "TSLA")
	require.NoError(t, err)
	second, err := f.svc.Analyze(ctx, "TSLA")
	require.NoError(t, err)

	assert.Equal(t, 1, f.sentiment.calls)
	assert.Equal(t, first.RunID, second.RunID)
	require.Len(t, second.Bullish, 1)
	assert.Equal(t, first.Bullish[0].WindowStart, second.Bullish[0].WindowStart)
	assert.Len(t, f.store.saved, 1)
}

func TestAnalysisService_AnalyzeRejectsBadSymbol(t *testing.T) {
	f := newAnalysisFixture(t, false)

	_, err := f.svc.Analyze(context.Background(), "12 monkeys")
	assert.ErrorIs(t, err, ErrUnsupportedSymbol)
}

func TestAnalysisService_AnalyzeWithoutDataIsEmpty(t *testing.T) {
	f := newAnalysisFixture(t, false)

	report, err := f.svc.Analyze(context.Background(), "GME")
	require.NoError(t, err)
	assert.True(t, report.Empty())
	assert.NotNil(t, report.Signals)
	assert.Nil(t, report.Indicators)
}

func TestAnalysisService_AnalyzeAllCollectsErrors(t *testing.T) {
	f := newAnalysisFixture(t, true)
	f.sentiment.active = []string{"GME", "ERR"}

	result, err := f.svc.AnalyzeAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "run-1", result.RunID)
	assert.Equal(t, 2, result.SymbolsAnalyzed)
	assert.Equal(t, 1, result.PatternsFound)
	assert.Equal(t, 1, result.SignalsEmitted)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "ERR: load sentiment")

	for _, saved := range f.store.saved {
		assert.Equal(t, "run-1", saved.runID)
	}
}

func TestAnalysisService_Correlations(t *testing.T) {
	f := newAnalysisFixture(t, false)

	ranked, err := f.svc.Correlations(context.Background())
	require.NoError(t, err)
	require.Len(t, ranked, 1)
	assert.Equal(t, "TSLA", ranked[0].Symbol)
	assert.InDelta(t, 8.0, ranked[0].Score, 1e-9)
}

func TestAnalysisService_SignalsPrefersStore(t *testing.T) {
	f := newAnalysisFixture(t, true)
	f.store.signals = []domain.Signal{{Symbol: "TSLA", SignalType: domain.SignalSell}}

	signals, err := f.svc.Signals(context.Background(), "tsla", 5)
	require.NoError(t, err)
	require.Len(t, signals, 1)
	assert.Equal(t, domain.SignalSell, signals[0].SignalType)
	assert.Equal(t, "TSLA", f.store.lastSym)
}

func TestAnalysisService_SignalsComputedWithoutStore(t *testing.T) {
	f := newAnalysisFixture(t, false)

	signals, err := f.svc.Signals(context.Background(), "TSLA", 0)
	require.NoError(t, err)
	require.Len(t, signals, 1)
	assert.Equal(t, domain.SignalBuy, signals[0].SignalType)
}

func TestAnalysisService_LatestPatterns(t *testing.T) {
	f := newAnalysisFixture(t, true)
	f.store.records = []repository.PatternRecord{{RunID: "r"}}

	records, err := f.svc.LatestPatterns(context.Background(), "", 10)
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, "", f.store.lastSym)

	none, err := newAnalysisFixture(t, false).svc.LatestPatterns(context.Background(), "gme", 10)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestNewAnalysisServiceRejectsInvalidConfig(t *testing.T) {
	cfg := pattern.DefaultConfig()
	cfg.WindowDays = 0

	_, err := NewAnalysisService(testTracer, &stubSentiment{}, &stubPrices{}, nil, nil, AnalysisConfig{Pattern: cfg})
	assert.ErrorIs(t, err, pattern.ErrInvalidConfig)
}

func TestAnalysisService_AnalyzeRerunsAfterInvalidation(t *testing.T) {
	f := newAnalysisFixture(t, false)
	ctx := context.Background()

	first, err := f.svc.Analyze(ctx, "TSLA")
	require.NoError(t, err)
	cached, err := f.svc.Analyze(ctx, "TSLA")
	require.NoError(t, err)
	assert.Equal(t, first.RunID, cached.RunID)

	invalidateAnalyses(ctx, f.cache, []string{"TSLA"})

	fresh, err := f.svc.Analyze(ctx, "TSLA")
	require.NoError(t, err)
	assert.Equal(t, "run-2", fresh.RunID)
}
