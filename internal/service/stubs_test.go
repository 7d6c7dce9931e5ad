package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"sentiment-pattern-bot/internal/domain"
	"sentiment-pattern-bot/internal/pattern"
	"sentiment-pattern-bot/internal/repository"

	"cloud.google.com/go/civil"
	"go.opentelemetry.io/otel/trace"
)

var testTracer = trace.NewNoopTracerProvider().Tracer("test")

func jan(day int) civil.Date {
	return civil.Date{Year: 2024, Month: time.January, Day: day}
}

type stubSentiment struct {
	mu      sync.Mutex
	records map[string][]domain.SentimentRecord
	active  []string
	calls   int
}

func (s *stubSentiment) ListBySymbol(ctx context.Context, symbol string, since time.Time) ([]domain.SentimentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if symbol == "ERR" {
		return nil, errors.New("boom")
	}
	return s.records[symbol], nil
}

func (s *stubSentiment) ActiveSymbols(ctx context.Context, since time.Time, minMentions int) ([]string, error) {
	return s.active, nil
}

type stubPrices struct {
	points map[string][]domain.PricePoint
}

func (s *stubPrices) History(ctx context.Context, symbol string, from, to civil.Date) ([]domain.PricePoint, error) {
	return s.points[symbol], nil
}

type savedAnalysis struct {
	runID    string
	symbol   string
	patterns int
	signals  int
}

type stubPatternStore struct {
	mu      sync.Mutex
	saved   []savedAnalysis
	signals []domain.Signal
	records []repository.PatternRecord
	lastSym string
}

func (s *stubPatternStore) SaveAnalysis(ctx context.Context, runID string, a *pattern.Analysis, signals []domain.Signal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, savedAnalysis{runID: runID, symbol: a.Symbol, patterns: a.Summary.TotalPatterns, signals: len(signals)})
	return nil
}

func (s *stubPatternStore) LatestPatterns(ctx context.Context, symbol string, limit int) ([]repository.PatternRecord, error) {
	s.lastSym = symbol
	return s.records, nil
}

func (s *stubPatternStore) LatestSignals(ctx context.Context, symbol string, limit int) ([]domain.Signal, error) {
	s.lastSym = symbol
	return s.signals, nil
}

type memCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	deleted []string
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string][]byte)}
}

func (c *memCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(data, dst)
}

func (c *memCache) Set(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = data
	return nil
}

func (c *memCache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
		c.deleted = append(c.deleted, k)
	}
	return nil
}

// bullishTSLA is seven days of 0.5 sentiment followed by a -1 day, with the
// price moving from 100 to 108 across the window.
func bullishTSLA() ([]domain.SentimentRecord, []domain.PricePoint) {
	var records []domain.SentimentRecord
	for d := 1; d <= 8; d++ {
		score := 0.5
		if d == 8 {
			score = -1
		}
		records = append(records, domain.SentimentRecord{
			Symbol:    "TSLA",
			Timestamp: time.Date(2024, 1, d, 15, 0, 0, 0, time.UTC),
			Score:     score,
			Source:    domain.SourcePost,
		})
	}
	points := []domain.PricePoint{
		{Symbol: "TSLA", Date: jan(1), Close: 100},
		{Symbol: "TSLA", Date: jan(8), Close: 108},
	}
	return records, points
}

type stubReader struct {
	posts    map[string][]domain.ContentItem
	comments map[string][]domain.ContentItem
}

func (r *stubReader) FetchHot(ctx context.Context, subreddit string, limit int) ([]domain.ContentItem, error) {
	if subreddit == "broken" {
		return nil, errors.New("status 503")
	}
	return r.posts[subreddit], nil
}

func (r *stubReader) FetchComments(ctx context.Context, subreddit, postID string, limit int) ([]domain.ContentItem, error) {
	return r.comments[postID], nil
}

type stubSentimentStore struct {
	records []domain.SentimentRecord
	err     error
}

func (s *stubSentimentStore) InsertRecords(ctx context.Context, records []domain.SentimentRecord) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.records = append(s.records, records...)
	return len(records), nil
}

type stubHistory struct {
	points map[string][]domain.PricePoint
	ranges []string
}

func (h *stubHistory) FetchDailyHistory(ctx context.Context, symbol, rng string) ([]domain.PricePoint, error) {
	h.ranges = append(h.ranges, rng)
	if strings.HasPrefix(symbol, "X") {
		return nil, errors.New("delisted")
	}
	return h.points[symbol], nil
}

type stubPriceStore struct {
	upserted []domain.PricePoint
	listed   []string
	latest   map[string]civil.Date
}

func (s *stubPriceStore) LatestDate(ctx context.Context, symbol string) (civil.Date, bool, error) {
	d, ok := s.latest[symbol]
	return d, ok, nil
}

func (s *stubPriceStore) UpsertPoints(ctx context.Context, points []domain.PricePoint) error {
	s.upserted = append(s.upserted, points...)
	return nil
}

func (s *stubPriceStore) ListPoints(ctx context.Context, symbol string, from, to civil.Date) ([]domain.PricePoint, error) {
	s.listed = append(s.listed, symbol)
	return nil, nil
}
