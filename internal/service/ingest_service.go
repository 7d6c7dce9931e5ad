package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"sentiment-pattern-bot/internal/domain"
	"sentiment-pattern-bot/internal/metrics"
	"sentiment-pattern-bot/internal/sentiment"
	"sentiment-pattern-bot/pkg/logger"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type ContentReader interface {
	FetchHot(ctx context.Context, subreddit string, limit int) ([]domain.ContentItem, error)
	FetchComments(ctx context.Context, subreddit, postID string, limit int) ([]domain.ContentItem, error)
}

type SentimentStore interface {
	InsertRecords(ctx context.Context, records []domain.SentimentRecord) (int, error)
}

type IngestConfig struct {
	Subreddits      []string
	PostLimit       int
	CommentsPerPost int
}

// IngestService turns social posts into per-symbol sentiment records.
type IngestService struct {
	tracer    trace.Tracer
	reader    ContentReader
	scorer    *sentiment.Scorer
	extractor *sentiment.SymbolExtractor
	store     SentimentStore
	cfg       IngestConfig

	invalidator CacheInvalidator
}

func NewIngestService(
	tracer trace.Tracer,
	reader ContentReader,
	scorer *sentiment.Scorer,
	extractor *sentiment.SymbolExtractor,
	store SentimentStore,
	cfg IngestConfig,
) *IngestService {
	if len(cfg.Subreddits) == 0 {
		cfg.Subreddits = []string{"wallstreetbets"}
	}
	if cfg.PostLimit <= 0 {
		cfg.PostLimit = 100
	}
	if cfg.CommentsPerPost < 0 {
		cfg.CommentsPerPost = 0
	}
	if scorer == nil {
		scorer = sentiment.NewScorer(nil, 0)
	}
	if extractor == nil {
		extractor = sentiment.NewSymbolExtractor(nil)
	}
	return &IngestService{
		tracer:    tracer,
		reader:    reader,
		scorer:    scorer,
		extractor: extractor,
		store:     store,
		cfg:       cfg,
	}
}

// SetCacheInvalidator drops cached analyses for symbols that receive new
// sentiment records.
func (s *IngestService) SetCacheInvalidator(inv CacheInvalidator) {
	s.invalidator = inv
}

// RunCycle fetches every configured subreddit once. Fetch failures for a
// single subreddit or post are reported in the result, not returned.
func (s *IngestService) RunCycle(ctx context.Context) (domain.IngestRunResult, error) {
	ctx, span := s.tracer.Start(ctx, "ingest-service.run-cycle")
	defer span.End()

	result := domain.IngestRunResult{}
	if s.reader == nil || s.store == nil {
		return result, errors.New("ingest service dependencies are not initialized")
	}

	items := s.collect(ctx, &result)
	result.ItemsFetched = len(items)

	scorable := make([]domain.ContentItem, 0, len(items))
	symbolSets := make([][]string, 0, len(items))
	for _, item := range items {
		symbols := s.extractor.Extract(item.Subreddit, item.Title, item.Body)
		if len(symbols) == 0 {
			continue
		}
		scorable = append(scorable, item)
		symbolSets = append(symbolSets, symbols)
	}

	scores := s.scorer.Score(ctx, scorable)
	result.ItemsScored = len(scores)

	records := make([]domain.SentimentRecord, 0, len(scores))
	for _, sc := range scores {
		if sc.Index < 0 || sc.Index >= len(scorable) {
			continue
		}
		records = append(records, sentiment.BuildRecords(scorable[sc.Index], symbolSets[sc.Index], sc)...)
	}

	if len(records) > 0 {
		written, err := s.store.InsertRecords(ctx, records)
		if err != nil {
			span.RecordError(err)
			return result, fmt.Errorf("insert sentiment records: %w", err)
		}
		result.RecordsWritten = written
		touched := make(map[string]struct{})
		for _, rec := range records {
			metrics.RecordsIngested.WithLabelValues(string(rec.Label)).Inc()
			touched[rec.Symbol] = struct{}{}
		}
		symbols := make([]string, 0, len(touched))
		for sym := range touched {
			symbols = append(symbols, sym)
		}
		sort.Strings(symbols)
		invalidateAnalyses(ctx, s.invalidator, symbols)
	}

	span.SetAttributes(
		attribute.Int("items_fetched", result.ItemsFetched),
		attribute.Int("records_written", result.RecordsWritten),
	)
	logger.Get().Infow("ingest cycle complete",
		"items", result.ItemsFetched,
		"scored", result.ItemsScored,
		"records", result.RecordsWritten,
		"errors", len(result.Errors),
	)
	return result, nil
}

func (s *IngestService) collect(ctx context.Context, result *domain.IngestRunResult) []domain.ContentItem {
	seen := make(map[string]struct{}, 256)
	items := make([]domain.ContentItem, 0, 256)
	add := func(item domain.ContentItem) {
		key := string(item.Source) + ":" + item.SourceItemID
		if _, dup := seen[key]; dup || item.SourceItemID == "" {
			return
		}
		seen[key] = struct{}{}
		items = append(items, item)
	}

	for _, sub := range s.cfg.Subreddits {
		sub = strings.TrimSpace(sub)
		if sub == "" {
			continue
		}
		posts, err := s.reader.FetchHot(ctx, sub, s.cfg.PostLimit)
		if err != nil {
			result.Errors = append(result.Errors, "reddit/"+sub+": "+err.Error())
			continue
		}
		for _, post := range posts {
			add(post)
			if s.cfg.CommentsPerPost == 0 {
				continue
			}
			comments, err := s.reader.FetchComments(ctx, sub, post.SourceItemID, s.cfg.CommentsPerPost)
			if err != nil {
				result.Errors = append(result.Errors, "reddit/"+sub+"/"+post.SourceItemID+": "+err.Error())
				continue
			}
			for _, c := range comments {
				add(c)
			}
		}
	}
	return items
}
