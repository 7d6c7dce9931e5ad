package pattern

import (
	"math"
	"sort"
	"strings"

	"sentiment-pattern-bot/internal/domain"

	"cloud.google.com/go/civil"
)

// SentimentSeries groups one symbol's sentiment scores by UTC calendar day.
type SentimentSeries struct {
	Symbol string

	dates  []civil.Date
	scores map[civil.Date][]float64
}

// BuildSentimentSeries keeps the records whose symbol matches case-insensitively
// and buckets their scores by domain.DateOf(timestamp). Zero scores are kept;
// non-finite scores are not sentiment and are skipped.
func BuildSentimentSeries(symbol string, records []domain.SentimentRecord) *SentimentSeries {
	symbol = strings.TrimSpace(symbol)
	series := &SentimentSeries{
		Symbol: strings.ToUpper(symbol),
		scores: make(map[civil.Date][]float64),
	}

	for _, rec := range records {
		if !strings.EqualFold(strings.TrimSpace(rec.Symbol), symbol) {
			continue
		}
		if math.IsNaN(rec.Score) || math.IsInf(rec.Score, 0) {
			continue
		}
		day := domain.DateOf(rec.Timestamp)
		if _, ok := series.scores[day]; !ok {
			series.dates = append(series.dates, day)
		}
		series.scores[day] = append(series.scores[day], clamp(rec.Score, -1, 1))
	}

	sort.Slice(series.dates, func(i, j int) bool { return series.dates[i].Before(series.dates[j]) })
	return series
}

// Dates returns the distinct sentiment-bearing dates in ascending order.
func (s *SentimentSeries) Dates() []civil.Date {
	return append([]civil.Date(nil), s.dates...)
}

func (s *SentimentSeries) Scores(day civil.Date) []float64 {
	return append([]float64(nil), s.scores[day]...)
}

func (s *SentimentSeries) Len() int {
	return len(s.dates)
}

func (s *SentimentSeries) MentionCount() int {
	total := 0
	for _, scores := range s.scores {
		total += len(scores)
	}
	return total
}
