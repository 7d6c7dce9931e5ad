package pattern

import (
	"sort"
	"strings"
	"time"

	"sentiment-pattern-bot/internal/domain"

	"gonum.org/v1/gonum/stat"
)

type BucketStats struct {
	Count         int     `json:"count"`
	AvgReturn     float64 `json:"avg_return"`
	AvgConfidence float64 `json:"avg_confidence"`
}

type Summary struct {
	TotalPatterns int         `json:"total_patterns"`
	Bullish       BucketStats `json:"bullish"`
	Bearish       BucketStats `json:"bearish"`
	Neutral       BucketStats `json:"neutral"`
}

// Analysis is the full pattern set for one symbol, split by classification.
type Analysis struct {
	Symbol       string           `json:"symbol"`
	AnalyzedAt   time.Time        `json:"analysis_date"`
	WindowDays   int              `json:"window_days"`
	MentionCount int              `json:"mention_count"`
	Bullish      []domain.Pattern `json:"bullish_patterns"`
	Bearish      []domain.Pattern `json:"bearish_patterns"`
	Neutral      []domain.Pattern `json:"neutral_patterns"`
	Summary      Summary          `json:"summary"`
}

// Analyze runs the detector over one symbol's records and prices. Missing
// input is a normal state and yields an empty Analysis, not an error; only an
// invalid Config is rejected.
func Analyze(symbol string, records []domain.SentimentRecord, points []domain.PricePoint, cfg Config) (*Analysis, error) {
	detector, err := NewDetector(cfg)
	if err != nil {
		return nil, err
	}
	return detector.Analyze(symbol, records, points), nil
}

func (d *Detector) Analyze(symbol string, records []domain.SentimentRecord, points []domain.PricePoint) *Analysis {
	series := BuildSentimentSeries(symbol, records)
	prices := NewPriceSeries(pricesForSymbol(symbol, points))

	analysis := &Analysis{
		Symbol:       series.Symbol,
		WindowDays:   d.cfg.WindowDays,
		MentionCount: series.MentionCount(),
		Bullish:      []domain.Pattern{},
		Bearish:      []domain.Pattern{},
		Neutral:      []domain.Pattern{},
	}

	for _, p := range d.Detect(series, prices) {
		switch p.Classification {
		case domain.ClassificationBullish:
			analysis.Bullish = append(analysis.Bullish, p)
		case domain.ClassificationBearish:
			analysis.Bearish = append(analysis.Bearish, p)
		default:
			analysis.Neutral = append(analysis.Neutral, p)
		}
	}
	analysis.Summary = summarize(analysis)
	return analysis
}

// Patterns returns every pattern in window-start order.
func (a *Analysis) Patterns() []domain.Pattern {
	out := make([]domain.Pattern, 0, len(a.Bullish)+len(a.Bearish)+len(a.Neutral))
	out = append(out, a.Bullish...)
	out = append(out, a.Bearish...)
	out = append(out, a.Neutral...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].WindowStart.Before(out[j].WindowStart) })
	return out
}

func (a *Analysis) Signals(threshold float64) []domain.Signal {
	directional := make([]domain.Pattern, 0, len(a.Bullish)+len(a.Bearish))
	directional = append(directional, a.Bullish...)
	directional = append(directional, a.Bearish...)
	return GenerateSignals(directional, threshold)
}

func (a *Analysis) Empty() bool {
	return a.Summary.TotalPatterns == 0
}

func summarize(a *Analysis) Summary {
	return Summary{
		TotalPatterns: len(a.Bullish) + len(a.Bearish) + len(a.Neutral),
		Bullish:       bucketStats(a.Bullish),
		Bearish:       bucketStats(a.Bearish),
		Neutral:       bucketStats(a.Neutral),
	}
}

func bucketStats(patterns []domain.Pattern) BucketStats {
	if len(patterns) == 0 {
		return BucketStats{}
	}
	returns := make([]float64, len(patterns))
	confidences := make([]float64, len(patterns))
	for i, p := range patterns {
		returns[i] = p.PriceChangePercent
		confidences[i] = p.Confidence
	}
	return BucketStats{
		Count:         len(patterns),
		AvgReturn:     stat.Mean(returns, nil),
		AvgConfidence: stat.Mean(confidences, nil),
	}
}

// Points without a symbol are taken to belong to the requested one.
func pricesForSymbol(symbol string, points []domain.PricePoint) []domain.PricePoint {
	symbol = strings.TrimSpace(symbol)
	out := make([]domain.PricePoint, 0, len(points))
	for _, p := range points {
		if p.Symbol == "" || strings.EqualFold(strings.TrimSpace(p.Symbol), symbol) {
			out = append(out, p)
		}
	}
	return out
}
