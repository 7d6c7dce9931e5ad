package pattern

import (
	"sentiment-pattern-bot/internal/domain"

	"cloud.google.com/go/civil"
	"gonum.org/v1/gonum/stat"
)

// Window is one slice of the sentiment series. Scores are pooled from
// WindowDays sentiment dates starting at StartDate; EndDate is the next
// sentiment date after those and only marks where the price move is measured.
type Window struct {
	StartDate     civil.Date `json:"start_date"`
	EndDate       civil.Date `json:"end_date"`
	MeanSentiment float64    `json:"mean_sentiment"`
	MentionCount  int        `json:"mention_count"`
	MemberScores  []float64  `json:"member_scores"`
}

type Detector struct {
	cfg Config
}

func NewDetector(cfg Config) (*Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Detector{cfg: cfg}, nil
}

func (d *Detector) Config() Config {
	return d.cfg
}

// Windows slides over every start index that has an end marker available.
// No mention filtering happens here.
func (d *Detector) Windows(series *SentimentSeries) []Window {
	dates := series.dates
	w := d.cfg.WindowDays
	if len(dates) <= w {
		return nil
	}

	out := make([]Window, 0, len(dates)-w)
	for i := 0; i+w < len(dates); i++ {
		var pooled []float64
		for _, day := range dates[i : i+w] {
			pooled = append(pooled, series.scores[day]...)
		}
		win := Window{
			StartDate:    dates[i],
			EndDate:      dates[i+w],
			MentionCount: len(pooled),
			MemberScores: pooled,
		}
		if len(pooled) > 0 {
			win.MeanSentiment = stat.Mean(pooled, nil)
		}
		out = append(out, win)
	}
	return out
}

// Detect evaluates every window and returns patterns in window-start order.
// Windows below the mention floor, or whose start or end price cannot be
// resolved, are dropped.
func (d *Detector) Detect(series *SentimentSeries, prices *PriceSeries) []domain.Pattern {
	if series == nil || prices == nil || prices.Len() == 0 {
		return nil
	}

	var patterns []domain.Pattern
	for _, win := range d.Windows(series) {
		if win.MentionCount < d.cfg.MinMentions {
			continue
		}

		start, ok := prices.CloseAt(win.StartDate)
		if !ok || start == 0 {
			continue
		}
		end, ok := prices.CloseAt(win.EndDate)
		if !ok || end == 0 {
			continue
		}

		change := (end - start) / start * 100
		patterns = append(patterns, domain.Pattern{
			Symbol:             series.Symbol,
			WindowStart:        win.StartDate,
			WindowEnd:          win.EndDate,
			AvgSentiment:       win.MeanSentiment,
			MentionCount:       win.MentionCount,
			PriceChangePercent: change,
			Confidence:         Confidence(win.MemberScores),
			Classification:     d.Classify(win.MeanSentiment, change),
		})
	}
	return patterns
}

// Classify depends only on its arguments and the configured thresholds.
func (d *Detector) Classify(avgSentiment, priceChangePercent float64) domain.Classification {
	switch {
	case avgSentiment > d.cfg.SentimentThreshold && priceChangePercent > d.cfg.PriceChangeThresholdPercent:
		return domain.ClassificationBullish
	case avgSentiment < -d.cfg.SentimentThreshold && priceChangePercent < -d.cfg.PriceChangeThresholdPercent:
		return domain.ClassificationBearish
	default:
		return domain.ClassificationNeutral
	}
}
