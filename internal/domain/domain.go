package domain

import (
	"time"

	"cloud.google.com/go/civil"
)

type SentimentLabel string

const (
	LabelBullish SentimentLabel = "BULLISH"
	LabelBearish SentimentLabel = "BEARISH"
	LabelNeutral SentimentLabel = "NEUTRAL"
)

type ContentSource string

const (
	SourcePost    ContentSource = "POST"
	SourceComment ContentSource = "COMMENT"
)

// SentimentRecord is one symbol's sentiment in one piece of content.
type SentimentRecord struct {
	ID        int64          `json:"id,omitempty"`
	Symbol    string         `json:"symbol"`
	Timestamp time.Time      `json:"timestamp"`
	Score     float64        `json:"score"`
	Label     SentimentLabel `json:"label"`
	Source    ContentSource  `json:"source"`
	ContentID string         `json:"content_id,omitempty"`
	Model     string         `json:"model,omitempty"`
}

type Classification string

const (
	ClassificationBullish Classification = "BULLISH"
	ClassificationBearish Classification = "BEARISH"
	ClassificationNeutral Classification = "NEUTRAL"
)

// Pattern is the classified outcome of evaluating one sentiment window.
type Pattern struct {
	Symbol             string         `json:"symbol"`
	WindowStart        civil.Date     `json:"window_start"`
	WindowEnd          civil.Date     `json:"window_end"`
	AvgSentiment       float64        `json:"avg_sentiment"`
	MentionCount       int            `json:"mention_count"`
	PriceChangePercent float64        `json:"price_change_percent"`
	Confidence         float64        `json:"confidence"`
	Classification     Classification `json:"classification"`
}

type SignalType string

const (
	SignalBuy  SignalType = "BUY"
	SignalSell SignalType = "SELL"
)

type Signal struct {
	ID             int64      `json:"id,omitempty"`
	Symbol         string     `json:"symbol"`
	SignalType     SignalType `json:"signal_type"`
	Confidence     float64    `json:"confidence"`
	ExpectedReturn float64    `json:"expected_return"`
	PatternDate    civil.Date `json:"pattern_date"`
	Reason         string     `json:"reason"`
}

// ContentItem is a raw post or comment pulled from a social feed.
type ContentItem struct {
	Source       ContentSource
	SourceItemID string
	Subreddit    string
	Title        string
	Body         string
	Author       string
	URL          string
	PublishedAt  time.Time
	Metadata     map[string]any
}

type IngestRunResult struct {
	ItemsFetched   int      `json:"items_fetched"`
	ItemsScored    int      `json:"items_scored"`
	RecordsWritten int      `json:"records_written"`
	Errors         []string `json:"errors,omitempty"`
}

type AnalysisRunResult struct {
	RunID           string   `json:"run_id"`
	SymbolsAnalyzed int      `json:"symbols_analyzed"`
	PatternsFound   int      `json:"patterns_found"`
	SignalsEmitted  int      `json:"signals_emitted"`
	Errors          []string `json:"errors,omitempty"`
}
