package sentiment

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"sentiment-pattern-bot/internal/domain"
	"sentiment-pattern-bot/pkg/logger"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const HeuristicModel = "heuristic:v1"

// Score is the sentiment of one content item, aligned by Index with the
// slice passed to Scorer.Score.
type Score struct {
	Index  int
	Score  float64
	Label  domain.SentimentLabel
	Model  string
	Reason string
}

type BatchLLMScorer interface {
	ScoreBatch(ctx context.Context, items []domain.ContentItem) ([]Score, error)
}

// Scorer scores every item with keywords first and lets the LLM, when
// configured, override whatever it manages to score.
type Scorer struct {
	llm       BatchLLMScorer
	batchSize int
}

func NewScorer(llm BatchLLMScorer, batchSize int) *Scorer {
	if batchSize <= 0 {
		batchSize = 20
	}
	return &Scorer{llm: llm, batchSize: batchSize}
}

func (s *Scorer) Score(ctx context.Context, items []domain.ContentItem) []Score {
	if len(items) == 0 {
		return nil
	}

	out := make([]Score, len(items))
	for i, item := range items {
		score, label, reason := HeuristicSentiment(item.Title + " " + item.Body)
		out[i] = Score{Index: i, Score: score, Label: label, Model: HeuristicModel, Reason: reason}
	}

	if s.llm == nil {
		return out
	}
	for start := 0; start < len(items); start += s.batchSize {
		end := start + s.batchSize
		if end > len(items) {
			end = len(items)
		}
		scored, err := s.llm.ScoreBatch(ctx, items[start:end])
		if err != nil {
			logger.Get().Warnw("llm scoring failed, keeping keyword scores", "batch_start", start, "error", err)
			continue
		}
		for _, row := range scored {
			idx := start + row.Index
			if row.Index < 0 || idx >= end || math.IsNaN(row.Score) {
				continue
			}
			row.Index = idx
			row.Score = clamp(row.Score, -1, 1)
			row.Label = normalizeLabel(string(row.Label))
			if strings.TrimSpace(row.Reason) == "" {
				row.Reason = "llm"
			}
			if row.Model == "" {
				row.Model = out[idx].Model
			}
			out[idx] = row
		}
	}
	return out
}

var (
	bullishKeywords = []string{
		"buy", "bullish", "moon", "rocket", "diamond hands", "undervalued", "strong",
		"growth", "profit", "earnings beat", "upgrade", "good news", "soaring", "surge",
		"squeeze", "calls", "breakout", "rally",
	}
	bearishKeywords = []string{
		"sell", "bearish", "crash", "dump", "paper hands", "rekt", "overvalued", "weak",
		"decline", "loss", "miss", "downgrade", "bad news", "plunge", "tank", "collapse",
		"bankrupt", "puts",
	}
)

// HeuristicSentiment counts keyword hits. The side with more hits wins and
// the score is its hit count over 5, capped at ±1. Ties are neutral.
func HeuristicSentiment(text string) (float64, domain.SentimentLabel, string) {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return 0, domain.LabelNeutral, "empty-text"
	}

	bull := countMatches(text, bullishKeywords)
	bear := countMatches(text, bearishKeywords)
	reason := fmt.Sprintf("keywords bull=%d bear=%d", bull, bear)

	switch {
	case bull > bear:
		return math.Min(1, float64(bull)/5), domain.LabelBullish, reason
	case bear > bull:
		return math.Max(-1, -float64(bear)/5), domain.LabelBearish, reason
	default:
		return 0, domain.LabelNeutral, reason
	}
}

func countMatches(text string, tokens []string) int {
	count := 0
	for _, token := range tokens {
		if strings.Contains(text, token) {
			count++
		}
	}
	return count
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func normalizeLabel(label string) domain.SentimentLabel {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "bull", "bullish", "positive":
		return domain.LabelBullish
	case "bear", "bearish", "negative":
		return domain.LabelBearish
	default:
		return domain.LabelNeutral
	}
}

type openAIChatClient interface {
	CreateChatCompletion(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error)
}

type OpenAIScorer struct {
	client openAIChatClient
	model  string
}

// NewOpenAIScorer returns nil without an API key so callers can pass the
// result straight to NewScorer.
func NewOpenAIScorer(apiKey string, model string) *OpenAIScorer {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil
	}
	if strings.TrimSpace(model) == "" {
		model = "gpt-4o-mini"
	}
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIScorer{
		client: &openAIClient{client: client},
		model:  model,
	}
}

const scorerSystemPrompt = "You score retail-investor sentiment about US stocks in Reddit posts and comments. " +
	"Return ONLY a JSON array. Each object requires: id (int), score (-1 very bearish .. 1 very bullish), " +
	"label (BULLISH|NEUTRAL|BEARISH), reason (one short sentence). No markdown."

func (s *OpenAIScorer) ScoreBatch(ctx context.Context, items []domain.ContentItem) ([]Score, error) {
	if s == nil || s.client == nil || len(items) == 0 {
		return nil, nil
	}

	var sb strings.Builder
	for i, item := range items {
		fmt.Fprintf(&sb, "id=%d\n", i)
		if title := strings.TrimSpace(item.Title); title != "" {
			fmt.Fprintf(&sb, "title=%s\n", title)
		}
		fmt.Fprintf(&sb, "text=%s\n\n", truncate(strings.TrimSpace(item.Body), 1000))
	}

	completion, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionNewParams{
		Model: s.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(scorerSystemPrompt),
			openai.UserMessage("Items:\n" + sb.String()),
		},
	})
	if err != nil {
		return nil, err
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("empty scorer completion")
	}

	raw := trimCodeFence(completion.Choices[0].Message.Content)
	var parsed []struct {
		ID     int     `json:"id"`
		Score  float64 `json:"score"`
		Label  string  `json:"label"`
		Reason string  `json:"reason"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("parse scorer json: %w", err)
	}

	out := make([]Score, 0, len(parsed))
	for _, row := range parsed {
		if row.ID < 0 || row.ID >= len(items) {
			continue
		}
		out = append(out, Score{
			Index:  row.ID,
			Score:  clamp(row.Score, -1, 1),
			Label:  normalizeLabel(row.Label),
			Reason: strings.TrimSpace(row.Reason),
			Model:  "llm:" + s.model,
		})
	}
	return out, nil
}

func trimCodeFence(v string) string {
	v = strings.TrimSpace(v)
	if strings.HasPrefix(v, "```") {
		v = strings.TrimPrefix(v, "```")
		v = strings.TrimSpace(v)
		if strings.HasPrefix(strings.ToLower(v), "json") {
			v = strings.TrimSpace(v[4:])
		}
		v = strings.TrimSuffix(v, "```")
		v = strings.TrimSpace(v)
	}
	return v
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

type openAIClient struct {
	client openai.Client
}

func (c *openAIClient) CreateChatCompletion(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
	return c.client.Chat.Completions.New(ctx, params)
}
