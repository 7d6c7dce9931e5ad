package sentiment

import (
	"context"
	"errors"
	"testing"

	"sentiment-pattern-bot/internal/domain"

	"github.com/openai/openai-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeuristicSentiment(t *testing.T) {
	score, label, _ := HeuristicSentiment("Diamond hands, this squeeze is going to the moon")
	assert.Equal(t, domain.LabelBullish, label)
	assert.InDelta(t, 0.6, score, 1e-12)

	score, label, _ = HeuristicSentiment("bearish: overvalued and about to crash")
	assert.Equal(t, domain.LabelBearish, label)
	assert.InDelta(t, -0.6, score, 1e-12)

	score, label, reason := HeuristicSentiment("   ")
	assert.Equal(t, domain.LabelNeutral, label)
	assert.Zero(t, score)
	assert.Equal(t, "empty-text", reason)
}

func TestHeuristicSentimentCapsAtOne(t *testing.T) {
	score, _, _ := HeuristicSentiment("buy bullish moon rocket strong growth profit upgrade surge rally")
	assert.Equal(t, 1.0, score)
}

func TestHeuristicSentimentScoresWinningSideHits(t *testing.T) {
	score, label, reason := HeuristicSentiment("breakout rally, strong volume but weak guidance and a downgrade")
	assert.Equal(t, domain.LabelBullish, label)
	assert.Equal(t, "keywords bull=3 bear=2", reason)
	assert.InDelta(t, 0.6, score, 1e-12)

	score, label, _ = HeuristicSentiment("buy the dip or sell the rip")
	assert.Equal(t, domain.LabelNeutral, label)
	assert.Zero(t, score)
}

func TestScorerHeuristicFallback(t *testing.T) {
	scorer := NewScorer(nil, 10)
	out := scorer.Score(context.Background(), []domain.ContentItem{{Title: "GME breakout", Body: "buy the dip"}})
	require.Len(t, out, 1)
	assert.Equal(t, HeuristicModel, out[0].Model)
	assert.Equal(t, domain.LabelBullish, out[0].Label)
}

func TestScorerUsesLLMWhenAvailable(t *testing.T) {
	scorer := NewScorer(stubLLMScorer{scores: []Score{{
		Index: 1, Score: 1.7, Label: "bearish", Model: "llm:gpt-4o-mini",
	}}}, 10)
	items := []domain.ContentItem{{Body: "moon"}, {Body: "neutral words"}}

	out := scorer.Score(context.Background(), items)
	require.Len(t, out, 2)
	assert.Equal(t, HeuristicModel, out[0].Model)
	assert.Equal(t, "llm:gpt-4o-mini", out[1].Model)
	assert.Equal(t, domain.LabelBearish, out[1].Label)
	assert.Equal(t, 1.0, out[1].Score)
	assert.Equal(t, "llm", out[1].Reason)
}

func TestScorerMapsBatchIndexes(t *testing.T) {
	llm := &recordingLLM{}
	scorer := NewScorer(llm, 2)
	items := []domain.ContentItem{{Body: "a"}, {Body: "b"}, {Body: "c"}}

	out := scorer.Score(context.Background(), items)
	assert.Equal(t, []int{2, 1}, llm.batchSizes)
	assert.Equal(t, "llm:test", out[2].Model, "index 0 of the second batch is item 2")
	assert.Equal(t, 0.5, out[2].Score)
}

func TestScorerFallsBackWhenLLMErrors(t *testing.T) {
	scorer := NewScorer(stubLLMScorer{err: errors.New("boom")}, 10)
	out := scorer.Score(context.Background(), []domain.ContentItem{{Title: "crash and dump"}})
	require.Len(t, out, 1)
	assert.Equal(t, HeuristicModel, out[0].Model)
	assert.Equal(t, domain.LabelBearish, out[0].Label)
}

func TestOpenAIScorerParsesFencedJSON(t *testing.T) {
	client := &stubChatClient{content: "```json\n[{\"id\":0,\"score\":0.4,\"label\":\"positive\",\"reason\":\"likes it\"},{\"id\":7,\"score\":1}]\n```"}
	scorer := &OpenAIScorer{client: client, model: "gpt-test"}

	out, err := scorer.ScoreBatch(context.Background(), []domain.ContentItem{{Title: "TSLA", Body: "nice"}})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, 0, out[0].Index)
	assert.Equal(t, domain.LabelBullish, out[0].Label)
	assert.Equal(t, "llm:gpt-test", out[0].Model)
	assert.Equal(t, "gpt-test", string(client.params.Model))
}

func TestOpenAIScorerBadJSON(t *testing.T) {
	scorer := &OpenAIScorer{client: &stubChatClient{content: "not json"}, model: "gpt-test"}
	_, err := scorer.ScoreBatch(context.Background(), []domain.ContentItem{{Body: "x"}})
	assert.Error(t, err)
}

func TestNewOpenAIScorerWithoutKeyIsNil(t *testing.T) {
	assert.Nil(t, NewOpenAIScorer(" ", ""))
}

type stubLLMScorer struct {
	scores []Score
	err    error
}

func (s stubLLMScorer) ScoreBatch(ctx context.Context, items []domain.ContentItem) ([]Score, error) {
	if s.err != nil {
		return nil, s.err
	}
	return append([]Score(nil), s.scores...), nil
}

type recordingLLM struct {
	batchSizes []int
}

func (r *recordingLLM) ScoreBatch(ctx context.Context, items []domain.ContentItem) ([]Score, error) {
	r.batchSizes = append(r.batchSizes, len(items))
	if len(items) == 1 {
		return []Score{{Index: 0, Score: 0.5, Label: domain.LabelBullish, Model: "llm:test"}}, nil
	}
	return nil, nil
}

type stubChatClient struct {
	content string
	params  openai.ChatCompletionNewParams
}

func (s *stubChatClient) CreateChatCompletion(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
	s.params = params
	return &openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: s.content}}},
	}, nil
}
