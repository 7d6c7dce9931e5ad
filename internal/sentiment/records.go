package sentiment

import (
	"strings"

	"sentiment-pattern-bot/internal/domain"
)

// BuildRecords fans one scored item out to a record per mentioned symbol.
// Items without symbols produce nothing.
func BuildRecords(item domain.ContentItem, symbols []string, score Score) []domain.SentimentRecord {
	if len(symbols) == 0 {
		return nil
	}
	out := make([]domain.SentimentRecord, 0, len(symbols))
	for _, symbol := range symbols {
		symbol = strings.ToUpper(strings.TrimSpace(symbol))
		if symbol == "" {
			continue
		}
		out = append(out, domain.SentimentRecord{
			Symbol:    symbol,
			Timestamp: item.PublishedAt.UTC(),
			Score:     clamp(score.Score, -1, 1),
			Label:     score.Label,
			Source:    item.Source,
			ContentID: item.SourceItemID,
			Model:     score.Model,
		})
	}
	return out
}
