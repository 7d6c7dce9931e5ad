package pattern

import (
	"time"

	"sentiment-pattern-bot/internal/domain"

	"cloud.google.com/go/civil"
)

func jan(day int) civil.Date {
	return civil.Date{Year: 2024, Month: time.January, Day: day}
}

func recordsOn(symbol string, d civil.Date, scores ...float64) []domain.SentimentRecord {
	out := make([]domain.SentimentRecord, 0, len(scores))
	for i, s := range scores {
		out = append(out, domain.SentimentRecord{
			Symbol:    symbol,
			Timestamp: d.In(time.UTC).Add(time.Duration(9+i) * time.Hour),
			Score:     s,
			Label:     domain.LabelNeutral,
			Source:    domain.SourcePost,
		})
	}
	return out
}

func price(symbol string, d civil.Date, close float64) domain.PricePoint {
	return domain.PricePoint{Symbol: symbol, Date: d, Open: close, High: close, Low: close, Close: close, Volume: 1000}
}
