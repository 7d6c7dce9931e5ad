package pattern

import (
	"fmt"

	"sentiment-pattern-bot/internal/domain"
)

// GenerateSignals emits a BUY for every bullish pattern and a SELL for every
// bearish pattern whose confidence exceeds threshold. BUY signals come first,
// each group in input order. Neutral patterns never produce a signal.
func GenerateSignals(patterns []domain.Pattern, threshold float64) []domain.Signal {
	var signals []domain.Signal
	for _, want := range []domain.Classification{domain.ClassificationBullish, domain.ClassificationBearish} {
		for _, p := range patterns {
			if p.Classification != want || !(p.Confidence > threshold) {
				continue
			}
			signals = append(signals, signalFromPattern(p))
		}
	}
	return signals
}

func signalFromPattern(p domain.Pattern) domain.Signal {
	signalType := domain.SignalBuy
	mood := "Bullish"
	if p.Classification == domain.ClassificationBearish {
		signalType = domain.SignalSell
		mood = "Bearish"
	}
	return domain.Signal{
		Symbol:         p.Symbol,
		SignalType:     signalType,
		Confidence:     p.Confidence,
		ExpectedReturn: p.PriceChangePercent,
		PatternDate:    p.WindowEnd,
		Reason:         fmt.Sprintf("%s sentiment pattern with %d mentions", mood, p.MentionCount),
	}
}
