package pattern

import (
	"math"
	"sort"
)

type Correlation struct {
	Symbol  string  `json:"symbol"`
	Score   float64 `json:"correlation_score"`
	Summary Summary `json:"patterns"`
}

// CorrelationScore weights each directional bucket's absolute average return
// by its size and spreads it over every pattern, neutral ones included.
func CorrelationScore(s Summary) float64 {
	weighted := math.Abs(s.Bullish.AvgReturn)*float64(s.Bullish.Count) +
		math.Abs(s.Bearish.AvgReturn)*float64(s.Bearish.Count)
	total := s.TotalPatterns
	if total < 1 {
		total = 1
	}
	return weighted / float64(total)
}

// RankCorrelations keeps analyses scoring above threshold, strongest first.
func RankCorrelations(analyses []*Analysis, threshold float64) []Correlation {
	var out []Correlation
	for _, a := range analyses {
		if a == nil || a.Empty() {
			continue
		}
		score := CorrelationScore(a.Summary)
		if score > threshold {
			out = append(out, Correlation{Symbol: a.Symbol, Score: score, Summary: a.Summary})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Symbol < out[j].Symbol
	})
	return out
}
