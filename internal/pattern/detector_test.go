package pattern

import (
	"math/rand"
	"testing"

	"sentiment-pattern-bot/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// eight consecutive days, one 0.5 mention each on days 1..7 and a strongly
// negative one on day 8 that must not leak into the window.
func scenarioRecords() []domain.SentimentRecord {
	var records []domain.SentimentRecord
	for day := 1; day <= 7; day++ {
		records = append(records, recordsOn("TSLA", jan(day), 0.5)...)
	}
	return append(records, recordsOn("TSLA", jan(8), -1)...)
}

func newTestDetector(t *testing.T) *Detector {
	t.Helper()
	d, err := NewDetector(DefaultConfig())
	require.NoError(t, err)
	return d
}

func TestDetectBullishWindow(t *testing.T) {
	d := newTestDetector(t)
	series := BuildSentimentSeries("TSLA", scenarioRecords())
	prices := NewPriceSeries([]domain.PricePoint{
		price("TSLA", jan(1), 100),
		price("TSLA", jan(8), 108),
	})

	patterns := d.Detect(series, prices)
	require.Len(t, patterns, 1)

	p := patterns[0]
	assert.Equal(t, "TSLA", p.Symbol)
	assert.Equal(t, jan(1), p.WindowStart)
	assert.Equal(t, jan(8), p.WindowEnd)
	assert.InDelta(t, 0.5, p.AvgSentiment, 1e-12)
	assert.Equal(t, 7, p.MentionCount)
	assert.InDelta(t, 8.0, p.PriceChangePercent, 1e-9)
	assert.InDelta(t, 1.0, p.Confidence, 1e-12)
	assert.Equal(t, domain.ClassificationBullish, p.Classification)
}

func TestDetectBearishWindow(t *testing.T) {
	d := newTestDetector(t)
	var records []domain.SentimentRecord
	for day := 1; day <= 8; day++ {
		records = append(records, recordsOn("GME", jan(day), -0.6)...)
	}
	prices := NewPriceSeries([]domain.PricePoint{
		price("GME", jan(1), 40),
		price("GME", jan(8), 30),
	})

	patterns := d.Detect(BuildSentimentSeries("GME", records), prices)
	require.Len(t, patterns, 1)
	assert.Equal(t, domain.ClassificationBearish, patterns[0].Classification)
	assert.InDelta(t, -25.0, patterns[0].PriceChangePercent, 1e-9)
}

func TestDetectWithoutPricesYieldsNothing(t *testing.T) {
	d := newTestDetector(t)
	series := BuildSentimentSeries("TSLA", scenarioRecords())

	assert.Empty(t, d.Detect(series, NewPriceSeries(nil)))
	assert.Empty(t, d.Detect(series, nil))
}

func TestDetectSkipsZeroStartPrice(t *testing.T) {
	d := newTestDetector(t)
	series := BuildSentimentSeries("TSLA", scenarioRecords())
	prices := NewPriceSeries([]domain.PricePoint{
		price("TSLA", jan(1), 0),
		price("TSLA", jan(8), 108),
	})
	assert.Empty(t, d.Detect(series, prices))
}

func TestDetectSkipsWindowsBelowMentionFloor(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WindowDays = 2
	cfg.MinMentions = 3
	d, err := NewDetector(cfg)
	require.NoError(t, err)

	var records []domain.SentimentRecord
	records = append(records, recordsOn("NVDA", jan(1), 0.9)...)
	records = append(records, recordsOn("NVDA", jan(2), 0.9)...)
	records = append(records, recordsOn("NVDA", jan(3), 0.9, 0.9)...)
	records = append(records, recordsOn("NVDA", jan(4), 0.9)...)
	prices := NewPriceSeries([]domain.PricePoint{
		price("NVDA", jan(1), 10),
		price("NVDA", jan(4), 20),
	})

	patterns := d.Detect(BuildSentimentSeries("NVDA", records), prices)
	// window 1..2 has two mentions and is dropped; 2..3 has three.
	require.Len(t, patterns, 1)
	assert.Equal(t, jan(2), patterns[0].WindowStart)
	assert.Equal(t, 3, patterns[0].MentionCount)
}

func TestWindowCountAtBoundary(t *testing.T) {
	d := newTestDetector(t)
	prices := NewPriceSeries([]domain.PricePoint{price("AMD", jan(1), 100), price("AMD", jan(9), 120)})

	var exact []domain.SentimentRecord
	for day := 1; day <= 7; day++ {
		exact = append(exact, recordsOn("AMD", jan(day), 0.5)...)
	}
	series := BuildSentimentSeries("AMD", exact)
	assert.Empty(t, d.Windows(series), "no end marker exists with exactly WindowDays dates")
	assert.Empty(t, d.Detect(series, prices))

	plusOne := append(exact, recordsOn("AMD", jan(8), 0.5)...)
	series = BuildSentimentSeries("AMD", plusOne)
	assert.Len(t, d.Windows(series), 1)
	assert.Len(t, d.Detect(series, prices), 1)
}

func TestWindowsUseSentimentDatesNotCalendarDays(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WindowDays = 2
	cfg.MinMentions = 1
	d, err := NewDetector(cfg)
	require.NoError(t, err)

	var records []domain.SentimentRecord
	for _, day := range []int{1, 5, 20} {
		records = append(records, recordsOn("PLTR", jan(day), 0.4)...)
	}
	windows := d.Windows(BuildSentimentSeries("PLTR", records))
	require.Len(t, windows, 1)
	assert.Equal(t, jan(1), windows[0].StartDate)
	assert.Equal(t, jan(20), windows[0].EndDate)
	assert.Equal(t, 2, windows[0].MentionCount)
}

func TestClassifyThresholdsAreStrict(t *testing.T) {
	d := newTestDetector(t)
	cases := []struct {
		name   string
		avg    float64
		change float64
		want   domain.Classification
	}{
		{"bullish", 0.31, 5.1, domain.ClassificationBullish},
		{"bearish", -0.31, -5.1, domain.ClassificationBearish},
		{"sentiment on threshold", 0.3, 10, domain.ClassificationNeutral},
		{"change on threshold", 0.9, 5, domain.ClassificationNeutral},
		{"disagreeing directions", 0.9, -20, domain.ClassificationNeutral},
		{"flat", 0, 0, domain.ClassificationNeutral},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, d.Classify(tc.avg, tc.change))
			assert.Equal(t, tc.want, d.Classify(tc.avg, tc.change))
		})
	}
}

func TestAdjacentWindowsShiftByOneDate(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	cfg := DefaultConfig()
	cfg.WindowDays = 4
	cfg.MinMentions = 1
	d, err := NewDetector(cfg)
	require.NoError(t, err)

	var records []domain.SentimentRecord
	day := 1
	for i := 0; i < 20; i++ {
		day += 1 + rng.Intn(2)
		if day > 31 {
			break
		}
		n := 1 + rng.Intn(4)
		scores := make([]float64, n)
		for j := range scores {
			scores[j] = rng.Float64()*2 - 1
		}
		records = append(records, recordsOn("MSFT", jan(day), scores...)...)
	}

	series := BuildSentimentSeries("MSFT", records)
	dates := series.Dates()
	windows := d.Windows(series)
	require.Len(t, windows, len(dates)-cfg.WindowDays)

	for i := 0; i+1 < len(windows); i++ {
		dropped := len(series.Scores(dates[i]))
		want := append([]float64{}, windows[i].MemberScores[dropped:]...)
		want = append(want, series.Scores(dates[i+cfg.WindowDays])...)
		assert.Equal(t, want, windows[i+1].MemberScores, "window %d", i+1)

		c := Confidence(windows[i].MemberScores)
		assert.GreaterOrEqual(t, c, 0.0)
		assert.LessOrEqual(t, c, 1.0)
	}
}
