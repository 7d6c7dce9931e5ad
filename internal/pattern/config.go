package pattern

import (
	"errors"
	"fmt"
	"math"
)

var ErrInvalidConfig = errors.New("invalid pattern config")

// Config holds every tunable of the detector. A zero Config is invalid; start
// from DefaultConfig and override.
type Config struct {
	WindowDays                  int     `yaml:"window_days" json:"window_days"`
	MinMentions                 int     `yaml:"min_mentions" json:"min_mentions"`
	PriceChangeThresholdPercent float64 `yaml:"price_change_threshold_percent" json:"price_change_threshold_percent"`
	SentimentThreshold          float64 `yaml:"sentiment_threshold" json:"sentiment_threshold"`
	ConfidenceSignalThreshold   float64 `yaml:"confidence_signal_threshold" json:"confidence_signal_threshold"`
	CorrelationThreshold        float64 `yaml:"correlation_threshold" json:"correlation_threshold"`
}

func DefaultConfig() Config {
	return Config{
		WindowDays:                  7,
		MinMentions:                 5,
		PriceChangeThresholdPercent: 5,
		SentimentThreshold:          0.3,
		ConfidenceSignalThreshold:   0.7,
		CorrelationThreshold:        0.6,
	}
}

func (c Config) Validate() error {
	if c.WindowDays <= 0 {
		return fmt.Errorf("%w: window_days must be positive, got %d", ErrInvalidConfig, c.WindowDays)
	}
	if c.MinMentions <= 0 {
		return fmt.Errorf("%w: min_mentions must be positive, got %d", ErrInvalidConfig, c.MinMentions)
	}
	if !finite(c.PriceChangeThresholdPercent) || c.PriceChangeThresholdPercent < 0 {
		return fmt.Errorf("%w: price_change_threshold_percent must be a non-negative number, got %v", ErrInvalidConfig, c.PriceChangeThresholdPercent)
	}
	if !finite(c.SentimentThreshold) || c.SentimentThreshold < 0 || c.SentimentThreshold >= 1 {
		return fmt.Errorf("%w: sentiment_threshold must be in [0,1), got %v", ErrInvalidConfig, c.SentimentThreshold)
	}
	if !finite(c.ConfidenceSignalThreshold) || c.ConfidenceSignalThreshold < 0 || c.ConfidenceSignalThreshold > 1 {
		return fmt.Errorf("%w: confidence_signal_threshold must be in [0,1], got %v", ErrInvalidConfig, c.ConfidenceSignalThreshold)
	}
	if !finite(c.CorrelationThreshold) || c.CorrelationThreshold < 0 {
		return fmt.Errorf("%w: correlation_threshold must be a non-negative number, got %v", ErrInvalidConfig, c.CorrelationThreshold)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
