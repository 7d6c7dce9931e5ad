package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"sentiment-pattern-bot/internal/domain"
	"sentiment-pattern-bot/internal/pattern"
	"sentiment-pattern-bot/pkg/logger"

	"gopkg.in/yaml.v3"
)

type Config struct {
	TelegramBotToken string
	DatabaseURL      string
	RedisURL         string
	APIKey           string
	HTTPAddr         string

	LogLevel string
	AppEnv   string

	OpenAIAPIKey string
	OpenAIModel  string

	RedditSubreddits      []string
	RedditPostLimit       int
	RedditCommentsPerPost int
	IngestPollSecs        int

	PricePollSecs     int
	PriceHistoryRange string

	PatternCron          string
	AnalysisWorkers      int
	AnalysisCacheTTLSecs int
	Watchlist            []string

	Pattern pattern.Config
}

// fileOverlay is the optional YAML file named by PATTERN_CONFIG_FILE.
// Environment variables still win over anything set here.
type fileOverlay struct {
	Watchlist  []string `yaml:"watchlist"`
	Subreddits []string `yaml:"subreddits"`
	Cron       string   `yaml:"cron"`
	Pattern    *struct {
		WindowDays                  *int     `yaml:"window_days"`
		MinMentions                 *int     `yaml:"min_mentions"`
		PriceChangeThresholdPercent *float64 `yaml:"price_change_threshold"`
		SentimentThreshold          *float64 `yaml:"sentiment_threshold"`
		ConfidenceSignalThreshold   *float64 `yaml:"confidence_threshold"`
		CorrelationThreshold        *float64 `yaml:"correlation_threshold"`
	} `yaml:"pattern"`
}

// Load reads the environment and the optional YAML overlay. Invalid pattern
// settings and an unreadable overlay are returned as errors.
func Load() (*Config, error) {
	log := logger.Get()

	cfg := &Config{
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         os.Getenv("REDIS_URL"),
		APIKey:           strings.TrimSpace(os.Getenv("API_KEY")),
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),

		RedditSubreddits: []string{"wallstreetbets"},
		Watchlist:        append([]string(nil), domain.DefaultWatchlist...),
		PatternCron:      "0 */6 * * *",
		Pattern:          pattern.DefaultConfig(),
	}

	if cfg.TelegramBotToken == "" {
		log.Warn("TELEGRAM_BOT_TOKEN not set, telegram bot disabled")
	}
	if cfg.DatabaseURL == "" {
		log.Warn("DATABASE_URL not set")
	}
	if cfg.RedisURL == "" {
		log.Warn("REDIS_URL not set, defaulting to localhost:6379")
		cfg.RedisURL = "localhost:6379"
	}
	if cfg.OpenAIAPIKey == "" {
		log.Warn("OPENAI_API_KEY not set, using keyword sentiment only")
	}

	cfg.HTTPAddr = envString("HTTP_ADDR", ":8080")
	cfg.LogLevel = envString("LOG_LEVEL", "info")
	cfg.AppEnv = envString("APP_ENV", "development")
	cfg.OpenAIModel = envString("OPENAI_MODEL", "gpt-4o-mini")

	cfg.RedditPostLimit = envPositiveInt("REDDIT_POST_LIMIT", 100)
	cfg.RedditCommentsPerPost = envNonNegativeInt("REDDIT_COMMENTS_PER_POST", 10)
	cfg.IngestPollSecs = envPositiveInt("INGEST_POLL_SECS", 900)
	cfg.PricePollSecs = envPositiveInt("PRICE_POLL_SECS", 3600)
	cfg.AnalysisWorkers = envPositiveInt("ANALYSIS_WORKERS", 4)
	cfg.AnalysisCacheTTLSecs = envPositiveInt("ANALYSIS_CACHE_TTL_SECS", 300)

	cfg.PriceHistoryRange = strings.ToLower(envString("PRICE_HISTORY_RANGE", "3mo"))
	if !supportedRange(cfg.PriceHistoryRange) {
		log.Warnf("unsupported PRICE_HISTORY_RANGE=%q, defaulting to 3mo", cfg.PriceHistoryRange)
		cfg.PriceHistoryRange = "3mo"
	}

	if path := strings.TrimSpace(os.Getenv("PATTERN_CONFIG_FILE")); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, fmt.Errorf("PATTERN_CONFIG_FILE %s: %w", path, err)
		}
	}

	if v := envList("REDDIT_SUBREDDITS", false); len(v) > 0 {
		cfg.RedditSubreddits = v
	}
	if v := envList("WATCHLIST", true); len(v) > 0 {
		cfg.Watchlist = v
	}
	cfg.PatternCron = envString("PATTERN_CRON", cfg.PatternCron)

	if err := cfg.applyPatternEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Pattern.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	var overlay fileOverlay
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	if len(overlay.Watchlist) > 0 {
		c.Watchlist = normalizeSymbols(overlay.Watchlist)
	}
	if len(overlay.Subreddits) > 0 {
		c.RedditSubreddits = overlay.Subreddits
	}
	if overlay.Cron != "" {
		c.PatternCron = overlay.Cron
	}
	if p := overlay.Pattern; p != nil {
		if p.WindowDays != nil {
			c.Pattern.WindowDays = *p.WindowDays
		}
		if p.MinMentions != nil {
			c.Pattern.MinMentions = *p.MinMentions
		}
		if p.PriceChangeThresholdPercent != nil {
			c.Pattern.PriceChangeThresholdPercent = *p.PriceChangeThresholdPercent
		}
		if p.SentimentThreshold != nil {
			c.Pattern.SentimentThreshold = *p.SentimentThreshold
		}
		if p.ConfidenceSignalThreshold != nil {
			c.Pattern.ConfidenceSignalThreshold = *p.ConfidenceSignalThreshold
		}
		if p.CorrelationThreshold != nil {
			c.Pattern.CorrelationThreshold = *p.CorrelationThreshold
		}
	}
	return nil
}

// applyPatternEnv overrides pattern settings from the environment. Values
// that do not parse are errors, not skipped.
func (c *Config) applyPatternEnv() error {
	ints := []struct {
		key string
		dst *int
	}{
		{"PATTERN_WINDOW_DAYS", &c.Pattern.WindowDays},
		{"PATTERN_MIN_MENTIONS", &c.Pattern.MinMentions},
	}
	for _, f := range ints {
		v := strings.TrimSpace(os.Getenv(f.key))
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not an integer", pattern.ErrInvalidConfig, f.key, v)
		}
		*f.dst = n
	}

	floats := []struct {
		key string
		dst *float64
	}{
		{"PATTERN_PRICE_CHANGE_THRESHOLD", &c.Pattern.PriceChangeThresholdPercent},
		{"PATTERN_SENTIMENT_THRESHOLD", &c.Pattern.SentimentThreshold},
		{"PATTERN_CONFIDENCE_THRESHOLD", &c.Pattern.ConfidenceSignalThreshold},
		{"CORRELATION_THRESHOLD", &c.Pattern.CorrelationThreshold},
	}
	for _, f := range floats {
		v := strings.TrimSpace(os.Getenv(f.key))
		if v == "" {
			continue
		}
		x, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not a number", pattern.ErrInvalidConfig, f.key, v)
		}
		*f.dst = x
	}
	return nil
}

func envString(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string) (int, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		logger.Warnf("invalid %s=%q, ignoring", key, v)
		return 0, false
	}
	return n, true
}

func envPositiveInt(key string, fallback int) int {
	if n, ok := envInt(key); ok && n > 0 {
		return n
	}
	return fallback
}

func envNonNegativeInt(key string, fallback int) int {
	if n, ok := envInt(key); ok && n >= 0 {
		return n
	}
	return fallback
}

func envList(key string, symbols bool) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	if symbols {
		return normalizeSymbols(parts)
	}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func normalizeSymbols(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToUpper(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "$")))
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func supportedRange(r string) bool {
	for _, s := range domain.SupportedHistoryRanges {
		if s == r {
			return true
		}
	}
	return false
}
