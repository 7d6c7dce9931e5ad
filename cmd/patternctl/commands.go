package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"sentiment-pattern-bot/internal/domain"
	"sentiment-pattern-bot/internal/pattern"
	"sentiment-pattern-bot/internal/sentiment"

	"github.com/spf13/cobra"
)

type inputFlags struct {
	recordsPath string
	pricesPath  string
	cfg         pattern.Config
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "patternctl",
		Short:         "Offline sentiment/price pattern analysis",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newAnalyzeCmd(), newCorrelateCmd(), newScoreCmd())
	return root
}

func bindInputFlags(cmd *cobra.Command, in *inputFlags) {
	in.cfg = pattern.DefaultConfig()
	f := cmd.Flags()
	f.StringVar(&in.recordsPath, "records", "", "JSON array of sentiment records")
	f.StringVar(&in.pricesPath, "prices", "", "JSON array of daily price points")
	f.IntVar(&in.cfg.WindowDays, "window-days", in.cfg.WindowDays, "sentiment dates per window")
	f.IntVar(&in.cfg.MinMentions, "min-mentions", in.cfg.MinMentions, "minimum records per window")
	f.Float64Var(&in.cfg.PriceChangeThresholdPercent, "price-threshold", in.cfg.PriceChangeThresholdPercent, "price change percent for a directional pattern")
	f.Float64Var(&in.cfg.SentimentThreshold, "sentiment-threshold", in.cfg.SentimentThreshold, "absolute average sentiment for a directional pattern")
	f.Float64Var(&in.cfg.ConfidenceSignalThreshold, "confidence-threshold", in.cfg.ConfidenceSignalThreshold, "minimum confidence for a signal")
	f.Float64Var(&in.cfg.CorrelationThreshold, "correlation-threshold", in.cfg.CorrelationThreshold, "minimum correlation score to report")
	_ = cmd.MarkFlagRequired("records")
	_ = cmd.MarkFlagRequired("prices")
}

func (in *inputFlags) load() ([]domain.SentimentRecord, []domain.PricePoint, error) {
	if err := in.cfg.Validate(); err != nil {
		return nil, nil, err
	}
	var records []domain.SentimentRecord
	if err := readJSON(in.recordsPath, &records); err != nil {
		return nil, nil, fmt.Errorf("records: %w", err)
	}
	var points []domain.PricePoint
	if err := readJSON(in.pricesPath, &points); err != nil {
		return nil, nil, fmt.Errorf("prices: %w", err)
	}
	return records, points, nil
}

type analyzeOutput struct {
	*pattern.Analysis
	Signals []domain.Signal `json:"signals"`
}

func newAnalyzeCmd() *cobra.Command {
	var in inputFlags
	var symbol string

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Detect patterns and signals for one symbol",
		RunE: func(cmd *cobra.Command, args []string) error {
			records, points, err := in.load()
			if err != nil {
				return err
			}
			analysis, err := pattern.Analyze(symbol, records, points, in.cfg)
			if err != nil {
				return err
			}
			signals := analysis.Signals(in.cfg.ConfidenceSignalThreshold)
			if signals == nil {
				signals = []domain.Signal{}
			}
			return writeJSON(cmd.OutOrStdout(), analyzeOutput{Analysis: analysis, Signals: signals})
		},
	}
	bindInputFlags(cmd, &in)
	cmd.Flags().StringVar(&symbol, "symbol", "", "ticker to analyse")
	_ = cmd.MarkFlagRequired("symbol")
	return cmd
}

func newCorrelateCmd() *cobra.Command {
	var in inputFlags

	cmd := &cobra.Command{
		Use:   "correlate",
		Short: "Rank every symbol in the records file by sentiment/price correlation",
		RunE: func(cmd *cobra.Command, args []string) error {
			records, points, err := in.load()
			if err != nil {
				return err
			}
			detector, err := pattern.NewDetector(in.cfg)
			if err != nil {
				return err
			}

			analyses := make([]*pattern.Analysis, 0)
			for _, symbol := range symbolsOf(records) {
				analyses = append(analyses, detector.Analyze(symbol, records, points))
			}
			ranked := pattern.RankCorrelations(analyses, in.cfg.CorrelationThreshold)
			if ranked == nil {
				ranked = []pattern.Correlation{}
			}
			return writeJSON(cmd.OutOrStdout(), ranked)
		},
	}
	bindInputFlags(cmd, &in)
	return cmd
}

func newScoreCmd() *cobra.Command {
	var watchlist []string

	cmd := &cobra.Command{
		Use:   "score [text...]",
		Short: "Extract tickers and keyword sentiment from text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			score, label, reason := sentiment.HeuristicSentiment(text)
			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"symbols": sentiment.NewSymbolExtractor(watchlist).Extract("", text, ""),
				"score":   score,
				"label":   label,
				"reason":  reason,
			})
		},
	}
	cmd.Flags().StringSliceVar(&watchlist, "watchlist", nil, "extra tickers to recognise")
	return cmd
}

func symbolsOf(records []domain.SentimentRecord) []string {
	seen := make(map[string]struct{})
	for _, r := range records {
		if s := strings.ToUpper(strings.TrimSpace(r.Symbol)); s != "" {
			seen[s] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func readJSON(path string, dst any) error {
	var r io.Reader
	if path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}
	return json.NewDecoder(r).Decode(dst)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
