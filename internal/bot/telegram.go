package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"sentiment-pattern-bot/internal/domain"
	"sentiment-pattern-bot/internal/service"
	"sentiment-pattern-bot/pkg/logger"

	tele "gopkg.in/telebot.v3"
)

const (
	maxSignalsShown = 5
	commandTimeout  = 30 * time.Second
)

type Analyzer interface {
	Analyze(ctx context.Context, symbol string) (*service.Report, error)
	Signals(ctx context.Context, symbol string, limit int) ([]domain.Signal, error)
}

var newBot = tele.NewBot

// StartTelegramBot registers the command handlers and polls until ctx is
// cancelled. An empty token disables the bot.
func StartTelegramBot(ctx context.Context, token string, analyzer Analyzer) error {
	if token == "" {
		logger.Get().Info("TELEGRAM_BOT_TOKEN not set, skipping Telegram bot startup")
		return nil
	}
	b, err := newBot(tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	})
	if err != nil {
		return fmt.Errorf("create telegram bot: %w", err)
	}

	b.Handle("/ping", func(c tele.Context) error {
		return c.Send("pong")
	})
	b.Handle("/help", func(c tele.Context) error {
		return c.Send(helpText)
	})
	for _, cmd := range []string{"/signals", "/patterns"} {
		cmd := cmd
		b.Handle(cmd, func(c tele.Context) error {
			cctx, cancel := context.WithTimeout(ctx, commandTimeout)
			defer cancel()
			return c.Send(reply(cctx, analyzer, cmd, c.Args()))
		})
	}

	go func() {
		<-ctx.Done()
		b.Stop()
	}()
	logger.Get().Info("Telegram bot started")
	go b.Start()
	return nil
}

const helpText = "Commands:\n/signals TSLA - latest trade signals\n/patterns TSLA - sentiment pattern summary\n/ping"

// reply builds the response text for a symbol command.
func reply(ctx context.Context, analyzer Analyzer, cmd string, args []string) string {
	if len(args) == 0 {
		return fmt.Sprintf("Usage: %s TSLA", cmd)
	}
	if analyzer == nil {
		return "Analysis is not available right now."
	}
	symbol, err := service.NormalizeSymbol(args[0])
	if err != nil {
		return fmt.Sprintf("Unknown symbol: %s", args[0])
	}

	switch cmd {
	case "/signals":
		signals, err := analyzer.Signals(ctx, symbol, maxSignalsShown)
		if err != nil {
			return failure(symbol, err)
		}
		return formatSignals(symbol, signals)
	case "/patterns":
		report, err := analyzer.Analyze(ctx, symbol)
		if err != nil {
			return failure(symbol, err)
		}
		return formatReport(report)
	}
	return helpText
}

func failure(symbol string, err error) string {
	if errors.Is(err, service.ErrUnsupportedSymbol) {
		return fmt.Sprintf("Unknown symbol: %s", symbol)
	}
	logger.Get().Warnw("telegram command failed", "symbol", symbol, "error", err)
	return fmt.Sprintf("Could not analyse %s right now.", symbol)
}

func formatSignals(symbol string, signals []domain.Signal) string {
	if len(signals) == 0 {
		return fmt.Sprintf("No signals for %s.", symbol)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s signals\n", symbol)
	for i, s := range signals {
		if i == maxSignalsShown {
			break
		}
		fmt.Fprintf(&sb, "%s %s  conf %.0f%%  exp %+.2f%%\n",
			s.PatternDate, s.SignalType, s.Confidence*100, s.ExpectedReturn)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatReport(r *service.Report) string {
	if r == nil || r.Analysis == nil || r.Empty() {
		symbol := ""
		if r != nil && r.Analysis != nil {
			symbol = r.Symbol
		}
		return strings.TrimSpace(fmt.Sprintf("No sentiment patterns for %s yet.", symbol))
	}

	s := r.Summary
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %d patterns over %d-day windows (%d mentions)\n",
		r.Symbol, s.TotalPatterns, r.WindowDays, r.MentionCount)
	fmt.Fprintf(&sb, "Bullish %d  avg %+.2f%%\n", s.Bullish.Count, s.Bullish.AvgReturn)
	fmt.Fprintf(&sb, "Bearish %d  avg %+.2f%%\n", s.Bearish.Count, s.Bearish.AvgReturn)
	fmt.Fprintf(&sb, "Neutral %d\n", s.Neutral.Count)
	if ind := r.Indicators; ind != nil {
		fmt.Fprintf(&sb, "Last close %.2f", ind.LastClose)
		if ind.SMA20 != nil {
			fmt.Fprintf(&sb, "  SMA20 %.2f", *ind.SMA20)
		}
		if ind.RSI14 != nil {
			fmt.Fprintf(&sb, "  RSI14 %.1f", *ind.RSI14)
		}
		sb.WriteString("\n")
		if ind.MACD != nil && ind.MACDSignal != nil {
			fmt.Fprintf(&sb, "MACD %+.2f  signal %+.2f\n", *ind.MACD, *ind.MACDSignal)
		}
		if ind.BBLower != nil && ind.BBUpper != nil {
			fmt.Fprintf(&sb, "Bollinger %.2f .. %.2f\n", *ind.BBLower, *ind.BBUpper)
		}
	}
	fmt.Fprintf(&sb, "Signals: %d", len(r.Signals))
	return sb.String()
}
