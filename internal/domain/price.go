package domain

import (
	"time"

	"cloud.google.com/go/civil"
)

// PricePoint is a single daily OHLCV bar for a symbol.
type PricePoint struct {
	Symbol string     `json:"symbol"`
	Date   civil.Date `json:"date"`
	Open   float64    `json:"open"`
	High   float64    `json:"high"`
	Low    float64    `json:"low"`
	Close  float64    `json:"close"`
	Volume int64      `json:"volume"`
}

// DateOf truncates t to its UTC calendar day. Every date key in the system is
// derived through this function so sentiment and price series line up.
func DateOf(t time.Time) civil.Date {
	return civil.DateOf(t.UTC())
}

// DefaultWatchlist lists the symbols analysed when no watchlist is configured.
var DefaultWatchlist = []string{
	"AAPL", "AMD", "AMZN", "GME", "GOOGL",
	"META", "MSFT", "NVDA", "PLTR", "TSLA",
}

// SupportedHistoryRanges are the Yahoo chart ranges accepted for daily history.
var SupportedHistoryRanges = []string{"1mo", "3mo", "6mo", "1y", "2y"}
