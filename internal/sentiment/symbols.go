package sentiment

import (
	"regexp"
	"sort"
	"strings"
)

var (
	cashtagRx = regexp.MustCompile(`\$([A-Za-z]{1,5})\b`)
	tickerRx  = regexp.MustCompile(`\b[A-Z]{2,5}\b`)
)

// commonSymbols are tickers accepted as bare upper-case words.
var commonSymbols = []string{
	"AAPL", "MSFT", "GOOGL", "GOOG", "AMZN", "TSLA", "META", "NVDA", "JPM", "JNJ",
	"WMT", "INTC", "CSCO", "AMD", "NFLX", "PYPL", "CRM", "ADBE", "COST", "UBER",
	"GME", "AMC", "PLTR", "BB", "COIN", "RIOT", "MARA", "CLOV", "NIO", "SOFI",
	"LCID", "RIVN", "SPY", "QQQ", "IWM", "DIA", "LYFT", "NKLA", "TLRY", "SNDL",
	"MSTR", "SMCI", "ARM", "AVGO", "MU", "DIS", "BABA", "HOOD", "RDDT",
}

// stopwords look like tickers but are ordinary words or finance jargon.
var stopwords = map[string]struct{}{
	"THE": {}, "AND": {}, "FOR": {}, "ARE": {}, "YOU": {}, "THIS": {}, "THAT": {},
	"IS": {}, "WITH": {}, "ON": {}, "AT": {}, "BY": {}, "FROM": {}, "OF": {}, "IN": {},
	"TO": {}, "AS": {}, "IT": {}, "BE": {}, "AN": {}, "OR": {}, "IF": {}, "BUT": {},
	"NOT": {}, "ALL": {}, "CEO": {}, "CFO": {}, "IPO": {}, "ETF": {}, "SEC": {},
	"FDA": {}, "IRS": {}, "AI": {}, "DD": {}, "YOLO": {}, "FOMO": {}, "ATH": {},
	"EPS": {}, "USD": {}, "WSB": {}, "IMO": {}, "EOD": {}, "OTM": {}, "ITM": {},
	"LOL": {}, "GDP": {}, "CPI": {}, "FED": {}, "TLDR": {}, "EDIT": {},
}

var nameAlias = map[string]string{
	"tesla":     "TSLA",
	"nvidia":    "NVDA",
	"gamestop":  "GME",
	"palantir":  "PLTR",
	"microsoft": "MSFT",
	"alphabet":  "GOOGL",
	"amazon":    "AMZN",
	"apple":     "AAPL",
	"netflix":   "NFLX",
}

var subredditHint = map[string]string{
	"superstonk":         "GME",
	"teslamotors":        "TSLA",
	"teslainvestorsclub": "TSLA",
	"amd_stock":          "AMD",
	"nvda_stock":         "NVDA",
	"pltr":               "PLTR",
	"amcstock":           "AMC",
}

// SymbolExtractor finds ticker mentions in free text. Cashtags are always
// trusted; bare upper-case words only when they are known tickers.
type SymbolExtractor struct {
	known map[string]struct{}
}

// NewSymbolExtractor treats the watchlist as known tickers alongside the
// built-in list.
func NewSymbolExtractor(watchlist []string) *SymbolExtractor {
	known := make(map[string]struct{}, len(commonSymbols)+len(watchlist))
	for _, s := range commonSymbols {
		known[s] = struct{}{}
	}
	for _, s := range watchlist {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s != "" {
			known[s] = struct{}{}
		}
	}
	return &SymbolExtractor{known: known}
}

// Extract returns the sorted, de-duplicated tickers mentioned in the title,
// body or implied by the subreddit.
func (e *SymbolExtractor) Extract(subreddit, title, body string) []string {
	text := title + " " + body
	matched := make(map[string]struct{}, 4)

	for _, m := range cashtagRx.FindAllStringSubmatch(text, -1) {
		token := strings.ToUpper(m[1])
		if _, stop := stopwords[token]; stop {
			continue
		}
		matched[token] = struct{}{}
	}

	for _, token := range tickerRx.FindAllString(text, -1) {
		if _, ok := e.known[token]; ok {
			matched[token] = struct{}{}
		}
	}

	lower := strings.ToLower(text)
	for name, symbol := range nameAlias {
		if containsWord(lower, name) {
			matched[symbol] = struct{}{}
		}
	}

	if symbol, ok := subredditHint[strings.ToLower(strings.TrimSpace(subreddit))]; ok {
		matched[symbol] = struct{}{}
	}

	if len(matched) == 0 {
		return nil
	}
	out := make([]string, 0, len(matched))
	for symbol := range matched {
		out = append(out, symbol)
	}
	sort.Strings(out)
	return out
}

func containsWord(text, word string) bool {
	for start := 0; start < len(text); {
		i := strings.Index(text[start:], word)
		if i < 0 {
			return false
		}
		idx := start + i
		end := idx + len(word)
		if (idx == 0 || !isLetter(text[idx-1])) && (end == len(text) || !isLetter(text[end])) {
			return true
		}
		start = idx + 1
	}
	return false
}

func isLetter(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
}
