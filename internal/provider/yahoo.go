package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"sentiment-pattern-bot/internal/domain"

	"cloud.google.com/go/civil"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	yahooBaseURL = "https://query1.finance.yahoo.com"
	yahooUA      = "Mozilla/5.0"
)

type YahooProvider struct {
	client  *http.Client
	baseURL string
	limiter *RateLimiter
	tracer  trace.Tracer
}

func NewYahooProvider(tracer trace.Tracer, limiter *RateLimiter) *YahooProvider {
	return &YahooProvider{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: yahooBaseURL,
		limiter: limiter,
		tracer:  tracer,
	}
}

type yahooChart struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol    string `json:"symbol"`
				GMTOffset int    `json:"gmtoffset"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []interface{} `json:"open"`
					High   []interface{} `json:"high"`
					Low    []interface{} `json:"low"`
					Close  []interface{} `json:"close"`
					Volume []interface{} `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func toFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return 0
	}
}

func at(values []interface{}, i int) float64 {
	if i < len(values) {
		return toFloat(values[i])
	}
	return 0
}

// FetchDailyHistory returns one PricePoint per trading day over rng
// (1mo, 3mo, 6mo, 1y, 2y), oldest first. Bars are dated in the exchange's
// local calendar; null bars (holidays, halts) are dropped.
func (p *YahooProvider) FetchDailyHistory(ctx context.Context, symbol, rng string) ([]domain.PricePoint, error) {
	ctx, span := p.tracer.Start(ctx, "yahoo.fetch-daily-history")
	defer span.End()

	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	if rng == "" {
		rng = "3mo"
	}
	span.SetAttributes(attribute.String("symbol", symbol), attribute.String("range", rng))

	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&range=%s",
		strings.TrimRight(p.baseURL, "/"), url.PathEscape(symbol), url.QueryEscape(rng))
	body, err := getJSON(ctx, p.client, p.limiter, "yahoo", "chart", u, yahooUA)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("yahoo fetch %s: %w", symbol, err)
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("yahoo decode: %w", err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo api error: %s", chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, nil
	}

	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	loc := time.FixedZone("exchange", result.Meta.GMTOffset)

	byDate := make(map[civil.Date]domain.PricePoint, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		o, h, l, c := at(quote.Open, i), at(quote.High, i), at(quote.Low, i), at(quote.Close, i)
		if c == 0 {
			continue
		}
		day := civil.DateOf(time.Unix(ts, 0).In(loc))
		byDate[day] = domain.PricePoint{
			Symbol: symbol,
			Date:   day,
			Open:   o,
			High:   h,
			Low:    l,
			Close:  c,
			Volume: int64(at(quote.Volume, i)),
		}
	}

	points := make([]domain.PricePoint, 0, len(byDate))
	for _, pt := range byDate {
		points = append(points, pt)
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
	span.SetAttributes(attribute.Int("points", len(points)))
	return points, nil
}
