package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"sentiment-pattern-bot/internal/metrics"
)

// getJSON performs a GET and returns the body of a 200 response. Non-200
// responses become errors carrying a truncated body.
func getJSON(ctx context.Context, client *http.Client, limiter *RateLimiter, providerName, endpoint, rawURL, userAgent string) (body []byte, err error) {
	start := time.Now()
	defer func() { metrics.RecordProviderCall(providerName, endpoint, time.Since(start), err) }()

	if err := limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s read body: %w", providerName, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s API error %d: %s", providerName, resp.StatusCode, sanitizeText(string(body), 200))
	}
	return body, nil
}

func sanitizeText(in string, maxLen int) string {
	in = strings.TrimSpace(in)
	if in == "" {
		return ""
	}
	in = strings.Join(strings.Fields(in), " ")
	if maxLen > 0 && len(in) > maxLen {
		in = in[:maxLen]
	}
	return in
}
