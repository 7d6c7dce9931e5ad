package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"sentiment-pattern-bot/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	redditBaseURL       = "https://www.reddit.com"
	defaultRedditUA     = "sentiment-pattern-bot/0.3 (stock sentiment research)"
	defaultRedditSize   = 40
	maxRedditListing    = 100
	redditTitleMaxLen   = 300
	redditBodyMaxLen    = 4000
	redditCommentMaxLen = 2000
)

type RedditProvider struct {
	client    *http.Client
	baseURL   string
	userAgent string
	limiter   *RateLimiter
	tracer    trace.Tracer
}

// NewRedditProvider uses Reddit's public JSON listings. limiter may be nil.
func NewRedditProvider(tracer trace.Tracer, limiter *RateLimiter) *RedditProvider {
	return &RedditProvider{
		client:    &http.Client{Timeout: 20 * time.Second},
		baseURL:   redditBaseURL,
		userAgent: defaultRedditUA,
		limiter:   limiter,
		tracer:    tracer,
	}
}

type redditListing struct {
	Data struct {
		Children []struct {
			Kind string          `json:"kind"`
			Data json.RawMessage `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditThing struct {
	ID          string  `json:"id"`
	Subreddit   string  `json:"subreddit"`
	Title       string  `json:"title"`
	SelfText    string  `json:"selftext"`
	Body        string  `json:"body"`
	Author      string  `json:"author"`
	CreatedUTC  float64 `json:"created_utc"`
	Permalink   string  `json:"permalink"`
	URL         string  `json:"url"`
	Score       float64 `json:"score"`
	NumComments float64 `json:"num_comments"`
	Stickied    bool    `json:"stickied"`
}

// FetchHot returns the subreddit's hot posts.
func (p *RedditProvider) FetchHot(ctx context.Context, subreddit string, limit int) ([]domain.ContentItem, error) {
	ctx, span := p.tracer.Start(ctx, "reddit.fetch-hot")
	defer span.End()

	subreddit = strings.TrimSpace(subreddit)
	if subreddit == "" {
		return nil, fmt.Errorf("subreddit is required")
	}
	limit = clampListing(limit)
	span.SetAttributes(attribute.String("reddit.subreddit", subreddit), attribute.Int("reddit.limit", limit))

	base := strings.TrimRight(p.baseURL, "/")
	u := fmt.Sprintf("%s/r/%s/hot.json?limit=%d", base, url.PathEscape(subreddit), limit)
	body, err := getJSON(ctx, p.client, p.limiter, "reddit", "hot", u, p.userAgent)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	var listing redditListing
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, fmt.Errorf("decode reddit response: %w", err)
	}

	items := make([]domain.ContentItem, 0, len(listing.Data.Children))
	for _, row := range listing.Data.Children {
		var data redditThing
		if err := json.Unmarshal(row.Data, &data); err != nil {
			continue
		}
		if strings.TrimSpace(data.ID) == "" || strings.TrimSpace(data.Title) == "" {
			continue
		}
		items = append(items, domain.ContentItem{
			Source:       domain.SourcePost,
			SourceItemID: data.ID,
			Subreddit:    firstNonEmpty(strings.TrimSpace(data.Subreddit), subreddit),
			Title:        sanitizeText(data.Title, redditTitleMaxLen),
			Body:         sanitizeText(data.SelfText, redditBodyMaxLen),
			Author:       sanitizeText(data.Author, 120),
			URL:          p.itemURL(data),
			PublishedAt:  time.Unix(int64(data.CreatedUTC), 0).UTC(),
			Metadata: map[string]any{
				"score":        data.Score,
				"num_comments": data.NumComments,
				"stickied":     data.Stickied,
			},
		})
	}
	return items, nil
}

// FetchComments returns up to limit top-level comments of a post. "more"
// placeholders and deleted comments are skipped.
func (p *RedditProvider) FetchComments(ctx context.Context, subreddit, postID string, limit int) ([]domain.ContentItem, error) {
	ctx, span := p.tracer.Start(ctx, "reddit.fetch-comments")
	defer span.End()

	subreddit = strings.TrimSpace(subreddit)
	postID = strings.TrimSpace(postID)
	if subreddit == "" || postID == "" {
		return nil, fmt.Errorf("subreddit and post id are required")
	}
	if limit <= 0 {
		return nil, nil
	}
	limit = clampListing(limit)
	span.SetAttributes(attribute.String("reddit.post_id", postID))

	base := strings.TrimRight(p.baseURL, "/")
	u := fmt.Sprintf("%s/r/%s/comments/%s.json?limit=%d&depth=1&sort=top",
		base, url.PathEscape(subreddit), url.PathEscape(postID), limit)
	body, err := getJSON(ctx, p.client, p.limiter, "reddit", "comments", u, p.userAgent)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	// The response is [post listing, comment listing].
	var listings []redditListing
	if err := json.Unmarshal(body, &listings); err != nil {
		return nil, fmt.Errorf("decode reddit comments: %w", err)
	}
	if len(listings) < 2 {
		return nil, nil
	}

	items := make([]domain.ContentItem, 0, limit)
	for _, row := range listings[1].Data.Children {
		if len(items) >= limit {
			break
		}
		if row.Kind != "t1" {
			continue
		}
		var data redditThing
		if err := json.Unmarshal(row.Data, &data); err != nil {
			continue
		}
		text := sanitizeText(data.Body, redditCommentMaxLen)
		if data.ID == "" || text == "" || text == "[deleted]" || text == "[removed]" {
			continue
		}
		items = append(items, domain.ContentItem{
			Source:       domain.SourceComment,
			SourceItemID: data.ID,
			Subreddit:    subreddit,
			Body:         text,
			Author:       sanitizeText(data.Author, 120),
			URL:          p.itemURL(data),
			PublishedAt:  time.Unix(int64(data.CreatedUTC), 0).UTC(),
			Metadata: map[string]any{
				"score":   data.Score,
				"post_id": postID,
			},
		})
	}
	return items, nil
}

func (p *RedditProvider) itemURL(data redditThing) string {
	if permalink := strings.TrimSpace(data.Permalink); permalink != "" {
		return strings.TrimRight(p.baseURL, "/") + permalink
	}
	return strings.TrimSpace(data.URL)
}

func clampListing(limit int) int {
	if limit <= 0 {
		return defaultRedditSize
	}
	if limit > maxRedditListing {
		return maxRedditListing
	}
	return limit
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
