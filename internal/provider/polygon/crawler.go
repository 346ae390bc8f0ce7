package polygon

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"sector-flow/internal/model"
	"sector-flow/internal/provider"
)

const (
	// Max 50k results per request; a daily range never comes close.
	maxLimit = 50000

	// KeyCooldownSec: Polygon 5 req/min => 12s between requests per key
	KeyCooldownSec = 12

	defaultBaseURL = "https://api.polygon.io"
)

// LogFunc emits a log line. When set, used instead of slog (fan-in logger).
type LogFunc func(msg string)

// Crawler fetches daily aggregates from the Polygon REST API using a pool of keys.
type Crawler struct {
	client  *http.Client
	baseURL string
	pool    *KeyPool
	nyLoc   *time.Location
	LogFunc LogFunc
}

var _ provider.MarketData = (*Crawler)(nil)

func (c *Crawler) logf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if c.LogFunc != nil {
		c.LogFunc(msg)
	} else {
		slog.Debug(msg)
	}
}

// GetName returns provider name
func (c *Crawler) GetName() string { return "Polygon" }

// Close closes connections
func (c *Crawler) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

// buildDailyAggregatesRequest builds GET request for 1-day aggregates (unadjusted, limit, sort, apiKey).
func (c *Crawler) buildDailyAggregatesRequest(ctx context.Context, ticker string, from, to time.Time, apiKey string) (*http.Request, error) {
	rawURL := fmt.Sprintf("%s/v2/aggs/ticker/%s/range/1/day/%s/%s",
		c.baseURL, url.PathEscape(ticker), from.Format(model.DateLayout), to.Format(model.DateLayout))
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse URL: %w", err)
	}
	q := u.Query()
	q.Set("adjusted", "false")
	q.Set("limit", strconv.Itoa(maxLimit))
	q.Set("sort", "asc")
	q.Set("apiKey", apiKey)
	u.RawQuery = q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	return req, nil
}

// doAggregatesRequest runs one GET request. Retrying is left to the caller;
// 4xx other than 429 are marked permanent.
func (c *Crawler) doAggregatesRequest(req *http.Request) (*AggregatesResponse, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		if resp.StatusCode == http.StatusTooManyRequests {
			return nil, fmt.Errorf("API rate limit (429): %s", strings.TrimSpace(string(body)))
		}
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return nil, fmt.Errorf("API status %d: %s: %w", resp.StatusCode, strings.TrimSpace(string(body)), provider.ErrPermanent)
		}
		return nil, fmt.Errorf("API status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var result AggregatesResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("parse JSON: %w", err)
	}
	switch result.Status {
	case "OK", "DELAYED":
		return &result, nil
	default:
		return nil, fmt.Errorf("API status not OK: %s", result.Status)
	}
}

// GetDailyBars fetches daily bars for ticker from since through today (exchange time).
// A key is held for the single request and returned to the pool after its cooldown.
func (c *Crawler) GetDailyBars(ctx context.Context, ticker string, since time.Time) ([]model.Bar, error) {
	from := model.Day(since)
	to := model.Day(time.Now().In(c.nyLoc))
	if from.After(to) {
		return nil, nil
	}

	key, err := c.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("wait for key: %w", err)
	}
	defer c.pool.Return(key)
	c.logf("[%s] daily aggs %s..%s (key=%s...)", ticker, from.Format(model.DateLayout), to.Format(model.DateLayout), keyPrefix(key))

	req, err := c.buildDailyAggregatesRequest(ctx, ticker, from, to, key)
	if err != nil {
		return nil, err
	}
	response, err := c.doAggregatesRequest(req)
	if err != nil {
		return nil, fmt.Errorf("polygon %s: %w", ticker, err)
	}

	bars := make([]model.Bar, 0, len(response.Results))
	for _, raw := range response.Results {
		bars = append(bars, raw.ToBar(c.nyLoc))
	}
	c.logf("[%s] got %d bars", ticker, len(bars))
	return bars, nil
}
