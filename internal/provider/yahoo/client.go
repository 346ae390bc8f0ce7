// Package yahoo fetches daily bars through the go-yfinance client.
package yahoo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wnjoon/go-yfinance/pkg/models"
	"github.com/wnjoon/go-yfinance/pkg/ticker"

	"sector-flow/internal/model"
	"sector-flow/internal/provider"
)

// historyFunc fetches raw daily history for a period string ("5d", "1y", ...).
type historyFunc func(symbol, period string) ([]model.Bar, error)

// Client implements provider.MarketData against Yahoo Finance.
type Client struct {
	history historyFunc
	now     func() time.Time
}

var _ provider.MarketData = (*Client)(nil)

// New returns a Yahoo client.
func New() *Client {
	return &Client{history: fetchHistory, now: time.Now}
}

// GetName returns provider name
func (c *Client) GetName() string { return "Yahoo" }

// Close is a no-op; tickers are closed per request.
func (c *Client) Close() error { return nil }

// GetDailyBars fetches unadjusted daily bars from since (inclusive). go-yfinance has no
// context support, so the call runs in its own goroutine and is abandoned on ctx expiry.
func (c *Client) GetDailyBars(ctx context.Context, symbol string, since time.Time) ([]model.Bar, error) {
	period := periodFor(c.now().Sub(since))
	type result struct {
		bars []model.Bar
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		bars, err := c.history(symbol, period)
		ch <- result{bars, err}
	}()

	var r result
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("yahoo %s: %w", symbol, ctx.Err())
	case r = <-ch:
	}
	if r.err != nil {
		return nil, classify(symbol, r.err)
	}

	sinceDay := model.Day(since)
	out := make([]model.Bar, 0, len(r.bars))
	for _, b := range r.bars {
		if b.Date.Before(sinceDay) {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func fetchHistory(symbol, period string) ([]model.Bar, error) {
	t, err := ticker.New(symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to create ticker: %w", err)
	}
	defer t.Close()

	raw, err := t.History(models.HistoryParams{
		Period:     period,
		Interval:   "1d",
		AutoAdjust: false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get historical prices: %w", err)
	}
	bars := make([]model.Bar, 0, len(raw))
	for _, b := range raw {
		bars = append(bars, model.Bar{
			Date:   model.Day(b.Date),
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: float64(b.Volume),
		})
	}
	return bars, nil
}

// periodFor picks the smallest Yahoo range covering lookback.
func periodFor(lookback time.Duration) string {
	days := int(lookback.Hours()/24) + 1
	switch {
	case days <= 5:
		return "5d"
	case days <= 30:
		return "1mo"
	case days <= 90:
		return "3mo"
	case days <= 180:
		return "6mo"
	case days <= 365:
		return "1y"
	case days <= 730:
		return "2y"
	case days <= 1825:
		return "5y"
	default:
		return "max"
	}
}

// classify marks unknown-symbol responses as permanent so they are not retried.
func classify(symbol string, err error) error {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "not found") || strings.Contains(msg, "no data found") || strings.Contains(msg, "delisted") {
		return fmt.Errorf("yahoo %s: %v: %w", symbol, err, provider.ErrPermanent)
	}
	return fmt.Errorf("yahoo %s: %w", symbol, err)
}
