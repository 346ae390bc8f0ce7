package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"sector-flow/internal/model"
)

// RetryPolicy bounds each GetDailyBars call.
type RetryPolicy struct {
	Timeout         time.Duration // per attempt
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryPolicy: 20s per attempt, 3 retries starting at 2s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Timeout:         20 * time.Second,
		MaxRetries:      3,
		InitialInterval: 2 * time.Second,
		MaxInterval:     30 * time.Second,
	}
}

// Retrying wraps a MarketData with per-attempt timeouts and exponential backoff.
// Errors wrapping ErrPermanent are returned immediately.
type Retrying struct {
	MarketData
	Policy RetryPolicy
	Logger *slog.Logger
}

// WithRetry decorates md with policy.
func WithRetry(md MarketData, policy RetryPolicy) *Retrying {
	return &Retrying{MarketData: md, Policy: policy}
}

func (r *Retrying) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(r.Policy.InitialInterval),
		backoff.WithMaxInterval(r.Policy.MaxInterval),
		backoff.WithMaxElapsedTime(0),
	)
	return backoff.WithContext(backoff.WithMaxRetries(b, r.Policy.MaxRetries), ctx)
}

// GetDailyBars retries transient failures of the wrapped provider.
func (r *Retrying) GetDailyBars(ctx context.Context, symbol string, since time.Time) ([]model.Bar, error) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	attempt := 0
	op := func() ([]model.Bar, error) {
		attempt++
		actx := ctx
		if r.Policy.Timeout > 0 {
			var cancel context.CancelFunc
			actx, cancel = context.WithTimeout(ctx, r.Policy.Timeout)
			defer cancel()
		}
		bars, err := r.MarketData.GetDailyBars(actx, symbol, since)
		if err != nil && errors.Is(err, ErrPermanent) {
			return nil, backoff.Permanent(err)
		}
		return bars, err
	}
	notify := func(err error, wait time.Duration) {
		logger.Warn("fetch retry", "provider", r.GetName(), "symbol", symbol, "attempt", attempt, "wait", wait, "error", err)
	}
	bars, err := backoff.RetryNotifyWithData(op, r.newBackOff(ctx), notify)
	if err != nil {
		return nil, fmt.Errorf("%s %s after %d attempts: %w", r.GetName(), symbol, attempt, err)
	}
	return bars, nil
}
