package yahoo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sector-flow/internal/model"
	"sector-flow/internal/provider"
)

func TestPeriodFor(t *testing.T) {
	assert.Equal(t, "5d", periodFor(2*24*time.Hour))
	assert.Equal(t, "1mo", periodFor(20*24*time.Hour))
	assert.Equal(t, "1y", periodFor(364*24*time.Hour))
	assert.Equal(t, "2y", periodFor(400*24*time.Hour))
	assert.Equal(t, "max", periodFor(10*365*24*time.Hour))
}

func TestGetDailyBarsFiltersBeforeSince(t *testing.T) {
	now := time.Date(2025, 3, 14, 20, 0, 0, 0, time.UTC)
	var gotPeriod string
	c := &Client{
		now: func() time.Time { return now },
		history: func(symbol, period string) ([]model.Bar, error) {
			gotPeriod = period
			return []model.Bar{
				{Date: time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC), Close: 1},
				{Date: time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC), Close: 2},
				{Date: time.Date(2025, 3, 13, 0, 0, 0, 0, time.UTC), Close: 3},
			}, nil
		},
	}
	bars, err := c.GetDailyBars(context.Background(), "XLK", time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, 2.0, bars[0].Close)
	assert.Equal(t, "5d", gotPeriod)
}

func TestGetDailyBarsClassifiesUnknownSymbol(t *testing.T) {
	c := &Client{
		now:     time.Now,
		history: func(string, string) ([]model.Bar, error) { return nil, errors.New("No data found, symbol may be delisted") },
	}
	_, err := c.GetDailyBars(context.Background(), "ZZZZ", time.Now())
	assert.ErrorIs(t, err, provider.ErrPermanent)

	c.history = func(string, string) ([]model.Bar, error) { return nil, errors.New("EOF") }
	_, err = c.GetDailyBars(context.Background(), "XLK", time.Now())
	require.Error(t, err)
	assert.NotErrorIs(t, err, provider.ErrPermanent)
}

func TestGetDailyBarsRespectsContext(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	c := &Client{
		now: time.Now,
		history: func(string, string) ([]model.Bar, error) {
			<-block
			return nil, nil
		},
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := c.GetDailyBars(ctx, "XLK", time.Now())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
