package provider

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"sector-flow/internal/model"
)

type mockMarketData struct {
	mock.Mock
}

func (m *mockMarketData) GetName() string { return "mock" }
func (m *mockMarketData) Close() error    { return nil }

func (m *mockMarketData) GetDailyBars(ctx context.Context, symbol string, since time.Time) ([]model.Bar, error) {
	args := m.Called(symbol, since)
	bars, _ := args.Get(0).([]model.Bar)
	return bars, args.Error(1)
}

func fastPolicy() RetryPolicy {
	return RetryPolicy{Timeout: time.Second, MaxRetries: 2, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}
}

func TestRetryRecoversFromTransientError(t *testing.T) {
	since := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	want := []model.Bar{{Date: since, Close: 10}}
	md := &mockMarketData{}
	md.On("GetDailyBars", "XLK", since).Return(nil, errors.New("connection reset")).Once()
	md.On("GetDailyBars", "XLK", since).Return(want, nil).Once()

	got, err := WithRetry(md, fastPolicy()).GetDailyBars(context.Background(), "XLK", since)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	md.AssertNumberOfCalls(t, "GetDailyBars", 2)
}

func TestRetryGivesUpAfterMaxRetries(t *testing.T) {
	md := &mockMarketData{}
	md.On("GetDailyBars", "XLK", mock.Anything).Return(nil, errors.New("timeout"))

	_, err := WithRetry(md, fastPolicy()).GetDailyBars(context.Background(), "XLK", time.Time{})
	require.Error(t, err)
	md.AssertNumberOfCalls(t, "GetDailyBars", 3)
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	md := &mockMarketData{}
	md.On("GetDailyBars", "NOPE", mock.Anything).Return(nil, fmt.Errorf("status 404: %w", ErrPermanent))

	_, err := WithRetry(md, fastPolicy()).GetDailyBars(context.Background(), "NOPE", time.Time{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPermanent)
	md.AssertNumberOfCalls(t, "GetDailyBars", 1)
}

func TestRetryHonoursCancelledContext(t *testing.T) {
	md := &mockMarketData{}
	md.On("GetDailyBars", "XLK", mock.Anything).Return(nil, errors.New("timeout"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := WithRetry(md, fastPolicy()).GetDailyBars(ctx, "XLK", time.Time{})
	require.Error(t, err)
	md.AssertNumberOfCalls(t, "GetDailyBars", 1)
}
