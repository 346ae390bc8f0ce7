package provider

import (
	"context"
	"errors"
	"time"

	"sector-flow/internal/model"
)

// ErrPermanent marks fetch failures that retrying cannot fix (unknown symbol, bad key, 4xx).
var ErrPermanent = errors.New("permanent provider error")

// DataProvider is the abstraction used by the application when accessing a data source.
// Implementations are responsible for their own resource cleanup.
type DataProvider interface {
	GetName() string
	Close() error
}

// MarketData returns daily bars for a symbol from since (inclusive) up to the latest
// bar the source has, ascending by date. The latest bar may belong to a session that
// is still open; callers classify it.
type MarketData interface {
	DataProvider
	GetDailyBars(ctx context.Context, symbol string, since time.Time) ([]model.Bar, error)
}
