package model

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// DateLayout is the civil-date format used in files, logs and the snapshot.
const DateLayout = "2006-01-02"

// Bar represents one daily OHLCV bar.
// Shared by providers, the bar store and the indicator engine.
type Bar struct {
	Date        time.Time `json:"date"` // trading day at 00:00 UTC
	Open        float64   `json:"o"`
	High        float64   `json:"h"`
	Low         float64   `json:"l"`
	Close       float64   `json:"c"`
	Volume      float64   `json:"v"`
	Provisional bool      `json:"provisional,omitempty"` // session not confirmed closed when stored
}

// ErrInvalidBar is wrapped by Validate for every integrity anomaly.
var ErrInvalidBar = errors.New("invalid bar")

// Day truncates t to its civil date at 00:00 UTC. The year, month and day are
// taken from t's own location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DateString formats the bar date.
func (b Bar) DateString() string {
	return b.Date.Format(DateLayout)
}

// Validate checks price ordering, finiteness and non-negative volume.
func (b Bar) Validate() error {
	for _, v := range []float64{b.Open, b.High, b.Low, b.Close, b.Volume} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s non-finite value", ErrInvalidBar, b.DateString())
		}
	}
	if b.Volume < 0 {
		return fmt.Errorf("%w: %s negative volume %v", ErrInvalidBar, b.DateString(), b.Volume)
	}
	if b.Low < 0 {
		return fmt.Errorf("%w: %s negative low %v", ErrInvalidBar, b.DateString(), b.Low)
	}
	if b.High < b.Low {
		return fmt.Errorf("%w: %s high %v < low %v", ErrInvalidBar, b.DateString(), b.High, b.Low)
	}
	if b.High < math.Max(b.Open, b.Close) || b.Low > math.Min(b.Open, b.Close) {
		return fmt.Errorf("%w: %s open/close outside high-low range", ErrInvalidBar, b.DateString())
	}
	return nil
}
