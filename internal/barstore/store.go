package barstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"sector-flow/internal/model"
	"sector-flow/internal/saver"
)

// ErrOutOfOrder is returned for bars that would break strictly increasing dates.
var ErrOutOfOrder = errors.New("bar out of order")

// Store keeps one file per instrument under Dir: {Dir}/{SYMBOL}.{ext}.
type Store struct {
	Dir   string
	Codec saver.BarCodec
}

// New creates the store directory if needed.
func New(dir string, codec saver.BarCodec) (*Store, error) {
	if codec == nil {
		return nil, errors.New("bar store: nil codec")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("bar store: create dir: %w", err)
	}
	return &Store{Dir: dir, Codec: codec}, nil
}

// Path returns the file backing symbol.
func (s *Store) Path(symbol string) string {
	return filepath.Join(s.Dir, strings.ToUpper(symbol)+"."+s.Codec.Extension())
}

// Load returns the stored series for symbol, or nil when nothing is stored yet.
func (s *Store) Load(symbol string) ([]model.Bar, error) {
	path := s.Path(symbol)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	bars, err := s.Codec.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", symbol, err)
	}
	return bars, nil
}

// Save replaces the stored series for symbol. The file is written next to the
// target and renamed over it so readers never see a partial series.
func (s *Store) Save(symbol string, bars []model.Bar) error {
	path := s.Path(symbol)
	tmp := path + ".tmp"
	if err := s.Codec.Save(bars, tmp); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("save %s: %w", symbol, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("save %s: %w", symbol, err)
	}
	return nil
}

// MergeResult reports what Merge did with incoming bars.
type MergeResult struct {
	Bars      []model.Bar
	Appended  int
	Replaced  int
	Unchanged int
	Rejected  []error
}

// Changed reports whether the merged series differs from the stored one.
func (r MergeResult) Changed() bool {
	return r.Appended > 0 || r.Replaced > 0
}

// Merge folds incoming bars into stored. New dates are appended, a stored
// provisional bar is overwritten by the bar with the same date, and final bars
// are never rewritten. Invalid or out-of-order bars are rejected individually.
// Neither input slice is modified.
func Merge(stored, incoming []model.Bar) MergeResult {
	res := MergeResult{Bars: append(make([]model.Bar, 0, len(stored)+len(incoming)), stored...)}
	index := make(map[int64]int, len(stored))
	for i, b := range stored {
		index[b.Date.Unix()] = i
	}

	var prev time.Time
	for _, b := range incoming {
		b.Date = model.Day(b.Date)
		if err := b.Validate(); err != nil {
			res.Rejected = append(res.Rejected, err)
			continue
		}
		if !prev.IsZero() && !b.Date.After(prev) {
			res.Rejected = append(res.Rejected, fmt.Errorf("%w: %s after %s", ErrOutOfOrder, b.DateString(), prev.Format(model.DateLayout)))
			continue
		}
		prev = b.Date

		if i, ok := index[b.Date.Unix()]; ok {
			if res.Bars[i].Provisional && res.Bars[i] != b {
				res.Bars[i] = b
				res.Replaced++
			} else {
				res.Unchanged++
			}
			continue
		}
		if n := len(res.Bars); n > 0 && !b.Date.After(res.Bars[n-1].Date) {
			res.Rejected = append(res.Rejected, fmt.Errorf("%w: %s before stored %s", ErrOutOfOrder, b.DateString(), res.Bars[n-1].DateString()))
			continue
		}
		index[b.Date.Unix()] = len(res.Bars)
		res.Bars = append(res.Bars, b)
		res.Appended++
	}
	return res
}

// FetchFrom returns the first date a provider must return to complete bars:
// the earliest provisional date, else the day after the last bar.
// ok is false for an empty series.
func FetchFrom(bars []model.Bar) (from time.Time, ok bool) {
	if len(bars) == 0 {
		return time.Time{}, false
	}
	for _, b := range bars {
		if b.Provisional {
			return b.Date, true
		}
	}
	return bars[len(bars)-1].Date.AddDate(0, 0, 1), true
}

// DropUnconfirmed removes provisional bars that a refetch skipped although it
// returned later dates, once closed reports their session as over.
// incoming is the raw refetch; bars is the merged series.
func DropUnconfirmed(bars, incoming []model.Bar, closed func(day time.Time) bool) (kept, dropped []model.Bar) {
	if len(incoming) == 0 {
		return bars, nil
	}
	seen := make(map[int64]bool, len(incoming))
	var latest time.Time
	for _, b := range incoming {
		day := model.Day(b.Date)
		seen[day.Unix()] = true
		if day.After(latest) {
			latest = day
		}
	}
	kept = make([]model.Bar, 0, len(bars))
	for _, b := range bars {
		if b.Provisional && !seen[b.Date.Unix()] && b.Date.Before(latest) && closed(b.Date) {
			dropped = append(dropped, b)
			continue
		}
		kept = append(kept, b)
	}
	return kept, dropped
}
