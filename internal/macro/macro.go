// Package macro collects macro-economic series and validates them before they are
// merged into the snapshot.
package macro

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"sector-flow/internal/model"
	"sector-flow/internal/universe"
)

// Observation is one dated value of a series.
type Observation struct {
	Date  time.Time
	Value float64
}

// Source returns the latest observations of a series, newest first.
type Source interface {
	Observations(ctx context.Context, id string, limit int) ([]Observation, error)
}

// Record is the snapshot entry for one series.
type Record struct {
	Series    string   `json:"series" validate:"required"`
	Indicator string   `json:"indicator" validate:"required"`
	Date      string   `json:"date" validate:"required,datetime=2006-01-02"`
	Value     float64  `json:"value"`
	Previous  *float64 `json:"previous,omitempty"`
	Change    *float64 `json:"change,omitempty"`
	Stale     bool     `json:"stale,omitempty"` // carried over from an earlier snapshot
}

var validate = validator.New()

// Validate checks required fields and that numbers are finite.
func (r Record) Validate() error {
	if err := validate.Struct(r); err != nil {
		return err
	}
	if math.IsNaN(r.Value) || math.IsInf(r.Value, 0) {
		return fmt.Errorf("series %s: non-finite value", r.Series)
	}
	return nil
}

// FromObservations builds a Record from newest-first observations.
func FromObservations(s universe.MacroSeries, obs []Observation) (Record, error) {
	if len(obs) == 0 {
		return Record{}, fmt.Errorf("series %s: no observations", s.ID)
	}
	r := Record{
		Series:    s.ID,
		Indicator: s.Name,
		Date:      obs[0].Date.Format(model.DateLayout),
		Value:     obs[0].Value,
	}
	if len(obs) > 1 {
		prev := obs[1].Value
		change := r.Value - prev
		r.Previous = &prev
		r.Change = &change
	}
	return r, r.Validate()
}

// Collector fetches all configured series in parallel.
type Collector struct {
	Source      Source
	Series      []universe.MacroSeries
	Limit       int // observations per series; 2 gives a change against the previous print
	Parallelism int
	Timeout     time.Duration
	Logger      *slog.Logger
}

// Collect returns one record per series. A series that fails is replaced by its
// entry in prior (marked stale) or omitted; the failure never aborts the others.
func (c *Collector) Collect(ctx context.Context, prior map[string]Record) (map[string]Record, []error) {
	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}
	out := make(map[string]Record, len(c.Series))
	if c.Source == nil {
		for id, r := range prior {
			r.Stale = true
			out[id] = r
		}
		return out, nil
	}

	records := make([]*Record, len(c.Series))
	errs := make([]error, len(c.Series))
	g, gctx := errgroup.WithContext(ctx)
	if c.Parallelism > 0 {
		g.SetLimit(c.Parallelism)
	}
	for i, s := range c.Series {
		g.Go(func() error {
			fctx := gctx
			if c.Timeout > 0 {
				var cancel context.CancelFunc
				fctx, cancel = context.WithTimeout(gctx, c.Timeout)
				defer cancel()
			}
			obs, err := c.Source.Observations(fctx, s.ID, max(c.Limit, 1))
			if err != nil {
				errs[i] = err
				return nil
			}
			r, err := FromObservations(s, obs)
			if err != nil {
				errs[i] = err
				return nil
			}
			records[i] = &r
			return nil
		})
	}
	g.Wait()

	var failed []error
	for i, s := range c.Series {
		if records[i] != nil {
			out[s.ID] = *records[i]
			continue
		}
		failed = append(failed, errs[i])
		if r, ok := prior[s.ID]; ok {
			r.Stale = true
			out[s.ID] = r
			logger.Warn("macro series fell back to previous snapshot", "series", s.ID, "date", r.Date, "error", errs[i])
		} else {
			logger.Warn("macro series unavailable", "series", s.ID, "error", errs[i])
		}
	}
	return out, failed
}
