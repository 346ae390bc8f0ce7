// Package snapshot builds and persists the dashboard artifact.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"sector-flow/internal/macro"
	"sector-flow/internal/model"
	"sector-flow/internal/quadrant"
)

const (
	cmfPlaces = 4
	rsPlaces  = 2
)

// Instrument is the latest state of one instrument.
type Instrument struct {
	Symbol             string  `json:"symbol"`
	Name               string  `json:"name"`
	Group              string  `json:"group"`
	Date               string  `json:"date"`
	CMF21              float64 `json:"cmf21"`
	RSMomentum20       float64 `json:"rsMomentum20"`
	Quadrant           string  `json:"quadrant"`
	Color              string  `json:"color"`
	CMF21Change        float64 `json:"cmf21Change"`
	RSMomentum20Change float64 `json:"rsMomentum20Change"`
}

// Label recomputes the quadrant from the stored values. The stored Quadrant field is
// display output only.
func (i Instrument) Label() quadrant.Label {
	return quadrant.Classify(i.RSMomentum20, i.CMF21)
}

// Snapshot is the full artifact, replaced as a whole on every write.
type Snapshot struct {
	GeneratedAt time.Time               `json:"generatedAt"`
	AsOf        string                  `json:"asOf"`
	Benchmark   string                  `json:"benchmark"`
	Instruments map[string]Instrument   `json:"instruments"`
	Ranking     []string                `json:"ranking"`
	Macro       map[string]macro.Record `json:"macro"`
}

// Entry pairs universe metadata with the instrument's assessment.
type Entry struct {
	Instrument model.Instrument
	Assessment quadrant.Assessment
}

func round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

// Build assembles a snapshot. Values are rounded for display and the quadrant is
// derived from the rounded pair, so a reader re-deriving it from the artifact gets
// the same label.
func Build(now time.Time, benchmark string, entries []Entry, macroRecords map[string]macro.Record) *Snapshot {
	s := &Snapshot{
		GeneratedAt: now.UTC().Truncate(time.Second),
		Benchmark:   benchmark,
		Instruments: make(map[string]Instrument, len(entries)),
		Ranking:     []string{},
		Macro:       macroRecords,
	}
	if s.Macro == nil {
		s.Macro = map[string]macro.Record{}
	}
	assessments := make([]quadrant.Assessment, 0, len(entries))
	var asOf time.Time
	for _, e := range entries {
		a := e.Assessment
		a.Point.CMF21 = round(a.Point.CMF21, cmfPlaces)
		a.Point.RSMomentum20 = round(a.Point.RSMomentum20, rsPlaces)
		a.Label = quadrant.Classify(a.Point.RSMomentum20, a.Point.CMF21)
		s.Instruments[e.Instrument.Symbol] = Instrument{
			Symbol:             e.Instrument.Symbol,
			Name:               e.Instrument.Name,
			Group:              e.Instrument.Group,
			Date:               a.Point.Date.Format(model.DateLayout),
			CMF21:              a.Point.CMF21,
			RSMomentum20:       a.Point.RSMomentum20,
			Quadrant:           string(a.Label),
			Color:              a.Label.Color(),
			CMF21Change:        round(a.CMFChange, cmfPlaces),
			RSMomentum20Change: round(a.RSMomentumChange, rsPlaces),
		}
		assessments = append(assessments, a)
		if a.Point.Date.After(asOf) {
			asOf = a.Point.Date
		}
	}
	if !asOf.IsZero() {
		s.AsOf = asOf.Format(model.DateLayout)
	}
	s.Ranking = append(s.Ranking, quadrant.Rank(assessments)...)
	return s
}

// SameContent reports whether s and other differ only in GeneratedAt.
func (s *Snapshot) SameContent(other *Snapshot) bool {
	if s == nil || other == nil {
		return s == other
	}
	a, b := *s, *other
	a.GeneratedAt, b.GeneratedAt = time.Time{}, time.Time{}
	ja, err1 := json.Marshal(a)
	jb, err2 := json.Marshal(b)
	return err1 == nil && err2 == nil && string(ja) == string(jb)
}

// Load reads a snapshot. A missing file returns (nil, nil).
func Load(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse snapshot %s: %w", path, err)
	}
	return &s, nil
}
