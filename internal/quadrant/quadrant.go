// Package quadrant maps the latest CMF and RS momentum pair to a rotation label.
package quadrant

import (
	"sort"

	"sector-flow/internal/model"
)

// Label is one of the four rotation quadrants.
type Label string

const (
	Leading       Label = "LEADING"
	Improving     Label = "IMPROVING"
	Deteriorating Label = "DETERIORATING"
	Weakening     Label = "WEAKENING"
)

// Color is the dashboard color of the label.
func (l Label) Color() string {
	switch l {
	case Leading:
		return "green"
	case Improving:
		return "orange"
	case Deteriorating:
		return "yellow"
	case Weakening:
		return "red"
	default:
		return "gray"
	}
}

// Classify maps signs of rs momentum and cmf to a label. Zero counts as non-negative.
func Classify(rsMomentum, cmf float64) Label {
	switch {
	case rsMomentum >= 0 && cmf >= 0:
		return Leading
	case rsMomentum < 0 && cmf >= 0:
		return Improving
	case rsMomentum >= 0 && cmf < 0:
		return Deteriorating
	default:
		return Weakening
	}
}

// Assessment is the display state of one instrument on its latest date.
type Assessment struct {
	Symbol           string
	Point            model.IndicatorPoint
	Label            Label
	CMFChange        float64
	RSMomentumChange float64
}

// Assess labels latest and computes deltas against previous (nil when there is none).
func Assess(symbol string, latest model.IndicatorPoint, previous *model.IndicatorPoint) Assessment {
	a := Assessment{
		Symbol: symbol,
		Point:  latest,
		Label:  Classify(latest.RSMomentum20, latest.CMF21),
	}
	if previous != nil {
		a.CMFChange = latest.CMF21 - previous.CMF21
		a.RSMomentumChange = latest.RSMomentum20 - previous.RSMomentum20
	}
	return a
}

var labelOrder = map[Label]int{Leading: 0, Improving: 1, Deteriorating: 2, Weakening: 3}

// Rank orders symbols by quadrant (LEADING first), then RS momentum and CMF descending.
// Symbol breaks remaining ties so the order is deterministic.
func Rank(items []Assessment) []string {
	sorted := append([]Assessment(nil), items...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if labelOrder[a.Label] != labelOrder[b.Label] {
			return labelOrder[a.Label] < labelOrder[b.Label]
		}
		if a.Point.RSMomentum20 != b.Point.RSMomentum20 {
			return a.Point.RSMomentum20 > b.Point.RSMomentum20
		}
		if a.Point.CMF21 != b.Point.CMF21 {
			return a.Point.CMF21 > b.Point.CMF21
		}
		return a.Symbol < b.Symbol
	})
	out := make([]string, len(sorted))
	for i, a := range sorted {
		out[i] = a.Symbol
	}
	return out
}
