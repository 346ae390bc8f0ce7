package indicator

import (
	"sort"
	"time"

	"github.com/markcheno/go-talib"

	"sector-flow/internal/model"
)

const (
	// CMFPeriod is the number of eligible bars in a Chaikin Money Flow window.
	CMFPeriod = 21
	// RSPeriod is the number of aligned intervals the momentum % change spans.
	RSPeriod = 20
)

// Engine computes CMF and relative-strength momentum for one instrument against a benchmark.
// It is pure: inputs are never mutated and no state survives a call.
type Engine struct {
	CMFPeriod int
	RSPeriod  int
}

// NewEngine returns an Engine with the default 21-bar CMF and 20-interval momentum.
func NewEngine() *Engine {
	return &Engine{CMFPeriod: CMFPeriod, RSPeriod: RSPeriod}
}

// Aligned is the date inner join of an instrument and its benchmark.
type Aligned struct {
	Dates      []time.Time
	Instrument []float64
	Benchmark  []float64
}

// Align joins two ascending series by date. Dates missing on either side are dropped.
func Align(inst, bench []model.Bar) Aligned {
	var a Aligned
	i, j := 0, 0
	for i < len(inst) && j < len(bench) {
		di, dj := inst[i].Date, bench[j].Date
		switch {
		case di.Equal(dj):
			a.Dates = append(a.Dates, di)
			a.Instrument = append(a.Instrument, inst[i].Close)
			a.Benchmark = append(a.Benchmark, bench[j].Close)
			i++
			j++
		case di.Before(dj):
			i++
		default:
			j++
		}
	}
	return a
}

// RSMomentum returns instrument % change minus benchmark % change over the last
// period intervals of a. ok is false with fewer than period+1 aligned observations
// or when either base close is zero.
func RSMomentum(a Aligned, period int) (value float64, ok bool) {
	n := len(a.Dates)
	if period <= 0 || n < period+1 {
		return 0, false
	}
	if a.Instrument[n-period-1] == 0 || a.Benchmark[n-period-1] == 0 {
		return 0, false
	}
	inst := talib.Roc(a.Instrument[n-period-1:], period)
	bench := talib.Roc(a.Benchmark[n-period-1:], period)
	return inst[period] - bench[period], true
}

// window returns the last period+1 observations ending at index k.
func (a Aligned) window(k, period int) Aligned {
	lo := k - period
	return Aligned{
		Dates:      a.Dates[lo : k+1],
		Instrument: a.Instrument[lo : k+1],
		Benchmark:  a.Benchmark[lo : k+1],
	}
}

// tail returns the instrument and benchmark offsets from which the windows of
// every instrument date from inst[start] on can be rebuilt: CMFPeriod-1 bars and
// RSPeriod aligned observations before inst[start]. Dates missing on either side
// push the offsets further back. Both offsets are 0 when history is shorter.
func (e *Engine) tail(inst, bench []model.Bar, start int) (instFrom, benchFrom int) {
	first := inst[start].Date
	j := sort.Search(len(bench), func(k int) bool { return !bench[k].Date.Before(first) }) - 1
	i := start - 1
	for n := 0; n < e.RSPeriod; {
		if i < 0 || j < 0 {
			return 0, 0
		}
		di, dj := inst[i].Date, bench[j].Date
		switch {
		case di.Equal(dj):
			n++
			instFrom, benchFrom = i, j
			i--
			j--
		case di.After(dj):
			i--
		default:
			j--
		}
	}
	return min(instFrom, max(start-e.CMFPeriod+1, 0)), benchFrom
}

// Compute returns indicator points for every instrument date strictly after `after`
// where both indicators are defined. inst and bench must hold eligible bars only,
// ascending by date. Dates past the benchmark's last bar are left for a later run.
// Only the bars the new dates' windows reach are aligned.
func (e *Engine) Compute(inst, bench []model.Bar, after time.Time) []model.IndicatorPoint {
	if len(inst) < e.CMFPeriod || len(bench) == 0 {
		return nil
	}
	start := sort.Search(len(inst), func(i int) bool { return inst[i].Date.After(after) })
	if start == len(inst) {
		return nil
	}
	instFrom, benchFrom := e.tail(inst, bench, start)
	aligned := Align(inst[instFrom:], bench[benchFrom:])
	if len(aligned.Dates) < e.RSPeriod+1 {
		return nil
	}
	pos := make(map[int64]int, len(aligned.Dates))
	for k, d := range aligned.Dates {
		pos[d.Unix()] = k
	}

	var points []model.IndicatorPoint
	for i := max(start, e.CMFPeriod-1); i < len(inst); i++ {
		d := inst[i].Date
		k, found := pos[d.Unix()]
		if !found || k < e.RSPeriod {
			continue
		}
		rs, ok := RSMomentum(aligned.window(k, e.RSPeriod), e.RSPeriod)
		if !ok {
			continue
		}
		cmf, ok := CMF(inst[i-e.CMFPeriod+1 : i+1])
		if !ok {
			continue
		}
		points = append(points, model.IndicatorPoint{
			Date:         d,
			CMF21:        cmf,
			RSMomentum20: rs,
		})
	}
	return points
}
