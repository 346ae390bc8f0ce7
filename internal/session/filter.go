package session

import (
	"time"

	"sector-flow/internal/model"
)

// DefaultSettleDelay is how long after the official close a session's bar is treated as final.
const DefaultSettleDelay = 30 * time.Minute

// Status classifies the session a daily bar belongs to.
type Status int

const (
	// Closed sessions are eligible for indicator windows.
	Closed Status = iota
	// Open covers today's session before close+settle delay and any future date.
	Open
	// NonTrading marks weekend or holiday bars some sources emit.
	NonTrading
)

func (s Status) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case NonTrading:
		return "non_trading"
	default:
		return "unknown"
	}
}

// Filter decides which bars are safe to feed into indicators.
type Filter struct {
	Calendar    *Calendar
	SettleDelay time.Duration
}

// NewFilter returns a Filter over cal. A negative delay is treated as zero.
func NewFilter(cal *Calendar, settleDelay time.Duration) *Filter {
	if settleDelay < 0 {
		settleDelay = 0
	}
	return &Filter{Calendar: cal, SettleDelay: settleDelay}
}

// Status reports the session state of day as observed at now.
func (f *Filter) Status(now, day time.Time) Status {
	closeAt, ok := f.Calendar.CloseTime(day)
	if !ok {
		return NonTrading
	}
	if now.Before(closeAt.Add(f.SettleDelay)) {
		return Open
	}
	return Closed
}

// MarkProvisional returns a copy of freshly fetched bars with Provisional set for open sessions.
func (f *Filter) MarkProvisional(now time.Time, bars []model.Bar) []model.Bar {
	out := make([]model.Bar, len(bars))
	for i, b := range bars {
		b.Provisional = f.Status(now, b.Date) == Open
		out[i] = b
	}
	return out
}

// Eligible returns bars of closed sessions that were not stored as provisional.
// A provisional bar only becomes eligible once it is refetched after the close.
func (f *Filter) Eligible(now time.Time, bars []model.Bar) []model.Bar {
	out := make([]model.Bar, 0, len(bars))
	for _, b := range bars {
		if b.Provisional {
			continue
		}
		if f.Status(now, b.Date) != Closed {
			continue
		}
		out = append(out, b)
	}
	return out
}

// LastClosedSession returns the most recent trading day whose close+settle delay has passed.
func (f *Filter) LastClosedSession(now time.Time) time.Time {
	day := f.Calendar.Today(now)
	if f.Status(now, day) == Closed {
		return day
	}
	return f.Calendar.PreviousTradingDay(day)
}
