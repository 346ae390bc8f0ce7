package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sector-flow/internal/model"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newTestFilter(t *testing.T) *Filter {
	t.Helper()
	cal, err := NewNYSE()
	require.NoError(t, err)
	return NewFilter(cal, DefaultSettleDelay)
}

func TestCalculateEaster(t *testing.T) {
	tests := []struct {
		year     int
		expected time.Time
	}{
		{2024, date(2024, 3, 31)},
		{2025, date(2025, 4, 20)},
		{2026, date(2026, 4, 5)},
		{2027, date(2027, 3, 28)},
	}
	for _, tt := range tests {
		t.Run(tt.expected.Format("2006-01-02"), func(t *testing.T) {
			got := calculateEaster(tt.year)
			assert.True(t, got.Equal(tt.expected), "got %v", got)
			assert.Equal(t, time.Sunday, got.Weekday())
		})
	}
}

func TestUSHolidays(t *testing.T) {
	tests := []struct {
		name    string
		day     time.Time
		holiday bool
	}{
		{"new year", date(2025, 1, 1), true},
		{"new year sunday observed monday", date(2023, 1, 2), true},
		{"new year saturday not observed friday", date(2021, 12, 31), false},
		{"mlk", date(2025, 1, 20), true},
		{"presidents", date(2025, 2, 17), true},
		{"good friday", date(2025, 4, 18), true},
		{"memorial", date(2025, 5, 26), true},
		{"juneteenth sunday observed monday", date(2022, 6, 20), true},
		{"juneteenth before adoption", date(2021, 6, 18), false},
		{"independence saturday observed friday", date(2026, 7, 3), true},
		{"labor", date(2025, 9, 1), true},
		{"thanksgiving", date(2025, 11, 27), true},
		{"christmas", date(2025, 12, 25), true},
		{"regular wednesday", date(2025, 3, 12), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.holiday, IsUSHoliday(tt.day))
		})
	}
}

func TestCloseTime(t *testing.T) {
	f := newTestFilter(t)
	cal := f.Calendar

	c, ok := cal.CloseTime(date(2025, 3, 12))
	require.True(t, ok)
	assert.Equal(t, 16, c.Hour())
	assert.Equal(t, "America/New_York", c.Location().String())

	for _, d := range []time.Time{date(2025, 7, 3), date(2025, 11, 28), date(2025, 12, 24)} {
		c, ok := cal.CloseTime(d)
		require.True(t, ok, d)
		assert.Equal(t, 13, c.Hour(), d)
		assert.True(t, cal.IsEarlyClose(d))
	}

	_, ok = cal.CloseTime(date(2025, 3, 15)) // Saturday
	assert.False(t, ok)

	open, ok := cal.OpenTime(date(2025, 3, 12))
	require.True(t, ok)
	assert.Equal(t, 9, open.Hour())
	assert.Equal(t, 30, open.Minute())
}

func TestStatus(t *testing.T) {
	f := newTestFilter(t)
	ny := f.Calendar.Location
	day := date(2025, 3, 12)

	assert.Equal(t, Open, f.Status(time.Date(2025, 3, 12, 11, 0, 0, 0, ny), day))
	assert.Equal(t, Open, f.Status(time.Date(2025, 3, 12, 16, 10, 0, 0, ny), day), "inside settle delay")
	assert.Equal(t, Closed, f.Status(time.Date(2025, 3, 12, 16, 30, 0, 0, ny), day))
	assert.Equal(t, Open, f.Status(time.Date(2025, 3, 11, 20, 0, 0, 0, ny), day), "future session")
	assert.Equal(t, NonTrading, f.Status(time.Date(2025, 3, 17, 9, 0, 0, 0, ny), date(2025, 3, 16)))
	assert.Equal(t, Closed, f.Status(time.Date(2025, 11, 28, 13, 45, 0, 0, ny), date(2025, 11, 28)), "early close")
}

func TestEligibleExcludesOpenAndNonTradingSessions(t *testing.T) {
	f := newTestFilter(t)
	now := time.Date(2025, 3, 14, 12, 0, 0, 0, f.Calendar.Location) // Friday, session open
	bars := []model.Bar{
		{Date: date(2025, 3, 12), Close: 1},
		{Date: date(2025, 3, 13), Close: 2},
		{Date: date(2025, 3, 14), Close: 3},
	}
	marked := f.MarkProvisional(now, bars)
	assert.False(t, marked[1].Provisional)
	assert.True(t, marked[2].Provisional)
	assert.False(t, bars[2].Provisional, "input not mutated")

	eligible := f.Eligible(now, append(marked, model.Bar{Date: date(2025, 3, 15), Close: 4}))
	require.Len(t, eligible, 2)
	assert.Equal(t, 2.0, eligible[1].Close)
}

func TestProvisionalBarStaysIneligibleUntilRefetched(t *testing.T) {
	f := newTestFilter(t)
	later := time.Date(2025, 3, 17, 12, 0, 0, 0, f.Calendar.Location)
	bars := []model.Bar{{Date: date(2025, 3, 14), Close: 3, Provisional: true}}
	assert.Empty(t, f.Eligible(later, bars))
}

func TestLastClosedSession(t *testing.T) {
	f := newTestFilter(t)
	ny := f.Calendar.Location

	assert.True(t, date(2025, 3, 13).Equal(f.LastClosedSession(time.Date(2025, 3, 14, 12, 0, 0, 0, ny))))
	assert.True(t, date(2025, 3, 14).Equal(f.LastClosedSession(time.Date(2025, 3, 14, 18, 0, 0, 0, ny))))
	assert.True(t, date(2025, 3, 14).Equal(f.LastClosedSession(time.Date(2025, 3, 16, 12, 0, 0, 0, ny))))
	// Monday after Good Friday looks back to Thursday
	assert.True(t, date(2025, 4, 17).Equal(f.LastClosedSession(time.Date(2025, 4, 21, 8, 0, 0, 0, ny))))
}
