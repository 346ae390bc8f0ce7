package session

import (
	"fmt"
	"time"
	_ "time/tzdata" // America/New_York must resolve on hosts without zoneinfo
)

// Calendar describes the trading sessions of one exchange.
type Calendar struct {
	Code         string
	Location     *time.Location
	OpenHour     int
	OpenMinute   int
	CloseHour    int
	CloseMinute  int
	EarlyCloseAt int // hour of early-close sessions
}

// NewNYSE returns the XNYS calendar: 09:30-16:00 America/New_York, 13:00 on early-close days.
func NewNYSE() (*Calendar, error) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return nil, fmt.Errorf("load exchange timezone: %w", err)
	}
	return &Calendar{
		Code:         "XNYS",
		Location:     loc,
		OpenHour:     9,
		OpenMinute:   30,
		CloseHour:    16,
		CloseMinute:  0,
		EarlyCloseAt: 13,
	}, nil
}

// IsTradingDay reports whether the civil date (year, month, day of d) is a full or early-close session.
func (c *Calendar) IsTradingDay(d time.Time) bool {
	day := civil(d)
	if day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
		return false
	}
	return !IsUSHoliday(day)
}

// IsEarlyClose reports whether the session on d ends at EarlyCloseAt.
func (c *Calendar) IsEarlyClose(d time.Time) bool {
	day := civil(d)
	if !c.IsTradingDay(day) {
		return false
	}
	return isEarlyCloseDay(day)
}

// CloseTime returns the session close on d in the exchange location.
// ok is false when d is not a trading day.
func (c *Calendar) CloseTime(d time.Time) (close time.Time, ok bool) {
	day := civil(d)
	if !c.IsTradingDay(day) {
		return time.Time{}, false
	}
	hour, minute := c.CloseHour, c.CloseMinute
	if isEarlyCloseDay(day) {
		hour, minute = c.EarlyCloseAt, 0
	}
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, c.Location), true
}

// OpenTime returns the session open on d in the exchange location.
func (c *Calendar) OpenTime(d time.Time) (open time.Time, ok bool) {
	day := civil(d)
	if !c.IsTradingDay(day) {
		return time.Time{}, false
	}
	return time.Date(day.Year(), day.Month(), day.Day(), c.OpenHour, c.OpenMinute, 0, 0, c.Location), true
}

// Today returns the exchange-local civil date of now at 00:00 UTC.
func (c *Calendar) Today(now time.Time) time.Time {
	return civil(now.In(c.Location))
}

// PreviousTradingDay returns the latest trading day strictly before d.
func (c *Calendar) PreviousTradingDay(d time.Time) time.Time {
	day := civil(d).AddDate(0, 0, -1)
	for !c.IsTradingDay(day) {
		day = day.AddDate(0, 0, -1)
	}
	return day
}

func civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
