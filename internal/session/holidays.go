package session

import "time"

// calculateEaster returns Gregorian Easter Sunday (anonymous computus).
func calculateEaster(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451

	month := (h + l - 7*m + 114) / 31
	day := ((h + l - 7*m + 114) % 31) + 1
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// findNthWeekday finds the nth occurrence of a weekday in a given month/year.
func findNthWeekday(year int, month time.Month, weekday time.Weekday, n int) time.Time {
	date := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	daysToAdd := int(weekday - date.Weekday())
	if daysToAdd < 0 {
		daysToAdd += 7
	}
	return date.AddDate(0, 0, daysToAdd+(n-1)*7)
}

// findLastWeekday finds the last occurrence of a weekday in a given month/year.
func findLastWeekday(year int, month time.Month, weekday time.Weekday) time.Time {
	date := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC)
	daysToSubtract := int(date.Weekday() - weekday)
	if daysToSubtract < 0 {
		daysToSubtract += 7
	}
	return date.AddDate(0, 0, -daysToSubtract)
}

// observeOnWeekday moves a weekend date to the nearest weekday.
// Saturday -> Friday, Sunday -> Monday
func observeOnWeekday(date time.Time) time.Time {
	switch date.Weekday() {
	case time.Saturday:
		return date.AddDate(0, 0, -1)
	case time.Sunday:
		return date.AddDate(0, 0, 1)
	default:
		return date
	}
}

// USHolidays returns the NYSE full-day closures for year.
// New Year's Day falling on a Saturday is not observed on the prior Friday.
func USHolidays(year int) []time.Time {
	holidays := make([]time.Time, 0, 10)

	newYear := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	if newYear.Weekday() != time.Saturday {
		holidays = append(holidays, observeOnWeekday(newYear))
	}
	holidays = append(holidays,
		findNthWeekday(year, time.January, time.Monday, 3),  // Martin Luther King Jr. Day
		findNthWeekday(year, time.February, time.Monday, 3), // Presidents Day
		calculateEaster(year).AddDate(0, 0, -2),             // Good Friday
		findLastWeekday(year, time.May, time.Monday),        // Memorial Day
	)
	if year >= 2022 {
		holidays = append(holidays, observeOnWeekday(time.Date(year, 6, 19, 0, 0, 0, 0, time.UTC)))
	}
	holidays = append(holidays,
		observeOnWeekday(time.Date(year, 7, 4, 0, 0, 0, 0, time.UTC)),
		findNthWeekday(year, time.September, time.Monday, 1),  // Labor Day
		findNthWeekday(year, time.November, time.Thursday, 4), // Thanksgiving
		observeOnWeekday(time.Date(year, 12, 25, 0, 0, 0, 0, time.UTC)),
	)
	return holidays
}

// IsUSHoliday reports whether d (civil date) is an NYSE holiday.
func IsUSHoliday(d time.Time) bool {
	day := civil(d)
	for _, h := range USHolidays(day.Year()) {
		if h.Equal(day) {
			return true
		}
	}
	return false
}

// isEarlyCloseDay covers July 3, the day after Thanksgiving and Christmas Eve.
// July 3 and Dec 24 only close early on Monday through Thursday; on a Friday they are
// either the observed holiday or a regular session.
func isEarlyCloseDay(day time.Time) bool {
	wd := day.Weekday()
	midweek := wd >= time.Monday && wd <= time.Thursday
	switch {
	case day.Month() == time.July && day.Day() == 3:
		return midweek
	case day.Month() == time.December && day.Day() == 24:
		return midweek
	case day.Month() == time.November:
		return day.Equal(findNthWeekday(day.Year(), time.November, time.Thursday, 4).AddDate(0, 0, 1))
	}
	return false
}
