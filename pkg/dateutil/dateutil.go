// Package dateutil provides date-only arithmetic for the pipeline. All dates
// are UTC midnights; all stay intervals are half-open [arrival, departure).
package dateutil

import (
	"fmt"
	"time"
)

// Date truncates t to its UTC calendar date.
func Date(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AddDays returns the date n days after d.
func AddDays(d time.Time, n int) time.Time {
	return Date(d).AddDate(0, 0, n)
}

// DaysBetween returns b - a in whole days.
func DaysBetween(a, b time.Time) int {
	return int(Date(b).Sub(Date(a)).Hours() / 24)
}

// CutoffAfter returns the first instant after t's calendar date, so that all
// activity during t's day falls strictly before the cutoff.
func CutoffAfter(t time.Time) time.Time {
	return AddDays(t, 1)
}

// LocalMidnightUTC converts a calendar date at a hotel's local midnight into
// the UTC instant it represents, given the hotel's UTC offset in hours.
func LocalMidnightUTC(date time.Time, offsetHours int) time.Time {
	return Date(date).Add(-time.Duration(offsetHours) * time.Hour)
}

// EndOfMonth returns the last calendar day of d's month.
func EndOfMonth(d time.Time) time.Time {
	y, m, _ := d.UTC().Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, -1)
}

// MonthDay formats d as "MM-DD" for season range matching.
func MonthDay(d time.Time) string {
	return fmt.Sprintf("%02d-%02d", int(d.UTC().Month()), d.UTC().Day())
}

// MonthDayInRange reports whether the "MM-DD" value falls inside [start, end],
// handling ranges that wrap the year boundary (e.g. 11-01 to 02-28).
func MonthDayInRange(mmdd, start, end string) bool {
	if start <= end {
		return mmdd >= start && mmdd <= end
	}
	return mmdd >= start || mmdd <= end
}

// IsWeekend reports whether the stay date is a Friday or Saturday night.
func IsWeekend(d time.Time) bool {
	wd := d.UTC().Weekday()
	return wd == time.Friday || wd == time.Saturday
}
