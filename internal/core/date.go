// Package core provides the domain types and date handling shared by the
// record store and the insights engine.
//
// Dates travel as YYYY-MM-DD strings. For that format lexicographic order
// equals chronological order, so period windows are expressed as inclusive
// string ranges; a day-31 upper bound is safe for every month.
package core

import (
	"fmt"
	"time"
)

const DayFormat = "2006-01-02"

// ParseDay parses a YYYY-MM-DD string into a UTC midnight time.
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(DayFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

// FormatDay renders a time as YYYY-MM-DD.
func FormatDay(t time.Time) string {
	return t.Format(DayFormat)
}

// MonthKey renders a time as YYYY-MM.
func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}

// MonthWindow returns the inclusive [first, last] string bounds covering
// the calendar month of t.
func MonthWindow(t time.Time) (string, string) {
	key := MonthKey(t)
	return key + "-01", key + "-31"
}

// DaysInMonth returns the number of days in the calendar month of t.
func DaysInMonth(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// WeekOfMonth returns the 1-based week bucket of the day: days 1-7 are
// week 1, 8-14 week 2, and so on through week 5.
func WeekOfMonth(t time.Time) int {
	return (t.Day()-1)/7 + 1
}

// MonthsBetween counts whole calendar months from start to now, ignoring
// the day of month. Negative spans clamp to zero.
func MonthsBetween(start, now time.Time) int {
	months := (now.Year()-start.Year())*12 + int(now.Month()) - int(start.Month())
	if months < 0 {
		return 0
	}
	return months
}

// MonthStart returns midnight UTC on the first day of the month n months
// before t (n=0 is the current month).
func MonthStart(t time.Time, n int) time.Time {
	return time.Date(t.Year(), t.Month()-time.Month(n), 1, 0, 0, 0, 0, time.UTC)
}

// Season returns the meteorological season name for a month (1-12).
func Season(month int) string {
	switch month {
	case 12, 1, 2:
		return "Winter"
	case 3, 4, 5:
		return "Spring"
	case 6, 7, 8:
		return "Summer"
	default:
		return "Fall"
	}
}
