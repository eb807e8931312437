// Package timeutil provides calendar-day utilities for the practice hub.
// Streaks and daily summaries are defined over calendar days in a single
// application-wide location, so every day-boundary computation lives here.
// No external dependencies - uses only standard library.
package timeutil

import (
	"time"
)

// Common date/time formats.
const (
	// FormatDate is the standard date format (YYYY-MM-DD).
	FormatDate = "2006-01-02"
	// FormatTime is the standard time format (HH:MM).
	FormatTime = "15:04"
	// FormatDateTime is the standard datetime format.
	FormatDateTime = "2006-01-02 15:04"
)

// StartOfDay returns midnight of the calendar day containing t,
// in t's own location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// EndOfDay returns the last nanosecond of the calendar day containing t.
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// Day converts t into the given location and truncates it to midnight.
// This is the canonical day-marker used by the streak calculator:
// two events belong to the same day iff their Day values are equal.
func Day(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// DayKey formats t as a YYYY-MM-DD string in the given location.
func DayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(FormatDate)
}

// SameDay reports whether a and b fall on the same calendar day
// in the given location.
func SameDay(a, b time.Time, loc *time.Location) bool {
	al, bl := a.In(loc), b.In(loc)
	return al.Year() == bl.Year() && al.Month() == bl.Month() && al.Day() == bl.Day()
}

// DaysBetween returns the number of whole calendar days from a to b
// (positive when b is later, negative when b is earlier). Both are
// truncated to midnight first, so 23:59 Monday to 00:01 Tuesday counts
// as one day.
func DaysBetween(a, b time.Time, loc *time.Location) int {
	start := Day(a, loc)
	end := Day(b, loc)
	if start.After(end) {
		return -DaysBetween(b, a, loc)
	}
	days := 0
	for start.Before(end) {
		start = start.AddDate(0, 0, 1)
		days++
	}
	return days
}

// Yesterday returns midnight of the day before the day containing t.
func Yesterday(t time.Time, loc *time.Location) time.Time {
	return Day(t, loc).AddDate(0, 0, -1)
}

// IsToday checks if t falls on the same calendar day as now.
func IsToday(t, now time.Time, loc *time.Location) bool {
	return SameDay(t, now, loc)
}

// IsYesterday checks if t falls on the calendar day before now.
func IsYesterday(t, now time.Time, loc *time.Location) bool {
	return Day(t, loc).Equal(Yesterday(now, loc))
}

// FormatDateStr formats a time as a date string (YYYY-MM-DD).
func FormatDateStr(t time.Time) string {
	return t.Format(FormatDate)
}
