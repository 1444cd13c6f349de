package timetable

import "time"

// NextSchoolDay advances t by one day, skipping Saturday and Sunday. A
// Friday slot recurring daily lands on Monday.
func NextSchoolDay(t time.Time) time.Time {
	next := t.AddDate(0, 0, 1)
	for next.Weekday() == time.Saturday || next.Weekday() == time.Sunday {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// NextWeek advances t by exactly seven days.
func NextWeek(t time.Time) time.Time {
	return t.AddDate(0, 0, 7)
}

// NextMonth advances t by one calendar month. Overflow follows time.AddDate
// semantics (Jan 31 + 1 month = Mar 2/3).
func NextMonth(t time.Time) time.Time {
	return t.AddDate(0, 1, 0)
}
