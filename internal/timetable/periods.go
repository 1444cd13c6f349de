package timetable

import "time"

// Period is one row of the school-day bell schedule. Start and End are
// minutes from midnight; a clock time t belongs to the period when
// Start <= t < End.
type Period struct {
	Label string
	Start int
	End   int
}

const (
	LabelBeforeSchool = "Before school"
	LabelAfterSchool  = "After school"
)

// periods is the fixed bell schedule, in order. First bell 07:15, last 14:25.
var periods = []Period{
	{"1st", minutes(7, 15), minutes(8, 8)},
	{"2nd", minutes(8, 8), minutes(9, 1)},
	{"Resource", minutes(9, 1), minutes(9, 35)},
	{"3rd", minutes(9, 35), minutes(10, 28)},
	{"4th", minutes(10, 28), minutes(11, 21)},
	{"5th", minutes(11, 21), minutes(12, 14)},
	{"Lunch", minutes(12, 14), minutes(12, 44)},
	{"6th", minutes(12, 44), minutes(13, 37)},
	{"7th", minutes(13, 37), minutes(14, 25)},
}

func minutes(h, m int) int {
	return h*60 + m
}

// PeriodLabel maps a clock time to its bell-schedule label. Times before
// first bell are "Before school", times at or after the last bell's end are
// "After school". Total over the whole day.
func PeriodLabel(t time.Time) string {
	clock := minutes(t.Hour(), t.Minute())

	if clock < periods[0].Start {
		return LabelBeforeSchool
	}
	for _, p := range periods {
		if clock >= p.Start && clock < p.End {
			return p.Label
		}
	}
	return LabelAfterSchool
}

// PeriodBounds returns the clock range for a known period label, applied to
// the date of day. The second return is false for unknown labels, including
// the before/after-school pseudo-labels.
func PeriodBounds(day time.Time, label string) (start, end time.Time, ok bool) {
	for _, p := range periods {
		if p.Label == label {
			return at(day, p.Start), at(day, p.End), true
		}
	}
	return time.Time{}, time.Time{}, false
}

// Labels returns the schedule labels in bell order.
func Labels() []string {
	out := make([]string, len(periods))
	for i, p := range periods {
		out[i] = p.Label
	}
	return out
}

func at(day time.Time, clock int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), clock/60, clock%60, 0, 0, day.Location())
}
