package timetable

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func clock(h, m int) time.Time {
	return time.Date(2024, 3, 4, h, m, 0, 0, time.UTC)
}

func TestPeriodLabel_Boundaries(t *testing.T) {
	cases := []struct {
		name string
		time time.Time
		want string
	}{
		{"before first bell", clock(7, 14), LabelBeforeSchool},
		{"first bell is inclusive", clock(7, 15), "1st"},
		{"last minute of 1st", clock(8, 7), "1st"},
		{"2nd starts exactly at 08:08", clock(8, 8), "2nd"},
		{"resource block", clock(9, 20), "Resource"},
		{"lunch", clock(12, 30), "Lunch"},
		{"7th runs to 14:25 exclusive", clock(14, 24), "7th"},
		{"dismissal bell", clock(14, 25), LabelAfterSchool},
		{"late evening", clock(22, 0), LabelAfterSchool},
		{"midnight", clock(0, 0), LabelBeforeSchool},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, PeriodLabel(tc.time))
		})
	}
}

func TestPeriodLabel_TotalOverDay(t *testing.T) {
	// Every minute of the day must map to exactly one label.
	for h := 0; h < 24; h++ {
		for m := 0; m < 60; m++ {
			assert.NotEmpty(t, PeriodLabel(clock(h, m)))
		}
	}
}

func TestPeriodBounds(t *testing.T) {
	day := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

	start, end, ok := PeriodBounds(day, "3rd")
	assert.True(t, ok)
	assert.Equal(t, clock(9, 35), start)
	assert.Equal(t, clock(10, 28), end)

	_, _, ok = PeriodBounds(day, "8th")
	assert.False(t, ok)
	_, _, ok = PeriodBounds(day, LabelBeforeSchool)
	assert.False(t, ok)
}

func TestLabels_Order(t *testing.T) {
	assert.Equal(t, []string{"1st", "2nd", "Resource", "3rd", "4th", "5th", "Lunch", "6th", "7th"}, Labels())
}

func TestNextSchoolDay(t *testing.T) {
	mon := time.Date(2024, 3, 4, 9, 35, 0, 0, time.UTC)
	assert.Equal(t, time.Tuesday, NextSchoolDay(mon).Weekday())

	fri := time.Date(2024, 3, 8, 9, 35, 0, 0, time.UTC)
	next := NextSchoolDay(fri)
	assert.Equal(t, time.Monday, next.Weekday())
	assert.Equal(t, 11, next.Day())
	// Clock time is preserved across the weekend skip.
	assert.Equal(t, 9, next.Hour())
	assert.Equal(t, 35, next.Minute())
}

func TestNextMonth(t *testing.T) {
	jan15 := time.Date(2024, 1, 15, 10, 28, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 2, 15, 10, 28, 0, 0, time.UTC), NextMonth(jan15))
}
