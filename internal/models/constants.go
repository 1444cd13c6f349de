package models

import "time"

const (
	ContactText  = "text"
	ContactEmail = "email"
	ContactBoth  = "both"
)

const (
	RecurrenceNone    = "none"
	RecurrenceDaily   = "daily"
	RecurrenceWeekly  = "weekly"
	RecurrenceMonthly = "monthly"
)

const (
	// DefaultReminderInterval is the sweep cadence of the reminder scheduler.
	DefaultReminderInterval = 5 * time.Minute

	// DefaultReminderWindow is how far ahead of a slot's start a reminder fires.
	DefaultReminderWindow = 20 * time.Minute

	// DefaultGatewayTimeout bounds a single outbound SMS or email call.
	DefaultGatewayTimeout = 10 * time.Second

	// DefaultTickLockTTL caps how long a crashed tick can hold the guard.
	DefaultTickLockTTL = 4 * time.Minute

	// DefaultExportRangeDays is the schedule export horizon.
	DefaultExportRangeDays = 14
)

// ValidRecurrence reports whether rule is one of the supported recurrence rules.
func ValidRecurrence(rule string) bool {
	switch rule {
	case RecurrenceNone, RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly:
		return true
	default:
		return false
	}
}
