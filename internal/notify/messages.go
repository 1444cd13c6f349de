package notify

import (
	"fmt"
	"strings"
	"time"

	"lessonbook/internal/models"
)

// Subjects for the email channel; the text channel carries the body only.
const (
	SubjectReminder   = "Lesson Reminder"
	SubjectSignup     = "New Lesson Signup"
	SubjectCancelled  = "Lesson Cancelled"
	SubjectSelfCancel = "Lesson Signup Cancelled"
)

// ClientReminder is the message a student receives shortly before a lesson.
func ClientReminder(slot *models.Slot, provider *models.User, loc *time.Location) string {
	return fmt.Sprintf("You have a lesson with %s starting %s (%s) in the %s",
		provider.DisplayName, slot.PeriodLabel, clockIn(slot.StartTime, loc), slot.Location)
}

// ProviderReminder is the matching message the teacher receives.
func ProviderReminder(slot *models.Slot, client *models.User, loc *time.Location) string {
	return fmt.Sprintf("You have a lesson with %s starting at %s",
		client.DisplayName, clockIn(slot.StartTime, loc))
}

// SignupNotice tells the teacher a student took one of their open slots.
func SignupNotice(slot *models.Slot, client *models.User, loc *time.Location) string {
	return fmt.Sprintf("%s signed up for your %s lesson on %s",
		client.DisplayName, slot.PeriodLabel, dateIn(slot.StartTime, loc))
}

// SelfCancelNotice tells the teacher a student gave their slot back.
func SelfCancelNotice(slot *models.Slot, client *models.User, loc *time.Location) string {
	return fmt.Sprintf("%s cancelled their %s lesson on %s",
		client.DisplayName, slot.PeriodLabel, dateIn(slot.StartTime, loc))
}

// ProviderCancelNotice tells a booked student the teacher removed the slot.
func ProviderCancelNotice(slot *models.Slot, provider *models.User, loc *time.Location) string {
	return fmt.Sprintf("Your lesson with %s on %s at %s has been cancelled",
		provider.DisplayName, dateIn(slot.StartTime, loc), clockIn(slot.StartTime, loc))
}

// clockIn renders a 12-hour clock time, e.g. "09:35 AM".
func clockIn(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format("03:04 PM")
}

// dateIn renders "March 4th" style dates.
func dateIn(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	t = t.In(loc)
	return fmt.Sprintf("%s %s", t.Month().String(), ordinal(t.Day()))
}

func ordinal(n int) string {
	suffix := "th"
	switch {
	case n%100 >= 11 && n%100 <= 13:
	case n%10 == 1:
		suffix = "st"
	case n%10 == 2:
		suffix = "nd"
	case n%10 == 3:
		suffix = "rd"
	}
	return fmt.Sprintf("%d%s", n, suffix)
}

// JoinList renders "a", "a and b", "a, b and c".
func JoinList(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	default:
		return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
	}
}
