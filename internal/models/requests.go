package models

import "time"

// SlotRequest is a base slot definition plus its recurrence rule. Horizon
// names the last calendar day of the series: occurrences that start on the
// horizon date are still generated, anything later is not.
type SlotRequest struct {
	ProviderID string    `json:"provider_id"`
	Location   string    `json:"location"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	Recurrence string    `json:"recurrence"`
	Horizon    time.Time `json:"horizon"`
}

// TeacherCard is the roster entry shown to clients picking a lesson.
type TeacherCard struct {
	User
	InstrumentsLine string `json:"instruments_line,omitempty"`
	Available       bool   `json:"available"`
}
