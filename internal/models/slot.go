package models

import "time"

type Slot struct {
	ID          string    `json:"id"`
	ProviderID  string    `json:"provider_id"`
	ClientID    *string   `json:"client_id"` // nil while the slot is open
	Location    string    `json:"location"`
	PeriodLabel string    `json:"period_label"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	Notified    bool      `json:"notified"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// IsOpen reports whether the slot has no client bound to it.
func (s *Slot) IsOpen() bool {
	return s.ClientID == nil
}

// BookedBy reports whether the slot is currently held by the given client.
func (s *Slot) BookedBy(clientID string) bool {
	return s.ClientID != nil && *s.ClientID == clientID
}
