package models

import "time"

type User struct {
	ID                string    `json:"id"` // identity-provider id
	DisplayName       string    `json:"display_name"`
	ContactPreference string    `json:"contact_preference"` // text, email, both
	Phone             string    `json:"phone,omitempty"`
	Email             string    `json:"email,omitempty"`
	Instruments       []string  `json:"instruments,omitempty"`
	Pronouns          string    `json:"pronouns,omitempty"`
	Description       string    `json:"description,omitempty"`
	IsTeacher         bool      `json:"is_teacher"`
	IsAdmin           bool      `json:"is_admin"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Preference normalizes the stored contact preference. Anything
// unrecognized (including empty) falls back to text.
func (u *User) Preference() string {
	switch u.ContactPreference {
	case ContactEmail, ContactBoth:
		return u.ContactPreference
	default:
		return ContactText
	}
}
