package domain

import (
	"context"
	"time"

	"lessonbook/internal/models"
)

// Repository is the slot/user store. It is the single source of truth; no
// component caches slot state between reads.
type Repository interface {
	CreateSlot(ctx context.Context, slot *models.Slot) error
	GetSlot(ctx context.Context, id string) (*models.Slot, error)
	GetProviderSlots(ctx context.Context, providerID string) ([]*models.Slot, error)
	GetOpenSlots(ctx context.Context, providerID string, after time.Time) ([]*models.Slot, error)
	HasOpenSlot(ctx context.Context, providerID string, after time.Time) (bool, error)
	GetBookedSlots(ctx context.Context, from, until time.Time, unnotifiedOnly bool) ([]*models.Slot, error)
	BookSlot(ctx context.Context, slotID, clientID string, now time.Time) error
	CancelSlot(ctx context.Context, slotID, clientID string) error
	DeleteSlot(ctx context.Context, id string) error
	MarkNotified(ctx context.Context, slotID string) (bool, error)

	CreateOrUpdateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetTeachers(ctx context.Context) ([]*models.User, error)
	SetTeacher(ctx context.Context, id string, isTeacher bool) error
}

// LockRepository holds short-lived coordination state: the scheduler's tick
// guard and per-caller API rate limits.
type LockRepository interface {
	// AcquireLock takes the named lock for ttl if nobody holds it.
	AcquireLock(ctx context.Context, name string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, name string) error
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// Dispatcher fans one message out to a recipient's preferred channels.
// Delivery failures are logged inside, never returned.
type Dispatcher interface {
	Dispatch(ctx context.Context, recipient *models.User, message, subject string)
}

// SMSGateway is the text-message collaborator. Send reports success only.
type SMSGateway interface {
	Send(ctx context.Context, body, toPhone string) bool
}

// EmailGateway is the email collaborator. Send reports success only.
type EmailGateway interface {
	Send(ctx context.Context, toAddress, subject, htmlBody string) bool
}

// EventPublisher mirrors slot lifecycle changes onto the in-process bus.
type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// SlotService creates recurring slot series and maintains them.
type SlotService interface {
	GenerateSlots(ctx context.Context, req models.SlotRequest) (int, error)
	RemoveDuplicates(ctx context.Context, providerID string) (int, error)
	ProviderSlots(ctx context.Context, providerID string) ([]*models.Slot, error)
	OpenSlots(ctx context.Context, providerID string) ([]*models.Slot, error)
}

// BookingService is the only path allowed to change slot occupancy.
type BookingService interface {
	Book(ctx context.Context, slotID, clientID string) error
	Cancel(ctx context.Context, slotID, clientID string) error
	Remove(ctx context.Context, slotID, providerID string) error
}

// UserService resolves identities and guards the teacher roster.
type UserService interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	SaveUser(ctx context.Context, user *models.User) error
	Teachers(ctx context.Context) ([]*models.TeacherCard, error)
	AddTeacher(ctx context.Context, caller *models.User, secret, teacherID string) bool
	RemoveTeacher(ctx context.Context, caller *models.User, secret, teacherID string) bool
}
