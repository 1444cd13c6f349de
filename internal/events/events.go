package events

import (
	"encoding/json"
	"sync"
	"time"
)

const (
	EventSlotCreated   = "slot_created"
	EventSlotBooked    = "slot_booked"
	EventSlotCancelled = "slot_cancelled"
	EventSlotRemoved   = "slot_removed"
	EventReminderSent  = "reminder_sent"
)

// SlotEventPayload is the minimal slot snapshot handed to event consumers.
type SlotEventPayload struct {
	SlotID      string    `json:"slot_id"`
	ProviderID  string    `json:"provider_id"`
	ClientID    string    `json:"client_id,omitempty"`
	PeriodLabel string    `json:"period_label"`
	StartTime   time.Time `json:"start_time"`
	Location    string    `json:"location,omitempty"`
}

// Event represents a lightweight domain event.
type Event struct {
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for slot lifecycle events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
}

func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type. Handlers run synchronously;
// the caller decides the concurrency model.
func (b *EventBus) Publish(event *Event) {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		_ = handler(event)
	}
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	b.Publish(&Event{Type: eventType, Payload: raw, CreatedAt: time.Now()})
	return nil
}
