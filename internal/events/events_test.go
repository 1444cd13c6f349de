package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishReachesSubscribers(t *testing.T) {
	bus := NewEventBus()

	var got []*Event
	bus.Subscribe(EventSlotBooked, func(event *Event) error {
		got = append(got, event)
		return nil
	})

	bus.Publish(&Event{Type: EventSlotBooked, Payload: []byte(`{}`)})
	bus.Publish(&Event{Type: EventSlotCancelled, Payload: []byte(`{}`)})

	require.Len(t, got, 1, "handlers only see their own event type")
	assert.Equal(t, EventSlotBooked, got[0].Type)
	assert.False(t, got[0].CreatedAt.IsZero())
}

func TestPublishJSON(t *testing.T) {
	bus := NewEventBus()

	var payload SlotEventPayload
	bus.Subscribe(EventReminderSent, func(event *Event) error {
		return json.Unmarshal(event.Payload, &payload)
	})

	start := time.Date(2024, 3, 4, 15, 35, 0, 0, time.UTC)
	err := bus.PublishJSON(EventReminderSent, SlotEventPayload{
		SlotID:      "slot-1",
		ProviderID:  "teacher-1",
		ClientID:    "student-1",
		PeriodLabel: "3rd",
		StartTime:   start,
	})
	require.NoError(t, err)

	assert.Equal(t, "slot-1", payload.SlotID)
	assert.Equal(t, "3rd", payload.PeriodLabel)
	assert.True(t, payload.StartTime.Equal(start))
}

func TestPublishJSONOnNilBus(t *testing.T) {
	var bus *EventBus
	assert.NoError(t, bus.PublishJSON(EventSlotCreated, SlotEventPayload{SlotID: "slot-1"}))
}
