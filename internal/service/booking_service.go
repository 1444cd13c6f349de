package service

import (
	"context"
	"time"

	"lessonbook/internal/database"
	"lessonbook/internal/domain"
	"lessonbook/internal/events"
	"lessonbook/internal/metrics"
	"lessonbook/internal/models"
	"lessonbook/internal/notify"

	"github.com/rs/zerolog"
)

// BookingLedger owns every slot occupancy change. No other code path writes
// client_id. Booking and cancelling also fire the synchronous provider
// notifications; removing a booked slot notifies the displaced client.
type BookingLedger struct {
	repo       domain.Repository
	dispatcher domain.Dispatcher
	eventBus   domain.EventPublisher
	location   *time.Location
	logger     *zerolog.Logger
}

func NewBookingLedger(repo domain.Repository, dispatcher domain.Dispatcher, eventBus domain.EventPublisher, location *time.Location, logger *zerolog.Logger) *BookingLedger {
	if location == nil {
		location = time.UTC
	}
	return &BookingLedger{
		repo:       repo,
		dispatcher: dispatcher,
		eventBus:   eventBus,
		location:   location,
		logger:     logger,
	}
}

// Book binds clientID to an open future slot. Exactly one of two racing
// callers wins; the loser gets database.ErrSlotTaken. The notified flag is
// reset by the store so the new occupant still gets a reminder.
func (l *BookingLedger) Book(ctx context.Context, slotID, clientID string) error {
	if err := l.repo.BookSlot(ctx, slotID, clientID, time.Now()); err != nil {
		metrics.IncBooking("book", "rejected")
		return err
	}
	metrics.IncBooking("book", "ok")

	slot, client, provider := l.resolveParties(ctx, slotID, clientID)
	if slot != nil {
		l.publish(events.EventSlotBooked, slot, clientID)
	}
	if slot != nil && client != nil && provider != nil {
		l.dispatcher.Dispatch(ctx, provider, notify.SignupNotice(slot, client, l.location), notify.SubjectSignup)
	}
	return nil
}

// Cancel releases a slot held by clientID and tells the provider.
func (l *BookingLedger) Cancel(ctx context.Context, slotID, clientID string) error {
	// Snapshot before the release so the notice still has the period/date.
	slot, err := l.repo.GetSlot(ctx, slotID)
	if err != nil {
		metrics.IncBooking("cancel", "rejected")
		return err
	}

	if err := l.repo.CancelSlot(ctx, slotID, clientID); err != nil {
		metrics.IncBooking("cancel", "rejected")
		return err
	}
	metrics.IncBooking("cancel", "ok")
	l.publish(events.EventSlotCancelled, slot, clientID)

	client, err := l.repo.GetUser(ctx, clientID)
	if err != nil {
		l.logger.Error().Err(err).Str("client_id", clientID).Msg("cancel notice: client lookup failed")
		return nil
	}
	provider, err := l.repo.GetUser(ctx, slot.ProviderID)
	if err != nil {
		l.logger.Error().Err(err).Str("provider_id", slot.ProviderID).Msg("cancel notice: provider lookup failed")
		return nil
	}

	l.dispatcher.Dispatch(ctx, provider, notify.SelfCancelNotice(slot, client, l.location), notify.SubjectSelfCancel)
	return nil
}

// Remove deletes a provider's slot regardless of occupancy. A displaced
// client is told their lesson is cancelled.
func (l *BookingLedger) Remove(ctx context.Context, slotID, providerID string) error {
	slot, err := l.repo.GetSlot(ctx, slotID)
	if err != nil {
		return err
	}
	if slot.ProviderID != providerID {
		return database.ErrNotOwner
	}

	if err := l.repo.DeleteSlot(ctx, slotID); err != nil {
		return err
	}
	metrics.IncBooking("remove", "ok")
	l.publish(events.EventSlotRemoved, slot, "")

	if slot.IsOpen() {
		return nil
	}

	client, err := l.repo.GetUser(ctx, *slot.ClientID)
	if err != nil {
		l.logger.Error().Err(err).Str("client_id", *slot.ClientID).Msg("removal notice: client lookup failed")
		return nil
	}
	provider, err := l.repo.GetUser(ctx, providerID)
	if err != nil {
		l.logger.Error().Err(err).Str("provider_id", providerID).Msg("removal notice: provider lookup failed")
		return nil
	}

	l.dispatcher.Dispatch(ctx, client, notify.ProviderCancelNotice(slot, provider, l.location), notify.SubjectCancelled)
	return nil
}

func (l *BookingLedger) resolveParties(ctx context.Context, slotID, clientID string) (*models.Slot, *models.User, *models.User) {
	slot, err := l.repo.GetSlot(ctx, slotID)
	if err != nil {
		l.logger.Error().Err(err).Str("slot_id", slotID).Msg("signup notice: slot lookup failed")
		return nil, nil, nil
	}
	client, err := l.repo.GetUser(ctx, clientID)
	if err != nil {
		l.logger.Error().Err(err).Str("client_id", clientID).Msg("signup notice: client lookup failed")
		return slot, nil, nil
	}
	provider, err := l.repo.GetUser(ctx, slot.ProviderID)
	if err != nil {
		l.logger.Error().Err(err).Str("provider_id", slot.ProviderID).Msg("signup notice: provider lookup failed")
		return slot, client, nil
	}
	return slot, client, provider
}

func (l *BookingLedger) publish(eventType string, slot *models.Slot, clientID string) {
	if l.eventBus == nil {
		return
	}

	payload := events.SlotEventPayload{
		SlotID:      slot.ID,
		ProviderID:  slot.ProviderID,
		ClientID:    clientID,
		PeriodLabel: slot.PeriodLabel,
		StartTime:   slot.StartTime,
		Location:    slot.Location,
	}
	if err := l.eventBus.PublishJSON(eventType, payload); err != nil {
		l.logger.Error().Err(err).Str("event_type", eventType).Str("slot_id", slot.ID).Msg("publish event error")
	}
}
