package scheduler

import (
	"context"
	"sync"
	"time"

	"lessonbook/internal/domain"
	"lessonbook/internal/events"
	"lessonbook/internal/metrics"
	"lessonbook/internal/models"
	"lessonbook/internal/notify"

	"github.com/rs/zerolog"
)

// tickLockName is the shared guard key; one sweep at a time, cluster-wide
// when the guard lives in redis.
const tickLockName = "reminder_tick"

// ReminderScheduler sweeps for booked, un-notified slots starting inside
// the reminder window and sends both parties their reminder. Reminders are
// at-least-once: a crash between dispatch and MarkNotified re-delivers on
// the next tick rather than losing the reminder.
type ReminderScheduler struct {
	repo       domain.Repository
	dispatcher domain.Dispatcher
	locks      domain.LockRepository
	eventBus   domain.EventPublisher
	interval   time.Duration
	window     time.Duration
	lockTTL    time.Duration
	location   *time.Location
	retry      RetryPolicy
	logger     *zerolog.Logger
	now        func() time.Time
}

type Options struct {
	Interval time.Duration
	Window   time.Duration
	LockTTL  time.Duration
	Location *time.Location
	Retry    RetryPolicy
}

func New(repo domain.Repository, dispatcher domain.Dispatcher, locks domain.LockRepository, eventBus domain.EventPublisher, opts Options, logger *zerolog.Logger) *ReminderScheduler {
	if opts.Interval <= 0 {
		opts.Interval = models.DefaultReminderInterval
	}
	if opts.Window <= 0 {
		opts.Window = models.DefaultReminderWindow
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = models.DefaultTickLockTTL
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Retry.MaxRetries == 0 {
		opts.Retry = RetryPolicy{MaxRetries: 3, InitialDelay: time.Second, MaxDelay: 15 * time.Second, BackoffFactor: 2}
	}

	return &ReminderScheduler{
		repo:       repo,
		dispatcher: dispatcher,
		locks:      locks,
		eventBus:   eventBus,
		interval:   opts.Interval,
		window:     opts.Window,
		lockTTL:    opts.LockTTL,
		location:   opts.Location,
		retry:      opts.Retry,
		logger:     logger,
		now:        time.Now,
	}
}

// Start runs the sweep loop until ctx is done. The first sweep fires
// immediately, then on every interval tick.
func (s *ReminderScheduler) Start(ctx context.Context) {
	s.logger.Info().Dur("interval", s.interval).Dur("window", s.window).Msg("reminder scheduler started")
	defer s.logger.Info().Msg("reminder scheduler stopped")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs one guarded sweep. When a previous tick still holds the guard
// the new tick is skipped outright, never queued. Returns how many slots
// were marked notified.
func (s *ReminderScheduler) Tick(ctx context.Context) int {
	acquired, err := s.locks.AcquireLock(ctx, tickLockName, s.lockTTL)
	if err != nil {
		s.logger.Error().Err(err).Msg("tick guard unavailable, skipping sweep")
		metrics.IncTick("skipped")
		return 0
	}
	if !acquired {
		s.logger.Warn().Msg("previous tick still running, skipping sweep")
		metrics.IncTick("skipped")
		return 0
	}
	// The guard is released on every exit path, success or not.
	defer func() {
		if err := s.locks.ReleaseLock(ctx, tickLockName); err != nil {
			s.logger.Error().Err(err).Msg("failed to release tick guard")
		}
	}()

	metrics.IncTick("run")
	return s.sweep(ctx)
}

func (s *ReminderScheduler) sweep(ctx context.Context) int {
	now := s.now()
	slots, err := s.fetchDue(ctx, now)
	if err != nil {
		s.logger.Error().Err(err).Msg("sweep query failed")
		return 0
	}

	sent := 0
	for _, slot := range slots {
		if s.remind(ctx, slot) {
			sent++
		}
	}

	if len(slots) > 0 {
		s.logger.Info().Int("due", len(slots)).Int("sent", sent).Msg("sweep complete")
	}
	return sent
}

// fetchDue reads the due-slot set, retrying transient store failures so one
// hiccup does not cost a whole reminder window.
func (s *ReminderScheduler) fetchDue(ctx context.Context, now time.Time) ([]*models.Slot, error) {
	var lastErr error
	for attempt := 1; attempt <= s.retry.MaxRetries; attempt++ {
		slots, err := s.repo.GetBookedSlots(ctx, now, now.Add(s.window), true)
		if err == nil {
			return slots, nil
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.retry.NextDelay(attempt)):
		}
	}
	return nil, lastErr
}

// remind notifies both parties of one due slot and marks it notified.
// Reports whether the slot was marked.
func (s *ReminderScheduler) remind(ctx context.Context, slot *models.Slot) bool {
	client, err := s.repo.GetUser(ctx, *slot.ClientID)
	if err != nil {
		s.logger.Error().Err(err).
			Str("slot_id", slot.ID).
			Str("client_id", *slot.ClientID).
			Msg("integrity failure: booked slot references missing client, skipping")
		return false
	}
	provider, err := s.repo.GetUser(ctx, slot.ProviderID)
	if err != nil {
		s.logger.Error().Err(err).
			Str("slot_id", slot.ID).
			Str("provider_id", slot.ProviderID).
			Msg("integrity failure: slot references missing provider, skipping")
		return false
	}

	// Both reminders go out in parallel; neither outcome gates the other,
	// and delivery failures never block marking the slot.
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.dispatcher.Dispatch(ctx, client, notify.ClientReminder(slot, provider, s.location), notify.SubjectReminder)
	}()
	go func() {
		defer wg.Done()
		s.dispatcher.Dispatch(ctx, provider, notify.ProviderReminder(slot, client, s.location), notify.SubjectReminder)
	}()
	wg.Wait()

	marked, err := s.repo.MarkNotified(ctx, slot.ID)
	if err != nil {
		s.logger.Error().Err(err).Str("slot_id", slot.ID).Msg("failed to mark slot notified")
		return false
	}
	if !marked {
		// A concurrent rebook reset the flag; the next tick sees the slot
		// under its new occupancy.
		s.logger.Warn().Str("slot_id", slot.ID).Msg("notified flag changed mid-sweep, leaving for next tick")
		return false
	}

	metrics.IncRemindersSent()
	s.publishReminder(slot)
	return true
}

func (s *ReminderScheduler) publishReminder(slot *models.Slot) {
	if s.eventBus == nil {
		return
	}

	payload := events.SlotEventPayload{
		SlotID:      slot.ID,
		ProviderID:  slot.ProviderID,
		ClientID:    *slot.ClientID,
		PeriodLabel: slot.PeriodLabel,
		StartTime:   slot.StartTime,
	}
	if err := s.eventBus.PublishJSON(events.EventReminderSent, payload); err != nil {
		s.logger.Error().Err(err).Str("slot_id", slot.ID).Msg("publish event error")
	}
}
