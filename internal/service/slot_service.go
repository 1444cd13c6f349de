package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lessonbook/internal/domain"
	"lessonbook/internal/events"
	"lessonbook/internal/metrics"
	"lessonbook/internal/models"
	"lessonbook/internal/timetable"

	"github.com/rs/zerolog"
)

var (
	// ErrInvalidSlot rejects malformed slot definitions.
	ErrInvalidSlot = errors.New("invalid slot definition")

	// ErrInvalidRecurrence rejects unknown recurrence rules.
	ErrInvalidRecurrence = errors.New("invalid recurrence rule")
)

// SlotService expands slot requests into persisted series and keeps a
// provider's schedule free of duplicates.
type SlotService struct {
	repo     domain.Repository
	eventBus domain.EventPublisher
	location *time.Location
	logger   *zerolog.Logger
}

func NewSlotService(repo domain.Repository, eventBus domain.EventPublisher, location *time.Location, logger *zerolog.Logger) *SlotService {
	if location == nil {
		location = time.UTC
	}
	return &SlotService{
		repo:     repo,
		eventBus: eventBus,
		location: location,
		logger:   logger,
	}
}

// GenerateSlots expands req into open slots and persists them one by one,
// returning how many were created. A mid-series store failure stops the run
// without retracting committed occurrences; retrying is additive and
// RemoveDuplicates cleans up afterwards.
func (s *SlotService) GenerateSlots(ctx context.Context, req models.SlotRequest) (int, error) {
	if err := validateRequest(req); err != nil {
		return 0, err
	}

	created := 0
	for _, occ := range s.expand(req) {
		slot := &models.Slot{
			ProviderID:  req.ProviderID,
			Location:    req.Location,
			PeriodLabel: timetable.PeriodLabel(occ.start.In(s.location)),
			StartTime:   occ.start,
			EndTime:     occ.end,
		}
		if err := s.repo.CreateSlot(ctx, slot); err != nil {
			s.logger.Error().Err(err).
				Str("provider_id", req.ProviderID).
				Int("created", created).
				Msg("slot series interrupted by store failure")
			return created, fmt.Errorf("created %d of series before failure: %w", created, err)
		}
		created++
		s.publish(events.EventSlotCreated, slot)
	}

	metrics.IncSlotsCreated(created)
	return created, nil
}

// RemoveDuplicates deletes every slot that shares a start instant with an
// earlier-created slot of the same provider. Running it again on the
// surviving set removes nothing.
func (s *SlotService) RemoveDuplicates(ctx context.Context, providerID string) (int, error) {
	slots, err := s.repo.GetProviderSlots(ctx, providerID)
	if err != nil {
		return 0, err
	}

	seen := make(map[int64]bool, len(slots))
	removed := 0
	for _, slot := range slots {
		key := slot.StartTime.UTC().Unix()
		if !seen[key] {
			seen[key] = true
			continue
		}
		if err := s.repo.DeleteSlot(ctx, slot.ID); err != nil {
			return removed, fmt.Errorf("failed to delete duplicate slot %s: %w", slot.ID, err)
		}
		removed++
		s.publish(events.EventSlotRemoved, slot)
	}

	metrics.IncDuplicatesRemoved(removed)
	return removed, nil
}

func (s *SlotService) ProviderSlots(ctx context.Context, providerID string) ([]*models.Slot, error) {
	return s.repo.GetProviderSlots(ctx, providerID)
}

func (s *SlotService) OpenSlots(ctx context.Context, providerID string) ([]*models.Slot, error) {
	return s.repo.GetOpenSlots(ctx, providerID, time.Now())
}

type occurrence struct {
	start time.Time
	end   time.Time
}

// expand computes the occurrence list. The horizon is inclusive of its
// calendar day: an occurrence starting on the horizon date is still
// generated, one starting the day after is not.
func (s *SlotService) expand(req models.SlotRequest) []occurrence {
	base := occurrence{start: req.StartTime, end: req.EndTime}
	if req.Recurrence == models.RecurrenceNone {
		return []occurrence{base}
	}

	cutoff := endOfDay(req.Horizon.In(s.location))
	var out []occurrence
	for occ := base; occ.start.Before(cutoff); occ = s.next(req.Recurrence, occ) {
		out = append(out, occ)
	}
	return out
}

func (s *SlotService) next(rule string, occ occurrence) occurrence {
	switch rule {
	case models.RecurrenceDaily:
		// Daily means every school day; weekends are skipped.
		return occurrence{
			start: timetable.NextSchoolDay(occ.start.In(s.location)),
			end:   timetable.NextSchoolDay(occ.end.In(s.location)),
		}
	case models.RecurrenceMonthly:
		return occurrence{
			start: timetable.NextMonth(occ.start.In(s.location)),
			end:   timetable.NextMonth(occ.end.In(s.location)),
		}
	default:
		return occurrence{
			start: timetable.NextWeek(occ.start.In(s.location)),
			end:   timetable.NextWeek(occ.end.In(s.location)),
		}
	}
}

func validateRequest(req models.SlotRequest) error {
	if req.ProviderID == "" {
		return fmt.Errorf("%w: provider id is required", ErrInvalidSlot)
	}
	if req.Location == "" {
		return fmt.Errorf("%w: location is required", ErrInvalidSlot)
	}
	if !req.EndTime.After(req.StartTime) {
		return fmt.Errorf("%w: end time must be after start time", ErrInvalidSlot)
	}
	if !models.ValidRecurrence(req.Recurrence) {
		return fmt.Errorf("%w: %q", ErrInvalidRecurrence, req.Recurrence)
	}
	if req.Recurrence != models.RecurrenceNone && req.Horizon.IsZero() {
		return fmt.Errorf("%w: recurrence %q requires a horizon", ErrInvalidSlot, req.Recurrence)
	}
	return nil
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location()).AddDate(0, 0, 1)
}

func (s *SlotService) publish(eventType string, slot *models.Slot) {
	if s.eventBus == nil {
		return
	}

	payload := events.SlotEventPayload{
		SlotID:      slot.ID,
		ProviderID:  slot.ProviderID,
		PeriodLabel: slot.PeriodLabel,
		StartTime:   slot.StartTime,
		Location:    slot.Location,
	}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Str("slot_id", slot.ID).Msg("publish event error")
	}
}
