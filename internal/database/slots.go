package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"lessonbook/internal/models"

	"github.com/google/uuid"
)

const slotColumns = `id, provider_id, client_id, location, period_label,
                     start_time, end_time, notified, created_at, updated_at`

func (db *DB) CreateSlot(ctx context.Context, slot *models.Slot) error {
	if slot.ID == "" {
		slot.ID = uuid.NewString()
	}
	now := time.Now().UTC()

	query := `INSERT INTO slots (
				id, provider_id, client_id, location, period_label,
				start_time, end_time, notified, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := db.db.ExecContext(ctx, query,
		slot.ID,
		slot.ProviderID,
		slot.ClientID,
		slot.Location,
		slot.PeriodLabel,
		slot.StartTime.UTC(),
		slot.EndTime.UTC(),
		slot.Notified,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create slot: %w", err)
	}

	slot.CreatedAt = now
	slot.UpdatedAt = now
	return nil
}

func (db *DB) GetSlot(ctx context.Context, id string) (*models.Slot, error) {
	query := `SELECT ` + slotColumns + ` FROM slots WHERE id = ?`
	slot, err := scanSlot(db.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSlotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get slot: %w", err)
	}
	return slot, nil
}

// GetProviderSlots returns every slot for a provider in creation order. The
// rowid tiebreak keeps the order stable when several slots share one
// created_at instant, which the duplicate resolver depends on.
func (db *DB) GetProviderSlots(ctx context.Context, providerID string) ([]*models.Slot, error) {
	query := `SELECT ` + slotColumns + ` FROM slots
              WHERE provider_id = ? ORDER BY created_at ASC, rowid ASC`
	return db.querySlots(ctx, query, providerID)
}

// GetOpenSlots returns unbooked future slots for a provider, soonest first.
func (db *DB) GetOpenSlots(ctx context.Context, providerID string, after time.Time) ([]*models.Slot, error) {
	query := `SELECT ` + slotColumns + ` FROM slots
              WHERE provider_id = ? AND client_id IS NULL AND start_time > ?
              ORDER BY start_time ASC`
	return db.querySlots(ctx, query, providerID, after.UTC())
}

// HasOpenSlot reports whether a provider has at least one open future slot.
func (db *DB) HasOpenSlot(ctx context.Context, providerID string, after time.Time) (bool, error) {
	query := `SELECT COUNT(*) FROM slots
              WHERE provider_id = ? AND client_id IS NULL AND start_time > ?`
	var count int
	if err := db.db.QueryRowContext(ctx, query, providerID, after.UTC()).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to count open slots: %w", err)
	}
	return count > 0, nil
}

// GetBookedSlots returns booked slots starting within [from, until), the
// reminder sweep's raw input when unnotifiedOnly is set.
func (db *DB) GetBookedSlots(ctx context.Context, from, until time.Time, unnotifiedOnly bool) ([]*models.Slot, error) {
	query := `SELECT ` + slotColumns + ` FROM slots
              WHERE client_id IS NOT NULL AND start_time >= ? AND start_time < ?`
	if unnotifiedOnly {
		query += ` AND notified = 0`
	}
	query += ` ORDER BY start_time ASC`
	return db.querySlots(ctx, query, from.UTC(), until.UTC())
}

// BookSlot binds a client to a slot with a single conditional update. The
// client_id IS NULL guard is the whole concurrency story: when two clients
// race, one UPDATE matches zero rows and the loser gets ErrSlotTaken.
func (db *DB) BookSlot(ctx context.Context, slotID, clientID string, now time.Time) error {
	query := `UPDATE slots SET client_id = ?, notified = 0, updated_at = ?
              WHERE id = ? AND client_id IS NULL AND start_time > ?`
	result, err := db.db.ExecContext(ctx, query, clientID, time.Now().UTC(), slotID, now.UTC())
	if err != nil {
		return fmt.Errorf("failed to book slot: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows > 0 {
		return nil
	}

	// Lost the update; fetch once to report why.
	slot, err := db.GetSlot(ctx, slotID)
	if err != nil {
		return err
	}
	if !slot.IsOpen() {
		return ErrSlotTaken
	}
	if !slot.StartTime.After(now) {
		return ErrSlotExpired
	}
	return ErrSlotTaken
}

// CancelSlot releases a slot held by clientID. The notified flag resets so
// a later occupant gets a fresh reminder.
func (db *DB) CancelSlot(ctx context.Context, slotID, clientID string) error {
	query := `UPDATE slots SET client_id = NULL, notified = 0, updated_at = ?
              WHERE id = ? AND client_id = ?`
	result, err := db.db.ExecContext(ctx, query, time.Now().UTC(), slotID, clientID)
	if err != nil {
		return fmt.Errorf("failed to cancel slot: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows > 0 {
		return nil
	}

	slot, err := db.GetSlot(ctx, slotID)
	if err != nil {
		return err
	}
	if slot.IsOpen() {
		return ErrSlotNotBooked
	}
	return ErrNotOwner
}

func (db *DB) DeleteSlot(ctx context.Context, id string) error {
	result, err := db.db.ExecContext(ctx, `DELETE FROM slots WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete slot: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrSlotNotFound
	}
	return nil
}

// MarkNotified flips the notified flag, guarded so a concurrent rebook (which
// resets the flag and swaps the occupant) is never overwritten. Returns false
// when the guard loses; the next sweep re-evaluates the slot.
func (db *DB) MarkNotified(ctx context.Context, slotID string) (bool, error) {
	query := `UPDATE slots SET notified = 1, updated_at = ?
              WHERE id = ? AND notified = 0 AND client_id IS NOT NULL`
	result, err := db.db.ExecContext(ctx, query, time.Now().UTC(), slotID)
	if err != nil {
		return false, fmt.Errorf("failed to mark slot notified: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

func (db *DB) querySlots(ctx context.Context, query string, args ...any) ([]*models.Slot, error) {
	rows, err := db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query slots: %w", err)
	}
	defer rows.Close()

	var slots []*models.Slot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan slot: %w", err)
		}
		slots = append(slots, slot)
	}
	return slots, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSlot(row rowScanner) (*models.Slot, error) {
	s := &models.Slot{}
	var clientID sql.NullString
	err := row.Scan(
		&s.ID, &s.ProviderID, &clientID, &s.Location, &s.PeriodLabel,
		&s.StartTime, &s.EndTime, &s.Notified, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if clientID.Valid {
		s.ClientID = &clientID.String
	}
	return s, nil
}
