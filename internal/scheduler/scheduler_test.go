package scheduler

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"lessonbook/internal/database"
	"lessonbook/internal/models"
	"lessonbook/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedDispatch struct {
	recipientID string
	message     string
}

type fakeDispatcher struct {
	mu    sync.Mutex
	calls []recordedDispatch
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, recipient *models.User, message, subject string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, recordedDispatch{recipientID: recipient.ID, message: message})
}

func (f *fakeDispatcher) sent() []recordedDispatch {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedDispatch(nil), f.calls...)
}

type fixture struct {
	db         *database.DB
	dispatcher *fakeDispatcher
	locks      *repository.MemoryLockRepository
	scheduler  *ReminderScheduler
	now        time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zerolog.Nop()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	dispatcher := &fakeDispatcher{}
	locks := repository.NewMemoryLockRepository()
	s := New(db, dispatcher, locks, nil, Options{
		Interval: time.Minute,
		Window:   20 * time.Minute,
		LockTTL:  time.Minute,
		Location: time.UTC,
		Retry:    RetryPolicy{MaxRetries: 1, InitialDelay: time.Millisecond},
	}, &logger)

	f := &fixture{db: db, dispatcher: dispatcher, locks: locks, scheduler: s, now: time.Now()}
	s.now = func() time.Time { return f.now }
	return f
}

func (f *fixture) seedUser(t *testing.T, id, name string) {
	t.Helper()
	require.NoError(t, f.db.CreateOrUpdateUser(context.Background(), &models.User{
		ID:          id,
		DisplayName: name,
		Phone:       "+15550100",
	}))
}

func (f *fixture) seedBookedSlot(t *testing.T, providerID, clientID string, start time.Time) *models.Slot {
	t.Helper()
	ctx := context.Background()
	slot := &models.Slot{
		ProviderID:  providerID,
		Location:    "band room",
		PeriodLabel: "3rd",
		StartTime:   start,
		EndTime:     start.Add(45 * time.Minute),
	}
	require.NoError(t, f.db.CreateSlot(ctx, slot))
	// Book relative to a time safely before the slot starts, so fixtures can
	// also set up already-started lessons.
	require.NoError(t, f.db.BookSlot(ctx, slot.ID, clientID, start.Add(-time.Hour)))
	return slot
}

func TestTickRemindsBothParties(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seedUser(t, "teacher-1", "Ms. Reed")
	f.seedUser(t, "student-1", "Sam")
	slot := f.seedBookedSlot(t, "teacher-1", "student-1", f.now.Add(15*time.Minute))

	sent := f.scheduler.Tick(ctx)
	assert.Equal(t, 1, sent)

	calls := f.dispatcher.sent()
	require.Len(t, calls, 2)
	recipients := map[string]bool{}
	for _, c := range calls {
		recipients[c.recipientID] = true
	}
	assert.True(t, recipients["teacher-1"])
	assert.True(t, recipients["student-1"])

	got, err := f.db.GetSlot(ctx, slot.ID)
	require.NoError(t, err)
	assert.True(t, got.Notified)
}

func TestTickIsIdempotentAcrossSweeps(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seedUser(t, "teacher-1", "Ms. Reed")
	f.seedUser(t, "student-1", "Sam")
	f.seedBookedSlot(t, "teacher-1", "student-1", f.now.Add(15*time.Minute))

	assert.Equal(t, 1, f.scheduler.Tick(ctx))
	assert.Equal(t, 0, f.scheduler.Tick(ctx), "already notified slots stay quiet")
	assert.Len(t, f.dispatcher.sent(), 2)
}

func TestTickIgnoresSlotsOutsideWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seedUser(t, "teacher-1", "Ms. Reed")
	f.seedUser(t, "student-1", "Sam")
	f.seedUser(t, "student-2", "Kit")
	f.seedBookedSlot(t, "teacher-1", "student-1", f.now.Add(45*time.Minute))
	f.seedBookedSlot(t, "teacher-1", "student-2", f.now.Add(-10*time.Minute))

	assert.Equal(t, 0, f.scheduler.Tick(ctx))
	assert.Empty(t, f.dispatcher.sent())
}

func TestTickSkippedWhileGuardHeld(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seedUser(t, "teacher-1", "Ms. Reed")
	f.seedUser(t, "student-1", "Sam")
	f.seedBookedSlot(t, "teacher-1", "student-1", f.now.Add(15*time.Minute))

	acquired, err := f.locks.AcquireLock(ctx, tickLockName, time.Minute)
	require.NoError(t, err)
	require.True(t, acquired)

	assert.Equal(t, 0, f.scheduler.Tick(ctx), "overlapping tick is skipped, not queued")
	assert.Empty(t, f.dispatcher.sent())

	// Once the previous holder releases, the sweep proceeds.
	require.NoError(t, f.locks.ReleaseLock(ctx, tickLockName))
	assert.Equal(t, 1, f.scheduler.Tick(ctx))
}

func TestTickReleasesGuard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.Equal(t, 0, f.scheduler.Tick(ctx))

	// The guard must be free again even though the sweep found nothing.
	acquired, err := f.locks.AcquireLock(ctx, tickLockName, time.Minute)
	require.NoError(t, err)
	assert.True(t, acquired)
}

func TestTickSkipsSlotWithMissingClient(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seedUser(t, "teacher-1", "Ms. Reed")
	f.seedUser(t, "student-1", "Sam")
	broken := f.seedBookedSlot(t, "teacher-1", "ghost", f.now.Add(10*time.Minute))
	f.seedBookedSlot(t, "teacher-1", "student-1", f.now.Add(15*time.Minute))

	sent := f.scheduler.Tick(ctx)
	assert.Equal(t, 1, sent, "one bad record never stops the sweep")

	got, err := f.db.GetSlot(ctx, broken.ID)
	require.NoError(t, err)
	assert.False(t, got.Notified, "skipped slot stays eligible for the next sweep")
}
