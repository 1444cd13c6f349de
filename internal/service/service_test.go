package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"lessonbook/internal/database"
	"lessonbook/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	logger := zerolog.Nop()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

type dispatchCall struct {
	recipientID string
	message     string
	subject     string
}

// fakeDispatcher records every Dispatch call.
type fakeDispatcher struct {
	mu    sync.Mutex
	calls []dispatchCall
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, recipient *models.User, message, subject string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, dispatchCall{recipientID: recipient.ID, message: message, subject: subject})
}

func (f *fakeDispatcher) sent() []dispatchCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]dispatchCall(nil), f.calls...)
}

func seedUser(t *testing.T, db *database.DB, user *models.User) {
	t.Helper()
	require.NoError(t, db.CreateOrUpdateUser(context.Background(), user))
}
