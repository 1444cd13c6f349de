package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
database:
  path: data/test.db
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "lessonbook", cfg.App.Name)
	assert.Equal(t, 8080, cfg.API.Port)
	assert.Equal(t, 5*time.Minute, cfg.Scheduler.Interval)
	assert.Equal(t, 20*time.Minute, cfg.Scheduler.ReminderWindow)
	assert.Equal(t, 10*time.Second, cfg.Scheduler.GatewayTimeout)
	assert.Equal(t, 4*time.Minute, cfg.Scheduler.LockTTL)
	assert.Equal(t, "America/Chicago", cfg.Timetable.Timezone)
	assert.Equal(t, "exports", cfg.Exports.Path)
}

func TestLoadParsesDurations(t *testing.T) {
	path := writeConfig(t, `
database:
  path: data/test.db
scheduler:
  enabled: true
  interval: 2m
  reminder_window: 30m
  gateway_timeout: 5s
  lock_ttl: 90s
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.Scheduler.Enabled)
	assert.Equal(t, 2*time.Minute, cfg.Scheduler.Interval)
	assert.Equal(t, 30*time.Minute, cfg.Scheduler.ReminderWindow)
	assert.Equal(t, 5*time.Second, cfg.Scheduler.GatewayTimeout)
	assert.Equal(t, 90*time.Second, cfg.Scheduler.LockTTL)
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("TEST_DB_PATH", "data/expanded.db")
	path := writeConfig(t, `
database:
  path: ${TEST_DB_PATH}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "data/expanded.db", cfg.Database.Path)
}

func TestValidateRejectsShortInterval(t *testing.T) {
	path := writeConfig(t, `
database:
  path: data/test.db
scheduler:
  interval: 10s
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "below the 1m minimum")
}

func TestValidateRequiresDatabasePath(t *testing.T) {
	path := writeConfig(t, `
app:
  name: lessonbook
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database path is required")
}

func TestValidateRequiresAdminSecretWhenAPIEnabled(t *testing.T) {
	path := writeConfig(t, `
database:
  path: data/test.db
api:
  enabled: true
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "admin_secret")
}

func TestValidateRejectsUnknownTimezone(t *testing.T) {
	path := writeConfig(t, `
database:
  path: data/test.db
timetable:
  timezone: Mars/Olympus_Mons
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid timetable timezone")
}

func TestLocation(t *testing.T) {
	path := writeConfig(t, `
database:
  path: data/test.db
timetable:
  timezone: UTC
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, time.UTC, cfg.Location())
}
