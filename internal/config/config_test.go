package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, 4, cfg.Session.MaxParticipants)
	assert.Equal(t, 25*time.Minute, cfg.Session.DefaultDuration.Std())
	assert.Equal(t, 5*time.Minute, cfg.Session.GracePeriod.Std())
	assert.Equal(t, time.Second, cfg.Session.TickInterval.Std())
	assert.Equal(t, 30*time.Minute, cfg.Reaper.Interval.Std())
	assert.Equal(t, 2*time.Hour, cfg.Reaper.Retention.Std())
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "focusd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
addr: ":9090"
session:
  max_participants: 8
  default_duration: 50m
  grace_period: 1m
reaper:
  interval: 10m
  retention: 1h
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, 8, cfg.Session.MaxParticipants)
	assert.Equal(t, 50*time.Minute, cfg.Session.DefaultDuration.Std())
	assert.Equal(t, time.Minute, cfg.Session.GracePeriod.Std())
	assert.Equal(t, time.Second, cfg.Session.TickInterval.Std(), "unset fields keep defaults")
	assert.Equal(t, 10*time.Minute, cfg.Reaper.Interval.Std())
	assert.Equal(t, time.Hour, cfg.Reaper.Retention.Std())
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "3000")
	t.Setenv("FOCUSD_MAX_PARTICIPANTS", "2")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":3000", cfg.Addr)
	assert.Equal(t, 2, cfg.Session.MaxParticipants)
}

func TestInvalidDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "focusd.yaml")
	require.NoError(t, os.WriteFile(path, []byte("session:\n  default_duration: soon\n"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestRejectsZeroCapacity(t *testing.T) {
	t.Setenv("FOCUSD_MAX_PARTICIPANTS", "0")

	_, err := Load("")
	assert.Error(t, err)
}

func TestMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
