package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	config, err := loadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "ws://localhost:8080", config.Coordinator.URL)
	assert.Equal(t, "websocket", config.Coordinator.Transport)
	assert.Equal(t, 0.35, config.Sync.DriftThresholdSec)
	assert.Equal(t, 200, config.Sync.ApplySettleMs)
	assert.Equal(t, 100, config.Sync.LocalActionWindowMs)
	assert.Equal(t, "player", config.Player.ContainerID)
	assert.Equal(t, 10, config.Player.MaxAttempts)
	assert.Equal(t, ":8091", config.Status.Addr)
	assert.Equal(t, "info", config.LogLevel)
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
coordinator:
  url: wss://sync.example.com
  room_id: movie-night
  transport: nats
sync:
  drift_threshold_sec: 0.5
player:
  container_id: embed
log_level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	config, err := loadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "wss://sync.example.com", config.Coordinator.URL)
	assert.Equal(t, "movie-night", config.Coordinator.RoomID)
	assert.Equal(t, "nats", config.Coordinator.Transport)
	assert.Equal(t, 0.5, config.Sync.DriftThresholdSec)
	assert.Equal(t, "embed", config.Player.ContainerID)
	assert.Equal(t, "debug", config.LogLevel)

	// Unset keys keep their defaults.
	assert.Equal(t, 200, config.Sync.ApplySettleMs)
	assert.Equal(t, ":8091", config.Status.Addr)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := loadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("LOCKSTEP_COORDINATOR_URL", "wss://override.example.com")
	t.Setenv("LOCKSTEP_ROOM_ID", "override-room")
	t.Setenv("LOCKSTEP_DRIFT_THRESHOLD_SEC", "0.75")
	t.Setenv("LOCKSTEP_APPLY_SETTLE_MS", "300")
	t.Setenv("NATS_URL", "nats://broker:4222")

	config := defaultConfig()
	config.applyEnvOverrides()

	assert.Equal(t, "wss://override.example.com", config.Coordinator.URL)
	assert.Equal(t, "override-room", config.Coordinator.RoomID)
	assert.Equal(t, 0.75, config.Sync.DriftThresholdSec)
	assert.Equal(t, 300, config.Sync.ApplySettleMs)
	assert.Equal(t, "nats://broker:4222", config.Coordinator.NATSURL)

	// Malformed numeric overrides fall back to the existing value.
	t.Setenv("LOCKSTEP_APPLY_SETTLE_MS", "not-a-number")
	config = defaultConfig()
	config.applyEnvOverrides()
	assert.Equal(t, 200, config.Sync.ApplySettleMs)
}
