package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 10, cfg.Executor.MaxConcurrentNodes)
	assert.Equal(t, 10, cfg.Scheduler.TickIntervalSeconds)
	assert.Equal(t, "memory", cfg.Storage.Driver)
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverlaysYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9090\nstorage:\n  driver: postgres\n  dsn: postgres://x\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Storage.Driver)
	assert.Equal(t, "postgres://x", cfg.Storage.DSN)
}

func TestLoadEnvironmentOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9090\n"), 0o644))

	t.Setenv("FLOWCORE_PORT", "7777")
	t.Setenv("FLOWCORE_MAX_CONCURRENT_NODES", "25")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7777, cfg.Server.Port)
	assert.Equal(t, 25, cfg.Executor.MaxConcurrentNodes)
}

func TestSchedulerConfigTickInterval(t *testing.T) {
	sc := SchedulerConfig{TickIntervalSeconds: 5}
	assert.Equal(t, int64(5), sc.TickInterval().Milliseconds()/1000)
}
