package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"xandpulse/utils"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "missing.json"), nil)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.CacheTTLDuration())
	assert.Equal(t, int64(utils.DefaultOnlineThreshold), cfg.Scoring.Thresholds.OnlineSeconds)
	assert.Equal(t, int64(utils.DefaultDegradedThreshold), cfg.Scoring.Thresholds.DegradedSeconds)
	assert.InDelta(t, 1.0, cfg.Scoring.Weights.Uptime+cfg.Scoring.Weights.Recency+
		cfg.Scoring.Weights.Storage+cfg.Scoring.Weights.Version, 1e-9)
}

func TestLoadFrom_FileEnvAndFlags(t *testing.T) {
	path := writeConfig(t, `{
		"server": {"port": 9000, "seed_nodes": ["1.1.1.1:6000"]},
		"scoring": {"thresholds": {"online_seconds": 120, "degraded_seconds": 600}},
		"versions": {"current_stable": "0.8.0"}
	}`)

	t.Setenv("SEED_NODES", "2.2.2.2:6000, 3.3.3.3:6000")
	t.Setenv("WEIGHT_VERSION", "0")
	t.Setenv("VERSION_MIN_SUPPORTED", "0.7.0")
	t.Setenv("REDIS_ENABLED", "true")

	cfg, err := LoadFrom(path, []string{"-port", "9100"})
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port, "flags override file")
	assert.Equal(t, []string{"2.2.2.2:6000", "3.3.3.3:6000"}, cfg.Server.SeedNodes, "env overrides file")
	assert.Equal(t, int64(120), cfg.Scoring.Thresholds.OnlineSeconds)
	assert.Equal(t, int64(600), cfg.Scoring.Thresholds.DegradedSeconds)
	assert.Equal(t, utils.DefaultUptimeCeiling, cfg.Scoring.UptimeCeilingSeconds, "unset fields keep defaults")
	assert.Zero(t, cfg.Scoring.Weights.Version)
	assert.InDelta(t, 0.35/0.9, cfg.Scoring.Weights.Uptime, 1e-9)
	assert.Equal(t, "0.8.0", cfg.Versions.CurrentStable)
	assert.Equal(t, "0.7.0", cfg.Versions.MinSupported)
	assert.True(t, cfg.Redis.Enabled)
}

func TestLoad_UsesConfigFileEnv(t *testing.T) {
	path := writeConfig(t, `{"cache": {"ttl_seconds": 5}}`)
	t.Setenv("CONFIG_FILE", path)

	assert.Equal(t, path, Path())

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.CacheTTLDuration())
}

func TestLoadFrom_Errors(t *testing.T) {
	_, err := LoadFrom(writeConfig(t, `{"server": `), nil)
	assert.Error(t, err)

	_, err = LoadFrom(filepath.Join(t.TempDir(), "missing.json"), []string{"-nope"})
	assert.Error(t, err)
}

func TestLoadFrom_MalformedEnvIgnored(t *testing.T) {
	t.Setenv("SERVER_PORT", "not-a-number")
	t.Setenv("STORAGE_BAND_LOW", "abc")

	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "missing.json"), nil)
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, utils.DefaultStorageBandLow, cfg.Scoring.StorageBandLow)
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(LoggerConfig{Level: "debug", Encoding: "console"})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))

	logger, err = NewLogger(LoggerConfig{Level: "warn", Encoding: "json"})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))

	_, err = NewLogger(LoggerConfig{Level: "loud"})
	assert.Error(t, err)
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	path := writeConfig(t, `{"scoring": {"thresholds": {"online_seconds": 300, "degraded_seconds": 900}}}`)

	core, logs := observer.New(zapcore.InfoLevel)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan *Config, 16)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, func(c *Config) { reloaded <- c }, zap.New(core))
	}()

	require.Eventually(t, func() bool {
		return logs.FilterMessage("watching config for changes").Len() == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(path,
		[]byte(`{"scoring": {"thresholds": {"online_seconds": 60, "degraded_seconds": 120}}}`), 0o600))

	select {
	case c := <-reloaded:
		assert.Equal(t, int64(60), c.Scoring.Thresholds.OnlineSeconds)
		assert.Equal(t, int64(120), c.Scoring.Thresholds.DegradedSeconds)
	case <-time.After(5 * time.Second):
		t.Fatal("config was not reloaded")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatch_ReloadsAfterRenameSaves(t *testing.T) {
	path := writeConfig(t, `{"scoring": {"thresholds": {"online_seconds": 300, "degraded_seconds": 900}}}`)

	core, logs := observer.New(zapcore.InfoLevel)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan *Config, 16)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, func(c *Config) { reloaded <- c }, zap.New(core))
	}()

	require.Eventually(t, func() bool {
		return logs.FilterMessage("watching config for changes").Len() == 1
	}, 2*time.Second, 10*time.Millisecond)

	// Save the way editors do: write a sibling file, then rename it over path
	save := func(online int64, body string) {
		tmp := path + ".tmp"
		require.NoError(t, os.WriteFile(tmp, []byte(body), 0o600))
		require.NoError(t, os.Rename(tmp, path))

		deadline := time.After(5 * time.Second)
		for {
			select {
			case c := <-reloaded:
				if c.Scoring.Thresholds.OnlineSeconds == online {
					return
				}
			case <-deadline:
				t.Fatalf("config with online_seconds=%d was not reloaded", online)
			}
		}
	}

	save(60, `{"scoring": {"thresholds": {"online_seconds": 60, "degraded_seconds": 120}}}`)
	save(90, `{"scoring": {"thresholds": {"online_seconds": 90, "degraded_seconds": 180}}}`)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatch_MissingFile(t *testing.T) {
	err := Watch(context.Background(), filepath.Join(t.TempDir(), "missing.json"), func(*Config) {}, zap.NewNop())
	assert.Error(t, err)
}
