package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.SetDefaults()

	assert.Equal(t, ":7711", cfg.Relay.BindAddr)
	assert.Equal(t, ":9090", cfg.Relay.ListenAddress)
	assert.Equal(t, "/metrics", cfg.Relay.TelemetryPath)
	assert.Equal(t, 1000, cfg.Limits.MaxPeers)
	assert.Equal(t, 64*1024, cfg.Limits.MaxLineBytes)
	assert.Equal(t, 4096, cfg.Limits.ReadBufferBytes)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 10*time.Second, cfg.GetWriteTimeout())
	assert.Equal(t, time.Second, cfg.GetTickInterval())
	assert.NotEmpty(t, cfg.Relay.Welcome)
}

func TestSetDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := &Config{}
	cfg.Relay.BindAddr = ":9000"
	cfg.Limits.MaxLineBytes = 512
	cfg.SetDefaults()

	assert.Equal(t, ":9000", cfg.Relay.BindAddr)
	assert.Equal(t, 512, cfg.Limits.MaxLineBytes)
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `
relay:
  bind_addr: ":7000"
  server_name: "relay-a"
limits:
  max_peers: 5
  max_line_bytes: 1024
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.Relay.BindAddr)
	assert.Equal(t, "relay-a", cfg.Relay.ServerName)
	assert.Equal(t, 5, cfg.Limits.MaxPeers)
	assert.Equal(t, 1024, cfg.Limits.MaxLineBytes)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Defaults still fill the gaps.
	assert.Equal(t, ":9090", cfg.Relay.ListenAddress)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("RELAY_BIND_ADDR", ":7100")
	t.Setenv("RELAY_MAX_PEERS", "42")
	t.Setenv("RELAY_WRITE_TIMEOUT_SECONDS", "3")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg := &Config{}
	cfg.SetDefaults()
	cfg.ApplyEnvOverrides()

	assert.Equal(t, ":7100", cfg.Relay.BindAddr)
	assert.Equal(t, 42, cfg.Limits.MaxPeers)
	assert.Equal(t, 3*time.Second, cfg.GetWriteTimeout())
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestApplyEnvOverridesIgnoresBadNumbers(t *testing.T) {
	t.Setenv("RELAY_MAX_PEERS", "not-a-number")

	cfg := &Config{}
	cfg.SetDefaults()
	cfg.ApplyEnvOverrides()

	assert.Equal(t, 1000, cfg.Limits.MaxPeers)
}
