package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tio.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "{}\n"))
	require.NoError(t, err)
	require.Equal(t, ":7855", cfg.Relay.Listen)
	require.Equal(t, "random", cfg.Relay.Balancer)
	require.Equal(t, 30*time.Second, cfg.Relay.StatsInterval)
	require.Equal(t, "info", cfg.Log.Level)
	require.False(t, cfg.Capture.Enable)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
log:
  level: debug
  format: json
relay:
  listen: 127.0.0.1:9000
  deliver: 127.0.0.1:9100
  upstream: 10.0.0.5:7855
  balancer: first
  stats_interval: 5s
  routes:
    "1": 127.0.0.1:9001
    "3": sensor-hub.local:7855
capture:
  enable: true
  path: /tmp/relay.tiocap
  format: cbor
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, "json", cfg.Log.Format)
	require.Equal(t, "127.0.0.1:9000", cfg.Relay.Listen)
	require.Equal(t, "127.0.0.1:9100", cfg.Relay.Deliver)
	require.Equal(t, "10.0.0.5:7855", cfg.Relay.Upstream)
	require.Equal(t, 5*time.Second, cfg.Relay.StatsInterval)
	require.True(t, cfg.Capture.Enable)
	require.Equal(t, "cbor", cfg.Capture.Format)

	routes, err := cfg.Relay.HopRoutes()
	require.NoError(t, err)
	require.Equal(t, map[byte]string{1: "127.0.0.1:9001", 3: "sensor-hub.local:7855"}, routes)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("TIO_LOG_LEVEL", "warn")
	t.Setenv("TIO_RELAY_LISTEN", "127.0.0.1:9999")

	cfg, err := Load(writeConfig(t, "log:\n  level: debug\n"))
	require.NoError(t, err)
	require.Equal(t, "warn", cfg.Log.Level)
	require.Equal(t, "127.0.0.1:9999", cfg.Relay.Listen)
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]string{
		"bad level":     "log:\n  level: loud\n",
		"bad balancer":  "relay:\n  balancer: roundrobin\n",
		"bad hop":       "relay:\n  routes:\n    \"256\": 127.0.0.1:1\n",
		"empty address": "relay:\n  routes:\n    \"2\": \"\"\n",
		"capture path":  "capture:\n  enable: true\n  path: \"\"\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			require.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
