package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "data_dir: /tmp/appdock-test\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "/tmp/appdock-test", cfg.DataDir)
	require.Equal(t, "127.0.0.1:7600", cfg.Listen)
	require.Equal(t, "info", cfg.LogLevel)
	require.Equal(t, 0, cfg.Queue.MaxDepth)
	require.Equal(t, "appdock.state.changed", cfg.Notify.Subject)
	require.Equal(t, "/tmp/appdock-test/scripts", cfg.Catalog.CacheDir)

	timeout, err := cfg.JobTimeout()
	require.NoError(t, err)
	require.Equal(t, time.Duration(0), timeout)

	interval, err := cfg.LivenessInterval()
	require.NoError(t, err)
	require.Equal(t, 30*time.Second, interval)
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("APPDOCK_TEST_LISTEN", "0.0.0.0:9999")
	path := writeConfig(t, "listen: ${APPDOCK_TEST_LISTEN}\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0:9999", cfg.Listen)
}

func TestLoad_InvalidTimeout(t *testing.T) {
	path := writeConfig(t, "worker:\n  job_timeout: soon\n")

	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "job_timeout")
}

func TestLoad_NegativeQueueDepth(t *testing.T) {
	path := writeConfig(t, "queue:\n  max_depth: -1\n")

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_BadLogLevel(t *testing.T) {
	path := writeConfig(t, "log_level: loud\n")

	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "log_level")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestInit_RefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, Init(path, false))
	require.Error(t, Init(path, false))
	require.NoError(t, Init(path, true))

	// Generated config must round-trip through Load.
	cfg, err := Load(path)
	require.NoError(t, err)
	timeout, err := cfg.JobTimeout()
	require.NoError(t, err)
	require.Equal(t, 10*time.Minute, timeout)
}
