package daemon

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/appdock/appdock/internal/config"
	"github.com/appdock/appdock/internal/state"
)

func testConfig(t *testing.T) (*config.Config, string) {
	t.Helper()
	dir := t.TempDir()

	catalogPath := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(catalogPath, []byte(`
apps:
  - id: caddy
    name: Caddy
    script: RUN echo install
`), 0o644))

	configPath := filepath.Join(dir, "appdock.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(`
data_dir: `+filepath.Join(dir, "data")+`
listen: 127.0.0.1:0
catalog:
  path: `+catalogPath+`
maintenance:
  liveness_interval: 50ms
  audit_retention: "0"
`), 0o644))

	cfg, err := config.Load(configPath)
	require.NoError(t, err)
	return cfg, configPath
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDaemonStartsAndStops(t *testing.T) {
	cfg, configPath := testConfig(t)

	d, err := New(cfg, configPath, testLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	time.Sleep(200 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("daemon did not shut down")
	}
}

func TestSweepEnqueuesStopForDeadProcess(t *testing.T) {
	cfg, configPath := testConfig(t)

	d, err := New(cfg, configPath, testLogger())
	require.NoError(t, err)
	defer d.store.Close()

	ctx := context.Background()
	seed := []state.Delta{
		{InstallStatus: state.InstallPtr(state.InstallInstalling)},
		{InstallStatus: state.InstallPtr(state.InstallInstalled)},
		{RunStatus: state.RunPtr(state.RunLaunching)},
		{RunStatus: state.RunPtr(state.RunRunning), PID: state.IntPtr(1 << 30), ProcessID: state.StrPtr("gone")},
	}
	for _, delta := range seed {
		_, err := d.store.Apply(ctx, "caddy", delta)
		require.NoError(t, err)
	}

	d.sweepDeadProcesses()

	require.Equal(t, 1, d.queue.Depth())
	job, err := d.queue.Dequeue(ctx)
	require.NoError(t, err)
	require.Equal(t, "stop", job.KindName)
	require.Equal(t, "caddy", job.AppID)
}

func TestSweepIgnoresLiveProcess(t *testing.T) {
	cfg, configPath := testConfig(t)

	d, err := New(cfg, configPath, testLogger())
	require.NoError(t, err)
	defer d.store.Close()

	ctx := context.Background()
	seed := []state.Delta{
		{InstallStatus: state.InstallPtr(state.InstallInstalling)},
		{InstallStatus: state.InstallPtr(state.InstallInstalled)},
		{RunStatus: state.RunPtr(state.RunLaunching)},
		{RunStatus: state.RunPtr(state.RunRunning), PID: state.IntPtr(os.Getpid()), ProcessID: state.StrPtr("self")},
	}
	for _, delta := range seed {
		_, err := d.store.Apply(ctx, "caddy", delta)
		require.NoError(t, err)
	}

	d.sweepDeadProcesses()
	require.Equal(t, 0, d.queue.Depth())
}

func TestWorkerGroupStopAndWait(t *testing.T) {
	var g WorkerGroup

	started := make(chan struct{})
	release := make(chan struct{})
	require.True(t, g.Go(func() {
		close(started)
		<-release
	}))
	<-started

	close(release)
	require.NoError(t, g.StopAndWait(context.Background()))

	// After stopping, no new goroutines may start.
	require.False(t, g.Go(func() {}))
}
