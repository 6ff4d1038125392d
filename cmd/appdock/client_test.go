package main

import (
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/appdock/appdock/internal/api"
	"github.com/appdock/appdock/internal/apps"
	"github.com/appdock/appdock/internal/notify"
	"github.com/appdock/appdock/internal/orchestrator"
	"github.com/appdock/appdock/internal/state"
)

func startTestDaemon(t *testing.T) *orchestrator.Queue {
	t.Helper()

	store, err := state.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	bus := notify.NewBus()
	t.Cleanup(bus.Close)

	catalogPath := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(catalogPath, []byte(`
apps:
  - id: caddy
    name: Caddy
    script: RUN echo install
`), 0o644))
	catalog, err := apps.LoadCatalog(catalogPath, t.TempDir())
	require.NoError(t, err)

	queue := orchestrator.NewQueue(0)
	srv := api.NewServer(":0", api.Deps{
		Queue:   queue,
		Store:   store,
		Bus:     bus,
		Catalog: catalog,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	CLI.Server = ts.URL
	return queue
}

func TestSubmitAndStatusRoundTrip(t *testing.T) {
	queue := startTestDaemon(t)

	require.NoError(t, runSubmit("install", "caddy", "", 0))
	require.Equal(t, 1, queue.Depth())

	require.NoError(t, runStatus(1))
	require.NoError(t, runStatus(0))
}

func TestSubmitRejectsUnknownKind(t *testing.T) {
	startTestDaemon(t)

	err := runSubmit("reboot", "caddy", "", 0)
	require.Error(t, err)
	require.Contains(t, err.Error(), "HTTP 400")
}

func TestCatalogListing(t *testing.T) {
	startTestDaemon(t)

	require.NoError(t, runCatalog(""))
	require.NoError(t, runCatalog("caddy"))
}

func TestSubmitWithScriptFile(t *testing.T) {
	queue := startTestDaemon(t)

	scriptPath := filepath.Join(t.TempDir(), "install.txt")
	require.NoError(t, os.WriteFile(scriptPath, []byte("RUN echo custom"), 0o644))

	require.NoError(t, runSubmit("install", "caddy", scriptPath, 0))

	job, ok := queue.Snapshot(1)
	require.True(t, ok)
	require.Equal(t, "RUN echo custom", job.Payload.Script)
}
