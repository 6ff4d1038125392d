package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/appdock/appdock/internal/apps"
	"github.com/appdock/appdock/internal/notify"
	"github.com/appdock/appdock/internal/orchestrator"
	"github.com/appdock/appdock/internal/state"
)

func newTestServer(t *testing.T, maxDepth int) *Server {
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
    description: A **web server**
    script: |
      VERSION 2.8.0
      RUN echo install
      LAUNCH caddy run
  - id: redis
    name: Redis
    description: In-memory data store
    script: RUN echo install
`), 0o644))
	catalog, err := apps.LoadCatalog(catalogPath, t.TempDir())
	require.NoError(t, err)

	return NewServer(":0", Deps{
		Queue:   orchestrator.NewQueue(maxDepth),
		Store:   store,
		Bus:     bus,
		Catalog: catalog,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func decodeResponse(t *testing.T, body io.Reader) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.NewDecoder(body).Decode(&resp))
	return resp
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, 0)

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest("GET", "/healthz", nil))

	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"status":"healthy"}`, w.Body.String())
}

func TestSubmitJob(t *testing.T) {
	srv := newTestServer(t, 0)

	body, _ := json.Marshal(JobRequest{Kind: "install", AppID: "caddy"})
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest("POST", "/jobs", bytes.NewReader(body)))

	require.Equal(t, http.StatusAccepted, w.Code)
	resp := decodeResponse(t, w.Body)
	require.True(t, resp.Success)

	data := resp.Data.(map[string]interface{})
	require.EqualValues(t, 1, data["id"])
	require.Equal(t, "queued", data["status"])
}

func TestSubmitJobValidation(t *testing.T) {
	srv := newTestServer(t, 0)

	cases := []struct {
		name string
		req  JobRequest
	}{
		{"unknown kind", JobRequest{Kind: "reboot", AppID: "a"}},
		{"missing app id", JobRequest{Kind: "install"}},
		{"cancel without target", JobRequest{Kind: "cancel"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body, _ := json.Marshal(tc.req)
			w := httptest.NewRecorder()
			srv.Router().ServeHTTP(w, httptest.NewRequest("POST", "/jobs", bytes.NewReader(body)))
			require.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestSubmitJobQueueFull(t *testing.T) {
	srv := newTestServer(t, 1)

	body, _ := json.Marshal(JobRequest{Kind: "install", AppID: "caddy"})
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest("POST", "/jobs", bytes.NewReader(body)))
	require.Equal(t, http.StatusAccepted, w.Code)

	body, _ = json.Marshal(JobRequest{Kind: "install", AppID: "redis"})
	w = httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest("POST", "/jobs", bytes.NewReader(body)))
	require.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestGetJobStatus(t *testing.T) {
	srv := newTestServer(t, 0)

	id, err := srv.deps.Queue.Enqueue(orchestrator.KindInstall, "caddy", orchestrator.Payload{})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest("GET", "/jobs/1", nil))
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeResponse(t, w.Body)
	data := resp.Data.(map[string]interface{})
	require.EqualValues(t, id, data["id"])
	require.Equal(t, "queued", data["status"])
}

func TestGetJobFallsBackToAudit(t *testing.T) {
	srv := newTestServer(t, 0)

	now := time.Now()
	require.NoError(t, srv.deps.Store.RecordJob(context.Background(), state.JobRecord{
		JobID:       77,
		Kind:        "install",
		AppID:       "caddy",
		Status:      "succeeded",
		SubmittedAt: now,
	}))

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest("GET", "/jobs/77", nil))
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeResponse(t, w.Body)
	data := resp.Data.(map[string]interface{})
	require.Equal(t, "succeeded", data["status"])
}

func TestGetJobNotFound(t *testing.T) {
	srv := newTestServer(t, 0)

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest("GET", "/jobs/404", nil))
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestAppEndpoints(t *testing.T) {
	srv := newTestServer(t, 0)

	_, err := srv.deps.Store.Apply(context.Background(), "caddy",
		state.Delta{InstallStatus: state.InstallPtr(state.InstallInstalling)})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest("GET", "/apps", nil))
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w.Body)
	require.Len(t, resp.Data, 1)

	w = httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest("GET", "/apps/caddy", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest("GET", "/apps/ghost", nil))
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestSnapshotCarriesRevision(t *testing.T) {
	srv := newTestServer(t, 0)

	_, err := srv.deps.Store.Apply(context.Background(), "caddy",
		state.Delta{InstallStatus: state.InstallPtr(state.InstallInstalling)})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest("GET", "/snapshot", nil))
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeResponse(t, w.Body)
	data := resp.Data.(map[string]interface{})
	require.EqualValues(t, 1, data["revision"])
}

func TestCatalogSearch(t *testing.T) {
	srv := newTestServer(t, 0)

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest("GET", "/catalog?q=web", nil))
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeResponse(t, w.Body)
	items := resp.Data.([]interface{})
	require.Len(t, items, 1)

	item := items[0].(map[string]interface{})
	require.Equal(t, "caddy", item["id"])
	require.Contains(t, item["description_html"], "<strong>web server</strong>")

	w = httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest("GET", "/catalog", nil))
	resp = decodeResponse(t, w.Body)
	require.Len(t, resp.Data, 2)
}
