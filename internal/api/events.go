package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// sseEvent is the wire form of one change cue. Consumers are expected to
// re-read GET /snapshot (or the affected app) rather than treat this as a
// diff.
type sseEvent struct {
	Type     string    `json:"type"` // connected, change
	AppID    string    `json:"app_id,omitempty"`
	JobID    uint64    `json:"job_id,omitempty"`
	Revision uint64    `json:"revision"`
	At       time.Time `json:"at"`
}

// handleEvents streams change cues over Server-Sent Events until the client
// disconnects or the bus shuts down.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.Error(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable Nginx buffering

	events, sub := s.deps.Bus.Subscribe(16)
	defer s.deps.Bus.Unsubscribe(sub)

	s.log.Info("change feed opened", "remote", r.RemoteAddr)

	s.sendSSE(w, flusher, sseEvent{
		Type:     "connected",
		Revision: s.deps.Store.Revision(),
		At:       time.Now(),
	})

	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			s.log.Info("change feed closed", "remote", r.RemoteAddr)
			return

		case <-heartbeat.C:
			// Comment line keeps idle connections from being reaped.
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()

		case evt, open := <-events:
			if !open {
				s.log.Info("change feed closed (bus shut down)", "remote", r.RemoteAddr)
				return
			}
			s.sendSSE(w, flusher, sseEvent{
				Type:     "change",
				AppID:    evt.AppID,
				JobID:    evt.JobID,
				Revision: evt.Revision,
				At:       evt.At,
			})
		}
	}
}

// sendSSE writes one event in SSE format and flushes it.
func (s *Server) sendSSE(w http.ResponseWriter, flusher http.Flusher, evt sseEvent) {
	payload, err := json.Marshal(evt)
	if err != nil {
		s.log.Error("marshal sse event", "error", err)
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", payload)
	flusher.Flush()
}
