package metrics

import (
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestNoopRecorderIsSafe(t *testing.T) {
	var r Recorder = NoopRecorder{}
	r.IncJobOutcome("install", OutcomeSucceeded)
	r.ObserveJobDuration("install", time.Second)
	r.SetQueueDepth(3)
	r.IncCommit()
	r.IncNotification()
}

func TestPrometheusRecorderRegistersAndCounts(t *testing.T) {
	reg := prom.NewRegistry()
	r := NewPrometheusRecorder(reg)

	r.IncJobOutcome("install", OutcomeSucceeded)
	r.IncJobOutcome("install", OutcomeFailed)
	r.ObserveJobDuration("install", 250*time.Millisecond)
	r.SetQueueDepth(2)
	r.IncCommit()
	r.IncNotification()

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	require.True(t, names["appdock_jobs_total"])
	require.True(t, names["appdock_job_duration_seconds"])
	require.True(t, names["appdock_queue_depth"])
	require.True(t, names["appdock_state_commits_total"])
	require.True(t, names["appdock_notifications_total"])
}

func TestPrometheusRecorderNilReceiver(t *testing.T) {
	var r *PrometheusRecorder
	r.IncJobOutcome("launch", OutcomeSucceeded)
	r.ObserveJobDuration("launch", time.Second)
	r.SetQueueDepth(0)
	r.IncCommit()
	r.IncNotification()
	require.Nil(t, r)
}
