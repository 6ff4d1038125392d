package metrics

import "time"

// OutcomeLabel enumerates terminal job outcomes for counters.
type OutcomeLabel string

const (
	OutcomeSucceeded OutcomeLabel = "succeeded"
	OutcomeFailed    OutcomeLabel = "failed"
	OutcomeSkipped   OutcomeLabel = "skipped"
)

// Recorder defines observability hooks for the queue and worker.
// Implementations may forward to Prometheus, OpenTelemetry, etc.
type Recorder interface {
	IncJobOutcome(kind string, outcome OutcomeLabel)
	ObserveJobDuration(kind string, d time.Duration)
	SetQueueDepth(n int)
	IncCommit()
	IncNotification()
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) IncJobOutcome(string, OutcomeLabel)     {}
func (NoopRecorder) ObserveJobDuration(string, time.Duration) {}
func (NoopRecorder) SetQueueDepth(int)                      {}
func (NoopRecorder) IncCommit()                             {}
func (NoopRecorder) IncNotification()                       {}
