// Package orchestrator contains the single-writer job pipeline: an ordered
// queue of mutating operations, a dispatcher mapping job kinds to handlers,
// and the one worker that executes them serially against the state store.
package orchestrator

import (
	"fmt"
	"time"
)

// JobKind is the closed set of mutating operations. Adding a kind means
// extending the dispatcher's switch, which the compiler checks, rather than
// registering a string at runtime.
type JobKind int

const (
	KindUnknown JobKind = iota
	KindInstall
	KindLaunch
	KindStop
	KindUninstall
	KindCancel
)

// String implements fmt.Stringer.
func (k JobKind) String() string {
	switch k {
	case KindInstall:
		return "install"
	case KindLaunch:
		return "launch"
	case KindStop:
		return "stop"
	case KindUninstall:
		return "uninstall"
	case KindCancel:
		return "cancel"
	default:
		return "unknown"
	}
}

// ParseKind maps the wire name of a job kind back to its tag.
func ParseKind(s string) (JobKind, error) {
	switch s {
	case "install":
		return KindInstall, nil
	case "launch":
		return KindLaunch, nil
	case "stop":
		return KindStop, nil
	case "uninstall":
		return KindUninstall, nil
	case "cancel":
		return KindCancel, nil
	default:
		return KindUnknown, fmt.Errorf("unrecognized job kind %q", s)
	}
}

// JobStatus is the lifecycle of a job record.
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
)

// Terminal reports whether the status is final.
func (s JobStatus) Terminal() bool {
	return s == JobSucceeded || s == JobFailed
}

// Payload carries kind-specific parameters. The queue does not validate it;
// the handler for the kind does.
type Payload struct {
	// Script overrides the catalog installer script for install jobs.
	Script string `json:"script,omitempty"`
	// TargetJobID names the job a cancel job applies to.
	TargetJobID uint64 `json:"target_job_id,omitempty"`
}

// Job is one queued unit of mutating work. The queue assigns the ID; only the
// worker moves the status once it leaves queued.
type Job struct {
	ID          uint64     `json:"id"`
	Kind        JobKind    `json:"-"`
	KindName    string     `json:"kind"`
	AppID       string     `json:"app_id,omitempty"`
	Payload     Payload    `json:"payload,omitempty"`
	Status      JobStatus  `json:"status"`
	Detail      string     `json:"detail,omitempty"`
	SubmittedAt time.Time  `json:"submitted_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
}
