package state

import "time"

// InstallStatus tracks where an application is in its install lifecycle.
type InstallStatus string

const (
	InstallNotInstalled InstallStatus = "not_installed"
	InstallInstalling   InstallStatus = "installing"
	InstallInstalled    InstallStatus = "installed"
	InstallError        InstallStatus = "error"
)

// RunStatus tracks where an application is in its run lifecycle.
type RunStatus string

const (
	RunStopped   RunStatus = "stopped"
	RunLaunching RunStatus = "launching"
	RunRunning   RunStatus = "running"
	RunStopping  RunStatus = "stopping"
	RunError     RunStatus = "error"
)

// ApplicationState is the authoritative record for one managed application.
// Created on first reference, written only through Store.Apply.
type ApplicationState struct {
	AppID         string        `json:"app_id"`
	InstallStatus InstallStatus `json:"install_status"`
	RunStatus     RunStatus     `json:"run_status"`
	ProcessID     string        `json:"process_id,omitempty"`
	PID           int           `json:"pid,omitempty"`
	Endpoint      string        `json:"endpoint,omitempty"`
	Version       string        `json:"version,omitempty"`
	LastError     string        `json:"last_error,omitempty"`
	Revision      uint64        `json:"revision"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// Delta is the change a handler (or the worker itself) wants committed.
// Nil fields leave the current value untouched.
type Delta struct {
	InstallStatus *InstallStatus
	RunStatus     *RunStatus
	ProcessID     *string
	PID           *int
	Endpoint      *string
	Version       *string
	LastError     *string
	// Remove deletes the record entirely. Only the uninstall path sets it.
	Remove bool
}

// IsZero reports whether the delta would change nothing.
func (d Delta) IsZero() bool {
	return d.InstallStatus == nil && d.RunStatus == nil && d.ProcessID == nil &&
		d.PID == nil && d.Endpoint == nil && d.Version == nil && d.LastError == nil && !d.Remove
}

// Snapshot is an immutable copy of the full state set. Revision identifies the
// last committed worker step it reflects.
type Snapshot struct {
	Revision uint64             `json:"revision"`
	TakenAt  time.Time          `json:"taken_at"`
	Apps     []ApplicationState `json:"apps"`
}

// InstallPtr, RunPtr and StrPtr keep delta construction readable at call sites.
func InstallPtr(s InstallStatus) *InstallStatus { return &s }
func RunPtr(s RunStatus) *RunStatus             { return &s }
func StrPtr(s string) *string                   { return &s }
func IntPtr(i int) *int                         { return &i }
