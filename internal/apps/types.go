// Package apps holds the collaborator contracts the orchestrator consumes:
// installer-script translation, environment provisioning, process control and
// the application catalog. Orchestration never branches on the formats these
// collaborators work with internally.
package apps

import "context"

// Recipe is the standardized installation plan produced by a Translator.
type Recipe struct {
	Version string
	Steps   []string
	Launch  LaunchSpec
	Env     []string
}

// LaunchSpec describes how to start an application's process.
type LaunchSpec struct {
	Command string
	Dir     string
	Env     []string
}

// EnvironmentHandle identifies a provisioned execution environment.
type EnvironmentHandle struct {
	AppID string
	Root  string
}

// ProcessHandle identifies a started process and what was discovered about it.
type ProcessHandle struct {
	ID       string
	PID      int
	Endpoint string
}

// Translator turns a raw installer script into a Recipe or a parse error.
type Translator interface {
	Translate(raw string) (Recipe, error)
}

// EnvironmentProvider creates and removes execution environments.
type EnvironmentProvider interface {
	Ensure(ctx context.Context, appID string, recipe Recipe) (EnvironmentHandle, error)
	Remove(appID string) error
	Root(appID string) string
}

// ProcessRunner starts and stops OS processes and reports liveness.
type ProcessRunner interface {
	Start(ctx context.Context, spec LaunchSpec) (ProcessHandle, error)
	Stop(ctx context.Context, handle ProcessHandle) error
	Alive(handle ProcessHandle) bool
}
