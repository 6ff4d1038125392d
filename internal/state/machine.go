package state

import (
	ferrors "github.com/appdock/appdock/internal/foundation/errors"
)

// The lifecycle per application is
//
//	NotInstalled -> Installing -> Installed -> Launching -> Running -> Stopping -> Installed
//
// with any state allowed to move to its axis' Error state, and Error
// recoverable only by a fresh job re-entering the chain. Removal happens only
// through an explicit uninstall, never as a transition side effect.

var installTransitions = map[InstallStatus][]InstallStatus{
	InstallNotInstalled: {InstallInstalling},
	InstallInstalling:   {InstallInstalled, InstallError},
	InstallInstalled:    {InstallInstalling, InstallError}, // re-install of a newer version
	InstallError:        {InstallInstalling},
}

var runTransitions = map[RunStatus][]RunStatus{
	RunStopped:   {RunLaunching},
	RunLaunching: {RunRunning, RunError},
	RunRunning:   {RunStopping, RunError},
	RunStopping:  {RunStopped, RunError},
	RunError:     {RunLaunching, RunStopping, RunStopped},
}

func installStepAllowed(from, to InstallStatus) bool {
	if from == to {
		return true
	}
	if to == InstallError {
		return true
	}
	for _, next := range installTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func runStepAllowed(from, to RunStatus) bool {
	if from == to {
		return true
	}
	if to == RunError {
		return true
	}
	for _, next := range runTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// validateTransition checks a delta against the state machine before commit.
func validateTransition(cur ApplicationState, d Delta) error {
	if d.Remove {
		if cur.RunStatus == RunRunning || cur.RunStatus == RunLaunching || cur.RunStatus == RunStopping {
			return ferrors.StateError("cannot remove an application with an active process").
				WithContext("app_id", cur.AppID).
				WithContext("run_status", string(cur.RunStatus)).
				Build()
		}
		return nil
	}

	if d.InstallStatus != nil && !installStepAllowed(cur.InstallStatus, *d.InstallStatus) {
		return ferrors.StateError("install status transition not allowed").
			WithContext("app_id", cur.AppID).
			WithContext("from", string(cur.InstallStatus)).
			WithContext("to", string(*d.InstallStatus)).
			Build()
	}

	if d.RunStatus != nil {
		if !runStepAllowed(cur.RunStatus, *d.RunStatus) {
			return ferrors.StateError("run status transition not allowed").
				WithContext("app_id", cur.AppID).
				WithContext("from", string(cur.RunStatus)).
				WithContext("to", string(*d.RunStatus)).
				Build()
		}
		// Nothing launches unless the install chain reached Installed first.
		installed := cur.InstallStatus == InstallInstalled
		if d.InstallStatus != nil && *d.InstallStatus == InstallInstalled {
			installed = true
		}
		if *d.RunStatus == RunLaunching && !installed {
			return ferrors.StateError("cannot launch an application that is not installed").
				WithContext("app_id", cur.AppID).
				WithContext("install_status", string(cur.InstallStatus)).
				Build()
		}
	}

	return nil
}

// apply returns cur with the delta folded in. Callers validate first.
func apply(cur ApplicationState, d Delta) ApplicationState {
	next := cur
	if d.InstallStatus != nil {
		next.InstallStatus = *d.InstallStatus
	}
	if d.RunStatus != nil {
		next.RunStatus = *d.RunStatus
	}
	if d.ProcessID != nil {
		next.ProcessID = *d.ProcessID
	}
	if d.PID != nil {
		next.PID = *d.PID
	}
	if d.Endpoint != nil {
		next.Endpoint = *d.Endpoint
	}
	if d.Version != nil {
		next.Version = *d.Version
	}
	if d.LastError != nil {
		next.LastError = *d.LastError
	}
	return next
}
