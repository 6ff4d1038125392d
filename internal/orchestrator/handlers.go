package orchestrator

import (
	"context"
	"fmt"

	"github.com/appdock/appdock/internal/apps"
	ferrors "github.com/appdock/appdock/internal/foundation/errors"
	"github.com/appdock/appdock/internal/state"
)

// ScriptSource resolves an application's raw installer script. The catalog
// satisfies this; jobs carrying an inline script bypass it.
type ScriptSource interface {
	Script(ctx context.Context, appID string) (string, error)
}

func resolveScript(ctx context.Context, src ScriptSource, job *Job) (string, error) {
	if job.Payload.Script != "" {
		return job.Payload.Script, nil
	}
	return src.Script(ctx, job.AppID)
}

// installHandler provisions an application's environment from its translated
// installer script. Reinstalling an installed application is a no-op success.
type installHandler struct {
	src       ScriptSource
	translate apps.Translator
	envs      apps.EnvironmentProvider
}

func NewInstallHandler(src ScriptSource, t apps.Translator, envs apps.EnvironmentProvider) Handler {
	return &installHandler{src: src, translate: t, envs: envs}
}

func (h *installHandler) Begin(current state.ApplicationState, job *Job) (BeginDecision, error) {
	if current.InstallStatus == state.InstallInstalled {
		return BeginDecision{Skip: &Result{Detail: "already installed"}}, nil
	}
	return BeginDecision{
		Delta: &state.Delta{InstallStatus: state.InstallPtr(state.InstallInstalling)},
	}, nil
}

func (h *installHandler) Run(ctx context.Context, current state.ApplicationState, job *Job) (Result, error) {
	raw, err := resolveScript(ctx, h.src, job)
	if err != nil {
		return Result{}, err
	}
	recipe, err := h.translate.Translate(raw)
	if err != nil {
		return Result{}, err
	}
	if _, err := h.envs.Ensure(ctx, job.AppID, recipe); err != nil {
		return Result{}, err
	}
	return Result{
		Delta: &state.Delta{
			InstallStatus: state.InstallPtr(state.InstallInstalled),
			Version:       state.StrPtr(recipe.Version),
			LastError:     state.StrPtr(""),
		},
		Detail: "installed version " + recipe.Version,
	}, nil
}

// launchHandler starts an installed application's process and records what
// the runner discovered about it.
type launchHandler struct {
	src       ScriptSource
	translate apps.Translator
	envs      apps.EnvironmentProvider
	procs     apps.ProcessRunner
}

func NewLaunchHandler(src ScriptSource, t apps.Translator, envs apps.EnvironmentProvider, procs apps.ProcessRunner) Handler {
	return &launchHandler{src: src, translate: t, envs: envs, procs: procs}
}

func (h *launchHandler) Begin(current state.ApplicationState, job *Job) (BeginDecision, error) {
	if current.InstallStatus != state.InstallInstalled {
		return BeginDecision{}, ferrors.StateError("application is not installed").
			WithContext("app_id", job.AppID).
			WithContext("install_status", string(current.InstallStatus)).Build()
	}
	if current.RunStatus == state.RunRunning {
		return BeginDecision{Skip: &Result{Detail: "already running"}}, nil
	}
	if current.RunStatus == state.RunLaunching || current.RunStatus == state.RunStopping {
		return BeginDecision{}, ferrors.StateError("application is mid-transition").
			WithContext("app_id", job.AppID).
			WithContext("run_status", string(current.RunStatus)).Build()
	}
	return BeginDecision{
		Delta: &state.Delta{RunStatus: state.RunPtr(state.RunLaunching)},
	}, nil
}

func (h *launchHandler) Run(ctx context.Context, current state.ApplicationState, job *Job) (Result, error) {
	raw, err := resolveScript(ctx, h.src, job)
	if err != nil {
		return Result{}, err
	}
	recipe, err := h.translate.Translate(raw)
	if err != nil {
		return Result{}, err
	}
	if recipe.Launch.Command == "" {
		return Result{}, ferrors.TranslateError("installer script declares no launch command").
			WithContext("app_id", job.AppID).Build()
	}

	spec := recipe.Launch
	if spec.Dir == "" {
		spec.Dir = h.envs.Root(job.AppID)
	}
	spec.Env = append(append([]string{}, recipe.Env...), spec.Env...)

	handle, err := h.procs.Start(ctx, spec)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Delta: &state.Delta{
			RunStatus: state.RunPtr(state.RunRunning),
			ProcessID: state.StrPtr(handle.ID),
			PID:       state.IntPtr(handle.PID),
			Endpoint:  state.StrPtr(handle.Endpoint),
			LastError: state.StrPtr(""),
		},
		Detail: fmt.Sprintf("started pid %d", handle.PID),
	}, nil
}

// stopHandler terminates a running application's process.
type stopHandler struct {
	procs apps.ProcessRunner
}

func NewStopHandler(procs apps.ProcessRunner) Handler {
	return &stopHandler{procs: procs}
}

func (h *stopHandler) Begin(current state.ApplicationState, job *Job) (BeginDecision, error) {
	if current.RunStatus != state.RunRunning {
		return BeginDecision{}, ferrors.StateError("application is not running").
			WithContext("app_id", job.AppID).
			WithContext("run_status", string(current.RunStatus)).Build()
	}
	return BeginDecision{
		Delta: &state.Delta{RunStatus: state.RunPtr(state.RunStopping)},
	}, nil
}

func (h *stopHandler) Run(ctx context.Context, current state.ApplicationState, job *Job) (Result, error) {
	handle := apps.ProcessHandle{ID: current.ProcessID, PID: current.PID}
	if err := h.procs.Stop(ctx, handle); err != nil {
		return Result{}, err
	}
	return Result{
		Delta: &state.Delta{
			RunStatus: state.RunPtr(state.RunStopped),
			ProcessID: state.StrPtr(""),
			PID:       state.IntPtr(0),
			Endpoint:  state.StrPtr(""),
			LastError: state.StrPtr(""),
		},
		Detail: "stopped",
	}, nil
}

// uninstallHandler removes an application's environment and drops its record.
// An application with an active process must be stopped first.
type uninstallHandler struct {
	envs apps.EnvironmentProvider
}

func NewUninstallHandler(envs apps.EnvironmentProvider) Handler {
	return &uninstallHandler{envs: envs}
}

func (h *uninstallHandler) Begin(current state.ApplicationState, job *Job) (BeginDecision, error) {
	if current.InstallStatus == state.InstallNotInstalled {
		return BeginDecision{Skip: &Result{Detail: "not installed"}}, nil
	}
	switch current.RunStatus {
	case state.RunRunning, state.RunLaunching, state.RunStopping:
		return BeginDecision{}, ferrors.StateError("application has an active process, stop it first").
			WithContext("app_id", job.AppID).
			WithContext("run_status", string(current.RunStatus)).Build()
	}
	return BeginDecision{}, nil
}

func (h *uninstallHandler) Run(ctx context.Context, current state.ApplicationState, job *Job) (Result, error) {
	if err := h.envs.Remove(job.AppID); err != nil {
		return Result{}, err
	}
	return Result{
		Delta:  &state.Delta{Remove: true},
		Detail: "uninstalled",
	}, nil
}

// cancelHandler reports the outcome of a cancellation. The queue resolves
// cancels at admission time (a claimed target is skipped by the worker before
// it runs); by the time this handler executes, the claim either exists or the
// target was already past cancellation. Cancel jobs carry no app id and
// commit no state.
type cancelHandler struct {
	queue *Queue
}

func NewCancelHandler(queue *Queue) Handler {
	return &cancelHandler{queue: queue}
}

func (h *cancelHandler) Begin(current state.ApplicationState, job *Job) (BeginDecision, error) {
	return BeginDecision{}, nil
}

func (h *cancelHandler) Run(ctx context.Context, current state.ApplicationState, job *Job) (Result, error) {
	if target, ok := h.queue.CancelClaim(job.ID); ok {
		return Result{Detail: fmt.Sprintf("canceled job %d before it ran", target)}, nil
	}

	target := job.Payload.TargetJobID
	status, ok := h.queue.StatusOf(target)
	if !ok {
		return Result{}, ferrors.NotFoundError("target job not found").
			WithContext("target_job_id", target).Build()
	}
	if status == JobQueued {
		// The target id did not exist yet when this cancel was admitted.
		return Result{}, ferrors.HandlerError("target job was submitted after the cancel").
			WithContext("target_job_id", target).Build()
	}
	return Result{}, ferrors.HandlerError("target job is no longer queued").
		WithContext("target_job_id", target).
		WithContext("target_status", string(status)).Build()
}
