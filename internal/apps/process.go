package apps

import (
	"bufio"
	"context"
	"os"
	"os/exec"
	"regexp"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	ferrors "github.com/appdock/appdock/internal/foundation/errors"
)

// endpointPattern is the log-line subset we recognize as a published service
// endpoint. Detection lives entirely here; orchestration only ever sees the
// resulting URL on the handle.
var endpointPattern = regexp.MustCompile(`https?://[^\s"']+`)

// ExecRunner starts application processes with sh -c and watches their output
// for an announced endpoint for a short window after start.
type ExecRunner struct {
	mu           sync.Mutex
	running      map[string]*exec.Cmd
	endpointWait time.Duration
}

// NewExecRunner returns a runner with the default endpoint-detection window.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{
		running:      make(map[string]*exec.Cmd),
		endpointWait: 2 * time.Second,
	}
}

// Start implements ProcessRunner. The spawned process is not tied to ctx: a
// job timeout must not kill an app that launched successfully. ctx only
// bounds the startup itself.
func (r *ExecRunner) Start(ctx context.Context, spec LaunchSpec) (ProcessHandle, error) {
	if spec.Command == "" {
		return ProcessHandle{}, ferrors.ProcessError("launch spec has no command").Build()
	}

	cmd := exec.Command("sh", "-c", spec.Command)
	cmd.Dir = spec.Dir
	cmd.Env = append(os.Environ(), spec.Env...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return ProcessHandle{}, ferrors.WrapError(err, ferrors.CategoryProcess, "attach stdout").Build()
	}
	cmd.Stderr = cmd.Stdout

	if err := cmd.Start(); err != nil {
		return ProcessHandle{}, ferrors.WrapError(err, ferrors.CategoryProcess, "start process").
			WithContext("command", spec.Command).Build()
	}

	handle := ProcessHandle{ID: uuid.NewString(), PID: cmd.Process.Pid}

	r.mu.Lock()
	r.running[handle.ID] = cmd
	r.mu.Unlock()

	endpointCh := make(chan string, 1)
	go func() {
		scanner := bufio.NewScanner(stdout)
		announced := false
		for scanner.Scan() {
			if announced {
				continue
			}
			if m := endpointPattern.FindString(scanner.Text()); m != "" {
				announced = true
				select {
				case endpointCh <- m:
				default:
				}
			}
		}
		// Reap the process once output closes.
		_ = cmd.Wait()
		r.mu.Lock()
		delete(r.running, handle.ID)
		r.mu.Unlock()
	}()

	select {
	case endpoint := <-endpointCh:
		handle.Endpoint = endpoint
	case <-time.After(r.endpointWait):
		// No endpoint announced in the window; the app may not serve one.
	case <-ctx.Done():
		_ = r.Stop(context.Background(), handle)
		return ProcessHandle{}, ferrors.WrapError(ctx.Err(), ferrors.CategoryProcess, "startup canceled").Build()
	}

	if !r.Alive(handle) {
		return ProcessHandle{}, ferrors.ProcessError("process exited during startup").
			WithContext("command", spec.Command).Build()
	}

	return handle, nil
}

// Stop implements ProcessRunner: TERM first, KILL if the process is still
// alive when ctx expires or after the grace period.
func (r *ExecRunner) Stop(ctx context.Context, handle ProcessHandle) error {
	proc, err := os.FindProcess(handle.PID)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryProcess, "find process").
			WithContext("pid", handle.PID).Build()
	}

	if err := proc.Signal(syscall.SIGTERM); err != nil {
		if err == os.ErrProcessDone {
			return nil
		}
		return ferrors.WrapError(err, ferrors.CategoryProcess, "signal process").
			WithContext("pid", handle.PID).Build()
	}

	deadline := time.After(5 * time.Second)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if !r.Alive(handle) {
				return nil
			}
		case <-deadline:
			_ = proc.Kill()
			return nil
		case <-ctx.Done():
			_ = proc.Kill()
			return nil
		}
	}
}

// Alive implements ProcessRunner via signal 0.
func (r *ExecRunner) Alive(handle ProcessHandle) bool {
	if handle.PID <= 0 {
		return false
	}
	proc, err := os.FindProcess(handle.PID)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}
