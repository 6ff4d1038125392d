package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	ferrors "github.com/appdock/appdock/internal/foundation/errors"
	"github.com/appdock/appdock/internal/logfields"
	"github.com/appdock/appdock/internal/metrics"
	"github.com/appdock/appdock/internal/notify"
	"github.com/appdock/appdock/internal/state"
)

// Worker is the single execution point for all state mutations. Exactly one
// Run loop may be active per store; everything that changes application state
// funnels through it, so no record ever sees a concurrent writer.
type Worker struct {
	queue      *Queue
	store      *state.Store
	dispatch   *Dispatcher
	bus        *notify.Bus
	log        *slog.Logger
	recorder   metrics.Recorder
	jobTimeout time.Duration
}

func NewWorker(queue *Queue, store *state.Store, dispatch *Dispatcher, bus *notify.Bus, log *slog.Logger) *Worker {
	return &Worker{
		queue:    queue,
		store:    store,
		dispatch: dispatch,
		bus:      bus,
		log:      log,
		recorder: metrics.NoopRecorder{},
	}
}

// WithRecorder swaps the metrics sink.
func (w *Worker) WithRecorder(r metrics.Recorder) *Worker {
	if r != nil {
		w.recorder = r
	}
	return w
}

// WithJobTimeout bounds each handler's Run call. Zero disables the bound.
func (w *Worker) WithJobTimeout(d time.Duration) *Worker {
	w.jobTimeout = d
	return w
}

// Run processes jobs until the context is canceled, the queue is closed, or a
// fatal error (a store the worker can no longer trust) forces a stop. A job
// failing is not fatal; the loop records the failure and moves on.
func (w *Worker) Run(ctx context.Context) error {
	for {
		job, err := w.queue.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			if ferrors.HasCategory(err, ferrors.CategoryQueue) {
				return nil
			}
			return err
		}
		w.recorder.SetQueueDepth(w.queue.Depth())

		if by, ok := w.queue.CanceledBy(job.ID); ok {
			detail := fmt.Sprintf("canceled by job %d before execution", by)
			w.queue.MarkTerminal(job.ID, JobFailed, detail)
			if err := w.recordAudit(ctx, job); err != nil {
				return err
			}
			w.publish(job)
			w.recorder.IncJobOutcome(job.KindName, metrics.OutcomeFailed)
			w.log.Info("job canceled before execution",
				logfields.JobID(job.ID),
				logfields.JobKind(job.KindName),
				logfields.AppID(job.AppID),
				slog.Uint64("canceled_by", by),
			)
			continue
		}

		w.queue.MarkRunning(job.ID)

		start := time.Now()
		status, detail, outcome, fatal := w.runJob(ctx, job)
		elapsed := time.Since(start)

		w.queue.MarkTerminal(job.ID, status, detail)
		if err := w.recordAudit(ctx, job); err != nil {
			return err
		}
		w.publish(job)

		w.recorder.IncJobOutcome(job.KindName, outcome)
		w.recorder.ObserveJobDuration(job.KindName, elapsed)

		w.log.Info("job finished",
			logfields.JobID(job.ID),
			logfields.JobKind(job.KindName),
			logfields.JobStatus(string(status)),
			logfields.AppID(job.AppID),
			logfields.DurationMS(float64(elapsed.Milliseconds())),
			slog.String("detail", detail),
		)

		if fatal != nil {
			return fatal
		}
	}
}

// runJob executes one job end to end. The returned error is non-nil only for
// daemon-fatal conditions; ordinary job failures come back as JobFailed.
func (w *Worker) runJob(ctx context.Context, job *Job) (JobStatus, string, metrics.OutcomeLabel, error) {
	handler, err := w.dispatch.Resolve(job.Kind)
	if err != nil {
		return JobFailed, err.Error(), metrics.OutcomeFailed, nil
	}

	var current state.ApplicationState
	if job.AppID != "" {
		current = w.store.GetOrInit(job.AppID)
	}

	decision, err := handler.Begin(current, job)
	if err != nil {
		return w.fail(ctx, job, err)
	}
	if decision.Skip != nil {
		return JobSucceeded, decision.Skip.Detail, metrics.OutcomeSkipped, nil
	}
	if decision.Delta != nil {
		current, err = w.commit(ctx, job, *decision.Delta)
		if err != nil {
			if ferrors.IsFatal(err) {
				return JobFailed, err.Error(), metrics.OutcomeFailed, err
			}
			return w.fail(ctx, job, err)
		}
	}

	runCtx := ctx
	if w.jobTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, w.jobTimeout)
		defer cancel()
	}

	res, err := handler.Run(runCtx, current, job)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			err = ferrors.WrapError(err, ferrors.CategoryTimeout, "job exceeded its time budget").
				WithContext("timeout", w.jobTimeout.String()).Build()
		}
		return w.fail(ctx, job, err)
	}
	if res.Delta != nil {
		if _, cerr := w.commit(ctx, job, *res.Delta); cerr != nil {
			if ferrors.IsFatal(cerr) {
				return JobFailed, cerr.Error(), metrics.OutcomeFailed, cerr
			}
			return w.fail(ctx, job, cerr)
		}
	}
	return JobSucceeded, res.Detail, metrics.OutcomeSucceeded, nil
}

// fail marks the job failed and commits the error transition for its app.
// Only a fatal commit failure escalates past the job.
func (w *Worker) fail(ctx context.Context, job *Job, cause error) (JobStatus, string, metrics.OutcomeLabel, error) {
	w.log.Warn("job failed",
		logfields.JobID(job.ID),
		logfields.JobKind(job.KindName),
		logfields.AppID(job.AppID),
		logfields.Error(cause),
	)

	delta := errorDelta(job.Kind, cause)
	if job.AppID != "" && delta != nil {
		if _, cerr := w.commit(ctx, job, *delta); cerr != nil && ferrors.IsFatal(cerr) {
			return JobFailed, cerr.Error(), metrics.OutcomeFailed, cerr
		}
	}
	return JobFailed, cause.Error(), metrics.OutcomeFailed, nil
}

// errorDelta maps a failed job kind onto the lifecycle axis it was driving.
// Kinds that never touch state return nil.
func errorDelta(kind JobKind, cause error) *state.Delta {
	msg := cause.Error()
	switch kind {
	case KindInstall, KindUninstall:
		return &state.Delta{
			InstallStatus: state.InstallPtr(state.InstallError),
			LastError:     state.StrPtr(msg),
		}
	case KindLaunch, KindStop:
		return &state.Delta{
			RunStatus: state.RunPtr(state.RunError),
			LastError: state.StrPtr(msg),
		}
	default:
		return nil
	}
}

// commit applies a delta and publishes the change cue. Store failures come
// back classified fatal; the caller stops the loop on them.
func (w *Worker) commit(ctx context.Context, job *Job, d state.Delta) (state.ApplicationState, error) {
	updated, err := w.store.Apply(ctx, job.AppID, d)
	if err != nil {
		return state.ApplicationState{}, err
	}
	w.recorder.IncCommit()
	w.publishChange(job, updated.Revision)
	return updated, nil
}

// publish emits the terminal cue for a job so subscribers refresh job status
// even when the job committed nothing.
func (w *Worker) publish(job *Job) {
	w.publishChange(job, w.store.Revision())
}

func (w *Worker) publishChange(job *Job, revision uint64) {
	w.bus.Publish(notify.ChangeEvent{
		AppID:    job.AppID,
		JobID:    job.ID,
		Revision: revision,
		At:       time.Now(),
	})
	w.recorder.IncNotification()
}

// recordAudit persists the terminal job row. Losing the store mid-run is the
// one condition the daemon cannot paper over.
func (w *Worker) recordAudit(ctx context.Context, job *Job) error {
	snap, ok := w.queue.Snapshot(job.ID)
	if !ok {
		return nil
	}
	err := w.store.RecordJob(ctx, state.JobRecord{
		JobID:       snap.ID,
		Kind:        snap.KindName,
		AppID:       snap.AppID,
		Status:      string(snap.Status),
		Detail:      snap.Detail,
		SubmittedAt: snap.SubmittedAt,
		StartedAt:   snap.StartedAt,
		FinishedAt:  snap.FinishedAt,
	})
	if err != nil && ferrors.IsFatal(err) {
		return err
	}
	if err != nil {
		w.log.Warn("job audit write failed", logfields.JobID(job.ID), logfields.Error(err))
	}
	return nil
}
