package orchestrator

import (
	"context"
	"sync"
	"time"

	ferrors "github.com/appdock/appdock/internal/foundation/errors"
)

// historySize bounds how many terminal jobs the in-memory registry keeps for
// status lookups. Older jobs fall through to the durable audit table.
const historySize = 256

// Queue is the ordered set of pending jobs plus a registry of recent ones.
//
// IDs are assigned under the queue lock, strictly increasing, so the observed
// execution order always equals the order in which Enqueue calls were
// accepted, regardless of how callers interleave.
type Queue struct {
	mu       sync.Mutex
	pending  []*Job
	registry map[uint64]*Job
	history  []uint64
	canceled map[uint64]uint64 // still-queued target id -> claiming cancel job id
	claims   map[uint64]uint64 // cancel job id -> claimed target id
	nextID   uint64
	maxDepth int
	closed   bool
	wake     chan struct{}
}

// NewQueue creates a queue. maxDepth 0 means unbounded; a positive value
// enables backpressure where Enqueue fails with a queue-full error.
func NewQueue(maxDepth int) *Queue {
	return &Queue{
		registry: make(map[uint64]*Job),
		canceled: make(map[uint64]uint64),
		claims:   make(map[uint64]uint64),
		maxDepth: maxDepth,
		wake:     make(chan struct{}, 1),
	}
}

// Enqueue accepts a job, assigns its id and appends it to the tail. It never
// blocks; on a bounded queue at capacity it fails instead.
//
// Cancel jobs are resolved against the queue here, under the same lock that
// assigns ids: a cancel whose target is still queued claims that target
// atomically with its own admission. FIFO means the target is always
// dequeued before the cancel job runs, so deciding any later would always
// lose the race.
func (q *Queue) Enqueue(kind JobKind, appID string, payload Payload) (uint64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return 0, ferrors.NewError(ferrors.CategoryQueue, "queue is closed").Build()
	}
	if q.maxDepth > 0 && len(q.pending) >= q.maxDepth {
		return 0, ferrors.QueueFullError("queue at capacity").
			WithContext("max_depth", q.maxDepth).Build()
	}

	q.nextID++
	job := &Job{
		ID:          q.nextID,
		Kind:        kind,
		KindName:    kind.String(),
		AppID:       appID,
		Payload:     payload,
		Status:      JobQueued,
		SubmittedAt: time.Now(),
	}
	q.pending = append(q.pending, job)
	q.registry[job.ID] = job

	if kind == KindCancel {
		if t, ok := q.registry[payload.TargetJobID]; ok && t.ID != job.ID && t.Status == JobQueued {
			if _, taken := q.canceled[t.ID]; !taken {
				q.canceled[t.ID] = job.ID
				q.claims[job.ID] = t.ID
			}
		}
	}

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return job.ID, nil
}

// Dequeue blocks until a job is available, the context is canceled, or the
// queue is closed. Strict FIFO; the returned job is the live record, which
// only the calling worker may mutate through the Mark methods.
func (q *Queue) Dequeue(ctx context.Context) (*Job, error) {
	for {
		q.mu.Lock()
		if len(q.pending) > 0 {
			job := q.pending[0]
			q.pending = q.pending[1:]
			q.mu.Unlock()
			return job, nil
		}
		closed := q.closed
		q.mu.Unlock()

		if closed {
			return nil, ferrors.NewError(ferrors.CategoryQueue, "queue is closed").Build()
		}

		select {
		case <-q.wake:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// MarkRunning records that the worker picked the job up.
func (q *Queue) MarkRunning(id uint64) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if job, ok := q.registry[id]; ok {
		now := time.Now()
		job.Status = JobRunning
		job.StartedAt = &now
	}
}

// MarkTerminal records the job's final status and detail.
func (q *Queue) MarkTerminal(id uint64, status JobStatus, detail string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, ok := q.registry[id]
	if !ok {
		return
	}
	now := time.Now()
	job.Status = status
	job.Detail = detail
	job.FinishedAt = &now

	q.history = append(q.history, id)
	if len(q.history) > historySize {
		drop := q.history[0]
		q.history = q.history[1:]
		delete(q.registry, drop)
	}
}

// CanceledBy reports whether a cancel job claimed this job while it was still
// queued, consuming the claim. The worker checks every dequeued job and marks
// claimed ones failed without dispatching them.
func (q *Queue) CanceledBy(id uint64) (uint64, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	by, ok := q.canceled[id]
	if ok {
		delete(q.canceled, id)
	}
	return by, ok
}

// CancelClaim returns the target a cancel job claimed at admission, consuming
// the record. A cancel with no claim found nothing cancellable.
func (q *Queue) CancelClaim(cancelID uint64) (uint64, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	target, ok := q.claims[cancelID]
	if ok {
		delete(q.claims, cancelID)
	}
	return target, ok
}

// Snapshot returns a copy of a job's current record.
func (q *Queue) Snapshot(id uint64) (Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, ok := q.registry[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// StatusOf returns a job's status without copying the whole record.
func (q *Queue) StatusOf(id uint64) (JobStatus, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, ok := q.registry[id]
	if !ok {
		return "", false
	}
	return job.Status, true
}

// Depth returns the number of pending jobs.
func (q *Queue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Close rejects further enqueues and wakes a blocked Dequeue.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}
