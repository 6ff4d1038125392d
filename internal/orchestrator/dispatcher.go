package orchestrator

import (
	"context"

	ferrors "github.com/appdock/appdock/internal/foundation/errors"
	"github.com/appdock/appdock/internal/state"
)

// Result is what a handler produces on success: the final delta to commit
// (nil when the job changes nothing) and a human-readable detail string.
type Result struct {
	Delta  *state.Delta
	Detail string
}

// BeginDecision is the outcome of a handler's precondition check. Exactly one
// of the fields is meaningful: Delta is the transitional delta to commit
// before the main work runs, Skip short-circuits the job as an idempotent
// success without running it.
type BeginDecision struct {
	Delta *state.Delta
	Skip  *Result
}

// Handler executes one job kind. Begin validates preconditions against the
// current record and names the transitional state; Run performs the work.
// Handlers never write to the store themselves, the worker commits every
// delta they return.
type Handler interface {
	Begin(current state.ApplicationState, job *Job) (BeginDecision, error)
	Run(ctx context.Context, current state.ApplicationState, job *Job) (Result, error)
}

// Dispatcher maps job kinds to handlers. The set is closed at construction;
// an unknown kind is a job failure, never a panic.
type Dispatcher struct {
	handlers map[JobKind]Handler
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[JobKind]Handler)}
}

// Register binds a handler to a kind, replacing any previous binding.
func (d *Dispatcher) Register(kind JobKind, h Handler) {
	d.handlers[kind] = h
}

// Resolve returns the handler for a kind, or a classified error when the kind
// has no binding.
func (d *Dispatcher) Resolve(kind JobKind) (Handler, error) {
	h, ok := d.handlers[kind]
	if !ok {
		return nil, ferrors.UnrecognizedJobError("no handler registered for job kind").
			WithContext("kind", kind.String()).Build()
	}
	return h, nil
}
