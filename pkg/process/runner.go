package process

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/kode4food/paisley/pkg/api"
	"github.com/kode4food/paisley/pkg/log"
)

type (
	// Runner sequences a process's steps against an execution context,
	// suspending when a step requests a pause and resuming from persisted
	// state. The context is exclusively owned by the run until a pause or
	// terminal state, at which point ownership transfers to the store or
	// the caller
	Runner struct {
		store    Store
		registry api.Registry
		logger   *slog.Logger
		observer api.Observer
	}

	// RunnerOption configures a Runner
	RunnerOption func(*Runner)
)

// WithStore sets the store used to persist suspended runs. Defaults to an
// in-memory store; real deployments should use a durable one
func WithStore(store Store) RunnerOption {
	return func(r *Runner) {
		r.store = store
	}
}

// WithRegistry sets the capability registry passed to every step
func WithRegistry(reg api.Registry) RunnerOption {
	return func(r *Runner) {
		r.registry = reg
	}
}

// WithLogger sets the logger used for step-level diagnostics
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithObserver streams trace events to the given observer
func WithObserver(observer api.Observer) RunnerOption {
	return func(r *Runner) {
		r.observer = observer
	}
}

// NewRunner creates a process runner
func NewRunner(opts ...RunnerOption) *Runner {
	res := &Runner{
		store:  NewMemoryStore(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(res)
	}
	return res
}

// Run executes the process from the beginning. On a pause the context is
// persisted exactly as-is, including the current step index, and a paused
// Result is returned; it is neither success nor failure. Only
// configuration and store errors surface as Go errors
func (r *Runner) Run(
	ctx context.Context, proc *Process, state *api.State,
) (*api.Result, error) {
	if err := proc.Validate(); err != nil {
		return nil, err
	}

	id := api.RunID(uuid.NewString())
	trace := api.NewTrace(r.observer)
	return r.advance(ctx, proc, state, id, trace)
}

// Resume re-enters a suspended run from its persisted context. The step at
// the stored index runs again; steps that suspended must check their
// well-known keys first so resumption is idempotent
func (r *Runner) Resume(
	ctx context.Context, proc *Process, id api.RunID,
) (*api.Result, error) {
	if err := proc.Validate(); err != nil {
		return nil, err
	}

	state, err := r.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	return r.resume(ctx, proc, state, id)
}

// ResumeState re-enters a suspended run from a caller-supplied context,
// bypassing the store
func (r *Runner) ResumeState(
	ctx context.Context, proc *Process, state *api.State,
) (*api.Result, error) {
	if err := proc.Validate(); err != nil {
		return nil, err
	}
	return r.resume(ctx, proc, state, api.RunID(uuid.NewString()))
}

func (r *Runner) resume(
	ctx context.Context, proc *Process, state *api.State, id api.RunID,
) (*api.Result, error) {
	trace := api.NewTrace(r.observer)
	trace.Append(&api.TraceEvent{
		Kind:   api.EventProcessResumed,
		PlanID: proc.ID,
		StepID: fmt.Sprintf("%d", state.Cursor),
	})
	r.logger.Info("Process resumed",
		log.RunID(id),
		log.PlanID(proc.ID),
		slog.Int("cursor", state.Cursor))
	return r.advance(ctx, proc, state, id, trace)
}

func (r *Runner) advance(
	ctx context.Context, proc *Process, state *api.State, id api.RunID,
	trace *api.Trace,
) (*api.Result, error) {
	var output string

	for state.Cursor < len(proc.Steps) {
		bound := proc.Steps[state.Cursor]
		step := bound.Step

		trace.Append(&api.TraceEvent{
			Kind:       api.EventFunctionCalled,
			PlanID:     proc.ID,
			StepID:     step.Name(),
			Capability: step.Name(),
		})

		res := step.Execute(ctx, state, r.registry)

		completed := &api.TraceEvent{
			Kind:       api.EventFunctionCompleted,
			PlanID:     proc.ID,
			StepID:     step.Name(),
			Capability: step.Name(),
			Output:     res.Output,
			Error:      res.Error,
			Success:    res.Succeeded(),
		}
		trace.Append(completed)

		switch {
		case res.Paused():
			// Cursor stays on this step so resume re-enters it
			if err := r.store.Save(ctx, id, state); err != nil {
				return nil, err
			}
			trace.Append(&api.TraceEvent{
				Kind:   api.EventProcessPaused,
				PlanID: proc.ID,
				StepID: step.Name(),
			})
			r.logger.Info("Process paused",
				log.RunID(id),
				log.PlanID(proc.ID),
				log.StepID(step.Name()))
			return api.Suspended(id, trace), nil

		case res.Failed():
			if bound.hard() {
				r.logger.Error("Process step failed",
					log.RunID(id),
					log.PlanID(proc.ID),
					log.StepID(step.Name()),
					log.ErrorString(res.Error))
				failure := fmt.Errorf("%w: %s: %s",
					api.ErrStepFailed, step.Name(), res.Error,
				)
				result := api.Failed(api.ReasonStepFailed, failure, trace)
				result.RunID = id
				return result, nil
			}
			r.logger.Warn("Process step failed softly, continuing",
				log.RunID(id),
				log.PlanID(proc.ID),
				log.StepID(step.Name()),
				log.ErrorString(res.Error))

		default:
			state.Set(api.Name(step.Name()), res.Output)
			output = res.Output
		}

		state.Cursor++
	}

	// Terminal: the suspended snapshot, if any, is no longer needed
	if err := r.store.Delete(ctx, id); err != nil {
		r.logger.Warn("Failed to delete persisted run",
			log.RunID(id),
			log.Error(err))
	}

	result := api.Succeeded(output, trace)
	result.RunID = id
	return result, nil
}
