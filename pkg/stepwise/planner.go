// Package stepwise provides iterative goal pursuit: a bounded loop that
// asks a decision oracle for the next capability to invoke, executes it,
// and evaluates termination after every step
package stepwise

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kode4food/paisley/pkg/api"
	"github.com/kode4food/paisley/pkg/log"
)

type (
	// Planner pursues a goal one step at a time. Two independent limits
	// bound every run: MaxIterations caps oracle round-trips and MaxSteps
	// caps executed capabilities. An optional wall-clock Budget is checked
	// at loop checkpoints; in-flight invocations are never preempted
	Planner struct {
		logger   *slog.Logger
		observer api.Observer
		achieved Predicate
		budget   time.Duration
		maxIters int
		maxSteps int
	}

	// Option configures a Planner
	Option func(*Planner)

	// stepRecord is one executed capability in the run's history
	stepRecord struct {
		call   *api.CapabilityCall
		output string
		errMsg string
	}
)

const (
	// DefaultMaxIterations caps oracle round-trips per run
	DefaultMaxIterations = 15

	// DefaultMaxSteps caps executed capabilities per run
	DefaultMaxSteps = 10
)

// WithLimits sets the iteration and step bounds
func WithLimits(maxIterations, maxSteps int) Option {
	return func(p *Planner) {
		p.maxIters = maxIterations
		p.maxSteps = maxSteps
	}
}

// WithBudget sets a wall-clock budget for the whole run. Exceeding it
// terminates the run with a timeout at the next natural checkpoint
func WithBudget(budget time.Duration) Option {
	return func(p *Planner) {
		p.budget = budget
	}
}

// WithPredicate replaces the goal-achieved predicate
func WithPredicate(achieved Predicate) Option {
	return func(p *Planner) {
		p.achieved = achieved
	}
}

// WithLogger sets the logger used for iteration diagnostics
func WithLogger(logger *slog.Logger) Option {
	return func(p *Planner) {
		p.logger = logger
	}
}

// WithObserver streams trace events to the given observer
func WithObserver(observer api.Observer) Option {
	return func(p *Planner) {
		p.observer = observer
	}
}

// New creates a stepwise planner
func New(opts ...Option) *Planner {
	res := &Planner{
		logger:   slog.Default(),
		achieved: DefaultPredicate,
		maxIters: DefaultMaxIterations,
		maxSteps: DefaultMaxSteps,
	}
	for _, opt := range opts {
		opt(res)
	}
	return res
}

// ExecuteGoal pursues the goal until a terminal condition or bound is
// reached. Terminal conditions are checked after every execution, in
// priority order: a failed step terminates the run with its error; an
// output satisfying the goal predicate terminates with success; exhausting
// MaxSteps terminates with failure; an oracle decision carrying no
// capability call terminates with the oracle's content as output. When the
// oracle returns both a call and text, the call takes precedence and the
// text is recorded but not parsed
func (p *Planner) ExecuteGoal(
	ctx context.Context, goal string, state *api.State,
	reg api.Registry, oracle api.Oracle,
) *api.Result {
	trace := api.NewTrace(p.observer)
	trace.Append(&api.TraceEvent{
		Kind: api.EventPlanningStarted,
		Goal: goal,
	})

	var history []*stepRecord
	deadline := time.Time{}
	if p.budget > 0 {
		deadline = time.Now().Add(p.budget)
	}

	executed := 0
	for range p.maxIters {
		if timedOut(deadline) {
			return p.failed(goal, api.ReasonTimeout, api.ErrTimeout, trace)
		}

		decision, err := oracle.Decide(ctx, &api.OracleRequest{
			Messages:     buildMessages(goal, history),
			Capabilities: reg.List(),
		})
		if err != nil {
			p.logger.Error("Oracle decision failed",
				log.Goal(goal),
				log.Error(err))
			return p.failed(goal, api.ReasonStepFailed, err, trace)
		}

		if decision.Call == nil {
			// Explicit completion signal: no capability to invoke
			p.logger.Info("Oracle signaled completion",
				log.Goal(goal))
			return p.succeeded(goal, decision.Content, trace)
		}

		record := p.executeCall(ctx, decision.Call, reg, trace)
		history = append(history, record)
		state.Set(api.Name(decision.Call.Capability.String()), record.output)
		executed++

		if record.errMsg != "" {
			failure := fmt.Errorf("%w: %s: %s",
				api.ErrStepFailed, decision.Call.Capability, record.errMsg,
			)
			return p.failed(goal, api.ReasonStepFailed, failure, trace)
		}
		if p.achieved(record.output) {
			return p.succeeded(goal, record.output, trace)
		}
		if executed >= p.maxSteps {
			return p.failed(
				goal, api.ReasonStepsExceeded, api.ErrStepsExceeded, trace,
			)
		}
		if timedOut(deadline) {
			return p.failed(goal, api.ReasonTimeout, api.ErrTimeout, trace)
		}
	}

	return p.failed(
		goal, api.ReasonIterationsExceeded, api.ErrIterationsExceeded, trace,
	)
}

func (p *Planner) executeCall(
	ctx context.Context, call *api.CapabilityCall, reg api.Registry,
	trace *api.Trace,
) *stepRecord {
	record := &stepRecord{call: call}

	capability, ok := reg.Lookup(
		call.Capability.Namespace, call.Capability.Name,
	)
	if !ok {
		record.errMsg = fmt.Sprintf(
			"%s: %s", api.ErrInvalidStep, call.Capability,
		)
		return record
	}

	trace.Append(&api.TraceEvent{
		Kind:       api.EventFunctionCalled,
		Capability: call.Capability.String(),
		Args:       call.Args,
	})

	out, err := capability.Invoke(ctx, call.Args)
	completed := &api.TraceEvent{
		Kind:       api.EventFunctionCompleted,
		Capability: call.Capability.String(),
		Output:     out,
		Success:    err == nil,
	}
	if err != nil {
		completed.Error = err.Error()
		record.errMsg = err.Error()
	}
	trace.Append(completed)

	record.output = out
	p.logger.Info("Stepwise capability executed",
		log.Capability(call.Capability.String()),
		log.Status(completed.Kind))
	return record
}

func (p *Planner) succeeded(
	goal, output string, trace *api.Trace,
) *api.Result {
	trace.Append(&api.TraceEvent{
		Kind:    api.EventPlanCompleted,
		Goal:    goal,
		Output:  output,
		Success: true,
	})
	return api.Succeeded(output, trace)
}

func (p *Planner) failed(
	goal string, reason api.Reason, err error, trace *api.Trace,
) *api.Result {
	trace.Append(&api.TraceEvent{
		Kind:  api.EventPlanCompleted,
		Goal:  goal,
		Error: err.Error(),
	})
	p.logger.Warn("Stepwise run failed",
		log.Goal(goal),
		log.Status(reason),
		log.Error(err))
	return api.Failed(reason, err, trace)
}

func timedOut(deadline time.Time) bool {
	return !deadline.IsZero() && time.Now().After(deadline)
}
