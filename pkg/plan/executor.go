// Package plan provides dependency-ordered execution of static plans: an
// ordered list of capability invocations where every dependency must name
// an earlier, already-completed step
package plan

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/kode4food/paisley/pkg/api"
	"github.com/kode4food/paisley/pkg/log"
)

type (
	// Executor runs a static Plan to completion or first failure. It is a
	// single-threaded sequencer: at most one capability invocation is in
	// flight for a given execution context at any time
	Executor struct {
		logger   *slog.Logger
		observer api.Observer
	}

	// Option configures an Executor
	Option func(*Executor)
)

// placeholderPattern matches $<stepID>.output references in argument values
var placeholderPattern = regexp.MustCompile(`\$([a-zA-Z0-9_.\-+]+)\.output`)

// WithLogger sets the logger used for step-level diagnostics
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		e.logger = logger
	}
}

// WithObserver streams trace events to the given observer as they are
// appended
func WithObserver(observer api.Observer) Option {
	return func(e *Executor) {
		e.observer = observer
	}
}

// NewExecutor creates a plan executor
func NewExecutor(opts ...Option) *Executor {
	res := &Executor{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(res)
	}
	return res
}

// Execute runs the plan's steps in list order against the given context.
// Every dependency must have a recorded output before its step executes;
// a registry miss or unmet dependency fails the run before the capability
// is invoked. The first failure stops the run with no rollback and no
// retry (retry is the concern of individual capabilities). An empty plan
// is vacuously successful with empty output. Only configuration errors
// surface as Go errors; everything else is captured into the Result
func (e *Executor) Execute(
	ctx context.Context, p *api.Plan, state *api.State, reg api.Registry,
) (*api.Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	trace := api.NewTrace(e.observer)
	outputs := make(map[string]string, len(p.Steps))

	var output string
	for _, step := range p.Steps {
		if unmet, ok := unmetDependency(step, outputs); !ok {
			err := fmt.Errorf(
				"%w: step %s requires %s", api.ErrDependencyUnmet,
				step.ID, unmet,
			)
			e.logger.Error("Plan step dependency unmet",
				log.PlanID(p.ID),
				log.StepID(step.ID),
				log.Error(err))
			return api.Failed(api.ReasonDependencyUnmet, err, trace), nil
		}

		capability, ok := reg.Lookup(
			step.Capability.Namespace, step.Capability.Name,
		)
		if !ok {
			err := fmt.Errorf(
				"%w: %s", api.ErrInvalidStep, step.Capability,
			)
			e.logger.Error("Plan step capability not found",
				log.PlanID(p.ID),
				log.StepID(step.ID),
				log.Capability(step.Capability.String()))
			return api.Failed(api.ReasonInvalidStep, err, trace), nil
		}

		args := resolveArgs(step, outputs)
		trace.Append(&api.TraceEvent{
			Kind:       api.EventFunctionCalled,
			PlanID:     p.ID,
			StepID:     step.ID,
			Capability: step.Capability.String(),
			Args:       args,
		})

		out, err := capability.Invoke(ctx, args)
		completed := &api.TraceEvent{
			Kind:       api.EventFunctionCompleted,
			PlanID:     p.ID,
			StepID:     step.ID,
			Capability: step.Capability.String(),
			Output:     out,
			Success:    err == nil,
		}
		if err != nil {
			completed.Error = err.Error()
		}
		trace.Append(completed)

		if err != nil {
			e.logger.Error("Plan step failed",
				log.PlanID(p.ID),
				log.StepID(step.ID),
				log.Error(err))
			failure := fmt.Errorf("%w: %s: %w",
				api.ErrStepFailed, step.ID, err,
			)
			return api.Failed(api.ReasonStepFailed, failure, trace), nil
		}

		outputs[step.ID] = out
		state.Set(api.Name(step.ID), out)
		output = out

		e.logger.Info("Plan step completed",
			log.PlanID(p.ID),
			log.StepID(step.ID),
			log.Capability(step.Capability.String()))
	}

	return api.Succeeded(output, trace), nil
}

// unmetDependency reports the first dependency of the step that has no
// recorded output, if any
func unmetDependency(
	step *api.PlanStep, outputs map[string]string,
) (string, bool) {
	for _, dep := range step.DependsOn {
		if _, ok := outputs[dep]; !ok {
			return dep, false
		}
	}
	return "", true
}

// resolveArgs merges prior step outputs, addressable by step ID, with the
// step's own argument mapping. Argument values may embed $<stepID>.output
// placeholders, which are substituted from the recorded outputs
func resolveArgs(step *api.PlanStep, outputs map[string]string) api.CallArgs {
	args := make(api.CallArgs, len(outputs)+len(step.Args))
	for id, out := range outputs {
		args[api.Name(id)] = out
	}
	for name, value := range step.Args {
		args[name] = substitute(value, outputs)
	}
	return args
}

func substitute(value string, outputs map[string]string) string {
	if !strings.Contains(value, "$") {
		return value
	}
	return placeholderPattern.ReplaceAllStringFunc(value, func(m string) string {
		id := placeholderPattern.FindStringSubmatch(m)[1]
		if out, ok := outputs[id]; ok {
			return out
		}
		return m
	})
}
