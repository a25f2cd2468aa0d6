package api

import "context"

type (
	// ResultStatus is the tagged outcome of a single step execution
	ResultStatus string

	// StepResult carries the outcome of one step. StatusPaused is terminal
	// for the current run but not for the underlying goal: runners must stop
	// advancing, preserve the context, and return control to the caller
	StepResult struct {
		Output string       `json:"output,omitempty"`
		Error  string       `json:"error,omitempty"`
		Status ResultStatus `json:"status"`
	}

	// Step is the polymorphic unit of work executed by the plan, process,
	// and stepwise runners
	Step interface {
		Name() string
		Description() string
		Execute(context.Context, *State, Registry) *StepResult
	}
)

const (
	StatusSucceeded ResultStatus = "succeeded"
	StatusFailed    ResultStatus = "failed"
	StatusPaused    ResultStatus = "paused"
)

// Succeed creates a successful StepResult with the given output
func Succeed(output string) *StepResult {
	return &StepResult{
		Status: StatusSucceeded,
		Output: output,
	}
}

// Fail creates a failed StepResult carrying the error message
func Fail(err error) *StepResult {
	return &StepResult{
		Status: StatusFailed,
		Error:  err.Error(),
	}
}

// Pause creates a StepResult that suspends the current run
func Pause() *StepResult {
	return &StepResult{
		Status: StatusPaused,
	}
}

// Succeeded returns true if the step completed successfully
func (r *StepResult) Succeeded() bool {
	return r.Status == StatusSucceeded
}

// Failed returns true if the step failed
func (r *StepResult) Failed() bool {
	return r.Status == StatusFailed
}

// Paused returns true if the step requested suspension of the run
func (r *StepResult) Paused() bool {
	return r.Status == StatusPaused
}
