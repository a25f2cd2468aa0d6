// Package process provides pausable step sequencing: a process may suspend
// indefinitely awaiting external input (such as human approval) and resume
// later from persisted state
package process

import (
	"errors"
	"fmt"

	"github.com/kode4food/paisley/internal/util"
	"github.com/kode4food/paisley/pkg/api"
)

type (
	// FailureMode designates how the runner reacts when a step fails. It is
	// a property of the call site, not the step: the same step type may be
	// soft in one workflow and hard in another
	FailureMode string

	// BoundStep binds a step to its call-site failure designation
	BoundStep struct {
		Step      api.Step
		OnFailure FailureMode
	}

	// Process is an ordered list of bound steps
	Process struct {
		ID          string
		Description string
		Steps       []BoundStep
	}
)

const (
	// FailureHard aborts the whole process on step failure
	FailureHard FailureMode = "hard"

	// FailureSoft logs the failure and continues with the next step
	FailureSoft FailureMode = "soft"
)

var (
	ErrProcessIDEmpty = errors.New("process ID empty")
	ErrProcessStepNil = errors.New("process step nil")
	ErrBadFailureMode = errors.New("invalid failure mode")

	validFailureModes = util.SetOf(FailureHard, FailureSoft, FailureMode(""))
)

// Hard binds a step whose failure aborts the process
func Hard(step api.Step) BoundStep {
	return BoundStep{
		Step:      step,
		OnFailure: FailureHard,
	}
}

// Soft binds a step whose failure is logged and skipped
func Soft(step api.Step) BoundStep {
	return BoundStep{
		Step:      step,
		OnFailure: FailureSoft,
	}
}

// Validate checks the process for construction errors. An unset failure
// mode defaults to hard
func (p *Process) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("%w: %w", api.ErrConfiguration, ErrProcessIDEmpty)
	}
	for i, bound := range p.Steps {
		if bound.Step == nil {
			return fmt.Errorf("%w: %w at index %d",
				api.ErrConfiguration, ErrProcessStepNil, i,
			)
		}
		if !validFailureModes.Contains(bound.OnFailure) {
			return fmt.Errorf("%w: %w: %s",
				api.ErrConfiguration, ErrBadFailureMode, bound.OnFailure,
			)
		}
	}
	return nil
}

func (b BoundStep) hard() bool {
	return b.OnFailure != FailureSoft
}
