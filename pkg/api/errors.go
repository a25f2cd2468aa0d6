package api

import "errors"

// Sentinel errors for the runner taxonomy. Configuration problems surface
// as Go errors before a run starts; everything else is captured into the
// terminal Result of the run that produced it.
var (
	ErrConfiguration      = errors.New("invalid configuration")
	ErrInvalidStep        = errors.New("unknown capability")
	ErrDependencyUnmet    = errors.New("dependency unmet")
	ErrStepFailed         = errors.New("step execution failed")
	ErrIterationsExceeded = errors.New("maximum iterations exceeded")
	ErrStepsExceeded      = errors.New("maximum steps exceeded")
	ErrHandoffLimit       = errors.New("maximum handoffs exceeded")
	ErrTimeout            = errors.New("wall-clock budget exceeded")
	ErrNotFound           = errors.New("not found")
)
