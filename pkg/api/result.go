package api

type (
	// Reason classifies why a run terminated the way it did
	Reason string

	// Result is the terminal value of any run. A paused Result is
	// explicitly distinct from both success and failure so callers never
	// mistake "awaiting input" for "done". The Trace is always present
	Result struct {
		RunID    RunID  `json:"run_id,omitempty"`
		Success  bool   `json:"success"`
		Paused   bool   `json:"paused,omitempty"`
		Output   string `json:"output,omitempty"`
		Reason   Reason `json:"reason,omitempty"`
		Error    string `json:"error,omitempty"`
		Worker   string `json:"worker,omitempty"`
		Handoffs int    `json:"handoffs,omitempty"`
		Trace    *Trace `json:"trace,omitempty"`
	}
)

const (
	ReasonInvalidStep        Reason = "invalid_step"
	ReasonDependencyUnmet    Reason = "dependency_unmet"
	ReasonStepFailed         Reason = "step_failed"
	ReasonIterationsExceeded Reason = "iterations_exceeded"
	ReasonStepsExceeded      Reason = "steps_exceeded"
	ReasonHandoffLimit       Reason = "handoff_limit_exceeded"
	ReasonTimeout            Reason = "timeout"
)

// Succeeded creates a successful terminal Result
func Succeeded(output string, trace *Trace) *Result {
	return &Result{
		Success: true,
		Output:  output,
		Trace:   trace,
	}
}

// Failed creates a failed terminal Result classified by reason
func Failed(reason Reason, err error, trace *Trace) *Result {
	res := &Result{
		Reason: reason,
		Trace:  trace,
	}
	if err != nil {
		res.Error = err.Error()
	}
	return res
}

// Suspended creates a paused Result. The run is neither complete nor
// failed; the persisted context can be resumed under the given run ID
func Suspended(id RunID, trace *Trace) *Result {
	return &Result{
		RunID:  id,
		Paused: true,
		Trace:  trace,
	}
}
