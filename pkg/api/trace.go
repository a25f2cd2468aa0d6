package api

import "time"

type (
	// EventKind tags a trace event
	EventKind string

	// TraceEvent is one entry of a run's audit log. Only the fields
	// relevant to the event kind are populated
	TraceEvent struct {
		Kind       EventKind `json:"kind"`
		Time       time.Time `json:"time"`
		Goal       string    `json:"goal,omitempty"`
		PlanID     string    `json:"plan_id,omitempty"`
		StepID     string    `json:"step_id,omitempty"`
		Capability string    `json:"capability,omitempty"`
		Args       CallArgs  `json:"args,omitempty"`
		Output     string    `json:"output,omitempty"`
		Error      string    `json:"error,omitempty"`
		From       string    `json:"from,omitempty"`
		To         string    `json:"to,omitempty"`
		Condition  string    `json:"condition,omitempty"`
		Success    bool      `json:"success,omitempty"`
	}

	// Trace is the append-only, time-ordered log of a single run. A
	// function_completed event always follows its matching function_called
	// event; events are never mutated after a terminal event is appended
	Trace struct {
		Events   []*TraceEvent `json:"events"`
		observer Observer
	}

	// Observer receives each trace event as it is appended, in append
	// order. Used to stream live events to external consumers
	Observer func(*TraceEvent)
)

const (
	EventPlanningStarted   EventKind = "planning_started"
	EventPlanStarted       EventKind = "plan_started"
	EventFunctionCalled    EventKind = "function_called"
	EventFunctionCompleted EventKind = "function_completed"
	EventPlanCompleted     EventKind = "plan_completed"
	EventProcessPaused     EventKind = "process_paused"
	EventProcessResumed    EventKind = "process_resumed"
	EventHandoffRouted     EventKind = "handoff_routed"
)

// NewTrace creates an empty trace, optionally wired to an observer
func NewTrace(observer Observer) *Trace {
	return &Trace{
		observer: observer,
	}
}

// Append stamps the event with the current time if unset, records it, and
// notifies the observer
func (t *Trace) Append(ev *TraceEvent) *TraceEvent {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	t.Events = append(t.Events, ev)
	if t.observer != nil {
		t.observer(ev)
	}
	return ev
}

// Len returns the number of recorded events
func (t *Trace) Len() int {
	return len(t.Events)
}

// OfKind returns the recorded events of the given kind, in append order
func (t *Trace) OfKind(kind EventKind) []*TraceEvent {
	var res []*TraceEvent
	for _, ev := range t.Events {
		if ev.Kind == kind {
			res = append(res, ev)
		}
	}
	return res
}
