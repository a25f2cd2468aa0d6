package assert

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kode4food/paisley/pkg/api"
)

// Wrapper wraps testify assertions with paisley-specific helpers
type Wrapper struct {
	*testing.T
	*assert.Assertions
	Require *require.Assertions
}

// New creates a new test assertion wrapper with both assert and require
// from testify plus paisley-specific helpers
func New(t *testing.T) *Wrapper {
	return &Wrapper{
		T:          t,
		Assertions: assert.New(t),
		Require:    require.New(t),
	}
}

// Succeeded asserts that a run result is a terminal success
func (w *Wrapper) Succeeded(res *api.Result) {
	w.Helper()
	w.Require.NotNil(res)
	w.True(res.Success)
	w.False(res.Paused)
	w.Empty(res.Error)
}

// FailedWith asserts that a run result failed for the given reason
func (w *Wrapper) FailedWith(res *api.Result, reason api.Reason) {
	w.Helper()
	w.Require.NotNil(res)
	w.False(res.Success)
	w.False(res.Paused)
	w.Equal(reason, res.Reason)
	w.NotEmpty(res.Error)
}

// Suspended asserts that a run result is paused, which is neither success
// nor failure
func (w *Wrapper) Suspended(res *api.Result) {
	w.Helper()
	w.Require.NotNil(res)
	w.True(res.Paused)
	w.False(res.Success)
	w.Empty(res.Error)
	w.NotEmpty(res.RunID)
}

// EventKinds asserts the exact kind sequence of a trace
func (w *Wrapper) EventKinds(trace *api.Trace, kinds ...api.EventKind) {
	w.Helper()
	w.Require.NotNil(trace)

	actual := make([]api.EventKind, len(trace.Events))
	for i, ev := range trace.Events {
		actual[i] = ev.Kind
	}
	w.Equal(kinds, actual)
}

// CallsPaired asserts that every function_completed event follows its
// matching function_called event
func (w *Wrapper) CallsPaired(trace *api.Trace) {
	w.Helper()
	w.Require.NotNil(trace)

	var pending []string
	for _, ev := range trace.Events {
		switch ev.Kind {
		case api.EventFunctionCalled:
			pending = append(pending, ev.Capability)
		case api.EventFunctionCompleted:
			w.Require.NotEmpty(pending, "completed without a call")
			w.Equal(pending[len(pending)-1], ev.Capability)
			pending = pending[:len(pending)-1]
		}
	}
	w.Empty(pending, "calls without completion")
}
