package api_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kode4food/paisley/pkg/api"
)

func TestTraceAppend(t *testing.T) {
	trace := api.NewTrace(nil)
	assert.Equal(t, 0, trace.Len())

	ev := trace.Append(&api.TraceEvent{
		Kind:   api.EventFunctionCalled,
		StepID: "fetch",
	})
	require.Equal(t, 1, trace.Len())
	assert.False(t, ev.Time.IsZero())
	assert.Same(t, ev, trace.Events[0])
}

func TestTraceObserver(t *testing.T) {
	var seen []api.EventKind
	trace := api.NewTrace(func(ev *api.TraceEvent) {
		seen = append(seen, ev.Kind)
	})

	trace.Append(&api.TraceEvent{Kind: api.EventFunctionCalled})
	trace.Append(&api.TraceEvent{Kind: api.EventFunctionCompleted})

	assert.Equal(t, []api.EventKind{
		api.EventFunctionCalled,
		api.EventFunctionCompleted,
	}, seen)
}

func TestTraceOfKind(t *testing.T) {
	trace := api.NewTrace(nil)
	trace.Append(&api.TraceEvent{Kind: api.EventFunctionCalled, StepID: "a"})
	trace.Append(&api.TraceEvent{Kind: api.EventFunctionCompleted, StepID: "a"})
	trace.Append(&api.TraceEvent{Kind: api.EventFunctionCalled, StepID: "b"})

	called := trace.OfKind(api.EventFunctionCalled)
	require.Len(t, called, 2)
	assert.Equal(t, "a", called[0].StepID)
	assert.Equal(t, "b", called[1].StepID)

	assert.Empty(t, trace.OfKind(api.EventHandoffRouted))
}

func TestApprovalKey(t *testing.T) {
	assert.Equal(t, api.Name("approval.review"), api.ApprovalKey("review"))
}

func TestDecodeApproval(t *testing.T) {
	decision := &api.ApprovalDecision{
		Approved: true,
		Comments: "looks good",
		Approver: "alice",
	}

	// In-memory values pass through untouched
	decoded, err := api.DecodeApproval(decision)
	require.NoError(t, err)
	assert.Same(t, decision, decoded)

	// After a snapshot round-trip the value arrives as a generic map
	state := api.NewState()
	state.Set(api.ApprovalKey("review"), decision)
	data, err := state.Snapshot()
	require.NoError(t, err)
	restored, err := api.RestoreState(data)
	require.NoError(t, err)

	val, ok := restored.Get(api.ApprovalKey("review"))
	require.True(t, ok)
	decoded, err = api.DecodeApproval(val)
	require.NoError(t, err)
	assert.True(t, decoded.Approved)
	assert.Equal(t, "looks good", decoded.Comments)
	assert.Equal(t, "alice", decoded.Approver)
}

func TestDecodeApprovalInvalid(t *testing.T) {
	_, err := api.DecodeApproval(func() {})
	assert.ErrorIs(t, err, api.ErrDecodeApproval)
}

func TestStepResultConstructors(t *testing.T) {
	ok := api.Succeed("output")
	assert.True(t, ok.Succeeded())
	assert.Equal(t, "output", ok.Output)

	failed := api.Fail(api.ErrStepFailed)
	assert.True(t, failed.Failed())
	assert.Equal(t, api.ErrStepFailed.Error(), failed.Error)

	paused := api.Pause()
	assert.True(t, paused.Paused())
	assert.False(t, paused.Succeeded())
	assert.False(t, paused.Failed())
}
