package process_test

import (
	"context"
	"errors"
	"testing"

	"github.com/kode4food/paisley/internal/assert"
	"github.com/kode4food/paisley/internal/assert/helpers"
	"github.com/kode4food/paisley/pkg/api"
	"github.com/kode4food/paisley/pkg/process"
)

func transform(name, output string) api.Step {
	return process.NewTransformStep(name, "",
		func(*api.State) (string, error) {
			return output, nil
		})
}

func failing(name string, err error) api.Step {
	return process.NewTransformStep(name, "",
		func(*api.State) (string, error) {
			return "", err
		})
}

func approvalProcess() *process.Process {
	return &process.Process{
		ID: "expense-report",
		Steps: []process.BoundStep{
			process.Hard(transform("prepare", "report ready")),
			process.Hard(process.NewApprovalStep(
				"review", "", "Approve the expense report?",
			)),
			process.Hard(process.NewTransformStep("submit", "",
				func(state *api.State) (string, error) {
					return "submitted: " +
						state.GetString("review", ""), nil
				})),
		},
	}
}

func TestRunToCompletion(t *testing.T) {
	as := assert.New(t)
	runner := process.NewRunner()

	proc := &process.Process{
		ID: "two-steps",
		Steps: []process.BoundStep{
			process.Hard(transform("first", "one")),
			process.Hard(transform("second", "two")),
		},
	}

	res, err := runner.Run(context.Background(), proc, api.NewState())
	as.Require.NoError(err)
	as.Succeeded(res)
	as.Equal("two", res.Output)
	as.NotEmpty(res.RunID)
	as.CallsPaired(res.Trace)
}

func TestRunInvalidProcess(t *testing.T) {
	as := assert.New(t)
	runner := process.NewRunner()

	res, err := runner.Run(
		context.Background(), &process.Process{}, api.NewState(),
	)
	as.Nil(res)
	as.ErrorIs(err, api.ErrConfiguration)
}

func TestRunHardFailure(t *testing.T) {
	as := assert.New(t)
	runner := process.NewRunner()
	boom := errors.New("no disk space")

	proc := &process.Process{
		ID: "fails-hard",
		Steps: []process.BoundStep{
			process.Hard(failing("explode", boom)),
			process.Hard(transform("after", "unreached")),
		},
	}

	res, err := runner.Run(context.Background(), proc, api.NewState())
	as.Require.NoError(err)
	as.FailedWith(res, api.ReasonStepFailed)
	as.Contains(res.Error, "no disk space")
	as.Len(res.Trace.OfKind(api.EventFunctionCalled), 1)
}

func TestRunSoftFailureContinues(t *testing.T) {
	as := assert.New(t)
	runner := process.NewRunner()

	proc := &process.Process{
		ID: "fails-soft",
		Steps: []process.BoundStep{
			process.Soft(failing("optional", errors.New("skipped"))),
			process.Hard(transform("after", "reached")),
		},
	}

	state := api.NewState()
	res, err := runner.Run(context.Background(), proc, state)
	as.Require.NoError(err)
	as.Succeeded(res)
	as.Equal("reached", res.Output)

	// Failed soft steps record no output into the context
	_, ok := state.Get("optional")
	as.False(ok)
}

func TestRunPausesOnApproval(t *testing.T) {
	as := assert.New(t)
	store := process.NewMemoryStore()
	runner := process.NewRunner(process.WithStore(store))
	ctx := context.Background()

	state := api.NewState()
	res, err := runner.Run(ctx, approvalProcess(), state)
	as.Require.NoError(err)
	as.Suspended(res)

	// The paused context is persisted with the cursor on the approval step
	saved, err := store.Load(ctx, res.RunID)
	as.Require.NoError(err)
	as.Equal(1, saved.Cursor)
	as.Equal("report ready", saved.GetString("prepare", ""))
	as.Equal(
		"Approve the expense report?",
		saved.GetString("review.prompt", ""),
	)

	kinds := res.Trace.OfKind(api.EventProcessPaused)
	as.Require.Len(kinds, 1)
	as.Equal("review", kinds[0].StepID)
}

func TestResumeApproved(t *testing.T) {
	as := assert.New(t)
	store := process.NewMemoryStore()
	runner := process.NewRunner(process.WithStore(store))
	ctx := context.Background()
	proc := approvalProcess()

	paused, err := runner.Run(ctx, proc, api.NewState())
	as.Require.NoError(err)
	as.Suspended(paused)

	// Record the decision the way an API caller would: load, set, save
	state, err := store.Load(ctx, paused.RunID)
	as.Require.NoError(err)
	state.Set(api.ApprovalKey("review"), &api.ApprovalDecision{
		Approved: true,
		Comments: "ship it",
		Approver: "alice",
	})
	as.Require.NoError(store.Save(ctx, paused.RunID, state))

	res, err := runner.Resume(ctx, proc, paused.RunID)
	as.Require.NoError(err)
	as.Succeeded(res)
	as.Equal("submitted: ship it", res.Output)
	as.Len(res.Trace.OfKind(api.EventProcessResumed), 1)

	// The terminal run's snapshot is gone
	_, err = store.Load(ctx, paused.RunID)
	as.ErrorIs(err, api.ErrNotFound)
}

func TestResumeIdempotent(t *testing.T) {
	as := assert.New(t)
	store := process.NewMemoryStore()
	runner := process.NewRunner(process.WithStore(store))
	ctx := context.Background()
	proc := approvalProcess()

	paused, err := runner.Run(ctx, proc, api.NewState())
	as.Require.NoError(err)

	state, err := store.Load(ctx, paused.RunID)
	as.Require.NoError(err)
	state.Set(api.ApprovalKey("review"), &api.ApprovalDecision{
		Approved: true,
		Comments: "fine",
	})

	// Resuming twice from the same decided context produces the same output
	first, err := runner.ResumeState(ctx, proc, state.Clone())
	as.Require.NoError(err)
	second, err := runner.ResumeState(ctx, proc, state.Clone())
	as.Require.NoError(err)

	as.Succeeded(first)
	as.Succeeded(second)
	as.Equal(first.Output, second.Output)
}

func TestResumeRejected(t *testing.T) {
	as := assert.New(t)
	store := process.NewMemoryStore()
	runner := process.NewRunner(process.WithStore(store))
	ctx := context.Background()
	proc := approvalProcess()

	paused, err := runner.Run(ctx, proc, api.NewState())
	as.Require.NoError(err)

	state, err := store.Load(ctx, paused.RunID)
	as.Require.NoError(err)
	state.Set(api.ApprovalKey("review"), &api.ApprovalDecision{
		Approved: false,
		Comments: "numbers do not add up",
		Approver: "bob",
	})
	as.Require.NoError(store.Save(ctx, paused.RunID, state))

	res, err := runner.Resume(ctx, proc, paused.RunID)
	as.Require.NoError(err)
	as.FailedWith(res, api.ReasonStepFailed)
	as.Contains(res.Error, "numbers do not add up")
}

func TestResumeUnknownRun(t *testing.T) {
	as := assert.New(t)
	runner := process.NewRunner()

	_, err := runner.Resume(
		context.Background(), approvalProcess(), "no-such-run",
	)
	as.ErrorIs(err, api.ErrNotFound)
}

func TestApprovalReplacement(t *testing.T) {
	as := assert.New(t)
	runner := process.NewRunner()
	ctx := context.Background()

	proc := &process.Process{
		ID: "adjusted",
		Steps: []process.BoundStep{
			process.Hard(process.NewApprovalStep("review", "", "ok?")),
			process.Hard(process.NewTransformStep("report", "",
				func(state *api.State) (string, error) {
					return state.GetString("amount", "unset"), nil
				})),
		},
	}

	state := api.NewState()
	state.Set("amount", "100")
	state.Set(api.ApprovalKey("review"), &api.ApprovalDecision{
		Approved:    true,
		Replacement: map[api.Name]any{"amount": "80"},
	})

	res, err := runner.Run(ctx, proc, state)
	as.Require.NoError(err)
	as.Succeeded(res)
	as.Equal("80", res.Output)
}

func TestCapabilityStepsInProcess(t *testing.T) {
	as := assert.New(t)
	reg := helpers.NewRegistry(map[string]string{"web/fetch": "DATA"})
	runner := process.NewRunner(process.WithRegistry(reg))

	proc := &process.Process{
		ID: "fetch-then-wrap",
		Steps: []process.BoundStep{
			process.Hard(process.NewCapabilityStep(
				"fetch", "", api.Ref{Namespace: "web", Name: "fetch"},
				map[api.Name]string{"url": "$target"},
			)),
			process.Hard(process.NewTransformStep("wrap", "",
				func(state *api.State) (string, error) {
					return "[" + state.GetString("fetch", "") + "]", nil
				})),
		},
	}

	state := api.NewState()
	state.Set("target", "https://example.com")
	res, err := runner.Run(context.Background(), proc, state)
	as.Require.NoError(err)
	as.Succeeded(res)
	as.Equal("[DATA]", res.Output)
}
