package process_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kode4food/paisley/internal/assert/helpers"
	"github.com/kode4food/paisley/pkg/api"
	"github.com/kode4food/paisley/pkg/process"
	"github.com/kode4food/paisley/pkg/registry"
	"github.com/kode4food/paisley/pkg/script"
)

func TestCapabilityStepResolvesRefs(t *testing.T) {
	reg := registry.New()
	var seen api.CallArgs
	_ = reg.RegisterFunc("mail", "send", "",
		func(_ context.Context, args api.CallArgs) (string, error) {
			seen = args.Clone()
			return "sent", nil
		})

	step := process.NewCapabilityStep(
		"notify", "", api.Ref{Namespace: "mail", Name: "send"},
		map[api.Name]string{
			"to":      "$recipient",
			"subject": "fixed subject",
			"missing": "$unset",
		},
	)

	state := api.NewState()
	state.Set("recipient", "ops@example.com")
	res := step.Execute(context.Background(), state, reg)

	require.True(t, res.Succeeded())
	assert.Equal(t, "sent", res.Output)
	assert.Equal(t, "ops@example.com", seen["to"])
	assert.Equal(t, "fixed subject", seen["subject"])

	// References to absent keys pass through verbatim
	assert.Equal(t, "$unset", seen["missing"])
}

func TestCapabilityStepUnknown(t *testing.T) {
	step := process.NewCapabilityStep(
		"notify", "", api.Ref{Namespace: "mail", Name: "send"}, nil,
	)
	res := step.Execute(context.Background(), api.NewState(), registry.New())

	require.True(t, res.Failed())
	assert.Contains(t, res.Error, "mail/send")
}

func TestCapabilityStepFailure(t *testing.T) {
	reg := registry.New()
	_ = reg.Register(api.CapabilityInfo{Namespace: "mail", Name: "send"},
		helpers.FailingCapability(errors.New("smtp down")))

	step := process.NewCapabilityStep(
		"notify", "", api.Ref{Namespace: "mail", Name: "send"}, nil,
	)
	res := step.Execute(context.Background(), api.NewState(), reg)

	require.True(t, res.Failed())
	assert.Equal(t, "smtp down", res.Error)
}

func TestApprovalStepPausesWithoutDecision(t *testing.T) {
	step := process.NewApprovalStep("review", "", "Proceed?")
	state := api.NewState()

	res := step.Execute(context.Background(), state, nil)
	require.True(t, res.Paused())
	assert.Equal(t, "Proceed?", state.GetString("review.prompt", ""))
}

func TestApprovalStepDefaultOutput(t *testing.T) {
	step := process.NewApprovalStep("review", "", "Proceed?")
	state := api.NewState()
	state.Set(api.ApprovalKey("review"), &api.ApprovalDecision{
		Approved: true,
	})

	res := step.Execute(context.Background(), state, nil)
	require.True(t, res.Succeeded())
	assert.Equal(t, "approved", res.Output)
}

func TestApprovalStepBadDecision(t *testing.T) {
	step := process.NewApprovalStep("review", "", "Proceed?")
	state := api.NewState()
	state.Set(api.ApprovalKey("review"), func() {})

	res := step.Execute(context.Background(), state, nil)
	assert.True(t, res.Failed())
}

func TestExtractStep(t *testing.T) {
	oracle := helpers.NewStaticOracle(
		helpers.Text("Total: $42.00"),
	)
	step := process.NewExtractStep(
		"total", "", "Extract the total as a currency string",
		"invoice", oracle,
	)

	state := api.NewState()
	state.Set("invoice", map[string]any{"total": 42.0})

	res := step.Execute(context.Background(), state, nil)
	require.True(t, res.Succeeded())
	assert.Equal(t, "Total: $42.00", res.Output)
	assert.Equal(t, "Total: $42.00", state.GetString("total", ""))

	requests := oracle.Requests()
	require.Len(t, requests, 1)
	assert.Equal(t, api.RoleSystem, requests[0].Messages[0].Role)
	assert.Contains(t, requests[0].Messages[1].Content, "total")
}

func TestExtractStepMissingSource(t *testing.T) {
	oracle := helpers.NewStaticOracle()
	step := process.NewExtractStep("total", "", "extract", "invoice", oracle)

	res := step.Execute(context.Background(), api.NewState(), nil)
	require.True(t, res.Failed())
	assert.Empty(t, oracle.Requests())
}

func TestExtractStepOracleError(t *testing.T) {
	oracle := helpers.NewFailingOracle(errors.New("model offline"))
	step := process.NewExtractStep("total", "", "extract", "invoice", oracle)

	state := api.NewState()
	state.Set("invoice", "data")
	res := step.Execute(context.Background(), state, nil)

	require.True(t, res.Failed())
	assert.Equal(t, "model offline", res.Error)
}

func TestScriptStep(t *testing.T) {
	env := script.NewLuaEnv()
	step := process.NewScriptStep(
		"total", "", env, "return price * quantity",
		[]api.Name{"price", "quantity"},
	)

	state := api.NewState()
	state.Set("price", 3)
	state.Set("quantity", 4)

	res := step.Execute(context.Background(), state, nil)
	require.True(t, res.Succeeded())
	assert.Equal(t, "12", res.Output)

	// The raw script result lands in the context, not its rendering
	val, ok := state.Get("total")
	require.True(t, ok)
	assert.Equal(t, 12, val)
}

func TestScriptStepError(t *testing.T) {
	env := script.NewLuaEnv()
	step := process.NewScriptStep(
		"boom", "", env, `error("scripted failure")`, nil,
	)

	res := step.Execute(context.Background(), api.NewState(), nil)
	assert.True(t, res.Failed())
}

func TestProcessValidate(t *testing.T) {
	proc := &process.Process{
		ID: "valid",
		Steps: []process.BoundStep{
			process.Hard(transform("a", "1")),
			process.Soft(transform("b", "2")),
			{Step: transform("c", "3")},
		},
	}
	assert.NoError(t, proc.Validate())

	assert.ErrorIs(t, (&process.Process{}).Validate(), api.ErrConfiguration)

	nilStep := &process.Process{
		ID:    "nil-step",
		Steps: []process.BoundStep{{}},
	}
	assert.ErrorIs(t, nilStep.Validate(), process.ErrProcessStepNil)

	badMode := &process.Process{
		ID: "bad-mode",
		Steps: []process.BoundStep{
			{Step: transform("a", "1"), OnFailure: "maybe"},
		},
	}
	assert.ErrorIs(t, badMode.Validate(), process.ErrBadFailureMode)
}
