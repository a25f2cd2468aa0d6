package stepwise_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kode4food/paisley/internal/assert"
	"github.com/kode4food/paisley/internal/assert/helpers"
	"github.com/kode4food/paisley/pkg/api"
	"github.com/kode4food/paisley/pkg/registry"
	"github.com/kode4food/paisley/pkg/stepwise"
)

func TestGoalAchievedByPredicate(t *testing.T) {
	as := assert.New(t)
	reg := helpers.NewRegistry(map[string]string{
		"web/search": "searching",
		"web/fetch":  "goal achieved: found it",
	})
	oracle := helpers.NewStaticOracle(
		helpers.Call("web", "search", api.CallArgs{"q": "answer"}),
		helpers.Call("web", "fetch", nil),
	)

	planner := stepwise.New()
	res := planner.ExecuteGoal(
		context.Background(), "find the answer", api.NewState(), reg, oracle,
	)

	as.Succeeded(res)
	as.Equal("goal achieved: found it", res.Output)

	// Bookends around two call/complete pairs
	as.EventKinds(res.Trace,
		api.EventPlanningStarted,
		api.EventFunctionCalled,
		api.EventFunctionCompleted,
		api.EventFunctionCalled,
		api.EventFunctionCompleted,
		api.EventPlanCompleted,
	)
	as.CallsPaired(res.Trace)
}

func TestExplicitCompletion(t *testing.T) {
	as := assert.New(t)
	reg := helpers.NewRegistry(map[string]string{"web/search": "partial"})
	oracle := helpers.NewStaticOracle(
		helpers.Call("web", "search", nil),
		helpers.Text("the answer is 42"),
	)

	planner := stepwise.New()
	res := planner.ExecuteGoal(
		context.Background(), "find the answer", api.NewState(), reg, oracle,
	)

	as.Succeeded(res)
	as.Equal("the answer is 42", res.Output)
	as.Len(res.Trace.OfKind(api.EventFunctionCalled), 1)
}

func TestCallTakesPrecedenceOverContent(t *testing.T) {
	as := assert.New(t)
	reg := helpers.NewRegistry(map[string]string{"web/search": "done"})

	both := helpers.Call("web", "search", nil)
	both.Content = "thinking out loud"
	oracle := helpers.NewStaticOracle(both, helpers.Text("finished"))

	planner := stepwise.New()
	res := planner.ExecuteGoal(
		context.Background(), "decide", api.NewState(), reg, oracle,
	)

	as.Succeeded(res)
	as.Equal("finished", res.Output)

	// The first decision's call was executed, not short-circuited by its text
	as.Len(res.Trace.OfKind(api.EventFunctionCalled), 1)
	as.Len(oracle.Requests(), 2)
}

func TestStepFailureTerminates(t *testing.T) {
	as := assert.New(t)
	boom := errors.New("upstream unavailable")

	reg := registry.New()
	_ = reg.Register(api.CapabilityInfo{Namespace: "web", Name: "fetch"},
		helpers.FailingCapability(boom))
	oracle := helpers.NewStaticOracle(
		helpers.Call("web", "fetch", nil),
		helpers.Text("never reached"),
	)

	planner := stepwise.New()
	res := planner.ExecuteGoal(
		context.Background(), "fetch it", api.NewState(), reg, oracle,
	)

	as.FailedWith(res, api.ReasonStepFailed)
	as.Contains(res.Error, "upstream unavailable")
	as.Len(oracle.Requests(), 1)
}

func TestUnknownCapabilityFails(t *testing.T) {
	as := assert.New(t)
	oracle := helpers.NewStaticOracle(
		helpers.Call("web", "missing", nil),
	)

	planner := stepwise.New()
	res := planner.ExecuteGoal(
		context.Background(), "call the void", api.NewState(),
		registry.New(), oracle,
	)

	as.FailedWith(res, api.ReasonStepFailed)
	as.Contains(res.Error, "web/missing")
}

func TestOracleErrorTerminates(t *testing.T) {
	as := assert.New(t)
	oracle := helpers.NewFailingOracle(errors.New("rate limited"))

	planner := stepwise.New()
	res := planner.ExecuteGoal(
		context.Background(), "anything", api.NewState(),
		registry.New(), oracle,
	)

	as.FailedWith(res, api.ReasonStepFailed)
	as.Contains(res.Error, "rate limited")
}

func TestMaxStepsExceeded(t *testing.T) {
	as := assert.New(t)
	reg := helpers.NewRegistry(map[string]string{"web/search": "more"})
	oracle := helpers.NewStaticOracle(
		helpers.Call("web", "search", nil),
		helpers.Call("web", "search", nil),
		helpers.Call("web", "search", nil),
	)

	planner := stepwise.New(
		stepwise.WithLimits(10, 2),
		stepwise.WithPredicate(stepwise.Never),
	)
	res := planner.ExecuteGoal(
		context.Background(), "keep going", api.NewState(), reg, oracle,
	)

	as.FailedWith(res, api.ReasonStepsExceeded)
	as.Len(res.Trace.OfKind(api.EventFunctionCompleted), 2)
}

func TestMaxIterationsExceeded(t *testing.T) {
	as := assert.New(t)
	reg := helpers.NewRegistry(map[string]string{"web/search": "more"})
	oracle := helpers.NewStaticOracle(
		helpers.Call("web", "search", nil),
		helpers.Call("web", "search", nil),
		helpers.Call("web", "search", nil),
	)

	planner := stepwise.New(
		stepwise.WithLimits(2, 10),
		stepwise.WithPredicate(stepwise.Never),
	)
	res := planner.ExecuteGoal(
		context.Background(), "keep going", api.NewState(), reg, oracle,
	)

	as.FailedWith(res, api.ReasonIterationsExceeded)
	as.Len(oracle.Requests(), 2)
}

func TestBudgetExceeded(t *testing.T) {
	as := assert.New(t)
	reg := registry.New()
	_ = reg.RegisterFunc("slow", "wait", "",
		func(context.Context, api.CallArgs) (string, error) {
			time.Sleep(20 * time.Millisecond)
			return "waited", nil
		})
	oracle := helpers.NewStaticOracle(
		helpers.Call("slow", "wait", nil),
		helpers.Call("slow", "wait", nil),
	)

	planner := stepwise.New(
		stepwise.WithBudget(time.Millisecond),
		stepwise.WithPredicate(stepwise.Never),
	)
	res := planner.ExecuteGoal(
		context.Background(), "hurry", api.NewState(), reg, oracle,
	)

	as.FailedWith(res, api.ReasonTimeout)

	// The in-flight invocation completed; it was not preempted
	as.Len(res.Trace.OfKind(api.EventFunctionCompleted), 1)
}

func TestOutputsRecordedInState(t *testing.T) {
	as := assert.New(t)
	reg := helpers.NewRegistry(map[string]string{"web/search": "found"})
	oracle := helpers.NewStaticOracle(
		helpers.Call("web", "search", nil),
		helpers.Text("done"),
	)

	state := api.NewState()
	planner := stepwise.New(stepwise.WithPredicate(stepwise.Never))
	res := planner.ExecuteGoal(
		context.Background(), "search", state, reg, oracle,
	)

	as.Succeeded(res)
	as.Equal("found", state.GetString("web/search", ""))
}

func TestOracleSeesFullHistory(t *testing.T) {
	as := assert.New(t)
	reg := helpers.NewRegistry(map[string]string{"web/search": "found"})
	oracle := helpers.NewStaticOracle(
		helpers.Call("web", "search", api.CallArgs{"q": "term"}),
		helpers.Text("done"),
	)

	planner := stepwise.New(stepwise.WithPredicate(stepwise.Never))
	planner.ExecuteGoal(
		context.Background(), "search the web", api.NewState(), reg, oracle,
	)

	requests := oracle.Requests()
	as.Require.Len(requests, 2)

	// First round-trip: system prompt plus the goal
	as.Len(requests[0].Messages, 2)
	as.Equal(api.RoleSystem, requests[0].Messages[0].Role)
	as.Contains(requests[0].Messages[1].Content, "search the web")

	// Second round-trip adds the call description and its outcome
	as.Require.Len(requests[1].Messages, 4)
	as.Equal(api.RoleAssistant, requests[1].Messages[2].Role)
	as.Contains(requests[1].Messages[2].Content, "web/search")
	as.Equal(api.RoleTool, requests[1].Messages[3].Role)
	as.Equal("found", requests[1].Messages[3].Content)
}
