package process

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kode4food/paisley/pkg/api"
	"github.com/kode4food/paisley/pkg/script"
)

type (
	// CapabilityStep invokes a registered capability with an argument
	// mapping resolved against the execution context
	CapabilityStep struct {
		name        string
		description string
		capability  api.Ref
		args        map[api.Name]string
	}

	// TransformStep applies a pure function over the execution context
	TransformStep struct {
		name        string
		description string
		fn          TransformFunc
	}

	// TransformFunc computes a step output from the execution context. It
	// may record derived values into the context
	TransformFunc func(*api.State) (string, error)

	// ApprovalStep suspends the run until an ApprovalDecision is recorded
	// under its well-known context key. Re-running the step after the
	// decision has been supplied advances past it rather than re-suspending
	ApprovalStep struct {
		name        string
		description string
		prompt      string
	}

	// ExtractStep delegates formatting to the decision oracle: it reads a
	// context value, asks the oracle to reshape it per the instruction, and
	// records the oracle's content under the step name
	ExtractStep struct {
		name        string
		description string
		instruction string
		source      api.Name
		oracle      api.Oracle
	}

	// ScriptStep runs a scripted data transform over selected context keys
	ScriptStep struct {
		name        string
		description string
		source      string
		inputs      []api.Name
		env         script.Env
	}
)

var (
	ErrApprovalRejected = errors.New("approval rejected")
	ErrExtractNoSource  = errors.New("extract source not in context")
)

// NewCapabilityStep creates a step invoking the referenced capability.
// Argument values may reference context keys as $key
func NewCapabilityStep(
	name, description string, capability api.Ref, args map[api.Name]string,
) *CapabilityStep {
	return &CapabilityStep{
		name:        name,
		description: description,
		capability:  capability,
		args:        args,
	}
}

func (s *CapabilityStep) Name() string        { return s.name }
func (s *CapabilityStep) Description() string { return s.description }

func (s *CapabilityStep) Execute(
	ctx context.Context, state *api.State, reg api.Registry,
) *api.StepResult {
	capability, ok := reg.Lookup(s.capability.Namespace, s.capability.Name)
	if !ok {
		return api.Fail(fmt.Errorf("%w: %s", api.ErrInvalidStep, s.capability))
	}

	args := make(api.CallArgs, len(s.args))
	for name, value := range s.args {
		args[name] = resolveStateRef(value, state)
	}

	out, err := capability.Invoke(ctx, args)
	if err != nil {
		return api.Fail(err)
	}
	return api.Succeed(out)
}

// NewTransformStep creates a pure data-transform step
func NewTransformStep(
	name, description string, fn TransformFunc,
) *TransformStep {
	return &TransformStep{
		name:        name,
		description: description,
		fn:          fn,
	}
}

func (s *TransformStep) Name() string        { return s.name }
func (s *TransformStep) Description() string { return s.description }

func (s *TransformStep) Execute(
	_ context.Context, state *api.State, _ api.Registry,
) *api.StepResult {
	out, err := s.fn(state)
	if err != nil {
		return api.Fail(err)
	}
	return api.Succeed(out)
}

// NewApprovalStep creates a human-approval step. The prompt is recorded
// into the context under "<name>.prompt" when the step suspends, so the
// surrounding tooling can surface it to approvers
func NewApprovalStep(name, description, prompt string) *ApprovalStep {
	return &ApprovalStep{
		name:        name,
		description: description,
		prompt:      prompt,
	}
}

func (s *ApprovalStep) Name() string        { return s.name }
func (s *ApprovalStep) Description() string { return s.description }

func (s *ApprovalStep) Execute(
	_ context.Context, state *api.State, _ api.Registry,
) *api.StepResult {
	value, ok := state.Get(api.ApprovalKey(s.name))
	if !ok {
		state.Set(api.Name(s.name+".prompt"), s.prompt)
		return api.Pause()
	}

	decision, err := api.DecodeApproval(value)
	if err != nil {
		return api.Fail(err)
	}
	if !decision.Approved {
		return api.Fail(fmt.Errorf(
			"%w by %s: %s", ErrApprovalRejected,
			decision.Approver, decision.Comments,
		))
	}

	for name, replacement := range decision.Replacement {
		state.Set(name, replacement)
	}
	if decision.Comments != "" {
		return api.Succeed(decision.Comments)
	}
	return api.Succeed("approved")
}

// NewExtractStep creates an AI-extraction step backed by the given oracle
func NewExtractStep(
	name, description, instruction string, source api.Name, oracle api.Oracle,
) *ExtractStep {
	return &ExtractStep{
		name:        name,
		description: description,
		instruction: instruction,
		source:      source,
		oracle:      oracle,
	}
}

func (s *ExtractStep) Name() string        { return s.name }
func (s *ExtractStep) Description() string { return s.description }

func (s *ExtractStep) Execute(
	ctx context.Context, state *api.State, _ api.Registry,
) *api.StepResult {
	value, ok := state.Get(s.source)
	if !ok {
		return api.Fail(fmt.Errorf("%w: %s", ErrExtractNoSource, s.source))
	}

	decision, err := s.oracle.Decide(ctx, &api.OracleRequest{
		Messages: []api.Message{
			{Role: api.RoleSystem, Content: s.instruction},
			{Role: api.RoleUser, Content: fmt.Sprintf("%v", value)},
		},
	})
	if err != nil {
		return api.Fail(err)
	}

	state.Set(api.Name(s.name), decision.Content)
	return api.Succeed(decision.Content)
}

// NewScriptStep creates a scripted transform step. The script receives the
// named context values as arguments, in the order given
func NewScriptStep(
	name, description string, env script.Env, source string,
	inputs []api.Name,
) *ScriptStep {
	return &ScriptStep{
		name:        name,
		description: description,
		source:      source,
		inputs:      inputs,
		env:         env,
	}
}

func (s *ScriptStep) Name() string        { return s.name }
func (s *ScriptStep) Description() string { return s.description }

func (s *ScriptStep) Execute(
	_ context.Context, state *api.State, _ api.Registry,
) *api.StepResult {
	argNames := make([]string, len(s.inputs))
	inputs := make(map[string]any, len(s.inputs))
	for i, name := range s.inputs {
		argNames[i] = string(name)
		if value, ok := state.Get(name); ok {
			inputs[string(name)] = value
		}
	}

	compiled, err := s.env.Compile(s.name, s.source, argNames)
	if err != nil {
		return api.Fail(err)
	}

	result, err := s.env.Execute(compiled, inputs)
	if err != nil {
		return api.Fail(err)
	}

	state.Set(api.Name(s.name), result)
	return api.Succeed(fmt.Sprintf("%v", result))
}

// resolveStateRef substitutes a $key argument value from the context.
// Values not starting with $ pass through unchanged
func resolveStateRef(value string, state *api.State) string {
	if !strings.HasPrefix(value, "$") {
		return value
	}
	return state.GetString(api.Name(value[1:]), value)
}
