// Package langchain adapts any langchaingo model to the decision-oracle
// contract, mapping tool calls to structured capability-call requests
package langchain

import (
	"context"
	"errors"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tmc/langchaingo/llms"

	"github.com/kode4food/paisley/pkg/api"
)

type (
	// Oracle wraps a langchaingo model as a decision oracle
	Oracle struct {
		model llms.Model
		opts  []llms.CallOption
	}

	// Option configures an Oracle
	Option func(*Oracle)
)

// refSeparator joins namespace and name into a tool identifier, since
// most providers reject "/" in tool names
const refSeparator = "__"

var (
	ErrNoChoices = errors.New("model returned no choices")

	_ api.Oracle = (*Oracle)(nil)
)

// WithCallOptions appends call options (temperature, model overrides, and
// the like) to every generation
func WithCallOptions(opts ...llms.CallOption) Option {
	return func(o *Oracle) {
		o.opts = append(o.opts, opts...)
	}
}

// New creates an oracle over the given model
func New(model llms.Model, opts ...Option) *Oracle {
	res := &Oracle{
		model: model,
	}
	for _, opt := range opts {
		opt(res)
	}
	return res
}

// Decide forwards the conversation and available capabilities to the model
// and maps its answer back. When the model both calls a tool and produces
// text, the first tool call takes precedence; the text rides along as
// recorded content
func (o *Oracle) Decide(
	ctx context.Context, req *api.OracleRequest,
) (*api.Decision, error) {
	messages := mapMessages(req.Messages)

	opts := o.opts
	if len(req.Capabilities) > 0 {
		opts = append(opts, llms.WithTools(mapTools(req.Capabilities)))
	}

	resp, err := o.model.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, ErrNoChoices
	}

	choice := resp.Choices[0]
	decision := &api.Decision{
		Content: choice.Content,
	}
	if len(choice.ToolCalls) > 0 {
		call := choice.ToolCalls[0]
		decision.Call = &api.CapabilityCall{
			Capability: parseToolName(call.FunctionCall.Name),
			Args:       parseArguments(call.FunctionCall.Arguments),
		}
	}
	return decision, nil
}

func mapMessages(messages []api.Message) []llms.MessageContent {
	res := make([]llms.MessageContent, len(messages))
	for i, msg := range messages {
		res[i] = llms.MessageContent{
			Role: mapRole(msg.Role),
			Parts: []llms.ContentPart{
				llms.TextPart(msg.Content),
			},
		}
	}
	return res
}

func mapRole(role api.Role) llms.ChatMessageType {
	switch role {
	case api.RoleSystem:
		return llms.ChatMessageTypeSystem
	case api.RoleAssistant:
		return llms.ChatMessageTypeAI
	case api.RoleTool:
		// Observation text, not a provider tool-call response
		return llms.ChatMessageTypeGeneric
	default:
		return llms.ChatMessageTypeHuman
	}
}

func mapTools(capabilities []api.CapabilityInfo) []llms.Tool {
	res := make([]llms.Tool, len(capabilities))
	for i, info := range capabilities {
		res[i] = llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        toolName(info),
				Description: info.Description,
				Parameters:  toolParameters(info),
			},
		}
	}
	return res
}

func toolName(info api.CapabilityInfo) string {
	return info.Namespace + refSeparator + info.Name
}

func toolParameters(info api.CapabilityInfo) map[string]any {
	properties := map[string]any{}
	for name, description := range info.Parameters {
		properties[string(name)] = map[string]any{
			"type":        "string",
			"description": description,
		}
	}
	return map[string]any{
		"type":       "object",
		"properties": properties,
	}
}

func parseToolName(name string) api.Ref {
	if ns, rest, ok := strings.Cut(name, refSeparator); ok {
		return api.Ref{
			Namespace: ns,
			Name:      rest,
		}
	}
	return api.Ref{
		Name: name,
	}
}

// parseArguments probes the model's argument JSON, stringifying each
// top-level value into the capability's string-keyed contract
func parseArguments(arguments string) api.CallArgs {
	args := api.CallArgs{}
	gjson.Parse(arguments).ForEach(func(key, value gjson.Result) bool {
		args[api.Name(key.String())] = value.String()
		return true
	})
	return args
}
