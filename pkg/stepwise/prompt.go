package stepwise

import (
	"fmt"
	"strings"

	"github.com/kode4food/paisley/pkg/api"
)

const systemPrompt = `You are pursuing a goal one step at a time. On each
turn either call exactly one of the available capabilities, or respond with
plain text when the goal is complete or cannot be completed.`

// buildMessages summarizes the goal and every prior step result into the
// conversation handed to the oracle. The history is rebuilt on every
// round-trip so the oracle always sees the full run
func buildMessages(goal string, history []*stepRecord) []api.Message {
	messages := []api.Message{
		{Role: api.RoleSystem, Content: systemPrompt},
		{Role: api.RoleUser, Content: "Goal: " + goal},
	}

	for _, record := range history {
		messages = append(messages, api.Message{
			Role:    api.RoleAssistant,
			Content: describeCall(record.call),
		})
		messages = append(messages, api.Message{
			Role:    api.RoleTool,
			Content: describeOutcome(record),
		})
	}
	return messages
}

func describeCall(call *api.CapabilityCall) string {
	if len(call.Args) == 0 {
		return fmt.Sprintf("Called %s", call.Capability)
	}

	pairs := make([]string, 0, len(call.Args))
	for name, value := range call.Args {
		pairs = append(pairs, fmt.Sprintf("%s=%s", name, value))
	}
	return fmt.Sprintf(
		"Called %s with %s", call.Capability, strings.Join(pairs, ", "),
	)
}

func describeOutcome(record *stepRecord) string {
	if record.errMsg != "" {
		return "Error: " + record.errMsg
	}
	return record.output
}
