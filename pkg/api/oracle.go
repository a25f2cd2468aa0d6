package api

import "context"

type (
	// Role identifies the author of a conversation message
	Role string

	// Message is one entry of an ordered conversation history
	Message struct {
		Role    Role   `json:"role"`
		Content string `json:"content"`
	}

	// CapabilityCall is a structured request from the oracle to invoke one
	// capability with the given arguments
	CapabilityCall struct {
		Capability Ref      `json:"capability"`
		Args       CallArgs `json:"args,omitempty"`
	}

	// Decision is the oracle's answer: a single capability call, free-text
	// content, or both. When both are present the call takes precedence;
	// the content is recorded but not parsed for a separate decision
	Decision struct {
		Call    *CapabilityCall `json:"call,omitempty"`
		Content string          `json:"content,omitempty"`
	}

	// OracleRequest carries the conversation so far plus the capabilities
	// available for the next action
	OracleRequest struct {
		Messages     []Message        `json:"messages"`
		Capabilities []CapabilityInfo `json:"capabilities,omitempty"`
	}

	// Oracle is the only interface to a language model. The core treats it
	// as an opaque decision function over history and available capabilities
	Oracle interface {
		Decide(context.Context, *OracleRequest) (*Decision, error)
	}
)

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)
