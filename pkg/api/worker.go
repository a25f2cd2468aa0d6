package api

import "context"

type (
	// Thread is the shared conversation history carried across worker
	// invocations during a handoff run
	Thread []Message

	// Worker is an autonomous, agent-like component the handoff
	// orchestrator routes among. Invoke receives the conversation thread
	// and a message, and returns its reply plus the updated thread
	Worker interface {
		ID() string
		Name() string
		Invoke(context.Context, Thread, string) (string, Thread, error)
	}
)

// Append returns the thread with the given message added
func (t Thread) Append(role Role, content string) Thread {
	return append(t, Message{
		Role:    role,
		Content: content,
	})
}
