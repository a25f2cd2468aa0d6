package handoff

import (
	"context"
	"errors"

	"github.com/kode4food/paisley/pkg/api"
)

// OracleWorker adapts a Decision Oracle into a routable worker. Each
// invocation replays the shared thread behind the worker's own persona, so
// every worker sees the full conversation but answers in its own voice
type OracleWorker struct {
	id      string
	name    string
	persona string
	oracle  api.Oracle
}

var ErrEmptyDecision = errors.New("oracle returned no content")

// NewOracleWorker creates a worker whose replies come from the given
// oracle, prefixing every request with the persona as a system message
func NewOracleWorker(
	id, name, persona string, oracle api.Oracle,
) *OracleWorker {
	return &OracleWorker{
		id:      id,
		name:    name,
		persona: persona,
		oracle:  oracle,
	}
}

func (w *OracleWorker) ID() string {
	return w.id
}

func (w *OracleWorker) Name() string {
	return w.name
}

// Invoke asks the oracle for a reply to the message in the context of the
// thread. The thread returned carries both the incoming message and the
// reply, attributed to user and assistant respectively
func (w *OracleWorker) Invoke(
	ctx context.Context, thread api.Thread, message string,
) (string, api.Thread, error) {
	messages := make([]api.Message, 0, len(thread)+2)
	if w.persona != "" {
		messages = append(messages, api.Message{
			Role:    api.RoleSystem,
			Content: w.persona,
		})
	}
	messages = append(messages, thread...)
	messages = append(messages, api.Message{
		Role:    api.RoleUser,
		Content: message,
	})

	decision, err := w.oracle.Decide(ctx, &api.OracleRequest{
		Messages: messages,
	})
	if err != nil {
		return "", thread, err
	}
	if decision.Content == "" {
		return "", thread, ErrEmptyDecision
	}

	updated := thread.
		Append(api.RoleUser, message).
		Append(api.RoleAssistant, decision.Content)
	return decision.Content, updated, nil
}
