package helpers

import (
	"context"
	"sync"

	"github.com/kode4food/paisley/pkg/api"
)

// ScriptedWorker answers with a fixed sequence of outputs, repeating the
// last one when the script runs dry, and records every message it receives
type ScriptedWorker struct {
	id       string
	name     string
	outputs  []string
	messages []string
	err      error
	calls    int
	mu       sync.Mutex
}

// NewWorker creates a worker that replies with the given outputs in order
func NewWorker(id string, outputs ...string) *ScriptedWorker {
	return &ScriptedWorker{
		id:      id,
		name:    id,
		outputs: outputs,
	}
}

// NewFailingWorker creates a worker whose every invocation fails with err
func NewFailingWorker(id string, err error) *ScriptedWorker {
	return &ScriptedWorker{
		id:   id,
		name: id,
		err:  err,
	}
}

func (w *ScriptedWorker) ID() string   { return w.id }
func (w *ScriptedWorker) Name() string { return w.name }

func (w *ScriptedWorker) Invoke(
	_ context.Context, thread api.Thread, message string,
) (string, api.Thread, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.messages = append(w.messages, message)
	if w.err != nil {
		return "", thread, w.err
	}

	idx := w.calls
	if idx >= len(w.outputs) {
		idx = len(w.outputs) - 1
	}
	w.calls++

	output := w.outputs[idx]
	updated := thread.Append(api.RoleUser, message)
	updated = updated.Append(api.RoleAssistant, output)
	return output, updated, nil
}

// Messages returns the messages received, in order
func (w *ScriptedWorker) Messages() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string{}, w.messages...)
}

// Calls returns the number of invocations
func (w *ScriptedWorker) Calls() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.calls
}
