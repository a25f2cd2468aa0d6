// Package helpers provides mock collaborators for runner tests: scripted
// decision oracles, scripted workers, and canned capability registries
package helpers

import (
	"context"
	"errors"
	"sync"

	"github.com/kode4food/paisley/pkg/api"
	"github.com/kode4food/paisley/pkg/registry"
)

// ErrNoMoreDecisions is returned when a scripted oracle runs dry
var ErrNoMoreDecisions = errors.New("oracle has no more decisions")

// Call creates a capability-call decision
func Call(namespace, name string, args api.CallArgs) *api.Decision {
	return &api.Decision{
		Call: &api.CapabilityCall{
			Capability: api.Ref{Namespace: namespace, Name: name},
			Args:       args,
		},
	}
}

// Text creates a free-text decision with no capability call
func Text(content string) *api.Decision {
	return &api.Decision{
		Content: content,
	}
}

// NewRegistry creates a registry with the given canned capabilities. Each
// capability echoes its configured output; outputs keyed "ns/name"
func NewRegistry(outputs map[string]string) *registry.Registry {
	res := registry.New()
	for key, output := range outputs {
		ref := parseRef(key)
		out := output
		_ = res.RegisterFunc(ref.Namespace, ref.Name, "canned "+key,
			func(context.Context, api.CallArgs) (string, error) {
				return out, nil
			},
		)
	}
	return res
}

// FailingCapability returns a capability that always fails with err
func FailingCapability(err error) registry.Func {
	return func(context.Context, api.CallArgs) (string, error) {
		return "", err
	}
}

// RecordingCapability returns a capability that records every call's
// arguments and succeeds with output
func RecordingCapability(output string) (registry.Func, *CallRecorder) {
	recorder := &CallRecorder{}
	fn := func(_ context.Context, args api.CallArgs) (string, error) {
		recorder.record(args)
		return output, nil
	}
	return fn, recorder
}

// CallRecorder captures capability invocations for assertion
type CallRecorder struct {
	calls []api.CallArgs
	mu    sync.Mutex
}

func (r *CallRecorder) record(args api.CallArgs) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, args.Clone())
}

// Calls returns the recorded invocations in order
func (r *CallRecorder) Calls() []api.CallArgs {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]api.CallArgs{}, r.calls...)
}

func parseRef(key string) api.Ref {
	for i := range key {
		if key[i] == '/' {
			return api.Ref{Namespace: key[:i], Name: key[i+1:]}
		}
	}
	return api.Ref{Name: key}
}
