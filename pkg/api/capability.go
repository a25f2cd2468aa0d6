package api

import "context"

type (
	// CallArgs is the string-keyed argument mapping of a capability call
	CallArgs map[Name]string

	// Capability is a named, invocable unit of external behavior. The core
	// never inspects how a capability is implemented
	Capability interface {
		Invoke(context.Context, CallArgs) (string, error)
	}

	// CapabilityInfo describes a registered capability for decision oracles
	// and other consumers that enumerate what is available
	CapabilityInfo struct {
		Namespace   string          `json:"namespace"`
		Name        string          `json:"name"`
		Description string          `json:"description,omitempty"`
		Parameters  map[Name]string `json:"parameters,omitempty"`
	}

	// Registry resolves (namespace, name) pairs to capabilities. It is a
	// shared, read-only collaborator with no run-scoped state
	Registry interface {
		Lookup(namespace, name string) (Capability, bool)
		List() []CapabilityInfo
	}
)

// Ref returns the registry reference for this capability descriptor
func (i CapabilityInfo) Ref() Ref {
	return Ref{
		Namespace: i.Namespace,
		Name:      i.Name,
	}
}

// Clone returns a copy of the argument mapping
func (a CallArgs) Clone() CallArgs {
	if a == nil {
		return CallArgs{}
	}
	res := make(CallArgs, len(a))
	for k, v := range a {
		res[k] = v
	}
	return res
}
