// Package registry provides the shipped capability-registry collaborator:
// an in-memory registry of local functions plus an HTTP adapter so remote
// tools can be mounted as capabilities
package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kode4food/paisley/pkg/api"
)

type (
	// Func adapts a plain function to the Capability contract
	Func func(context.Context, api.CallArgs) (string, error)

	// Registry is an in-memory capability registry. Registration happens
	// at startup; lookups are concurrent and read-only thereafter
	Registry struct {
		entries map[string]*entry
		order   []string
		mu      sync.RWMutex
	}

	entry struct {
		info       api.CapabilityInfo
		capability api.Capability
	}
)

var (
	ErrDuplicateCapability = errors.New("capability already registered")

	_ api.Registry   = (*Registry)(nil)
	_ api.Capability = (Func)(nil)
)

// Invoke calls the underlying function
func (f Func) Invoke(ctx context.Context, args api.CallArgs) (string, error) {
	return f(ctx, args)
}

// New creates an empty registry
func New() *Registry {
	return &Registry{
		entries: map[string]*entry{},
	}
}

// Register adds a capability under its descriptor's namespace and name.
// Duplicate registration is a configuration error
func (r *Registry) Register(
	info api.CapabilityInfo, capability api.Capability,
) error {
	key := info.Ref().String()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[key]; ok {
		return fmt.Errorf("%w: %w: %s",
			api.ErrConfiguration, ErrDuplicateCapability, key,
		)
	}
	r.entries[key] = &entry{
		info:       info,
		capability: capability,
	}
	r.order = append(r.order, key)
	return nil
}

// RegisterFunc registers a plain function as a capability
func (r *Registry) RegisterFunc(
	namespace, name, description string, fn Func,
) error {
	return r.Register(api.CapabilityInfo{
		Namespace:   namespace,
		Name:        name,
		Description: description,
	}, fn)
}

// Lookup resolves a (namespace, name) pair
func (r *Registry) Lookup(namespace, name string) (api.Capability, bool) {
	key := api.Ref{Namespace: namespace, Name: name}.String()

	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[key]
	if !ok {
		return nil, false
	}
	return e.capability, true
}

// List enumerates the registered capability descriptors in registration
// order, for consumers such as decision oracles
func (r *Registry) List() []api.CapabilityInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res := make([]api.CapabilityInfo, 0, len(r.order))
	for _, key := range r.order {
		res = append(res, r.entries[key].info)
	}
	return res
}
