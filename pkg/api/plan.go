package api

import (
	"errors"
	"fmt"
)

type (
	// Ref identifies a capability by namespace and name
	Ref struct {
		Namespace string `json:"namespace"`
		Name      string `json:"name"`
	}

	// PlanStep is one entry of a static Plan: a capability reference, its
	// argument mapping, and the IDs of earlier steps whose outputs must be
	// recorded before this step may run
	PlanStep struct {
		ID          string          `json:"id"`
		Capability  Ref             `json:"capability"`
		Args        map[Name]string `json:"args,omitempty"`
		DependsOn   []string        `json:"depends_on,omitempty"`
		Description string          `json:"description,omitempty"`
	}

	// Plan is a dependency-annotated, ordered list of steps pursuing a
	// stated goal. List order is expected to encode a valid topological
	// order; a dependency that names no earlier step is a runtime failure
	// of the step that declares it, not a construction error
	Plan struct {
		ID    string      `json:"id"`
		Goal  string      `json:"goal,omitempty"`
		Steps []*PlanStep `json:"steps"`
	}
)

var (
	ErrPlanIDEmpty     = errors.New("plan ID empty")
	ErrPlanStepIDEmpty = errors.New("plan step ID empty")
	ErrDuplicateStepID = errors.New("duplicate plan step ID")
	ErrCapabilityEmpty = errors.New("capability reference empty")
)

// String renders the reference as "namespace/name"
func (r Ref) String() string {
	return r.Namespace + "/" + r.Name
}

// IsEmpty returns true if the reference names nothing
func (r Ref) IsEmpty() bool {
	return r.Namespace == "" && r.Name == ""
}

// Validate checks the plan for construction errors: empty or duplicate step
// IDs and empty capability references. All violations wrap ErrConfiguration.
// Dependency ordering is checked by the executor as each step comes up, so
// an out-of-order dependency fails that step's run rather than construction
func (p *Plan) Validate() error {
	if p.ID == "" {
		return configErr(ErrPlanIDEmpty)
	}

	seen := make(map[string]bool, len(p.Steps))
	for _, step := range p.Steps {
		if step.ID == "" {
			return configErr(ErrPlanStepIDEmpty)
		}
		if seen[step.ID] {
			return configErr(fmt.Errorf("%w: %s", ErrDuplicateStepID, step.ID))
		}
		if step.Capability.IsEmpty() {
			return configErr(fmt.Errorf("%w: %s", ErrCapabilityEmpty, step.ID))
		}
		seen[step.ID] = true
	}
	return nil
}

func configErr(err error) error {
	return fmt.Errorf("%w: %w", ErrConfiguration, err)
}
