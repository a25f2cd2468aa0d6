package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kode4food/paisley/internal/util"
)

type (
	// Catalog declares the named processes the service exposes for ops
	// use and the remote capabilities mounted into the registry, loaded
	// from a YAML file at startup
	Catalog struct {
		Capabilities []*CapabilityDef `yaml:"capabilities,omitempty"`
		Processes    []*ProcessDef    `yaml:"processes"`
	}

	// Duration parses time.Duration notation ("15s", "2h") from YAML
	Duration time.Duration

	// CapabilityDef declares a remote HTTP capability to mount
	CapabilityDef struct {
		Namespace   string   `yaml:"namespace"`
		Name        string   `yaml:"name"`
		Description string   `yaml:"description,omitempty"`
		Endpoint    string   `yaml:"endpoint"`
		Timeout     Duration `yaml:"timeout,omitempty"`
	}

	// ProcessDef declares one runnable process
	ProcessDef struct {
		ID          string     `yaml:"id"`
		Description string     `yaml:"description,omitempty"`
		Steps       []*StepDef `yaml:"steps"`
	}

	// StepDef declares one step of a catalog process. Kind selects the
	// step variant; OnFailure is the call-site hard/soft designation
	StepDef struct {
		Name        string            `yaml:"name"`
		Description string            `yaml:"description,omitempty"`
		Kind        string            `yaml:"kind"`
		OnFailure   string            `yaml:"on_failure,omitempty"`
		Namespace   string            `yaml:"namespace,omitempty"`
		Capability  string            `yaml:"capability,omitempty"`
		Args        map[string]string `yaml:"args,omitempty"`
		Language    string            `yaml:"language,omitempty"`
		Script      string            `yaml:"script,omitempty"`
		Inputs      []string          `yaml:"inputs,omitempty"`
		Prompt      string            `yaml:"prompt,omitempty"`
		Instruction string            `yaml:"instruction,omitempty"`
		Source      string            `yaml:"source,omitempty"`
	}
)

const (
	StepKindCapability = "capability"
	StepKindApproval   = "approval"
	StepKindScript     = "script"
	StepKindExtract    = "extract"
)

var (
	ErrCatalogProcessID  = errors.New("catalog process ID empty")
	ErrCatalogStepName   = errors.New("catalog step name empty")
	ErrCatalogStepKind   = errors.New("invalid catalog step kind")
	ErrCatalogDuplicate  = errors.New("duplicate catalog process ID")
	ErrCatalogCapRef     = errors.New("capability step needs namespace/name")
	ErrCatalogScript     = errors.New("script step needs language and script")
	ErrCatalogExtract    = errors.New("extract step needs a source key")
	ErrCatalogCapability = errors.New(
		"capability needs namespace, name, and endpoint",
	)
)

var validStepKinds = util.SetOf(
	StepKindCapability,
	StepKindApproval,
	StepKindScript,
	StepKindExtract,
)

// UnmarshalYAML parses a duration string
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// LoadCatalog reads and validates a catalog file
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	res := &Catalog{}
	if err := yaml.Unmarshal(data, res); err != nil {
		return nil, err
	}
	if err := res.Validate(); err != nil {
		return nil, err
	}
	return res, nil
}

// Validate checks every capability, process, and step declaration
func (c *Catalog) Validate() error {
	for _, cd := range c.Capabilities {
		if cd.Namespace == "" || cd.Name == "" || cd.Endpoint == "" {
			return fmt.Errorf("%w: %s/%s",
				ErrCatalogCapability, cd.Namespace, cd.Name,
			)
		}
	}

	seen := util.Set[string]{}
	for _, proc := range c.Processes {
		if proc.ID == "" {
			return ErrCatalogProcessID
		}
		if seen.Contains(proc.ID) {
			return fmt.Errorf("%w: %s", ErrCatalogDuplicate, proc.ID)
		}
		seen.Add(proc.ID)

		for _, step := range proc.Steps {
			if err := step.validate(); err != nil {
				return fmt.Errorf("process %s: %w", proc.ID, err)
			}
		}
	}
	return nil
}

// Find returns the process definition with the given ID
func (c *Catalog) Find(id string) (*ProcessDef, bool) {
	for _, proc := range c.Processes {
		if proc.ID == id {
			return proc, true
		}
	}
	return nil, false
}

func (d *StepDef) validate() error {
	if d.Name == "" {
		return ErrCatalogStepName
	}
	if !validStepKinds.Contains(d.Kind) {
		return fmt.Errorf("%w: %s", ErrCatalogStepKind, d.Kind)
	}

	switch d.Kind {
	case StepKindCapability:
		if d.Namespace == "" || d.Capability == "" {
			return fmt.Errorf("%w: %s", ErrCatalogCapRef, d.Name)
		}
	case StepKindScript:
		if d.Language == "" || d.Script == "" {
			return fmt.Errorf("%w: %s", ErrCatalogScript, d.Name)
		}
	case StepKindExtract:
		if d.Source == "" {
			return fmt.Errorf("%w: %s", ErrCatalogExtract, d.Name)
		}
	}
	return nil
}
