package server

import (
	"github.com/kode4food/paisley/internal/config"
	"github.com/kode4food/paisley/pkg/api"
	"github.com/kode4food/paisley/pkg/process"
)

// buildProcess materializes a catalog definition into a runnable process,
// binding each step with its declared failure mode
func (s *Server) buildProcess(def *config.ProcessDef) (*process.Process, error) {
	steps := make([]process.BoundStep, 0, len(def.Steps))
	for _, sd := range def.Steps {
		step, err := s.buildStep(sd)
		if err != nil {
			return nil, err
		}
		steps = append(steps, process.BoundStep{
			Step:      step,
			OnFailure: process.FailureMode(sd.OnFailure),
		})
	}

	return &process.Process{
		ID:          def.ID,
		Description: def.Description,
		Steps:       steps,
	}, nil
}

func (s *Server) buildStep(sd *config.StepDef) (api.Step, error) {
	switch sd.Kind {
	case config.StepKindApproval:
		return process.NewApprovalStep(
			sd.Name, sd.Description, sd.Prompt,
		), nil

	case config.StepKindScript:
		env, err := s.scripts.Get(sd.Language)
		if err != nil {
			return nil, err
		}
		inputs := make([]api.Name, len(sd.Inputs))
		for i, input := range sd.Inputs {
			inputs[i] = api.Name(input)
		}
		return process.NewScriptStep(
			sd.Name, sd.Description, env, sd.Script, inputs,
		), nil

	case config.StepKindExtract:
		return process.NewExtractStep(
			sd.Name, sd.Description, sd.Instruction,
			api.Name(sd.Source), s.oracle,
		), nil

	default:
		args := make(map[api.Name]string, len(sd.Args))
		for name, value := range sd.Args {
			args[api.Name(name)] = value
		}
		return process.NewCapabilityStep(
			sd.Name, sd.Description,
			api.Ref{Namespace: sd.Namespace, Name: sd.Capability},
			args,
		), nil
	}
}
