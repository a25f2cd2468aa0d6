package stepwise

import (
	"log/slog"

	"github.com/kode4food/paisley/pkg/log"
	"github.com/kode4food/paisley/pkg/script"
)

// ScriptPredicate compiles a script-backed goal predicate. The script
// receives the step output as its single "output" argument and must return
// a boolean. Evaluation errors are treated as not-achieved, keeping the
// predicate conservative
func ScriptPredicate(
	env script.Env, id, source string,
) (Predicate, error) {
	compiled, err := env.Compile(id, source, []string{"output"})
	if err != nil {
		return nil, err
	}

	return func(output string) bool {
		ok, err := env.EvaluatePredicate(compiled, map[string]any{
			"output": output,
		})
		if err != nil {
			slog.Warn("Goal predicate evaluation failed",
				log.StepID(id),
				log.Error(err))
			return false
		}
		return ok
	}, nil
}
