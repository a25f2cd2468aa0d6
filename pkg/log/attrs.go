package log

import "log/slog"

func RunID[T ~string](id T) slog.Attr {
	return slog.String("run_id", string(id))
}

func PlanID[T ~string](id T) slog.Attr {
	return slog.String("plan_id", string(id))
}

func StepID[T ~string](id T) slog.Attr {
	return slog.String("step_id", string(id))
}

func AgentID[T ~string](id T) slog.Attr {
	return slog.String("agent_id", string(id))
}

func Capability[T ~string](ref T) slog.Attr {
	return slog.String("capability", string(ref))
}

func Status[T ~string](status T) slog.Attr {
	return slog.String("status", string(status))
}

func Goal(goal string) slog.Attr {
	return slog.String("goal", goal)
}

func Error(err error) slog.Attr {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return slog.String("error", msg)
}

func ErrorString(msg string) slog.Attr {
	return slog.String("error", msg)
}
