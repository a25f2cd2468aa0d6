// Package handoff routes a running conversation among a set of autonomous
// workers. A worker signals a transfer by emitting a marker token followed
// by a condition keyword; the orchestrator resolves the keyword against a
// rule table and moves control to the matching target
package handoff

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kode4food/paisley/pkg/api"
	"github.com/kode4food/paisley/pkg/log"
)

type (
	// Rule routes control from one worker to another when the keyword
	// following the handoff marker contains the trigger condition
	Rule struct {
		From        string `json:"from"`
		To          string `json:"to"`
		Condition   string `json:"condition"`
		Description string `json:"description,omitempty"`
	}

	// Config describes a handoff topology. Every worker referenced by
	// Initial or by any rule must exist in the supplied worker set;
	// violations are configuration errors raised before any run starts
	Config struct {
		Initial       string        `json:"initial"`
		Rules         []Rule        `json:"rules"`
		MaxHandoffs   int           `json:"max_handoffs,omitempty"`
		AnnounceRules bool          `json:"announce_rules,omitempty"`
		Budget        time.Duration `json:"budget,omitempty"`
	}

	// Orchestrator executes a conversation over a single mutable
	// current-worker pointer
	Orchestrator struct {
		workers  map[string]api.Worker
		cfg      Config
		logger   *slog.Logger
		observer api.Observer
	}

	// Option configures an Orchestrator
	Option func(*Orchestrator)
)

const (
	// Marker is the token workers emit to request a handoff
	Marker = "HANDOFF:"

	// DefaultMaxHandoffs bounds handoff transitions per run. The bound
	// exists specifically to break cycles created by two workers handing
	// off to each other indefinitely
	DefaultMaxHandoffs = 10
)

var (
	ErrNoWorkers       = errors.New("no workers supplied")
	ErrInitialEmpty    = errors.New("initial worker empty")
	ErrUnknownWorker   = errors.New("rule references unknown worker")
	ErrDuplicateWorker = errors.New("duplicate worker ID")
	ErrConditionEmpty  = errors.New("rule condition empty")
)

// WithLogger sets the logger used for routing diagnostics
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithObserver streams trace events to the given observer
func WithObserver(observer api.Observer) Option {
	return func(o *Orchestrator) {
		o.observer = observer
	}
}

// New creates an orchestrator over the given worker set, validating every
// worker reference in the configuration before any run starts
func New(
	workers []api.Worker, cfg Config, opts ...Option,
) (*Orchestrator, error) {
	if len(workers) == 0 {
		return nil, configErr(ErrNoWorkers)
	}
	if cfg.Initial == "" {
		return nil, configErr(ErrInitialEmpty)
	}
	if cfg.MaxHandoffs <= 0 {
		cfg.MaxHandoffs = DefaultMaxHandoffs
	}

	byID := make(map[string]api.Worker, len(workers))
	for _, worker := range workers {
		if _, ok := byID[worker.ID()]; ok {
			return nil, configErr(fmt.Errorf(
				"%w: %s", ErrDuplicateWorker, worker.ID(),
			))
		}
		byID[worker.ID()] = worker
	}

	if _, ok := byID[cfg.Initial]; !ok {
		return nil, configErr(fmt.Errorf(
			"%w: initial %s", ErrUnknownWorker, cfg.Initial,
		))
	}
	for _, rule := range cfg.Rules {
		if rule.Condition == "" {
			return nil, configErr(fmt.Errorf(
				"%w: %s -> %s", ErrConditionEmpty, rule.From, rule.To,
			))
		}
		for _, id := range []string{rule.From, rule.To} {
			if _, ok := byID[id]; !ok {
				return nil, configErr(fmt.Errorf(
					"%w: %s", ErrUnknownWorker, id,
				))
			}
		}
	}

	res := &Orchestrator{
		workers: byID,
		cfg:     cfg,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(res)
	}
	return res, nil
}

// Execute routes the input among the workers until an output carries no
// resolvable handoff, which makes that output final. Each worker receives
// the original input text, not the accumulated conversation; only the
// shared thread carries history. A worker invocation error is always
// fatal and surfaces as a Go error, since the failure may be systemic
// rather than worker-specific
func (o *Orchestrator) Execute(
	ctx context.Context, input string,
) (*api.Result, error) {
	trace := api.NewTrace(o.observer)
	current := o.cfg.Initial
	handoffs := 0

	var thread api.Thread
	deadline := time.Time{}
	if o.cfg.Budget > 0 {
		deadline = time.Now().Add(o.cfg.Budget)
	}

	for {
		if !deadline.IsZero() && time.Now().After(deadline) {
			result := api.Failed(api.ReasonTimeout, api.ErrTimeout, trace)
			result.Worker = current
			result.Handoffs = handoffs
			return result, nil
		}

		worker := o.workers[current]
		message := input
		if o.cfg.AnnounceRules {
			message = o.announce(current, input)
		}

		trace.Append(&api.TraceEvent{
			Kind:       api.EventFunctionCalled,
			Capability: "agent/" + current,
		})

		output, updated, err := worker.Invoke(ctx, thread, message)
		if err != nil {
			trace.Append(&api.TraceEvent{
				Kind:       api.EventFunctionCompleted,
				Capability: "agent/" + current,
				Error:      err.Error(),
			})
			o.logger.Error("Worker invocation failed",
				log.AgentID(current),
				log.Error(err))
			return nil, err
		}
		thread = updated

		trace.Append(&api.TraceEvent{
			Kind:       api.EventFunctionCompleted,
			Capability: "agent/" + current,
			Output:     output,
			Success:    true,
		})

		rule, ok := o.route(current, output)
		if !ok {
			result := api.Succeeded(output, trace)
			result.Worker = current
			result.Handoffs = handoffs
			return result, nil
		}

		if handoffs >= o.cfg.MaxHandoffs {
			o.logger.Warn("Handoff limit reached",
				log.AgentID(current),
				slog.Int("handoffs", handoffs))
			result := api.Failed(
				api.ReasonHandoffLimit, api.ErrHandoffLimit, trace,
			)
			result.Worker = current
			result.Handoffs = handoffs
			return result, nil
		}

		trace.Append(&api.TraceEvent{
			Kind:      api.EventHandoffRouted,
			From:      rule.From,
			To:        rule.To,
			Condition: rule.Condition,
		})
		o.logger.Info("Handoff routed",
			log.AgentID(rule.From),
			slog.String("to", rule.To),
			slog.String("condition", rule.Condition))

		current = rule.To
		handoffs++
	}
}

// route scans the worker's output for the handoff marker and resolves the
// keyword after it against the rule table. Matching is a case-insensitive
// substring check on the keyword, kept as an explicit heuristic so it can
// be swapped for a stricter matcher without touching the state machine
func (o *Orchestrator) route(current, output string) (*Rule, bool) {
	keyword, ok := extractKeyword(output)
	if !ok {
		return nil, false
	}

	lowered := strings.ToLower(keyword)
	for i := range o.cfg.Rules {
		rule := &o.cfg.Rules[i]
		if rule.From != current {
			continue
		}
		if strings.Contains(lowered, strings.ToLower(rule.Condition)) {
			return rule, true
		}
	}
	return nil, false
}

// announce appends a block enumerating the handoff conditions available
// from the given worker
func (o *Orchestrator) announce(current, input string) string {
	var lines []string
	for _, rule := range o.cfg.Rules {
		if rule.From != current {
			continue
		}
		line := fmt.Sprintf("- %s%s", Marker, rule.Condition)
		if rule.Description != "" {
			line += " (" + rule.Description + ")"
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return input
	}

	return input + "\n\nTo transfer this conversation, end your reply with " +
		"one of:\n" + strings.Join(lines, "\n")
}

// extractKeyword returns the text following the handoff marker, up to the
// end of the line
func extractKeyword(output string) (string, bool) {
	idx := strings.Index(output, Marker)
	if idx < 0 {
		return "", false
	}

	rest := output[idx+len(Marker):]
	if end := strings.IndexByte(rest, '\n'); end >= 0 {
		rest = rest[:end]
	}
	keyword := strings.TrimSpace(rest)
	if keyword == "" {
		return "", false
	}
	return keyword, true
}

func configErr(err error) error {
	return fmt.Errorf("%w: %w", api.ErrConfiguration, err)
}
