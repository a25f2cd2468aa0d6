// Package api defines the shared types of the paisley orchestration core:
// the execution context threaded through every step, the step and result
// taxonomy, static plans, run traces, and the contracts consumed from
// external collaborators (capability registries, decision oracles, and
// handoff workers)
package api
