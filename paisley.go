// Package paisley is a goal-directed workflow orchestration engine. It
// executes static plans, pursues goals stepwise through a decision oracle,
// runs pausable processes that suspend awaiting external input, and routes
// conversations among autonomous workers via handoff rules
package paisley

const (
	// Name is the application name used in logs and server responses
	Name = "paisley"

	// Version is the application version
	Version = "0.1.0"
)
