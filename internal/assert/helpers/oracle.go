package helpers

import (
	"context"
	"sync"

	"github.com/kode4food/paisley/pkg/api"
)

// StaticOracle replays a scripted sequence of decisions and records every
// request it receives
type StaticOracle struct {
	decisions []*api.Decision
	requests  []*api.OracleRequest
	err       error
	mu        sync.Mutex
}

// NewStaticOracle creates an oracle that answers with the given decisions
// in order
func NewStaticOracle(decisions ...*api.Decision) *StaticOracle {
	return &StaticOracle{
		decisions: decisions,
	}
}

// NewFailingOracle creates an oracle whose every decision fails with err
func NewFailingOracle(err error) *StaticOracle {
	return &StaticOracle{
		err: err,
	}
}

func (o *StaticOracle) Decide(
	_ context.Context, req *api.OracleRequest,
) (*api.Decision, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.requests = append(o.requests, req)
	if o.err != nil {
		return nil, o.err
	}
	if len(o.decisions) == 0 {
		return nil, ErrNoMoreDecisions
	}

	next := o.decisions[0]
	o.decisions = o.decisions[1:]
	return next, nil
}

// Requests returns the recorded oracle requests in order
func (o *StaticOracle) Requests() []*api.OracleRequest {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]*api.OracleRequest{}, o.requests...)
}
