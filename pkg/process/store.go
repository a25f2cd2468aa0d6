package process

import (
	"context"
	"fmt"
	"sync"

	"github.com/kode4food/paisley/pkg/api"
)

type (
	// Store persists the execution context of suspended runs. A paused run
	// may remain suspended for minutes to days, so real deployments need a
	// durable implementation; MemoryStore exists for tests and development
	Store interface {
		Save(ctx context.Context, id api.RunID, state *api.State) error
		Load(ctx context.Context, id api.RunID) (*api.State, error)
		Delete(ctx context.Context, id api.RunID) error
		List(ctx context.Context) ([]api.RunID, error)
	}

	// MemoryStore holds suspended runs in process memory. Snapshots are
	// stored serialized so Load round-trips exactly like the durable stores
	MemoryStore struct {
		runs map[api.RunID][]byte
		mu   sync.RWMutex
	}
)

// NewMemoryStore creates an in-memory suspended-run store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		runs: map[api.RunID][]byte{},
	}
}

func (s *MemoryStore) Save(
	_ context.Context, id api.RunID, state *api.State,
) error {
	data, err := state.Snapshot()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[id] = data
	return nil
}

func (s *MemoryStore) Load(
	_ context.Context, id api.RunID,
) (*api.State, error) {
	s.mu.RLock()
	data, ok := s.runs[id]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: run %s", api.ErrNotFound, id)
	}
	return api.RestoreState(data)
}

func (s *MemoryStore) Delete(_ context.Context, id api.RunID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.runs, id)
	return nil
}

func (s *MemoryStore) List(_ context.Context) ([]api.RunID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]api.RunID, 0, len(s.runs))
	for id := range s.runs {
		ids = append(ids, id)
	}
	return ids, nil
}
