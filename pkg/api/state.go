package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"reflect"
	"slices"
)

// State is the mutable execution context threaded through every step of a
// run. It is exclusively owned by the runner that created it until the run
// pauses or terminates; concurrent mutation is outside its contract. The
// Cursor records the index of the step the owning runner will execute next,
// so a paused run can be resumed where it left off
type State struct {
	Values map[Name]any `json:"values"`
	Cursor int          `json:"cursor"`
}

var (
	ErrSnapshotState = errors.New("failed to snapshot state")
	ErrRestoreState  = errors.New("failed to restore state")
)

// NewState creates an empty execution context
func NewState() *State {
	return &State{
		Values: map[Name]any{},
	}
}

// Set stores a value under the given key, replacing any prior value
func (s *State) Set(name Name, value any) {
	if s.Values == nil {
		s.Values = map[Name]any{}
	}
	s.Values[name] = value
}

// Get retrieves the raw value stored under the given key
func (s *State) Get(name Name) (any, bool) {
	val, ok := s.Values[name]
	return val, ok
}

// Delete removes a key from the context. Only the step that owns a key
// should remove it mid-run
func (s *State) Delete(name Name) {
	delete(s.Values, name)
}

// Keys returns the context keys in sorted order
func (s *State) Keys() []Name {
	keys := make([]Name, 0, len(s.Values))
	for k := range s.Values {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// GetString retrieves a string value, returning defaultValue if not found.
// Non-string values are rendered with fmt.Sprintf so numeric context
// entries remain addressable as capability arguments
func (s *State) GetString(name Name, defaultValue string) string {
	val, ok := s.Values[name]
	if !ok {
		return defaultValue
	}
	if str, ok := val.(string); ok {
		return str
	}
	return fmt.Sprintf("%v", val)
}

// GetBool retrieves a boolean value, returning defaultValue if not found or
// wrong type
func (s *State) GetBool(name Name, defaultValue bool) bool {
	val, ok := s.Values[name]
	if !ok {
		return defaultValue
	}
	b, ok := val.(bool)
	if !ok {
		return defaultValue
	}
	return b
}

// GetInt retrieves an integer value, returning defaultValue if not found or
// wrong type. Supports both int and float64 (converting from JSON numbers
// after a snapshot round-trip)
func (s *State) GetInt(name Name, defaultValue int) int {
	val, ok := s.Values[name]
	if !ok {
		return defaultValue
	}
	if i, ok := val.(int); ok {
		return i
	}
	if f, ok := val.(float64); ok {
		return int(f)
	}
	return defaultValue
}

// GetFloat retrieves a float value, returning defaultValue if not found or
// wrong type
func (s *State) GetFloat(name Name, defaultValue float64) float64 {
	val, ok := s.Values[name]
	if !ok {
		return defaultValue
	}
	switch v := val.(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return defaultValue
}

// Clone returns a shallow copy of the context. Parallel branches must each
// receive their own clone and merge results explicitly
func (s *State) Clone() *State {
	return &State{
		Values: maps.Clone(s.Values),
		Cursor: s.Cursor,
	}
}

// Snapshot serializes the context for durable storage across a
// suspend/resume boundary
func (s *State) Snapshot() ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSnapshotState, err)
	}
	return data, nil
}

// RestoreState reconstructs a context from a Snapshot. The round-trip
// preserves every key/value entry and the cursor; numeric values normalize
// to JSON numbers, which the typed getters absorb
func RestoreState(data []byte) (*State, error) {
	res := NewState()
	if err := json.Unmarshal(data, res); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRestoreState, err)
	}
	if res.Values == nil {
		res.Values = map[Name]any{}
	}
	return res, nil
}

// Equal reports whether two contexts hold the same entries and cursor
func (s *State) Equal(other *State) bool {
	if s == nil || other == nil {
		return s == other
	}
	if s.Cursor != other.Cursor {
		return false
	}
	return reflect.DeepEqual(s.Values, other.Values)
}
