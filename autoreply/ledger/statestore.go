package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"
)

// State is the persisted cooldown state: reply timestamps within the
// trailing window plus the time of the most recent reply. Entries older
// than the window are pruned lazily on read, never eagerly.
type State struct {
	ReplyTimes []time.Time `json:"replyTimes"`
	LastReply  time.Time   `json:"lastReply"`
}

// Pruned returns a copy of the state with entries at or older than
// now-window dropped.
func (s State) Pruned(now time.Time, window time.Duration) State {
	cutoff := now.Add(-window)
	kept := make([]time.Time, 0, len(s.ReplyTimes))
	for _, t := range s.ReplyTimes {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	s.ReplyTimes = kept
	return s
}

func (s State) clone() State {
	s.ReplyTimes = slices.Clone(s.ReplyTimes)
	return s
}

func decodeState(raw []byte) (State, error) {
	var st State
	if len(raw) == 0 {
		return st, nil
	}
	if err := json.Unmarshal(raw, &st); err != nil {
		return State{}, fmt.Errorf("decoding cooldown state: %w", err)
	}
	return st, nil
}

// StateStore persists the one process-wide cooldown state.
type StateStore interface {
	// Get returns the current state, zero state when none exists yet.
	Get(ctx context.Context) (State, error)
	// Update applies fn to the current state and persists the result as a
	// single atomic read-modify-write. Concurrent updates are serialized;
	// an error from fn aborts the write and is returned unwrapped.
	Update(ctx context.Context, fn func(State) (State, error)) error
}

// MemStateStore keeps state in memory, for tests and single-run tooling.
// Durable deployments use the gorm or redis store.
type MemStateStore struct {
	mu    sync.Mutex
	state State
}

func NewMemStateStore() *MemStateStore {
	return &MemStateStore{}
}

func (s *MemStateStore) Get(ctx context.Context) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone(), nil
}

func (s *MemStateStore) Update(ctx context.Context, fn func(State) (State, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := fn(s.state.clone())
	if err != nil {
		return err
	}
	s.state = next
	return nil
}
