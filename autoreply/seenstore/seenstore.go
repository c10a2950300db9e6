// Package seenstore tracks which posts have already been fully handled,
// enforcing at-most-once processing. The set only grows; cleanup of ancient
// entries is left to external retention jobs.
package seenstore

import (
	"context"

	"github.com/puzpuzpuz/xsync/v3"
)

type SeenStore interface {
	IsSeen(ctx context.Context, id string) (bool, error)
	// MarkSeen is idempotent; marking an id twice is harmless.
	MarkSeen(ctx context.Context, id string) error
}

// MemSeenStore keeps the set in memory, for tests and single-run tooling.
type MemSeenStore struct {
	seen *xsync.MapOf[string, struct{}]
}

func NewMemSeenStore() *MemSeenStore {
	return &MemSeenStore{
		seen: xsync.NewMapOf[string, struct{}](),
	}
}

func (s *MemSeenStore) IsSeen(ctx context.Context, id string) (bool, error) {
	_, ok := s.seen.Load(id)
	return ok, nil
}

func (s *MemSeenStore) MarkSeen(ctx context.Context, id string) error {
	s.seen.Store(id, struct{}{})
	return nil
}

// Size is a test helper.
func (s *MemSeenStore) Size() int {
	return s.seen.Size()
}
