// Package memory provides an in-process snapshot store used by tests and
// ephemeral deployments.
package memory

import (
	"context"
	"sync"

	"dorkroom/pkg/domain"
)

var _ domain.SnapshotStore = (*Store)(nil)

// Store keeps a private copy of the last saved snapshot.
type Store struct {
	mu   sync.RWMutex
	snap *domain.Snapshot
}

// NewStore constructs a store seeded with initial, which may be nil.
func NewStore(initial *domain.Snapshot) *Store {
	return &Store{snap: initial.Clone()}
}

// Load returns a copy of the stored snapshot.
func (s *Store) Load(ctx context.Context) (*domain.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Clone(), nil
}

// Save replaces the stored snapshot with a copy of snap.
func (s *Store) Save(ctx context.Context, snap *domain.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cp := snap.Clone()
	s.mu.Lock()
	s.snap = cp
	s.mu.Unlock()
	return nil
}
