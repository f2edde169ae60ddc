// Package snapshot holds the currently published article snapshot.
package snapshot

import (
	"sync/atomic"

	"github.com/samvad-hq/samvad-news-snapshot/internal/domain"
)

// Store is a single-slot holder for the latest complete snapshot. Publish
// replaces the slot atomically; readers never block and never see a partially
// built value. The zero value is ready to use and reports "not yet available".
type Store struct {
	current atomic.Pointer[domain.Snapshot]
}

// NewStore returns an empty store.
func NewStore() *Store { return &Store{} }

// Publish makes snap the visible snapshot. A nil snapshot is ignored.
func (s *Store) Publish(snap *domain.Snapshot) {
	if snap == nil {
		return
	}
	s.current.Store(snap)
}

// Current returns the visible snapshot; ok is false before the first publish.
func (s *Store) Current() (snap *domain.Snapshot, ok bool) {
	snap = s.current.Load()
	return snap, snap != nil
}

// Ready reports whether a snapshot has been published.
func (s *Store) Ready() bool {
	return s.current.Load() != nil
}
