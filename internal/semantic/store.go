package semantic

import (
	"sync/atomic"
	"time"
)

// Store holds the index snapshot served to readers. Readers call Current
// without locking; a reload swaps in a complete new snapshot.
type Store struct {
	current  atomic.Pointer[Index]
	loadedAt atomic.Int64
}

// NewStore returns a store holding an empty snapshot.
func NewStore() *Store {
	s := &Store{}
	s.current.Store(NewIndex(nil))
	return s
}

// Current returns the active snapshot. Never nil.
func (s *Store) Current() *Index {
	return s.current.Load()
}

// Swap installs idx as the active snapshot. A nil idx installs an empty one.
func (s *Store) Swap(idx *Index) {
	if idx == nil {
		idx = NewIndex(nil)
	}
	s.current.Store(idx)
	s.loadedAt.Store(time.Now().UnixMilli())
}

// LoadedAt returns when the last snapshot was installed, or zero time.
func (s *Store) LoadedAt() time.Time {
	ms := s.loadedAt.Load()
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

// LoadFile reads the artifact at path and installs it. On failure the
// current snapshot stays in place and the error is returned.
func (s *Store) LoadFile(path string) error {
	idx, err := Load(path)
	if err != nil {
		return err
	}
	s.Swap(idx)
	return nil
}
