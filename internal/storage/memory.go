package storage

import (
	"sync"
	"sync/atomic"

	"github.com/getmockd/stubd/pkg/stub"
)

// MemoryStore is a thread-safe in-memory implementation of StubStore.
type MemoryStore struct {
	mu  sync.Mutex
	cur atomic.Pointer[Snapshot]
}

var _ StubStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{}
	s.cur.Store(Empty())
	return s
}

// Load returns the current snapshot.
func (s *MemoryStore) Load() *Snapshot {
	return s.cur.Load()
}

// Update applies fn under the writer lock and publishes its result.
func (s *MemoryStore) Update(fn func(cur *Snapshot) (*Snapshot, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := fn(s.cur.Load())
	if err != nil {
		return err
	}
	s.cur.Store(next)
	return nil
}

// Replace publishes a snapshot built from c with fresh counters.
func (s *MemoryStore) Replace(c *stub.Collection) error {
	return s.Update(func(cur *Snapshot) (*Snapshot, error) {
		entries := make([]*Entry, len(c.Stubs))
		for i, l := range c.Stubs {
			entries[i] = NewEntry(l)
		}
		return NewSnapshot(cur.gen+1, entries, c.Proxies)
	})
}
