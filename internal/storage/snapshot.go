package storage

import (
	"errors"
	"slices"
	"sync/atomic"

	"github.com/getmockd/stubd/pkg/stub"
)

// ErrDuplicateUUID is returned when two stubs in one snapshot share a UUID.
var ErrDuplicateUUID = errors.New("duplicate stub uuid")

// Entry is one stub with its mutable counters.
type Entry struct {
	Lifecycle *stub.Lifecycle

	cursor atomic.Uint64
	hits   atomic.Int64
}

// NewEntry wraps a stub with fresh counters.
func NewEntry(l *stub.Lifecycle) *Entry {
	return &Entry{Lifecycle: l}
}

// Next returns the response for this hit and advances the sequence cursor.
// Concurrent callers each get a distinct cursor value.
func (e *Entry) Next() *stub.Response {
	return e.Lifecycle.ResponseAt(e.cursor.Add(1) - 1)
}

// Hit increments the hit counter.
func (e *Entry) Hit() int64 {
	return e.hits.Add(1)
}

// Hits returns the hit counter.
func (e *Entry) Hits() int64 {
	return e.hits.Load()
}

// Snapshot is one immutable generation of the collection.
type Snapshot struct {
	gen     uint64
	entries []*Entry
	byUUID  map[string]int
	proxies map[string]*stub.ProxyConfig
}

// Empty returns a generation-zero snapshot.
func Empty() *Snapshot {
	return &Snapshot{byUUID: map[string]int{}, proxies: map[string]*stub.ProxyConfig{}}
}

// NewSnapshot builds a snapshot from entries. It fails on duplicate UUIDs.
func NewSnapshot(gen uint64, entries []*Entry, proxies map[string]*stub.ProxyConfig) (*Snapshot, error) {
	s := &Snapshot{
		gen:     gen,
		entries: entries,
		byUUID:  make(map[string]int, len(entries)),
		proxies: proxies,
	}
	if s.proxies == nil {
		s.proxies = map[string]*stub.ProxyConfig{}
	}
	for i, e := range entries {
		u := e.Lifecycle.UUID()
		if _, dup := s.byUUID[u]; dup {
			return nil, &DuplicateError{UUID: u}
		}
		s.byUUID[u] = i
	}
	return s, nil
}

// DuplicateError reports a UUID used by more than one stub.
type DuplicateError struct {
	UUID string
}

func (e *DuplicateError) Error() string {
	return "duplicate stub uuid " + e.UUID
}

func (e *DuplicateError) Unwrap() error {
	return ErrDuplicateUUID
}

// Generation identifies the snapshot. It grows with every published update.
func (s *Snapshot) Generation() uint64 { return s.gen }

// Len returns the number of stubs.
func (s *Snapshot) Len() int { return len(s.entries) }

// At returns the entry at index i. The index must be valid.
func (s *Snapshot) At(i int) *Entry { return s.entries[i] }

// Entries returns the entries in definition order.
func (s *Snapshot) Entries() []*Entry { return s.entries }

// IndexOf returns the index of the stub with UUID u.
func (s *Snapshot) IndexOf(u string) (int, bool) {
	i, ok := s.byUUID[u]
	return i, ok
}

// Proxy returns the proxy config with UUID u.
func (s *Snapshot) Proxy(u string) (*stub.ProxyConfig, bool) {
	p, ok := s.proxies[u]
	return p, ok
}

// Proxies returns the proxy configs keyed by UUID.
func (s *Snapshot) Proxies() map[string]*stub.ProxyConfig { return s.proxies }

// Without returns the next generation with index i removed.
func (s *Snapshot) Without(i int) (*Snapshot, error) {
	return NewSnapshot(s.gen+1, slices.Delete(slices.Clone(s.entries), i, i+1), s.proxies)
}

// Replacing returns the next generation with index i replaced by e.
func (s *Snapshot) Replacing(i int, e *Entry) (*Snapshot, error) {
	entries := slices.Clone(s.entries)
	entries[i] = e
	return NewSnapshot(s.gen+1, entries, s.proxies)
}

// Appending returns the next generation with es added at the end.
func (s *Snapshot) Appending(es ...*Entry) (*Snapshot, error) {
	return NewSnapshot(s.gen+1, append(slices.Clone(s.entries), es...), s.proxies)
}

// Cleared returns the next generation without stubs. Proxy configs are kept.
func (s *Snapshot) Cleared() *Snapshot {
	next, _ := NewSnapshot(s.gen+1, nil, s.proxies)
	return next
}
