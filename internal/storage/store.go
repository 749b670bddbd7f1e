package storage

import (
	"github.com/getmockd/stubd/pkg/stub"
)

// StubStore defines the contract for storing the stub collection.
type StubStore interface {
	// Load returns the current snapshot. It never returns nil.
	Load() *Snapshot

	// Update applies fn to the current snapshot and publishes its result.
	// Nothing is published when fn returns an error.
	Update(fn func(cur *Snapshot) (*Snapshot, error)) error

	// Replace publishes a snapshot built from the collection.
	Replace(c *stub.Collection) error
}
