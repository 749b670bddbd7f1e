// Package storage holds the stub collection as immutable, atomically swapped
// snapshots.
//
// A Snapshot pairs the ordered entry list with its UUID index and the proxy
// configs, so readers always see the three from one generation. Readers call
// Load and never block. Writers go through Update, which serializes them and
// publishes the snapshot returned by the mutation function.
//
// Key types:
//
//   - StubStore: the store contract used by the repository
//   - MemoryStore: the in-memory implementation
//   - Snapshot: one immutable generation of the collection
//   - Entry: a stub plus its sequence cursor and hit counter
//
// Entries are shared between generations. Deleting or inserting a stub
// produces a new Snapshot whose untouched entries keep their cursors and hit
// counters; position is never stored on the entry, it is the entry's index
// in the snapshot that holds it.
package storage
