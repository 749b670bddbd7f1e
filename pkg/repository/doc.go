// Package repository is the authoritative, concurrently accessed stub
// collection.
//
// The stubs listener calls Search for every incoming request while the admin
// listener inspects and mutates the collection through the CRUD methods.
// Both sides work on immutable snapshots (see internal/storage): Search
// loads the current snapshot without locking, and every mutation publishes a
// new one, so a reader never pairs a stub list with a UUID index from another
// generation.
//
// # Search
//
// Stubs are scanned in definition order and the first match wins. A matched
// stub may still yield an Unauthorized result when its authorization
// requirement is not met. Otherwise the next response of the stub's sequence
// is selected, recorded from its origin when its body is an http(s) URL, and
// rendered with the tokens captured during matching. Unmatched requests are
// forwarded to a proxy config when one is loaded, and answered 404 otherwise.
//
// # Resource IDs
//
// A stub's resource ID is its current index. It is stamped into every
// rendered response under the x-stubby-resource-id header, so deletions and
// insertions shift it for every stub after the mutation point.
//
// # Errors
//
// CRUD methods return *IndexError (wrapping ErrInvalidIndex) for out-of-range
// indexes and *UUIDError (wrapping ErrUnknownUUID) for unknown UUIDs. Both
// carry StatusCode and Hint for the admin layer.
package repository
