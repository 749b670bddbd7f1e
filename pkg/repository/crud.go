package repository

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/getmockd/stubd/internal/storage"
	"github.com/getmockd/stubd/pkg/stub"
	"github.com/getmockd/stubd/pkg/template"
)

// ExternalFile is a file backing a stubbed request or response body.
type ExternalFile struct {
	Path    string
	ModTime time.Time
}

// Stubs returns the stubs in definition order.
func (r *Repository) Stubs() []*stub.Lifecycle {
	snap := r.store.Load()
	out := make([]*stub.Lifecycle, snap.Len())
	for i, e := range snap.Entries() {
		out[i] = e.Lifecycle
	}
	return out
}

// Len returns the number of stubs.
func (r *Repository) Len() int {
	return r.store.Load().Len()
}

// ProxyConfigs returns the loaded proxy configs keyed by UUID.
func (r *Repository) ProxyConfigs() map[string]*stub.ProxyConfig {
	src := r.store.Load().Proxies()
	out := make(map[string]*stub.ProxyConfig, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

// StubByIndex returns the stub at index i.
func (r *Repository) StubByIndex(i int) (*stub.Lifecycle, error) {
	snap := r.store.Load()
	if err := checkIndex(snap, i); err != nil {
		return nil, err
	}
	return snap.At(i).Lifecycle, nil
}

// StubByUUID returns the stub with UUID u and its index.
func (r *Repository) StubByUUID(u string) (*stub.Lifecycle, int, error) {
	snap := r.store.Load()
	i, ok := snap.IndexOf(u)
	if !ok {
		return nil, -1, &UUIDError{UUID: u}
	}
	return snap.At(i).Lifecycle, i, nil
}

// CanMatchStubByUUID reports whether a stub with UUID u is loaded.
func (r *Repository) CanMatchStubByUUID(u string) bool {
	_, ok := r.store.Load().IndexOf(u)
	return ok
}

// StubYAMLByIndex returns the configuration snippet of the stub at index i.
func (r *Repository) StubYAMLByIndex(i int) (string, error) {
	l, err := r.StubByIndex(i)
	if err != nil {
		return "", err
	}
	return l.YAML(), nil
}

// YAML returns the configuration snippets of all stubs, in order.
func (r *Repository) YAML() string {
	var sb strings.Builder
	for _, l := range r.Stubs() {
		y := l.YAML()
		if y == "" {
			continue
		}
		sb.WriteString(y)
		if !strings.HasSuffix(y, "\n") {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// Append adds stubs at the end of the collection.
func (r *Repository) Append(stubs ...*stub.Lifecycle) error {
	entries := make([]*storage.Entry, len(stubs))
	for i, l := range stubs {
		entries[i] = storage.NewEntry(l)
	}
	if err := r.update(func(cur *storage.Snapshot) (*storage.Snapshot, error) {
		return cur.Appending(entries...)
	}); err != nil {
		return err
	}
	r.precompile(stubs)
	return nil
}

// DeleteByIndex removes the stub at index i. Every later stub's resource ID
// drops by one.
func (r *Repository) DeleteByIndex(i int) (*stub.Lifecycle, error) {
	var removed *stub.Lifecycle
	err := r.update(func(cur *storage.Snapshot) (*storage.Snapshot, error) {
		if err := checkIndex(cur, i); err != nil {
			return nil, err
		}
		removed = cur.At(i).Lifecycle
		return cur.Without(i)
	})
	return removed, err
}

// DeleteByUUID removes the stub with UUID u.
func (r *Repository) DeleteByUUID(u string) (*stub.Lifecycle, error) {
	var removed *stub.Lifecycle
	err := r.update(func(cur *storage.Snapshot) (*storage.Snapshot, error) {
		i, ok := cur.IndexOf(u)
		if !ok {
			return nil, &UUIDError{UUID: u}
		}
		removed = cur.At(i).Lifecycle
		return cur.Without(i)
	})
	return removed, err
}

// DeleteAll removes every stub. Proxy configs stay loaded.
func (r *Repository) DeleteAll() error {
	return r.update(func(cur *storage.Snapshot) (*storage.Snapshot, error) {
		return cur.Cleared(), nil
	})
}

// UpdateByIndex replaces the stub at index i, keeping its position. The
// replacement starts its sequence from the first response.
func (r *Repository) UpdateByIndex(i int, l *stub.Lifecycle) error {
	if err := r.update(func(cur *storage.Snapshot) (*storage.Snapshot, error) {
		if err := checkIndex(cur, i); err != nil {
			return nil, err
		}
		return cur.Replacing(i, storage.NewEntry(l))
	}); err != nil {
		return err
	}
	r.precompile([]*stub.Lifecycle{l})
	return nil
}

// UpdateByUUID replaces the stub with UUID u, keeping its position. When the
// replacement carries another UUID, the old one is no longer known.
func (r *Repository) UpdateByUUID(u string, l *stub.Lifecycle) error {
	if err := r.update(func(cur *storage.Snapshot) (*storage.Snapshot, error) {
		i, ok := cur.IndexOf(u)
		if !ok {
			return nil, &UUIDError{UUID: u}
		}
		return cur.Replacing(i, storage.NewEntry(l))
	}); err != nil {
		return err
	}
	r.precompile([]*stub.Lifecycle{l})
	return nil
}

// ExternalFiles returns every file backing a stubbed request body or any
// response of any sequence, de-duplicated by path. Templated paths are
// skipped since they name no single file.
func (r *Repository) ExternalFiles() []ExternalFile {
	seen := map[string]bool{}
	var out []ExternalFile
	add := func(path string) {
		if path == "" || template.IsTemplated(path) {
			return
		}
		path = filepath.Clean(path)
		if seen[path] {
			return
		}
		seen[path] = true
		f := ExternalFile{Path: path}
		if fi, err := os.Stat(path); err == nil {
			f.ModTime = fi.ModTime()
		}
		out = append(out, f)
	}
	for _, l := range r.Stubs() {
		add(l.Request().FilePath())
		for _, resp := range l.Responses() {
			add(resp.FilePath())
		}
	}
	return out
}

func checkIndex(snap *storage.Snapshot, i int) error {
	if i < 0 || i >= snap.Len() {
		return &IndexError{Index: i, Size: snap.Len()}
	}
	return nil
}
