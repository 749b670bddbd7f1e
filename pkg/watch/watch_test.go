package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startWatcher(t *testing.T, files FileLister, reload ReloadFunc) *Watcher {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	w := New(files, reload, WithDebounce(20*time.Millisecond))
	require.NoError(t, w.Start(ctx))
	t.Cleanup(func() {
		cancel()
		<-w.Done()
	})
	return w
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stubs.yaml")
	require.NoError(t, os.WriteFile(path, []byte("[]"), 0o600))

	var reloads atomic.Int32
	startWatcher(t, func() []string { return []string{path} }, func(context.Context) error {
		reloads.Add(1)
		return nil
	})

	require.NoError(t, os.WriteFile(path, []byte("- request:\n    url: /a\n"), 0o600))

	assert.Eventually(t, func() bool { return reloads.Load() >= 1 }, 5*time.Second, 10*time.Millisecond)
}

func TestWatcher_DebouncesBursts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stubs.yaml")
	require.NoError(t, os.WriteFile(path, []byte("[]"), 0o600))

	var reloads atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	w := New(func() []string { return []string{path} }, func(context.Context) error {
		reloads.Add(1)
		return nil
	}, WithDebounce(300*time.Millisecond))
	require.NoError(t, w.Start(ctx))
	defer func() {
		cancel()
		<-w.Done()
	}()

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte("[] # edit"), 0o600))
		time.Sleep(10 * time.Millisecond)
	}

	assert.Eventually(t, func() bool { return reloads.Load() == 1 }, 5*time.Second, 10*time.Millisecond)
	time.Sleep(400 * time.Millisecond)
	assert.Equal(t, int32(1), reloads.Load())
}

func TestWatcher_IgnoresUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stubs.yaml")
	require.NoError(t, os.WriteFile(path, []byte("[]"), 0o600))

	var reloads atomic.Int32
	startWatcher(t, func() []string { return []string{path} }, func(context.Context) error {
		reloads.Add(1)
		return nil
	})

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hello"), 0o600))

	assert.Never(t, func() bool { return reloads.Load() > 0 }, 200*time.Millisecond, 10*time.Millisecond)
}

func TestWatcher_PicksUpNewFilesAfterReload(t *testing.T) {
	dir := t.TempDir()
	main := filepath.Join(dir, "stubs.yaml")
	sub := filepath.Join(dir, "body", "b.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(sub), 0o755))
	require.NoError(t, os.WriteFile(main, []byte("[]"), 0o600))
	require.NoError(t, os.WriteFile(sub, []byte("{}"), 0o600))

	var files atomic.Value
	files.Store([]string{main})
	var reloads atomic.Int32
	startWatcher(t, func() []string { return files.Load().([]string) }, func(context.Context) error {
		files.Store([]string{main, sub})
		reloads.Add(1)
		return nil
	})

	require.NoError(t, os.WriteFile(main, []byte("[] # includes b"), 0o600))
	require.Eventually(t, func() bool { return reloads.Load() == 1 }, 5*time.Second, 10*time.Millisecond)

	// Allow the watch on the new directory to be installed.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(sub, []byte(`{"changed":true}`), 0o600))
	assert.Eventually(t, func() bool { return reloads.Load() >= 2 }, 5*time.Second, 10*time.Millisecond)
}

func TestWatcher_KeepsRunningAfterFailedReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stubs.yaml")
	require.NoError(t, os.WriteFile(path, []byte("[]"), 0o600))

	var reloads atomic.Int32
	startWatcher(t, func() []string { return []string{path} }, func(context.Context) error {
		reloads.Add(1)
		return errors.New("broken yaml")
	})

	require.NoError(t, os.WriteFile(path, []byte("- ["), 0o600))
	require.Eventually(t, func() bool { return reloads.Load() == 1 }, 5*time.Second, 10*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("[]"), 0o600))
	assert.Eventually(t, func() bool { return reloads.Load() >= 2 }, 5*time.Second, 10*time.Millisecond)
}

func TestWatcher_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	w := New(func() []string { return nil }, func(context.Context) error { return nil })
	require.NoError(t, w.Start(ctx))

	cancel()
	select {
	case <-w.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
