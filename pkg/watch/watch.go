// Package watch reloads the stub configuration when any file it was built
// from changes on disk.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/getmockd/stubd/pkg/logging"
)

// DefaultDebounce coalesces bursts of events, such as an editor writing a
// file in several steps.
const DefaultDebounce = 250 * time.Millisecond

// FileLister returns the files to watch. It is called again after every
// reload, since includes and body files may have changed.
type FileLister func() []string

// ReloadFunc rebuilds the stub collection. On error the current stubs stay
// in effect.
type ReloadFunc func(ctx context.Context) error

// Watcher triggers a reload when a watched file is written, created,
// renamed or removed.
type Watcher struct {
	files    FileLister
	reload   ReloadFunc
	debounce time.Duration
	log      *slog.Logger

	fw      *fsnotify.Watcher
	watched map[string]bool
	dirs    map[string]bool
	done    chan struct{}
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period before a reload.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(w *Watcher) {
		if log != nil {
			w.log = log
		}
	}
}

// New creates a Watcher.
func New(files FileLister, reload ReloadFunc, opts ...Option) *Watcher {
	w := &Watcher{
		files:    files,
		reload:   reload,
		debounce: DefaultDebounce,
		log:      logging.Nop(),
		watched:  map[string]bool{},
		dirs:     map[string]bool{},
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start installs the watches and handles events in the background until
// ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	w.fw = fw
	w.sync()
	go w.loop(ctx)
	return nil
}

// Done is closed once the watcher has stopped.
func (w *Watcher) Done() <-chan struct{} {
	return w.done
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.done)
	defer func() { _ = w.fw.Close() }()

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if ev.Op == fsnotify.Chmod || !w.watched[filepath.Clean(ev.Name)] {
				continue
			}
			w.log.Debug("configuration file changed", "file", ev.Name, "op", ev.Op.String())
			timer.Reset(w.debounce)
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.log.Warn("file watcher error", "error", err)
		case <-timer.C:
			if err := w.reload(ctx); err != nil {
				w.log.Error("reload failed, keeping current stubs", "error", err)
			} else {
				w.log.Info("configuration reloaded")
			}
			w.sync()
		}
	}
}

// sync points the watches at the directories of the current file set.
// Directories are watched instead of files so that atomic saves, which
// replace the file, are seen.
func (w *Watcher) sync() {
	watched := map[string]bool{}
	dirs := map[string]bool{}
	for _, f := range w.files() {
		abs, err := filepath.Abs(f)
		if err != nil {
			continue
		}
		watched[abs] = true
		dirs[filepath.Dir(abs)] = true
	}

	for d := range dirs {
		if w.dirs[d] {
			continue
		}
		if err := w.fw.Add(d); err != nil {
			w.log.Warn("could not watch directory", "dir", d, "error", err)
			delete(dirs, d)
		}
	}
	for d := range w.dirs {
		if !dirs[d] {
			_ = w.fw.Remove(d)
		}
	}
	w.watched = watched
	w.dirs = dirs
	w.log.Debug("watching files", "files", len(watched), "dirs", len(dirs))
}
