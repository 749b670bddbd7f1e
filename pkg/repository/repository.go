package repository

import (
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/getmockd/stubd/internal/matching"
	"github.com/getmockd/stubd/internal/pattern"
	"github.com/getmockd/stubd/internal/storage"
	"github.com/getmockd/stubd/pkg/logging"
	"github.com/getmockd/stubd/pkg/stub"
	"github.com/getmockd/stubd/pkg/transport"
)

// Observer receives search, recording and degradation events.
type Observer interface {
	matching.Observer
	SearchCompleted(outcome string, elapsed time.Duration)
	Recorded(err error)
}

type nopObserver struct{}

func (nopObserver) Degraded(string) {}

func (nopObserver) SearchCompleted(string, time.Duration) {}

func (nopObserver) Recorded(error) {}

// Repository holds the stub collection.
type Repository struct {
	store    storage.StubStore
	patterns *pattern.Cache
	matcher  *matching.Matcher
	matches  *matchCache
	fetcher  transport.Fetcher
	readFile func(string) ([]byte, error)
	log      *slog.Logger
	observer Observer

	matchCacheSize int
	matchCacheTTL  time.Duration
}

// Option configures a Repository.
type Option func(*Repository)

// WithStore sets the snapshot store.
func WithStore(s storage.StubStore) Option {
	return func(r *Repository) {
		if s != nil {
			r.store = s
		}
	}
}

// WithPatternCache sets the compiled-pattern cache shared with the matcher.
func WithPatternCache(c *pattern.Cache) Option {
	return func(r *Repository) {
		if c != nil {
			r.patterns = c
		}
	}
}

// WithMatchCache sizes the request-to-stub match cache.
func WithMatchCache(size int, ttl time.Duration) Option {
	return func(r *Repository) {
		r.matchCacheSize = size
		r.matchCacheTTL = ttl
	}
}

// WithFetcher sets the outbound collaborator used for recording and proxying.
func WithFetcher(f transport.Fetcher) Option {
	return func(r *Repository) {
		r.fetcher = f
	}
}

// WithFileReader sets how templated response files are read.
func WithFileReader(fn func(string) ([]byte, error)) Option {
	return func(r *Repository) {
		if fn != nil {
			r.readFile = fn
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(r *Repository) {
		if log != nil {
			r.log = log
		}
	}
}

// WithObserver sets the event observer.
func WithObserver(o Observer) Option {
	return func(r *Repository) {
		if o != nil {
			r.observer = o
		}
	}
}

// New creates an empty repository.
func New(opts ...Option) *Repository {
	r := &Repository{
		store:          storage.NewMemoryStore(),
		readFile:       os.ReadFile,
		log:            logging.Nop(),
		observer:       nopObserver{},
		matchCacheSize: pattern.DefaultSize,
		matchCacheTTL:  pattern.DefaultTTL,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.patterns == nil {
		r.patterns = pattern.New(pattern.DefaultSize, pattern.DefaultTTL)
	}
	r.patterns.OnCompileError(func(p string, err error) {
		r.observer.Degraded(matching.DegradedPattern)
		r.log.Debug("stubbed value is not a valid pattern, comparing literally", "pattern", p, "error", err)
	})
	r.matcher = matching.New(r.patterns, matching.WithLogger(r.log), matching.WithObserver(r.observer))
	r.matches = newMatchCache(r.matchCacheSize, r.matchCacheTTL)
	return r
}

// Reset atomically replaces the whole collection with c. Sequence cursors,
// hit counters, the match cache and the pattern cache start over.
func (r *Repository) Reset(c *stub.Collection) error {
	if len(c.Proxies) > 0 {
		if _, ok := c.Proxies[stub.DefaultProxyUUID]; !ok {
			return ErrNoDefaultProxy
		}
	}
	if err := r.store.Replace(c); err != nil {
		return conflict(err)
	}
	r.patterns.Clear()
	r.matches.purge()
	r.precompile(c.Stubs)
	r.log.Info("stubs loaded", "stubs", len(c.Stubs), "proxies", len(c.Proxies))
	return nil
}

// precompile warms the pattern cache with every stubbed value.
func (r *Repository) precompile(stubs []*stub.Lifecycle) {
	for _, l := range stubs {
		req := l.Request()
		r.patterns.Compile(req.URL())
		if req.IsBodyStubbed() {
			r.patterns.Compile(req.Body())
		}
		for _, v := range req.Query() {
			r.patterns.Compile(v)
		}
		for _, v := range req.Headers() {
			r.patterns.Compile(v)
		}
	}
}

// update publishes a mutation and invalidates cached matches.
func (r *Repository) update(fn func(cur *storage.Snapshot) (*storage.Snapshot, error)) error {
	if err := r.store.Update(fn); err != nil {
		return conflict(err)
	}
	r.matches.purge()
	return nil
}

// conflict maps storage duplicate errors to ConflictError.
func conflict(err error) error {
	var dup *storage.DuplicateError
	if errors.As(err, &dup) {
		return &ConflictError{UUID: dup.UUID}
	}
	return err
}
