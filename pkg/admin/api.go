package admin

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/getmockd/stubd/pkg/config"
	"github.com/getmockd/stubd/pkg/logging"
	"github.com/getmockd/stubd/pkg/repository"
	"github.com/getmockd/stubd/pkg/stub"
)

// Repository is the stub store the API manages.
type Repository interface {
	Stubs() []*stub.Lifecycle
	StubByIndex(i int) (*stub.Lifecycle, error)
	StubByUUID(u string) (*stub.Lifecycle, int, error)
	StubYAMLByIndex(i int) (string, error)
	YAML() string
	Append(stubs ...*stub.Lifecycle) error
	UpdateByIndex(i int, l *stub.Lifecycle) error
	UpdateByUUID(u string, l *stub.Lifecycle) error
	DeleteByIndex(i int) (*stub.Lifecycle, error)
	DeleteByUUID(u string) (*stub.Lifecycle, error)
	DeleteAll() error
	ResourceStats() map[int]int64
	ResourceStatsCSV() string
}

var _ Repository = (*repository.Repository)(nil)

// ReloadFunc re-reads the configuration from disk and resets the repository.
type ReloadFunc func(ctx context.Context) (stubs int, err error)

// API serves the admin endpoints.
type API struct {
	repo    Repository
	parser  *config.Parser
	baseDir string
	reload  ReloadFunc
	metrics http.Handler
	log     *slog.Logger
	maxBody int64
}

// Option configures an API.
type Option func(*API)

// WithParser sets the parser for YAML request bodies and the directory
// relative body files resolve against.
func WithParser(p *config.Parser, baseDir string) Option {
	return func(a *API) {
		if p != nil {
			a.parser = p
		}
		a.baseDir = baseDir
	}
}

// WithReload enables POST /refresh.
func WithReload(fn ReloadFunc) Option {
	return func(a *API) {
		a.reload = fn
	}
}

// WithMetrics serves h on GET /metrics.
func WithMetrics(h http.Handler) Option {
	return func(a *API) {
		a.metrics = h
	}
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(a *API) {
		if log != nil {
			a.log = log
		}
	}
}

// New creates an API over repo.
func New(repo Repository, opts ...Option) *API {
	a := &API{
		repo:    repo,
		parser:  config.NewParser(),
		log:     logging.Nop(),
		maxBody: 10 * 1024 * 1024,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Handler returns the routed handler with request logging applied.
func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()
	a.registerRoutes(mux)
	return a.withLogging(mux)
}

func (a *API) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		a.log.Debug("admin request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"duration", time.Since(start),
		)
	})
}

// statusWriter captures the status code for logging.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	w.wroteHeader = true
	return w.ResponseWriter.Write(b)
}

// Unwrap supports http.ResponseController.
func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
