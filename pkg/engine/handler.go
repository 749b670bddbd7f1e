package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/getmockd/stubd/pkg/logging"
	"github.com/getmockd/stubd/pkg/stub"
)

// DefaultMaxBodySize caps the request body read from clients (10MB).
const DefaultMaxBodySize = 10 * 1024 * 1024

// Searcher resolves an incoming request to a result.
type Searcher interface {
	Search(ctx context.Context, in stub.Incoming) stub.Result
}

// Handler answers stub requests.
type Handler struct {
	repo        Searcher
	log         *slog.Logger
	maxBodySize int64
	sleep       func(ctx context.Context, d time.Duration) error
}

var _ http.Handler = (*Handler)(nil)

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithHandlerLogger sets the logger.
func WithHandlerLogger(log *slog.Logger) HandlerOption {
	return func(h *Handler) {
		if log != nil {
			h.log = log
		}
	}
}

// WithMaxBodySize caps request bodies. Larger bodies are rejected with 413.
func WithMaxBodySize(n int64) HandlerOption {
	return func(h *Handler) {
		if n > 0 {
			h.maxBodySize = n
		}
	}
}

// NewHandler creates a Handler backed by repo.
func NewHandler(repo Searcher, opts ...HandlerOption) *Handler {
	h := &Handler{
		repo:        repo,
		log:         logging.Nop(),
		maxBodySize: DefaultMaxBodySize,
		sleep:       sleepContext,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	in, err := h.incoming(w, r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "could not read request body", http.StatusBadRequest)
		return
	}

	res := h.repo.Search(r.Context(), in)

	switch res.Kind {
	case stub.KindOK, stub.KindRedirect, stub.KindProxied:
		if res.Latency > 0 {
			if err := h.sleep(r.Context(), res.Latency); err != nil {
				h.log.Debug("client went away during latency", "path", in.Path, "error", err)
				return
			}
		}
		h.write(w, res)
	case stub.KindUnauthorized:
		w.WriteHeader(http.StatusUnauthorized)
	case stub.KindNotFound:
		w.WriteHeader(http.StatusNotFound)
	default:
		h.log.Error("unknown result kind", "kind", res.Kind)
		w.WriteHeader(http.StatusInternalServerError)
	}

	h.log.Debug("served",
		"method", in.Method,
		"path", in.Path,
		"result", res.Kind.String(),
		"status", res.Status,
		"index", res.Index,
	)
}

// incoming reads r into the transport-neutral request shape. Repeated
// header values are joined with ",".
func (h *Handler) incoming(w http.ResponseWriter, r *http.Request) (stub.Incoming, error) {
	in := stub.Incoming{
		Method:   r.Method,
		Path:     r.URL.Path,
		RawQuery: r.URL.RawQuery,
		Headers:  make(map[string]string, len(r.Header)),
	}
	for k, vs := range r.Header {
		in.Headers[strings.ToLower(k)] = strings.Join(vs, ",")
	}
	if r.Body == nil {
		return in, nil
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodySize))
	if err != nil {
		return in, err
	}
	in.Body = body
	return in, nil
}

func (h *Handler) write(w http.ResponseWriter, res stub.Result) {
	hdr := w.Header()
	for k, v := range res.Headers {
		if strings.EqualFold(k, "content-length") {
			continue
		}
		hdr.Set(k, v)
	}
	status := res.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	if len(res.Body) > 0 {
		if _, err := w.Write(res.Body); err != nil {
			h.log.Debug("could not write response body", "error", err)
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
