package engine

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/getmockd/stubd/pkg/logging"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// Server runs an http.Handler on one address. Cleartext HTTP/2 is accepted
// alongside HTTP/1.1; with WithTLS the server speaks HTTPS and negotiates
// HTTP/2 through ALPN instead.
type Server struct {
	name    string
	addr    string
	handler http.Handler
	log     *slog.Logger

	readTimeout  time.Duration
	writeTimeout time.Duration
	tlsConfig    *tls.Config

	mu       sync.Mutex
	srv      *http.Server
	listener net.Listener
	done     chan struct{}
}

// ServerOption is a functional option for configuring a Server.
type ServerOption func(*Server)

// WithLogger sets the operational logger.
func WithLogger(log *slog.Logger) ServerOption {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}

// WithName labels the server in log output.
func WithName(name string) ServerOption {
	return func(s *Server) {
		s.name = name
	}
}

// WithTimeouts sets the read and write timeouts. Zero disables a timeout.
func WithTimeouts(read, write time.Duration) ServerOption {
	return func(s *Server) {
		s.readTimeout = read
		s.writeTimeout = write
	}
}

// WithTLS serves HTTPS with cfg.
func WithTLS(cfg *tls.Config) ServerOption {
	return func(s *Server) {
		s.tlsConfig = cfg
	}
}

// NewServer creates a Server for addr, such as "0.0.0.0:8882". Port 0
// picks a free port; see Addr.
func NewServer(addr string, handler http.Handler, opts ...ServerOption) *Server {
	s := &Server{
		name:        "stubs",
		addr:        addr,
		handler:     handler,
		log:         logging.Nop(),
		readTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start binds the address and serves in the background.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.srv != nil {
		return fmt.Errorf("%s server is already running", s.name)
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.addr, err)
	}

	srv := &http.Server{
		Handler:           h2c.NewHandler(s.handler, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       s.readTimeout,
		WriteTimeout:      s.writeTimeout,
	}
	serve := srv.Serve
	if s.tlsConfig != nil {
		srv.Handler = s.handler
		srv.TLSConfig = s.tlsConfig.Clone()
		if err := http2.ConfigureServer(srv, &http2.Server{}); err != nil {
			_ = ln.Close()
			return fmt.Errorf("configuring http2: %w", err)
		}
		serve = func(l net.Listener) error { return srv.ServeTLS(l, "", "") }
	}
	s.srv = srv
	s.listener = ln
	s.done = make(chan struct{})

	s.log.Info("starting server", "server", s.name, "addr", ln.Addr().String(), "tls", s.tlsConfig != nil)
	go func(done chan struct{}) {
		defer close(done)
		if err := serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("server error", "server", s.name, "error", err)
		}
	}(s.done)
	return nil
}

// Addr returns the bound address, or the configured one before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Stop shuts the server down gracefully, waiting for in-flight requests
// until ctx expires.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv, done := s.srv, s.done
	s.srv, s.listener = nil, nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	err := srv.Shutdown(ctx)
	<-done
	if err != nil {
		return fmt.Errorf("%s shutdown: %w", s.name, err)
	}
	s.log.Info("server stopped", "server", s.name)
	return nil
}
