// Package transport is the outbound HTTP client used to record responses
// from origin servers and to forward unmatched requests to proxy endpoints.
package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/getmockd/stubd/pkg/logging"
	"github.com/getmockd/stubd/pkg/stub"
)

const (
	// DefaultTimeout bounds every outbound request.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxBodySize is the maximum response body read from an origin (10MB).
	DefaultMaxBodySize = 10 * 1024 * 1024
)

// Request is an outbound request.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
}

// Response is what an origin answered.
type Response struct {
	Status  int
	Headers http.Header
	Body    []byte
}

// Fetcher performs outbound requests.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) (*Response, error)
}

// FromStub builds the request used to record a response: the stubbed
// request's first method (GET when none), body and headers, sent to target.
// Stubbed authorization keys are not forwarded.
func FromStub(stubbed *stub.Request, target string) Request {
	method := http.MethodGet
	if ms := stubbed.Methods(); len(ms) > 0 {
		method = ms[0]
	}
	headers := make(map[string]string, len(stubbed.Headers()))
	for k, v := range stubbed.Headers() {
		if !stub.IsAuthHeaderKey(k) {
			headers[k] = v
		}
	}
	if a := stubbed.Authorization(); a.Type != stub.AuthNone {
		headers[stub.HeaderAuthorization] = a.Expected
	}
	var body []byte
	if stubbed.IsBodyStubbed() {
		body = []byte(stubbed.Body())
	}
	return Request{Method: method, URL: target, Headers: headers, Body: body}
}

// Client is a Fetcher backed by net/http.
type Client struct {
	http        *http.Client
	maxBodySize int64
	log         *slog.Logger
}

var _ Fetcher = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// New creates a Client. Redirects are returned to the caller, not followed.
func New(opts ...Option) *Client {
	c := &Client{
		http: &http.Client{
			Timeout: DefaultTimeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		maxBodySize: DefaultMaxBodySize,
		log:         logging.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch sends req and reads the whole response body.
func (c *Client) Fetch(ctx context.Context, req Request) (*Response, error) {
	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	out, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("build request to %s: %w", req.URL, err)
	}
	for k, v := range req.Headers {
		out.Header.Set(k, v)
	}
	removeHopByHopHeaders(out.Header)
	// Let the client negotiate compression and length itself.
	out.Header.Del("Accept-Encoding")
	out.Header.Del("Content-Length")
	if h := out.Header.Get("Host"); h != "" {
		out.Host = h
		out.Header.Del("Host")
	}

	start := time.Now()
	resp, err := c.http.Do(out)
	if err != nil {
		return nil, fmt.Errorf("request %s %s: %w", req.Method, req.URL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	b, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read response from %s: %w", req.URL, err)
	}
	c.log.Debug("outbound request", "method", req.Method, "url", req.URL, "status", resp.StatusCode, "duration", time.Since(start))

	return &Response{Status: resp.StatusCode, Headers: resp.Header.Clone(), Body: b}, nil
}

// FlattenHeaders joins repeated header values with ",".
func FlattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, vs := range h {
		out[strings.ToLower(k)] = strings.Join(vs, ",")
	}
	return out
}

// removeHopByHopHeaders removes headers that should not be forwarded.
func removeHopByHopHeaders(h http.Header) {
	hopByHopHeaders := []string{
		"Connection",
		"Keep-Alive",
		"Proxy-Authenticate",
		"Proxy-Authorization",
		"Proxy-Connection",
		"TE",
		"Trailers",
		"Transfer-Encoding",
		"Upgrade",
	}

	for _, header := range hopByHopHeaders {
		h.Del(header)
	}
}
