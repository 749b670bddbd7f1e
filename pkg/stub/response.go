package stub

import (
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// HeaderResourceID carries the owning stub's current position in the
// repository on every matched response.
const HeaderResourceID = "x-stubby-resource-id"

// Response is one candidate response of a stub.
type Response struct {
	status   int
	headers  map[string]string
	body     string
	file     []byte
	filePath string
	latency  time.Duration

	rec *recording
}

// recording holds the body fetched for a recording-eligible response.
type recording struct {
	mu   sync.Mutex
	body atomic.Pointer[[]byte]
}

// Status returns the HTTP status code.
func (r *Response) Status() int { return r.status }

// Headers returns the configured headers. Values may contain template
// placeholders.
func (r *Response) Headers() map[string]string { return r.headers }

// Latency returns the configured delay before the response is written.
func (r *Response) Latency() time.Duration { return r.latency }

// FilePath returns the resolved path of the body file, if any. It may
// contain template placeholders.
func (r *Response) FilePath() string { return r.filePath }

// RawBody returns the inline body as configured.
func (r *Response) RawBody() string { return r.body }

// Body returns the body to send: a recorded body once recorded, otherwise
// non-empty file content, otherwise the inline body.
func (r *Response) Body() []byte {
	if p := r.rec.body.Load(); p != nil {
		return *p
	}
	if len(r.file) > 0 {
		return r.file
	}
	return []byte(r.body)
}

// IsRecordingSource reports whether the inline body is an http(s) URL.
func (r *Response) IsRecordingSource() bool {
	b := strings.ToLower(r.body)
	return strings.HasPrefix(b, "http://") || strings.HasPrefix(b, "https://")
}

// IsRecordingRequired reports whether the response is a recording source
// that has not been recorded yet.
func (r *Response) IsRecordingRequired() bool {
	return r.IsRecordingSource() && r.rec.body.Load() == nil
}

// Record runs fetch and stores its result as the response body. It is a
// no-op once a fetch has succeeded. Concurrent callers are serialized so the
// stored body is always one complete fetch result.
func (r *Response) Record(fetch func(source string) ([]byte, error)) (bool, error) {
	r.rec.mu.Lock()
	defer r.rec.mu.Unlock()

	if r.rec.body.Load() != nil {
		return false, nil
	}
	b, err := fetch(r.body)
	if err != nil {
		return false, err
	}
	r.rec.body.Store(&b)
	return true, nil
}

// IsRedirect reports whether the response is a 3xx with a location header.
func (r *Response) IsRedirect() bool {
	_, ok := r.headers["location"]
	return ok && r.status >= 300 && r.status < 400
}

// ResponseBuilder assembles a Response.
type ResponseBuilder struct {
	r Response
}

// NewResponseBuilder returns a builder for a 200 response.
func NewResponseBuilder() *ResponseBuilder {
	return &ResponseBuilder{r: Response{
		status:  http.StatusOK,
		headers: map[string]string{},
	}}
}

// Status sets the status code. Zero keeps the 200 default.
func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	if code != 0 {
		b.r.status = code
	}
	return b
}

// Header sets a header. The key is lower-cased.
func (b *ResponseBuilder) Header(key, value string) *ResponseBuilder {
	b.r.headers[strings.ToLower(key)] = value
	return b
}

// Body sets the inline body.
func (b *ResponseBuilder) Body(body string) *ResponseBuilder {
	b.r.body = body
	return b
}

// File sets the body file path and its loaded content.
func (b *ResponseBuilder) File(path string, content []byte) *ResponseBuilder {
	b.r.filePath = path
	b.r.file = content
	return b
}

// Latency sets the response delay.
func (b *ResponseBuilder) Latency(d time.Duration) *ResponseBuilder {
	b.r.latency = d
	return b
}

// Build returns the Response. The builder must not be reused.
func (b *ResponseBuilder) Build() *Response {
	r := b.r
	r.rec = &recording{}
	return &r
}

// OK returns a default 200 response with no body.
func OK() *Response {
	return NewResponseBuilder().Build()
}
