package stub

import (
	"github.com/getmockd/stubd/internal/id"
)

// Lifecycle is a stub: one stubbed Request and a non-empty, cyclic sequence
// of Responses.
type Lifecycle struct {
	request     *Request
	responses   []*Response
	uuid        string
	description string
	yaml        string
}

// Request returns the stubbed request.
func (l *Lifecycle) Request() *Request { return l.request }

// Responses returns the full response sequence.
func (l *Lifecycle) Responses() []*Response { return l.responses }

// UUID returns the stable identifier of the stub.
func (l *Lifecycle) UUID() string { return l.uuid }

// Description returns the human description.
func (l *Lifecycle) Description() string { return l.description }

// YAML returns the configuration snippet the stub was parsed from.
func (l *Lifecycle) YAML() string { return l.yaml }

// IsSequence reports whether the stub cycles through several responses.
func (l *Lifecycle) IsSequence() bool { return len(l.responses) > 1 }

// ResponseAt returns the response at cursor position n, wrapping around the
// sequence.
func (l *Lifecycle) ResponseAt(n uint64) *Response {
	return l.responses[n%uint64(len(l.responses))]
}

// IsAuthorizationRequired reports whether the stubbed request is secured.
func (l *Lifecycle) IsAuthorizationRequired() bool {
	return l.request.IsSecured()
}

// IsUnauthorized reports whether the asserting request fails the stub's
// authorization requirement. The raw Authorization header must equal the
// expected value exactly.
func (l *Lifecycle) IsUnauthorized(asserting *Request) bool {
	if !l.IsAuthorizationRequired() {
		return false
	}
	return asserting.RawAuthorization() != l.request.Authorization().Expected
}

// LifecycleBuilder assembles a Lifecycle.
type LifecycleBuilder struct {
	l Lifecycle
}

// NewLifecycleBuilder returns a builder for a stub matching req.
func NewLifecycleBuilder(req *Request) *LifecycleBuilder {
	return &LifecycleBuilder{l: Lifecycle{request: req}}
}

// Response appends responses to the sequence.
func (b *LifecycleBuilder) Response(responses ...*Response) *LifecycleBuilder {
	b.l.responses = append(b.l.responses, responses...)
	return b
}

// UUID sets the identifier.
func (b *LifecycleBuilder) UUID(u string) *LifecycleBuilder {
	b.l.uuid = u
	return b
}

// Description sets the description.
func (b *LifecycleBuilder) Description(d string) *LifecycleBuilder {
	b.l.description = d
	return b
}

// YAML sets the raw configuration snippet.
func (b *LifecycleBuilder) YAML(s string) *LifecycleBuilder {
	b.l.yaml = s
	return b
}

// Build returns the Lifecycle. A stub without responses answers 200 with no
// body and a stub without a UUID gets a generated one.
func (b *LifecycleBuilder) Build() *Lifecycle {
	l := b.l
	if l.uuid == "" {
		l.uuid = id.UUID()
	}
	if l.request == nil {
		l.request = NewRequestBuilder().Build()
	}
	if len(l.responses) == 0 {
		l.responses = []*Response{OK()}
	}
	return &l
}
