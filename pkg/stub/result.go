package stub

import (
	"net/http"
	"time"
)

// Kind tags the outcome of a repository search.
type Kind int

// Search outcomes.
const (
	KindOK Kind = iota
	KindNotFound
	KindUnauthorized
	KindRedirect
	KindProxied
)

func (k Kind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindNotFound:
		return "not_found"
	case KindUnauthorized:
		return "unauthorized"
	case KindRedirect:
		return "redirect"
	case KindProxied:
		return "proxied"
	default:
		return "unknown"
	}
}

// Result is the rendered outcome of a search. Index is the matched stub's
// resource ID, or -1 when no stub matched.
type Result struct {
	Kind    Kind
	Status  int
	Headers map[string]string
	Body    []byte
	Latency time.Duration
	Index   int
	UUID    string
}

// NotFound returns the result for a request matching no stub.
func NotFound() Result {
	return Result{Kind: KindNotFound, Status: http.StatusNotFound, Headers: map[string]string{}, Index: -1}
}

// Unauthorized returns the result for a matched but unauthorized request.
func Unauthorized(index int, uuid string) Result {
	return Result{Kind: KindUnauthorized, Status: http.StatusUnauthorized, Headers: map[string]string{}, Index: index, UUID: uuid}
}
