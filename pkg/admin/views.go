package admin

import (
	"github.com/getmockd/stubd/pkg/stub"
)

// StubView is the JSON shape of a stub.
type StubView struct {
	ResourceID  int            `json:"resourceId"`
	UUID        string         `json:"uuid"`
	Description string         `json:"description,omitempty"`
	Hits        int64          `json:"hits"`
	Request     RequestView    `json:"request"`
	Responses   []ResponseView `json:"response"`
}

// RequestView is the JSON shape of a stubbed request.
type RequestView struct {
	URL     string            `json:"url"`
	Method  []string          `json:"method,omitempty"`
	Post    string            `json:"post,omitempty"`
	File    string            `json:"file,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
	Query   map[string]string `json:"query,omitempty"`
}

// ResponseView is the JSON shape of one response of a sequence.
type ResponseView struct {
	Status    int               `json:"status"`
	Headers   map[string]string `json:"headers,omitempty"`
	Body      string            `json:"body,omitempty"`
	File      string            `json:"file,omitempty"`
	LatencyMS int64             `json:"latency,omitempty"`
}

func newStubView(idx int, l *stub.Lifecycle, hits int64) StubView {
	req := l.Request()
	v := StubView{
		ResourceID:  idx,
		UUID:        l.UUID(),
		Description: l.Description(),
		Hits:        hits,
		Request: RequestView{
			URL:     req.URL(),
			Method:  req.Methods(),
			Post:    req.Post(),
			File:    req.FilePath(),
			Headers: req.Headers(),
			Query:   req.Query(),
		},
	}
	for _, r := range l.Responses() {
		v.Responses = append(v.Responses, ResponseView{
			Status:    r.Status(),
			Headers:   r.Headers(),
			Body:      r.RawBody(),
			File:      r.FilePath(),
			LatencyMS: r.Latency().Milliseconds(),
		})
	}
	return v
}
