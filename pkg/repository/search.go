package repository

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/getmockd/stubd/internal/id"
	"github.com/getmockd/stubd/internal/storage"
	"github.com/getmockd/stubd/pkg/stub"
	"github.com/getmockd/stubd/pkg/template"
	"github.com/getmockd/stubd/pkg/transport"
)

var errNoFetcher = errors.New("no outbound transport configured")

// Search finds the stub matching in and renders its current response.
func (r *Repository) Search(ctx context.Context, in stub.Incoming) stub.Result {
	start := time.Now()
	res := r.search(ctx, in)
	r.observer.SearchCompleted(res.Kind.String(), time.Since(start))
	return res
}

func (r *Repository) search(ctx context.Context, in stub.Incoming) stub.Result {
	snap := r.store.Load()
	asserting := in.Asserting()

	idx, tokens, ok := r.find(snap, asserting)
	if !ok {
		if len(snap.Proxies()) > 0 {
			return r.proxy(ctx, snap, in, asserting)
		}
		r.log.Debug("no stub matched", "method", in.Method, "url", asserting.FullURL())
		return stub.NotFound()
	}

	e := snap.At(idx)
	e.Hit()
	lc := e.Lifecycle
	if lc.IsUnauthorized(asserting) {
		r.log.Debug("stub matched but request is unauthorized", "index", idx, "uuid", lc.UUID())
		return stub.Unauthorized(idx, lc.UUID())
	}

	resp := e.Next()
	if resp.IsRecordingRequired() {
		r.record(ctx, lc, resp, asserting)
	}
	r.log.Debug("stub matched", "index", idx, "uuid", lc.UUID(), "url", asserting.FullURL())
	return r.render(idx, lc, resp, tokens)
}

// find returns the index of the first stub matching asserting and the tokens
// captured while matching it.
func (r *Repository) find(snap *storage.Snapshot, asserting *stub.Request) (int, map[string]string, bool) {
	key := fingerprint(asserting)
	if u, ok := r.matches.get(key, snap.Generation()); ok {
		if idx, ok := snap.IndexOf(u); ok {
			tokens := map[string]string{}
			if r.matcher.Matches(snap.At(idx).Lifecycle.Request(), asserting, tokens) {
				return idx, tokens, true
			}
		}
	}

	for idx, e := range snap.Entries() {
		tokens := map[string]string{}
		if r.matcher.Matches(e.Lifecycle.Request(), asserting, tokens) {
			r.matches.put(key, snap.Generation(), e.Lifecycle.UUID())
			return idx, tokens, true
		}
	}
	return -1, nil, false
}

// record fetches the body of a recording-eligible response from its origin.
// Failures leave the response unrecorded so the next hit retries.
func (r *Repository) record(ctx context.Context, lc *stub.Lifecycle, resp *stub.Response, asserting *stub.Request) {
	recorded, err := resp.Record(func(source string) ([]byte, error) {
		if r.fetcher == nil {
			return nil, errNoFetcher
		}
		target := source + asserting.FullURL()
		fetched, err := r.fetcher.Fetch(ctx, transport.FromStub(lc.Request(), target))
		if err != nil {
			return nil, err
		}
		return fetched.Body, nil
	})
	switch {
	case err != nil:
		r.observer.Recorded(err)
		r.log.Error("could not record response", "uuid", lc.UUID(), "source", resp.RawBody(), "error", err)
	case recorded:
		r.observer.Recorded(nil)
		r.log.Info("recorded response", "uuid", lc.UUID(), "source", resp.RawBody())
	}
}

// render resolves templates and stamps the resource ID header.
func (r *Repository) render(idx int, lc *stub.Lifecycle, resp *stub.Response, tokens map[string]string) stub.Result {
	headers := template.ProcessHeaders(resp.Headers(), tokens)
	headers[stub.HeaderResourceID] = strconv.Itoa(idx)

	body := resp.Body()
	if path := resp.FilePath(); template.IsTemplated(path) {
		resolved := template.Process(path, tokens)
		if b, err := r.readFile(resolved); err == nil {
			body = b
		} else {
			r.log.Warn("could not read templated response file", "uuid", lc.UUID(), "path", resolved, "error", err)
		}
	}
	body = template.ProcessBytes(body, tokens)

	kind := stub.KindOK
	if resp.IsRedirect() {
		kind = stub.KindRedirect
	}
	return stub.Result{
		Kind:    kind,
		Status:  resp.Status(),
		Headers: headers,
		Body:    body,
		Latency: resp.Latency(),
		Index:   idx,
		UUID:    lc.UUID(),
	}
}

// proxy forwards an unmatched request to the selected proxy config.
func (r *Repository) proxy(ctx context.Context, snap *storage.Snapshot, in stub.Incoming, asserting *stub.Request) stub.Result {
	want := asserting.Headers()[stub.HeaderProxyConfig]
	if want == "" {
		want = stub.DefaultProxyUUID
	}
	cfg, ok := snap.Proxy(want)
	if !ok {
		r.log.Warn("unknown proxy config, falling back to default", "uuid", want)
		cfg, _ = snap.Proxy(stub.DefaultProxyUUID)
	}

	roundTrip := id.UUID()
	headers := make(map[string]string, len(in.Headers)+len(cfg.Headers)+1)
	for k, v := range in.Headers {
		headers[k] = v
	}
	headers[stub.HeaderProxyRequest] = roundTrip
	if cfg.Strategy == stub.ProxyAdditive {
		for k, v := range cfg.Headers {
			headers[k] = v
		}
	}

	res := stub.Result{
		Kind:    stub.KindProxied,
		Headers: map[string]string{stub.HeaderProxyResponse: roundTrip},
		Index:   -1,
		UUID:    cfg.UUID,
	}

	endpoint := cfg.Endpoint + asserting.FullURL()
	var fetched *transport.Response
	err := errNoFetcher
	if r.fetcher != nil {
		fetched, err = r.fetcher.Fetch(ctx, transport.Request{
			Method:  in.Method,
			URL:     endpoint,
			Headers: headers,
			Body:    in.Body,
		})
	}
	if err != nil {
		r.log.Error("could not proxy request", "endpoint", endpoint, "error", err)
		res.Status = http.StatusInternalServerError
		res.Body = []byte(err.Error())
		return res
	}

	for k, v := range transport.FlattenHeaders(fetched.Headers) {
		res.Headers[k] = v
	}
	res.Status = fetched.Status
	res.Body = fetched.Body
	r.log.Debug("proxied request", "endpoint", endpoint, "status", fetched.Status, "config", cfg.UUID)
	return res
}
