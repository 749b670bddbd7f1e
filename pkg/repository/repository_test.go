package repository

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/getmockd/stubd/pkg/stub"
	"github.com/getmockd/stubd/pkg/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFetcher records outbound requests and answers from fn.
type fakeFetcher struct {
	mu    sync.Mutex
	calls []transport.Request
	fn    func(transport.Request) (*transport.Response, error)
}

func (f *fakeFetcher) Fetch(_ context.Context, req transport.Request) (*transport.Response, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	return f.fn(req)
}

func (f *fakeFetcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type recordingObserver struct {
	mu       sync.Mutex
	outcomes []string
	recorded []error
	degraded []string
}

func (o *recordingObserver) Degraded(reason string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.degraded = append(o.degraded, reason)
}

func (o *recordingObserver) SearchCompleted(outcome string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, outcome)
}

func (o *recordingObserver) Recorded(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.recorded = append(o.recorded, err)
}

func simple(uuid, url, body string) *stub.Lifecycle {
	return stub.NewLifecycleBuilder(stub.NewRequestBuilder().URL(url).Method("GET").Build()).
		Response(stub.NewResponseBuilder().Body(body).Build()).
		UUID(uuid).
		YAML("- request:\n    url: " + url + "\n").
		Build()
}

func get(path string) stub.Incoming {
	return stub.Incoming{Method: "GET", Path: path}
}

func load(t *testing.T, r *Repository, stubs ...*stub.Lifecycle) {
	t.Helper()
	require.NoError(t, r.Reset(stub.NewCollection(stubs)))
}

func TestSearch_Match(t *testing.T) {
	r := New()
	load(t, r, simple("a", "/a", "alpha"), simple("b", "/b", "beta"))

	res := r.Search(context.Background(), get("/b"))

	assert.Equal(t, stub.KindOK, res.Kind)
	assert.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, []byte("beta"), res.Body)
	assert.Equal(t, 1, res.Index)
	assert.Equal(t, "b", res.UUID)
	assert.Equal(t, "1", res.Headers[stub.HeaderResourceID])
}

func TestSearch_NotFound(t *testing.T) {
	r := New()
	load(t, r, simple("a", "/a", "alpha"))

	res := r.Search(context.Background(), get("/missing"))

	assert.Equal(t, stub.KindNotFound, res.Kind)
	assert.Equal(t, http.StatusNotFound, res.Status)
	assert.Empty(t, res.Body)
	assert.Equal(t, -1, res.Index)
}

func TestSearch_FirstDefinedWins(t *testing.T) {
	r := New()
	load(t, r, simple("first", "^/items/.*$", "first"), simple("second", "/items/1", "second"))

	for i := 0; i < 3; i++ {
		res := r.Search(context.Background(), get("/items/1"))
		assert.Equal(t, []byte("first"), res.Body)
	}
}

func TestSearch_SequenceCycles(t *testing.T) {
	r := New()
	l := stub.NewLifecycleBuilder(stub.NewRequestBuilder().URL("/seq").Build()).
		Response(
			stub.NewResponseBuilder().Status(200).Body("one").Build(),
			stub.NewResponseBuilder().Status(500).Body("two").Build(),
			stub.NewResponseBuilder().Status(201).Body("three").Build(),
		).
		Build()
	load(t, r, l)

	var bodies []string
	for i := 0; i < 4; i++ {
		bodies = append(bodies, string(r.Search(context.Background(), get("/seq")).Body))
	}
	assert.Equal(t, []string{"one", "two", "three", "one"}, bodies)

	load(t, r, l)
	assert.Equal(t, []byte("one"), r.Search(context.Background(), get("/seq")).Body)
}

func TestSearch_SequenceConcurrent(t *testing.T) {
	r := New()
	responses := make([]*stub.Response, 5)
	names := []string{"0", "1", "2", "3", "4"}
	for i := range responses {
		responses[i] = stub.NewResponseBuilder().Body(names[i]).Build()
	}
	load(t, r, stub.NewLifecycleBuilder(stub.NewRequestBuilder().URL("/seq").Build()).Response(responses...).Build())

	var mu sync.Mutex
	counts := map[string]int{}
	var wg sync.WaitGroup
	for i := 0; i < 500; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			body := string(r.Search(context.Background(), get("/seq")).Body)
			mu.Lock()
			counts[body]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	for _, n := range names {
		assert.Equal(t, 100, counts[n], "response %s", n)
	}
}

func TestSearch_Authorization(t *testing.T) {
	r := New()
	secured := stub.NewLifecycleBuilder(stub.NewRequestBuilder().URL("/secure").Header("authorization-basic", "bob:secret").Build()).
		Response(stub.NewResponseBuilder().Body("secret stuff").Build()).
		Build()
	load(t, r, secured)

	res := r.Search(context.Background(), get("/secure"))
	assert.Equal(t, stub.KindUnauthorized, res.Kind)
	assert.Equal(t, http.StatusUnauthorized, res.Status)
	assert.Empty(t, res.Body)

	in := get("/secure")
	in.Headers = map[string]string{"Authorization": "Basic Ym9iOnNlY3JldA=="}
	res = r.Search(context.Background(), in)
	assert.Equal(t, stub.KindOK, res.Kind)
	assert.Equal(t, []byte("secret stuff"), res.Body)

	in.Headers = map[string]string{"Authorization": "Basic Ym9iOnNlY3JldA== "}
	assert.Equal(t, stub.KindUnauthorized, r.Search(context.Background(), in).Kind)
}

func TestSearch_UnauthorizedDoesNotAdvanceSequence(t *testing.T) {
	r := New()
	secured := stub.NewLifecycleBuilder(stub.NewRequestBuilder().URL("/secure").Header("authorization-bearer", "t").Build()).
		Response(stub.NewResponseBuilder().Body("1").Build(), stub.NewResponseBuilder().Body("2").Build()).
		Build()
	load(t, r, secured)

	r.Search(context.Background(), get("/secure"))

	in := get("/secure")
	in.Headers = map[string]string{"Authorization": "Bearer t"}
	assert.Equal(t, []byte("1"), r.Search(context.Background(), in).Body)
}

func TestSearch_Templates(t *testing.T) {
	r := New()
	l := stub.NewLifecycleBuilder(stub.NewRequestBuilder().URL(`^/account/(\d+)/orders/(\w+)$`).Query("page", `(\d+)`).Build()).
		Response(stub.NewResponseBuilder().
			Header("location", "/v2/account/<% url.1 %>").
			Body(`{"account":"<% url.1 %>","order":"<%url.2%>","page":<% query.page.1 %>,"missing":"<% url.7 %>"}`).
			Build()).
		Build()
	load(t, r, l)

	in := get("/account/42/orders/abc")
	in.RawQuery = "page=3"
	res := r.Search(context.Background(), in)

	assert.Equal(t, `{"account":"42","order":"abc","page":3,"missing":"<% url.7 %>"}`, string(res.Body))
	assert.Equal(t, "/v2/account/42", res.Headers["location"])
	assert.Equal(t, stub.KindOK, res.Kind)
}

func TestSearch_TemplatedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "7.json"), []byte(`{"id":"<% url.1 %>"}`), 0o600))

	r := New()
	l := stub.NewLifecycleBuilder(stub.NewRequestBuilder().URL(`^/items/(\d+)$`).Build()).
		Response(stub.NewResponseBuilder().File(filepath.Join(dir, "<% url.1 %>.json"), nil).Build()).
		Build()
	load(t, r, l)

	assert.Equal(t, `{"id":"7"}`, string(r.Search(context.Background(), get("/items/7")).Body))
	assert.Empty(t, r.Search(context.Background(), get("/items/8")).Body)
}

func TestSearch_Redirect(t *testing.T) {
	r := New()
	l := stub.NewLifecycleBuilder(stub.NewRequestBuilder().URL("/old").Build()).
		Response(stub.NewResponseBuilder().Status(301).Header("Location", "/new").Build()).
		Build()
	load(t, r, l)

	res := r.Search(context.Background(), get("/old"))
	assert.Equal(t, stub.KindRedirect, res.Kind)
	assert.Equal(t, 301, res.Status)
	assert.Equal(t, "/new", res.Headers["location"])
}

func TestSearch_Latency(t *testing.T) {
	r := New()
	l := stub.NewLifecycleBuilder(stub.NewRequestBuilder().URL("/slow").Build()).
		Response(stub.NewResponseBuilder().Latency(250 * time.Millisecond).Build()).
		Build()
	load(t, r, l)

	assert.Equal(t, 250*time.Millisecond, r.Search(context.Background(), get("/slow")).Latency)
}

func TestSearch_Recording(t *testing.T) {
	f := &fakeFetcher{fn: func(req transport.Request) (*transport.Response, error) {
		return &transport.Response{Status: 200, Body: []byte("origin body")}, nil
	}}
	obs := &recordingObserver{}
	r := New(WithFetcher(f), WithObserver(obs))
	l := stub.NewLifecycleBuilder(stub.NewRequestBuilder().URL("^/feed/.*$").Method("GET").Header("x-key", "k").Build()).
		Response(stub.NewResponseBuilder().Body("http://example.com").Build()).
		Build()
	load(t, r, l)

	in := get("/feed/1")
	in.RawQuery = "a=b"
	first := r.Search(context.Background(), in)
	second := r.Search(context.Background(), get("/feed/2"))

	assert.Equal(t, []byte("origin body"), first.Body)
	assert.Equal(t, []byte("origin body"), second.Body)
	require.Equal(t, 1, f.count())
	assert.Equal(t, "http://example.com/feed/1?a=b", f.calls[0].URL)
	assert.Equal(t, "GET", f.calls[0].Method)
	assert.Equal(t, "k", f.calls[0].Headers["x-key"])
	assert.Equal(t, []error{nil}, obs.recorded)
}

func TestSearch_RecordingFailureRetries(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	f := &fakeFetcher{fn: func(transport.Request) (*transport.Response, error) {
		if fail.Load() {
			return nil, errors.New("connection refused")
		}
		return &transport.Response{Status: 200, Body: []byte("recorded")}, nil
	}}
	r := New(WithFetcher(f))
	load(t, r, simple("rec", "/rec", "https://origin.example"))

	res := r.Search(context.Background(), get("/rec"))
	assert.Equal(t, stub.KindOK, res.Kind)
	assert.Equal(t, []byte("https://origin.example"), res.Body)

	fail.Store(false)
	assert.Equal(t, []byte("recorded"), r.Search(context.Background(), get("/rec")).Body)
	assert.Equal(t, []byte("recorded"), r.Search(context.Background(), get("/rec")).Body)
	assert.Equal(t, 2, f.count())
}

func TestSearch_RecordingWithoutFetcher(t *testing.T) {
	r := New()
	load(t, r, simple("rec", "/rec", "http://origin.example"))

	res := r.Search(context.Background(), get("/rec"))
	assert.Equal(t, []byte("http://origin.example"), res.Body)
}

func TestSearch_Proxy(t *testing.T) {
	f := &fakeFetcher{fn: func(req transport.Request) (*transport.Response, error) {
		h := http.Header{}
		h.Set("X-Origin", "yes")
		return &transport.Response{Status: 202, Headers: h, Body: []byte("from " + req.URL)}, nil
	}}
	r := New(WithFetcher(f))
	c := stub.NewCollection([]*stub.Lifecycle{simple("a", "/a", "alpha")},
		&stub.ProxyConfig{UUID: stub.DefaultProxyUUID, Strategy: stub.ProxyAsIs, Endpoint: "http://default.origin"},
		&stub.ProxyConfig{UUID: "other", Strategy: stub.ProxyAdditive, Endpoint: "http://other.origin", Headers: map[string]string{"x-api-key": "secret"}},
	)
	require.NoError(t, r.Reset(c))

	res := r.Search(context.Background(), stub.Incoming{Method: "POST", Path: "/unmatched", RawQuery: "q=1", Body: []byte("payload")})
	assert.Equal(t, stub.KindProxied, res.Kind)
	assert.Equal(t, 202, res.Status)
	assert.Equal(t, "from http://default.origin/unmatched?q=1", string(res.Body))
	assert.Equal(t, "yes", res.Headers["x-origin"])
	require.Equal(t, 1, f.count())
	assert.Equal(t, res.Headers[stub.HeaderProxyResponse], f.calls[0].Headers[stub.HeaderProxyRequest])
	assert.Equal(t, []byte("payload"), f.calls[0].Body)
	assert.Empty(t, f.calls[0].Headers["x-api-key"])

	in := get("/unmatched")
	in.Headers = map[string]string{stub.HeaderProxyConfig: "other"}
	res = r.Search(context.Background(), in)
	assert.Equal(t, "from http://other.origin/unmatched", string(res.Body))
	assert.Equal(t, "secret", f.calls[1].Headers["x-api-key"])

	in.Headers = map[string]string{stub.HeaderProxyConfig: "nope"}
	res = r.Search(context.Background(), in)
	assert.Equal(t, "from http://default.origin/unmatched", string(res.Body))

	assert.Equal(t, []byte("alpha"), r.Search(context.Background(), get("/a")).Body)
}

func TestSearch_ProxyFailure(t *testing.T) {
	f := &fakeFetcher{fn: func(transport.Request) (*transport.Response, error) {
		return nil, errors.New("dial tcp: connection refused")
	}}
	r := New(WithFetcher(f))
	require.NoError(t, r.Reset(stub.NewCollection(nil, &stub.ProxyConfig{UUID: stub.DefaultProxyUUID, Endpoint: "http://down"})))

	res := r.Search(context.Background(), get("/x"))
	assert.Equal(t, stub.KindProxied, res.Kind)
	assert.Equal(t, http.StatusInternalServerError, res.Status)
	assert.Contains(t, string(res.Body), "connection refused")
	assert.NotEmpty(t, res.Headers[stub.HeaderProxyResponse])
}

func TestReset_RequiresDefaultProxy(t *testing.T) {
	r := New()
	err := r.Reset(stub.NewCollection(nil, &stub.ProxyConfig{UUID: "other", Endpoint: "http://x"}))
	assert.ErrorIs(t, err, ErrNoDefaultProxy)
}

func TestReset_RejectsDuplicateUUIDs(t *testing.T) {
	r := New()
	load(t, r, simple("a", "/a", "alpha"))

	err := r.Reset(stub.NewCollection([]*stub.Lifecycle{simple("x", "/1", ""), simple("x", "/2", "")}))
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "x", conflict.UUID)
	assert.Equal(t, http.StatusConflict, conflict.StatusCode())
	assert.Equal(t, 1, r.Len())
}

func TestSearch_ConcurrentWithReset(t *testing.T) {
	r := New()
	gen := func(body string) *stub.Collection {
		return stub.NewCollection([]*stub.Lifecycle{simple("a", "/a", body), simple("b", "/b", body)})
	}
	require.NoError(t, r.Reset(gen("x")))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				res := r.Search(context.Background(), get("/b"))
				assert.Equal(t, stub.KindOK, res.Kind)
				assert.Equal(t, 1, res.Index)
			}
		}()
	}
	for i := 0; i < 50; i++ {
		body := "x"
		if i%2 == 0 {
			body = "y"
		}
		require.NoError(t, r.Reset(gen(body)))
	}
	wg.Wait()
}

func TestSearch_ObserverOutcomes(t *testing.T) {
	obs := &recordingObserver{}
	r := New(WithObserver(obs))
	load(t, r, simple("a", "/a", "alpha"))

	r.Search(context.Background(), get("/a"))
	r.Search(context.Background(), get("/zzz"))

	assert.Equal(t, []string{"ok", "not_found"}, obs.outcomes)
}

func TestSearch_MatchCacheInvalidatedByUpdate(t *testing.T) {
	r := New()
	load(t, r, simple("a", "/a", "old"), simple("b", "^/.*$", "catch-all"))

	assert.Equal(t, []byte("old"), r.Search(context.Background(), get("/a")).Body)

	require.NoError(t, r.UpdateByIndex(0, simple("a", "/other", "moved")))
	assert.Equal(t, []byte("catch-all"), r.Search(context.Background(), get("/a")).Body)

	require.NoError(t, r.UpdateByIndex(0, simple("a", "/a", "new")))
	assert.Equal(t, []byte("new"), r.Search(context.Background(), get("/a")).Body)
}
