package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.SearchCompleted("ok", 5*time.Millisecond)
	m.SearchCompleted("ok", time.Millisecond)
	m.SearchCompleted("not_found", time.Millisecond)
	m.Degraded("json_parse")
	m.Recorded(nil)
	m.Recorded(errors.New("timeout"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Searches.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Searches.WithLabelValues("not_found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Degradations.WithLabelValues("json_parse")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Recordings.WithLabelValues(ResultSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Recordings.WithLabelValues(ResultFailure)))
}

func TestMetrics_Reloaded(t *testing.T) {
	m := New()

	m.Reloaded(3, nil)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Stubs))

	m.Reloaded(0, errors.New("bad yaml"))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Stubs))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Reloads.WithLabelValues(ResultFailure)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Reloads.WithLabelValues(ResultSuccess)))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.SetStubs(2)
	m.SearchCompleted("ok", time.Millisecond)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "stubd_stubs 2")
	assert.Contains(t, string(body), `stubd_searches_total{outcome="ok"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestNew_IndependentRegistries(t *testing.T) {
	a, b := New(), New()
	a.SetStubs(1)
	b.SetStubs(5)

	assert.Equal(t, 1.0, testutil.ToFloat64(a.Stubs))
	assert.Equal(t, 5.0, testutil.ToFloat64(b.Stubs))
}
