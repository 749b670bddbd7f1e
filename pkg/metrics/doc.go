// Package metrics exposes Prometheus collectors for the stub server.
//
// A Metrics value owns its own registry so several servers (and tests) can
// run in one process. Serve it with Handler:
//
//	m := metrics.New()
//	mux.Handle("/metrics", m.Handler())
//
// # Collected series
//
//   - stubd_searches_total{outcome}: repository searches by outcome (ok,
//     not_found, unauthorized, redirect, proxied)
//   - stubd_search_duration_seconds{outcome}: search latency
//   - stubd_degradations_total{reason}: comparisons that fell back to a weaker
//     strategy (pattern_compile, json_parse, xml_parse)
//   - stubd_recordings_total{result}: recording fetches (success, failure)
//   - stubd_reloads_total{result}: configuration reloads (success, failure)
//   - stubd_stubs: number of stubs currently loaded
//
// Go runtime and process collectors are registered as well.
package metrics
