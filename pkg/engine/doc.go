// Package engine serves stubbed responses on the stubs port.
//
// Handler converts each *http.Request into a stub.Incoming, asks a Searcher
// for the result and writes it back, honoring configured latency. Server
// runs any handler over HTTP/1.1 and cleartext HTTP/2, or over HTTPS when
// configured with WithTLS.
package engine
