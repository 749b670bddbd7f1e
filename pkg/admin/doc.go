// Package admin implements the admin-port HTTP API.
//
// Stubs are addressed by resource ID (their current index) or by UUID:
//
//	GET    /                 all stubs as JSON
//	POST   /                 append stubs from a YAML body
//	DELETE /                 delete every stub
//	GET    /{index}          one stub
//	PUT    /{index}          replace a stub from a YAML body
//	DELETE /{index}          delete a stub
//	GET    /uuid/{uuid}      one stub
//	PUT    /uuid/{uuid}      replace a stub
//	DELETE /uuid/{uuid}      delete a stub
//	GET    /yaml             the whole configuration
//	GET    /yaml/{index}     the configuration of one stub
//	GET    /stats            hit counts as CSV
//	POST   /refresh          reload the configuration from disk
//	GET    /metrics          Prometheus metrics
package admin
