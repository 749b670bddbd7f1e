package admin

import "net/http"

func (a *API) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", a.handleList)
	mux.HandleFunc("POST /{$}", a.handleAppend)
	mux.HandleFunc("DELETE /{$}", a.handleDeleteAll)

	mux.HandleFunc("GET /{index}", a.handleGetByIndex)
	mux.HandleFunc("PUT /{index}", a.handleUpdateByIndex)
	mux.HandleFunc("DELETE /{index}", a.handleDeleteByIndex)

	mux.HandleFunc("GET /uuid/{uuid}", a.handleGetByUUID)
	mux.HandleFunc("PUT /uuid/{uuid}", a.handleUpdateByUUID)
	mux.HandleFunc("DELETE /uuid/{uuid}", a.handleDeleteByUUID)

	mux.HandleFunc("GET /yaml", a.handleYAML)
	mux.HandleFunc("GET /yaml/{index}", a.handleYAMLByIndex)
	mux.HandleFunc("GET /stats", a.handleStats)
	mux.HandleFunc("POST /refresh", a.handleRefresh)

	if a.metrics != nil {
		mux.Handle("GET /metrics", a.metrics)
	}
}
