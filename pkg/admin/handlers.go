package admin

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/getmockd/stubd/pkg/httputil"
	"github.com/getmockd/stubd/pkg/repository"
	"github.com/getmockd/stubd/pkg/stub"
)

var (
	errNoStubs        = errors.New("request body defines no stubs")
	errProxyInBody    = errors.New("proxy-config entries can only be loaded from the configuration file")
	errExpectedOne    = errors.New("request body must define exactly one stub")
	errReloadDisabled = errors.New("no configuration file to reload from")
)

// MessageResponse acknowledges a mutation.
type MessageResponse struct {
	Message    string   `json:"message"`
	ResourceID *int     `json:"resourceId,omitempty"`
	UUIDs      []string `json:"uuids,omitempty"`
	Stubs      *int     `json:"stubs,omitempty"`
}

func (a *API) handleList(w http.ResponseWriter, _ *http.Request) {
	stats := a.repo.ResourceStats()
	stubs := a.repo.Stubs()
	out := make([]StubView, len(stubs))
	for i, l := range stubs {
		out[i] = newStubView(i, l, stats[i])
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (a *API) handleGetByIndex(w http.ResponseWriter, r *http.Request) {
	idx, ok := pathIndex(w, r)
	if !ok {
		return
	}
	l, err := a.repo.StubByIndex(idx)
	if err != nil {
		writeRepoErr(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, newStubView(idx, l, a.repo.ResourceStats()[idx]))
}

func (a *API) handleGetByUUID(w http.ResponseWriter, r *http.Request) {
	l, idx, err := a.repo.StubByUUID(r.PathValue("uuid"))
	if err != nil {
		writeRepoErr(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, newStubView(idx, l, a.repo.ResourceStats()[idx]))
}

func (a *API) handleAppend(w http.ResponseWriter, r *http.Request) {
	stubs, err := a.readStubs(w, r)
	if err != nil {
		httputil.WriteBadRequest(w, "invalid_stub", err.Error())
		return
	}
	if err := a.repo.Append(stubs...); err != nil {
		writeRepoErr(w, err)
		return
	}
	uuids := make([]string, len(stubs))
	for i, l := range stubs {
		uuids[i] = l.UUID()
	}
	a.log.Info("stubs appended", "count", len(stubs))
	httputil.WriteJSON(w, http.StatusCreated, MessageResponse{
		Message: fmt.Sprintf("%d stub(s) added", len(stubs)),
		UUIDs:   uuids,
	})
}

func (a *API) handleUpdateByIndex(w http.ResponseWriter, r *http.Request) {
	idx, ok := pathIndex(w, r)
	if !ok {
		return
	}
	l, ok := a.readOne(w, r)
	if !ok {
		return
	}
	if err := a.repo.UpdateByIndex(idx, l); err != nil {
		writeRepoErr(w, err)
		return
	}
	a.log.Info("stub updated", "index", idx, "uuid", l.UUID())
	httputil.WriteJSON(w, http.StatusOK, MessageResponse{
		Message:    fmt.Sprintf("Stub request index#%d updated successfully", idx),
		ResourceID: &idx,
		UUIDs:      []string{l.UUID()},
	})
}

func (a *API) handleUpdateByUUID(w http.ResponseWriter, r *http.Request) {
	u := r.PathValue("uuid")
	l, ok := a.readOne(w, r)
	if !ok {
		return
	}
	if err := a.repo.UpdateByUUID(u, l); err != nil {
		writeRepoErr(w, err)
		return
	}
	a.log.Info("stub updated", "uuid", u, "new_uuid", l.UUID())
	httputil.WriteJSON(w, http.StatusOK, MessageResponse{
		Message: fmt.Sprintf("Stub request uuid#%s updated successfully", u),
		UUIDs:   []string{l.UUID()},
	})
}

func (a *API) handleDeleteByIndex(w http.ResponseWriter, r *http.Request) {
	idx, ok := pathIndex(w, r)
	if !ok {
		return
	}
	removed, err := a.repo.DeleteByIndex(idx)
	if err != nil {
		writeRepoErr(w, err)
		return
	}
	a.log.Info("stub deleted", "index", idx, "uuid", removed.UUID())
	httputil.WriteJSON(w, http.StatusOK, MessageResponse{
		Message:    fmt.Sprintf("Stub request index#%d deleted successfully", idx),
		ResourceID: &idx,
		UUIDs:      []string{removed.UUID()},
	})
}

func (a *API) handleDeleteByUUID(w http.ResponseWriter, r *http.Request) {
	u := r.PathValue("uuid")
	if _, err := a.repo.DeleteByUUID(u); err != nil {
		writeRepoErr(w, err)
		return
	}
	a.log.Info("stub deleted", "uuid", u)
	httputil.WriteJSON(w, http.StatusOK, MessageResponse{
		Message: fmt.Sprintf("Stub request uuid#%s deleted successfully", u),
		UUIDs:   []string{u},
	})
}

func (a *API) handleDeleteAll(w http.ResponseWriter, _ *http.Request) {
	if err := a.repo.DeleteAll(); err != nil {
		writeRepoErr(w, err)
		return
	}
	a.log.Info("all stubs deleted")
	httputil.WriteJSON(w, http.StatusOK, MessageResponse{Message: "All in-memory stubs deleted successfully"})
}

func (a *API) handleYAML(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteText(w, http.StatusOK, "application/yaml; charset=utf-8", a.repo.YAML())
}

func (a *API) handleYAMLByIndex(w http.ResponseWriter, r *http.Request) {
	idx, ok := pathIndex(w, r)
	if !ok {
		return
	}
	y, err := a.repo.StubYAMLByIndex(idx)
	if err != nil {
		writeRepoErr(w, err)
		return
	}
	httputil.WriteText(w, http.StatusOK, "application/yaml; charset=utf-8", y)
}

func (a *API) handleStats(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteText(w, http.StatusOK, "text/csv; charset=utf-8", a.repo.ResourceStatsCSV())
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if a.reload == nil {
		httputil.WriteError(w, http.StatusNotImplemented, "reload_unavailable", errReloadDisabled.Error())
		return
	}
	n, err := a.reload(r.Context())
	if err != nil {
		a.log.Error("configuration reload failed", "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "reload_failed", err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, MessageResponse{
		Message: "Configuration reloaded",
		Stubs:   &n,
	})
}

// readStubs parses the YAML request body.
func (a *API) readStubs(w http.ResponseWriter, r *http.Request) ([]*stub.Lifecycle, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, a.maxBody))
	if err != nil {
		return nil, fmt.Errorf("reading request body: %w", err)
	}
	res, err := a.parser.Parse(data, a.baseDir)
	if err != nil {
		return nil, err
	}
	if len(res.Collection.Proxies) > 0 {
		return nil, errProxyInBody
	}
	if len(res.Collection.Stubs) == 0 {
		return nil, errNoStubs
	}
	return res.Collection.Stubs, nil
}

func (a *API) readOne(w http.ResponseWriter, r *http.Request) (*stub.Lifecycle, bool) {
	stubs, err := a.readStubs(w, r)
	if err == nil && len(stubs) != 1 {
		err = errExpectedOne
	}
	if err != nil {
		httputil.WriteBadRequest(w, "invalid_stub", err.Error())
		return nil, false
	}
	return stubs[0], true
}

func pathIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.PathValue("index")
	idx, err := strconv.Atoi(raw)
	if err != nil {
		httputil.WriteBadRequest(w, "invalid_index", fmt.Sprintf("resource ID %q is not a number", raw))
		return 0, false
	}
	return idx, true
}

func writeRepoErr(w http.ResponseWriter, err error) {
	code := "internal_error"
	switch {
	case errors.Is(err, repository.ErrInvalidIndex):
		code = "invalid_index"
	case errors.Is(err, repository.ErrUnknownUUID):
		code = "unknown_uuid"
	case errors.Is(err, repository.ErrDuplicateUUID):
		code = "duplicate_uuid"
	}
	httputil.WriteErr(w, code, err)
}
