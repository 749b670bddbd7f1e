package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/getmockd/stubd/pkg/stub"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const basicYAML = `# accounts
- description: account lookup
  uuid: account
  request:
    url: ^/accounts/(\d+)$
    method: [get, HEAD]
    headers:
      Content-Type: application/json
      authorization-basic: "bob:secret"
    query:
      page: 1
  response:
    status: 200
    latency: 25
    headers:
      X-Id: <% url.1 %>
    body: '{"id": "<% url.1 %>"}'

- request:
    url: /sequence
    method: POST
    post: hello
  response:
    - status: "201"
      body: first
    - status: 500
`

func TestParseFile_Basic(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "stubs.yaml", basicYAML)

	res, err := NewParser().ParseFile(path)
	require.NoError(t, err)
	require.Len(t, res.Collection.Stubs, 2)
	assert.Equal(t, []string{path}, res.Files)

	first := res.Collection.Stubs[0]
	assert.Equal(t, "account", first.UUID())
	assert.Equal(t, "account lookup", first.Description())
	req := first.Request()
	assert.Equal(t, `^/accounts/(\d+)$`, req.URL())
	assert.Equal(t, []string{"GET", "HEAD"}, req.Methods())
	assert.Equal(t, "application/json", req.Headers()["content-type"])
	assert.Equal(t, "1", req.Query()["page"])
	assert.Equal(t, stub.AuthBasic, req.Authorization().Type)

	resp := first.Responses()[0]
	assert.Equal(t, 200, resp.Status())
	assert.Equal(t, 25*time.Millisecond, resp.Latency())
	assert.Equal(t, "<% url.1 %>", resp.Headers()["x-id"])
	assert.Equal(t, `{"id": "<% url.1 %>"}`, string(resp.Body()))

	second := res.Collection.Stubs[1]
	assert.NotEmpty(t, second.UUID())
	assert.True(t, second.IsSequence())
	assert.Equal(t, 201, second.Responses()[0].Status())
	assert.Equal(t, 500, second.Responses()[1].Status())
	assert.Equal(t, "hello", second.Request().Post())
	assert.Same(t, second, res.Collection.UUIDs[second.UUID()])
}

func TestParseFile_Snippets(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "stubs.yaml", basicYAML)

	res, err := NewParser().ParseFile(path)
	require.NoError(t, err)

	assert.Equal(t, `- description: account lookup
  uuid: account
  request:
    url: ^/accounts/(\d+)$
    method: [get, HEAD]
    headers:
      Content-Type: application/json
      authorization-basic: "bob:secret"
    query:
      page: 1
  response:
    status: 200
    latency: 25
    headers:
      X-Id: <% url.1 %>
    body: '{"id": "<% url.1 %>"}'
`, res.Collection.Stubs[0].YAML())

	again, err := NewParser().Parse([]byte(res.Collection.Stubs[1].YAML()), dir)
	require.NoError(t, err)
	require.Len(t, again.Collection.Stubs, 1)
	assert.Equal(t, "/sequence", again.Collection.Stubs[0].Request().URL())
	assert.Len(t, again.Collection.Stubs[0].Responses(), 2)
}

func TestParse_FlowStyleSnippet(t *testing.T) {
	res, err := NewParser().Parse([]byte(`[{request: {url: /a}}, {request: {url: /b}}]`), "")
	require.NoError(t, err)
	require.Len(t, res.Collection.Stubs, 2)
	assert.Contains(t, res.Collection.Stubs[1].YAML(), "/b")
	assert.NotContains(t, res.Collection.Stubs[1].YAML(), "/a")
}

func TestParseFile_DefaultResponse(t *testing.T) {
	res, err := NewParser().Parse([]byte("- request:\n    url: /bare\n"), "")
	require.NoError(t, err)

	l := res.Collection.Stubs[0]
	require.Len(t, l.Responses(), 1)
	assert.Equal(t, 200, l.Responses()[0].Status())
	assert.Empty(t, l.Request().Methods())
}

func TestParseFile_BodyFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "data/request.json", `{"q": 1}`)
	writeFile(t, dir, "data/response.json", `{"ok": true}`)
	path := writeFile(t, dir, "stubs.yaml", `
- request:
    url: /files
    post: ignored
    file: data/request.json
  response:
    - body: inline
      file: data/response.json
    - body: fallback
      file: data/missing.json
    - file: data/<% url.1 %>.json
`)

	res, err := NewParser().ParseFile(path)
	require.NoError(t, err)

	l := res.Collection.Stubs[0]
	assert.Equal(t, filepath.Join(dir, "data", "request.json"), l.Request().FilePath())
	assert.Equal(t, `{"q": 1}`, l.Request().Body())

	resp := l.Responses()
	assert.Equal(t, `{"ok": true}`, string(resp[0].Body()))
	assert.Equal(t, "fallback", string(resp[1].Body()))
	assert.Equal(t, filepath.Join(dir, "data", "<% url.1 %>.json"), resp[2].FilePath())
}

func TestParseFile_ProxyConfigs(t *testing.T) {
	res, err := NewParser().Parse([]byte(`
- proxy-config:
    description: catch all
    properties:
      endpoint: https://origin.example.com
- proxy-config:
    uuid: tagged
    strategy: additive
    properties:
      endpoint: http://other.example.com
    headers:
      x-api-key: secret
- request:
    url: /a
`), "")
	require.NoError(t, err)

	c := res.Collection
	require.Len(t, c.Stubs, 1)
	require.Len(t, c.Proxies, 2)
	def := c.Proxies[stub.DefaultProxyUUID]
	require.NotNil(t, def)
	assert.Equal(t, stub.ProxyAsIs, def.Strategy)
	assert.Equal(t, "https://origin.example.com", def.Endpoint)
	assert.Equal(t, "catch all", def.Description)
	assert.Contains(t, def.YAML, "proxy-config")

	tagged := c.Proxies["tagged"]
	require.NotNil(t, tagged)
	assert.Equal(t, stub.ProxyAdditive, tagged.Strategy)
	assert.Equal(t, "secret", tagged.Headers["x-api-key"])
}

func TestParseFile_Errors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
		want    error
	}{
		{"empty", "", ErrEmptyFile},
		{"comments only", "# nothing here\n", ErrEmptyFile},
		{"broken yaml", "- request: [\n", ErrInvalidYAML},
		{"unknown key", "- request:\n    url: /a\n    colour: red\n", ErrSchema},
		{"missing url", "- request:\n    method: GET\n", ErrSchema},
		{"response without request", "- response:\n    status: 200\n", ErrSchema},
		{"bad status", "- request:\n    url: /a\n  response:\n    status: 999\n", ErrSchema},
		{"bad strategy", "- proxy-config:\n    strategy: sideways\n    properties:\n      endpoint: http://x\n", ErrSchema},
		{"duplicate stub uuid", "- uuid: x\n  request:\n    url: /a\n- uuid: x\n  request:\n    url: /b\n", ErrDuplicateUUID},
		{"duplicate proxy", "- proxy-config:\n    properties:\n      endpoint: http://a\n- proxy-config:\n    uuid: default\n    properties:\n      endpoint: http://b\n", ErrDuplicateUUID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, tt.name+".yaml", tt.content)
			_, err := NewParser().ParseFile(path)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParseFile_NotFound(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestParseFile_SchemaErrorLocation(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "stubs.yaml", "- request:\n    url: /a\n- request:\n    url: /b\n    colour: red\n")

	_, err := NewParser().ParseFile(path)
	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, path, pe.File)
	assert.Equal(t, "/1/request", pe.Path)
	assert.Equal(t, 4, pe.Line)
	assert.Contains(t, pe.Error(), "stubs.yaml:4")
}

func TestParse_CustomReader(t *testing.T) {
	files := map[string]string{"/virtual/body.txt": "virtual"}
	p := NewParser(WithFileReader(func(path string) ([]byte, error) {
		if s, ok := files[path]; ok {
			return []byte(s), nil
		}
		return nil, os.ErrNotExist
	}))

	res, err := p.Parse([]byte("- request:\n    url: /v\n  response:\n    file: body.txt\n"), "/virtual")
	require.NoError(t, err)
	assert.Equal(t, "virtual", string(res.Collection.Stubs[0].Responses()[0].Body()))
}
