package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProcess(t *testing.T) {
	tokens := map[string]string{
		"url.0":          "/account/123",
		"url.1":          "123",
		"query.page.1":   "2",
		"headers.x-id.1": "abc",
		"post.1":         "bob",
	}

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"no placeholders", "plain body", "plain body"},
		{"tight delimiters", "<%url.1%>", "123"},
		{"spaced delimiters", "id=<% url.1 %>", "id=123"},
		{"uneven whitespace", "<%   query.page.1%>", "2"},
		{"several tokens", `{"id":"<% url.1 %>","user":"<% post.1 %>","h":"<% headers.x-id.1 %>"}`, `{"id":"123","user":"bob","h":"abc"}`},
		{"repeated token", "<% url.1 %>-<% url.1 %>", "123-123"},
		{"unresolved left literal", "<% url.9 %>", "<% url.9 %>"},
		{"mixed resolved and unresolved", "<% url.0 %> <% post.2 %>", "/account/123 <% post.2 %>"},
		{"half delimiter", "<% url.1", "<% url.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Process(tt.input, tokens))
		})
	}
}

func TestProcess_NoTokens(t *testing.T) {
	assert.Equal(t, "<% url.1 %>", Process("<% url.1 %>", nil))
}

func TestProcessBytes(t *testing.T) {
	in := []byte("static")
	assert.Equal(t, in, ProcessBytes(in, map[string]string{"url.1": "x"}))
	assert.Equal(t, []byte("id=x"), ProcessBytes([]byte("id=<% url.1 %>"), map[string]string{"url.1": "x"}))
}

func TestProcessHeaders(t *testing.T) {
	headers := map[string]string{"location": "/items/<% url.1 %>", "content-type": "text/plain"}
	out := ProcessHeaders(headers, map[string]string{"url.1": "7"})

	assert.Equal(t, map[string]string{"location": "/items/7", "content-type": "text/plain"}, out)
	assert.Equal(t, "/items/<% url.1 %>", headers["location"])
}

func TestIsTemplated(t *testing.T) {
	assert.True(t, IsTemplated("/data/<% url.1 %>.json"))
	assert.False(t, IsTemplated("/data/file.json"))
	assert.False(t, IsTemplated("<% %>"))
}
