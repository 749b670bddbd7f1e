package pattern

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsPotentialRegex(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"", false},
		{"plain", false},
		{"/resources/asn", false},
		{"key=value&other", false},
		{"^/resources/asn/.*$", true},
		{"/resources/(\\d+)", true},
		{"a|b", true},
		{"{\"name\":\"x\"}", true},
		{".", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsPotentialRegex(tt.input))
		})
	}
}

func TestMatch_WholeSubject(t *testing.T) {
	c := New(DefaultSize, DefaultTTL)

	tests := []struct {
		name    string
		pattern string
		subject string
		matches bool
	}{
		{"prefix with wildcard", "^/resources/asn/.*$", "/resources/asn/1", true},
		{"alphanumeric suffix", "^/resources/asn/.*$", "/resources/asn/eew97we9", true},
		{"empty suffix", "^/resources/asn/.*$", "/resources/asn/", true},
		{"case sensitive", "^/resources/asn/.*$", "/resources/ASN/1", false},
		{"partial match is not enough", "/resources/\\d", "/resources/12", false},
		{"dot matches newline", "first.*last", "first\nmiddle\nlast", true},
		{"multiline anchors", "^a$\n^b$", "a\nb", true},
		{"invalid pattern", "/resources/[", "/resources/[", false},
		{"alternation stays anchored", "a)|(b", "xb", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.matches, c.Match(tt.pattern, tt.subject, "url", map[string]string{}))
		})
	}
}

func TestMatch_RecordsGroups(t *testing.T) {
	c := New(DefaultSize, DefaultTTL)
	groups := map[string]string{}

	ok := c.Match(`^/account/(\d{5})/category/((\w+)-(\d+))$`, "/account/12345/category/milk-3", "url", groups)
	require.True(t, ok)

	assert.Equal(t, map[string]string{
		"url.0": "/account/12345/category/milk-3",
		"url.1": "12345",
		"url.2": "milk-3",
		"url.3": "milk",
		"url.4": "3",
	}, groups)
}

func TestMatch_NoGroupsOnFailure(t *testing.T) {
	c := New(DefaultSize, DefaultTTL)
	groups := map[string]string{}

	assert.False(t, c.Match(`^/account/(\d+)$`, "/account/abc", "url", groups))
	assert.Empty(t, groups)
}

func TestCache_CachesFailures(t *testing.T) {
	c := New(DefaultSize, DefaultTTL)
	var failures int
	c.OnCompileError(func(string, error) { failures++ })

	assert.False(t, c.Match("(unclosed", "(unclosed", "post", nil))
	assert.False(t, c.Match("(unclosed", "(unclosed", "post", nil))

	assert.Equal(t, 1, failures)
	assert.Equal(t, 1, c.Len())
}

func TestMatch_UnsupportedSyntax(t *testing.T) {
	c := New(DefaultSize, DefaultTTL)
	var failed []string
	c.OnCompileError(func(p string, _ error) { failed = append(failed, p) })

	for _, p := range []string{`^/a(?=/b)`, `^/a(?<!x)/b$`, `^(\w)\1$`, `^a++$`} {
		assert.False(t, c.Match(p, "/a/b", "url", nil), p)
	}
	assert.Len(t, failed, 4)
}

func TestCache_CompileAndClear(t *testing.T) {
	c := New(DefaultSize, DefaultTTL)

	c.Compile("plain")
	assert.Equal(t, 0, c.Len())

	c.Compile("^/a/.*$")
	c.Compile("^/b/.*$")
	assert.Equal(t, 2, c.Len())

	c.Clear()
	assert.Equal(t, 0, c.Len())
}

func TestCache_Bounded(t *testing.T) {
	c := New(2, time.Hour)

	c.Compile("^a$")
	c.Compile("^b$")
	c.Compile("^c$")

	assert.Equal(t, 2, c.Len())
}

func TestCache_ConcurrentMisses(t *testing.T) {
	c := New(DefaultSize, DefaultTTL)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			groups := map[string]string{}
			assert.True(t, c.Match(`^/items/(\d+)$`, "/items/7", "url", groups))
			assert.Equal(t, "7", groups["url.1"])
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, c.Len())
}

func TestToken(t *testing.T) {
	assert.Equal(t, "query.page.2", Token("query.page", 2))
}
