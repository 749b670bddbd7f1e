package pattern

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Defaults used by the stub server.
const (
	DefaultSize = 500
	DefaultTTL  = time.Hour
)

// metaChars is the set of characters that make a string a regex candidate.
const metaChars = `$()*+.?[]\^{|}`

// entry caches a compilation outcome. A nil re records a failed compilation.
type entry struct {
	re *regexp.Regexp
}

// Cache compiles and caches patterns. It is safe for concurrent use.
type Cache struct {
	lru      *expirable.LRU[string, entry]
	onFailed func(pattern string, err error)
}

// New returns a cache holding at most size compiled patterns for at most ttl.
func New(size int, ttl time.Duration) *Cache {
	if size <= 0 {
		size = DefaultSize
	}
	return &Cache{lru: expirable.NewLRU[string, entry](size, nil, ttl)}
}

// OnCompileError registers a callback invoked when a stubbed pattern fails to
// compile. It must be set before the cache is shared.
func (c *Cache) OnCompileError(fn func(pattern string, err error)) {
	c.onFailed = fn
}

// IsPotentialRegex reports whether s is non-empty and contains at least one
// regular expression metacharacter.
func IsPotentialRegex(s string) bool {
	return s != "" && strings.ContainsAny(s, metaChars)
}

// Compile warms the cache for value if it looks like a pattern.
func (c *Cache) Compile(value string) {
	if IsPotentialRegex(value) {
		c.compiled(value)
	}
}

// Match reports whether pattern matches the whole subject. On success the
// whole match is recorded as <tokenName>.0 and each capturing group as
// <tokenName>.N in groups. Invalid patterns never match.
func (c *Cache) Match(pattern, subject, tokenName string, groups map[string]string) bool {
	re := c.compiled(pattern)
	if re == nil {
		return false
	}
	m := re.FindStringSubmatch(subject)
	if m == nil {
		return false
	}
	if groups != nil {
		for i, g := range m {
			groups[Token(tokenName, i)] = g
		}
	}
	return true
}

// Clear drops every cached pattern.
func (c *Cache) Clear() {
	c.lru.Purge()
}

// Len returns the number of cached patterns.
func (c *Cache) Len() int {
	return c.lru.Len()
}

func (c *Cache) compiled(pattern string) *regexp.Regexp {
	if e, ok := c.lru.Get(pattern); ok {
		return e.re
	}
	// The bare pattern is compiled first so an unbalanced group can never
	// escape the anchoring wrapper.
	re, err := regexp.Compile(pattern)
	if err == nil {
		re, err = regexp.Compile(`(?ms)\A(?:` + pattern + `)\z`)
	}
	if err != nil {
		if c.onFailed != nil {
			c.onFailed(pattern, err)
		}
		re = nil
	}
	c.lru.Add(pattern, entry{re: re})
	return re
}

// Token builds a template token name such as "url.1".
func Token(name string, idx int) string {
	return name + "." + strconv.Itoa(idx)
}
