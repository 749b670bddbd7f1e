package matching

import (
	"log/slog"
	"slices"
	"strings"

	"github.com/getmockd/stubd/internal/pattern"
	"github.com/getmockd/stubd/pkg/logging"
	"github.com/getmockd/stubd/pkg/stub"
)

// Token name prefixes.
const (
	TokenURL     = "url"
	TokenPost    = "post"
	TokenQuery   = "query"
	TokenHeaders = "headers"
)

// Degradation reasons reported to an Observer.
const (
	DegradedPattern = "pattern_compile"
	DegradedJSON    = "json_parse"
	DegradedXML     = "xml_parse"
)

// Observer is notified when a comparison degrades to a weaker strategy.
type Observer interface {
	Degraded(reason string)
}

type nopObserver struct{}

func (nopObserver) Degraded(string) {}

// Matcher compares stubbed requests with asserting requests. It is safe for
// concurrent use.
type Matcher struct {
	patterns *pattern.Cache
	log      *slog.Logger
	observer Observer
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(m *Matcher) {
		if log != nil {
			m.log = log
		}
	}
}

// WithObserver sets the degradation observer.
func WithObserver(o Observer) Option {
	return func(m *Matcher) {
		if o != nil {
			m.observer = o
		}
	}
}

// New creates a Matcher backed by the given pattern cache.
func New(patterns *pattern.Cache, opts ...Option) *Matcher {
	m := &Matcher{
		patterns: patterns,
		log:      logging.Nop(),
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Matches reports whether asserting satisfies every criterion of stubbed.
// Capturing groups are written to tokens.
func (m *Matcher) Matches(stubbed, asserting *stub.Request, tokens map[string]string) bool {
	if !m.StringsMatch(stubbed.URL(), asserting.URL(), TokenURL, tokens) {
		return false
	}
	if len(stubbed.Methods()) > 0 && !ListsIntersect(stubbed.Methods(), asserting.Methods()) {
		return false
	}
	if stubbed.IsBodyStubbed() && !m.PostBodiesMatch(true, stubbed.Body(), asserting, tokens) {
		return false
	}
	if len(stubbed.Headers()) > 0 && !m.headersMatch(stubbed.Headers(), asserting.Headers(), tokens) {
		return false
	}
	if len(stubbed.Query()) > 0 && !m.MapsMatch(stubbed.Query(), asserting.Query(), TokenQuery, tokens) {
		return false
	}
	return true
}

// headersMatch skips the stubbed authorization keys, which are enforced
// after a match.
func (m *Matcher) headersMatch(stubbed, asserting map[string]string, tokens map[string]string) bool {
	filtered := make(map[string]string, len(stubbed))
	for k, v := range stubbed {
		if !stub.IsAuthHeaderKey(k) {
			filtered[k] = v
		}
	}
	return m.MapsMatch(filtered, asserting, TokenHeaders, tokens)
}

// StringsMatch compares a stubbed value with an asserting value. An empty
// stubbed value matches anything; an empty asserting value matches nothing
// else. Regex-like stubbed values are tried as patterns first and fall back
// to exact equality.
func (m *Matcher) StringsMatch(stubbed, asserting, tokenName string, tokens map[string]string) bool {
	if stubbed == "" {
		return true
	}
	if asserting == "" {
		return false
	}
	if pattern.IsPotentialRegex(stubbed) && m.patterns.Match(stubbed, asserting, tokenName, tokens) {
		return true
	}
	return stubbed == asserting
}

// ListsIntersect reports whether the lists share an element. An empty
// stubbed list matches anything.
func ListsIntersect(stubbed, asserting []string) bool {
	if len(stubbed) == 0 {
		return true
	}
	for _, a := range asserting {
		if slices.Contains(stubbed, a) {
			return true
		}
	}
	return false
}

// MapsMatch reports whether every stubbed key is present in asserting with a
// matching value. Values are compared with StringsMatch under the token name
// <prefix>.<key>.
func (m *Matcher) MapsMatch(stubbed, asserting map[string]string, prefix string, tokens map[string]string) bool {
	if len(stubbed) == 0 {
		return true
	}
	if len(asserting) == 0 {
		return false
	}
	for key, want := range stubbed {
		got, ok := lookup(asserting, key)
		if !ok {
			return false
		}
		if !m.StringsMatch(want, got, prefix+"."+key, tokens) {
			return false
		}
	}
	return true
}

func lookup(values map[string]string, key string) (string, bool) {
	if v, ok := values[key]; ok {
		return v, true
	}
	for k, v := range values {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return "", false
}
