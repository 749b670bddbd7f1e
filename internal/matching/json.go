package matching

import (
	"strings"

	"github.com/ohler55/ojg/oj"
)

var jsonEscaper = strings.NewReplacer(`{`, `\{`, `}`, `\}`, `[`, `\[`, `]`, `\]`)

// jsonMatch compares two JSON documents structurally. When the documents
// differ, the stubbed body is retried as a regex with its braces and
// brackets escaped, so regex values inside a stubbed document still apply;
// when either side is not JSON, the raw bodies are compared as strings.
func (m *Matcher) jsonMatch(stubbed, asserting string, tokens map[string]string) bool {
	want, err := oj.ParseString(stubbed)
	if err != nil {
		m.degrade(DegradedJSON, "stubbed", err)
		return m.StringsMatch(stubbed, asserting, TokenPost, tokens)
	}
	got, err := oj.ParseString(asserting)
	if err != nil {
		m.degrade(DegradedJSON, "asserting", err)
		return m.StringsMatch(stubbed, asserting, TokenPost, tokens)
	}
	if jsonEqual(want, got) {
		return true
	}
	return m.StringsMatch(jsonEscaper.Replace(stubbed), asserting, TokenPost, tokens)
}

// jsonEqual reports whether got has exactly the structure of want. Object
// key order and array element order are ignored.
func jsonEqual(want, got any) bool {
	switch w := want.(type) {
	case map[string]any:
		g, ok := got.(map[string]any)
		if !ok || len(g) != len(w) {
			return false
		}
		for k, wv := range w {
			gv, ok := g[k]
			if !ok || !jsonEqual(wv, gv) {
				return false
			}
		}
		return true
	case []any:
		g, ok := got.([]any)
		if !ok || len(g) != len(w) {
			return false
		}
		used := make([]bool, len(g))
	next:
		for _, wv := range w {
			for i, gv := range g {
				if !used[i] && jsonEqual(wv, gv) {
					used[i] = true
					continue next
				}
			}
			return false
		}
		return true
	case nil:
		return got == nil
	default:
		if wn, ok := number(want); ok {
			gn, ok := number(got)
			return ok && wn == gn
		}
		return want == got
	}
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}

func (m *Matcher) degrade(reason, side string, err error) {
	m.observer.Degraded(reason)
	m.log.Debug("body comparison degraded", "reason", reason, "side", side, "error", err)
}
