package template

import (
	"regexp"
	"strings"
)

// tokenRegex matches <% token %> placeholders with optional whitespace.
var tokenRegex = regexp.MustCompile(`<%\s*([^%\s]+)\s*%>`)

// IsTemplated reports whether s contains a placeholder.
func IsTemplated(s string) bool {
	return strings.Contains(s, "<%") && tokenRegex.MatchString(s)
}

// Process replaces every placeholder in s whose token is present in tokens.
func Process(s string, tokens map[string]string) string {
	if len(tokens) == 0 || !strings.Contains(s, "<%") {
		return s
	}
	return tokenRegex.ReplaceAllStringFunc(s, func(match string) string {
		sm := tokenRegex.FindStringSubmatch(match)
		if v, ok := tokens[sm[1]]; ok {
			return v
		}
		return match
	})
}

// ProcessBytes is Process for byte slices. The input is returned unchanged
// when it holds no placeholder.
func ProcessBytes(b []byte, tokens map[string]string) []byte {
	if len(tokens) == 0 || !strings.Contains(string(b), "<%") {
		return b
	}
	return []byte(Process(string(b), tokens))
}

// ProcessHeaders returns a copy of headers with placeholders replaced in
// every value.
func ProcessHeaders(headers map[string]string, tokens map[string]string) map[string]string {
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		out[k] = Process(v, tokens)
	}
	return out
}
