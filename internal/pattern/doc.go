// Package pattern compiles and caches the regular expressions used when
// matching stubbed values against incoming requests.
//
// A stubbed value is treated as a pattern only when it looks like one
// (see IsPotentialRegex). Patterns are compiled in multi-line, dot-all mode
// and must match the whole subject:
//
//	c := pattern.New(pattern.DefaultSize, pattern.DefaultTTL)
//	tokens := map[string]string{}
//	c.Match(`^/resources/(\d+)$`, "/resources/42", "url", tokens)
//	// tokens["url.0"] == "/resources/42", tokens["url.1"] == "42"
//
// # Caching
//
// Compiled patterns, including patterns that failed to compile, are kept in
// a size-bounded cache whose entries expire after a TTL. The cache is owned
// by whoever constructs it and is cleared on every configuration reload, so
// memory is bounded by the number of distinct stubbed values that are live
// at any time. Concurrent misses on the same pattern may compile it twice;
// the last writer wins.
//
// # Syntax
//
// Patterns use Go's RE2 syntax. Constructs RE2 does not support, such as
// lookahead and lookbehind, backreferences and possessive quantifiers, fail
// to compile, and Match reports false for them. The matcher then compares the
// stubbed value literally, so a stub relying on them matches only a subject
// equal to the pattern text. Each such failure is reported once per cache
// entry through OnCompileError.
package pattern
