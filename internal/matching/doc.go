// Package matching compares stubbed requests against incoming requests.
//
// Every comparison takes a stubbed side and an asserting side, and the two
// roles are never interchangeable:
//
//   - an empty stubbed value is a wildcard and matches anything
//   - an empty asserting value never satisfies a non-empty stubbed value
//   - maps use subset semantics: keys present only on the asserting side are
//     ignored
//
// A request matches when its URL, methods, body, headers and query all match,
// evaluated in that order with short-circuit AND. Capturing groups produced
// along the way are collected into a token map (url.N, post.N,
// query.<name>.N, headers.<name>.N) used later for response templating.
//
// # Bodies
//
// Body comparison is chosen by the asserting request's content type:
//
//   - JSON (application/json, application/*+json): structural equality, key
//     order ignored, array order ignored, no extra fields allowed
//   - XML (text/xml, application/*+xml): structural equality, element and
//     attribute order ignored, comments ignored, whitespace normalized, with
//     ${xmlunit.matchesRegex(...)} and ${xmlunit.ignore} placeholders
//   - anything else: regex or literal comparison
//
// Malformed bodies and invalid stubbed patterns never fail a search; they
// degrade to a regex or literal comparison and are reported to the Observer.
package matching
