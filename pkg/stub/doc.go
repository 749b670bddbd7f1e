// Package stub defines the stub entity model: the stubbed request criteria,
// the candidate responses and the lifecycle pairing them.
//
// Values are built once, through RequestBuilder, ResponseBuilder and
// LifecycleBuilder, and are read-only afterwards. The same Request type
// describes both sides of a comparison:
//
//   - a stubbed Request comes from configuration and lives as long as the
//     repository snapshot holding it
//   - an asserting Request is built per incoming call from an Incoming value
//     and discarded once the search is over
//
// Comparison is never symmetric. Empty stubbed fields act as wildcards while
// empty asserting fields simply carry no value; see package matching.
//
// The only mutable state reachable from a built value is the recorded body
// of a recording-eligible Response, which is written at most once.
package stub
