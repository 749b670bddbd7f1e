// Package template substitutes <% token %> placeholders in stub responses.
//
// Tokens are produced while an incoming request is matched against a stub:
//
//   - url.N: capturing group N of the stubbed URL pattern
//   - query.<name>.N: group N of the stubbed query parameter <name>
//   - headers.<name>.N: group N of the stubbed header <name>
//   - post.N: group N of the stubbed body pattern
//
// Group 0 always holds the whole match. Whitespace inside the delimiters is
// optional. A placeholder without a matching token is left untouched.
package template
