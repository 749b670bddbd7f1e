package stub

import (
	"encoding/base64"
	"net/url"
	"slices"
	"strings"
)

// HTTP methods whose stubbed body takes part in matching.
var bodyMethods = []string{"POST", "PUT", "PATCH"}

// HeaderAuthorization is the raw header compared against a stub's
// authorization requirement.
const HeaderAuthorization = "authorization"

// AuthType identifies how a stub's authorization requirement is expressed.
type AuthType int

// Authorization types.
const (
	AuthNone AuthType = iota
	AuthBasic
	AuthBearer
	AuthCustom
)

// authHeaderKeys maps the stubbed header keys to the authorization types,
// in lookup order.
var authHeaderKeys = []struct {
	key string
	typ AuthType
}{
	{"authorization-basic", AuthBasic},
	{"authorization-bearer", AuthBearer},
	{"authorization-custom", AuthCustom},
}

// IsAuthHeaderKey reports whether key is one of the stubbed authorization keys.
func IsAuthHeaderKey(key string) bool {
	for _, a := range authHeaderKeys {
		if a.key == key {
			return true
		}
	}
	return false
}

// String returns the configuration key of the authorization type.
func (t AuthType) String() string {
	for _, a := range authHeaderKeys {
		if a.typ == t {
			return a.key
		}
	}
	return "none"
}

// Authorization is the expected raw Authorization header of a secured stub.
type Authorization struct {
	Type     AuthType
	Expected string
}

// Request holds the matching criteria of a stub, or the attributes of an
// incoming request being asserted against stubs.
type Request struct {
	url      string
	methods  []string
	post     string
	file     []byte
	filePath string
	headers  map[string]string
	query    map[string]string
	rawQuery string
	auth     Authorization
}

// URL returns the stubbed or requested path.
func (r *Request) URL() string { return r.url }

// Methods returns the upper-cased HTTP methods.
func (r *Request) Methods() []string { return r.methods }

// Post returns the inline body as configured.
func (r *Request) Post() string { return r.post }

// FilePath returns the resolved path of the body file, if any.
func (r *Request) FilePath() string { return r.filePath }

// Headers returns headers keyed by lower-cased name.
func (r *Request) Headers() map[string]string { return r.headers }

// Query returns the query parameters.
func (r *Request) Query() map[string]string { return r.query }

// Authorization returns the stubbed authorization requirement.
func (r *Request) Authorization() Authorization { return r.auth }

// IsSecured reports whether the request carries an authorization requirement.
func (r *Request) IsSecured() bool { return r.auth.Type != AuthNone }

// RawAuthorization returns the raw Authorization header value.
func (r *Request) RawAuthorization() string { return r.headers[HeaderAuthorization] }

// Body returns the body used in comparisons. Non-empty file content wins
// over the inline body.
func (r *Request) Body() string {
	if len(r.file) > 0 {
		return string(r.file)
	}
	return r.post
}

// IsBodyStubbed reports whether the body takes part in matching: it must be
// set and the stub must accept POST, PUT or PATCH.
func (r *Request) IsBodyStubbed() bool {
	if r.Body() == "" {
		return false
	}
	for _, m := range bodyMethods {
		if slices.Contains(r.methods, m) {
			return true
		}
	}
	return false
}

// FullURL returns the URL with its query string.
func (r *Request) FullURL() string {
	if r.rawQuery != "" {
		return r.url + "?" + r.rawQuery
	}
	if len(r.query) == 0 {
		return r.url
	}
	keys := make([]string, 0, len(r.query))
	for k := range r.query {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(r.query[k])
	}
	return r.url + "?" + sb.String()
}

// RequestBuilder assembles a Request.
type RequestBuilder struct {
	r Request
}

// NewRequestBuilder returns an empty builder.
func NewRequestBuilder() *RequestBuilder {
	return &RequestBuilder{r: Request{
		headers: map[string]string{},
		query:   map[string]string{},
	}}
}

// URL sets the path.
func (b *RequestBuilder) URL(u string) *RequestBuilder {
	b.r.url = u
	return b
}

// Method adds accepted methods. Duplicates are dropped.
func (b *RequestBuilder) Method(methods ...string) *RequestBuilder {
	for _, m := range methods {
		m = strings.ToUpper(strings.TrimSpace(m))
		if m != "" && !slices.Contains(b.r.methods, m) {
			b.r.methods = append(b.r.methods, m)
		}
	}
	return b
}

// Post sets the inline body.
func (b *RequestBuilder) Post(body string) *RequestBuilder {
	b.r.post = body
	return b
}

// File sets the body file path and its loaded content.
func (b *RequestBuilder) File(path string, content []byte) *RequestBuilder {
	b.r.filePath = path
	b.r.file = content
	return b
}

// Header sets a header. The key is lower-cased.
func (b *RequestBuilder) Header(key, value string) *RequestBuilder {
	b.r.headers[strings.ToLower(key)] = value
	return b
}

// Query sets a query parameter.
func (b *RequestBuilder) Query(key, value string) *RequestBuilder {
	b.r.query[key] = value
	return b
}

// RawQuery parses a raw query string into query parameters and keeps the raw
// form for FullURL.
func (b *RequestBuilder) RawQuery(raw string) *RequestBuilder {
	b.r.rawQuery = raw
	for k, v := range ParseQuery(raw) {
		b.r.query[k] = v
	}
	return b
}

// Build returns the Request. The builder must not be reused.
func (b *RequestBuilder) Build() *Request {
	r := b.r
	r.auth = stubbedAuthorization(r.headers)
	return &r
}

func stubbedAuthorization(headers map[string]string) Authorization {
	for _, a := range authHeaderKeys {
		v, ok := headers[a.key]
		if !ok {
			continue
		}
		v = strings.TrimSpace(v)
		switch a.typ {
		case AuthBasic:
			return Authorization{Type: AuthBasic, Expected: "Basic " + base64.StdEncoding.EncodeToString([]byte(v))}
		case AuthBearer:
			return Authorization{Type: AuthBearer, Expected: "Bearer " + v}
		default:
			return Authorization{Type: AuthCustom, Expected: v}
		}
	}
	return Authorization{}
}

// ParseQuery splits a raw query string into parameters. Bracketed array
// values such as [%22a%22,%20%22b%22] are normalized to ["a","b"]. Keys and
// values are URL-decoded; one that fails to decode is kept as is. A repeated
// parameter keeps its last value.
func ParseQuery(raw string) map[string]string {
	params := map[string]string{}
	if raw == "" {
		return params
	}
	for _, pair := range strings.Split(raw, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		if strings.HasPrefix(value, "[") && strings.HasSuffix(value, "]") {
			value = normalizeArray(value)
		}
		params[unescape(key)] = unescape(value)
	}
	return params
}

func unescape(s string) string {
	if decoded, err := url.QueryUnescape(s); err == nil {
		return decoded
	}
	return s
}

func normalizeArray(value string) string {
	inner := strings.TrimSuffix(strings.TrimPrefix(value, "["), "]")
	inner = strings.ReplaceAll(inner, "%22", `"`)
	parts := strings.Split(inner, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(strings.ReplaceAll(p, "%20", " "))
	}
	return "[" + strings.Join(parts, ",") + "]"
}
