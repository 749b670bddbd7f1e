package stub

// Proxy headers exchanged with a proxied origin.
const (
	HeaderProxyConfig   = "x-stubby4j-proxy-config-uuid"
	HeaderProxyRequest  = "x-stubby4j-proxy-request-uuid"
	HeaderProxyResponse = "x-stubby4j-proxy-response-uuid"
)

// DefaultProxyUUID names the catch-all proxy config.
const DefaultProxyUUID = "default"

// ProxyStrategy controls how an unmatched request is forwarded.
type ProxyStrategy string

// Proxy strategies.
const (
	ProxyAsIs     ProxyStrategy = "as-is"
	ProxyAdditive ProxyStrategy = "additive"
)

// Valid reports whether s is a known strategy.
func (s ProxyStrategy) Valid() bool {
	return s == ProxyAsIs || s == ProxyAdditive
}

// ProxyConfig forwards requests that match no stub to an origin.
type ProxyConfig struct {
	UUID        string
	Description string
	Strategy    ProxyStrategy
	Endpoint    string
	// Headers are added to the forwarded request under the additive strategy.
	Headers map[string]string
	YAML    string
}
