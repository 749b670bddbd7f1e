package stub

// Collection is a parsed configuration: stubs in definition order, their
// UUID index and the proxy configs keyed by UUID.
type Collection struct {
	Stubs   []*Lifecycle
	UUIDs   map[string]*Lifecycle
	Proxies map[string]*ProxyConfig
}

// NewCollection indexes stubs by UUID.
func NewCollection(stubs []*Lifecycle, proxies ...*ProxyConfig) *Collection {
	c := &Collection{
		Stubs:   stubs,
		UUIDs:   make(map[string]*Lifecycle, len(stubs)),
		Proxies: make(map[string]*ProxyConfig, len(proxies)),
	}
	for _, l := range stubs {
		c.UUIDs[l.UUID()] = l
	}
	for _, p := range proxies {
		c.Proxies[p.UUID] = p
	}
	return c
}
