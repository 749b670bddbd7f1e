package stub

// Incoming is the transport-neutral shape of a request received on the
// stubs port.
type Incoming struct {
	Method   string
	Path     string
	RawQuery string
	// Headers holds one value per name; repeated headers are joined with ",".
	Headers map[string]string
	Body    []byte
}

// Asserting converts the incoming request into a Request to be matched
// against stubs.
func (in Incoming) Asserting() *Request {
	b := NewRequestBuilder().
		URL(in.Path).
		Method(in.Method).
		Post(string(in.Body)).
		RawQuery(in.RawQuery)
	for k, v := range in.Headers {
		b.Header(k, v)
	}
	return b.Build()
}
