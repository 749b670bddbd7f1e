package config

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/getmockd/stubd/pkg/stub"
	"github.com/getmockd/stubd/pkg/template"
	"gopkg.in/yaml.v3"
)

type entryNode struct {
	Description string       `yaml:"description"`
	UUID        string       `yaml:"uuid"`
	Request     *requestNode `yaml:"request"`
	Response    responseList `yaml:"response"`
	ProxyConfig *proxyNode   `yaml:"proxy-config"`
}

type requestNode struct {
	URL     string            `yaml:"url"`
	Method  stringList        `yaml:"method"`
	Post    string            `yaml:"post"`
	File    string            `yaml:"file"`
	Headers map[string]string `yaml:"headers"`
	Query   map[string]string `yaml:"query"`
}

type responseNode struct {
	Status  string            `yaml:"status"`
	Body    string            `yaml:"body"`
	File    string            `yaml:"file"`
	Headers map[string]string `yaml:"headers"`
	// Latency is in milliseconds.
	Latency string            `yaml:"latency"`
}

type proxyNode struct {
	UUID        string             `yaml:"uuid"`
	Description string             `yaml:"description"`
	Strategy    stub.ProxyStrategy `yaml:"strategy"`
	Properties  struct {
		Endpoint string `yaml:"endpoint"`
	} `yaml:"properties"`
	Headers map[string]string `yaml:"headers"`
}

// stringList accepts a scalar or a sequence.
type stringList []string

func (l *stringList) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		*l = stringList{n.Value}
		return nil
	}
	var s []string
	if err := n.Decode(&s); err != nil {
		return err
	}
	*l = s
	return nil
}

// responseList accepts a single response or a sequence of them.
type responseList []responseNode

func (l *responseList) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.SequenceNode {
		var s []responseNode
		if err := n.Decode(&s); err != nil {
			return err
		}
		*l = s
		return nil
	}
	var one responseNode
	if err := n.Decode(&one); err != nil {
		return err
	}
	*l = responseList{one}
	return nil
}

func (s *state) entry(item *yaml.Node, raw, file, dir string) error {
	var e entryNode
	if err := item.Decode(&e); err != nil {
		return &ParseError{File: file, Line: item.Line, Msg: err.Error(), Err: ErrInvalidYAML}
	}
	if e.ProxyConfig != nil {
		return s.proxyConfig(e.ProxyConfig, item, raw, file)
	}

	l, err := s.lifecycle(&e, raw, dir)
	if err != nil {
		return &ParseError{File: file, Line: item.Line, Msg: err.Error(), Err: ErrSchema}
	}
	if s.uuids[l.UUID()] {
		return &ParseError{
			File: file,
			Line: item.Line,
			Msg:  fmt.Sprintf("stub uuid %q is already defined", l.UUID()),
			Err:  ErrDuplicateUUID,
		}
	}
	s.uuids[l.UUID()] = true
	s.stubs = append(s.stubs, l)
	return nil
}

func (s *state) lifecycle(e *entryNode, raw, dir string) (*stub.Lifecycle, error) {
	r := e.Request
	rb := stub.NewRequestBuilder().
		URL(r.URL).
		Method(r.Method...).
		Post(r.Post)
	if r.File != "" {
		path := resolvePath(dir, r.File)
		rb.File(path, s.body(path))
	}
	for k, v := range r.Headers {
		rb.Header(k, v)
	}
	for k, v := range r.Query {
		rb.Query(k, v)
	}

	responses := make([]*stub.Response, 0, len(e.Response))
	for _, n := range e.Response {
		resp, err := s.response(n, dir)
		if err != nil {
			return nil, err
		}
		responses = append(responses, resp)
	}

	return stub.NewLifecycleBuilder(rb.Build()).
		Response(responses...).
		UUID(e.UUID).
		Description(e.Description).
		YAML(raw).
		Build(), nil
}

func (s *state) response(n responseNode, dir string) (*stub.Response, error) {
	b := stub.NewResponseBuilder().Body(n.Body)
	if n.Status != "" {
		code, err := strconv.Atoi(n.Status)
		if err != nil {
			return nil, fmt.Errorf("invalid status %q", n.Status)
		}
		b.Status(code)
	}
	if n.Latency != "" {
		ms, err := strconv.Atoi(n.Latency)
		if err != nil {
			return nil, fmt.Errorf("invalid latency %q", n.Latency)
		}
		b.Latency(time.Duration(ms) * time.Millisecond)
	}
	for k, v := range n.Headers {
		b.Header(k, v)
	}
	if n.File != "" {
		path := resolvePath(dir, n.File)
		if template.IsTemplated(path) {
			b.File(path, nil)
		} else {
			b.File(path, s.body(path))
		}
	}
	return b.Build(), nil
}

// body reads a stubbed body file. A file that cannot be read leaves the
// inline body in effect.
func (s *state) body(path string) []byte {
	data, err := s.p.readFile(path)
	if err != nil {
		s.p.log.Warn("could not read body file, using inline body", "path", path, "error", err)
		return nil
	}
	return data
}

func (s *state) proxyConfig(n *proxyNode, item *yaml.Node, raw, file string) error {
	cfg := &stub.ProxyConfig{
		UUID:        n.UUID,
		Description: n.Description,
		Strategy:    n.Strategy,
		Endpoint:    n.Properties.Endpoint,
		Headers:     map[string]string{},
		YAML:        raw,
	}
	if cfg.UUID == "" {
		cfg.UUID = stub.DefaultProxyUUID
	}
	if cfg.Strategy == "" {
		cfg.Strategy = stub.ProxyAsIs
	}
	for k, v := range n.Headers {
		cfg.Headers[k] = v
	}
	if s.seenPC[cfg.UUID] {
		return &ParseError{
			File: file,
			Line: item.Line,
			Msg:  fmt.Sprintf("proxy-config uuid %q is already defined", cfg.UUID),
			Err:  ErrDuplicateUUID,
		}
	}
	s.seenPC[cfg.UUID] = true
	s.proxies = append(s.proxies, cfg)
	return nil
}

// resolvePath makes p absolute against dir unless it already is.
func resolvePath(dir, p string) string {
	if filepath.IsAbs(p) || dir == "" {
		return filepath.Clean(p)
	}
	return filepath.Join(dir, p)
}
