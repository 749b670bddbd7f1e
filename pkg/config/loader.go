package config

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/getmockd/stubd/pkg/logging"
	"github.com/getmockd/stubd/pkg/stub"
	"gopkg.in/yaml.v3"
)

// Result is a parsed configuration.
type Result struct {
	Collection *stub.Collection
	// Files lists the main file followed by every included file, in parse
	// order. Documents parsed from memory contribute only their includes.
	Files []string
}

// Parser turns YAML documents into stub collections.
type Parser struct {
	log      *slog.Logger
	readFile func(string) ([]byte, error)
}

// Option configures a Parser.
type Option func(*Parser)

// WithLogger sets the logger used for non-fatal problems such as unreadable
// body files.
func WithLogger(log *slog.Logger) Option {
	return func(p *Parser) {
		if log != nil {
			p.log = log
		}
	}
}

// WithFileReader sets how configuration and body files are read.
func WithFileReader(fn func(string) ([]byte, error)) Option {
	return func(p *Parser) {
		if fn != nil {
			p.readFile = fn
		}
	}
}

// NewParser creates a Parser.
func NewParser(opts ...Option) *Parser {
	p := &Parser{
		log:      logging.Nop(),
		readFile: os.ReadFile,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ParseFile loads the configuration at path and everything it includes.
func (p *Parser) ParseFile(path string) (*Result, error) {
	s := p.newState()
	if err := s.loadFile(path); err != nil {
		return nil, err
	}
	return s.result(), nil
}

// Parse loads a configuration document held in memory. Relative paths
// resolve against baseDir.
func (p *Parser) Parse(data []byte, baseDir string) (*Result, error) {
	s := p.newState()
	if err := s.parse(data, "", baseDir); err != nil {
		return nil, err
	}
	return s.result(), nil
}

// LoadFile is ParseFile with a default Parser.
func LoadFile(path string) (*Result, error) {
	return NewParser().ParseFile(path)
}

// state accumulates one parse, across includes.
type state struct {
	p       *Parser
	files   []string
	active  map[string]bool
	stubs   []*stub.Lifecycle
	uuids   map[string]bool
	proxies []*stub.ProxyConfig
	seenPC  map[string]bool
}

func (p *Parser) newState() *state {
	return &state{
		p:      p,
		active: map[string]bool{},
		uuids:  map[string]bool{},
		seenPC: map[string]bool{},
	}
}

func (s *state) result() *Result {
	return &Result{
		Collection: stub.NewCollection(s.stubs, s.proxies...),
		Files:      s.files,
	}
}

func (s *state) loadFile(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", path, err)
	}
	if s.active[abs] {
		return fmt.Errorf("%w: %s", ErrIncludeCycle, abs)
	}

	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrFileNotFound, abs)
		}
		if os.IsPermission(err) {
			return fmt.Errorf("%w: %s", ErrPermissionDenied, abs)
		}
		return fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("path is a directory, not a file: %s", abs)
	}

	data, err := s.p.readFile(abs)
	if err != nil {
		if os.IsPermission(err) {
			return fmt.Errorf("%w: %s", ErrPermissionDenied, abs)
		}
		return fmt.Errorf("failed to read file: %w", err)
	}

	s.active[abs] = true
	defer delete(s.active, abs)
	s.files = append(s.files, abs)
	return s.parse(data, abs, filepath.Dir(abs))
}

func (s *state) parse(data []byte, file, dir string) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return emptyError(file)
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return &ParseError{File: file, Msg: err.Error(), Err: ErrInvalidYAML}
	}
	if len(root.Content) == 0 {
		return emptyError(file)
	}
	doc := root.Content[0]
	if err := validateDocument(file, doc); err != nil {
		return err
	}

	if doc.Kind == yaml.MappingNode {
		return s.includes(doc, file, dir)
	}

	lines := strings.Split(string(data), "\n")
	for i, item := range doc.Content {
		var next *yaml.Node
		if i+1 < len(doc.Content) {
			next = doc.Content[i+1]
		}
		if err := s.entry(item, snippet(lines, doc, item, next), file, dir); err != nil {
			return err
		}
	}
	return nil
}

func emptyError(file string) error {
	if file == "" {
		return ErrEmptyFile
	}
	return fmt.Errorf("%w: %s", ErrEmptyFile, file)
}

// snippet returns the source text of one list item. Flow-style documents are
// re-serialized instead.
func snippet(lines []string, doc, item, next *yaml.Node) string {
	end := len(lines)
	if next != nil {
		end = next.Line - 1
	}
	start := item.Line - 1
	if doc.Style&yaml.FlowStyle != 0 || start < 0 || end <= start || end > len(lines) {
		out, err := yaml.Marshal([]*yaml.Node{item})
		if err != nil {
			return ""
		}
		return string(out)
	}
	for end > start+1 {
		l := strings.TrimSpace(lines[end-1])
		if l != "" && !strings.HasPrefix(l, "#") {
			break
		}
		end--
	}
	return strings.Join(lines[start:end], "\n") + "\n"
}
