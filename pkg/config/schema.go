package config

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed schema.json
var schemaJSON string

const schemaURL = "https://getmockd.dev/schemas/stubd/stubs.json"

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

// Schema returns the JSON Schema configuration documents are validated
// against.
func Schema() string { return schemaJSON }

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		if err := c.AddResource(schemaURL, strings.NewReader(schemaJSON)); err != nil {
			schemaErr = fmt.Errorf("loading schema: %w", err)
			return
		}
		schema, schemaErr = c.Compile(schemaURL)
	})
	return schema, schemaErr
}

// validateDocument checks root against the schema. The error names the most
// specific failing location and its source line.
func validateDocument(file string, root *yaml.Node) error {
	sch, err := compiledSchema()
	if err != nil {
		return err
	}

	var doc any
	if err := root.Decode(&doc); err != nil {
		return &ParseError{File: file, Line: root.Line, Msg: err.Error(), Err: ErrInvalidYAML}
	}

	err = sch.Validate(jsonValue(doc))
	if err == nil {
		return nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return &ParseError{File: file, Msg: err.Error(), Err: ErrSchema}
	}
	leaf := deepest(ve)
	line := root.Line
	if n := nodeAt(root, leaf.InstanceLocation); n != nil {
		line = n.Line
	}
	return &ParseError{
		File: file,
		Line: line,
		Path: leaf.InstanceLocation,
		Msg:  leaf.Message,
		Err:  ErrSchema,
	}
}

// deepest returns the leaf cause with the longest instance location,
// preferring the first on ties.
func deepest(ve *jsonschema.ValidationError) *jsonschema.ValidationError {
	best := ve
	for _, c := range ve.Causes {
		if d := deepest(c); best == ve || len(d.InstanceLocation) > len(best.InstanceLocation) {
			best = d
		}
	}
	return best
}

// nodeAt resolves a JSON pointer against a YAML node tree.
func nodeAt(n *yaml.Node, pointer string) *yaml.Node {
	if pointer == "" || pointer == "/" {
		return n
	}
	for _, tok := range strings.Split(strings.TrimPrefix(pointer, "/"), "/") {
		tok = strings.ReplaceAll(strings.ReplaceAll(tok, "~1", "/"), "~0", "~")
		switch n.Kind {
		case yaml.MappingNode:
			var next *yaml.Node
			for i := 0; i+1 < len(n.Content); i += 2 {
				if n.Content[i].Value == tok {
					next = n.Content[i+1]
					break
				}
			}
			if next == nil {
				return n
			}
			n = next
		case yaml.SequenceNode:
			i, err := strconv.Atoi(tok)
			if err != nil || i < 0 || i >= len(n.Content) {
				return n
			}
			n = n.Content[i]
		default:
			return n
		}
	}
	return n
}

// jsonValue converts a decoded YAML value into the shapes the validator
// accepts.
func jsonValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = jsonValue(e)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[fmt.Sprint(k)] = jsonValue(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = jsonValue(e)
		}
		return out
	case int:
		return json.Number(strconv.Itoa(t))
	case int64:
		return json.Number(strconv.FormatInt(t, 10))
	case uint64:
		return json.Number(strconv.FormatUint(t, 10))
	case time.Time:
		return t.Format(time.RFC3339Nano)
	default:
		return v
	}
}
