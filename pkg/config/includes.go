package config

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

type includesNode struct {
	Includes []string `yaml:"includes"`
}

// includes loads every file named by an includes document, in declaration
// order. Glob matches are loaded in lexical order.
func (s *state) includes(doc *yaml.Node, file, dir string) error {
	var n includesNode
	if err := doc.Decode(&n); err != nil {
		return &ParseError{File: file, Line: doc.Line, Msg: err.Error(), Err: ErrInvalidYAML}
	}
	for _, inc := range n.Includes {
		paths, err := expandInclude(resolvePath(dir, inc))
		if err != nil {
			return &ParseError{File: file, Line: doc.Line, Msg: err.Error(), Err: err}
		}
		for _, p := range paths {
			if err := s.loadFile(p); err != nil {
				return err
			}
		}
	}
	return nil
}

// expandInclude returns the files an include names. A literal path is
// returned as is so that a missing file is reported; a glob matching nothing
// yields no files.
func expandInclude(pattern string) ([]string, error) {
	if !hasMeta(pattern) {
		return []string{pattern}, nil
	}
	matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("expanding glob pattern %q: %w", pattern, err)
	}
	sort.Strings(matches)
	return matches, nil
}

func hasMeta(p string) bool {
	for _, c := range filepath.ToSlash(p) {
		switch c {
		case '*', '?', '[', '{':
			return true
		}
	}
	return false
}
