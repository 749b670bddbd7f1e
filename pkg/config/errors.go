package config

import (
	"errors"
	"fmt"
)

// Common errors for configuration loading.
var (
	ErrFileNotFound     = errors.New("configuration file not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidYAML      = errors.New("invalid YAML syntax")
	ErrEmptyFile        = errors.New("configuration file is empty")
	ErrSchema           = errors.New("configuration does not match schema")
	ErrDuplicateUUID    = errors.New("duplicate uuid")
	ErrIncludeCycle     = errors.New("include cycle")
)

// ParseError locates a configuration failure.
type ParseError struct {
	// File is empty for documents that were not read from disk.
	File string
	// Line is 1-based; zero when unknown.
	Line int
	// Path is the JSON pointer of the offending value, when known.
	Path string
	Msg  string
	Err  error
}

func (e *ParseError) Error() string {
	loc := e.File
	if loc == "" {
		loc = "<input>"
	}
	if e.Line > 0 {
		loc = fmt.Sprintf("%s:%d", loc, e.Line)
	}
	if e.Path != "" {
		loc += " " + e.Path
	}
	return fmt.Sprintf("%s: %s", loc, e.Msg)
}

func (e *ParseError) Unwrap() error { return e.Err }
