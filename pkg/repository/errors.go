package repository

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors.
var (
	ErrInvalidIndex   = errors.New("invalid stub index")
	ErrUnknownUUID    = errors.New("unknown stub uuid")
	ErrDuplicateUUID  = errors.New("duplicate stub uuid")
	ErrNoDefaultProxy = errors.New("proxy configs require a 'default' config")
)

// IndexError is returned for an out-of-range stub index.
type IndexError struct {
	Index int
	Size  int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("stub index %d out of range [0, %d)", e.Index, e.Size)
}

func (e *IndexError) Unwrap() error { return ErrInvalidIndex }

// StatusCode returns the HTTP status code for this error.
func (e *IndexError) StatusCode() int { return http.StatusBadRequest }

// Hint returns a user-friendly suggestion for resolving this error.
func (e *IndexError) Hint() string {
	if e.Size == 0 {
		return "No stubs are loaded."
	}
	return fmt.Sprintf("Use an index between 0 and %d. GET / lists the loaded stubs.", e.Size-1)
}

// UUIDError is returned for an unknown stub UUID.
type UUIDError struct {
	UUID string
}

func (e *UUIDError) Error() string {
	return fmt.Sprintf("no stub with uuid %q", e.UUID)
}

func (e *UUIDError) Unwrap() error { return ErrUnknownUUID }

// StatusCode returns the HTTP status code for this error.
func (e *UUIDError) StatusCode() int { return http.StatusNotFound }

// Hint returns a user-friendly suggestion for resolving this error.
func (e *UUIDError) Hint() string {
	return "Check the uuid property of the stub. GET / lists the loaded stubs with their UUIDs."
}

// ConflictError is returned when a stub would share its UUID with another.
type ConflictError struct {
	UUID string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("stub uuid %q is already in use", e.UUID)
}

func (e *ConflictError) Unwrap() error { return ErrDuplicateUUID }

// StatusCode returns the HTTP status code for this error.
func (e *ConflictError) StatusCode() int { return http.StatusConflict }

// Hint returns a user-friendly suggestion for resolving this error.
func (e *ConflictError) Hint() string {
	return fmt.Sprintf("Another stub already uses uuid %q. Pick a different uuid or update that stub instead.", e.UUID)
}
