// Package id provides identifier generation for stubs and proxy round trips.
package id

import (
	"github.com/google/uuid"
)

// UUID generates a random (version 4) UUID string.
func UUID() string {
	return uuid.New().String()
}
