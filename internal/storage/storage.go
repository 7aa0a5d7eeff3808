// Package storage provides the object store abstraction that backup
// artifacts, checkpoints and blobs are written to.
package storage

import (
	"context"
	"errors"
)

// Error types for store operations.
var (
	ErrNotFound = errors.New("object not found")
)

// Store is the byte-addressed object store contract. Paths are
// slash-separated and rooted (see paths.go). A Write replaces any
// existing object at the path; backends are responsible for making a
// single Write atomic.
type Store interface {
	Exists(ctx context.Context, path string) (bool, error)
	Read(ctx context.Context, path string) ([]byte, error)
	Write(ctx context.Context, path string, data []byte) error
}
