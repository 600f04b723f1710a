// Package storage abstracts the hierarchical, path-addressed store that
// persisted index files are written to and read from.
package storage

import (
	"context"
	"io"
	"os"
)

// ErrNotFound is returned when a path does not exist.
//
// Implementations should return an error that satisfies
// `errors.Is(err, ErrNotFound)`. The default maps to `os.ErrNotExist`.
var ErrNotFound = os.ErrNotExist

// Client is an abstraction over hierarchical path-addressed storage.
type Client interface {
	// MkdirAll creates the directory at path along with any missing
	// parents. Implementations without real directories may no-op.
	MkdirAll(ctx context.Context, path string) error

	// Create opens an output stream at path, truncating any existing
	// content. The write is complete when the returned WriteCloser is
	// closed without error.
	Create(ctx context.Context, path string) (io.WriteCloser, error)

	// Open opens an input stream for the content at path.
	Open(ctx context.Context, path string) (io.ReadCloser, error)

	// Remove deletes the content at path. Removing a path that does not
	// exist is not an error.
	Remove(ctx context.Context, path string) error
}
