// Package catalog tracks which persisted index file is current for each
// (table, column, partition) triple, so the query layer can locate indexes
// and detect stale ones by their max last-modified timestamp.
package catalog

import (
	"context"
	"errors"
	"path"
)

// ErrConcurrentModification is returned when a concurrent commit is detected.
var ErrConcurrentModification = errors.New("concurrent modification detected")

// Entry describes one committed index file.
type Entry struct {
	Table     string `json:"table"`
	Column    string `json:"column"`
	Partition string `json:"partition,omitempty"`

	// Path is the storage path of the committed index file.
	Path string `json:"path"`

	// MaxLastModified is the maximum last-modified timestamp across all
	// data files the index covers, in epoch milliseconds.
	MaxLastModified int64 `json:"max_last_modified"`

	// Version increases by one per commit for the same triple.
	Version uint64 `json:"version"`
}

// Key returns the catalog key of the entry's (table, column, partition)
// triple.
func (e Entry) Key() string {
	return Key(e.Table, e.Column, e.Partition)
}

// Key builds the catalog key for a (table, column, partition) triple. The
// partition may be empty for table-level indexes.
func Key(table, column, partition string) string {
	return path.Join(table, column, partition)
}

// Catalog records committed index files.
type Catalog interface {
	// Commit records e as the current index for its triple, assigning the
	// next version. Two writers racing on the same triple produce distinct
	// versions or ErrConcurrentModification, never silent loss.
	Commit(ctx context.Context, e Entry) (Entry, error)

	// Current returns the latest committed entry for the triple, if any.
	Current(ctx context.Context, table, column, partition string) (Entry, bool, error)
}
