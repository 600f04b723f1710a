package hindex

import (
	"io"

	"github.com/hupe1980/hindex/model"
)

// Properties is an opaque metadata bag persisted alongside an index's keyed
// data and recovered verbatim on Deserialize.
type Properties map[string]string

// Clone returns a shallow copy of p.
func (p Properties) Clone() Properties {
	if p == nil {
		return nil
	}
	out := make(Properties, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Index is the lifecycle contract shared by all index implementations.
// Lookup methods are implementation-specific because the yielded element
// type differs (positional tokens vs. row positions).
type Index interface {
	// Matches reports whether the request would yield at least one element.
	// It short-circuits on the first element.
	Matches(req model.Request) (bool, error)

	// Serialize flushes the index's full content plus metadata to w as an
	// opaque, compressed byte stream. The index is append-only: it is
	// flushed exactly once.
	Serialize(w io.Writer) error

	// Deserialize reconstructs an equivalent read-only index from a stream
	// previously produced by Serialize.
	Deserialize(r io.Reader) error

	// Close releases all backing resources. Any subsequent operation fails
	// with ErrClosed.
	Close() error

	// MemoryUsage returns an estimate of the index's in-memory footprint.
	MemoryUsage() int64

	// DiskUsage returns the size of the index's backing file.
	DiskUsage() int64

	// Properties returns the index's metadata bag.
	Properties() Properties

	// SetProperties replaces the index's metadata bag.
	SetProperties(props Properties)
}
