// Package btree implements the ordered key index: a disk-backed sorted map
// from typed keys to positional-token strings, answering equality and
// between lookups in ascending key order.
//
// Usage:
//  1. Create a new index: idx := btree.New()
//  2. Stage entries (repeatable): idx.AddKeyValues(pairs)
//  3. Persist: idx.Serialize(w) (freezes the index on first call)
//  4. Close: idx.Close()
//  5. Reopen elsewhere: idx2 := btree.New(); idx2.Deserialize(r)
//  6. Query: idx2.LookUp(req), idx2.Matches(req)
//
// Staging a key that is already staged concatenates the new value with a
// comma instead of overwriting, preserving multi-occurrence positional data.
package btree

import (
	"io"
	"iter"
	"slices"
	"strings"
	"sync"

	"github.com/hupe1980/hindex"
	"github.com/hupe1980/hindex/internal/kvstore"
	"github.com/hupe1980/hindex/model"
)

var _ hindex.Index = (*Index)(nil)

// Separator joins positional values accumulated under one key.
const Separator = ","

// FileName is the conventional name of a persisted btree index file.
const FileName = "index.btree"

// Index is an ordered key -> positional-data index.
//
// Population happens in a mutable staging phase; the first lookup or
// Serialize freezes the staged entries into an immutable disk-backed store.
// Further AddKeyValues calls fail with ErrAlreadyPopulated.
type Index struct {
	mu     sync.Mutex
	logger *hindex.Logger
	store  *kvstore.Store
	staged map[model.Key]string
	kind   model.Kind
	frozen bool
	closed bool
}

// Option configures an Index.
type Option func(*options)

type options struct {
	logger      *hindex.Logger
	compression hindex.CompressionType
}

// WithLogger configures the logger. The default discards all output.
func WithLogger(logger *hindex.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithCompression selects the Serialize codec. The default is zstd.
func WithCompression(c hindex.CompressionType) Option {
	return func(o *options) {
		o.compression = c
	}
}

// New creates an empty btree index.
func New(opts ...Option) *Index {
	o := options{
		logger:      hindex.NoopLogger(),
		compression: hindex.CompressionZSTD,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Index{
		logger: o.logger,
		store:  kvstore.New(kvstore.WithCompression(o.compression)),
		staged: make(map[model.Key]string),
	}
}

// AddKeyValues stages key/value pairs. It may be called any number of times
// before the index freezes; values supplied for an already-staged key are
// appended with the separator rather than overwritten. All keys must share
// one kind.
func (idx *Index) AddKeyValues(pairs []model.KeyValue) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.closed {
		return hindex.ErrClosed
	}
	if idx.frozen {
		return hindex.ErrAlreadyPopulated
	}

	for _, kv := range pairs {
		kind := kv.Key.Kind()
		if !kind.Valid() {
			return &model.ErrUnsupportedValueType{Value: kv.Key.Value()}
		}
		if idx.kind == model.KindInvalid {
			idx.kind = kind
		} else if kind != idx.kind {
			return &model.ErrUnsupportedValueType{Value: kv.Key.Value()}
		}
		if existing, ok := idx.staged[kv.Key]; ok {
			idx.staged[kv.Key] = existing + Separator + kv.Value
		} else {
			idx.staged[kv.Key] = kv.Value
		}
	}
	return nil
}

// freezeLocked bulk-loads the staged entries into the backing store. Keys
// are sorted ascending first so the store builds bottom-up in one pass.
func (idx *Index) freezeLocked() error {
	if idx.frozen {
		return nil
	}
	idx.frozen = true

	// Nothing staged still freezes into a loaded empty store, so an empty
	// index serializes and answers lookups with no matches.
	entries := make([]kvstore.Entry, 0, len(idx.staged))
	for key, value := range idx.staged {
		entries = append(entries, kvstore.Entry{Key: key, Value: []byte(value)})
	}
	sortEntries(entries)

	if err := idx.store.BulkLoad(idx.kind, entries); err != nil {
		return err
	}
	idx.logger.Debug("index frozen", "kind", idx.kind.String(), "keys", len(entries))
	idx.staged = nil
	return nil
}

func sortEntries(entries []kvstore.Entry) {
	// All keys share a kind by construction, so Compare cannot panic.
	slices.SortFunc(entries, func(a, b kvstore.Entry) int {
		return a.Key.Compare(b.Key)
	})
}

// LookUp answers req with a lazy, finite sequence of positional tokens.
//
// Equality yields the matching key's value decomposed into its constituent
// comma-separated tokens. Between yields the concatenation, in ascending
// key order, of all matching entries' decomposed tokens. Any other shape
// fails with ErrUnsupportedRequest.
func (idx *Index) LookUp(req model.Request) (iter.Seq[string], error) {
	idx.mu.Lock()
	if idx.closed {
		idx.mu.Unlock()
		return nil, hindex.ErrClosed
	}
	if err := idx.freezeLocked(); err != nil {
		idx.mu.Unlock()
		return nil, err
	}
	idx.mu.Unlock()

	switch req.Operator() {
	case model.OpEqual:
		value, ok, err := idx.store.Get(req.Value())
		if err != nil {
			return nil, err
		}
		if !ok {
			return emptySeq, nil
		}
		return strings.SplitSeq(string(value), Separator), nil

	case model.OpBetween:
		lo, hi := req.Bounds()
		entries, err := idx.store.Range(lo, hi)
		if err != nil {
			return nil, err
		}
		return func(yield func(string) bool) {
			for _, value := range entries {
				for token := range strings.SplitSeq(string(value), Separator) {
					if !yield(token) {
						return
					}
				}
			}
		}, nil

	default:
		return nil, hindex.NewErrUnsupportedRequest(req.Operator())
	}
}

func emptySeq(func(string) bool) {}

// Matches reports whether LookUp(req) would yield at least one element,
// short-circuiting on the first.
func (idx *Index) Matches(req model.Request) (bool, error) {
	seq, err := idx.LookUp(req)
	if err != nil {
		return false, err
	}
	for range seq {
		return true, nil
	}
	return false, nil
}

// Serialize freezes the index if needed and writes its full sorted content
// plus metadata to w as a compressed byte stream.
func (idx *Index) Serialize(w io.Writer) error {
	idx.mu.Lock()
	if idx.closed {
		idx.mu.Unlock()
		return hindex.ErrClosed
	}
	if err := idx.freezeLocked(); err != nil {
		idx.mu.Unlock()
		return err
	}
	idx.mu.Unlock()

	return idx.store.Serialize(w)
}

// Deserialize reconstructs a read-only index from a stream produced by
// Serialize.
func (idx *Index) Deserialize(r io.Reader) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.closed {
		return hindex.ErrClosed
	}
	if idx.frozen || len(idx.staged) > 0 {
		return hindex.ErrAlreadyPopulated
	}
	if err := idx.store.Deserialize(r); err != nil {
		return err
	}
	kind, err := idx.store.Kind()
	if err != nil {
		return err
	}
	idx.kind = kind
	idx.frozen = true
	idx.staged = nil
	idx.logger.Debug("index loaded", "kind", kind.String(), "keys", idx.store.Len())
	return nil
}

// Close releases all backing resources. Subsequent operations fail with
// ErrClosed.
func (idx *Index) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.closed {
		return nil
	}
	idx.closed = true
	idx.staged = nil
	return idx.store.Close()
}

// MemoryUsage returns an estimate of the in-memory footprint.
func (idx *Index) MemoryUsage() int64 {
	idx.mu.Lock()
	var staged int64
	for key, value := range idx.staged {
		staged += int64(len(key.Str()) + len(value) + 16)
	}
	idx.mu.Unlock()
	return staged + idx.store.MemoryUsage()
}

// DiskUsage returns the size of the backing file.
func (idx *Index) DiskUsage() int64 {
	return idx.store.DiskUsage()
}

// Properties returns the index's metadata bag.
func (idx *Index) Properties() hindex.Properties {
	return idx.store.Properties()
}

// SetProperties replaces the index's metadata bag. Properties travel with
// Serialize and are recovered verbatim by Deserialize.
func (idx *Index) SetProperties(props hindex.Properties) {
	idx.store.SetProperties(props)
}
