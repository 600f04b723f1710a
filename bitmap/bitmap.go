// Package bitmap implements the positional bitmap index: a disk-backed
// ordered map from typed keys to compressed roaring bitmaps of row positions
// within one column batch.
//
// Usage:
//  1. Create a new index: idx := bitmap.New()
//  2. Add one column batch (exactly once): idx.AddValues(column, values)
//  3. Persist: idx.Serialize(w)
//  4. Close: idx.Close()
//  5. Reopen elsewhere: idx2 := bitmap.New(); idx2.Deserialize(r)
//  6. Query: idx2.LookUp(req), idx2.Matches(req)
//
// AddValues supports a single column; composite indexes are not supported.
// LookUp and Matches answer equality requests only.
package bitmap

import (
	"io"
	"iter"
	"slices"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/hindex"
	"github.com/hupe1980/hindex/internal/kvstore"
	"github.com/hupe1980/hindex/model"
)

var _ hindex.Index = (*Index)(nil)

// FileName is the conventional name of a persisted bitmap index file.
const FileName = "index.bitmap"

// Index is a key -> row-position-bitmap index over one column batch.
//
// The index is single-shot: exactly one AddValues call populates it, after
// which it is immutable. The key kind tag is persisted with the keyed data
// because decoding requires knowing the exact key codec; reads against a
// store without the tag fail with ErrUninitialized.
type Index struct {
	mu        sync.Mutex
	logger    *hindex.Logger
	store     *kvstore.Store
	populated bool
	closed    bool
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

// New creates an empty bitmap index.
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
	}
}

// AddValues ingests one named column's ordered row values for one batch.
// Per distinct value it records the set of zero-based row positions at which
// the value occurs, encoded as a run-optimized roaring bitmap. Nil values
// are skipped. 32-bit integers widen to 64-bit; unsupported kinds fail with
// ErrUnsupportedValueType. A second call fails with ErrAlreadyPopulated.
func (idx *Index) AddValues(column string, values []any) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.closed {
		return hindex.ErrClosed
	}
	// Values can only be added once: positions are relative to the whole
	// batch, so partial updates cannot be merged later.
	if idx.populated {
		return hindex.ErrAlreadyPopulated
	}
	idx.populated = true

	kind := model.KindInvalid
	positions := make(map[model.Key]*roaring.Bitmap)
	for i, v := range values {
		if v == nil {
			continue
		}
		key, err := model.KeyOf(v)
		if err != nil {
			return err
		}
		if kind == model.KindInvalid {
			kind = key.Kind()
		} else if key.Kind() != kind {
			return &model.ErrUnsupportedValueType{Value: v}
		}
		rb, ok := positions[key]
		if !ok {
			rb = roaring.New()
			positions[key] = rb
		}
		rb.Add(uint32(i))
	}

	// An all-nil batch loads an empty entry set so the index still
	// serializes and answers lookups with no matches. A batch that failed
	// validation above leaves the store unloaded and reads report
	// ErrUninitialized.
	entries := make([]kvstore.Entry, 0, len(positions))
	for key, rb := range positions {
		rb.RunOptimize()
		data, err := rb.ToBytes()
		if err != nil {
			return err
		}
		entries = append(entries, kvstore.Entry{Key: key, Value: data})
	}
	slices.SortFunc(entries, func(a, b kvstore.Entry) int {
		return a.Key.Compare(b.Key)
	})

	if err := idx.store.BulkLoad(kind, entries); err != nil {
		return err
	}
	idx.logger.Debug("bitmap index populated",
		"column", column,
		"kind", kind.String(),
		"values", len(values),
		"distinct", len(entries),
	)
	return nil
}

// LookUp answers an equality request with a lazy, strictly ascending
// sequence of row positions. An absent value yields an empty sequence.
// Range and between requests fail with ErrUnsupportedRequest.
func (idx *Index) LookUp(req model.Request) (iter.Seq[uint32], error) {
	idx.mu.Lock()
	if idx.closed {
		idx.mu.Unlock()
		return nil, hindex.ErrClosed
	}
	idx.mu.Unlock()

	if req.Operator() != model.OpEqual {
		return nil, hindex.NewErrUnsupportedRequest(req.Operator())
	}

	data, ok, err := idx.store.Get(req.Value())
	if err != nil {
		return nil, err
	}
	if !ok {
		return emptySeq, nil
	}

	rb := roaring.New()
	if err := rb.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return func(yield func(uint32) bool) {
		it := rb.Iterator()
		for it.HasNext() {
			if !yield(it.Next()) {
				return
			}
		}
	}, nil
}

func emptySeq(func(uint32) bool) {}

// Matches reports whether LookUp(req) would yield at least one position,
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

// Serialize writes the index's full content plus metadata, including the
// key kind tag, to w as a compressed byte stream.
func (idx *Index) Serialize(w io.Writer) error {
	idx.mu.Lock()
	if idx.closed {
		idx.mu.Unlock()
		return hindex.ErrClosed
	}
	idx.mu.Unlock()

	return idx.store.Serialize(w)
}

// Deserialize reconstructs a read-only index from a stream produced by
// Serialize. Updating a deserialized bitmap index is not allowed.
func (idx *Index) Deserialize(r io.Reader) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.closed {
		return hindex.ErrClosed
	}
	if idx.populated {
		return hindex.ErrAlreadyPopulated
	}
	if err := idx.store.Deserialize(r); err != nil {
		return err
	}
	idx.populated = true
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
	return idx.store.Close()
}

// MemoryUsage returns an estimate of the in-memory footprint.
func (idx *Index) MemoryUsage() int64 {
	return idx.store.MemoryUsage()
}

// DiskUsage returns the size of the backing file.
func (idx *Index) DiskUsage() int64 {
	return idx.store.DiskUsage()
}

// Properties returns the index's metadata bag.
func (idx *Index) Properties() hindex.Properties {
	return idx.store.Properties()
}

// SetProperties replaces the index's metadata bag.
func (idx *Index) SetProperties(props hindex.Properties) {
	idx.store.SetProperties(props)
}
