// Package kvstore implements the disk-backed ordered key/value store that
// backs every index flavor. A store is built exactly once from a pre-sorted
// entry sequence, owns one unlinked scratch file for its lifetime, and is
// immutable after the bulk load.
package kvstore

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"iter"
	"os"
	"sort"
	"sync"

	"github.com/hupe1980/hindex"
	"github.com/hupe1980/hindex/model"
)

// Entry is one key/value pair of a bulk load.
type Entry struct {
	Key   model.Key
	Value []byte
}

// Store is a disk-backed ordered map from typed keys to opaque byte values.
//
// Lifecycle: New -> BulkLoad (exactly once) -> lookups/Serialize -> Close,
// or New -> Deserialize -> lookups -> Close.
type Store struct {
	mu       sync.RWMutex
	codec    hindex.CompressionType
	kind     model.Kind
	keys     []model.Key
	values   [][]byte
	props    hindex.Properties
	file     *os.File
	memUsage int64
	loaded   bool
	closed   bool
}

// Option configures a Store.
type Option func(*Store)

// WithCompression selects the codec used by Serialize. The default is zstd.
func WithCompression(c hindex.CompressionType) Option {
	return func(s *Store) {
		s.codec = c
	}
}

// New creates an empty, unpopulated store.
func New(opts ...Option) *Store {
	s := &Store{
		codec: hindex.CompressionZSTD,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BulkLoad populates the store from entries sorted strictly ascending by
// key. All keys must be of the given kind. The backing structure is built
// bottom-up in one pass; repeated loads fail with ErrAlreadyPopulated.
//
// An empty entry set with KindInvalid produces a loaded, kind-agnostic
// empty store. The store takes ownership of entries' values.
func (s *Store) BulkLoad(kind model.Kind, entries []Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return hindex.ErrClosed
	}
	if s.loaded {
		return hindex.ErrAlreadyPopulated
	}
	if !kind.Valid() && !(kind == model.KindInvalid && len(entries) == 0) {
		return fmt.Errorf("%w: %v", ErrInvalidKind, kind)
	}

	keys := make([]model.Key, len(entries))
	values := make([][]byte, len(entries))
	var mem int64
	for i, e := range entries {
		if e.Key.Kind() != kind {
			return fmt.Errorf("%w: %v entry in %v store", ErrKindMismatch, e.Key.Kind(), kind)
		}
		if i > 0 && entries[i-1].Key.Compare(e.Key) >= 0 {
			return ErrNotSorted
		}
		keys[i] = e.Key
		values[i] = e.Value
		mem += int64(len(e.Key.Str()) + len(e.Value) + 16)
	}

	s.kind = kind
	s.keys = keys
	s.values = values
	s.memUsage = mem
	s.loaded = true

	if err := s.flushToScratch(); err != nil {
		s.keys, s.values, s.loaded = nil, nil, false
		return err
	}
	return nil
}

// scratch creates the store's private backing file. The file is unlinked
// immediately so it cannot outlive the process.
func (s *Store) scratch() (*os.File, error) {
	f, err := os.CreateTemp("", "hindex-store-*")
	if err != nil {
		return nil, err
	}
	if err := os.Remove(f.Name()); err != nil {
		_ = f.Close()
		return nil, err
	}
	return f, nil
}

func (s *Store) flushToScratch() error {
	f, err := s.scratch()
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(f, 256*1024)
	if err := s.writeTo(bw); err != nil {
		_ = f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		_ = f.Close()
		return err
	}
	s.file = f
	return nil
}

// writeTo encodes the full store content: header, sorted entries, then the
// metadata section. Callers hold at least a read lock.
func (s *Store) writeTo(bw *bufio.Writer) error {
	header := FileHeader{
		Magic:      MagicNumber,
		Version:    Version,
		Kind:       uint8(s.kind),
		EntryCount: uint64(len(s.keys)),
	}
	if err := binary.Write(bw, binary.LittleEndian, header); err != nil {
		return err
	}
	for i, key := range s.keys {
		if err := writeKey(bw, key); err != nil {
			return err
		}
		if err := writeBytes(bw, s.values[i]); err != nil {
			return err
		}
	}

	// Metadata section, sorted for deterministic output.
	names := make([]string, 0, len(s.props))
	for name := range s.props {
		names = append(names, name)
	}
	sort.Strings(names)
	if err := writeUvarint(bw, uint64(len(names))); err != nil {
		return err
	}
	for _, name := range names {
		if err := writeBytes(bw, []byte(name)); err != nil {
			return err
		}
		if err := writeBytes(bw, []byte(s.props[name])); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) readFrom(br *bufio.Reader) error {
	var header FileHeader
	if err := binary.Read(br, binary.LittleEndian, &header); err != nil {
		return err
	}
	if header.Magic != MagicNumber {
		return fmt.Errorf("%w: got 0x%08x", ErrInvalidMagic, header.Magic)
	}
	if header.Version != Version {
		return fmt.Errorf("%w: got 0x%08x", ErrInvalidVersion, header.Version)
	}
	kind := model.Kind(header.Kind)
	if !kind.Valid() && !(kind == model.KindInvalid && header.EntryCount == 0) {
		return fmt.Errorf("%w: %d", ErrInvalidKind, header.Kind)
	}

	keys := make([]model.Key, header.EntryCount)
	values := make([][]byte, header.EntryCount)
	var mem int64
	for i := range keys {
		key, err := readKey(br, kind)
		if err != nil {
			return err
		}
		value, err := readBytes(br)
		if err != nil {
			return err
		}
		keys[i] = key
		values[i] = value
		mem += int64(len(key.Str()) + len(value) + 16)
	}

	propCount, err := binary.ReadUvarint(br)
	if err != nil {
		return err
	}
	var props hindex.Properties
	if propCount > 0 {
		props = make(hindex.Properties, propCount)
	}
	for i := uint64(0); i < propCount; i++ {
		name, err := readBytes(br)
		if err != nil {
			return err
		}
		value, err := readBytes(br)
		if err != nil {
			return err
		}
		props[string(name)] = string(value)
	}

	s.kind = kind
	s.keys = keys
	s.values = values
	s.props = props
	s.memUsage = mem
	s.loaded = true
	return nil
}

// Kind returns the key kind of the loaded store.
func (s *Store) Kind() (model.Kind, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return model.KindInvalid, hindex.ErrClosed
	}
	if !s.loaded {
		return model.KindInvalid, hindex.ErrUninitialized
	}
	return s.kind, nil
}

// Len returns the number of entries in the store.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keys)
}

// Get returns the value stored under key, if any.
func (s *Store) Get(key model.Key) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.readable(key.Kind()); err != nil {
		return nil, false, err
	}
	i := sort.Search(len(s.keys), func(i int) bool {
		return s.keys[i].Compare(key) >= 0
	})
	if i < len(s.keys) && s.keys[i].Compare(key) == 0 {
		return s.values[i], true, nil
	}
	return nil, false, nil
}

// Range returns a lazy iterator over all entries with lo <= key <= hi in
// ascending key order. The store must not be closed while iterating.
func (s *Store) Range(lo, hi model.Key) (iter.Seq2[model.Key, []byte], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.readable(lo.Kind()); err != nil {
		return nil, err
	}
	if s.kind != model.KindInvalid && hi.Kind() != s.kind {
		return nil, fmt.Errorf("%w: %v bound against %v store", ErrKindMismatch, hi.Kind(), s.kind)
	}

	keys, values := s.keys, s.values
	start := sort.Search(len(keys), func(i int) bool {
		return keys[i].Compare(lo) >= 0
	})
	return func(yield func(model.Key, []byte) bool) {
		for i := start; i < len(keys) && keys[i].Compare(hi) <= 0; i++ {
			if !yield(keys[i], values[i]) {
				return
			}
		}
	}, nil
}

func (s *Store) readable(kind model.Kind) error {
	if s.closed {
		return hindex.ErrClosed
	}
	if !s.loaded {
		return hindex.ErrUninitialized
	}
	// A kind-agnostic empty store answers lookups of any kind.
	if s.kind != model.KindInvalid && kind != s.kind {
		return fmt.Errorf("%w: %v key against %v store", ErrKindMismatch, kind, s.kind)
	}
	return nil
}

// Serialize writes the store's full content as a compressed, self-describing
// byte stream.
func (s *Store) Serialize(w io.Writer) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return hindex.ErrClosed
	}
	if !s.loaded {
		return hindex.ErrUninitialized
	}

	cw, err := writeEnvelope(w, s.codec)
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(cw, 256*1024)
	if err := s.writeTo(bw); err != nil {
		_ = cw.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		_ = cw.Close()
		return err
	}
	return cw.Close()
}

// Deserialize reconstructs a read-only store from a stream produced by
// Serialize. The decompressed bytes are spooled into the store's private
// scratch file before parsing.
func (s *Store) Deserialize(r io.Reader) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return hindex.ErrClosed
	}
	if s.loaded {
		return hindex.ErrAlreadyPopulated
	}

	cr, err := readEnvelope(r)
	if err != nil {
		return err
	}
	defer cr.Close()

	f, err := s.scratch()
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, cr); err != nil {
		_ = f.Close()
		return err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		_ = f.Close()
		return err
	}
	if err := s.readFrom(bufio.NewReaderSize(f, 256*1024)); err != nil {
		_ = f.Close()
		return err
	}
	s.file = f
	return nil
}

// Close releases the scratch file and marks the store unusable.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.keys = nil
	s.values = nil
	s.memUsage = 0
	if s.file != nil {
		err := s.file.Close()
		s.file = nil
		return err
	}
	return nil
}

// MemoryUsage returns an estimate of the in-memory footprint.
func (s *Store) MemoryUsage() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.memUsage
}

// DiskUsage returns the size of the scratch file.
func (s *Store) DiskUsage() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.file == nil {
		return 0
	}
	info, err := s.file.Stat()
	if err != nil {
		return 0
	}
	return info.Size()
}

// Properties returns the store's metadata bag.
func (s *Store) Properties() hindex.Properties {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.props
}

// SetProperties replaces the store's metadata bag. Properties set after the
// bulk load still travel with Serialize; the scratch file is not rewritten.
func (s *Store) SetProperties(props hindex.Properties) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.props = props
}
