// Package partition assembles one consolidated btree index per logical
// partition from many per-file, per-stripe contributions. File identity is
// deduplicated through a symbol table so positional tokens stay short, and
// per-key positional data merges with compare-and-swap retry loops so
// stripe workers never serialize on a coarse lock.
package partition

import (
	"context"
	"fmt"
	"path"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/hindex"
	"github.com/hupe1980/hindex/btree"
	"github.com/hupe1980/hindex/catalog"
	"github.com/hupe1980/hindex/model"
	"github.com/hupe1980/hindex/resource"
	"github.com/hupe1980/hindex/storage"
)

// Property names under which partition metadata is persisted with the index.
const (
	PropSymbolTable       = "symbol.table"
	PropLastModifiedTable = "lastmodified.table"
	PropMaxLastModified   = "lastmodified.max"
	PropPathPrefix        = "path.prefix"
)

// Metadata identifies the index a Writer builds.
type Metadata struct {
	Table  string
	Column string

	// Partition may be empty; it is then derived from the parent directory
	// of the first contributed file.
	Partition string
}

// FileContext identifies one stripe contribution within one data file.
type FileContext struct {
	// Path is the data file's full storage path.
	Path string

	// StripeOffset locates the stripe within the file.
	StripeOffset int64

	// LastModified is the file's last-modified timestamp in epoch millis.
	LastModified int64
}

// Writer merges per-stripe key contributions into one partition index.
//
// AddData may be called concurrently from many stripe workers; the result
// is independent of call interleaving because per-key merges are
// commutative. Persist is the single serialization point and must run after
// all AddData calls have completed.
type Writer struct {
	logger *hindex.Logger
	client storage.Client
	ctl    *resource.Controller
	cat    catalog.Catalog
	codec  hindex.CompressionType
	root   string
	meta   Metadata

	symbolMu sync.Mutex
	counter  atomic.Int32
	symbols  sync.Map // file name -> int32 code

	data            sync.Map // model.Key -> accumulated token string
	lastModified    sync.Map // file name -> int64 epoch millis
	maxLastModified atomic.Int64
	partition       atomic.Pointer[string]
	pathPrefix      atomic.Pointer[string]

	persistMu sync.Mutex
}

// Option configures a Writer.
type Option func(*Writer)

// WithLogger configures the logger. The default discards all output.
func WithLogger(logger *hindex.Logger) Option {
	return func(w *Writer) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithResourceController bounds persist concurrency and I/O throughput.
func WithResourceController(ctl *resource.Controller) Option {
	return func(w *Writer) {
		w.ctl = ctl
	}
}

// WithCatalog records every successful persist in cat.
func WithCatalog(cat catalog.Catalog) Option {
	return func(w *Writer) {
		w.cat = cat
	}
}

// WithCompression selects the persisted stream codec. The default is zstd.
func WithCompression(c hindex.CompressionType) Option {
	return func(w *Writer) {
		w.codec = c
	}
}

// NewWriter creates a partition index writer that persists under
// root/table/column[/partition] on client.
func NewWriter(meta Metadata, client storage.Client, root string, opts ...Option) *Writer {
	w := &Writer{
		logger: hindex.NoopLogger(),
		client: client,
		codec:  hindex.CompressionZSTD,
		root:   root,
		meta:   meta,
	}
	if meta.Partition != "" {
		p := meta.Partition
		w.partition.Store(&p)
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// AddData merges one file's column values for one stripe into the writer.
// Nil values are skipped. Safe for concurrent use.
func (w *Writer) AddData(values []any, fc FileContext) error {
	fileName := path.Base(fc.Path)
	prefix := path.Dir(fc.Path)
	w.pathPrefix.Store(&prefix)

	if w.partition.Load() == nil {
		// Table layouts place files under their partition directory.
		part := path.Base(prefix)
		w.partition.CompareAndSwap(nil, &part)
	}

	w.lastModified.Store(fileName, fc.LastModified)
	w.storeMaxLastModified(fc.LastModified)

	token := strconv.Itoa(int(w.symbolFor(fileName))) + ":" + strconv.FormatInt(fc.StripeOffset, 10)
	for _, v := range values {
		if v == nil {
			continue
		}
		key, err := model.KeyOf(v)
		if err != nil {
			w.logger.LogAddData(context.Background(), fileName, fc.StripeOffset, len(values), err)
			return err
		}
		w.mergeToken(key, token)
	}

	w.logger.LogAddData(context.Background(), fileName, fc.StripeOffset, len(values), nil)
	return nil
}

// symbolFor returns the file's symbol code, assigning the next one on first
// encounter. Codes are unique, stable for the writer's lifetime and
// strictly increasing from 1.
func (w *Writer) symbolFor(file string) int32 {
	if v, ok := w.symbols.Load(file); ok {
		return v.(int32)
	}

	w.symbolMu.Lock()
	defer w.symbolMu.Unlock()
	if v, ok := w.symbols.Load(file); ok {
		return v.(int32)
	}
	code := w.counter.Add(1)
	w.symbols.Store(file, code)
	return code
}

// mergeToken appends token to the key's accumulated positional string with
// an optimistic compare-and-retry loop, so concurrent stripe workers never
// lose updates.
func (w *Writer) mergeToken(key model.Key, token string) {
	for {
		existing, ok := w.data.Load(key)
		if !ok {
			if _, raced := w.data.LoadOrStore(key, token); !raced {
				return
			}
			continue
		}
		current := existing.(string)
		if w.data.CompareAndSwap(key, current, current+btree.Separator+token) {
			return
		}
	}
}

func (w *Writer) storeMaxLastModified(ts int64) {
	for {
		current := w.maxLastModified.Load()
		if ts <= current || w.maxLastModified.CompareAndSwap(current, ts) {
			return
		}
	}
}

// Persist freezes a point-in-time snapshot of all accumulated data into a
// fresh btree index and writes it to
// root/table/column[/partition]/index.btree on the storage client. On write
// failure the partially written destination is removed best-effort and the
// original error is returned. The index handle is always closed.
func (w *Writer) Persist(ctx context.Context) (string, error) {
	w.persistMu.Lock()
	defer w.persistMu.Unlock()

	if err := w.ctl.AcquirePersist(ctx); err != nil {
		return "", err
	}
	defer w.ctl.ReleasePersist()

	pairs := make([]model.KeyValue, 0)
	w.data.Range(func(k, v any) bool {
		pairs = append(pairs, model.KeyValue{Key: k.(model.Key), Value: v.(string)})
		return true
	})

	idx := btree.New(
		btree.WithLogger(w.logger),
		btree.WithCompression(w.codec),
	)
	defer func() {
		_ = idx.Close()
	}()

	if err := idx.AddKeyValues(pairs); err != nil {
		return "", err
	}
	idx.SetProperties(w.properties())

	dir := path.Join(w.root, w.meta.Table, w.meta.Column)
	if part := w.partition.Load(); part != nil && *part != "" {
		dir = path.Join(dir, *part)
	}
	dest := path.Join(dir, btree.FileName)

	if err := w.write(ctx, idx, dir, dest); err != nil {
		w.logger.LogPersist(ctx, dest, len(pairs), err)
		return "", err
	}

	if w.cat != nil {
		entry := catalog.Entry{
			Table:           w.meta.Table,
			Column:          w.meta.Column,
			Path:            dest,
			MaxLastModified: w.maxLastModified.Load(),
		}
		if part := w.partition.Load(); part != nil {
			entry.Partition = *part
		}
		if _, err := w.cat.Commit(ctx, entry); err != nil {
			return "", fmt.Errorf("index written but catalog commit failed: %w", err)
		}
	}

	w.logger.LogPersist(ctx, dest, len(pairs), nil)
	return dest, nil
}

func (w *Writer) write(ctx context.Context, idx *btree.Index, dir, dest string) error {
	if err := w.client.MkdirAll(ctx, dir); err != nil {
		return err
	}
	sink, err := w.client.Create(ctx, dest)
	if err != nil {
		return err
	}

	serr := idx.Serialize(resource.NewRateLimitedWriter(ctx, sink, w.ctl))
	cerr := sink.Close()
	if serr == nil {
		serr = cerr
	}
	if serr != nil {
		// Roll back the partial destination; a cleanup failure must not
		// mask the write failure.
		if rerr := w.client.Remove(ctx, dest); rerr != nil {
			w.logger.Warn("failed to remove partial index file",
				"path", dest,
				"error", rerr,
			)
		}
		return serr
	}
	return nil
}

// properties snapshots the symbol table, last-modified table, running
// maximum and path prefix into the persisted metadata bag.
func (w *Writer) properties() hindex.Properties {
	props := hindex.Properties{
		PropSymbolTable:       serializeSymbolTable(&w.symbols),
		PropLastModifiedTable: serializeLastModifiedTable(&w.lastModified),
		PropMaxLastModified:   strconv.FormatInt(w.maxLastModified.Load(), 10),
	}
	if prefix := w.pathPrefix.Load(); prefix != nil {
		props[PropPathPrefix] = *prefix
	}
	return props
}
