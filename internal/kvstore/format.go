package kvstore

import "errors"

const (
	// MagicNumber identifies hindex store files (ASCII: "HIX1")
	MagicNumber = 0x48495831
	// Version is the current file format version (v1.0.0)
	Version = 0x00010000

	// EnvelopeMagic identifies the compression envelope around a serialized
	// store stream (ASCII: "HIXC")
	EnvelopeMagic = 0x48495843
)

var (
	ErrInvalidMagic   = errors.New("invalid magic number")
	ErrInvalidVersion = errors.New("unsupported version")
	ErrInvalidKind    = errors.New("invalid key kind tag")
	ErrKindMismatch   = errors.New("key kind does not match store kind")
	ErrNotSorted      = errors.New("entries must be sorted ascending by unique key")
)

// FileHeader is the 24-byte header at the start of every store file.
// The key kind tag is part of the header because decoding the keyed data
// section requires knowing the exact key codec up front.
type FileHeader struct {
	Magic      uint32 // 0x48495831 ("HIX1")
	Version    uint32 // File format version
	Kind       uint8  // model.Kind of every key in the data section
	Padding    [7]byte
	EntryCount uint64 // Number of key/value entries
}
