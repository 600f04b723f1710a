package kvstore

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/hupe1980/hindex"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

const envelopeSize = 5 // 4-byte magic + 1-byte codec

// writeEnvelope writes the stream envelope and returns a WriteCloser that
// compresses everything written to it into w. Close flushes the codec but
// leaves w open.
func writeEnvelope(w io.Writer, codec hindex.CompressionType) (io.WriteCloser, error) {
	var envelope [envelopeSize]byte
	binary.LittleEndian.PutUint32(envelope[0:], EnvelopeMagic)
	envelope[4] = byte(codec)
	if _, err := w.Write(envelope[:]); err != nil {
		return nil, err
	}

	switch codec {
	case hindex.CompressionZSTD:
		return zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	case hindex.CompressionLZ4:
		return lz4.NewWriter(w), nil
	default:
		return nil, fmt.Errorf("unknown compression type: %d", codec)
	}
}

// readEnvelope validates the stream envelope and returns a reader that
// decompresses the remainder of r. The caller must Close it to release
// decoder resources.
func readEnvelope(r io.Reader) (io.ReadCloser, error) {
	var envelope [envelopeSize]byte
	if _, err := io.ReadFull(r, envelope[:]); err != nil {
		return nil, err
	}
	if binary.LittleEndian.Uint32(envelope[0:]) != EnvelopeMagic {
		return nil, ErrInvalidMagic
	}

	switch hindex.CompressionType(envelope[4]) {
	case hindex.CompressionZSTD:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return dec.IOReadCloser(), nil
	case hindex.CompressionLZ4:
		return io.NopCloser(lz4.NewReader(r)), nil
	default:
		return nil, fmt.Errorf("unknown compression type: %d", envelope[4])
	}
}
