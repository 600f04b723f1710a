package kvstore

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/hupe1980/hindex/model"
)

func writeUvarint(w *bufio.Writer, v uint64) error {
	var buf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(buf[:], v)
	_, err := w.Write(buf[:n])
	return err
}

func writeFixed32(w *bufio.Writer, v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func writeFixed64(w *bufio.Writer, v uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func readFixed32(r *bufio.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func readFixed64(r *bufio.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

// writeKey encodes key with the fixed-width codec of its kind; strings are
// length-prefixed.
func writeKey(w *bufio.Writer, key model.Key) error {
	switch key.Kind() {
	case model.KindLong:
		return writeFixed64(w, uint64(key.Long()))
	case model.KindDouble:
		return writeFixed64(w, math.Float64bits(key.Double()))
	case model.KindFloat:
		return writeFixed32(w, math.Float32bits(key.Float()))
	case model.KindString:
		s := key.Str()
		if err := writeUvarint(w, uint64(len(s))); err != nil {
			return err
		}
		_, err := w.WriteString(s)
		return err
	case model.KindBool:
		var b byte
		if key.Bool() {
			b = 1
		}
		return w.WriteByte(b)
	case model.KindDate:
		return writeFixed32(w, uint32(key.Date()))
	default:
		return fmt.Errorf("%w: %v", ErrInvalidKind, key.Kind())
	}
}

// readKey decodes one key of the given kind.
func readKey(r *bufio.Reader, kind model.Kind) (model.Key, error) {
	switch kind {
	case model.KindLong:
		v, err := readFixed64(r)
		if err != nil {
			return model.Key{}, err
		}
		return model.LongKey(int64(v)), nil
	case model.KindDouble:
		v, err := readFixed64(r)
		if err != nil {
			return model.Key{}, err
		}
		return model.DoubleKey(math.Float64frombits(v)), nil
	case model.KindFloat:
		v, err := readFixed32(r)
		if err != nil {
			return model.Key{}, err
		}
		return model.FloatKey(math.Float32frombits(v)), nil
	case model.KindString:
		n, err := binary.ReadUvarint(r)
		if err != nil {
			return model.Key{}, err
		}
		buf := make([]byte, n)
		if _, err := io.ReadFull(r, buf); err != nil {
			return model.Key{}, err
		}
		return model.StringKey(string(buf)), nil
	case model.KindBool:
		b, err := r.ReadByte()
		if err != nil {
			return model.Key{}, err
		}
		return model.BoolKey(b != 0), nil
	case model.KindDate:
		v, err := readFixed32(r)
		if err != nil {
			return model.Key{}, err
		}
		return model.DateKey(model.Date(int32(v))), nil
	default:
		return model.Key{}, fmt.Errorf("%w: %v", ErrInvalidKind, kind)
	}
}

func writeBytes(w *bufio.Writer, b []byte) error {
	if err := writeUvarint(w, uint64(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func readBytes(r *bufio.Reader) ([]byte, error) {
	n, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}
