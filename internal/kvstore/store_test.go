package kvstore

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/hupe1980/hindex"
	"github.com/hupe1980/hindex/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func longEntries(n int) []Entry {
	entries := make([]Entry, n)
	for i := range entries {
		entries[i] = Entry{
			Key:   model.LongKey(int64(100 + i)),
			Value: []byte(fmt.Sprintf("value%d", i)),
		}
	}
	return entries
}

func TestBulkLoadAndGet(t *testing.T) {
	s := New()
	defer s.Close()

	require.NoError(t, s.BulkLoad(model.KindLong, longEntries(100)))

	value, ok, err := s.Get(model.LongKey(101))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("value1"), value)

	_, ok, err = s.Get(model.LongKey(9999))
	require.NoError(t, err)
	assert.False(t, ok)

	kind, err := s.Kind()
	require.NoError(t, err)
	assert.Equal(t, model.KindLong, kind)
	assert.Equal(t, 100, s.Len())
	assert.Positive(t, s.DiskUsage())
	assert.Positive(t, s.MemoryUsage())
}

func TestBulkLoadEmpty(t *testing.T) {
	s := New()
	defer s.Close()

	require.NoError(t, s.BulkLoad(model.KindInvalid, nil))

	// A kind-agnostic empty store answers lookups of any kind with a miss.
	_, ok, err := s.Get(model.LongKey(1))
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = s.Get(model.StringKey("a"))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())

	// It is still a one-shot load.
	assert.ErrorIs(t, s.BulkLoad(model.KindLong, longEntries(3)), hindex.ErrAlreadyPopulated)
}

func TestBulkLoadRejectsInvalidKind(t *testing.T) {
	s := New()
	defer s.Close()

	assert.ErrorIs(t, s.BulkLoad(model.KindInvalid, longEntries(1)), ErrInvalidKind)
}

func TestBulkLoadTwiceFails(t *testing.T) {
	s := New()
	defer s.Close()

	require.NoError(t, s.BulkLoad(model.KindLong, longEntries(3)))
	assert.ErrorIs(t, s.BulkLoad(model.KindLong, longEntries(3)), hindex.ErrAlreadyPopulated)
}

func TestBulkLoadRejectsUnsorted(t *testing.T) {
	s := New()
	defer s.Close()

	entries := []Entry{
		{Key: model.LongKey(2), Value: []byte("b")},
		{Key: model.LongKey(1), Value: []byte("a")},
	}
	assert.ErrorIs(t, s.BulkLoad(model.KindLong, entries), ErrNotSorted)
}

func TestBulkLoadRejectsDuplicates(t *testing.T) {
	s := New()
	defer s.Close()

	entries := []Entry{
		{Key: model.LongKey(1), Value: []byte("a")},
		{Key: model.LongKey(1), Value: []byte("b")},
	}
	assert.ErrorIs(t, s.BulkLoad(model.KindLong, entries), ErrNotSorted)
}

func TestBulkLoadRejectsMixedKinds(t *testing.T) {
	s := New()
	defer s.Close()

	entries := []Entry{
		{Key: model.LongKey(1), Value: []byte("a")},
		{Key: model.StringKey("b"), Value: []byte("b")},
	}
	assert.ErrorIs(t, s.BulkLoad(model.KindLong, entries), ErrKindMismatch)
}

func TestGetBeforeLoad(t *testing.T) {
	s := New()
	defer s.Close()

	_, _, err := s.Get(model.LongKey(1))
	assert.ErrorIs(t, err, hindex.ErrUninitialized)
}

func TestGetKindMismatch(t *testing.T) {
	s := New()
	defer s.Close()

	require.NoError(t, s.BulkLoad(model.KindLong, longEntries(3)))
	_, _, err := s.Get(model.StringKey("101"))
	assert.ErrorIs(t, err, ErrKindMismatch)
}

func TestRangeAscending(t *testing.T) {
	s := New()
	defer s.Close()

	require.NoError(t, s.BulkLoad(model.KindLong, longEntries(100)))

	entries, err := s.Range(model.LongKey(101), model.LongKey(110))
	require.NoError(t, err)

	var keys []int64
	var values []string
	for key, value := range entries {
		keys = append(keys, key.Long())
		values = append(values, string(value))
	}
	assert.Equal(t, []int64{101, 102, 103, 104, 105, 106, 107, 108, 109, 110}, keys)
	assert.Equal(t, []string{
		"value1", "value2", "value3", "value4", "value5",
		"value6", "value7", "value8", "value9", "value10",
	}, values)
}

func TestRangeEmpty(t *testing.T) {
	s := New()
	defer s.Close()

	require.NoError(t, s.BulkLoad(model.KindLong, longEntries(10)))

	entries, err := s.Range(model.LongKey(500), model.LongKey(600))
	require.NoError(t, err)
	for range entries {
		t.Fatal("expected no entries")
	}
}

func roundTrip(t *testing.T, src *Store) *Store {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, src.Serialize(&buf))
	require.NoError(t, src.Close())

	dst := New()
	require.NoError(t, dst.Deserialize(&buf))
	return dst
}

func TestSerializeRoundTrip(t *testing.T) {
	for _, codec := range []hindex.CompressionType{hindex.CompressionZSTD, hindex.CompressionLZ4} {
		t.Run(fmt.Sprintf("codec-%d", codec), func(t *testing.T) {
			s := New(WithCompression(codec))
			require.NoError(t, s.BulkLoad(model.KindLong, longEntries(1000)))
			s.SetProperties(hindex.Properties{"symbol.table": "f1:1,f2:2"})

			loaded := roundTrip(t, s)
			defer loaded.Close()

			kind, err := loaded.Kind()
			require.NoError(t, err)
			assert.Equal(t, model.KindLong, kind)
			assert.Equal(t, 1000, loaded.Len())

			value, ok, err := loaded.Get(model.LongKey(100))
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, []byte("value0"), value)

			assert.Equal(t, hindex.Properties{"symbol.table": "f1:1,f2:2"}, loaded.Properties())
		})
	}
}

func TestSerializeRoundTripEmpty(t *testing.T) {
	s := New()
	require.NoError(t, s.BulkLoad(model.KindInvalid, nil))
	s.SetProperties(hindex.Properties{"symbol.table": ""})

	loaded := roundTrip(t, s)
	defer loaded.Close()

	assert.Equal(t, 0, loaded.Len())
	_, ok, err := loaded.Get(model.StringKey("a"))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, hindex.Properties{"symbol.table": ""}, loaded.Properties())
}

func TestSerializeRoundTripAllKinds(t *testing.T) {
	tests := []struct {
		name    string
		kind    model.Kind
		entries []Entry
	}{
		{"long", model.KindLong, []Entry{
			{Key: model.LongKey(-5), Value: []byte("a")},
			{Key: model.LongKey(7), Value: []byte("b")},
		}},
		{"double", model.KindDouble, []Entry{
			{Key: model.DoubleKey(-1.25), Value: []byte("a")},
			{Key: model.DoubleKey(3.5), Value: []byte("b")},
		}},
		{"float", model.KindFloat, []Entry{
			{Key: model.FloatKey(-1.25), Value: []byte("a")},
			{Key: model.FloatKey(3.5), Value: []byte("b")},
		}},
		{"string", model.KindString, []Entry{
			{Key: model.StringKey("alpha"), Value: []byte("a")},
			{Key: model.StringKey("beta"), Value: []byte("b")},
		}},
		{"boolean", model.KindBool, []Entry{
			{Key: model.BoolKey(false), Value: []byte("a")},
			{Key: model.BoolKey(true), Value: []byte("b")},
		}},
		{"date", model.KindDate, []Entry{
			{Key: model.DateKey(18000), Value: []byte("a")},
			{Key: model.DateKey(19000), Value: []byte("b")},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New()
			require.NoError(t, s.BulkLoad(tt.kind, tt.entries))

			loaded := roundTrip(t, s)
			defer loaded.Close()

			for _, e := range tt.entries {
				value, ok, err := loaded.Get(e.Key)
				require.NoError(t, err)
				require.True(t, ok, "key %v", e.Key)
				assert.Equal(t, e.Value, value)
			}
		})
	}
}

func TestDeserializeRejectsGarbage(t *testing.T) {
	s := New()
	defer s.Close()

	err := s.Deserialize(bytes.NewReader([]byte("not an index stream")))
	assert.ErrorIs(t, err, ErrInvalidMagic)
}

func TestClosedStore(t *testing.T) {
	s := New()
	require.NoError(t, s.BulkLoad(model.KindLong, longEntries(3)))
	require.NoError(t, s.Close())

	_, _, err := s.Get(model.LongKey(100))
	assert.ErrorIs(t, err, hindex.ErrClosed)

	assert.ErrorIs(t, s.Serialize(&bytes.Buffer{}), hindex.ErrClosed)
	assert.ErrorIs(t, s.BulkLoad(model.KindLong, nil), hindex.ErrClosed)
	assert.ErrorIs(t, s.Deserialize(&bytes.Buffer{}), hindex.ErrClosed)

	// Close is idempotent.
	assert.NoError(t, s.Close())
}

func TestSerializeBeforeLoad(t *testing.T) {
	s := New()
	defer s.Close()

	assert.ErrorIs(t, s.Serialize(&bytes.Buffer{}), hindex.ErrUninitialized)
}
