package storage

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalClientWriteReadRemove(t *testing.T) {
	ctx := context.Background()
	client := NewLocalClient(t.TempDir())

	require.NoError(t, client.MkdirAll(ctx, "indexes/sales/fruit"))

	w, err := client.Create(ctx, "indexes/sales/fruit/index.btree")
	require.NoError(t, err)
	_, err = w.Write([]byte("payload"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r, err := client.Open(ctx, "indexes/sales/fruit/index.btree")
	require.NoError(t, err)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	assert.Equal(t, []byte("payload"), data)

	require.NoError(t, client.Remove(ctx, "indexes/sales/fruit/index.btree"))

	_, err = client.Open(ctx, "indexes/sales/fruit/index.btree")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalClientOpenMissing(t *testing.T) {
	client := NewLocalClient(t.TempDir())

	_, err := client.Open(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalClientRemoveMissing(t *testing.T) {
	client := NewLocalClient(t.TempDir())

	assert.NoError(t, client.Remove(context.Background(), "nope"))
}

func TestLocalClientCreateTruncates(t *testing.T) {
	ctx := context.Background()
	client := NewLocalClient(t.TempDir())

	for _, payload := range []string{"first version", "v2"} {
		w, err := client.Create(ctx, "file")
		require.NoError(t, err)
		_, err = w.Write([]byte(payload))
		require.NoError(t, err)
		require.NoError(t, w.Close())
	}

	r, err := client.Open(ctx, "file")
	require.NoError(t, err)
	defer r.Close()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), data)
}
