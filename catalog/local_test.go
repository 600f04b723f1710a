package catalog

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalCatalogCommitAndCurrent(t *testing.T) {
	ctx := context.Background()
	cat := NewLocalCatalog(filepath.Join(t.TempDir(), "catalog.json"))

	_, ok, err := cat.Current(ctx, "sales", "fruit", "pt=2020")
	require.NoError(t, err)
	assert.False(t, ok)

	committed, err := cat.Commit(ctx, Entry{
		Table:           "sales",
		Column:          "fruit",
		Partition:       "pt=2020",
		Path:            "indexes/sales/fruit/pt=2020/index.btree",
		MaxLastModified: 1000,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), committed.Version)

	got, ok, err := cat.Current(ctx, "sales", "fruit", "pt=2020")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, committed, got)
}

func TestLocalCatalogVersionsIncrease(t *testing.T) {
	ctx := context.Background()
	cat := NewLocalCatalog(filepath.Join(t.TempDir(), "catalog.json"))

	e := Entry{Table: "sales", Column: "fruit", Path: "a"}
	for want := uint64(1); want <= 3; want++ {
		committed, err := cat.Commit(ctx, e)
		require.NoError(t, err)
		assert.Equal(t, want, committed.Version)
	}
}

func TestLocalCatalogPersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	file := filepath.Join(t.TempDir(), "catalog.json")

	first := NewLocalCatalog(file)
	_, err := first.Commit(ctx, Entry{Table: "sales", Column: "fruit", Path: "a", MaxLastModified: 42})
	require.NoError(t, err)

	second := NewLocalCatalog(file)
	got, ok, err := second.Current(ctx, "sales", "fruit", "")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "a", got.Path)
	assert.Equal(t, int64(42), got.MaxLastModified)
}

func TestLocalCatalogKeepsTriplesApart(t *testing.T) {
	ctx := context.Background()
	cat := NewLocalCatalog(filepath.Join(t.TempDir(), "catalog.json"))

	_, err := cat.Commit(ctx, Entry{Table: "sales", Column: "fruit", Partition: "pt=2020", Path: "a"})
	require.NoError(t, err)
	_, err = cat.Commit(ctx, Entry{Table: "sales", Column: "fruit", Partition: "pt=2021", Path: "b"})
	require.NoError(t, err)

	got, ok, err := cat.Current(ctx, "sales", "fruit", "pt=2020")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "a", got.Path)

	got, ok, err = cat.Current(ctx, "sales", "fruit", "pt=2021")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "b", got.Path)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "sales/fruit/pt=2020", Key("sales", "fruit", "pt=2020"))
	assert.Equal(t, "sales/fruit", Key("sales", "fruit", ""))
}
