package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

var _ Catalog = (*LocalCatalog)(nil)

// LocalCatalog implements Catalog as a single JSON file, rewritten
// atomically on every commit. Suitable for single-process deployments and
// tests.
type LocalCatalog struct {
	mu   sync.Mutex
	file string
}

// NewLocalCatalog creates a catalog stored at the given file path.
func NewLocalCatalog(file string) *LocalCatalog {
	return &LocalCatalog{file: file}
}

// Commit records e as the current entry for its triple.
func (c *LocalCatalog) Commit(_ context.Context, e Entry) (Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := c.load()
	if err != nil {
		return Entry{}, err
	}
	e.Version = entries[e.Key()].Version + 1
	entries[e.Key()] = e
	if err := c.save(entries); err != nil {
		return Entry{}, err
	}
	return e, nil
}

// Current returns the latest committed entry for the triple, if any.
func (c *LocalCatalog) Current(_ context.Context, table, column, partition string) (Entry, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := c.load()
	if err != nil {
		return Entry{}, false, err
	}
	e, ok := entries[Key(table, column, partition)]
	return e, ok, nil
}

func (c *LocalCatalog) load() (map[string]Entry, error) {
	data, err := os.ReadFile(c.file)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]Entry{}, nil
		}
		return nil, err
	}
	var entries map[string]Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// save writes to a temp file in the same directory and renames so a commit
// is all-or-nothing.
func (c *LocalCatalog) save(entries map[string]Entry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(c.file)
	tmp, err := os.CreateTemp(dir, filepath.Base(c.file)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, c.file); err != nil {
		return err
	}

	// Success: prevent deferred cleanup from removing the final file.
	tmpName = ""
	return nil
}
