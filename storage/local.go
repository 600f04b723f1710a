package storage

import (
	"bufio"
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

var _ Client = (*LocalClient)(nil)

// LocalClient implements Client using the local file system.
type LocalClient struct {
	root string
}

// NewLocalClient creates a LocalClient rooted at the given directory.
func NewLocalClient(root string) *LocalClient {
	return &LocalClient{root: root}
}

func (c *LocalClient) path(name string) string {
	return filepath.Join(c.root, filepath.FromSlash(name))
}

// MkdirAll creates the directory and any missing parents.
func (c *LocalClient) MkdirAll(_ context.Context, path string) error {
	return os.MkdirAll(c.path(path), 0o755)
}

// Create opens a buffered output stream at path.
func (c *LocalClient) Create(_ context.Context, path string) (io.WriteCloser, error) {
	f, err := os.Create(c.path(path))
	if err != nil {
		return nil, err
	}
	return &bufferedFile{
		f: f,
		w: bufio.NewWriterSize(f, 256*1024),
	}, nil
}

// Open opens an input stream for the file at path.
func (c *LocalClient) Open(_ context.Context, path string) (io.ReadCloser, error) {
	f, err := os.Open(c.path(path))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return f, nil
}

// Remove deletes the file at path. A missing file is not an error.
func (c *LocalClient) Remove(_ context.Context, path string) error {
	err := os.Remove(c.path(path))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

type bufferedFile struct {
	f *os.File
	w *bufio.Writer
}

func (b *bufferedFile) Write(p []byte) (int, error) {
	return b.w.Write(p)
}

func (b *bufferedFile) Close() error {
	if err := b.w.Flush(); err != nil {
		_ = b.f.Close()
		return err
	}
	if err := b.f.Sync(); err != nil {
		_ = b.f.Close()
		return err
	}
	return b.f.Close()
}
