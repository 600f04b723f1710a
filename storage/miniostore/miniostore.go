// Package miniostore implements storage.Client for MinIO and S3-compatible
// object stores.
package miniostore

import (
	"context"
	"io"
	"path"

	"github.com/hupe1980/hindex/storage"
	"github.com/minio/minio-go/v7"
)

var _ storage.Client = (*Client)(nil)

// Client implements storage.Client backed by a MinIO bucket.
type Client struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewClient creates a new MinIO storage client.
// bucket is the MinIO bucket name.
// rootPrefix is prepended to all keys (e.g. "indexes/").
func NewClient(client *minio.Client, bucket, rootPrefix string) *Client {
	return &Client{
		client: client,
		bucket: bucket,
		prefix: rootPrefix,
	}
}

func (c *Client) key(name string) string {
	return path.Join(c.prefix, name)
}

// MkdirAll is a no-op: object storage has no directories.
func (c *Client) MkdirAll(context.Context, string) error {
	return nil
}

// Create opens a streaming upload to the object at name.
func (c *Client) Create(ctx context.Context, name string) (io.WriteCloser, error) {
	key := c.key(name)
	pr, pw := io.Pipe()

	w := &objectWriter{
		pw:   pw,
		done: make(chan error, 1),
	}

	// Start upload in background
	go func() {
		_, err := c.client.PutObject(ctx, c.bucket, key, pr, -1, minio.PutObjectOptions{})
		_ = pr.CloseWithError(err)
		w.done <- err
	}()

	return w, nil
}

// Open opens the object at name for reading.
func (c *Client) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	key := c.key(name)

	// Verify existence up front so missing objects map to ErrNotFound
	// instead of failing on first read.
	if _, err := c.client.StatObject(ctx, c.bucket, key, minio.StatObjectOptions{}); err != nil {
		errResp := minio.ToErrorResponse(err)
		if errResp.Code == "NoSuchKey" || errResp.Code == "NotFound" {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}

	obj, err := c.client.GetObject(ctx, c.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	return obj, nil
}

// Remove deletes the object at name. A missing object is not an error.
func (c *Client) Remove(ctx context.Context, name string) error {
	key := c.key(name)
	err := c.client.RemoveObject(ctx, c.bucket, key, minio.RemoveObjectOptions{})
	if err != nil {
		errResp := minio.ToErrorResponse(err)
		if errResp.Code == "NoSuchKey" || errResp.Code == "NotFound" {
			return nil // Already gone
		}
		return err
	}
	return nil
}

type objectWriter struct {
	pw   *io.PipeWriter
	done chan error
}

func (w *objectWriter) Write(p []byte) (int, error) {
	return w.pw.Write(p)
}

func (w *objectWriter) Close() error {
	if err := w.pw.Close(); err != nil {
		return err
	}
	// Wait for the background upload to finish.
	return <-w.done
}
