// Package s3store implements storage.Client for AWS S3.
package s3store

import (
	"context"
	"errors"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/hupe1980/hindex/storage"
)

var _ storage.Client = (*Client)(nil)

// S3Client is the subset of the S3 API the storage client uses. It embeds
// the upload manager's requirements so streaming uploads work against it.
type S3Client interface {
	manager.UploadAPIClient

	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Client implements storage.Client backed by an S3 bucket.
type Client struct {
	client S3Client
	bucket string
	prefix string
}

// NewClient creates a new S3 storage client.
// rootPrefix is prepended to all keys (e.g. "indexes/").
func NewClient(client S3Client, bucket, rootPrefix string) *Client {
	return &Client{
		client: client,
		bucket: bucket,
		prefix: rootPrefix,
	}
}

// NewDefaultClient creates an S3 storage client from the default AWS
// configuration chain (environment, shared config, instance role).
func NewDefaultClient(ctx context.Context, bucket, rootPrefix string) (*Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}
	return NewClient(s3.NewFromConfig(cfg), bucket, rootPrefix), nil
}

func (c *Client) key(name string) string {
	return path.Join(c.prefix, name)
}

// MkdirAll is a no-op: object storage has no directories.
func (c *Client) MkdirAll(context.Context, string) error {
	return nil
}

// Create opens a streaming multipart upload to the object at name.
func (c *Client) Create(ctx context.Context, name string) (io.WriteCloser, error) {
	key := c.key(name)
	pr, pw := io.Pipe()

	w := &objectWriter{
		pw:   pw,
		done: make(chan error, 1),
	}
	uploader := manager.NewUploader(c.client)

	// Start upload in background
	go func() {
		_, err := uploader.Upload(ctx, &s3.PutObjectInput{
			Bucket: aws.String(c.bucket),
			Key:    aws.String(key),
			Body:   pr,
		})
		_ = pr.CloseWithError(err)
		w.done <- err
	}()

	return w, nil
}

// Open opens the object at name for reading.
func (c *Client) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	key := c.key(name)
	out, err := c.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, storage.ErrNotFound
		}
		var nf *types.NotFound
		if errors.As(err, &nf) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return out.Body, nil
}

// Remove deletes the object at name. A missing object is not an error.
func (c *Client) Remove(ctx context.Context, name string) error {
	key := c.key(name)
	_, err := c.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	return err
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
