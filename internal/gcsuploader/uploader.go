package gcsuploader

import (
	"context"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
)

// Client is an ObjectStore over one Cloud Storage bucket.
// It assumes Application Default Credentials are configured (gcloud auth application-default login).
type Client struct {
	client *storage.Client
	bucket string
}

// NewClient creates a storage client bound to bucket.
func NewClient(ctx context.Context, bucket string) (*Client, error) {
	if bucket == "" {
		return nil, fmt.Errorf("NewClient: bucket name is required")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &Client{client: client, bucket: bucket}, nil
}

// Close releases the underlying storage client.
func (c *Client) Close() error {
	return c.client.Close()
}

// Put uploads r under name.
func (c *Client) Put(ctx context.Context, name string, r io.Reader, contentType string) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := c.client.Bucket(c.bucket).Object(name).NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return fmt.Errorf("copy %s to GCS writer: %w", name, err)
	}

	// Close finalizes the upload
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize upload of %s: %w", name, err)
	}
	return nil
}

// URI returns gs://bucket/name.
func (c *Client) URI(name string) string {
	return "gs://" + c.bucket + "/" + name
}
