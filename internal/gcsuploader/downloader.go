package gcsuploader

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
)

// Get downloads the bytes of name.
func (c *Client) Get(ctx context.Context, name string) ([]byte, error) {
	r, err := c.client.Bucket(c.bucket).Object(name).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, fmt.Errorf("read %s/%s: %w", c.bucket, name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("open GCS object reader %s/%s: %w", c.bucket, name, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read GCS object %s/%s: %w", c.bucket, name, err)
	}
	return data, nil
}

// Delete removes name from the bucket.
func (c *Client) Delete(ctx context.Context, name string) error {
	err := c.client.Bucket(c.bucket).Object(name).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("delete GCS object %s/%s: %w", c.bucket, name, err)
	}
	return nil
}
