package gcsuploader

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned when the requested object does not exist.
var ErrNotFound = errors.New("object not found")

// ObjectStore stores named blobs in a single bucket.
type ObjectStore interface {
	// Put writes r under name, replacing any existing object.
	Put(ctx context.Context, name string, r io.Reader, contentType string) error

	// Get returns the object's bytes, or ErrNotFound.
	Get(ctx context.Context, name string) ([]byte, error)

	// Delete removes the object. Deleting a missing object is not an error.
	Delete(ctx context.Context, name string) error

	// URI returns the gs:// URI of name.
	URI(name string) string
}

var (
	_ ObjectStore = (*Client)(nil)
	_ ObjectStore = (*MemoryBucket)(nil)
)
