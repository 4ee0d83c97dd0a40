package gcsuploader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
)

// MemoryBucket is an in-process ObjectStore, used when no bucket is configured.
type MemoryBucket struct {
	name string

	mu      sync.RWMutex
	objects map[string][]byte
	types   map[string]string
}

// NewMemoryBucket creates an empty bucket reported under name in URIs.
func NewMemoryBucket(name string) *MemoryBucket {
	return &MemoryBucket{
		name:    name,
		objects: make(map[string][]byte),
		types:   make(map[string]string),
	}
}

func (b *MemoryBucket) Put(ctx context.Context, name string, r io.Reader, contentType string) error {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[name] = buf.Bytes()
	b.types[name] = contentType
	return nil
}

func (b *MemoryBucket) Get(ctx context.Context, name string) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	data, ok := b.objects[name]
	if !ok {
		return nil, fmt.Errorf("read %s/%s: %w", b.name, name, ErrNotFound)
	}
	return bytes.Clone(data), nil
}

func (b *MemoryBucket) Delete(ctx context.Context, name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, name)
	delete(b.types, name)
	return nil
}

func (b *MemoryBucket) URI(name string) string {
	return "gs://" + b.name + "/" + name
}

// ContentType returns the content type name was stored with.
func (b *MemoryBucket) ContentType(name string) string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.types[name]
}
