package drafts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/dvloznov/rendiciones/internal/gcsuploader"
)

// ObjectStore keeps one JSON object per draft, under prefix, in a bucket.
// Drafts older than the TTL are treated as absent and removed on load.
type ObjectStore struct {
	objects gcsuploader.ObjectStore
	prefix  string
	ttl     time.Duration
	now     func() time.Time
}

// NewObjectStore creates a draft store on objects.
func NewObjectStore(objects gcsuploader.ObjectStore, prefix string, ttl time.Duration) *ObjectStore {
	return &ObjectStore{
		objects: objects,
		prefix:  prefix,
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *ObjectStore) objectName(key string) string {
	return s.prefix + url.PathEscape(key) + ".json"
}

func (s *ObjectStore) Save(ctx context.Context, d *Draft) error {
	if d == nil || d.Key == "" {
		return fmt.Errorf("ObjectStore.Save: draft key is required")
	}
	cp := d.clone()
	cp.SavedAt = s.now()

	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("ObjectStore.Save: marshal draft %s: %w", d.Key, err)
	}
	if err := s.objects.Put(ctx, s.objectName(d.Key), bytes.NewReader(data), "application/json"); err != nil {
		return fmt.Errorf("ObjectStore.Save: %w", err)
	}
	return nil
}

func (s *ObjectStore) Load(ctx context.Context, key string) (*Draft, error) {
	data, err := s.objects.Get(ctx, s.objectName(key))
	if errors.Is(err, gcsuploader.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ObjectStore.Load: %w", err)
	}

	var d Draft
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("ObjectStore.Load: decode draft %s: %w", key, err)
	}

	if s.ttl > 0 && s.now().Sub(d.SavedAt) > s.ttl {
		_ = s.objects.Delete(ctx, s.objectName(key))
		return nil, ErrNotFound
	}
	return &d, nil
}

func (s *ObjectStore) Clear(ctx context.Context, key string) error {
	if err := s.objects.Delete(ctx, s.objectName(key)); err != nil {
		return fmt.Errorf("ObjectStore.Clear: %w", err)
	}
	return nil
}

var _ Store = (*ObjectStore)(nil)
