package drafts

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
)

// MemoryStore keeps drafts in process memory. Drafts untouched for longer
// than the TTL expire.
type MemoryStore struct {
	c   *cache.Cache
	now func() time.Time
}

// NewMemoryStore creates a store whose entries expire after ttl.
// A ttl of zero keeps drafts until cleared.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	cleanup := 10 * time.Minute
	if ttl <= 0 {
		ttl = cache.NoExpiration
		cleanup = 0
	}
	return &MemoryStore{
		c:   cache.New(ttl, cleanup),
		now: time.Now,
	}
}

func (s *MemoryStore) Save(ctx context.Context, d *Draft) error {
	if d == nil || d.Key == "" {
		return fmt.Errorf("MemoryStore.Save: draft key is required")
	}
	cp := d.clone()
	if cp.SavedAt.IsZero() {
		cp.SavedAt = s.now()
	}
	s.c.Set(cp.Key, cp, cache.DefaultExpiration)
	return nil
}

func (s *MemoryStore) Load(ctx context.Context, key string) (*Draft, error) {
	v, found := s.c.Get(key)
	if !found {
		return nil, ErrNotFound
	}
	return v.(*Draft).clone(), nil
}

func (s *MemoryStore) Clear(ctx context.Context, key string) error {
	s.c.Delete(key)
	return nil
}

var _ Store = (*MemoryStore)(nil)
