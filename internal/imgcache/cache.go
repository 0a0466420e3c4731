package imgcache

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"artfolio/internal/blobstore"
)

const (
	DefaultCapacity = 100
	DefaultTTL      = time.Hour
)

type entry struct {
	data     []byte
	storedAt time.Time
}

// Cache serves image bytes for storage paths, keeping recently fetched
// objects in a bounded in-memory LRU. Entries expire a fixed TTL after
// insertion; expired entries are dropped lazily on the next read. Backend
// failures are never cached. Stored objects are immutable per key, so a
// redundant fetch on concurrent misses is harmless.
type Cache struct {
	store blobstore.Store
	lru   *lru.Cache[string, entry]
	ttl   time.Duration

	now func() time.Time
}

func New(store blobstore.Store, capacity int, ttl time.Duration) (*Cache, error) {
	const op = "imgcache.New"

	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	l, err := lru.New[string, entry](capacity)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", op, err)
	}

	return &Cache{store: store, lru: l, ttl: ttl, now: time.Now}, nil
}

// Fetch returns the bytes for a storage path, from cache when fresh,
// otherwise from the backend (populating the cache on success).
func (c *Cache) Fetch(ctx context.Context, path string) ([]byte, error) {
	if e, ok := c.lru.Get(path); ok {
		if c.now().Sub(e.storedAt) < c.ttl {
			return e.data, nil
		}
		c.lru.Remove(path)
	}

	data, err := c.store.Get(ctx, path)
	if err != nil {
		return nil, err
	}

	c.lru.Add(path, entry{data: data, storedAt: c.now()})
	return data, nil
}

// Len reports the number of cached entries, expired ones included.
func (c *Cache) Len() int {
	return c.lru.Len()
}
