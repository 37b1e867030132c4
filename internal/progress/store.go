package progress

import (
	"context"
	"sync"

	"example.com/backstage/services/laundry/internal/cache"

	"github.com/pkg/errors"
)

// RedisStore keeps the progress map as one JSON value under a namespaced key
type RedisStore struct {
	cache *cache.RedisCache
	key   string
}

// NewRedisStore creates a store writing to key
func NewRedisStore(c *cache.RedisCache, key string) *RedisStore {
	return &RedisStore{cache: c, key: key}
}

// Get reads the whole map. A missing key is an empty map.
func (s *RedisStore) Get(ctx context.Context) (Map, error) {
	m := Map{}
	if err := s.cache.Get(ctx, s.key, &m); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return Map{}, nil
		}
		return nil, errors.Wrap(err, "failed to read progress map")
	}
	return m, nil
}

// Set overwrites the whole map
func (s *RedisStore) Set(ctx context.Context, m Map) error {
	return errors.Wrap(s.cache.Set(ctx, s.key, m, 0), "failed to write progress map")
}

// Clear removes the key
func (s *RedisStore) Clear(ctx context.Context) error {
	return errors.Wrap(s.cache.Delete(ctx, s.key), "failed to clear progress map")
}

// MemoryStore keeps the progress map in process. Values are copied on the way in and out.
type MemoryStore struct {
	mu sync.RWMutex
	m  Map
}

// NewMemoryStore creates an empty in-process store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{m: Map{}}
}

// Get returns a copy of the map
func (s *MemoryStore) Get(ctx context.Context) (Map, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyMap(s.m), nil
}

// Set replaces the map
func (s *MemoryStore) Set(ctx context.Context, m Map) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m = copyMap(m)
	return nil
}

// Clear empties the map
func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m = Map{}
	return nil
}

func copyMap(m Map) Map {
	out := make(Map, len(m))
	for orderID, flags := range m {
		f := make(map[string]bool, len(flags))
		for k, v := range flags {
			f[k] = v
		}
		out[orderID] = f
	}
	return out
}
