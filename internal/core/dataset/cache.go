package dataset

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"

	"github.com/prospectlens/prospectlens/internal/core"
)

// DefaultCacheTTL bounds how stale a cached sheet snapshot can be.
const DefaultCacheTTL = 30 * time.Second

// CachedStore serves recent snapshots of a table from memory. Callers always get
// their own copy; writes go straight through and drop the snapshot.
type CachedStore struct {
	inner TableStore
	cache *ristretto.Cache
	ttl   time.Duration
}

// NewCachedStore wraps inner with a TTL snapshot cache. A non-positive ttl
// disables caching.
func NewCachedStore(inner TableStore, ttl time.Duration) (*CachedStore, error) {
	if inner == nil {
		return nil, fmt.Errorf("cached store requires an inner store")
	}
	store := &CachedStore{inner: inner, ttl: ttl}
	if ttl <= 0 {
		return store, nil
	}

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1000,
		MaxCost:     100,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create sheet cache: %w", err)
	}
	store.cache = cache
	return store, nil
}

// ReadAll returns a cached snapshot when fresh, otherwise reads through.
func (s *CachedStore) ReadAll(ctx context.Context, table string) (*core.Dataset, error) {
	if s.cache != nil {
		if value, ok := s.cache.Get(table); ok {
			if ds, ok := value.(*core.Dataset); ok {
				return ds.Clone(), nil
			}
		}
	}

	ds, err := s.inner.ReadAll(ctx, table)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.SetWithTTL(table, ds.Clone(), 1, s.ttl)
		s.cache.Wait()
	}
	return ds, nil
}

// WriteAll writes through and invalidates the snapshot.
func (s *CachedStore) WriteAll(ctx context.Context, table string, ds *core.Dataset) error {
	s.Invalidate(table)
	if err := s.inner.WriteAll(ctx, table, ds); err != nil {
		return err
	}
	s.Invalidate(table)
	return nil
}

// Invalidate drops the snapshot for table.
func (s *CachedStore) Invalidate(table string) {
	if s == nil || s.cache == nil {
		return
	}
	s.cache.Del(table)
}

// Close releases the cache.
func (s *CachedStore) Close() {
	if s == nil || s.cache == nil {
		return
	}
	s.cache.Close()
}
