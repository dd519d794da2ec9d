package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"image-pipeline/internal/domain"
)

// LRUManifestStore fronts another ManifestStore with a bounded in-process
// cache. Results handed out are copies, so callers may mutate them.
type LRUManifestStore struct {
	next domain.ManifestStore
	lru  *expirable.LRU[string, *domain.ProcessingResult]
}

// NewLRUManifestStore wraps next with an LRU of size entries, each kept at
// most ttl (0 disables expiry).
func NewLRUManifestStore(next domain.ManifestStore, size int, ttl time.Duration) *LRUManifestStore {
	if size <= 0 {
		size = 1
	}
	return &LRUManifestStore{
		next: next,
		lru:  expirable.NewLRU[string, *domain.ProcessingResult](size, nil, ttl),
	}
}

// Get serves from memory, falling back to the wrapped store.
func (s *LRUManifestStore) Get(ctx context.Context, key string) (*domain.ProcessingResult, error) {
	if result, ok := s.lru.Get(key); ok {
		return result.Clone(), nil
	}

	result, err := s.next.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	s.lru.Add(key, result.Clone())
	return result, nil
}

// Save writes through to the wrapped store before caching in memory.
func (s *LRUManifestStore) Save(ctx context.Context, key string, result *domain.ProcessingResult) error {
	if err := s.next.Save(ctx, key, result); err != nil {
		return err
	}
	s.lru.Add(key, result.Clone())
	return nil
}

// Sweep delegates to the wrapped store and purges memory whenever the
// wrapped store deleted anything.
func (s *LRUManifestStore) Sweep(ctx context.Context, maxAge time.Duration) (domain.SweepReport, error) {
	report, err := s.next.Sweep(ctx, maxAge)
	if report.Deleted > 0 || err != nil {
		s.lru.Purge()
	}
	return report, err
}

// Len returns the number of entries held in memory.
func (s *LRUManifestStore) Len() int {
	return s.lru.Len()
}
