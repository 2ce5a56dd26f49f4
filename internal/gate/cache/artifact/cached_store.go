package artifact

import (
	"context"
	"strings"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	artifactrepo "cigate/internal/gate/repository/artifact"
)

type Store = artifactrepo.Store

type CacheConfig struct {
	BlobMaxEntries int
	ListMaxEntries int
}

func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		BlobMaxEntries: 1024,
		ListMaxEntries: 256,
	}
}

type MetricsSnapshot struct {
	BlobHits     uint64
	BlobMisses   uint64
	ListHits     uint64
	ListMisses   uint64
	OriginReads  uint64
	OriginWrites uint64
}

// CachedStore is a read-through cache in front of an artifact Store.
// Artifacts are write-once per run, so cached blobs never go stale;
// Put still invalidates so a re-uploaded artifact wins.
type CachedStore struct {
	origin artifactrepo.Store

	blobs *lru.Cache[string, []byte]
	lists *lru.Cache[string, []string]

	blobHits     atomic.Uint64
	blobMisses   atomic.Uint64
	listHits     atomic.Uint64
	listMisses   atomic.Uint64
	originReads  atomic.Uint64
	originWrites atomic.Uint64
}

func NewCachedStore(origin artifactrepo.Store, cfg CacheConfig) *CachedStore {
	if cfg.BlobMaxEntries <= 0 {
		cfg.BlobMaxEntries = DefaultCacheConfig().BlobMaxEntries
	}
	if cfg.ListMaxEntries <= 0 {
		cfg.ListMaxEntries = DefaultCacheConfig().ListMaxEntries
	}
	blobs, _ := lru.New[string, []byte](cfg.BlobMaxEntries)
	lists, _ := lru.New[string, []string](cfg.ListMaxEntries)
	return &CachedStore{
		origin: origin,
		blobs:  blobs,
		lists:  lists,
	}
}

func (s *CachedStore) Put(ctx context.Context, runID, name string, content []byte) error {
	s.originWrites.Add(1)
	if err := s.origin.Put(ctx, runID, name, content); err != nil {
		return err
	}
	s.blobs.Remove(cacheKey(runID, name))
	s.lists.Remove(strings.TrimSpace(runID))
	return nil
}

func (s *CachedStore) Get(ctx context.Context, runID, name string) ([]byte, error) {
	key := cacheKey(runID, name)
	if raw, ok := s.blobs.Get(key); ok {
		s.blobHits.Add(1)
		return append([]byte(nil), raw...), nil
	}
	s.blobMisses.Add(1)
	s.originReads.Add(1)
	raw, err := s.origin.Get(ctx, runID, name)
	if err != nil {
		return nil, err
	}
	s.blobs.Add(key, append([]byte(nil), raw...))
	return raw, nil
}

func (s *CachedStore) List(ctx context.Context, runID string) ([]string, error) {
	key := strings.TrimSpace(runID)
	if names, ok := s.lists.Get(key); ok {
		s.listHits.Add(1)
		return append([]string(nil), names...), nil
	}
	s.listMisses.Add(1)
	s.originReads.Add(1)
	names, err := s.origin.List(ctx, runID)
	if err != nil {
		return nil, err
	}
	s.lists.Add(key, append([]string(nil), names...))
	return names, nil
}

func (s *CachedStore) GetURL(ctx context.Context, runID, name string) (string, error) {
	// Presigned URLs expire, so they are never cached.
	return s.origin.GetURL(ctx, runID, name)
}

func (s *CachedStore) Metrics() MetricsSnapshot {
	return MetricsSnapshot{
		BlobHits:     s.blobHits.Load(),
		BlobMisses:   s.blobMisses.Load(),
		ListHits:     s.listHits.Load(),
		ListMisses:   s.listMisses.Load(),
		OriginReads:  s.originReads.Load(),
		OriginWrites: s.originWrites.Load(),
	}
}

func cacheKey(runID, name string) string {
	return strings.TrimSpace(runID) + "/" + strings.TrimLeft(strings.TrimSpace(name), "/")
}
