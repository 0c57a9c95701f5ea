package shekeys

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedStore wraps a Store with a bounded read cache. Every SHE
// handler re-reads the same handful of keys (SECRET_KEY, BOOT_MAC_KEY,
// the auth key named in each LoadKey request) on every request; caching
// validated reads avoids round-tripping to the backend for keys that
// haven't changed since they were last read.
type CachedStore struct {
	inner Store
	cache *lru.Cache[KeyID, entry]
}

// NewCachedStore wraps inner with an LRU cache holding up to size
// entries. A size of 0 or less falls back to a default of 32 entries,
// more than SHE's own key count (five reserved slots plus ten user
// slots).
func NewCachedStore(inner Store, size int) (*CachedStore, error) {
	if size <= 0 {
		size = 32
	}
	c, err := lru.New[KeyID, entry](size)
	if err != nil {
		return nil, err
	}
	return &CachedStore{inner: inner, cache: c}, nil
}

// ReadKey returns the cached entry for id if present, otherwise reads
// through to the wrapped Store and caches the result.
func (s *CachedStore) ReadKey(id KeyID) (Metadata, []byte, error) {
	if e, ok := s.cache.Get(id); ok {
		out := make([]byte, len(e.key))
		copy(out, e.key)
		return e.meta, out, nil
	}
	meta, key, err := s.inner.ReadKey(id)
	if err != nil {
		return Metadata{}, nil, err
	}
	cp := make([]byte, len(key))
	copy(cp, key)
	s.cache.Add(id, entry{meta: meta, key: cp})
	return meta, key, nil
}

// AddObject persists through the wrapped Store and invalidates id's
// cache entry so the next ReadKey observes the new value.
func (s *CachedStore) AddObject(id KeyID, meta Metadata, key []byte) error {
	if err := s.inner.AddObject(id, meta, key); err != nil {
		return err
	}
	s.cache.Remove(id)
	return nil
}

// CacheKey writes through the wrapped Store and refreshes id's cache
// entry immediately, since cache-only writes (the RAM key) never
// become stale via a backend the cache doesn't see.
func (s *CachedStore) CacheKey(id KeyID, meta Metadata, key []byte) error {
	if err := s.inner.CacheKey(id, meta, key); err != nil {
		return err
	}
	cp := make([]byte, len(key))
	copy(cp, key)
	s.cache.Add(id, entry{meta: meta, key: cp})
	return nil
}
