package she

import (
	"github.com/shecore/hsm/internal/shekeys"
)

// fakeStore is a minimal in-memory shekeys.Store test double so engine
// tests never depend on a real NVM backend.
type fakeStore struct {
	persistent map[shekeys.KeyID]fakeEntry
	cached     map[shekeys.KeyID]fakeEntry
}

type fakeEntry struct {
	meta shekeys.Metadata
	key  []byte
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		persistent: make(map[shekeys.KeyID]fakeEntry),
		cached:     make(map[shekeys.KeyID]fakeEntry),
	}
}

func (f *fakeStore) ReadKey(id shekeys.KeyID) (shekeys.Metadata, []byte, error) {
	if e, ok := f.cached[id]; ok {
		return e.meta, append([]byte(nil), e.key...), nil
	}
	if e, ok := f.persistent[id]; ok {
		return e.meta, append([]byte(nil), e.key...), nil
	}
	return shekeys.Metadata{}, nil, shekeys.ErrNotFound
}

func (f *fakeStore) AddObject(id shekeys.KeyID, meta shekeys.Metadata, key []byte) error {
	f.persistent[id] = fakeEntry{meta: meta, key: append([]byte(nil), key...)}
	delete(f.cached, id)
	return nil
}

func (f *fakeStore) CacheKey(id shekeys.KeyID, meta shekeys.Metadata, key []byte) error {
	f.cached[id] = fakeEntry{meta: meta, key: append([]byte(nil), key...)}
	return nil
}

func (f *fakeStore) put(id shekeys.KeyID, meta shekeys.Metadata, key []byte) {
	f.persistent[id] = fakeEntry{meta: meta, key: append([]byte(nil), key...)}
}
