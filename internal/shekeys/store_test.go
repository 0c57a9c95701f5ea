package shekeys

import (
	"bytes"
	"testing"
)

// memBackend is a minimal in-memory test double for the out-of-scope
// NVM object store's Backend contract.
type memBackend struct {
	objects map[uint32][2][]byte
}

func newMemBackend() *memBackend {
	return &memBackend{objects: make(map[uint32][2][]byte)}
}

func (m *memBackend) Get(id uint32) ([]byte, []byte, error) {
	v, ok := m.objects[id]
	if !ok {
		return nil, nil, ErrNotFound
	}
	return v[0], v[1], nil
}

func (m *memBackend) Put(id uint32, meta, data []byte) error {
	m.objects[id] = [2][]byte{meta, data}
	return nil
}

func TestAdapterAddObjectAndReadKeyRoundTrip(t *testing.T) {
	a := NewAdapter(newMemBackend())
	id := MakeKeyID(KeyType, 1, 0x05)
	want := Metadata{Flags: FlagWriteProtect, Count: 3}
	key := bytes.Repeat([]byte{0x9}, 16)

	if err := a.AddObject(id, want, key); err != nil {
		t.Fatalf("AddObject: %v", err)
	}
	got, gotKey, err := a.ReadKey(id)
	if err != nil {
		t.Fatalf("ReadKey: %v", err)
	}
	if got != want {
		t.Fatalf("metadata round trip: got %+v want %+v", got, want)
	}
	if !bytes.Equal(gotKey, key) {
		t.Fatalf("key round trip: got %x want %x", gotKey, key)
	}
}

func TestAdapterReadKeyNotFound(t *testing.T) {
	a := NewAdapter(newMemBackend())
	if _, _, err := a.ReadKey(MakeKeyID(KeyType, 1, SlotRAMKey)); err != ErrNotFound {
		t.Fatalf("ReadKey on empty slot = %v, want ErrNotFound", err)
	}
}

func TestAdapterCacheKeyNeverPersists(t *testing.T) {
	backend := newMemBackend()
	a := NewAdapter(backend)
	id := MakeKeyID(KeyType, 1, SlotRAMKey)
	key := bytes.Repeat([]byte{0x1}, 16)

	if err := a.CacheKey(id, Metadata{}, key); err != nil {
		t.Fatalf("CacheKey: %v", err)
	}
	if _, _, err := backend.Get(uint32(id)); err != ErrNotFound {
		t.Fatalf("CacheKey must not write through to the backend")
	}
	_, gotKey, err := a.ReadKey(id)
	if err != nil {
		t.Fatalf("ReadKey: %v", err)
	}
	if !bytes.Equal(gotKey, key) {
		t.Fatalf("ReadKey after CacheKey: got %x want %x", gotKey, key)
	}
}

func TestAdapterAddObjectInvalidatesCache(t *testing.T) {
	a := NewAdapter(newMemBackend())
	id := MakeKeyID(KeyType, 1, 0x05)
	key1 := bytes.Repeat([]byte{0x1}, 16)
	key2 := bytes.Repeat([]byte{0x2}, 16)

	if err := a.AddObject(id, Metadata{Count: 1}, key1); err != nil {
		t.Fatalf("AddObject: %v", err)
	}
	if err := a.AddObject(id, Metadata{Count: 2}, key2); err != nil {
		t.Fatalf("AddObject: %v", err)
	}
	meta, gotKey, err := a.ReadKey(id)
	if err != nil {
		t.Fatalf("ReadKey: %v", err)
	}
	if meta.Count != 2 || !bytes.Equal(gotKey, key2) {
		t.Fatalf("ReadKey after second AddObject returned stale data: %+v %x", meta, gotKey)
	}
}

func TestCachedStoreReadsThroughAndCaches(t *testing.T) {
	backend := newMemBackend()
	adapter := NewAdapter(backend)
	id := MakeKeyID(KeyType, 1, 0x05)
	key := bytes.Repeat([]byte{0x7}, 16)
	if err := adapter.AddObject(id, Metadata{Count: 1}, key); err != nil {
		t.Fatalf("AddObject: %v", err)
	}

	cached, err := NewCachedStore(adapter, 4)
	if err != nil {
		t.Fatalf("NewCachedStore: %v", err)
	}
	meta, gotKey, err := cached.ReadKey(id)
	if err != nil {
		t.Fatalf("ReadKey: %v", err)
	}
	if meta.Count != 1 || !bytes.Equal(gotKey, key) {
		t.Fatalf("unexpected ReadKey result: %+v %x", meta, gotKey)
	}
}

func TestCachedStoreAddObjectInvalidatesEntry(t *testing.T) {
	backend := newMemBackend()
	adapter := NewAdapter(backend)
	cached, err := NewCachedStore(adapter, 4)
	if err != nil {
		t.Fatalf("NewCachedStore: %v", err)
	}
	id := MakeKeyID(KeyType, 1, 0x05)
	key1 := bytes.Repeat([]byte{0x1}, 16)
	key2 := bytes.Repeat([]byte{0x2}, 16)

	if err := cached.AddObject(id, Metadata{Count: 1}, key1); err != nil {
		t.Fatalf("AddObject: %v", err)
	}
	if _, _, err := cached.ReadKey(id); err != nil {
		t.Fatalf("ReadKey: %v", err)
	}
	if err := cached.AddObject(id, Metadata{Count: 2}, key2); err != nil {
		t.Fatalf("AddObject: %v", err)
	}
	meta, gotKey, err := cached.ReadKey(id)
	if err != nil {
		t.Fatalf("ReadKey: %v", err)
	}
	if meta.Count != 2 || !bytes.Equal(gotKey, key2) {
		t.Fatalf("cached ReadKey returned stale data after AddObject: %+v %x", meta, gotKey)
	}
}
