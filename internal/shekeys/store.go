package shekeys

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Store.ReadKey when no object is stored
// under the requested id.
var ErrNotFound = errors.New("shekeys: key not found")

// Backend is the contract the out-of-scope NVM object store must
// satisfy. Only the two primitives named in spec.md §6 are required:
// reading an object by its packed numeric id, and persisting one.
// Everything else about the underlying store (its file format,
// wear-leveling, compaction) is the NVM subsystem's business, not the
// keystore adapter's.
type Backend interface {
	// Get returns the raw metadata and payload bytes stored under id,
	// or ErrNotFound if no object exists there.
	Get(id uint32) (meta []byte, data []byte, err error)
	// Put persists meta and data under id, replacing any prior object.
	Put(id uint32, meta []byte, data []byte) error
}

// Store is the SHE keystore interaction contract the protocol engine
// is written against: typed by KeyID, carrying SHE Metadata alongside
// raw key bytes, and distinguishing persistent writes (AddObject) from
// cache-only writes (CacheKey, used for the non-persistent RAM key).
type Store interface {
	ReadKey(id KeyID) (Metadata, []byte, error)
	AddObject(id KeyID, meta Metadata, key []byte) error
	CacheKey(id KeyID, meta Metadata, key []byte) error
}

// metaSize is the wire size of a serialized Metadata: a 16-bit flags
// field followed by the 28-bit counter left-shifted by 4 and stored
// big-endian in a 32-bit word, matching spec.md §3's wire layout.
const metaSize = 2 + 4

func encodeMeta(m Metadata) []byte {
	b := make([]byte, metaSize)
	binary.BigEndian.PutUint16(b[0:2], m.Flags)
	binary.BigEndian.PutUint32(b[2:6], m.Count<<4)
	return b
}

func decodeMeta(b []byte) (Metadata, error) {
	if len(b) != metaSize {
		return Metadata{}, fmt.Errorf("shekeys: corrupt metadata: want %d bytes, got %d", metaSize, len(b))
	}
	return Metadata{
		Flags: binary.BigEndian.Uint16(b[0:2]),
		Count: binary.BigEndian.Uint32(b[2:6]) >> 4,
	}, nil
}

// Adapter implements Store over a Backend, plus an in-memory cache for
// non-persistent keys (the RAM key slot never touches the Backend).
type Adapter struct {
	backend Backend
	cache   map[KeyID]entry
}

type entry struct {
	meta Metadata
	key  []byte
}

// NewAdapter builds a keystore Adapter over backend.
func NewAdapter(backend Backend) *Adapter {
	return &Adapter{backend: backend, cache: make(map[KeyID]entry)}
}

// ReadKey returns the metadata and 16-byte key stored under id,
// checking the non-persistent cache before the backend.
func (a *Adapter) ReadKey(id KeyID) (Metadata, []byte, error) {
	if e, ok := a.cache[id]; ok {
		out := make([]byte, len(e.key))
		copy(out, e.key)
		return e.meta, out, nil
	}
	metaB, data, err := a.backend.Get(uint32(id))
	if err != nil {
		return Metadata{}, nil, err
	}
	meta, err := decodeMeta(metaB)
	if err != nil {
		return Metadata{}, nil, err
	}
	return meta, data, nil
}

// AddObject persists meta and key under id through the backend, and
// invalidates any stale cache entry for id.
func (a *Adapter) AddObject(id KeyID, meta Metadata, key []byte) error {
	if err := a.backend.Put(uint32(id), encodeMeta(meta), key); err != nil {
		return err
	}
	delete(a.cache, id)
	return nil
}

// CacheKey stores meta and key in the non-persistent cache only,
// without ever touching the backend. Used for the RAM key slot.
func (a *Adapter) CacheKey(id KeyID, meta Metadata, key []byte) error {
	cp := make([]byte, len(key))
	copy(cp, key)
	a.cache[id] = entry{meta: meta, key: cp}
	return nil
}
