package she

import (
	"encoding/binary"

	"github.com/shecore/hsm/internal/shecrypto"
	"github.com/shecore/hsm/internal/shekeys"
)

var zeroIV = make([]byte, shecrypto.BlockSize)

func testUID() [uidSize]byte {
	var u [uidSize]byte
	for i := range u {
		u[i] = byte(i)
	}
	return u
}

// embedFlags packs flags (the 5-bit value popFlags extracts) into an
// M2-shaped buffer's byte 3 and 4, the reverse of popFlags.
func embedFlags(m2 []byte, flags uint16) {
	m2[3] |= byte((flags >> 4) & 0x0f)
	m2[4] |= byte((flags & 0x01) << 7)
}

// buildLoadKeyRequest constructs a wire-correct LOAD_KEY request
// (M1||M2||M3) the way an authorized client would, so engine tests
// exercise the same derivation the engine itself performs.
func buildLoadKeyRequest(uid [uidSize]byte, slot, authID byte, counter uint32, flags uint16, newKey, authKey []byte) ([]byte, error) {
	m1 := make([]byte, m1Size)
	copy(m1[0:uidSize], uid[:])
	m1[uidSize] = (slot << 4) | authID

	plainM2 := make([]byte, m2Size)
	binary.BigEndian.PutUint32(plainM2[0:4], counter<<4)
	embedFlags(plainM2, flags)
	copy(plainM2[keySize:], newKey)

	k1, err := deriveKey(authKey, keyUpdateEncC)
	if err != nil {
		return nil, err
	}
	cipherM2, err := shecrypto.AesCBCEncrypt(k1, zeroIV, plainM2)
	if err != nil {
		return nil, err
	}

	k2, err := deriveKey(authKey, keyUpdateMacC)
	if err != nil {
		return nil, err
	}
	m3, err := shecrypto.AesCMAC(k2, append(append([]byte(nil), m1...), cipherM2...))
	if err != nil {
		return nil, err
	}

	req := make([]byte, 0, m1Size+m2Size+m3Size)
	req = append(req, m1...)
	req = append(req, cipherM2...)
	req = append(req, m3...)
	return req, nil
}

func newTestEngineWithUID(t interface{ Helper() }) (*Engine, *fakeStore) {
	_ = t
	store := newFakeStore()
	e := NewEngine(store, 7)
	uid := testUID()
	if err := e.setUID(uid[:]); err != nil {
		panic(err)
	}
	e.sb = sbSuccess
	return e, store
}

func repeatByte(b byte, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = b
	}
	return out
}

func keyID(clientID uint32, slot byte) shekeys.KeyID {
	return shekeys.MakeKeyID(shekeys.KeyType, clientID, slot)
}
