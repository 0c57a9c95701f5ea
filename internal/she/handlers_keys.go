package she

import (
	"encoding/binary"

	"github.com/shecore/hsm/internal/shecrypto"
	"github.com/shecore/hsm/internal/shekeys"
)

func popAuthID(m1 []byte) byte {
	return m1[len(m1)-1] & 0x0f
}

func popSlotID(m1 []byte) byte {
	return (m1[len(m1)-1] & 0xf0) >> 4
}

func popFlags(m2 []byte) uint16 {
	return uint16(m2[3]&0x0f)<<4 | uint16(m2[4]&0x80)>>7
}

func allZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}

// decodeM2Counter reads the 28-bit anti-rollback counter packed into
// M2's leading big-endian word (spec.md §4.2).
func decodeM2Counter(m2 []byte) uint32 {
	return binary.BigEndian.Uint32(m2[0:4]) >> 4
}

// encryptedCounterBlock builds the 16-byte plaintext the M4/counter
// field encrypts: the new counter left-shifted by 4 with the pad bit
// set, matching the source's messageTwo reuse for the outbound block.
func encryptedCounterBlock(count uint32) []byte {
	b := make([]byte, keySize)
	binary.BigEndian.PutUint32(b[0:4], count<<4)
	b[3] |= 0x08
	return b
}

// loadKey implements LOAD_KEY: verifies the M1..M3 key-update message
// against the slot's current authentication key and, on success,
// installs the new key and returns the confirming M4/M5 pair.
func (e *Engine) loadKey(req []byte) ([]byte, error) {
	if len(req) != m1Size+m2Size+m3Size {
		return nil, fail(GeneralError)
	}
	m1 := append([]byte(nil), req[0:m1Size]...)
	m2 := append([]byte(nil), req[m1Size:m1Size+m2Size]...)
	m3 := req[m1Size+m2Size : m1Size+m2Size+m3Size]

	authID := popAuthID(m1)
	_, authKey, err := e.store.ReadKey(e.keyID(authID))
	if err != nil {
		return nil, fail(KeyNotAvailable)
	}
	defer shecrypto.Zero(authKey)

	k2, err := deriveKey(authKey, keyUpdateMacC)
	if err != nil {
		return nil, fail(GeneralError)
	}
	defer shecrypto.Zero(k2)

	msg := append(append([]byte(nil), m1...), m2...)
	tag, err := shecrypto.AesCMAC(k2, msg)
	if err != nil {
		return nil, fail(GeneralError)
	}
	defer shecrypto.Zero(tag)
	if !constTimeEqual(tag, m3) {
		return nil, fail(KeyUpdateError)
	}

	k1, err := deriveKey(authKey, keyUpdateEncC)
	if err != nil {
		return nil, fail(GeneralError)
	}
	defer shecrypto.Zero(k1)

	plainM2, err := shecrypto.AesCBCDecrypt(k1, make([]byte, shecrypto.BlockSize), m2)
	if err != nil {
		return nil, fail(GeneralError)
	}
	defer shecrypto.Zero(plainM2)

	slot := popSlotID(m1)
	targetID := e.keyID(slot)
	existingMeta, _, readErr := e.store.ReadKey(targetID)
	existed := readErr == nil
	if existed && existingMeta.WriteProtected() {
		return nil, fail(WriteProtected)
	}

	if allZero(m1[0:uidSize]) {
		if existed && !existingMeta.Wildcard() {
			return nil, fail(KeyUpdateError)
		}
		if !existed {
			return nil, fail(KeyUpdateError)
		}
	} else if !constTimeEqual(m1[0:uidSize], e.uid[:]) {
		return nil, fail(KeyUpdateError)
	}

	newCounter := decodeM2Counter(plainM2)
	if existed && newCounter <= existingMeta.Count {
		return nil, fail(KeyUpdateError)
	}

	newKey := append([]byte(nil), plainM2[keySize:keySize+keySize]...)
	defer shecrypto.Zero(newKey)
	newMeta := shekeys.Metadata{Flags: popFlags(plainM2), Count: newCounter}

	var finalMeta shekeys.Metadata
	if slot == shekeys.SlotRAMKey {
		if err := e.store.CacheKey(targetID, newMeta, newKey); err != nil {
			return nil, fail(KeyUpdateError)
		}
		finalMeta = newMeta
	} else {
		if err := e.store.AddObject(targetID, newMeta, newKey); err != nil {
			return nil, fail(KeyUpdateError)
		}
		rereadMeta, _, err := e.store.ReadKey(targetID)
		if err != nil {
			return nil, fail(KeyUpdateError)
		}
		finalMeta = rereadMeta
	}

	k3, err := deriveKey(newKey, keyUpdateEncC)
	if err != nil {
		return nil, fail(GeneralError)
	}
	defer shecrypto.Zero(k3)
	encCounter, err := shecrypto.AesEncryptBlock(k3, encryptedCounterBlock(finalMeta.Count))
	if err != nil {
		return nil, fail(GeneralError)
	}

	m4 := make([]byte, m4Size)
	copy(m4[0:uidSize], e.uid[:])
	m4[uidSize] = (slot << 4) | authID
	copy(m4[uidSize+1:], encCounter)

	k4, err := deriveKey(newKey, keyUpdateMacC)
	if err != nil {
		return nil, fail(GeneralError)
	}
	defer shecrypto.Zero(k4)
	m5, err := shecrypto.AesCMAC(k4, m4)
	if err != nil {
		return nil, fail(GeneralError)
	}

	if slot == shekeys.SlotRAMKey {
		e.ramKeyPlain = true
	}

	resp := make([]byte, m4Size+m5Size)
	copy(resp[0:m4Size], m4)
	copy(resp[m4Size:], m5)
	return resp, nil
}

// loadPlainKey implements LOAD_PLAIN_KEY: installs a caller-supplied
// plaintext key directly into the non-persistent RAM slot.
func (e *Engine) loadPlainKey(req []byte) error {
	if len(req) != keySize {
		return fail(GeneralError)
	}
	id := e.keyID(shekeys.SlotRAMKey)
	if err := e.store.CacheKey(id, shekeys.Metadata{}, req); err != nil {
		return fail(GeneralError)
	}
	e.ramKeyPlain = true
	return nil
}

// exportRamKey implements EXPORT_RAM_KEY: wraps the current RAM key
// contents in an outbound M1..M5 tuple authenticated under SECRET_KEY,
// structurally identical to the confirmation half of LoadKey.
func (e *Engine) exportRamKey() ([]byte, error) {
	if !e.ramKeyPlain {
		return nil, fail(KeyInvalid)
	}

	_, secretKey, err := e.store.ReadKey(e.keyID(shekeys.SlotSecretKey))
	if err != nil {
		return nil, fail(KeyNotAvailable)
	}
	defer shecrypto.Zero(secretKey)

	m1 := make([]byte, m1Size)
	copy(m1[0:uidSize], e.uid[:])
	m1[uidSize] = (shekeys.SlotRAMKey << 4) | shekeys.SlotSecretKey

	k1, err := deriveKey(secretKey, keyUpdateEncC)
	if err != nil {
		return nil, fail(GeneralError)
	}
	defer shecrypto.Zero(k1)

	_, ramKey, err := e.store.ReadKey(e.keyID(shekeys.SlotRAMKey))
	if err != nil {
		return nil, fail(KeyNotAvailable)
	}
	defer shecrypto.Zero(ramKey)

	plainM2 := encryptedCounterBlock(1)
	plainM2 = append(plainM2, ramKey...)
	cipherM2, err := shecrypto.AesCBCEncrypt(k1, make([]byte, shecrypto.BlockSize), plainM2)
	if err != nil {
		return nil, fail(GeneralError)
	}
	shecrypto.Zero(plainM2)

	k2, err := deriveKey(secretKey, keyUpdateMacC)
	if err != nil {
		return nil, fail(GeneralError)
	}
	defer shecrypto.Zero(k2)
	msg := append(append([]byte(nil), m1...), cipherM2...)
	m3, err := shecrypto.AesCMAC(k2, msg)
	if err != nil {
		return nil, fail(GeneralError)
	}

	k3, err := deriveKey(ramKey, keyUpdateEncC)
	if err != nil {
		return nil, fail(GeneralError)
	}
	defer shecrypto.Zero(k3)
	m4 := make([]byte, m4Size)
	copy(m4[0:uidSize], e.uid[:])
	m4[uidSize] = (shekeys.SlotRAMKey << 4) | shekeys.SlotSecretKey
	encCounter, err := shecrypto.AesEncryptBlock(k3, encryptedCounterBlock(1))
	if err != nil {
		return nil, fail(GeneralError)
	}
	copy(m4[uidSize+1:], encCounter)

	k4, err := deriveKey(ramKey, keyUpdateMacC)
	if err != nil {
		return nil, fail(GeneralError)
	}
	defer shecrypto.Zero(k4)
	m5, err := shecrypto.AesCMAC(k4, m4)
	if err != nil {
		return nil, fail(GeneralError)
	}

	resp := make([]byte, m1Size+m2Size+m3Size+m4Size+m5Size)
	off := 0
	copy(resp[off:], m1)
	off += m1Size
	copy(resp[off:], cipherM2)
	off += m2Size
	copy(resp[off:], m3)
	off += m3Size
	copy(resp[off:], m4)
	off += m4Size
	copy(resp[off:], m5)
	return resp, nil
}
