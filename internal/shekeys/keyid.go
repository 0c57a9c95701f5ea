// Package shekeys is the thin typed view over the NVM object store that
// the SHE protocol engine reads and writes keys through. It composes
// (key-type=SHE, client_id, slot_id) into a packed identifier and
// attaches SHE-specific metadata (flags, anti-rollback counter) to
// every stored key.
package shekeys

// KeyID is a packed (key_type, client_id, slot_id) identifier, mirroring
// MAKE_WOLFHSM_KEYID from the reference implementation.
type KeyID uint32

// KeyType is fixed to SHE for every identifier this package constructs;
// it occupies the top byte of the packed ID, distinguishing SHE keys
// from generic (non-SHE) keys sharing the same NVM store.
const KeyType uint32 = 0x01

// SlotMask recovers the low nibble (slot id) of a packed KeyID. SHE slot
// ids are 4 bits wide: the last byte of M1 packs (slot_id << 4 |
// auth_id), so both halves of that byte are nibbles.
const SlotMask = 0x0F

// Reserved SHE slot ids (spec.md §3). These are nibble values (0..15);
// the ten user slots fill the remaining range alongside the five named
// reserved slots, leaving exactly one nibble value (0xF) unused.
const (
	SlotSecretKey    byte = 0x0
	SlotUserKeyFirst byte = 0x1
	SlotUserKeyLast  byte = 0xA
	SlotBootMacKey   byte = 0xB
	SlotBootMac      byte = 0xC
	SlotPRNGSeed     byte = 0xD
	SlotRAMKey       byte = 0xE
)

// MakeKeyID packs a key type, client id and slot id into a KeyID the
// way the reference implementation's MAKE_WOLFHSM_KEYID macro does:
// the client id occupies the middle two bytes, the slot id the low
// byte (only its low nibble is meaningful for SHE keys), and the key
// type the top byte.
func MakeKeyID(keyType uint32, clientID uint32, slot byte) KeyID {
	return KeyID((keyType&0xFF)<<24 | (clientID&0xFFFF)<<8 | uint32(slot&0xFF))
}

// SlotID recovers the slot id packed into id.
func (id KeyID) SlotID() byte {
	return byte(uint32(id) & SlotMask)
}

// IsUserSlot reports whether slot falls within the ten general-purpose
// user key slots.
func IsUserSlot(slot byte) bool {
	return slot >= SlotUserKeyFirst && slot <= SlotUserKeyLast
}
