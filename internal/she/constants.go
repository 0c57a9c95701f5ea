package she

// Fixed 16-byte KDF domain-separation constants appended to key
// material before AES-MP16, one per derived-key purpose.
var (
	keyUpdateEncC = []byte{0x01, 0x01, 0x53, 0x48, 0x45, 0x00, 0x80, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0xB0}
	keyUpdateMacC = []byte{0x01, 0x02, 0x53, 0x48, 0x45, 0x00, 0x80, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0xB0}
	prngKeyC      = []byte{0x01, 0x04, 0x53, 0x48, 0x45, 0x00, 0x80, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0xB0}
	prngSeedKeyC  = []byte{0x01, 0x05, 0x53, 0x48, 0x45, 0x00, 0x80, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0xB0}
)

const (
	uidSize         = 15
	keySize         = 16
	bootMacPrefixSz = 12
	m1Size          = 16
	m2Size          = 32
	m3Size          = 16
	m4Size          = 32
	m5Size          = 16
)

// sreg bit positions reported by GET_STATUS (spec.md §4.6). Other bits
// SHE defines (internal/external debugger state, key-cache state) are
// never set; the source leaves them as a documented gap.
const (
	sregSecureBoot   uint16 = 1 << 0
	sregBootFinished uint16 = 1 << 2
	sregBootOK       uint16 = 1 << 3
	sregRndInit      uint16 = 1 << 6
)
