package she

import "github.com/shecore/hsm/internal/shecrypto"

// cmacAccumulator buffers a message across multiple SECURE_BOOT_UPDATE
// calls and produces the final CMAC tag on FINISH. AES-CMAC only needs
// special subkey handling on its last block, which isn't known until
// the caller declares the message complete, so buffering the whole
// message is the simplest correct incremental strategy; secure boot
// images are bounded by blSize, which the caller already enforces.
type cmacAccumulator struct {
	key []byte
	buf []byte
}

func newCMACAccumulator(key []byte) *cmacAccumulator {
	cp := make([]byte, len(key))
	copy(cp, key)
	return &cmacAccumulator{key: cp}
}

func (a *cmacAccumulator) update(chunk []byte) {
	a.buf = append(a.buf, chunk...)
}

func (a *cmacAccumulator) final() ([]byte, error) {
	defer shecrypto.Zero(a.key)
	return shecrypto.AesCMAC(a.key, a.buf)
}
