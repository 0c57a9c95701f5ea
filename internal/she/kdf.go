package she

import "github.com/shecore/hsm/internal/shecrypto"

// deriveKey runs AES-MP16 over material||suffix, the shape every K1..K4
// derivation in the key-update protocol shares.
func deriveKey(material, suffix []byte) ([]byte, error) {
	in := make([]byte, 0, len(material)+len(suffix))
	in = append(in, material...)
	in = append(in, suffix...)
	defer shecrypto.Zero(in)
	return shecrypto.AesMP16(in)
}
