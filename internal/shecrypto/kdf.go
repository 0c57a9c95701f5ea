package shecrypto

import "fmt"

// AesMP16 computes the Miyaguchi-Preneel one-way compression of in,
// the key derivation function SHE uses throughout its protocols. The
// input is zero-padded to a multiple of BlockSize; output is always
// BlockSize bytes.
func AesMP16(in []byte) ([]byte, error) {
	if len(in) == 0 {
		return nil, fmt.Errorf("shecrypto: AesMP16: empty input")
	}

	h := make([]byte, BlockSize)
	padded := make([]byte, BlockSize)

	for off := 0; off < len(in); off += BlockSize {
		end := off + BlockSize
		if end > len(in) {
			Zero(padded)
			copy(padded, in[off:])
		} else {
			copy(padded, in[off:end])
		}

		enc, err := AesEncryptBlock(h, padded)
		if err != nil {
			return nil, err
		}
		next := make([]byte, BlockSize)
		for i := 0; i < BlockSize; i++ {
			next[i] = enc[i] ^ padded[i] ^ h[i]
		}
		h = next
	}
	return h, nil
}
