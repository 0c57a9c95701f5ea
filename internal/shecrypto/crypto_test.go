package shecrypto

import (
	"bytes"
	"testing"
)

var testKey = bytes.Repeat([]byte{0x00}, 16)

func TestCBCRoundTrip(t *testing.T) {
	iv := make([]byte, 16)
	plain := bytes.Repeat([]byte{0x11}, 32)

	ct, err := AesCBCEncrypt(testKey, iv, plain)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	pt, err := AesCBCDecrypt(testKey, iv, ct)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if !bytes.Equal(pt, plain) {
		t.Fatalf("round trip mismatch: got %x want %x", pt, plain)
	}
}

func TestECBIdenticalBlocksProduceIdenticalCiphertext(t *testing.T) {
	plain := bytes.Repeat([]byte{0x11}, 32)
	ct, err := AesECBEncrypt(testKey, plain)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if !bytes.Equal(ct[:16], ct[16:]) {
		t.Fatalf("ECB of identical blocks should produce identical ciphertext blocks")
	}
	pt, err := AesECBDecrypt(testKey, ct)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if !bytes.Equal(pt, plain) {
		t.Fatalf("round trip mismatch: got %x want %x", pt, plain)
	}
}

func TestAesCMACDeterministicAndBlockSized(t *testing.T) {
	msg := []byte("message one plus message two")
	tag1, err := AesCMAC(testKey, msg)
	if err != nil {
		t.Fatalf("cmac: %v", err)
	}
	tag2, err := AesCMAC(testKey, msg)
	if err != nil {
		t.Fatalf("cmac: %v", err)
	}
	if !bytes.Equal(tag1, tag2) {
		t.Fatalf("CMAC not deterministic")
	}
	if len(tag1) != BlockSize {
		t.Fatalf("CMAC length = %d, want %d", len(tag1), BlockSize)
	}
}

func TestAesCMACEmptyMessage(t *testing.T) {
	if _, err := AesCMAC(testKey, nil); err != nil {
		t.Fatalf("cmac of empty message should succeed: %v", err)
	}
}

func TestZero(t *testing.T) {
	b := bytes.Repeat([]byte{0xFF}, 16)
	Zero(b)
	if !bytes.Equal(b, make([]byte, 16)) {
		t.Fatalf("Zero did not clear buffer: %x", b)
	}
}
