package shecrypto

import (
	"bytes"
	"testing"
)

func TestAesMP16Deterministic(t *testing.T) {
	in := bytes.Repeat([]byte{0x42}, 16)
	h1, err := AesMP16(in)
	if err != nil {
		t.Fatalf("AesMP16: %v", err)
	}
	h2, err := AesMP16(in)
	if err != nil {
		t.Fatalf("AesMP16: %v", err)
	}
	if !bytes.Equal(h1, h2) {
		t.Fatalf("AesMP16 not deterministic: %x != %x", h1, h2)
	}
	if len(h1) != BlockSize {
		t.Fatalf("AesMP16 output length = %d, want %d", len(h1), BlockSize)
	}
}

func TestAesMP16EmptyInput(t *testing.T) {
	if _, err := AesMP16(nil); err == nil {
		t.Fatalf("AesMP16(nil) should fail")
	}
	if _, err := AesMP16([]byte{}); err == nil {
		t.Fatalf("AesMP16(empty) should fail")
	}
}

func TestAesMP16MultiBlockDiffersFromSingleBlock(t *testing.T) {
	one := bytes.Repeat([]byte{0x11}, 16)
	two := bytes.Repeat([]byte{0x11}, 32)

	h1, err := AesMP16(one)
	if err != nil {
		t.Fatalf("AesMP16: %v", err)
	}
	h2, err := AesMP16(two)
	if err != nil {
		t.Fatalf("AesMP16: %v", err)
	}
	if bytes.Equal(h1, h2) {
		t.Fatalf("AesMP16 should differ across differing-length inputs")
	}
}

func TestAesMP16PadsPartialFinalBlock(t *testing.T) {
	partial := bytes.Repeat([]byte{0xAB}, 20)
	padded := append(bytes.Repeat([]byte{0xAB}, 20), make([]byte, 12)...)

	h1, err := AesMP16(partial)
	if err != nil {
		t.Fatalf("AesMP16: %v", err)
	}
	h2, err := AesMP16(padded)
	if err != nil {
		t.Fatalf("AesMP16: %v", err)
	}
	if !bytes.Equal(h1, h2) {
		t.Fatalf("AesMP16(partial final block) should equal AesMP16(same input zero-padded to a full block)")
	}
}
