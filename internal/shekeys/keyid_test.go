package shekeys

import "testing"

func TestMakeKeyIDRoundTripsSlot(t *testing.T) {
	for _, slot := range []byte{SlotSecretKey, SlotRAMKey, SlotBootMacKey, SlotBootMac, SlotPRNGSeed, 0x05} {
		id := MakeKeyID(KeyType, 7, slot)
		if got := id.SlotID(); got != slot {
			t.Fatalf("SlotID() = %#x, want %#x", got, slot)
		}
	}
}

func TestMakeKeyIDDistinguishesClients(t *testing.T) {
	a := MakeKeyID(KeyType, 1, SlotSecretKey)
	b := MakeKeyID(KeyType, 2, SlotSecretKey)
	if a == b {
		t.Fatalf("different client ids produced the same KeyID")
	}
	if a.SlotID() != b.SlotID() {
		t.Fatalf("slot id should be unaffected by client id")
	}
}

func TestIsUserSlot(t *testing.T) {
	if !IsUserSlot(SlotUserKeyFirst) || !IsUserSlot(SlotUserKeyLast) {
		t.Fatalf("boundary user slots should be reported as user slots")
	}
	if IsUserSlot(SlotSecretKey) || IsUserSlot(SlotRAMKey) {
		t.Fatalf("reserved slots should not be reported as user slots")
	}
}
