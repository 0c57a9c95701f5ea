package she

import (
	"encoding/binary"

	"github.com/shecore/hsm/internal/shecrypto"
	"github.com/shecore/hsm/internal/shekeys"
)

// setUID implements SET_UID: the client's 15-byte device identifier
// may only be set once per engine lifetime.
func (e *Engine) setUID(req []byte) error {
	if e.uidSet {
		return fail(SequenceError)
	}
	if len(req) != uidSize {
		return fail(GeneralError)
	}
	copy(e.uid[:], req)
	e.uidSet = true
	return nil
}

// secureBootInit implements SECURE_BOOT_INIT(sz): begins a CMAC chain
// over the upcoming bootloader image, keyed by the persisted
// BOOT_MAC_KEY. A missing key is not fatal: it means this device never
// enrolled a boot key, so secure boot is reported absent and later
// commands proceed as if boot had succeeded. sz is read from req and
// fed into the CMAC as a big-endian uint32.
func (e *Engine) secureBootInit(req []byte) error {
	if e.sb != sbInit {
		return fail(SequenceError)
	}
	if len(req) != 4 {
		return fail(GeneralError)
	}
	e.blSize = binary.BigEndian.Uint32(req)

	_, macKey, err := e.store.ReadKey(e.keyID(shekeys.SlotBootMacKey))
	if err != nil {
		e.sb = sbSuccess
		e.cmacKeyFound = false
		return fail(NoSecureBoot)
	}
	e.cmacKeyFound = true

	acc := newCMACAccumulator(macKey)
	shecrypto.Zero(macKey)
	acc.update(make([]byte, bootMacPrefixSz))
	szBuf := make([]byte, 4)
	binary.BigEndian.PutUint32(szBuf, e.blSize)
	acc.update(szBuf)
	e.cmacAcc = acc
	e.sb = sbUpdate
	return nil
}

// secureBootUpdate implements SECURE_BOOT_UPDATE(chunk): feeds the
// next slice of the bootloader image into the running CMAC.
func (e *Engine) secureBootUpdate(chunk []byte) error {
	if e.sb != sbUpdate {
		return fail(SequenceError)
	}
	e.blSizeReceived += uint32(len(chunk))
	if e.blSizeReceived > e.blSize {
		return fail(SequenceError)
	}
	e.cmacAcc.update(chunk)
	if e.blSizeReceived == e.blSize {
		e.sb = sbFinish
	}
	return nil
}

// secureBootFinish implements SECURE_BOOT_FINISH(): compares the
// accumulated CMAC against the persisted BOOT_MAC digest.
func (e *Engine) secureBootFinish() error {
	if e.sb != sbFinish {
		return fail(SequenceError)
	}
	tag, err := e.cmacAcc.final()
	if err != nil {
		return fail(GeneralError)
	}
	defer shecrypto.Zero(tag)
	e.cmacAcc = nil

	_, digest, err := e.store.ReadKey(e.keyID(shekeys.SlotBootMac))
	if err != nil {
		return fail(KeyNotAvailable)
	}
	defer shecrypto.Zero(digest)

	if !constTimeEqual(tag, digest) {
		e.sb = sbFailure
		return fail(GeneralError)
	}
	e.sb = sbSuccess
	return nil
}

// getStatus implements GET_STATUS: a snapshot status register. It
// never fails.
func (e *Engine) getStatus() []byte {
	var sreg uint16
	if e.cmacKeyFound {
		sreg |= sregSecureBoot
	}
	if e.sb == sbSuccess || e.sb == sbFailure {
		sreg |= sregBootFinished
	}
	if e.sb == sbSuccess {
		sreg |= sregBootOK
	}
	if e.rndInited {
		sreg |= sregRndInit
	}
	out := make([]byte, 2)
	binary.BigEndian.PutUint16(out, sreg)
	return out
}

func constTimeEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	var v byte
	for i := range a {
		v |= a[i] ^ b[i]
	}
	return v == 0
}
