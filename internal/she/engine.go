// Package she implements the SHE (Secure Hardware Extension) command
// dispatcher: the protocol engine that sequences secure boot,
// authenticated key loading, RAM key export, the deterministic PRNG,
// and bulk AES ECB/CBC cryptography over keys held in a keystore.
package she

import (
	"github.com/shecore/hsm/internal/shekeys"
)

type sbState int

const (
	sbInit sbState = iota
	sbUpdate
	sbFinish
	sbSuccess
	sbFailure
)

// Engine holds one session's worth of SHE protocol-engine state. The
// source keeps this as module-level globals; here it is an owned
// value so independent engines (and independent tests) never share
// mutable state. Callers must not invoke HandleSheRequest
// re-entrantly on the same Engine from multiple goroutines.
type Engine struct {
	store    shekeys.Store
	clientID uint32

	uid    [uidSize]byte
	uidSet bool

	sb             sbState
	blSize         uint32
	blSizeReceived uint32
	cmacKeyFound   bool
	cmacAcc        *cmacAccumulator

	ramKeyPlain bool

	rndInited bool
	prngState [keySize]byte
	prngKey   [keySize]byte
}

// NewEngine builds a fresh SHE engine, backed by store for all key
// reads and writes and scoped to clientID's key namespace.
func NewEngine(store shekeys.Store, clientID uint32) *Engine {
	return &Engine{store: store, clientID: clientID, sb: sbInit}
}

func (e *Engine) keyID(slot byte) shekeys.KeyID {
	return shekeys.MakeKeyID(shekeys.KeyType, e.clientID, slot)
}

// HandleSheRequest dispatches action against req, the action's
// request payload. It returns the status code to report on the wire
// and, on success, the response payload (nil for status-only
// responses). err is non-nil only for the dispatcher's sole
// out-of-band failure: an action code outside the SHE enumeration
// (ErrBadArgs). A nil or wrongly sized request for a known action is
// reported in-band, as GENERAL_ERROR.
//
// req is read but never retained past the call; handlers that need to
// transform request bytes into a response (LoadKey decrypting M2, for
// instance) work on a private copy rather than mutating the caller's
// slice.
func (e *Engine) HandleSheRequest(action Action, req []byte) (ErrorCode, []byte, error) {
	if e.sb != sbSuccess && !preSecureBootAllowed(action) {
		return SequenceError, nil, nil
	}
	if action != ActionSetUID && !e.uidSet {
		return SequenceError, nil, nil
	}

	var resp []byte
	var err error

	switch action {
	case ActionSetUID:
		err = e.setUID(req)
	case ActionSecureBootInit:
		err = e.secureBootInit(req)
	case ActionSecureBootUpdate:
		err = e.secureBootUpdate(req)
	case ActionSecureBootFinish:
		err = e.secureBootFinish()
	case ActionGetStatus:
		resp = e.getStatus()
	case ActionLoadKey:
		resp, err = e.loadKey(req)
	case ActionLoadPlainKey:
		err = e.loadPlainKey(req)
	case ActionExportRamKey:
		resp, err = e.exportRamKey()
	case ActionInitRnd:
		err = e.initRnd()
	case ActionRnd:
		resp, err = e.rnd()
	case ActionExtendSeed:
		err = e.extendSeed(req)
	case ActionEncECB:
		resp, err = e.encECB(req)
	case ActionEncCBC:
		resp, err = e.encCBC(req)
	case ActionDecECB:
		resp, err = e.decECB(req)
	case ActionDecCBC:
		resp, err = e.decCBC(req)
	default:
		return NoError, nil, ErrBadArgs
	}

	code := codeOf(err)
	if isSecureBootAction(action) && code != NoError && code != NoSecureBoot {
		e.sb = sbInit
		e.blSize = 0
		e.blSizeReceived = 0
		e.cmacKeyFound = false
		e.cmacAcc = nil
	}
	if code != NoError {
		return code, nil, nil
	}
	return NoError, resp, nil
}
