// Package shmbuf implements the two-buffer shared-memory transport: a
// lock-free request/response handshake between client and server over
// a pair of fixed-size byte buffers, each prefixed by a control/status
// register (CSR).
package shmbuf

import (
	"sync/atomic"
	"unsafe"
)

// csr packs the four 16-bit sub-fields (notify, len, ack, wait) of a
// control/status register into one 64-bit word so it can be read and
// written atomically without a lock.
type csr uint64

func packCSR(notify, length, ack, wait uint16) csr {
	return csr(uint64(notify) | uint64(length)<<16 | uint64(ack)<<32 | uint64(wait)<<48)
}

func (c csr) notify() uint16 { return uint16(c) }
func (c csr) length() uint16 { return uint16(c >> 16) }
func (c csr) ack() uint16    { return uint16(c >> 32) }
func (c csr) wait() uint16   { return uint16(c >> 48) }

func (c csr) withNotify(n uint16) csr {
	return packCSR(n, c.length(), c.ack(), c.wait())
}

func (c csr) withLength(l uint16) csr {
	return packCSR(c.notify(), l, c.ack(), c.wait())
}

// register is the atomically-accessed CSR cell at the head of a
// buffer, shared (conceptually) between client and server.
type register struct {
	word uint64
}

func (r *register) load() csr {
	return csr(atomic.LoadUint64(&r.word))
}

func (r *register) store(v csr) {
	atomic.StoreUint64(&r.word, uint64(v))
}

// registerAt aliases the first registerSize bytes of mem as a
// register, the way the source overlays whShmbufferCsr on the front
// of each shared buffer. Callers must ensure mem is at least
// registerSize bytes and 8-byte aligned, which holds for any slice
// backed by a Go allocation of that length or more.
func registerAt(mem []byte) *register {
	return (*register)(unsafe.Pointer(&mem[0]))
}
