package shmbuf

import (
	"errors"
	"fmt"
)

// ErrNotReady is returned when a Send would overwrite a message the
// peer hasn't consumed yet, or a Recv is called before the peer has
// produced anything new. Callers are expected to poll.
var ErrNotReady = errors.New("shmbuf: not ready")

const registerSize = 8 // sizeof(uint64)

// Buffer is one direction's CSR-prefixed shared memory region: an
// 8-byte register followed by a fixed-size data area. Client and
// server each hold two Buffers (req, resp) backed by the same
// underlying memory.
type Buffer struct {
	csr  *register
	data []byte
}

// NewBuffer wraps mem as a CSR-prefixed buffer. mem must be at least
// registerSize+1 bytes; the first 8 bytes hold the CSR and the rest is
// the data area, mirroring whShmbufferCsr followed by its trailing
// data in the source layout.
func NewBuffer(mem []byte) (*Buffer, error) {
	if len(mem) <= registerSize {
		return nil, fmt.Errorf("shmbuf: buffer too small: %d bytes", len(mem))
	}
	return &Buffer{
		csr:  registerAt(mem),
		data: mem[registerSize:],
	}, nil
}

// Client is the request-initiating side of the transport: it owns
// req (writes requests, reads acks) and resp (reads responses).
type Client struct {
	req  *Buffer
	resp *Buffer
}

// NewClient builds a Client over the given request and response
// buffers. Unlike the source's InitClear, callers are expected to
// zero fresh buffers themselves; Client never clears memory it did
// not allocate.
func NewClient(req, resp *Buffer) *Client {
	return &Client{req: req, resp: resp}
}

// SendRequest publishes data as the next request. It fails with
// ErrNotReady if the server has not yet consumed the previous request
// (i.e. resp's notify has not caught up to req's notify).
func (c *Client) SendRequest(data []byte) error {
	respCSR := c.resp.csr.load()
	reqCSR := c.req.csr.load()

	if reqCSR.notify() != respCSR.notify() {
		return ErrNotReady
	}
	if len(data) > len(c.req.data) {
		return fmt.Errorf("shmbuf: request of %d bytes exceeds buffer capacity %d", len(data), len(c.req.data))
	}
	if len(data) > 0 {
		copy(c.req.data, data)
	}
	next := reqCSR.withLength(uint16(len(data)))
	next = next.withNotify(reqCSR.notify() + 1)
	c.req.csr.store(next)
	return nil
}

// RecvResponse reads the most recent response into a freshly sized
// slice, or returns ErrNotReady if the server has not yet answered
// the outstanding request.
func (c *Client) RecvResponse() ([]byte, error) {
	reqCSR := c.req.csr.load()
	respCSR := c.resp.csr.load()

	if respCSR.notify() != reqCSR.notify() {
		return nil, ErrNotReady
	}
	n := respCSR.length()
	if n == 0 {
		return nil, nil
	}
	if int(n) > len(c.resp.data) {
		return nil, fmt.Errorf("shmbuf: response length %d exceeds buffer capacity %d", n, len(c.resp.data))
	}
	out := make([]byte, n)
	copy(out, c.resp.data[:n])
	return out, nil
}

// Server is the request-handling side of the transport: it reads
// req (new requests) and writes resp (matching responses).
type Server struct {
	req  *Buffer
	resp *Buffer
}

// NewServer builds a Server over the given request and response
// buffers, which must alias the same memory as the paired Client's.
func NewServer(req, resp *Buffer) *Server {
	return &Server{req: req, resp: resp}
}

// RecvRequest returns the pending request, or ErrNotReady if none has
// arrived since the last one was answered.
func (s *Server) RecvRequest() ([]byte, error) {
	reqCSR := s.req.csr.load()
	respCSR := s.resp.csr.load()

	if reqCSR.notify() == respCSR.notify() {
		return nil, ErrNotReady
	}
	n := reqCSR.length()
	if n == 0 {
		return nil, nil
	}
	if int(n) > len(s.req.data) {
		return nil, fmt.Errorf("shmbuf: request length %d exceeds buffer capacity %d", n, len(s.req.data))
	}
	out := make([]byte, n)
	copy(out, s.req.data[:n])
	return out, nil
}

// SendResponse publishes data as the response to the currently
// outstanding request, latching resp's notify to req's so the client
// observes the reply.
func (s *Server) SendResponse(data []byte) error {
	reqCSR := s.req.csr.load()
	respCSR := s.resp.csr.load()

	if len(data) > len(s.resp.data) {
		return fmt.Errorf("shmbuf: response of %d bytes exceeds buffer capacity %d", len(data), len(s.resp.data))
	}
	if len(data) > 0 {
		copy(s.resp.data, data)
	}
	next := respCSR.withLength(uint16(len(data)))
	next = next.withNotify(reqCSR.notify())
	s.resp.csr.store(next)
	return nil
}
