package she

import (
	"encoding/binary"
	"fmt"
)

// frameHeaderSize is the fixed stub header's wire size: a single
// big-endian uint16 carrying the action code on requests and the
// status code on responses.
const frameHeaderSize = 2

// DecodeRequestFrame splits a packet buffer into its action code and
// request payload, per the fixed stub header framing: all multi-byte
// scalars on the wire are big-endian.
func DecodeRequestFrame(frame []byte) (Action, []byte, error) {
	if len(frame) < frameHeaderSize {
		return 0, nil, fmt.Errorf("she: frame shorter than stub header: %d bytes", len(frame))
	}
	action := Action(binary.BigEndian.Uint16(frame[0:frameHeaderSize]))
	return action, frame[frameHeaderSize:], nil
}

// EncodeResponseFrame lays out a response the same way: the stub
// header's rc field followed by the handler's response payload, if
// any.
func EncodeResponseFrame(code ErrorCode, payload []byte) []byte {
	out := make([]byte, frameHeaderSize+len(payload))
	binary.BigEndian.PutUint16(out[0:frameHeaderSize], uint16(code))
	copy(out[frameHeaderSize:], payload)
	return out
}

// EncodeRequestFrame is the client-side counterpart of
// DecodeRequestFrame: it lays out action followed by req as a single
// packet buffer.
func EncodeRequestFrame(action Action, req []byte) []byte {
	out := make([]byte, frameHeaderSize+len(req))
	binary.BigEndian.PutUint16(out[0:frameHeaderSize], uint16(action))
	copy(out[frameHeaderSize:], req)
	return out
}

// DecodeResponseFrame is the client-side counterpart of
// EncodeResponseFrame.
func DecodeResponseFrame(frame []byte) (ErrorCode, []byte, error) {
	if len(frame) < frameHeaderSize {
		return 0, nil, fmt.Errorf("she: frame shorter than stub header: %d bytes", len(frame))
	}
	code := ErrorCode(binary.BigEndian.Uint16(frame[0:frameHeaderSize]))
	return code, frame[frameHeaderSize:], nil
}
