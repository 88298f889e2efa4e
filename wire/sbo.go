package wire

import "sync/atomic"

// sboThreshold is the inline capacity below which a Payload avoids a
// heap allocation entirely. Most MQTT payloads (small telemetry
// readings, short commands) fit comfortably under this.
const sboThreshold = 32

// Payload is a small-buffer-optimized, optionally-shared byte buffer.
// Values at or under sboThreshold bytes are stored inline with no heap
// allocation; larger values are heap-backed and refcounted, so holders
// of the same Payload share one backing array without copying it. The
// packet types in this package carry their payloads as plain []byte,
// not as Payload.
type Payload struct {
	small  [sboThreshold]byte
	length int
	heap   []byte
	refs   *int32
}

// NewPayload copies data into a Payload, using inline storage when it
// fits within sboThreshold.
func NewPayload(data []byte) Payload {
	if len(data) <= sboThreshold {
		p := Payload{length: len(data)}
		copy(p.small[:], data)
		return p
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	refs := int32(1)
	return Payload{heap: buf, length: len(data), refs: &refs}
}

// NewPayloadShared wraps an existing heap slice without copying,
// starting its refcount at one. The caller transfers ownership of data
// to the returned Payload; data must not be mutated afterward.
func NewPayloadShared(data []byte) Payload {
	if len(data) <= sboThreshold {
		return NewPayload(data)
	}
	refs := int32(1)
	return Payload{heap: data, length: len(data), refs: &refs}
}

// Bytes returns the payload's contents. The returned slice is only
// valid while at least one reference to a heap-backed Payload remains.
func (p Payload) Bytes() []byte {
	if p.heap != nil {
		return p.heap
	}
	return p.small[:p.length]
}

// Len returns the payload length in bytes.
func (p Payload) Len() int { return p.length }

// Retain increments the shared refcount for a heap-backed Payload and
// returns a copy safe to store independently of the original. Inline
// payloads are already independent copies and Retain is a no-op for
// them.
func (p Payload) Retain() Payload {
	if p.refs != nil {
		atomic.AddInt32(p.refs, 1)
	}
	return p
}

// Release decrements the shared refcount for a heap-backed Payload.
// Returns true when this was the last outstanding reference, after
// which Bytes must not be called again on any Payload sharing the same
// backing array. Inline payloads always return false since they own
// their storage outright.
func (p Payload) Release() bool {
	if p.refs == nil {
		return false
	}
	return atomic.AddInt32(p.refs, -1) == 0
}
