package engine

import (
	"errors"

	"github.com/mqttproto/core/wire"
)

// frameReader is the byte-stream half of the stateful session layer:
// WaitingFixedByte -> ReadingRemLen -> BufferingBody -> EmitPacket,
// collapsed into one incremental feed call instead of four explicit
// states, since wire.ParseFixedHeaderFromBytes already folds the first
// three together once enough bytes are buffered. It owns no version
// knowledge; the Connection supplies that when asked to decode a
// buffered frame's body.
type frameReader struct {
	buf    []byte
	broken bool // set once a malformed frame is seen; refuses further input
}

// rawFrame is one fixed-header-delimited slice of the input, not yet
// dispatched to a version-specific packet parser.
type rawFrame struct {
	header wire.FixedHeader
	body   []byte
}

// feed appends data to the internal buffer and pulls out every
// complete frame it can. It returns the frames found, in order, and
// any decode error. Once it has returned an error it is broken and
// every subsequent call returns errFrameReaderBroken without looking
// at new input, mirroring the spec's terminal error state for the parser.
func (f *frameReader) feed(data []byte) ([]rawFrame, error) {
	if f.broken {
		return nil, errFrameReaderBroken
	}
	f.buf = append(f.buf, data...)

	var frames []rawFrame
	for {
		fh, n, err := wire.ParseFixedHeaderFromBytes(f.buf)
		if err != nil {
			if errors.Is(err, wire.ErrUnexpectedEOF) {
				break // incomplete; wait for more bytes
			}
			f.broken = true
			return frames, err
		}

		total := n + int(fh.RemainingLength)
		if len(f.buf) < total {
			break // fixed header complete, body still incomplete
		}

		body := make([]byte, fh.RemainingLength)
		copy(body, f.buf[n:total])
		frames = append(frames, rawFrame{header: *fh, body: body})

		f.buf = f.buf[total:]
	}

	// Compact: avoid retaining the whole history behind a growing slice.
	if len(f.buf) == 0 {
		f.buf = nil
	} else if cap(f.buf) > 4*len(f.buf) {
		compacted := make([]byte, len(f.buf))
		copy(compacted, f.buf)
		f.buf = compacted
	}

	return frames, nil
}

var errFrameReaderBroken = errors.New("engine: stream parser is in a terminal error state")
