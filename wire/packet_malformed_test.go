package wire

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFixedHeaderRejectsMalformedInput(t *testing.T) {
	cases := map[string]struct {
		input      []byte
		wantErr    error
		reasonCode ReasonCode
	}{
		"reserved packet type 0":                {[]byte{0x00, 0x00}, ErrInvalidReservedType, ReasonProtocolError},
		"type 15 with flags fails on flags":     {[]byte{0xFF, 0x00}, ErrInvalidFlags, ReasonProtocolError},
		"CONNECT with all flags set":            {[]byte{0x1F, 0x00}, ErrInvalidFlags, ReasonProtocolError},
		"CONNACK with invalid flags":            {[]byte{0x2F, 0x00}, ErrInvalidFlags, ReasonProtocolError},
		"PUBLISH with QoS 3":                    {[]byte{0x36, 0x00}, ErrInvalidQoS, ReasonMalformedPacket},
		"PUBLISH with QoS 3 and other flags":    {[]byte{0x3F, 0x00}, ErrInvalidQoS, ReasonMalformedPacket},
		"PUBLISH with DUP set on QoS 0":         {[]byte{0x38, 0x00}, ErrDupWithQoS0, ReasonProtocolError},
		"PUBACK with invalid flags":             {[]byte{0x4F, 0x00}, ErrInvalidFlags, ReasonProtocolError},
		"PUBREC with invalid flags":             {[]byte{0x5F, 0x00}, ErrInvalidFlags, ReasonProtocolError},
		"PUBREL flags 0x00 instead of 0x02":     {[]byte{0x60, 0x00}, ErrInvalidFlags, ReasonProtocolError},
		"PUBREL flags 0x01":                     {[]byte{0x61, 0x00}, ErrInvalidFlags, ReasonProtocolError},
		"PUBREL flags 0x03":                     {[]byte{0x63, 0x00}, ErrInvalidFlags, ReasonProtocolError},
		"PUBCOMP with invalid flags":            {[]byte{0x7F, 0x00}, ErrInvalidFlags, ReasonProtocolError},
		"SUBSCRIBE flags 0x00 instead of 0x02":  {[]byte{0x80, 0x00}, ErrInvalidFlags, ReasonProtocolError},
		"SUBSCRIBE flags 0x01":                  {[]byte{0x81, 0x00}, ErrInvalidFlags, ReasonProtocolError},
		"SUBACK with invalid flags":             {[]byte{0x9F, 0x00}, ErrInvalidFlags, ReasonProtocolError},
		"UNSUBSCRIBE flags 0x00 instead of 0x02": {[]byte{0xA0, 0x00}, ErrInvalidFlags, ReasonProtocolError},
		"UNSUBACK with invalid flags":           {[]byte{0xBF, 0x00}, ErrInvalidFlags, ReasonProtocolError},
		"PINGREQ with invalid flags":            {[]byte{0xCF, 0x00}, ErrInvalidFlags, ReasonProtocolError},
		"PINGRESP with invalid flags":           {[]byte{0xDF, 0x00}, ErrInvalidFlags, ReasonProtocolError},
		"DISCONNECT with invalid flags":         {[]byte{0xEF, 0x00}, ErrInvalidFlags, ReasonProtocolError},
		"AUTH with invalid flags":                {[]byte{0xFF, 0x00}, ErrInvalidFlags, ReasonProtocolError},
		"5-byte variable byte integer":          {[]byte{0x10, 0x80, 0x80, 0x80, 0x80, 0x01}, ErrMalformedVariableByteInteger, ReasonMalformedPacket},
		"1-byte incomplete variable byte integer": {[]byte{0x10, 0x80}, ErrUnexpectedEOF, ReasonUnspecifiedError},
		"2-byte incomplete variable byte integer": {[]byte{0x10, 0x80, 0x80}, ErrUnexpectedEOF, ReasonUnspecifiedError},
		"3-byte incomplete variable byte integer": {[]byte{0x10, 0x80, 0x80, 0x80}, ErrUnexpectedEOF, ReasonUnspecifiedError},
		"empty input":                           {[]byte{}, ErrUnexpectedEOF, ReasonUnspecifiedError},
		"only first byte":                       {[]byte{0x10}, ErrUnexpectedEOF, ReasonUnspecifiedError},
	}

	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseFixedHeader(bytes.NewReader(c.input))
			require.Error(t, err)
			assert.ErrorIs(t, err, c.wantErr)
			assert.Equal(t, c.reasonCode, GetReasonCode(err), "reason code mismatch")
		})
	}
}

func TestParseFixedHeader311RejectsMalformedInput(t *testing.T) {
	cases := map[string]struct {
		input   []byte
		wantErr error
	}{
		"AUTH is not part of 3.1.1":     {[]byte{0xF0, 0x00}, ErrInvalidType},
		"reserved type 0":               {[]byte{0x00, 0x00}, ErrInvalidReservedType},
		"PUBLISH with invalid QoS":      {[]byte{0x36, 0x00}, ErrInvalidQoS},
		"PUBLISH with DUP set on QoS 0": {[]byte{0x38, 0x00}, ErrDupWithQoS0},
	}

	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseFixedHeader311(bytes.NewReader(c.input))
			require.Error(t, err)
			assert.ErrorIs(t, err, c.wantErr)
		})
	}
}

func TestParseFixedHeaderFromBytesRejectsMalformedInput(t *testing.T) {
	cases := map[string]struct {
		input   []byte
		wantErr error
	}{
		"empty input":                   {[]byte{}, ErrUnexpectedEOF},
		"only one byte":                 {[]byte{0x10}, ErrUnexpectedEOF},
		"reserved type":                 {[]byte{0x00, 0x00}, ErrInvalidReservedType},
		"invalid QoS in PUBLISH":        {[]byte{0x36, 0x00}, ErrInvalidQoS},
		"SUBSCRIBE with wrong flags":    {[]byte{0x80, 0x00}, ErrInvalidFlags},
		"PUBREL with wrong flags":       {[]byte{0x60, 0x00}, ErrInvalidFlags},
		"PUBLISH with DUP set on QoS 0": {[]byte{0x38, 0x00}, ErrDupWithQoS0},
	}

	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := ParseFixedHeaderFromBytes(c.input)
			require.Error(t, err)
			assert.ErrorIs(t, err, c.wantErr)
		})
	}
}

func TestEncodeFixedHeaderRejectsMalformedInput(t *testing.T) {
	cases := map[string]struct {
		header     FixedHeader
		wantErr    error
		reasonCode ReasonCode
	}{
		"reserved packet type": {
			FixedHeader{Type: Reserved, Flags: 0x00, RemainingLength: 0},
			ErrInvalidReservedType, ReasonProtocolError,
		},
		"type too high for MQTT 5.0": {
			FixedHeader{Type: PacketType(16), Flags: 0x00, RemainingLength: 0},
			ErrInvalidType, ReasonProtocolError,
		},
		"CONNECT with invalid flags": {
			FixedHeader{Type: CONNECT, Flags: 0x0F, RemainingLength: 10},
			ErrInvalidFlags, ReasonProtocolError,
		},
		"PUBLISH with invalid QoS": {
			FixedHeader{Type: PUBLISH, Flags: 0x06, QoS: QoS(3), RemainingLength: 10},
			ErrInvalidQoS, ReasonMalformedPacket,
		},
		"SUBSCRIBE with wrong flags": {
			FixedHeader{Type: SUBSCRIBE, Flags: 0x00, RemainingLength: 10},
			ErrInvalidFlags, ReasonProtocolError,
		},
		"PUBREL with wrong flags": {
			FixedHeader{Type: PUBREL, Flags: 0x00, RemainingLength: 10},
			ErrInvalidFlags, ReasonProtocolError,
		},
	}

	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			err := c.header.EncodeFixedHeader(&buf)
			require.Error(t, err)
			assert.ErrorIs(t, err, c.wantErr)
			assert.Equal(t, c.reasonCode, GetReasonCode(err))
		})
	}
}

func TestEncodeFixedHeaderToBytesRejectsMalformedInput(t *testing.T) {
	cases := map[string]struct {
		header  FixedHeader
		bufSize int
		wantErr error
	}{
		"buffer too small": {
			FixedHeader{Type: CONNECT, Flags: 0x00, RemainingLength: 0}, 1, ErrBufferTooSmall,
		},
		"reserved type": {
			FixedHeader{Type: Reserved, Flags: 0x00, RemainingLength: 0}, 10, ErrInvalidReservedType,
		},
		"invalid QoS in PUBLISH": {
			FixedHeader{Type: PUBLISH, Flags: 0x06, QoS: QoS(3), RemainingLength: 0}, 10, ErrInvalidQoS,
		},
	}

	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			buf := make([]byte, c.bufSize)
			_, err := c.header.EncodeFixedHeaderToBytes(buf)
			require.Error(t, err)
			assert.ErrorIs(t, err, c.wantErr)
		})
	}
}
