package wire

import "io"

// ProtocolVersion identifies the MQTT protocol revision a CONNECT packet
// negotiates. The fixed header layout is shared across all three
// revisions; only the highest valid PacketType differs (AUTH was
// introduced in 5.0).
type ProtocolVersion byte

const (
	ProtocolVersion30  ProtocolVersion = 3
	ProtocolVersion311 ProtocolVersion = 4
	ProtocolVersion50  ProtocolVersion = 5
)

func maxPacketTypeForVersion(version ProtocolVersion) PacketType {
	if version == ProtocolVersion50 {
		return AUTH
	}
	return DISCONNECT
}

// BuildPublishFlags reconstructs the PUBLISH fixed header flags byte from
// the decoded DUP/QoS/Retain fields.
func (h *FixedHeader) BuildPublishFlags() byte {
	var flags byte
	if h.DUP {
		flags |= 0x08
	}
	flags |= byte(h.QoS) << 1
	if h.Retain {
		flags |= 0x01
	}
	return flags
}

func encodeFixedHeader(w io.Writer, h *FixedHeader, maxType PacketType) error {
	if h.Type == Reserved {
		return ErrInvalidReservedType
	}
	if h.Type > maxType {
		return ErrInvalidType
	}
	if h.Type == PUBLISH {
		if !QoS((h.Flags & 0x06) >> 1).IsValid() {
			return ErrInvalidQoS
		}
	} else if err := validateFlags(h.Type, h.Flags); err != nil {
		return err
	}

	firstByte := byte(h.Type)<<4 | (h.Flags & 0x0F)
	if _, err := w.Write([]byte{firstByte}); err != nil {
		return err
	}

	lengthBytes, err := EncodeVariableByteInteger(h.RemainingLength)
	if err != nil {
		return err
	}
	_, err = w.Write(lengthBytes)
	return err
}

func encodeFixedHeaderToBytes(buf []byte, h *FixedHeader, maxType PacketType) (int, error) {
	if h.Type == Reserved {
		return 0, ErrInvalidReservedType
	}
	if h.Type > maxType {
		return 0, ErrInvalidType
	}
	if h.Type == PUBLISH {
		if !QoS((h.Flags & 0x06) >> 1).IsValid() {
			return 0, ErrInvalidQoS
		}
	} else if err := validateFlags(h.Type, h.Flags); err != nil {
		return 0, err
	}
	if len(buf) < 1 {
		return 0, ErrBufferTooSmall
	}

	buf[0] = byte(h.Type)<<4 | (h.Flags & 0x0F)

	n, err := EncodeVariableByteIntegerTo(buf, 1, h.RemainingLength)
	if err != nil {
		return 0, err
	}
	return 1 + n, nil
}

func parseFixedHeader(r io.Reader, maxType PacketType) (*FixedHeader, error) {
	header := &FixedHeader{}

	var firstByte [1]byte
	if _, err := io.ReadFull(r, firstByte[:]); err != nil {
		if err == io.EOF {
			return nil, ErrUnexpectedEOF
		}
		return nil, err
	}

	header.Type = PacketType(firstByte[0] >> 4)
	if header.Type == Reserved {
		return nil, ErrInvalidReservedType
	}
	if header.Type > maxType {
		return nil, ErrInvalidType
	}

	header.Flags = firstByte[0] & 0x0F

	if header.Type == PUBLISH {
		header.DUP = (header.Flags & 0x08) != 0
		header.QoS = QoS((header.Flags & 0x06) >> 1)
		header.Retain = (header.Flags & 0x01) != 0

		if !header.QoS.IsValid() {
			return nil, ErrInvalidQoS
		}
		if header.DUP && header.QoS == QoS0 {
			return nil, ErrDupWithQoS0
		}
	} else {
		if err := validateFlags(header.Type, header.Flags); err != nil {
			return nil, err
		}
	}

	remainingLength, err := DecodeVariableByteInteger(r)
	if err != nil {
		return nil, err
	}
	header.RemainingLength = remainingLength

	return header, nil
}

func parseFixedHeaderFromBytes(data []byte, maxType PacketType) (*FixedHeader, int, error) {
	if len(data) < 2 {
		return nil, 0, ErrUnexpectedEOF
	}

	header := &FixedHeader{}
	offset := 0

	header.Type = PacketType(data[offset] >> 4)
	if header.Type == Reserved {
		return nil, 0, ErrInvalidReservedType
	}
	if header.Type > maxType {
		return nil, 0, ErrInvalidType
	}

	header.Flags = data[offset] & 0x0F
	offset++

	if header.Type == PUBLISH {
		header.DUP = (header.Flags & 0x08) != 0
		header.QoS = QoS((header.Flags & 0x06) >> 1)
		header.Retain = (header.Flags & 0x01) != 0

		if !header.QoS.IsValid() {
			return nil, 0, ErrInvalidQoS
		}
		if header.DUP && header.QoS == QoS0 {
			return nil, 0, ErrDupWithQoS0
		}
	} else {
		if err := validateFlags(header.Type, header.Flags); err != nil {
			return nil, 0, err
		}
	}

	remainingLength, bytesRead, err := DecodeVariableByteIntegerFromBytes(data[offset:])
	if err != nil {
		return nil, 0, err
	}
	header.RemainingLength = remainingLength
	offset += bytesRead

	return header, offset, nil
}

// EncodeFixedHeader encodes the fixed header per the MQTT 5.0 packet type range.
func (h *FixedHeader) EncodeFixedHeader(w io.Writer) error {
	return encodeFixedHeader(w, h, AUTH)
}

// EncodeFixedHeaderToBytes encodes the fixed header into buf, MQTT 5.0 range.
func (h *FixedHeader) EncodeFixedHeaderToBytes(buf []byte) (int, error) {
	return encodeFixedHeaderToBytes(buf, h, AUTH)
}

// EncodeFixedHeader311 encodes the fixed header, rejecting AUTH (type 15)
// which does not exist before MQTT 5.0.
func (h *FixedHeader) EncodeFixedHeader311(w io.Writer) error {
	return encodeFixedHeader(w, h, DISCONNECT)
}

// EncodeFixedHeaderToBytes311 encodes the fixed header into buf, rejecting AUTH.
func (h *FixedHeader) EncodeFixedHeaderToBytes311(buf []byte) (int, error) {
	return encodeFixedHeaderToBytes(buf, h, DISCONNECT)
}

// EncodeFixedHeaderWithVersion encodes the fixed header, bounding the
// accepted packet type range by the negotiated protocol version.
func (h *FixedHeader) EncodeFixedHeaderWithVersion(w io.Writer, version ProtocolVersion) error {
	return encodeFixedHeader(w, h, maxPacketTypeForVersion(version))
}

// ParseFixedHeader311 parses a fixed header under MQTT 3.1.1 packet type rules.
func ParseFixedHeader311(r io.Reader) (*FixedHeader, error) {
	return parseFixedHeader(r, DISCONNECT)
}

// ParseFixedHeaderFromBytes311 parses a fixed header from a byte slice under
// MQTT 3.1.1 packet type rules.
func ParseFixedHeaderFromBytes311(data []byte) (*FixedHeader, int, error) {
	return parseFixedHeaderFromBytes(data, DISCONNECT)
}

// ParseFixedHeaderWithVersion parses a fixed header, bounding the accepted
// packet type range by the negotiated protocol version.
func ParseFixedHeaderWithVersion(r io.Reader, version ProtocolVersion) (*FixedHeader, error) {
	return parseFixedHeader(r, maxPacketTypeForVersion(version))
}
