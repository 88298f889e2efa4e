package wire

import "io"

// The MQTT 3.1.1 (and 3.1) packet types below mirror their v5.0 siblings
// minus everything the properties mechanism introduced: no reason codes,
// byte return codes instead, no per-packet property blocks.

type ConnectPacket311 struct {
	FixedHeader     FixedHeader
	ProtocolName    string
	ProtocolVersion ProtocolVersion
	CleanSession    bool
	WillFlag        bool
	WillQoS         QoS
	WillRetain      bool
	PasswordFlag    bool
	UsernameFlag    bool
	KeepAlive       uint16
	ClientID        string
	WillTopic       string
	WillPayload     []byte
	Username        string
	Password        []byte
}

type ConnackPacket311 struct {
	FixedHeader    FixedHeader
	SessionPresent bool
	ReturnCode     byte
}

type PublishPacket311 struct {
	FixedHeader FixedHeader
	TopicName   string
	PacketID    uint16
	Payload     []byte
}

type SubscribePacket311 struct {
	FixedHeader   FixedHeader
	PacketID      uint16
	Subscriptions []Subscription311
}

type Subscription311 struct {
	TopicFilter string
	QoS         QoS
}

type SubackPacket311 struct {
	FixedHeader FixedHeader
	PacketID    uint16
	ReturnCodes []byte
}

type UnsubscribePacket311 struct {
	FixedHeader  FixedHeader
	PacketID     uint16
	TopicFilters []string
}

type UnsubackPacket311 struct {
	FixedHeader FixedHeader
	PacketID    uint16
}

type DisconnectPacket311 struct {
	FixedHeader FixedHeader
}

type PubackPacket311 struct {
	FixedHeader FixedHeader
	PacketID    uint16
}

type PubrecPacket311 struct {
	FixedHeader FixedHeader
	PacketID    uint16
}

type PubrelPacket311 struct {
	FixedHeader FixedHeader
	PacketID    uint16
}

type PubcompPacket311 struct {
	FixedHeader FixedHeader
	PacketID    uint16
}

// MQTT 3.1.1 CONNACK return codes (v3.1.1 §3.2.2.3).
const (
	ConnectAccepted311                    byte = 0x00
	ConnectRefusedUnacceptableProtocol311 byte = 0x01
	ConnectRefusedIdentifierRejected311   byte = 0x02
	ConnectRefusedServerUnavailable311    byte = 0x03
	ConnectRefusedBadUsernamePassword311  byte = 0x04
	ConnectRefusedNotAuthorized311        byte = 0x05
)

// connectFlags311 packs a 3.1.1 CONNECT flags byte; the bit layout is
// identical to v5.0's, aside from the Clean Start bit meaning Clean
// Session here.
func connectFlags311(p *ConnectPacket311) byte {
	var flags byte
	if p.CleanSession {
		flags |= 0x02
	}
	if p.WillFlag {
		flags |= connectFlagWill
		flags |= byte(p.WillQoS) << connectFlagWillQoSShift
		if p.WillRetain {
			flags |= connectFlagWillRet
		}
	}
	if p.PasswordFlag {
		flags |= connectFlagPassword
	}
	if p.UsernameFlag {
		flags |= connectFlagUsername
	}
	return flags
}

func (p *ConnectPacket311) Encode(w io.Writer) error {
	varHeaderLen := 2 + len(p.ProtocolName) + 1 + 1 + 2
	payloadLen := 2 + len(p.ClientID)
	if p.WillFlag {
		payloadLen += 2 + len(p.WillTopic) + 2 + len(p.WillPayload)
	}
	if p.UsernameFlag {
		payloadLen += 2 + len(p.Username)
	}
	if p.PasswordFlag {
		payloadLen += 2 + len(p.Password)
	}

	fh := FixedHeader{Type: CONNECT, RemainingLength: uint32(varHeaderLen + payloadLen)}
	if err := fh.EncodeFixedHeader311(w); err != nil {
		return err
	}

	fw := &fieldWriter{w: w}
	fw.str(p.ProtocolName)
	fw.one(byte(p.ProtocolVersion))
	fw.one(connectFlags311(p))
	fw.u16(p.KeepAlive)
	fw.str(p.ClientID)
	if p.WillFlag {
		fw.str(p.WillTopic)
		fw.binary(p.WillPayload)
	}
	if p.UsernameFlag {
		fw.str(p.Username)
	}
	if p.PasswordFlag {
		fw.binary(p.Password)
	}
	return fw.err
}

func (p *ConnackPacket311) Encode(w io.Writer) error {
	fh := FixedHeader{Type: CONNACK, RemainingLength: 2}
	if err := fh.EncodeFixedHeader311(w); err != nil {
		return err
	}

	var ackFlags byte
	if p.SessionPresent {
		ackFlags = 0x01
	}
	fw := &fieldWriter{w: w}
	fw.one(ackFlags)
	fw.one(p.ReturnCode)
	return fw.err
}

func (p *PublishPacket311) Encode(w io.Writer) error {
	remainingLength := uint32(2 + len(p.TopicName) + len(p.Payload))
	if p.FixedHeader.QoS > QoS0 {
		remainingLength += 2
	}

	fh := FixedHeader{
		Type:            PUBLISH,
		RemainingLength: remainingLength,
		DUP:             p.FixedHeader.DUP,
		QoS:             p.FixedHeader.QoS,
		Retain:          p.FixedHeader.Retain,
	}
	fh.Flags = fh.BuildPublishFlags()
	if err := fh.EncodeFixedHeader311(w); err != nil {
		return err
	}

	fw := &fieldWriter{w: w}
	fw.str(p.TopicName)
	if p.FixedHeader.QoS > QoS0 {
		fw.u16(p.PacketID)
	}
	fw.raw(p.Payload)
	return fw.err
}

// encodeAck311 writes the packet-ID-only acknowledgment packets that
// 3.1.1 shares across PUBACK, PUBREC, PUBREL, PUBCOMP, and UNSUBACK.
func encodeAck311(w io.Writer, packetType PacketType, flags byte, packetID uint16) error {
	fh := FixedHeader{Type: packetType, Flags: flags, RemainingLength: 2}
	if err := fh.EncodeFixedHeader311(w); err != nil {
		return err
	}
	return writeTwoByteInt(w, packetID)
}

func (p *PubackPacket311) Encode(w io.Writer) error {
	return encodeAck311(w, PUBACK, 0, p.PacketID)
}

func (p *PubrecPacket311) Encode(w io.Writer) error {
	return encodeAck311(w, PUBREC, 0, p.PacketID)
}

func (p *PubrelPacket311) Encode(w io.Writer) error {
	return encodeAck311(w, PUBREL, 0x02, p.PacketID)
}

func (p *PubcompPacket311) Encode(w io.Writer) error {
	return encodeAck311(w, PUBCOMP, 0, p.PacketID)
}

func (p *UnsubackPacket311) Encode(w io.Writer) error {
	return encodeAck311(w, UNSUBACK, 0, p.PacketID)
}

func (p *SubscribePacket311) Encode(w io.Writer) error {
	remainingLength := uint32(2)
	for _, sub := range p.Subscriptions {
		remainingLength += uint32(2 + len(sub.TopicFilter) + 1)
	}

	fh := FixedHeader{Type: SUBSCRIBE, Flags: 0x02, RemainingLength: remainingLength}
	if err := fh.EncodeFixedHeader311(w); err != nil {
		return err
	}

	fw := &fieldWriter{w: w}
	fw.u16(p.PacketID)
	for _, sub := range p.Subscriptions {
		fw.str(sub.TopicFilter)
		fw.one(byte(sub.QoS))
	}
	return fw.err
}

func (p *SubackPacket311) Encode(w io.Writer) error {
	fh := FixedHeader{Type: SUBACK, RemainingLength: uint32(2 + len(p.ReturnCodes))}
	if err := fh.EncodeFixedHeader311(w); err != nil {
		return err
	}

	fw := &fieldWriter{w: w}
	fw.u16(p.PacketID)
	fw.raw(p.ReturnCodes)
	return fw.err
}

func (p *UnsubscribePacket311) Encode(w io.Writer) error {
	remainingLength := uint32(2)
	for _, topic := range p.TopicFilters {
		remainingLength += uint32(2 + len(topic))
	}

	fh := FixedHeader{Type: UNSUBSCRIBE, Flags: 0x02, RemainingLength: remainingLength}
	if err := fh.EncodeFixedHeader311(w); err != nil {
		return err
	}

	fw := &fieldWriter{w: w}
	fw.u16(p.PacketID)
	for _, topic := range p.TopicFilters {
		fw.str(topic)
	}
	return fw.err
}

func (p *DisconnectPacket311) Encode(w io.Writer) error {
	return (&FixedHeader{Type: DISCONNECT}).EncodeFixedHeader311(w)
}
