package wire

import (
	"bytes"
	"io"
)

// fieldWriter serializes a sequence of MQTT primitive fields onto an
// io.Writer, latching the first error so an Encode method can write its
// whole variable header and payload as a flat list of calls instead of
// checking an error after each one.
type fieldWriter struct {
	w   io.Writer
	err error
}

func (f *fieldWriter) raw(b []byte) {
	if f.err != nil || len(b) == 0 {
		return
	}
	_, f.err = f.w.Write(b)
}

func (f *fieldWriter) one(b byte) {
	if f.err != nil {
		return
	}
	f.err = writeByte(f.w, b)
}

func (f *fieldWriter) u16(v uint16) {
	if f.err != nil {
		return
	}
	f.err = writeTwoByteInt(f.w, v)
}

func (f *fieldWriter) str(s string) {
	if f.err != nil {
		return
	}
	f.err = writeUTF8String(f.w, s)
}

func (f *fieldWriter) binary(b []byte) {
	if f.err != nil {
		return
	}
	f.err = writeBinaryData(f.w, b)
}

func (f *fieldWriter) reasonCodes(codes []ReasonCode) {
	for _, rc := range codes {
		f.one(byte(rc))
	}
}

// encodeToBytes renders a property block into a standalone buffer so its
// length can be folded into a remaining-length computation before the
// fixed header is written.
func (p *Properties) encodeToBytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := p.EncodeProperties(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// connectFlagsByte packs the CONNECT variable header's flag byte from a
// ConnectPacket's fields.
func connectFlagsByte(p *ConnectPacket) byte {
	var flags byte
	if p.CleanStart {
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

// subscriptionOptionsByte packs one SUBSCRIBE entry's options byte.
func subscriptionOptionsByte(sub Subscription) byte {
	opts := byte(sub.QoS) & subOptQoSMask
	if sub.NoLocal {
		opts |= 0x04
	}
	if sub.RetainAsPublished {
		opts |= 0x08
	}
	opts |= (sub.RetainHandling & 0x03) << 4
	return opts
}

// Encode writes p as an MQTT 5.0 CONNECT packet.
func (p *ConnectPacket) Encode(w io.Writer) error {
	propsBytes, err := p.Properties.encodeToBytes()
	if err != nil {
		return err
	}

	var willPropsBytes []byte
	if p.WillFlag {
		willPropsBytes, err = p.WillProperties.encodeToBytes()
		if err != nil {
			return err
		}
	}

	varHeaderLen := 2 + len(p.ProtocolName) + 1 + 1 + 2 + len(propsBytes)
	payloadLen := 2 + len(p.ClientID)
	if p.WillFlag {
		payloadLen += len(willPropsBytes) + 2 + len(p.WillTopic) + 2 + len(p.WillPayload)
	}
	if p.UsernameFlag {
		payloadLen += 2 + len(p.Username)
	}
	if p.PasswordFlag {
		payloadLen += 2 + len(p.Password)
	}

	fh := FixedHeader{Type: CONNECT, RemainingLength: uint32(varHeaderLen + payloadLen)}
	if err := fh.EncodeFixedHeader(w); err != nil {
		return err
	}

	fw := &fieldWriter{w: w}
	fw.str(p.ProtocolName)
	fw.one(byte(p.ProtocolVersion))
	fw.one(connectFlagsByte(p))
	fw.u16(p.KeepAlive)
	fw.raw(propsBytes)
	fw.str(p.ClientID)
	if p.WillFlag {
		fw.raw(willPropsBytes)
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

// Encode writes p as an MQTT 5.0 CONNACK packet.
func (p *ConnackPacket) Encode(w io.Writer) error {
	propsBytes, err := p.Properties.encodeToBytes()
	if err != nil {
		return err
	}

	fh := FixedHeader{Type: CONNACK, RemainingLength: uint32(2 + len(propsBytes))}
	if err := fh.EncodeFixedHeader(w); err != nil {
		return err
	}

	var ackFlags byte
	if p.SessionPresent {
		ackFlags = 0x01
	}

	fw := &fieldWriter{w: w}
	fw.one(ackFlags)
	fw.one(byte(p.ReasonCode))
	fw.raw(propsBytes)
	return fw.err
}

// Encode writes p as an MQTT 5.0 PUBLISH packet.
func (p *PublishPacket) Encode(w io.Writer) error {
	propsBytes, err := p.Properties.encodeToBytes()
	if err != nil {
		return err
	}

	remainingLength := uint32(2 + len(p.TopicName) + len(propsBytes) + len(p.Payload))
	if p.FixedHeader.QoS > QoS0 {
		remainingLength += 2
	}

	fh := FixedHeader{
		Type:            PUBLISH,
		Flags:           p.FixedHeader.BuildPublishFlags(),
		RemainingLength: remainingLength,
		DUP:             p.FixedHeader.DUP,
		QoS:             p.FixedHeader.QoS,
		Retain:          p.FixedHeader.Retain,
	}
	if err := fh.EncodeFixedHeader(w); err != nil {
		return err
	}

	fw := &fieldWriter{w: w}
	fw.str(p.TopicName)
	if p.FixedHeader.QoS > QoS0 {
		fw.u16(p.PacketID)
	}
	fw.raw(propsBytes)
	fw.raw(p.Payload)
	return fw.err
}

// Encode writes p as an MQTT 5.0 PUBACK packet.
func (p *PubackPacket) Encode(w io.Writer) error {
	return encodeAck(w, PUBACK, 0, p.PacketID, p.ReasonCode, &p.Properties)
}

// Encode writes p as an MQTT 5.0 PUBREC packet.
func (p *PubrecPacket) Encode(w io.Writer) error {
	return encodeAck(w, PUBREC, 0, p.PacketID, p.ReasonCode, &p.Properties)
}

// Encode writes p as an MQTT 5.0 PUBREL packet.
func (p *PubrelPacket) Encode(w io.Writer) error {
	return encodeAck(w, PUBREL, 0x02, p.PacketID, p.ReasonCode, &p.Properties)
}

// Encode writes p as an MQTT 5.0 PUBCOMP packet.
func (p *PubcompPacket) Encode(w io.Writer) error {
	return encodeAck(w, PUBCOMP, 0, p.PacketID, p.ReasonCode, &p.Properties)
}

// encodeAck writes the four QoS handshake packet types (PUBACK, PUBREC,
// PUBREL, PUBCOMP), which all share one layout: packet ID, then reason
// code and properties that are dropped entirely when the reason is
// Success and there are no properties to carry (MQTT 5.0 §3.4.2.1 et al).
func encodeAck(w io.Writer, packetType PacketType, flags byte, packetID uint16, reasonCode ReasonCode, props *Properties) error {
	propsBytes, err := props.encodeToBytes()
	if err != nil {
		return err
	}

	includeReason := reasonCode != ReasonSuccess || len(propsBytes) > 1
	remainingLength := uint32(2)
	if includeReason {
		remainingLength += 1 + uint32(len(propsBytes))
	}

	fh := FixedHeader{Type: packetType, Flags: flags, RemainingLength: remainingLength}
	if err := fh.EncodeFixedHeader(w); err != nil {
		return err
	}

	fw := &fieldWriter{w: w}
	fw.u16(packetID)
	if includeReason {
		fw.one(byte(reasonCode))
		fw.raw(propsBytes)
	}
	return fw.err
}

// encodeAckWithReasonCodes writes SUBACK/UNSUBACK: packet ID, properties,
// then one reason code per originating filter.
func encodeAckWithReasonCodes(w io.Writer, packetType PacketType, packetID uint16, reasonCodes []ReasonCode, props *Properties) error {
	propsBytes, err := props.encodeToBytes()
	if err != nil {
		return err
	}

	fh := FixedHeader{
		Type:            packetType,
		RemainingLength: uint32(2 + len(propsBytes) + len(reasonCodes)),
	}
	if err := fh.EncodeFixedHeader(w); err != nil {
		return err
	}

	fw := &fieldWriter{w: w}
	fw.u16(packetID)
	fw.raw(propsBytes)
	fw.reasonCodes(reasonCodes)
	return fw.err
}

// Encode writes p as an MQTT 5.0 SUBSCRIBE packet.
func (p *SubscribePacket) Encode(w io.Writer) error {
	propsBytes, err := p.Properties.encodeToBytes()
	if err != nil {
		return err
	}

	remainingLength := uint32(2 + len(propsBytes))
	for _, sub := range p.Subscriptions {
		remainingLength += uint32(2 + len(sub.TopicFilter) + 1)
	}

	fh := FixedHeader{Type: SUBSCRIBE, Flags: 0x02, RemainingLength: remainingLength}
	if err := fh.EncodeFixedHeader(w); err != nil {
		return err
	}

	fw := &fieldWriter{w: w}
	fw.u16(p.PacketID)
	fw.raw(propsBytes)
	for _, sub := range p.Subscriptions {
		fw.str(sub.TopicFilter)
		fw.one(subscriptionOptionsByte(sub))
	}
	return fw.err
}

// Encode writes p as an MQTT 5.0 SUBACK packet.
func (p *SubackPacket) Encode(w io.Writer) error {
	return encodeAckWithReasonCodes(w, SUBACK, p.PacketID, p.ReasonCodes, &p.Properties)
}

// Encode writes p as an MQTT 5.0 UNSUBSCRIBE packet.
func (p *UnsubscribePacket) Encode(w io.Writer) error {
	propsBytes, err := p.Properties.encodeToBytes()
	if err != nil {
		return err
	}

	remainingLength := uint32(2 + len(propsBytes))
	for _, topic := range p.TopicFilters {
		remainingLength += uint32(2 + len(topic))
	}

	fh := FixedHeader{Type: UNSUBSCRIBE, Flags: 0x02, RemainingLength: remainingLength}
	if err := fh.EncodeFixedHeader(w); err != nil {
		return err
	}

	fw := &fieldWriter{w: w}
	fw.u16(p.PacketID)
	fw.raw(propsBytes)
	for _, topic := range p.TopicFilters {
		fw.str(topic)
	}
	return fw.err
}

// Encode writes p as an MQTT 5.0 UNSUBACK packet.
func (p *UnsubackPacket) Encode(w io.Writer) error {
	return encodeAckWithReasonCodes(w, UNSUBACK, p.PacketID, p.ReasonCodes, &p.Properties)
}

// Encode writes p as an MQTT 5.0 PINGREQ packet.
func (p *PingreqPacket) Encode(w io.Writer) error {
	return (&FixedHeader{Type: PINGREQ}).EncodeFixedHeader(w)
}

// Encode writes p as an MQTT 5.0 PINGRESP packet.
func (p *PingrespPacket) Encode(w io.Writer) error {
	return (&FixedHeader{Type: PINGRESP}).EncodeFixedHeader(w)
}

// Encode writes p as an MQTT 5.0 DISCONNECT packet.
func (p *DisconnectPacket) Encode(w io.Writer) error {
	propsBytes, err := p.Properties.encodeToBytes()
	if err != nil {
		return err
	}

	var remainingLength uint32
	includeReason := p.ReasonCode != ReasonNormalDisconnection || len(propsBytes) > 1
	if includeReason {
		remainingLength = 1 + uint32(len(propsBytes))
	}

	fh := FixedHeader{Type: DISCONNECT, RemainingLength: remainingLength}
	if err := fh.EncodeFixedHeader(w); err != nil {
		return err
	}

	if !includeReason {
		return nil
	}
	fw := &fieldWriter{w: w}
	fw.one(byte(p.ReasonCode))
	fw.raw(propsBytes)
	return fw.err
}

// Encode writes p as an MQTT 5.0 AUTH packet.
func (p *AuthPacket) Encode(w io.Writer) error {
	propsBytes, err := p.Properties.encodeToBytes()
	if err != nil {
		return err
	}

	fh := FixedHeader{Type: AUTH, RemainingLength: uint32(1 + len(propsBytes))}
	if err := fh.EncodeFixedHeader(w); err != nil {
		return err
	}

	fw := &fieldWriter{w: w}
	fw.one(byte(p.ReasonCode))
	fw.raw(propsBytes)
	return fw.err
}

// EncodeTo writes p directly into buf, for call sites that already know
// the packet's encoded size and want to avoid the io.Writer indirection.
func (p *PublishPacket) EncodeTo(buf []byte) (int, error) {
	propsBytes, err := p.Properties.encodeToBytes()
	if err != nil {
		return 0, err
	}

	remainingLength := uint32(2 + len(p.TopicName) + len(propsBytes) + len(p.Payload))
	if p.FixedHeader.QoS > QoS0 {
		remainingLength += 2
	}

	fh := FixedHeader{Type: PUBLISH, RemainingLength: remainingLength}
	fh.Flags = p.FixedHeader.BuildPublishFlags()

	offset, err := fh.EncodeFixedHeaderToBytes(buf)
	if err != nil {
		return 0, err
	}

	n, err := writeUTF8StringToBytes(buf[offset:], p.TopicName)
	if err != nil {
		return 0, err
	}
	offset += n

	if p.FixedHeader.QoS > QoS0 {
		n, err = writeTwoByteIntToBytes(buf[offset:], p.PacketID)
		if err != nil {
			return 0, err
		}
		offset += n
	}

	offset += copy(buf[offset:], propsBytes)
	offset += copy(buf[offset:], p.Payload)

	return offset, nil
}
