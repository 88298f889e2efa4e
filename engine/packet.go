package engine

import (
	"bytes"
	"io"

	"github.com/mqttproto/core/wire"
)

// Packet is the tagged union over every packet variant the engine
// knows how to send or receive, for both protocol versions. Body
// holds one of the concrete *wire.XxxPacket / *wire.XxxPacket311
// types; Version and Type are cached alongside it so the engine can
// dispatch without a type switch on every access.
type Packet struct {
	Version Version
	Type    wire.PacketType
	Body    any
}

// wireEncoder is implemented by every *wire.XxxPacket(311) type; the
// engine never needs more than this to turn a built packet into wire
// bytes.
type wireEncoder interface {
	Encode(w io.Writer) error
}

// NewPacket wraps a concrete wire packet pointer into a Packet,
// inferring its Type from the concrete type. version is taken as
// given rather than inferred: PINGREQ/PINGRESP share one wire type
// across both protocol versions, so the type alone cannot tell them
// apart. It panics if body is not one of the known wire packet types,
// which would indicate a programming error in the caller, not a
// runtime condition.
func NewPacket(version Version, body any) Packet {
	t, ok := classify(body)
	if !ok {
		panic("engine: unrecognized packet type")
	}
	return Packet{Version: version, Type: t, Body: body}
}

func classify(body any) (wire.PacketType, bool) {
	switch body.(type) {
	case *wire.ConnectPacket, *wire.ConnectPacket311:
		return wire.CONNECT, true
	case *wire.ConnackPacket, *wire.ConnackPacket311:
		return wire.CONNACK, true
	case *wire.PublishPacket, *wire.PublishPacket311:
		return wire.PUBLISH, true
	case *wire.PubackPacket, *wire.PubackPacket311:
		return wire.PUBACK, true
	case *wire.PubrecPacket, *wire.PubrecPacket311:
		return wire.PUBREC, true
	case *wire.PubrelPacket, *wire.PubrelPacket311:
		return wire.PUBREL, true
	case *wire.PubcompPacket, *wire.PubcompPacket311:
		return wire.PUBCOMP, true
	case *wire.SubscribePacket, *wire.SubscribePacket311:
		return wire.SUBSCRIBE, true
	case *wire.SubackPacket, *wire.SubackPacket311:
		return wire.SUBACK, true
	case *wire.UnsubscribePacket, *wire.UnsubscribePacket311:
		return wire.UNSUBSCRIBE, true
	case *wire.UnsubackPacket, *wire.UnsubackPacket311:
		return wire.UNSUBACK, true
	case *wire.PingreqPacket:
		return wire.PINGREQ, true
	case *wire.PingrespPacket:
		return wire.PINGRESP, true
	case *wire.DisconnectPacket, *wire.DisconnectPacket311:
		return wire.DISCONNECT, true
	case *wire.AuthPacket:
		return wire.AUTH, true
	default:
		return wire.Reserved, false
	}
}

// PacketID returns the packet identifier carried by Body, if that
// packet type carries one at all (CONNECT, CONNACK, PINGREQ, PINGRESP,
// DISCONNECT and AUTH do not). A QoS 0 PUBLISH, and a QoS >= 1 PUBLISH
// whose identifier is still the reserved value 0, report none.
func (p Packet) PacketID() (uint16, bool) {
	switch b := p.Body.(type) {
	case *wire.PublishPacket:
		if b.FixedHeader.QoS == wire.QoS0 || b.PacketID == 0 {
			return 0, false
		}
		return b.PacketID, true
	case *wire.PublishPacket311:
		if b.FixedHeader.QoS == wire.QoS0 || b.PacketID == 0 {
			return 0, false
		}
		return b.PacketID, true
	case *wire.PubackPacket:
		return b.PacketID, true
	case *wire.PubackPacket311:
		return b.PacketID, true
	case *wire.PubrecPacket:
		return b.PacketID, true
	case *wire.PubrecPacket311:
		return b.PacketID, true
	case *wire.PubrelPacket:
		return b.PacketID, true
	case *wire.PubrelPacket311:
		return b.PacketID, true
	case *wire.PubcompPacket:
		return b.PacketID, true
	case *wire.PubcompPacket311:
		return b.PacketID, true
	case *wire.SubscribePacket:
		return b.PacketID, true
	case *wire.SubscribePacket311:
		return b.PacketID, true
	case *wire.SubackPacket:
		return b.PacketID, true
	case *wire.SubackPacket311:
		return b.PacketID, true
	case *wire.UnsubscribePacket:
		return b.PacketID, true
	case *wire.UnsubscribePacket311:
		return b.PacketID, true
	case *wire.UnsubackPacket:
		return b.PacketID, true
	case *wire.UnsubackPacket311:
		return b.PacketID, true
	default:
		return 0, false
	}
}

// SetPacketID writes id into Body's packet-identifier field, for the
// types that carry one. Returns false for a type with no such field.
func (p Packet) SetPacketID(id uint16) bool {
	switch b := p.Body.(type) {
	case *wire.PublishPacket:
		b.PacketID = id
	case *wire.PublishPacket311:
		b.PacketID = id
	case *wire.SubscribePacket:
		b.PacketID = id
	case *wire.SubscribePacket311:
		b.PacketID = id
	case *wire.UnsubscribePacket:
		b.PacketID = id
	case *wire.UnsubscribePacket311:
		b.PacketID = id
	default:
		return false
	}
	return true
}

// encode serializes pkt to its complete wire form (fixed header, VBI
// remaining length, variable header and payload) via the Encode
// method every wire packet type already implements.
func encode(pkt Packet) ([]byte, error) {
	enc, ok := pkt.Body.(wireEncoder)
	if !ok {
		panic("engine: packet body does not implement Encode")
	}
	var buf bytes.Buffer
	if err := enc.Encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// parseBody decodes the bytes following the fixed header's remaining
// length (i.e. exactly fh.RemainingLength bytes) into a typed Packet,
// dispatching on the already-bound protocol version and the fixed
// header's packet type.
func parseBody(version Version, fh *wire.FixedHeader, body []byte) (Packet, error) {
	r := bytes.NewReader(body)

	if version == V5_0 {
		switch fh.Type {
		case wire.CONNECT:
			p, err := wire.ParseConnectPacket(r, fh)
			return wrapOrErr(version, p, err)
		case wire.CONNACK:
			p, err := wire.ParseConnackPacket(r, fh)
			return wrapOrErr(version, p, err)
		case wire.PUBLISH:
			p, err := wire.ParsePublishPacket(r, fh)
			return wrapOrErr(version, p, err)
		case wire.PUBACK:
			p, err := wire.ParsePubackPacket(r, fh)
			return wrapOrErr(version, p, err)
		case wire.PUBREC:
			p, err := wire.ParsePubrecPacket(r, fh)
			return wrapOrErr(version, p, err)
		case wire.PUBREL:
			p, err := wire.ParsePubrelPacket(r, fh)
			return wrapOrErr(version, p, err)
		case wire.PUBCOMP:
			p, err := wire.ParsePubcompPacket(r, fh)
			return wrapOrErr(version, p, err)
		case wire.SUBSCRIBE:
			p, err := wire.ParseSubscribePacket(r, fh)
			return wrapOrErr(version, p, err)
		case wire.SUBACK:
			p, err := wire.ParseSubackPacket(r, fh)
			return wrapOrErr(version, p, err)
		case wire.UNSUBSCRIBE:
			p, err := wire.ParseUnsubscribePacket(r, fh)
			return wrapOrErr(version, p, err)
		case wire.UNSUBACK:
			p, err := wire.ParseUnsubackPacket(r, fh)
			return wrapOrErr(version, p, err)
		case wire.PINGREQ:
			p, err := wire.ParsePingreqPacket(fh)
			return wrapOrErr(version, p, err)
		case wire.PINGRESP:
			p, err := wire.ParsePingrespPacket(fh)
			return wrapOrErr(version, p, err)
		case wire.DISCONNECT:
			p, err := wire.ParseDisconnectPacket(r, fh)
			return wrapOrErr(version, p, err)
		case wire.AUTH:
			p, err := wire.ParseAuthPacket(r, fh)
			return wrapOrErr(version, p, err)
		default:
			return Packet{}, wire.ErrInvalidType
		}
	}

	// V3_1_1
	switch fh.Type {
	case wire.CONNECT:
		p, err := wire.ParseConnectPacket311(r, fh)
		return wrapOrErr(version, p, err)
	case wire.CONNACK:
		p, err := wire.ParseConnackPacket311(r, fh)
		return wrapOrErr(version, p, err)
	case wire.PUBLISH:
		p, err := wire.ParsePublishPacket311(r, fh)
		return wrapOrErr(version, p, err)
	case wire.PUBACK:
		p, err := wire.ParsePubackPacket311(r, fh)
		return wrapOrErr(version, p, err)
	case wire.PUBREC:
		p, err := wire.ParsePubrecPacket311(r, fh)
		return wrapOrErr(version, p, err)
	case wire.PUBREL:
		p, err := wire.ParsePubrelPacket311(r, fh)
		return wrapOrErr(version, p, err)
	case wire.PUBCOMP:
		p, err := wire.ParsePubcompPacket311(r, fh)
		return wrapOrErr(version, p, err)
	case wire.SUBSCRIBE:
		p, err := wire.ParseSubscribePacket311(r, fh)
		return wrapOrErr(version, p, err)
	case wire.SUBACK:
		p, err := wire.ParseSubackPacket311(r, fh)
		return wrapOrErr(version, p, err)
	case wire.UNSUBSCRIBE:
		p, err := wire.ParseUnsubscribePacket311(r, fh)
		return wrapOrErr(version, p, err)
	case wire.UNSUBACK:
		p, err := wire.ParseUnsubackPacket311(r, fh)
		return wrapOrErr(version, p, err)
	case wire.PINGREQ:
		p, err := wire.ParsePingreqPacket311(fh)
		return wrapOrErr(version, p, err)
	case wire.PINGRESP:
		p, err := wire.ParsePingrespPacket311(fh)
		return wrapOrErr(version, p, err)
	case wire.DISCONNECT:
		p, err := wire.ParseDisconnectPacket311(fh)
		return wrapOrErr(version, p, err)
	default:
		return Packet{}, wire.ErrInvalidType
	}
}

// wrapOrErr is a small generic helper so the parseBody dispatch table
// above can stay a flat list of one-liners instead of repeating the
// nil-check/NewPacket dance per packet type.
func wrapOrErr[T any](version Version, p *T, err error) (Packet, error) {
	if err != nil {
		return Packet{}, err
	}
	return NewPacket(version, any(p)), nil
}
