package engine

import (
	"github.com/mqttproto/core/retransmit"
	"github.com/mqttproto/core/wire"
)

// CheckedSend validates pkt against the connection's current state,
// role, and flow-control limits, applies its side effects (packet-ID
// allocation, store insertion, state transition) and returns the
// events the caller should act on. A validation failure returns a
// single NotifyError event and sends nothing.
func (c *Connection) CheckedSend(pkt Packet) []Event {
	if c.closed {
		return []Event{evError(ErrPacketNotAllowedToSend, nil)}
	}
	if c.version != Undetermined && pkt.Version != c.version {
		return []Event{evError(ErrPacketTypeMismatch, nil)}
	}

	switch pkt.Type {
	case wire.CONNECT:
		return c.sendConnect(pkt)
	case wire.CONNACK:
		return c.sendConnack(pkt)
	case wire.PUBLISH:
		return c.sendPublish(pkt)
	case wire.PUBACK, wire.PUBREC, wire.PUBCOMP:
		return c.sendPublishAck(pkt)
	case wire.PUBREL:
		return c.sendPubrel(pkt)
	case wire.SUBSCRIBE:
		return c.sendWithPacketID(pkt, pendingSubscribe)
	case wire.UNSUBSCRIBE:
		return c.sendWithPacketID(pkt, pendingUnsubscribe)
	case wire.SUBACK, wire.UNSUBACK, wire.AUTH:
		return c.sendPassthrough(pkt)
	case wire.PINGREQ:
		return c.sendPingreq(pkt)
	case wire.PINGRESP:
		return c.sendPassthrough(pkt)
	case wire.DISCONNECT:
		return c.sendDisconnect(pkt)
	default:
		return []Event{evError(ErrPacketNotAllowedToSend, nil)}
	}
}

// afterSend appends the client-side keep-alive timer events that
// follow a successful send: PingreqSend is (re)armed after every send
// except DISCONNECT (sendDisconnect does not call this), and
// PingrespRecv is armed specifically after a PINGREQ.
func (c *Connection) afterSend(events []Event, sentPingreq bool) []Event {
	if c.role != RoleClient {
		return events
	}
	if c.pingreqSendIntervalMS > 0 {
		events = append(events, evTimerReset(TimerPingreqSend, c.pingreqSendIntervalMS))
	}
	if sentPingreq && c.pingrespRecvTimeoutMS > 0 {
		events = append(events, evTimerReset(TimerPingrespRecv, c.pingrespRecvTimeoutMS))
	}
	return events
}

func (c *Connection) sendConnect(pkt Packet) []Event {
	if c.role != RoleClient || c.state != StateDisconnected {
		return []Event{evError(ErrPacketNotAllowedToSend, nil)}
	}
	keepAlive, ok := connectKeepAlive(pkt)
	if !ok {
		return []Event{evError(ErrPacketTypeMismatch, nil)}
	}

	bytes, err := encode(pkt)
	if err != nil {
		return []Event{evError(ErrMalformedPacket, err)}
	}

	c.state = StateConnectSent
	c.keepAliveSec = keepAlive
	return c.afterSend([]Event{evSend(pkt, bytes, false)}, false)
}

func (c *Connection) sendConnack(pkt Packet) []Event {
	if c.role != RoleServer || c.state != StateConnectReceived {
		return []Event{evError(ErrPacketNotAllowedToSend, nil)}
	}

	var accepted bool
	switch b := pkt.Body.(type) {
	case *wire.ConnackPacket:
		accepted = b.ReasonCode == wire.ReasonSuccess
	case *wire.ConnackPacket311:
		accepted = b.ReturnCode == 0
	default:
		return []Event{evError(ErrPacketTypeMismatch, nil)}
	}

	bytes, err := encode(pkt)
	if err != nil {
		return []Event{evError(ErrMalformedPacket, err)}
	}

	if accepted {
		c.state = StateConnected
	} else {
		c.state = StateDisconnecting
	}
	return []Event{evSend(pkt, bytes, false)}
}

func (c *Connection) sendPublish(pkt Packet) []Event {
	if c.state != StateConnected {
		return []Event{evError(ErrPacketNotAllowedToSend, nil)}
	}

	if publishQoS(pkt) == wire.QoS0 {
		bytes, err := encode(pkt)
		if err != nil {
			return []Event{evError(ErrMalformedPacket, err)}
		}
		return c.afterSend([]Event{evSend(pkt, bytes, false)}, false)
	}

	id, hasID := pkt.PacketID()
	if !hasID || id == 0 {
		newID, ok := c.ids.AcquireUniqueID()
		if !ok {
			return []Event{evError(ErrPacketIdentifierFullyUsed, nil)}
		}
		pkt.SetPacketID(newID)
		id = newID
	} else if !c.ids.RegisterID(id) {
		return []Event{evError(ErrPacketIdentifierConflict, nil)}
	}

	if uint16(c.store.Len()) >= c.peerReceiveMaximum {
		c.ids.ReleaseID(id)
		return []Event{evError(ErrReceiveMaximumExceeded, nil)}
	}

	bytes, err := encode(pkt)
	if err != nil {
		c.ids.ReleaseID(id)
		return []Event{evError(ErrMalformedPacket, err)}
	}

	_ = c.store.Add(retransmit.Entry{PacketID: id, Packet: pkt.Body, Expected: c.expectedPublishAck(publishQoS(pkt))})
	return c.afterSend([]Event{evSend(pkt, bytes, true)}, false)
}

// sendPublishAck handles a caller-built PUBACK / PUBREC / PUBCOMP sent
// in reply to an inbound publish-flow packet when auto-pub-response is
// disabled. It carries no store bookkeeping of its own: the store only
// ever tracks this connection's own outbound QoS >= 1 publishes.
func (c *Connection) sendPublishAck(pkt Packet) []Event {
	if c.state != StateConnected {
		return []Event{evError(ErrPacketNotAllowedToSend, nil)}
	}
	bytes, err := encode(pkt)
	if err != nil {
		return []Event{evError(ErrMalformedPacket, err)}
	}
	if pkt.Type == wire.PUBACK || pkt.Type == wire.PUBCOMP {
		if c.inboundInFlight > 0 {
			c.inboundInFlight--
		}
	}
	return c.afterSend([]Event{evSend(pkt, bytes, false)}, false)
}

// sendPubrel is a manual-override path: the sender's half of the QoS 2
// pipeline normally emits its own PUBREL automatically from Recv upon
// seeing the matching PUBREC (see handlePubrec), without the caller
// ever calling CheckedSend for it. This exists for a caller that wants
// to drive that step itself.
func (c *Connection) sendPubrel(pkt Packet) []Event {
	if c.state != StateConnected {
		return []Event{evError(ErrPacketNotAllowedToSend, nil)}
	}
	bytes, err := encode(pkt)
	if err != nil {
		return []Event{evError(ErrMalformedPacket, err)}
	}
	return c.afterSend([]Event{evSend(pkt, bytes, false)}, false)
}

func (c *Connection) sendWithPacketID(pkt Packet, kind PacketTypeForAck) []Event {
	if c.state != StateConnected {
		return []Event{evError(ErrPacketNotAllowedToSend, nil)}
	}

	id, hasID := pkt.PacketID()
	if !hasID || id == 0 {
		newID, ok := c.ids.AcquireUniqueID()
		if !ok {
			return []Event{evError(ErrPacketIdentifierFullyUsed, nil)}
		}
		pkt.SetPacketID(newID)
		id = newID
	} else if !c.ids.RegisterID(id) {
		return []Event{evError(ErrPacketIdentifierConflict, nil)}
	}

	bytes, err := encode(pkt)
	if err != nil {
		c.ids.ReleaseID(id)
		return []Event{evError(ErrMalformedPacket, err)}
	}

	c.pendingAck[id] = kind
	return c.afterSend([]Event{evSend(pkt, bytes, true)}, false)
}

func (c *Connection) sendPassthrough(pkt Packet) []Event {
	if c.state != StateConnected {
		return []Event{evError(ErrPacketNotAllowedToSend, nil)}
	}
	bytes, err := encode(pkt)
	if err != nil {
		return []Event{evError(ErrMalformedPacket, err)}
	}
	return c.afterSend([]Event{evSend(pkt, bytes, false)}, false)
}

func (c *Connection) sendPingreq(pkt Packet) []Event {
	if c.state != StateConnected {
		return []Event{evError(ErrPacketNotAllowedToSend, nil)}
	}
	bytes, err := encode(pkt)
	if err != nil {
		return []Event{evError(ErrMalformedPacket, err)}
	}
	return c.afterSend([]Event{evSend(pkt, bytes, false)}, true)
}

func (c *Connection) sendDisconnect(pkt Packet) []Event {
	if c.state != StateConnected && c.state != StateConnectSent {
		return []Event{evError(ErrPacketNotAllowedToSend, nil)}
	}
	bytes, err := encode(pkt)
	if err != nil {
		return []Event{evError(ErrMalformedPacket, err)}
	}
	c.state = StateDisconnecting
	return []Event{evSend(pkt, bytes, false)}
}

func (c *Connection) expectedPublishAck(qos wire.QoS) retransmit.ExpectedResponse {
	if c.version == V5_0 {
		if qos == wire.QoS1 {
			return retransmit.ExpectV5PUBACK
		}
		return retransmit.ExpectV5PUBREC
	}
	if qos == wire.QoS1 {
		return retransmit.ExpectV3PUBACK
	}
	return retransmit.ExpectV3PUBREC
}

func publishQoS(pkt Packet) wire.QoS {
	switch b := pkt.Body.(type) {
	case *wire.PublishPacket:
		return b.FixedHeader.QoS
	case *wire.PublishPacket311:
		return b.FixedHeader.QoS
	default:
		return wire.QoS0
	}
}

func connectKeepAlive(pkt Packet) (uint16, bool) {
	switch b := pkt.Body.(type) {
	case *wire.ConnectPacket:
		return b.KeepAlive, true
	case *wire.ConnectPacket311:
		return b.KeepAlive, true
	default:
		return 0, false
	}
}
