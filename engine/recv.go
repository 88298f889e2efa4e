package engine

import (
	"github.com/mqttproto/core/retransmit"
	"github.com/mqttproto/core/topicalias"
	"github.com/mqttproto/core/wire"
)

// Recv feeds newly-arrived bytes into the connection's stream parser
// and drains every packet the buffer now allows, returning the events
// produced along the way in causal order. A decode failure at the
// stream level is terminal: it produces NotifyError followed by
// RequestClose and the connection accepts no further input.
func (c *Connection) Recv(data []byte) []Event {
	if c.closed {
		return nil
	}

	frames, streamErr := c.stream.feed(data)

	var events []Event
	for _, f := range frames {
		events = append(events, c.handleFrame(f)...)
		if c.closed {
			return events
		}
	}

	if streamErr != nil {
		events = append(events, evError(ErrMalformedPacket, streamErr), evClose())
		c.closed = true
	}

	return events
}

func (c *Connection) handleFrame(f rawFrame) []Event {
	if c.role == RoleServer && c.version == Undetermined {
		if f.header.Type != wire.CONNECT {
			c.closed = true
			return []Event{evError(ErrProtocolError, wire.ErrInvalidType), evClose()}
		}
		version, err := detectConnectVersion(f.body)
		if err != nil {
			c.closed = true
			return []Event{evError(ErrClientIdentifierNotValid, err), evClose()}
		}
		c.version = version
	}

	pkt, err := parseBody(c.version, &f.header, f.body)
	if err != nil {
		events := c.handleParseFailure(f.header.Type, err)
		c.closed = true
		return events
	}

	if c.role == RoleServer {
		if ka, ok := connectKeepAlive(pkt); ok {
			c.keepAliveSec = ka
		}
	}

	var events []Event
	if c.role == RoleServer {
		events = append(events, evTimerReset(TimerPingreqRecv, keepAliveRecvTimeoutMS(c.keepAliveSec)))
	}

	// Each handler below places evReceived(pkt) itself, wherever in its
	// returned list the packet's own semantics put it: the sender-side
	// PUBREL on PUBREC and the PINGRESP on PINGREQ go out before the
	// receipt is announced, while the receiver-side auto PUBACK / PUBREC
	// / PUBCOMP and bookkeeping that only makes sense once the packet is
	// known to have arrived (a released packet ID) are reported after.
	typeEvents, fatal := c.handleTypedPacket(pkt)
	events = append(events, typeEvents...)
	if fatal {
		c.closed = true
	}
	return events
}

func keepAliveRecvTimeoutMS(keepAliveSec uint16) int64 {
	return int64(keepAliveSec) * 1000 * 3 / 2
}

// detectConnectVersion peeks the protocol-level byte of a raw CONNECT
// body (offset 6: 2-byte protocol-name length + "MQTT" + level) to
// decide which version-specific parser to hand the body to, since the
// v3.1.1 and v5.0 CONNECT layouts diverge from there on.
func detectConnectVersion(body []byte) (Version, error) {
	if len(body) < 7 {
		return Undetermined, wire.ErrUnexpectedEOF
	}
	switch wire.ProtocolVersion(body[6]) {
	case wire.ProtocolVersion311:
		return V3_1_1, nil
	case wire.ProtocolVersion50:
		return V5_0, nil
	default:
		return Undetermined, wire.ErrInvalidProtocolVersion
	}
}

// handleParseFailure builds the reply a failed parse is still owed, if
// the state permits one. A v3.1.1 server CONNECT that cannot be parsed
// always gets an IdentifierRejected CONNACK, per MQTT-3.1.3-9's
// leniency around unparseable client identifiers.
func (c *Connection) handleParseFailure(t wire.PacketType, err error) []Event {
	if t == wire.CONNECT && c.role == RoleServer && c.version == V3_1_1 {
		connack := NewPacket(c.version, &wire.ConnackPacket311{ReturnCode: 0x02})
		if bytes, encErr := encode(connack); encErr == nil {
			return []Event{evSend(connack, bytes, false), evError(ErrClientIdentifierNotValid, err), evClose()}
		}
		return []Event{evError(ErrClientIdentifierNotValid, err), evClose()}
	}
	return []Event{evError(ErrMalformedPacket, err), evClose()}
}

func (c *Connection) handleTypedPacket(pkt Packet) ([]Event, bool) {
	switch pkt.Type {
	case wire.CONNECT:
		return c.handleConnect(pkt)
	case wire.CONNACK:
		return c.handleConnack(pkt)
	case wire.PUBLISH:
		return c.handlePublishRecv(pkt)
	case wire.PUBACK:
		return c.handlePuback(pkt)
	case wire.PUBREC:
		return c.handlePubrec(pkt)
	case wire.PUBREL:
		return c.handlePubrel(pkt)
	case wire.PUBCOMP:
		return c.handlePubcomp(pkt)
	case wire.SUBSCRIBE:
		return c.handleSubscribe(pkt)
	case wire.SUBACK:
		return c.releasePending(pkt, pendingSubscribe)
	case wire.UNSUBSCRIBE:
		return c.handleUnsubscribe(pkt)
	case wire.UNSUBACK:
		return c.releasePending(pkt, pendingUnsubscribe)
	case wire.PINGREQ:
		return c.handlePingreq(pkt)
	case wire.PINGRESP:
		return c.handlePingresp(pkt)
	case wire.DISCONNECT:
		return c.handleDisconnect(pkt)
	case wire.AUTH:
		return []Event{evReceived(pkt)}, false
	default:
		return []Event{evError(ErrProtocolError, nil), evClose()}, true
	}
}

func (c *Connection) handleConnect(pkt Packet) ([]Event, bool) {
	if c.role != RoleServer || c.state != StateDisconnected {
		return []Event{evError(ErrProtocolError, nil), evClose()}, true
	}
	c.state = StateConnectReceived

	if props := connectProperties(pkt); props != nil {
		if p := props.GetProperty(wire.PropReceiveMaximum); p != nil {
			if v, ok := p.Value.(uint16); ok && v > 0 {
				c.peerReceiveMaximum = v
			}
		}
		if p := props.GetProperty(wire.PropTopicAliasMaximum); p != nil {
			if v, ok := p.Value.(uint16); ok && v > 0 {
				c.sendAliases = topicalias.NewSendCache(v)
			}
		}
	}
	return []Event{evReceived(pkt)}, false
}

func connectProperties(pkt Packet) *wire.Properties {
	if b, ok := pkt.Body.(*wire.ConnectPacket); ok {
		return &b.Properties
	}
	return nil
}

func (c *Connection) handleConnack(pkt Packet) ([]Event, bool) {
	if c.role != RoleClient || c.state != StateConnectSent {
		return []Event{evError(ErrProtocolError, nil), evClose()}, true
	}

	var accepted, sessionPresent bool
	switch b := pkt.Body.(type) {
	case *wire.ConnackPacket:
		accepted = b.ReasonCode == wire.ReasonSuccess
		sessionPresent = b.SessionPresent
		if p := b.Properties.GetProperty(wire.PropReceiveMaximum); p != nil {
			if v, ok := p.Value.(uint16); ok && v > 0 {
				c.peerReceiveMaximum = v
			}
		}
		if p := b.Properties.GetProperty(wire.PropTopicAliasMaximum); p != nil {
			if v, ok := p.Value.(uint16); ok && v > 0 {
				c.sendAliases = topicalias.NewSendCache(v)
			}
		}
	case *wire.ConnackPacket311:
		accepted = b.ReturnCode == 0
		sessionPresent = b.SessionPresent
	default:
		return []Event{evError(ErrPacketTypeMismatch, nil), evClose()}, true
	}

	if !accepted {
		c.state = StateDisconnecting
		return []Event{evReceived(pkt)}, false
	}

	c.state = StateConnected

	if !sessionPresent {
		for _, e := range c.store.Entries() {
			c.ids.ReleaseID(e.PacketID)
		}
		c.store.Clear()
		return []Event{evReceived(pkt)}, false
	}

	events := append(c.replayStore(), evReceived(pkt))
	return events, false
}

// replayStore re-emits every not-yet-terminal entry in the
// retransmission store, in insertion order, on a reconnect where the
// peer reports session_present=true: the peer is telling us it still
// holds the unfinished QoS exchanges this store represents, so its
// half of them needs resending before anything else goes out. A
// resent PUBLISH carries DUP=1; a resent PUBREL does not (MQTT has no
// DUP bit for PUBREL).
func (c *Connection) replayStore() []Event {
	entries := c.store.Entries()
	events := make([]Event, 0, len(entries))
	for _, e := range entries {
		markPublishDup(e.Packet)
		pkt := NewPacket(c.version, e.Packet)
		bytes, err := encode(pkt)
		if err != nil {
			continue
		}
		events = append(events, evSend(pkt, bytes, true))
	}
	return events
}

// markPublishDup sets the DUP flag on a stored PUBLISH so a resend
// after session resumption is distinguishable on the wire; it is a
// no-op for anything else the store can hold (a stored PUBREL, whose
// fixed-header flags are the fixed 0010 and carry no DUP bit).
func markPublishDup(body any) {
	switch b := body.(type) {
	case *wire.PublishPacket:
		b.FixedHeader.DUP = true
	case *wire.PublishPacket311:
		b.FixedHeader.DUP = true
	}
}

func (c *Connection) handlePublishRecv(pkt Packet) ([]Event, bool) {
	if c.state != StateConnected {
		return []Event{evError(ErrProtocolError, nil), evClose()}, true
	}

	qos := publishQoS(pkt)
	id, _ := pkt.PacketID()

	if qos != wire.QoS0 && c.inboundInFlight+1 > int(c.receiveMaximum) {
		return []Event{evError(ErrReceiveMaximumExceeded, nil), evClose()}, true
	}

	if !c.resolveTopicAlias(pkt) {
		return []Event{evError(ErrProtocolError, wire.ErrTopicAliasOutOfRange), evClose()}, true
	}

	switch qos {
	case wire.QoS1:
		c.inboundInFlight++
		if !c.autoPubResponse {
			return []Event{evReceived(pkt)}, false
		}
		ack, err := c.buildPublishAck(wire.PUBACK, id)
		if err != nil {
			return []Event{evError(ErrMalformedPacket, err), evClose()}, true
		}
		c.inboundInFlight--
		return []Event{evReceived(pkt), ack}, false
	case wire.QoS2:
		c.inboundInFlight++
		c.recvQoS2[id] = struct{}{}
		if !c.autoPubResponse {
			return []Event{evReceived(pkt)}, false
		}
		ack, err := c.buildPublishAck(wire.PUBREC, id)
		if err != nil {
			return []Event{evError(ErrMalformedPacket, err), evClose()}, true
		}
		return []Event{evReceived(pkt), ack}, false
	default: // QoS0
		return []Event{evReceived(pkt)}, false
	}
}

// resolveTopicAlias applies a v5 PUBLISH's TopicAlias property, if any,
// against the receive-side alias table, reports false if the alias is
// 0 or exceeds the TopicAliasMaximum we advertised to the peer.
func (c *Connection) resolveTopicAlias(pkt Packet) bool {
	if c.version != V5_0 {
		return true
	}
	b, ok := pkt.Body.(*wire.PublishPacket)
	if !ok {
		return true
	}
	p := b.Properties.GetProperty(wire.PropTopicAlias)
	if p == nil {
		return true
	}
	alias, ok := p.Value.(uint16)
	if !ok {
		return true
	}
	if alias == 0 || alias > c.topicAliasMaximum {
		return false
	}
	if b.TopicName != "" {
		c.recvAliases.InsertOrUpdate(b.TopicName, alias)
		return true
	}
	if topic, ok := c.recvAliases.Get(alias); ok {
		b.TopicName = topic
	}
	return true
}

func (c *Connection) buildPublishAck(kind wire.PacketType, id uint16) (Event, error) {
	var pkt Packet
	if c.version == V5_0 {
		switch kind {
		case wire.PUBACK:
			pkt = NewPacket(c.version, &wire.PubackPacket{PacketID: id, ReasonCode: wire.ReasonSuccess})
		case wire.PUBREC:
			pkt = NewPacket(c.version, &wire.PubrecPacket{PacketID: id, ReasonCode: wire.ReasonSuccess})
		case wire.PUBCOMP:
			pkt = NewPacket(c.version, &wire.PubcompPacket{PacketID: id, ReasonCode: wire.ReasonSuccess})
		}
	} else {
		switch kind {
		case wire.PUBACK:
			pkt = NewPacket(c.version, &wire.PubackPacket311{PacketID: id})
		case wire.PUBREC:
			pkt = NewPacket(c.version, &wire.PubrecPacket311{PacketID: id})
		case wire.PUBCOMP:
			pkt = NewPacket(c.version, &wire.PubcompPacket311{PacketID: id})
		}
	}
	bytes, err := encode(pkt)
	if err != nil {
		return Event{}, err
	}
	return evSend(pkt, bytes, false), nil
}

func (c *Connection) buildPubrel(id uint16) Packet {
	if c.version == V5_0 {
		return NewPacket(c.version, &wire.PubrelPacket{PacketID: id, ReasonCode: wire.ReasonSuccess})
	}
	return NewPacket(c.version, &wire.PubrelPacket311{PacketID: id})
}

func (c *Connection) handlePuback(pkt Packet) ([]Event, bool) {
	id, _ := pkt.PacketID()
	expected := retransmit.ExpectV3PUBACK
	if c.version == V5_0 {
		expected = retransmit.ExpectV5PUBACK
	}
	if !c.store.Erase(expected, id) {
		return []Event{evError(ErrProtocolError, nil), evClose()}, true
	}
	c.ids.ReleaseID(id)
	return []Event{evReceived(pkt), evIDReleased(id)}, false
}

// handlePubrec converts the stored PUBLISH into a stored PUBREL and
// emits the PUBREL send itself: the sender's half of the QoS 2
// pipeline runs unconditionally, independent of auto-pub-response
// (which only governs the receiver's half).
func (c *Connection) handlePubrec(pkt Packet) ([]Event, bool) {
	id, _ := pkt.PacketID()
	if !c.store.ErasePublish(id) {
		return []Event{evError(ErrProtocolError, nil), evClose()}, true
	}

	pubrel := c.buildPubrel(id)
	expected := retransmit.ExpectV3PUBREL
	if c.version == V5_0 {
		expected = retransmit.ExpectV5PUBREL
	}
	_ = c.store.Add(retransmit.Entry{PacketID: id, Packet: pubrel.Body, Expected: expected})

	bytes, err := encode(pubrel)
	if err != nil {
		return []Event{evError(ErrMalformedPacket, err), evClose()}, true
	}
	return []Event{evSend(pubrel, bytes, false), evReceived(pkt)}, false
}

func (c *Connection) handlePubrel(pkt Packet) ([]Event, bool) {
	id, _ := pkt.PacketID()
	_, known := c.recvQoS2[id]
	delete(c.recvQoS2, id)

	if !known || !c.autoPubResponse {
		return []Event{evReceived(pkt)}, false
	}

	ack, err := c.buildPublishAck(wire.PUBCOMP, id)
	if err != nil {
		return []Event{evError(ErrMalformedPacket, err), evClose()}, true
	}
	if c.inboundInFlight > 0 {
		c.inboundInFlight--
	}
	return []Event{evReceived(pkt), ack}, false
}

func (c *Connection) handlePubcomp(pkt Packet) ([]Event, bool) {
	id, _ := pkt.PacketID()
	expected := retransmit.ExpectV3PUBREL
	if c.version == V5_0 {
		expected = retransmit.ExpectV5PUBREL
	}
	if !c.store.Erase(expected, id) {
		return []Event{evError(ErrProtocolError, nil), evClose()}, true
	}
	c.ids.ReleaseID(id)
	return []Event{evReceived(pkt), evIDReleased(id)}, false
}

func (c *Connection) releasePending(pkt Packet, want PacketTypeForAck) ([]Event, bool) {
	id, _ := pkt.PacketID()
	if got, ok := c.pendingAck[id]; !ok || got != want {
		return []Event{evError(ErrProtocolError, nil), evClose()}, true
	}
	delete(c.pendingAck, id)
	c.ids.ReleaseID(id)
	return []Event{evReceived(pkt), evIDReleased(id)}, false
}

func (c *Connection) handleSubscribe(pkt Packet) ([]Event, bool) {
	if c.role != RoleServer || c.state != StateConnected {
		return []Event{evError(ErrProtocolError, nil), evClose()}, true
	}
	return []Event{evReceived(pkt)}, false
}

func (c *Connection) handleUnsubscribe(pkt Packet) ([]Event, bool) {
	if c.role != RoleServer || c.state != StateConnected {
		return []Event{evError(ErrProtocolError, nil), evClose()}, true
	}
	return []Event{evReceived(pkt)}, false
}

func (c *Connection) handlePingreq(pkt Packet) ([]Event, bool) {
	if c.role != RoleServer || c.state != StateConnected {
		return []Event{evError(ErrProtocolError, nil), evClose()}, true
	}
	resp := NewPacket(c.version, &wire.PingrespPacket{})
	bytes, err := encode(resp)
	if err != nil {
		return []Event{evError(ErrMalformedPacket, err), evClose()}, true
	}
	return []Event{evSend(resp, bytes, false), evReceived(pkt)}, false
}

func (c *Connection) handlePingresp(pkt Packet) ([]Event, bool) {
	if c.role != RoleClient {
		return []Event{evError(ErrProtocolError, nil), evClose()}, true
	}
	return []Event{evReceived(pkt), evTimerCancel(TimerPingrespRecv)}, false
}

func (c *Connection) handleDisconnect(pkt Packet) ([]Event, bool) {
	c.state = StateDisconnecting
	return []Event{evReceived(pkt)}, false
}
