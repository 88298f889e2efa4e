package engine

import (
	"github.com/mqttproto/core/packetid"
	"github.com/mqttproto/core/retransmit"
	"github.com/mqttproto/core/topicalias"
)

// defaultReceiveMaximum matches the MQTT 5.0 default of "no limit
// advertised", modeled here as the full 16-bit range.
const defaultReceiveMaximum = 65535

// Connection is the synchronous MQTT state machine for one network
// connection, playing either the client or the server role. All of its
// methods (CheckedSend, Recv, NotifyTimerFired, NotifyClosed) are
// synchronous, side-effecting, and return the events the caller should
// act on; none of them touch a socket or a clock themselves.
type Connection struct {
	role    Role
	version Version
	state   State

	stream frameReader
	closed bool

	ids   *packetid.Manager
	store *retransmit.Store

	// recvQoS2 is the receive-side "seen exactly once" set: inbound
	// QoS 2 packet IDs between PUBLISH and PUBREL, guarding against a
	// retransmitted PUBLISH being delivered to the application twice.
	recvQoS2 map[uint16]struct{}

	// pendingAck tracks outbound SUBSCRIBE/UNSUBSCRIBE packet IDs not
	// yet acknowledged; the retransmission store is PUBLISH-only; these
	// need a separate lifecycle since SUBACK/UNSUBACK never need
	// replaying verbatim after a reconnect.
	pendingAck map[uint16]PacketTypeForAck

	sendAliases *topicalias.SendCache
	recvAliases *topicalias.RecvTable

	autoPubResponse bool

	pingreqSendIntervalMS int64
	pingrespRecvTimeoutMS int64
	keepAliveSec          uint16

	receiveMaximum     uint16
	peerReceiveMaximum uint16
	inboundInFlight    int
	topicAliasMaximum  uint16
}

// PacketTypeForAck narrows pendingAck's value to the two packet types
// that can occupy it, so a stray PUBACK can't be mistaken for closing
// out a SUBSCRIBE.
type PacketTypeForAck byte

const (
	pendingSubscribe PacketTypeForAck = iota
	pendingUnsubscribe
)

// New creates a Connection in the given role. A client connection must
// be constructed with a bound version (V3_1_1 or V5_0); a server
// connection may start Undetermined, binding to whatever version its
// peer's first CONNECT declares.
func New(role Role, version Version) *Connection {
	if role == RoleClient && version == Undetermined {
		panic("engine: client connection requires a bound protocol version")
	}
	return &Connection{
		role:               role,
		version:            version,
		state:              StateDisconnected,
		ids:                packetid.New(),
		store:              retransmit.New(),
		recvQoS2:           make(map[uint16]struct{}),
		pendingAck:         make(map[uint16]PacketTypeForAck),
		recvAliases:        topicalias.NewRecvTable(0),
		receiveMaximum:     defaultReceiveMaximum,
		peerReceiveMaximum: defaultReceiveMaximum,
	}
}

// SetAutoPubResponse controls whether the engine synthesizes PUBACK /
// PUBREC / PUBCOMP itself upon receiving the corresponding inbound
// publish-flow packet. Off by default; when off, the caller must build
// and submit these via CheckedSend itself.
func (c *Connection) SetAutoPubResponse(enabled bool) {
	c.autoPubResponse = enabled
}

// SetPingreqSendInterval arms the client-side keep-alive send timer at
// the given interval after every successful send other than
// DISCONNECT. A value <= 0
// disables it (the default).
func (c *Connection) SetPingreqSendInterval(ms int64) {
	c.pingreqSendIntervalMS = ms
}

// SetPingrespRecvTimeout sets how long the client waits for a PINGRESP
// after sending a PINGREQ before declaring PingrespTimeout. A value
// <= 0 disables the wait (the default).
func (c *Connection) SetPingrespRecvTimeout(ms int64) {
	c.pingrespRecvTimeoutMS = ms
}

// SetReceiveMaximum sets the cap on simultaneous un-acknowledged
// inbound QoS >= 1 publications this connection will tolerate before
// treating the peer as having violated flow control. Must match
// whatever ReceiveMaximum property the caller advertises in its own
// CONNECT/CONNACK.
func (c *Connection) SetReceiveMaximum(max uint16) {
	if max == 0 {
		max = defaultReceiveMaximum
	}
	c.receiveMaximum = max
}

// SetTopicAliasMaximum sets how many receive-side topic alias bindings
// this connection accepts. Zero (the default) means topic aliases are
// not supported on receipt.
func (c *Connection) SetTopicAliasMaximum(max uint16) {
	c.topicAliasMaximum = max
	c.recvAliases = topicalias.NewRecvTable(max)
}

// State reports the connection's current lifecycle state.
func (c *Connection) State() State { return c.state }

// Version reports the connection's bound protocol version, or
// Undetermined for a server connection that has not yet parsed its
// peer's CONNECT.
func (c *Connection) Version() Version { return c.version }

// TopicAliasSendCache exposes the send-side topic-alias LRU so a
// caller can look up or assign an alias before building an outbound
// PUBLISH; it is nil until the peer has advertised a non-zero
// TopicAliasMaximum.
func (c *Connection) TopicAliasSendCache() *topicalias.SendCache { return c.sendAliases }
