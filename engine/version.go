// Package engine implements the MQTT connection state machine: the
// stateful session layer that sits between the wire codec (package
// wire) and a caller's transport. A Connection is I/O-free — it
// consumes raw bytes and submitted packets and returns a list of
// Events describing what the caller should do next (send bytes, arm a
// timer, surface an error). No entry point blocks, spawns a
// goroutine, or touches a socket.
package engine

import "github.com/mqttproto/core/wire"

// Version identifies the protocol revision a Connection is bound to.
// Unlike wire.ProtocolVersion, it adds Undetermined: the server-only
// placeholder a Connection holds before it has parsed the peer's
// CONNECT packet.
type Version byte

const (
	// Undetermined is the only valid starting version for a
	// server-role Connection. It is never valid for a client.
	Undetermined Version = 0
	V3_1_1       Version = Version(wire.ProtocolVersion311)
	V5_0         Version = Version(wire.ProtocolVersion50)
)

func (v Version) String() string {
	switch v {
	case Undetermined:
		return "undetermined"
	case V3_1_1:
		return "3.1.1"
	case V5_0:
		return "5.0"
	default:
		return "unknown"
	}
}

func (v Version) wire() wire.ProtocolVersion {
	return wire.ProtocolVersion(v)
}

// Role distinguishes which side of the connection a Connection plays.
// The two roles differ in who initiates CONNECT, which side owns
// version binding, and the direction the keep-alive timers run.
type Role byte

const (
	RoleClient Role = iota
	RoleServer
)

// State is the coarse connection lifecycle state shared by both
// roles.
type State byte

const (
	StateDisconnected State = iota
	StateConnectSent         // client: CONNECT sent, CONNACK not yet seen
	StateConnectReceived     // server: CONNECT parsed, CONNACK not yet sent
	StateConnected
	StateDisconnecting
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnectSent:
		return "connect-sent"
	case StateConnectReceived:
		return "connect-received"
	case StateConnected:
		return "connected"
	case StateDisconnecting:
		return "disconnecting"
	default:
		return "unknown"
	}
}
