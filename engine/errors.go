package engine

import "fmt"

// ErrorKind enumerates the terminal, connection-ending error
// conditions the engine can surface through a NotifyError event. Every
// member corresponds to one row of the error table in the design
// document; none of them are recoverable in place (a recoverable
// condition, like an unknown v5 property on receipt, is handled
// silently and never reaches this type).
type ErrorKind byte

const (
	ErrMalformedPacket ErrorKind = iota
	ErrProtocolError
	ErrClientIdentifierNotValid
	ErrPacketIdentifierConflict
	ErrPacketIdentifierFullyUsed
	ErrReceiveMaximumExceeded
	ErrPingrespTimeout
	ErrKeepAliveTimeout
	ErrPacketTypeMismatch
	ErrPacketNotAllowedToSend
)

func (k ErrorKind) String() string {
	switch k {
	case ErrMalformedPacket:
		return "malformed packet"
	case ErrProtocolError:
		return "protocol error"
	case ErrClientIdentifierNotValid:
		return "client identifier not valid"
	case ErrPacketIdentifierConflict:
		return "packet identifier conflict"
	case ErrPacketIdentifierFullyUsed:
		return "packet identifier fully used"
	case ErrReceiveMaximumExceeded:
		return "receive maximum exceeded"
	case ErrPingrespTimeout:
		return "pingresp timeout"
	case ErrKeepAliveTimeout:
		return "keep-alive timeout"
	case ErrPacketTypeMismatch:
		return "packet type mismatch"
	case ErrPacketNotAllowedToSend:
		return "packet not allowed to send"
	default:
		return "unknown error"
	}
}

// MqttError is the payload of a NotifyError event. It is always local
// to the Connection that produced it; nothing about it escapes into
// global state.
type MqttError struct {
	Kind ErrorKind
	Err  error // underlying cause, often a *wire.PacketError; may be nil
}

func (e *MqttError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return e.Kind.String()
}

func (e *MqttError) Unwrap() error {
	return e.Err
}

func newError(kind ErrorKind, err error) *MqttError {
	return &MqttError{Kind: kind, Err: err}
}
