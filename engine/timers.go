package engine

import "github.com/mqttproto/core/wire"

// NotifyTimerFired processes the expiry of a timer previously armed by
// a RequestTimerReset event. Both peer-facing timeouts are terminal:
// they end the connection.
func (c *Connection) NotifyTimerFired(kind TimerKind) []Event {
	switch kind {
	case TimerPingreqSend:
		return c.firePingreqSend()
	case TimerPingrespRecv:
		c.closed = true
		return []Event{evError(ErrPingrespTimeout, nil), evClose()}
	case TimerPingreqRecv:
		c.closed = true
		return []Event{evError(ErrKeepAliveTimeout, nil), evClose()}
	default:
		return nil
	}
}

func (c *Connection) firePingreqSend() []Event {
	if c.role != RoleClient || c.state != StateConnected {
		return nil
	}
	pkt := NewPacket(c.version, &wire.PingreqPacket{})
	bytes, err := encode(pkt)
	if err != nil {
		c.closed = true
		return []Event{evError(ErrMalformedPacket, err), evClose()}
	}

	events := []Event{evSend(pkt, bytes, false)}
	if c.pingrespRecvTimeoutMS > 0 {
		events = append(events, evTimerReset(TimerPingrespRecv, c.pingrespRecvTimeoutMS))
	}
	return events
}

// NotifyClosed tells the connection its transport has gone away. It
// cancels every timer its role may have armed, in the order the caller
// should issue the cancellations, and marks the connection unusable.
func (c *Connection) NotifyClosed() []Event {
	var events []Event
	if c.role == RoleClient {
		events = append(events, evTimerCancel(TimerPingreqSend), evTimerCancel(TimerPingrespRecv))
	} else {
		events = append(events, evTimerCancel(TimerPingreqRecv))
	}
	c.state = StateDisconnected
	c.closed = true
	return events
}
