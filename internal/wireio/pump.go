// Package wireio bridges the I/O-free engine.Connection to a real
// net.Conn: it is the thin, concrete half of the "transports live
// outside the core" boundary the spec draws, trimmed down from the
// teacher's network.Connection/KeepAlive pair to exactly what an
// example caller needs to drive one engine instance over one socket.
// None of this is imported by package engine; an engine never knows
// wireio exists.
package wireio

import (
	"io"
	"net"
	"sync"
	"time"

	"github.com/mqttproto/core/engine"
	"github.com/mqttproto/core/hookbus"
	"github.com/mqttproto/core/mqttlog"
	"github.com/mqttproto/core/mqttmetrics"
)

// readBufferSize is the chunk size fed to engine.Recv per socket read;
// the engine's own stream parser buffers across calls, so this has no
// bearing on correctness, only on read syscall batching.
const readBufferSize = 4096

// Pump serializes every call into one engine.Connection and performs
// the actual socket reads/writes and timer arming the engine's events
// name. All engine entry points are single-threaded by contract; Pump
// is the one place that enforces that by holding mu across every call.
type Pump struct {
	conn net.Conn
	eng  *engine.Connection
	id   string

	hooks   *hookbus.Bus
	metrics *mqttmetrics.Metrics
	log     mqttlog.Logger

	mu     sync.Mutex
	timers [3]*time.Timer // indexed by engine.TimerKind
	closed bool
}

// New wraps conn and eng into a Pump. id identifies the connection to
// hooks and logs (a listener assigns one per accepted socket; a client
// may use its own client ID). hooks, metrics, and log may each be nil;
// a nil value is simply not driven.
func New(conn net.Conn, eng *engine.Connection, id string, hooks *hookbus.Bus, metrics *mqttmetrics.Metrics, log mqttlog.Logger) *Pump {
	return &Pump{conn: conn, eng: eng, id: id, hooks: hooks, metrics: metrics, log: log}
}

// Run blocks reading from conn and feeding bytes to the engine until
// the socket errors, the engine requests a close, or the peer closes
// the connection. It always closes conn before returning.
func (p *Pump) Run() error {
	defer p.shutdown()

	if p.metrics != nil {
		p.metrics.ConnectionOpened()
	}

	buf := make([]byte, readBufferSize)
	for {
		n, err := p.conn.Read(buf)
		if n > 0 {
			if p.metrics != nil {
				p.metrics.BytesReceived.Add(float64(n))
			}
			if perr := p.recv(buf[:n]); perr != nil {
				return perr
			}
		}
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
	}
}

// Send submits pkt to the engine via CheckedSend and drains the
// resulting events through the same dispatch path a received packet's
// events go through.
func (p *Pump) Send(pkt engine.Packet) error {
	p.mu.Lock()
	events := p.eng.CheckedSend(pkt)
	return p.dispatchLocked(events)
}

func (p *Pump) recv(data []byte) error {
	p.mu.Lock()
	events := p.eng.Recv(data)
	return p.dispatchLocked(events)
}

// FireTimer is invoked by the caller's scheduler when a timer the
// engine previously asked for (RequestTimerReset) has expired. A
// caller driving its own clock instead of Pump's built-in time.Timer
// armament can call this directly.
func (p *Pump) FireTimer(kind engine.TimerKind) error {
	p.mu.Lock()
	events := p.eng.NotifyTimerFired(kind)
	return p.dispatchLocked(events)
}

// dispatchLocked applies every event's side effect in order and
// releases mu before returning. It must be called with mu held and
// exactly one engine call already made.
func (p *Pump) dispatchLocked(events []engine.Event) error {
	var requestClose bool
	var sendErr error

	for _, ev := range events {
		switch ev.Kind {
		case engine.EventRequestSendPacket:
			if _, err := p.conn.Write(ev.Bytes); err != nil {
				sendErr = err
				if ev.ReleasePacketIDIfSendError {
					// The engine already transferred the packet ID's
					// ownership into the store on a successful
					// CheckedSend; a write failure here is reported to
					// the caller, who is responsible for tearing the
					// connection down. NotifyClosed does not release
					// the ID; it stays allocated alongside its store
					// entry.
				}
			} else if p.metrics != nil {
				p.metrics.ObservePacketSent(len(ev.Bytes))
			}
			if p.hooks != nil {
				p.hooks.FirePacketSent(hookbus.PacketInfo{ConnectionID: p.id, Type: ev.Packet.Type})
			}
		case engine.EventNotifyPacketReceived:
			if p.metrics != nil {
				p.metrics.ObservePacketReceived(0)
			}
			if p.hooks != nil {
				id, _ := ev.Packet.PacketID()
				p.hooks.FirePacketReceived(hookbus.PacketInfo{ConnectionID: p.id, Type: ev.Packet.Type, PacketID: id})
			}
		case engine.EventNotifyPacketIDReleased:
			if p.hooks != nil {
				p.hooks.FirePacketIDReleased(p.id, ev.PacketID)
			}
		case engine.EventNotifyError:
			if p.metrics != nil {
				p.metrics.ObserveError()
			}
			if p.hooks != nil {
				p.hooks.FireError(p.id, ev.Err)
			}
			if p.log != nil {
				p.log.Warn("mqtt protocol error", "connection", p.id, "error", ev.Err)
			}
		case engine.EventRequestClose:
			requestClose = true
		case engine.EventRequestTimerReset:
			p.armTimer(ev.Timer, ev.DurationMS)
			if p.hooks != nil {
				p.hooks.FireTimerArmed(p.id, ev.Timer.String())
			}
		case engine.EventRequestTimerCancel:
			p.cancelTimer(ev.Timer)
			if p.hooks != nil {
				p.hooks.FireTimerCanceled(p.id, ev.Timer.String())
			}
		}
	}

	p.mu.Unlock()

	if requestClose {
		_ = p.conn.Close()
	}
	return sendErr
}

// armTimer (re)starts the caller-owned clock for kind. It must be
// called with mu held.
func (p *Pump) armTimer(kind engine.TimerKind, durationMS int64) {
	idx := int(kind)
	if idx < 0 || idx >= len(p.timers) {
		return
	}
	if p.timers[idx] != nil {
		p.timers[idx].Stop()
	}
	d := time.Duration(durationMS) * time.Millisecond
	p.timers[idx] = time.AfterFunc(d, func() {
		_ = p.FireTimer(kind)
	})
}

// cancelTimer stops the clock for kind, if armed. It must be called
// with mu held.
func (p *Pump) cancelTimer(kind engine.TimerKind) {
	idx := int(kind)
	if idx < 0 || idx >= len(p.timers) {
		return
	}
	if p.timers[idx] != nil {
		p.timers[idx].Stop()
		p.timers[idx] = nil
	}
}

// shutdown stops every armed timer, tells the engine its transport is
// gone, and dispatches the resulting timer-cancel events. It runs
// exactly once per Pump, from the end of Run.
func (p *Pump) shutdown() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	events := p.eng.NotifyClosed()
	_ = p.dispatchLocked(events)
	_ = p.conn.Close()
	if p.hooks != nil {
		p.hooks.FireConnectionClosed(p.id, nil)
	}
	if p.metrics != nil {
		p.metrics.ConnectionClosed()
	}
}
