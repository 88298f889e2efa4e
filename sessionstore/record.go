package sessionstore

import "time"

// Will holds the will message a caller should publish on the peer's behalf
// once a session is abandoned and its delay interval elapses. The engine
// itself never inspects this; it is carried only so a caller can decide
// when to fire it.
type Will struct {
	Topic      string
	Payload    []byte
	QoS        byte
	Retain     bool
	DelaySec   uint32
	Properties map[string]interface{}
}

// Record is the persisted half of session continuity: the state a caller
// needs across a reconnect to decide session_present and to resume
// publishing a will, but not the engine's own in-memory retransmission
// store (that lives in package retransmit and is never written here).
type Record struct {
	ClientID          string
	CleanStart        bool
	AssignedClientID  bool // true if ClientID was server-generated, not client-supplied
	ExpiryIntervalSec uint32
	ProtocolVersion   byte
	Will              *Will
	CreatedAt         time.Time
	LastSeenAt        time.Time
	DisconnectedAt    time.Time
}

// Expired reports whether the record's session-expiry-interval has elapsed
// since the peer disconnected. A zero interval with CleanStart=false means
// the session never expires on its own.
func (r *Record) Expired(now time.Time) bool {
	if r.DisconnectedAt.IsZero() {
		return false
	}
	if r.ExpiryIntervalSec == 0 {
		return r.CleanStart
	}
	return now.Sub(r.DisconnectedAt) > time.Duration(r.ExpiryIntervalSec)*time.Second
}

// ShouldPublishWill reports whether the will delay has elapsed.
func (r *Record) ShouldPublishWill(now time.Time) bool {
	if r.Will == nil || r.DisconnectedAt.IsZero() {
		return false
	}
	if r.Will.DelaySec == 0 {
		return true
	}
	return now.Sub(r.DisconnectedAt) >= time.Duration(r.Will.DelaySec)*time.Second
}

// Touch refreshes LastSeenAt and clears DisconnectedAt, marking the record
// as belonging to a currently-connected client.
func (r *Record) Touch(now time.Time) {
	r.LastSeenAt = now
	r.DisconnectedAt = time.Time{}
}

// MarkDisconnected stamps the moment the owning connection closed.
func (r *Record) MarkDisconnected(now time.Time) {
	r.DisconnectedAt = now
}
