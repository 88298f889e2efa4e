// Package packetid manages the pool of in-flight MQTT packet
// identifiers for one connection. It is a thin wrapper over
// alloc.Allocator16: packet IDs are always a 16-bit, non-zero value
// (MQTT-2.2.1-3).
package packetid

import "github.com/mqttproto/core/alloc"

// Manager owns the set of packet IDs currently in flight on one
// connection. It is not safe for concurrent use; the engine that owns
// it already guarantees single-threaded access.
type Manager struct {
	alloc *alloc.Allocator16
}

// New creates a packet-ID manager over the full 16-bit non-zero range
// [1, 65535].
func New() *Manager {
	return &Manager{alloc: alloc.NewAllocator16(1, 65535)}
}

// AcquireUniqueID hands out the lowest unused packet ID. Returns false
// if every ID is currently in flight.
func (m *Manager) AcquireUniqueID() (uint16, bool) {
	return m.alloc.Allocate()
}

// RegisterID reserves a caller-chosen packet ID, for the case where
// the caller presents a pre-chosen ID rather than asking the manager
// to pick one. Returns false if id was already in use.
func (m *Manager) RegisterID(id uint16) bool {
	if id == 0 {
		return false
	}
	return m.alloc.UseValue(id)
}

// ReleaseID returns id to the pool. It must be called exactly once per
// acquired or registered ID, when its terminal response arrives or the
// session holding it is discarded.
func (m *Manager) ReleaseID(id uint16) {
	if id == 0 {
		return
	}
	m.alloc.Deallocate(id)
}

// IsUsedID reports whether id is currently in flight.
func (m *Manager) IsUsedID(id uint16) bool {
	if id == 0 {
		return false
	}
	return m.alloc.IsUsed(id)
}

// Clear releases every in-flight ID at once, used when a session is
// discarded without a clean reconnect-with-session.
func (m *Manager) Clear() {
	m.alloc.Clear()
}
