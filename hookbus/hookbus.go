package hookbus

import (
	"sync"
	"sync/atomic"

	"github.com/mqttproto/core/wire"
)

// Event names an observation point a caller's Hook may subscribe to. All
// events are notifications of something that already happened; none can
// veto or mutate the engine's behavior.
type Event byte

const (
	OnPacketReceived Event = iota
	OnPacketSent
	OnError
	OnTimerArmed
	OnTimerCanceled
	OnPacketIDReleased
	OnConnectionClosed
)

func (e Event) String() string {
	names := [...]string{
		"OnPacketReceived",
		"OnPacketSent",
		"OnError",
		"OnTimerArmed",
		"OnTimerCanceled",
		"OnPacketIDReleased",
		"OnConnectionClosed",
	}
	if int(e) < len(names) {
		return names[e]
	}
	return "Unknown"
}

// PacketInfo carries the minimal packet identity a hook needs; it never
// carries a full decoded packet, since a hook is not allowed to mutate one.
type PacketInfo struct {
	ConnectionID string
	Type         wire.PacketType
	PacketID     uint16
}

// Hook observes engine lifecycle events. Every method returns nothing:
// the action has already completed by the time the bus calls it.
type Hook interface {
	// ID returns a unique identifier for this hook.
	ID() string

	// Provides reports whether the hook wants to be notified of event.
	Provides(event Event) bool

	OnPacketReceived(info PacketInfo)
	OnPacketSent(info PacketInfo)
	OnError(connectionID string, err error)
	OnTimerArmed(connectionID string, kind string)
	OnTimerCanceled(connectionID string, kind string)
	OnPacketIDReleased(connectionID string, packetID uint16)
	OnConnectionClosed(connectionID string, err error)
}

// Bus holds an ordered, concurrency-safe list of registered hooks and
// fans engine-derived notifications out to whichever ones subscribed.
// Reads take the copy-on-write snapshot under atomic.Pointer so firing
// an event never blocks on the registration lock.
type Bus struct {
	mu      sync.Mutex
	hooks   atomic.Pointer[[]Hook]
	indexOf map[string]int
}

// NewBus creates an empty hook bus.
func NewBus() *Bus {
	b := &Bus{indexOf: make(map[string]int)}
	empty := make([]Hook, 0)
	b.hooks.Store(&empty)
	return b
}

// Add registers a hook. Returns an error if a hook with the same ID is
// already registered.
func (b *Bus) Add(hook Hook) error {
	if hook == nil {
		return ErrEmptyHookID
	}
	id := hook.ID()
	if id == "" {
		return ErrEmptyHookID
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.indexOf[id]; exists {
		return ErrHookAlreadyExists
	}

	old := *b.hooks.Load()
	next := make([]Hook, len(old)+1)
	copy(next, old)
	next[len(old)] = hook

	b.indexOf[id] = len(old)
	b.hooks.Store(&next)
	return nil
}

// Remove unregisters a hook by ID.
func (b *Bus) Remove(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	idx, exists := b.indexOf[id]
	if !exists {
		return ErrHookNotFound
	}

	old := *b.hooks.Load()
	next := make([]Hook, len(old)-1)
	copy(next[:idx], old[:idx])
	copy(next[idx:], old[idx+1:])

	delete(b.indexOf, id)
	for i := idx; i < len(next); i++ {
		b.indexOf[next[i].ID()] = i
	}

	b.hooks.Store(&next)
	return nil
}

// Count returns the number of registered hooks.
func (b *Bus) Count() int {
	return len(*b.hooks.Load())
}

// FirePacketReceived notifies every hook subscribed to OnPacketReceived.
func (b *Bus) FirePacketReceived(info PacketInfo) {
	for _, h := range *b.hooks.Load() {
		if h.Provides(OnPacketReceived) {
			h.OnPacketReceived(info)
		}
	}
}

// FirePacketSent notifies every hook subscribed to OnPacketSent.
func (b *Bus) FirePacketSent(info PacketInfo) {
	for _, h := range *b.hooks.Load() {
		if h.Provides(OnPacketSent) {
			h.OnPacketSent(info)
		}
	}
}

// FireError notifies every hook subscribed to OnError.
func (b *Bus) FireError(connectionID string, err error) {
	for _, h := range *b.hooks.Load() {
		if h.Provides(OnError) {
			h.OnError(connectionID, err)
		}
	}
}

// FireTimerArmed notifies every hook subscribed to OnTimerArmed.
func (b *Bus) FireTimerArmed(connectionID, kind string) {
	for _, h := range *b.hooks.Load() {
		if h.Provides(OnTimerArmed) {
			h.OnTimerArmed(connectionID, kind)
		}
	}
}

// FireTimerCanceled notifies every hook subscribed to OnTimerCanceled.
func (b *Bus) FireTimerCanceled(connectionID, kind string) {
	for _, h := range *b.hooks.Load() {
		if h.Provides(OnTimerCanceled) {
			h.OnTimerCanceled(connectionID, kind)
		}
	}
}

// FirePacketIDReleased notifies every hook subscribed to OnPacketIDReleased.
func (b *Bus) FirePacketIDReleased(connectionID string, packetID uint16) {
	for _, h := range *b.hooks.Load() {
		if h.Provides(OnPacketIDReleased) {
			h.OnPacketIDReleased(connectionID, packetID)
		}
	}
}

// FireConnectionClosed notifies every hook subscribed to OnConnectionClosed.
func (b *Bus) FireConnectionClosed(connectionID string, err error) {
	for _, h := range *b.hooks.Load() {
		if h.Provides(OnConnectionClosed) {
			h.OnConnectionClosed(connectionID, err)
		}
	}
}
