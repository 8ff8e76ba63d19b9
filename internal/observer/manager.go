package observer

import (
	"sync"
	"sync/atomic"
	"time"
)

// Manager owns one observer per (device, iface) and fans captured packets
// out to every current subscriber through a single global fan-out, per
// spec.md §4.5. Each subscriber has a bounded queue; a full queue never
// blocks the fan-out and never drops the subscriber (see broadcast).
type Manager struct {
	backoff     []time.Duration
	maxRestarts int

	mu        sync.Mutex
	observers map[string]*observer

	subMu  sync.Mutex
	subs   map[int]*subscriber
	nextID int
}

// subscriber is one packet-stream consumer's bounded queue plus its running
// count of events evicted for overflow, per spec.md §5's "dropped"
// heartbeat field.
type subscriber struct {
	ch      chan PacketEvent
	dropped uint64
}

func NewManager(backoff []time.Duration, maxRestarts int) *Manager {
	return &Manager{
		backoff:     backoff,
		maxRestarts: maxRestarts,
		observers:   make(map[string]*observer),
		subs:        make(map[int]*subscriber),
	}
}

func obsKey(device, iface string) string { return device + "/" + iface }

// Attach starts capturing on a newly created interface. Idempotent: a
// duplicate attach for the same (device, iface) is a no-op.
func (m *Manager) Attach(device, iface string, onEvent EventFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := obsKey(device, iface)
	if _, exists := m.observers[k]; exists {
		return
	}
	o := newObserver(device, iface, m.backoff, m.maxRestarts, onEvent, m.broadcast)
	m.observers[k] = o
	o.start()
}

// Detach stops capturing on one interface.
func (m *Manager) Detach(device, iface string) {
	m.mu.Lock()
	k := obsKey(device, iface)
	o, ok := m.observers[k]
	if ok {
		delete(m.observers, k)
	}
	m.mu.Unlock()
	if ok {
		o.stop()
	}
}

// DetachAllFor stops every observer belonging to a device, used during
// device teardown.
func (m *Manager) DetachAllFor(device string) {
	m.mu.Lock()
	var victims []*observer
	for k, o := range m.observers {
		if o.device == device {
			victims = append(victims, o)
			delete(m.observers, k)
		}
	}
	m.mu.Unlock()
	for _, o := range victims {
		o.stop()
	}
}

// Subscribe registers a new packet stream consumer with a bounded queue.
// The returned *uint64 is the subscriber's live dropped-event counter (read
// it with atomic.LoadUint64); the returned cancel func must be called to
// release the subscription.
func (m *Manager) Subscribe(bufSize int) (<-chan PacketEvent, *uint64, func()) {
	m.subMu.Lock()
	id := m.nextID
	m.nextID++
	sub := &subscriber{ch: make(chan PacketEvent, bufSize)}
	m.subs[id] = sub
	m.subMu.Unlock()

	cancel := func() {
		m.subMu.Lock()
		defer m.subMu.Unlock()
		if s, ok := m.subs[id]; ok {
			delete(m.subs, id)
			close(s.ch)
		}
	}
	return sub.ch, &sub.dropped, cancel
}

// broadcast pushes ev to every subscriber's queue. A full queue evicts its
// oldest event (rather than discarding ev, the newest) and counts the
// eviction, per spec.md §5: "on overflow, the oldest events are discarded
// and a counter increments."
func (m *Manager) broadcast(ev PacketEvent) {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	for _, s := range m.subs {
		select {
		case s.ch <- ev:
			continue
		default:
		}

		select {
		case <-s.ch:
			atomic.AddUint64(&s.dropped, 1)
		default:
			// a concurrent receiver just emptied a slot; nothing to evict.
		}
		select {
		case s.ch <- ev:
		default:
			// zero-capacity queue: ev itself never fits.
			atomic.AddUint64(&s.dropped, 1)
		}
	}
}
