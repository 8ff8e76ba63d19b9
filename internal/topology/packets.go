package topology

import "github.com/netkit-project/netkit/internal/observer"

// SubscribePackets joins the single global packet fan-out, per spec.md
// §4.7: "packet events from every Observer feed a single global fan-out
// used by all packet subscribers." The returned *uint64 is the
// subscription's live dropped-event counter, read with atomic.LoadUint64,
// per spec.md §5's "dropped" heartbeat field.
func (m *Manager) SubscribePackets(bufSize int) (<-chan observer.PacketEvent, *uint64, func()) {
	return m.obs.Subscribe(bufSize)
}
