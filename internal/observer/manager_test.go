package observer

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSubscribeReceivesBroadcast(t *testing.T) {
	m := NewManager([]time.Duration{100 * time.Millisecond}, 3)
	ch, _, cancel := m.Subscribe(4)
	defer cancel()

	ev := PacketEvent{Device: "h1", Iface: "veth0", Protocol: TCP}
	m.broadcast(ev)

	select {
	case got := <-ch:
		assert.Equal(t, ev, got)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for broadcast")
	}
}

func TestSubscribeOverflowEvictsOldestAndCountsDrop(t *testing.T) {
	m := NewManager([]time.Duration{100 * time.Millisecond}, 3)
	ch, dropped, cancel := m.Subscribe(1)
	defer cancel()

	m.broadcast(PacketEvent{Summary: "first"})
	m.broadcast(PacketEvent{Summary: "second"}) // evicts "first"

	got := <-ch
	assert.Equal(t, "second", got.Summary)
	assert.Equal(t, uint64(1), atomic.LoadUint64(dropped))

	select {
	case <-ch:
		t.Fatal("expected no further event")
	default:
	}
}

func TestCancelClosesChannel(t *testing.T) {
	m := NewManager(nil, 3)
	ch, _, cancel := m.Subscribe(1)
	cancel()

	_, ok := <-ch
	assert.False(t, ok)
}

func TestDetachAllForUnknownDeviceIsNoop(t *testing.T) {
	m := NewManager(nil, 3)
	assert.NotPanics(t, func() { m.DetachAllFor("nope") })
}
