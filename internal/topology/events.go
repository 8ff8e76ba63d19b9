package topology

// ComponentEvent is how a PTY session or Packet Observer signals the
// Topology Manager without holding a back-reference to it, per spec.md §9's
// cyclic-ownership note: children get an event channel they can write to,
// not a pointer back up to their owner. Shaped after the teacher's small
// event-struct pattern (network.RouterFrame: {To, From, Frame}).
type ComponentEvent struct {
	Device    string
	Component string // "pty:<channel_id>" or "observer:<iface>"
	Kind      string // pty: "child-eof"; observer: "failed", "restarting", "gave-up"
	Err       error
}

// EventSink is the narrow notification interface eventChan implements.
// ptysession and observer do not use it: they take their own EventFunc
// callbacks, which the Manager wraps to forward into its eventChan, so
// neither package needs to import topology.
type EventSink interface {
	Notify(ComponentEvent)
}

type eventChan chan ComponentEvent

func (c eventChan) Notify(e ComponentEvent) {
	select {
	case c <- e:
	default:
		// best-effort: a full event channel must never block teardown
	}
}
