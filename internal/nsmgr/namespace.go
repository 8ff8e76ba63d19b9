package nsmgr

import (
	"sync"

	"github.com/vishvananda/netlink"
	"github.com/vishvananda/netns"
)

// Interface is one of a Namespace's interface descriptors, per spec.md §3.
type Interface struct {
	Name    string
	Addr    string // CIDR, e.g. "10.0.1.1/24", empty if unassigned
	Up      bool
	Failure map[FailureKind]struct{}
}

// FailureKind names the failures nsmgr itself is responsible for realizing
// (the rest live in linkmgr): interface_down targets one interface,
// block_icmp and silent_router apply to the whole device. See spec.md §4.6.
type FailureKind string

const (
	FailureInterfaceDown FailureKind = "interface_down"
	FailureBlockICMP     FailureKind = "block_icmp"
	FailureSilentRouter  FailureKind = "silent_router"
)

// Namespace is the live kernel-backed handle for one Device's backing
// network namespace, plus the bookkeeping nsmgr needs to drive cleanup.
type Namespace struct {
	mu sync.Mutex

	Name    string
	Kind    Kind
	handle  *netlink.Handle
	nsHdl   netns.NsHandle
	ifaces    map[string]*Interface
	order     []string // insertion order, for "ordered sequence" in spec.md §3
	nextIndex int      // monotonic; never rewound by unregisterInterface, so a
	// freed "eth0" is never reissued to a later, unrelated interface
	gateway string
	forward bool
}

func (ns *Namespace) nextIfaceName() string {
	name := "eth" + itoa(ns.nextIndex)
	ns.nextIndex++
	return name
}

// unregisterInterface drops iface's descriptor and returns the CIDR address
// it held, if any, so the caller can release it from the global address
// registry. Called when a link tears down; idempotent (false if iface is
// already gone).
func (ns *Namespace) unregisterInterface(iface string) (addr string, ok bool) {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	ifc, exists := ns.ifaces[iface]
	if !exists {
		return "", false
	}
	addr = ifc.Addr
	delete(ns.ifaces, iface)
	for i, name := range ns.order {
		if name == iface {
			ns.order = append(ns.order[:i], ns.order[i+1:]...)
			break
		}
	}
	return addr, true
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

// Interfaces returns a snapshot of the namespace's interfaces in creation order.
func (ns *Namespace) Interfaces() []Interface {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	out := make([]Interface, 0, len(ns.order))
	for _, name := range ns.order {
		out = append(out, *ns.ifaces[name])
	}
	return out
}

func (ns *Namespace) ForwardingEnabled() bool {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	return ns.forward
}

func (ns *Namespace) Gateway() string {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	return ns.gateway
}
