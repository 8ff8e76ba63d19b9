package linkmgr

import (
	"log"
	"os"
	"sync"

	"github.com/netkit-project/netkit/internal/apierr"
	"github.com/netkit-project/netkit/internal/nsmgr"
	"github.com/vishvananda/netlink"
)

var linkLog = log.New(os.Stdout, "LINKMGR INFO: ", log.Ltime)

// Manager owns every live veth pair and bridge, per spec.md §4.2.
type Manager struct {
	ns      *nsmgr.Manager
	root    *netlink.Handle
	bridges *bridgeRegistry

	mu    sync.Mutex
	links map[string]*VethPair
}

// VethPair is the live record for one Link, per spec.md §3: "exactly one
// veth pair per link."
type VethPair struct {
	ID         string
	HostA      string
	HostB      string
	DevA       string
	IfaceA     string
	DevB       string
	IfaceB     string
	Switched   bool
	ShaperA    *Shaper
	ShaperB    *Shaper
}

func NewManager(ns *nsmgr.Manager) (*Manager, error) {
	root, err := netlink.NewHandle()
	if err != nil {
		return nil, apierr.New(apierr.KernelError, "open root netlink handle: %s", err)
	}
	return &Manager{
		ns:      ns,
		root:    root,
		bridges: newBridgeRegistry(),
		links:   make(map[string]*VethPair),
	}, nil
}

// CreateP2P materializes a veth pair between two non-switch devices and
// optionally shapes both ends identically, per spec.md §4.2.
func (m *Manager) CreateP2P(linkID, devA, devB string, shaping *ShapingParams) (*VethPair, error) {
	hostA, hostB := hostVethName(), hostVethName()
	veth := &netlink.Veth{LinkAttrs: netlink.LinkAttrs{Name: hostA}, PeerName: hostB}
	if err := m.root.LinkAdd(veth); err != nil {
		return nil, apierr.New(apierr.KernelError, "create veth pair: %s", err)
	}

	pair, err := m.moveAndFinalize(linkID, hostA, hostB, devA, devB, false, shaping)
	if err != nil {
		handleA, _, _ := m.ns.Handle(devA)
		handleB, _, _ := m.ns.Handle(devB)
		m.rollbackVeth(hostA, handleA, handleB)
		return nil, err
	}

	m.mu.Lock()
	m.links[linkID] = pair
	m.mu.Unlock()
	linkLog.Println("created p2p link", linkID, "between", devA, "and", devB)
	return pair, nil
}

// CreateSwitched materializes a veth pair where one end attaches to
// bridgeDev's bridge and the other moves into endpointDev's namespace.
func (m *Manager) CreateSwitched(linkID, bridgeDev, endpointDev string, shaping *ShapingParams) (*VethPair, error) {
	hostBridge, hostEndpoint := hostVethName(), hostVethName()
	veth := &netlink.Veth{LinkAttrs: netlink.LinkAttrs{Name: hostBridge}, PeerName: hostEndpoint}
	if err := m.root.LinkAdd(veth); err != nil {
		return nil, apierr.New(apierr.KernelError, "create veth pair: %s", err)
	}

	pair, err := m.moveAndFinalize(linkID, hostBridge, hostEndpoint, bridgeDev, endpointDev, true, shaping)
	if err != nil {
		handleBridge, _, _ := m.ns.Handle(bridgeDev)
		handleEndpoint, _, _ := m.ns.Handle(endpointDev)
		m.rollbackVeth(hostBridge, handleBridge, handleEndpoint)
		return nil, err
	}

	m.mu.Lock()
	m.links[linkID] = pair
	m.mu.Unlock()
	linkLog.Println("created switched link", linkID, "bridge", bridgeDev, "endpoint", endpointDev)
	return pair, nil
}

func (m *Manager) moveAndFinalize(linkID, hostA, hostB, devA, devB string, switched bool, shaping *ShapingParams) (*VethPair, error) {
	linkA, err := m.root.LinkByName(hostA)
	if err != nil {
		return nil, apierr.New(apierr.KernelError, "find %s: %s", hostA, err)
	}
	linkB, err := m.root.LinkByName(hostB)
	if err != nil {
		return nil, apierr.New(apierr.KernelError, "find %s: %s", hostB, err)
	}

	_, nsA, err := m.ns.Handle(devA)
	if err != nil {
		return nil, err
	}
	_, nsB, err := m.ns.Handle(devB)
	if err != nil {
		return nil, err
	}

	if err := m.root.LinkSetNsFd(linkA, int(nsA)); err != nil {
		return nil, apierr.New(apierr.KernelError, "move %s into %s: %s", hostA, devA, err)
	}
	if err := m.root.LinkSetNsFd(linkB, int(nsB)); err != nil {
		return nil, apierr.New(apierr.KernelError, "move %s into %s: %s", hostB, devB, err)
	}

	var ifaceA, ifaceB string
	var shaperA, shaperB *Shaper

	if switched {
		ifaceA = hostA // bridge-side end keeps its host-visible name, no eth<N>
		handleBr, brLink, err := m.bridgeLink(devA)
		if err != nil {
			return nil, err
		}
		linkAinNs, err := handleBr.LinkByName(hostA)
		if err != nil {
			return nil, apierr.New(apierr.KernelError, "find moved %s in %s: %s", hostA, devA, err)
		}
		if err := handleBr.LinkSetMaster(linkAinNs, brLink); err != nil {
			return nil, apierr.New(apierr.KernelError, "attach %s to bridge: %s", hostA, err)
		}
		if err := handleBr.LinkSetUp(linkAinNs); err != nil {
			return nil, apierr.New(apierr.KernelError, "bring up %s: %s", hostA, err)
		}
		shaperA = newShaper(handleBr, linkAinNs.Attrs().Index)
	} else {
		ifc, err := m.ns.RegisterInterface(devA)
		if err != nil {
			return nil, err
		}
		ifaceA = ifc.Name
		handleA, _, err := m.ns.Handle(devA)
		if err != nil {
			return nil, err
		}
		linkAinNs, err := handleA.LinkByName(hostA)
		if err != nil {
			return nil, apierr.New(apierr.KernelError, "find moved %s in %s: %s", hostA, devA, err)
		}
		if err := handleA.LinkSetName(linkAinNs, ifaceA); err != nil {
			return nil, apierr.New(apierr.KernelError, "rename %s to %s: %s", hostA, ifaceA, err)
		}
		linkAinNs, err = handleA.LinkByName(ifaceA)
		if err != nil {
			return nil, apierr.New(apierr.KernelError, "find renamed %s in %s: %s", ifaceA, devA, err)
		}
		if err := handleA.LinkSetUp(linkAinNs); err != nil {
			return nil, apierr.New(apierr.KernelError, "bring up %s: %s", ifaceA, err)
		}
		shaperA = newShaper(handleA, linkAinNs.Attrs().Index)
	}

	ifcB, err := m.ns.RegisterInterface(devB)
	if err != nil {
		return nil, err
	}
	ifaceB = ifcB.Name
	handleB, _, err := m.ns.Handle(devB)
	if err != nil {
		return nil, err
	}
	linkBinNs, err := handleB.LinkByName(hostB)
	if err != nil {
		return nil, apierr.New(apierr.KernelError, "find moved %s in %s: %s", hostB, devB, err)
	}
	if err := handleB.LinkSetName(linkBinNs, ifaceB); err != nil {
		return nil, apierr.New(apierr.KernelError, "rename %s to %s: %s", hostB, ifaceB, err)
	}
	linkBinNs, err = handleB.LinkByName(ifaceB)
	if err != nil {
		return nil, apierr.New(apierr.KernelError, "find renamed %s in %s: %s", ifaceB, devB, err)
	}
	if err := handleB.LinkSetUp(linkBinNs); err != nil {
		return nil, apierr.New(apierr.KernelError, "bring up %s: %s", ifaceB, err)
	}
	shaperB = newShaper(handleB, linkBinNs.Attrs().Index)

	if shaping != nil {
		if err := shaperA.Apply(*shaping); err != nil {
			return nil, err
		}
		if err := shaperB.Apply(*shaping); err != nil {
			return nil, err
		}
	}

	return &VethPair{
		ID: linkID, HostA: hostA, HostB: hostB,
		DevA: devA, IfaceA: ifaceA, DevB: devB, IfaceB: ifaceB,
		Switched: switched, ShaperA: shaperA, ShaperB: shaperB,
	}, nil
}

// rollbackVeth deletes a half-created veth end after a failed
// moveAndFinalize. By the time this runs, LinkSetNsFd may already have moved
// the end out of the root namespace and into one of the two device
// namespaces the move was headed for, so root alone isn't enough to find
// it — try root first, then each namespace handle the end may have landed
// in. Deleting either end of a veth pair deletes both, so finding one end
// is sufficient.
func (m *Manager) rollbackVeth(name string, handles ...*netlink.Handle) {
	if link, err := m.root.LinkByName(name); err == nil {
		_ = m.root.LinkDel(link)
		return
	}
	for _, h := range handles {
		if h == nil {
			continue
		}
		if link, err := h.LinkByName(name); err == nil {
			_ = h.LinkDel(link)
			return
		}
	}
}

// UpdateShaping replaces the qdisc on the given side ("a" or "b") of linkID.
func (m *Manager) UpdateShaping(linkID, side string, params ShapingParams) error {
	m.mu.Lock()
	pair, ok := m.links[linkID]
	m.mu.Unlock()
	if !ok {
		return apierr.New(apierr.NotFound, "no such link %q", linkID)
	}
	switch side {
	case "a":
		return pair.ShaperA.Apply(params)
	case "b":
		return pair.ShaperB.Apply(params)
	default:
		return apierr.New(apierr.InvalidArgument, "side must be \"a\" or \"b\", got %q", side)
	}
}

// Destroy removes a link's qdiscs and veth pair; idempotent.
func (m *Manager) Destroy(linkID string) error {
	m.mu.Lock()
	pair, ok := m.links[linkID]
	delete(m.links, linkID)
	m.mu.Unlock()
	if !ok {
		return nil
	}

	_ = pair.ShaperA.Close()
	_ = pair.ShaperB.Close()

	handleA, _, err := m.ns.Handle(pair.DevA)
	if err == nil {
		if name := pair.IfaceA; name != "" {
			if link, err := handleA.LinkByName(name); err == nil {
				_ = handleA.LinkDel(link)
			}
		}
	}

	// The bridge-side end of a switched link was never registered as an
	// eth<N> interface (it keeps its host-visible veth name, attached
	// straight to the bridge), so only the endpoint side needs unregistering
	// there; a plain point-to-point link registered both ends.
	if !pair.Switched {
		_ = m.ns.UnregisterInterface(pair.DevA, pair.IfaceA)
	}
	_ = m.ns.UnregisterInterface(pair.DevB, pair.IfaceB)

	linkLog.Println("destroyed link", linkID)
	return nil
}

func (m *Manager) Get(linkID string) (*VethPair, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pair, ok := m.links[linkID]
	return pair, ok
}
