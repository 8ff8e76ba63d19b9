// Package nsmgr owns namespace lifecycles and intra-namespace address/route
// state, per spec.md §4.1. It drives the kernel through
// github.com/vishvananda/netlink and github.com/vishvananda/netns — the
// teacher (David-Antunes/gone) already depends on both transitively through
// its gone-proxy/xdp dependency but never exercises them directly in its own
// tree; this package is where that concern actually lives.
package nsmgr

import (
	"fmt"
	"log"
	"net"
	"os"
	"runtime"
	"sync"

	"github.com/netkit-project/netkit/internal/apierr"
	"github.com/vishvananda/netlink"
	"github.com/vishvananda/netns"
)

var nsLog = log.New(os.Stdout, "NSMGR INFO: ", log.Ltime)

// Manager owns every live Namespace and the global address registry.
type Manager struct {
	mu         sync.Mutex
	namespaces map[string]*Namespace
	addrs      *addressRegistry
}

func NewManager() *Manager {
	return &Manager{
		namespaces: make(map[string]*Namespace),
		addrs:      newAddressRegistry(),
	}
}

// Create materializes a new namespace for device name of the given kind.
// Loopback is brought up; routers get ip_forward=1.
func (m *Manager) Create(name string, kind Kind) (*Namespace, error) {
	if !kind.Valid() {
		return nil, apierr.New(apierr.InvalidArgument, "invalid device kind %q", kind)
	}

	m.mu.Lock()
	if _, exists := m.namespaces[name]; exists {
		m.mu.Unlock()
		return nil, apierr.New(apierr.AlreadyExists, "namespace %q already exists", name)
	}
	m.mu.Unlock()

	nsHdl, handle, err := createNamedHandle(name)
	if err != nil {
		return nil, translateKernelErr(err, "create namespace %q", name)
	}

	ns := &Namespace{
		Name:   name,
		Kind:   kind,
		handle: handle,
		nsHdl:  nsHdl,
		ifaces: make(map[string]*Interface),
		order:  nil,
	}

	lo, err := handle.LinkByName("lo")
	if err != nil {
		handle.Close()
		nsHdl.Close()
		return nil, translateKernelErr(err, "find loopback in %q", name)
	}
	if err := handle.LinkSetUp(lo); err != nil {
		handle.Close()
		nsHdl.Close()
		return nil, translateKernelErr(err, "bring up loopback in %q", name)
	}

	if dispatchForwarding(kind) {
		if err := setForwarding(name, true); err != nil {
			handle.Close()
			nsHdl.Close()
			return nil, err
		}
		ns.forward = true
	}

	m.mu.Lock()
	m.namespaces[name] = ns
	m.mu.Unlock()

	nsLog.Println("created namespace", name, "kind", kind)
	return ns, nil
}

// Destroy removes a namespace and everything the kernel owns inside it.
// Idempotent: destroying an unknown name is a no-op.
func (m *Manager) Destroy(name string) error {
	m.mu.Lock()
	ns, ok := m.namespaces[name]
	if !ok {
		m.mu.Unlock()
		return nil
	}
	delete(m.namespaces, name)
	m.mu.Unlock()

	ns.handle.Close()
	if err := netns.DeleteNamed(name); err != nil {
		nsLog.Println("destroy:", name, err)
	}
	ns.nsHdl.Close()
	m.addrs.releaseAllFor(name)
	nsLog.Println("destroyed namespace", name)
	return nil
}

func (m *Manager) get(name string) (*Namespace, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ns, ok := m.namespaces[name]
	if !ok {
		return nil, apierr.New(apierr.NotFound, "no such device %q", name)
	}
	return ns, nil
}

// AssignAddress assigns addr/prefix to iface on device name. Idempotent if
// the identical assignment already exists; fails AddressConflict if the
// global registry already holds addr elsewhere.
func (m *Manager) AssignAddress(name, iface, addr string, prefix int) error {
	ns, err := m.get(name)
	if err != nil {
		return err
	}

	cidr := fmt.Sprintf("%s/%d", addr, prefix)
	if !m.addrs.reserve(cidr, name, iface) {
		return apierr.New(apierr.AddressConflict, "address %s already assigned elsewhere", addr)
	}

	ns.mu.Lock()
	defer ns.mu.Unlock()
	ifc, ok := ns.ifaces[iface]
	if !ok {
		m.addrs.release(cidr)
		return apierr.New(apierr.NotFound, "no such interface %q on %q", iface, name)
	}
	if ifc.Addr == cidr {
		return nil
	}

	link, err := ns.handle.LinkByName(iface)
	if err != nil {
		m.addrs.release(cidr)
		return translateKernelErr(err, "find interface %q on %q", iface, name)
	}
	nladdr, err := netlink.ParseAddr(cidr)
	if err != nil {
		m.addrs.release(cidr)
		return apierr.New(apierr.InvalidArgument, "invalid address %s/%d: %s", addr, prefix, err)
	}
	if err := ns.handle.AddrAdd(link, nladdr); err != nil {
		m.addrs.release(cidr)
		return translateKernelErr(err, "assign address to %q on %q", iface, name)
	}

	ifc.Addr = cidr
	return nil
}

// SetLinkState toggles an interface up or down.
func (m *Manager) SetLinkState(name, iface string, up bool) error {
	ns, err := m.get(name)
	if err != nil {
		return err
	}
	ns.mu.Lock()
	ifc, ok := ns.ifaces[iface]
	ns.mu.Unlock()
	if !ok {
		return apierr.New(apierr.NotFound, "no such interface %q on %q", iface, name)
	}

	link, err := ns.handle.LinkByName(iface)
	if err != nil {
		return translateKernelErr(err, "find interface %q on %q", iface, name)
	}
	if up {
		err = ns.handle.LinkSetUp(link)
	} else {
		err = ns.handle.LinkSetDown(link)
	}
	if err != nil {
		return translateKernelErr(err, "set link state on %q/%q", name, iface)
	}

	ns.mu.Lock()
	ifc.Up = up
	ns.mu.Unlock()
	return nil
}

// SetDefaultGateway installs gw as the device's default route. Fails
// NoRouteForGateway-equivalent (InvalidArgument, per our taxonomy) unless gw
// is on a subnet one of the device's interfaces already has an address on.
func (m *Manager) SetDefaultGateway(name, gw string) error {
	ns, err := m.get(name)
	if err != nil {
		return err
	}

	ns.mu.Lock()
	var onSubnet bool
	for _, ifc := range ns.ifaces {
		if ifc.Addr == "" {
			continue
		}
		if sameSubnet(ifc.Addr, gw) {
			onSubnet = true
			break
		}
	}
	ns.mu.Unlock()
	if !onSubnet {
		return apierr.New(apierr.InvalidArgument, "gateway %s is not reachable from any interface of %q", gw, name)
	}

	route := &netlink.Route{Gw: net.ParseIP(gw)}
	if err := ns.handle.RouteAdd(route); err != nil {
		return translateKernelErr(err, "add default route on %q", name)
	}

	ns.mu.Lock()
	ns.gateway = gw
	ns.mu.Unlock()
	return nil
}

// EnableForwarding toggles ipv4.ip_forward for the namespace by running
// sysctl inside it (see setForwarding), since netlink does not expose this
// uniformly across kernel versions.
func (m *Manager) EnableForwarding(name string, enabled bool) error {
	ns, err := m.get(name)
	if err != nil {
		return err
	}
	if err := setForwarding(name, enabled); err != nil {
		return err
	}
	ns.mu.Lock()
	ns.forward = enabled
	ns.mu.Unlock()
	return nil
}

// InspectResult is the read-through view spec.md §4.1's inspect returns.
type InspectResult struct {
	Kind       Kind
	Interfaces []Interface
	Routes     []netlink.Route
	ARP        []netlink.Neigh
	Forwarding bool
	Gateway    string
}

func (m *Manager) Inspect(name string) (*InspectResult, error) {
	ns, err := m.get(name)
	if err != nil {
		return nil, err
	}

	routes, err := ns.handle.RouteList(nil, netlink.FAMILY_V4)
	if err != nil {
		return nil, translateKernelErr(err, "list routes on %q", name)
	}
	neigh, err := ns.handle.NeighList(0, netlink.FAMILY_V4)
	if err != nil {
		return nil, translateKernelErr(err, "list arp on %q", name)
	}

	return &InspectResult{
		Kind:       ns.Kind,
		Interfaces: ns.Interfaces(),
		Routes:     routes,
		ARP:        neigh,
		Forwarding: ns.ForwardingEnabled(),
		Gateway:    ns.Gateway(),
	}, nil
}

// registerInterface records a new interface descriptor on ns, assigning the
// next eth<N> name in creation order. Called by linkmgr once it has moved a
// veth end into this namespace.
func (m *Manager) registerInterface(name string) (*Interface, error) {
	ns, err := m.get(name)
	if err != nil {
		return nil, err
	}
	ns.mu.Lock()
	defer ns.mu.Unlock()
	ifaceName := ns.nextIfaceName()
	ifc := &Interface{Name: ifaceName, Failure: make(map[FailureKind]struct{})}
	ns.ifaces[ifaceName] = ifc
	ns.order = append(ns.order, ifaceName)
	return ifc, nil
}

// Handle exposes the raw namespace handle to linkmgr and ptysession, which
// both need to operate (move links, spawn processes) inside a specific
// namespace without nsmgr mediating every call.
func (m *Manager) Handle(name string) (*netlink.Handle, netns.NsHandle, error) {
	ns, err := m.get(name)
	if err != nil {
		return nil, 0, err
	}
	return ns.handle, ns.nsHdl, nil
}

// RegisterInterface is the exported form of registerInterface, used by
// linkmgr after attaching a veth end.
func (m *Manager) RegisterInterface(name string) (*Interface, error) {
	return m.registerInterface(name)
}

// UnregisterInterface drops iface from name's interface table and releases
// its address from the global registry, if it held one. Called by linkmgr
// when a link tears down, so inspect/snapshot stop reporting the interface
// and a later add_link on the same device doesn't hit a stale AddressConflict
// (spec.md §8's add_link/remove_link round-trip law). Idempotent.
func (m *Manager) UnregisterInterface(name, iface string) error {
	ns, err := m.get(name)
	if err != nil {
		return err
	}
	addr, ok := ns.unregisterInterface(iface)
	if !ok {
		return nil
	}
	if addr != "" {
		m.addrs.release(addr)
	}
	return nil
}

func createNamedHandle(name string) (netns.NsHandle, *netlink.Handle, error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	origin, err := netns.Get()
	if err != nil {
		return 0, nil, err
	}
	defer netns.Set(origin)
	defer origin.Close()

	newNs, err := netns.NewNamed(name)
	if err != nil {
		return 0, nil, err
	}

	handle, err := netlink.NewHandleAt(newNs)
	if err != nil {
		newNs.Close()
		return 0, nil, err
	}
	return newNs, handle, nil
}

func translateKernelErr(err error, format string, args ...any) error {
	if os.IsPermission(err) {
		return apierr.New(apierr.Privilege, format, args...)
	}
	return apierr.New(apierr.KernelError, fmt.Sprintf(format, args...)+": "+err.Error())
}

func sameSubnet(cidr, ip string) bool {
	var a1, a2, a3, a4, prefix int
	fmt.Sscanf(cidr, "%d.%d.%d.%d/%d", &a1, &a2, &a3, &a4, &prefix)
	var b1, b2, b3, b4 int
	fmt.Sscanf(ip, "%d.%d.%d.%d", &b1, &b2, &b3, &b4)
	if prefix >= 24 {
		return a1 == b1 && a2 == b2 && a3 == b3
	}
	return a1 == b1 && a2 == b2
}
