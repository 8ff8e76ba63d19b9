// Package topology is the Topology Manager of spec.md §4.3: the single
// component that owns Devices and Links and coordinates the Namespace
// Manager, Link Manager, PTY Session Manager, and Packet Observer beneath
// it.
//
// Grounded on the teacher's (David-Antunes/gone) internal/topology +
// internal/application pairing — a manager type that holds every live
// node/link and mediates every mutation — collapsed here into one package
// since this server has no separate "application service" layer.
package topology

import (
	"context"
	"log"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/netkit-project/netkit/internal/apierr"
	"github.com/netkit-project/netkit/internal/config"
	"github.com/netkit-project/netkit/internal/linkmgr"
	"github.com/netkit-project/netkit/internal/nsmgr"
	"github.com/netkit-project/netkit/internal/observer"
	"github.com/netkit-project/netkit/internal/ptysession"
)

// checkDeadline reports ctx's expiry as apierr.Timeout, the error kind the
// control layer maps to a deadline-exceeded response, per spec.md §5:
// "every control operation accepts a deadline (default 10s). On deadline
// expiry the operation aborts and any partial kernel state is rolled back."
func checkDeadline(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return apierr.New(apierr.Timeout, "operation exceeded its deadline")
	}
	return nil
}

var topoLog = log.New(os.Stdout, "TOPOLOGY INFO: ", log.Ltime)

// Manager is the single owner of every Device and Link, per spec.md §4.3.
type Manager struct {
	cfg *config.Config

	ns    *nsmgr.Manager
	links *linkmgr.Manager
	subs  *SubnetAllocator
	locks *deviceLocks
	pty   *ptysession.Manager
	obs   *observer.Manager

	events eventChan

	mu        sync.Mutex
	devices   map[string]*Device
	linksByID map[string]*Link
}

// NewManager wires every lower layer together using cfg, per spec.md §4.3.
func NewManager(cfg *config.Config) (*Manager, error) {
	ns := nsmgr.NewManager()
	lm, err := linkmgr.NewManager(ns)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		cfg:       cfg,
		ns:        ns,
		links:     lm,
		subs:      NewSubnetAllocator(),
		locks:     newDeviceLocks(),
		pty:       ptysession.NewManager(cfg.Shell, cfg.PTYGracePeriod, cfg.PTYCloseGrace, cfg.PTYOutputBufferSize),
		obs:       observer.NewManager(cfg.ObserverBackoff, cfg.ObserverMaxRestarts),
		events:    make(eventChan, 256),
		devices:   make(map[string]*Device),
		linksByID: make(map[string]*Link),
	}
	go m.drainEvents()
	return m, nil
}

// Events exposes the read side of the component event stream, e.g. for a
// control-server diagnostics endpoint.
func (m *Manager) Events() <-chan ComponentEvent { return m.events }

func (m *Manager) drainEvents() {
	for ev := range m.events {
		if ev.Err != nil {
			topoLog.Printf("component event: device=%s component=%s kind=%s err=%v", ev.Device, ev.Component, ev.Kind, ev.Err)
		} else {
			topoLog.Printf("component event: device=%s component=%s kind=%s", ev.Device, ev.Component, ev.Kind)
		}
	}
}

func (m *Manager) ptyEventFunc(device string) ptysession.EventFunc {
	return func(dev, channelID, kind string, err error) {
		m.events.Notify(ComponentEvent{Device: dev, Component: "pty:" + channelID, Kind: kind, Err: err})
	}
}

func (m *Manager) obsEventFunc() observer.EventFunc {
	return func(dev, iface, kind string, err error) {
		m.events.Notify(ComponentEvent{Device: dev, Component: "observer:" + iface, Kind: kind, Err: err})
	}
}

// AddDevice creates a namespace-backed Device and pre-spawns its default
// PTY session, per spec.md §4.3. ctx bounds the whole operation; expiry
// between steps rolls back whatever this call already created.
func (m *Manager) AddDevice(ctx context.Context, name string, kind DeviceKind, x, y float64) (*Device, error) {
	unlock := m.locks.lockBoth(name, name)
	defer unlock()

	m.mu.Lock()
	if _, exists := m.devices[name]; exists {
		m.mu.Unlock()
		return nil, apierr.New(apierr.AlreadyExists, "device %q already exists", name)
	}
	m.mu.Unlock()

	if err := checkDeadline(ctx); err != nil {
		return nil, err
	}
	if _, err := m.ns.Create(name, kind); err != nil {
		return nil, err
	}

	if err := checkDeadline(ctx); err != nil {
		_ = m.ns.Destroy(name)
		return nil, err
	}
	if _, err := m.pty.Open(name, "default", 24, 80, m.ptyEventFunc(name)); err != nil {
		_ = m.ns.Destroy(name)
		return nil, err
	}

	if err := checkDeadline(ctx); err != nil {
		m.pty.CloseAllFor(name)
		_ = m.ns.Destroy(name)
		return nil, err
	}

	dev := &Device{
		Name:       name,
		Kind:       kind,
		Position:   Position{X: x, Y: y},
		CreatedAt:  time.Now(),
		Failures:   make(map[FailureSpec]struct{}),
		ifaceLinks: make(map[string]ifaceRef),
	}

	m.mu.Lock()
	m.devices[name] = dev
	m.mu.Unlock()

	topoLog.Println("added device", name, "kind", kind)
	return dev, nil
}

// RemoveDevice tears down dependent links first, then PTY sessions and
// observers, then the namespace itself, per spec.md §4.3. Idempotent.
//
// Teardown has no natural "rollback" — once a step deletes kernel state
// there's nothing to restore it to short of recreating the device — so ctx
// is only checked before any work starts: an already-expired deadline
// aborts cleanly with nothing touched, but once removal begins it always
// runs to completion, matching spec.md §8's "no leaked namespaces or veth
// interfaces" invariant rather than abandoning a device half-deleted.
func (m *Manager) RemoveDevice(ctx context.Context, name string) error {
	if err := checkDeadline(ctx); err != nil {
		return err
	}

	unlock := m.locks.lockBoth(name, name)
	defer unlock()

	m.mu.Lock()
	dev, ok := m.devices[name]
	m.mu.Unlock()
	if !ok {
		return nil
	}

	for _, ref := range m.linksOwnedBy(name) {
		if err := m.removeLinkLocked(ref); err != nil {
			return err
		}
	}

	m.pty.CloseAllFor(name)
	m.obs.DetachAllFor(name)

	if dev.Kind == Switch {
		m.subs.ReleaseSwitchSubnet(name)
		_ = m.links.DestroyBridge(name)
	}

	if err := m.ns.Destroy(name); err != nil {
		return err
	}

	m.mu.Lock()
	delete(m.devices, name)
	m.mu.Unlock()
	m.locks.remove(name)

	topoLog.Println("removed device", name)
	return nil
}

func (m *Manager) linksOwnedBy(device string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for id, l := range m.linksByID {
		if l.DevA == device || l.DevB == device {
			ids = append(ids, id)
		}
	}
	return ids
}

// AddLink allocates the next subnet, creates the veth pair (direct or
// switch-bridged, per decideLinkRoles), assigns addresses, and records the
// link, per spec.md §4.3. ctx bounds the whole operation; expiry between
// steps rolls back whatever this call already allocated.
func (m *Manager) AddLink(ctx context.Context, devA, devB string, latencyMS uint32, bandwidthMbps uint32, lossPct float64) (*Link, error) {
	unlock := m.locks.lockBoth(devA, devB)
	defer unlock()

	if err := checkDeadline(ctx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	da, okA := m.devices[devA]
	db, okB := m.devices[devB]
	m.mu.Unlock()
	if !okA {
		return nil, apierr.New(apierr.NotFound, "no such device %q", devA)
	}
	if !okB {
		return nil, apierr.New(apierr.NotFound, "no such device %q", devB)
	}

	switched, bridgeDev, endpointDev, err := decideLinkRoles(da.Kind, db.Kind, devA, devB)
	if err != nil {
		return nil, err
	}

	shaping := linkmgr.ShapingParams{LatencyMS: latencyMS, LossPct: lossPct, BandwidthMbps: bandwidthMbps}
	if err := shaping.Validate(); err != nil {
		return nil, err
	}

	linkID := uuid.NewString()

	var link *Link
	if switched {
		link, err = m.addSwitchedLink(ctx, linkID, bridgeDev, endpointDev, shaping)
	} else {
		link, err = m.addP2PLink(ctx, linkID, devA, devB, shaping)
	}
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.linksByID[linkID] = link
	m.mu.Unlock()

	m.obs.Attach(link.DevA, link.IfaceA, m.obsEventFunc())
	m.obs.Attach(link.DevB, link.IfaceB, m.obsEventFunc())

	topoLog.Println("added link", linkID, "between", devA, "and", devB)
	return link, nil
}

func (m *Manager) addP2PLink(ctx context.Context, linkID, devA, devB string, shaping linkmgr.ShapingParams) (*Link, error) {
	subnet, addrA, addrB, err := m.subs.AllocateP2P()
	if err != nil {
		return nil, err
	}

	if err := checkDeadline(ctx); err != nil {
		m.subs.ReleaseP2P(subnet)
		return nil, err
	}

	pair, err := m.links.CreateP2P(linkID, devA, devB, &shaping)
	if err != nil {
		m.subs.ReleaseP2P(subnet)
		return nil, err
	}

	if err := checkDeadline(ctx); err != nil {
		_ = m.links.Destroy(linkID)
		m.subs.ReleaseP2P(subnet)
		return nil, err
	}

	if err := m.ns.AssignAddress(devA, pair.IfaceA, addrA, 24); err != nil {
		_ = m.links.Destroy(linkID)
		m.subs.ReleaseP2P(subnet)
		return nil, err
	}
	if err := m.ns.AssignAddress(devB, pair.IfaceB, addrB, 24); err != nil {
		_ = m.links.Destroy(linkID)
		m.subs.ReleaseP2P(subnet)
		return nil, err
	}

	if err := checkDeadline(ctx); err != nil {
		_ = m.links.Destroy(linkID)
		m.subs.ReleaseP2P(subnet)
		return nil, err
	}

	m.recordIfaceOwnership(devA, pair.IfaceA, linkID, "a")
	m.recordIfaceOwnership(devB, pair.IfaceB, linkID, "b")

	return &Link{
		ID: linkID, DevA: devA, IfaceA: pair.IfaceA, DevB: devB, IfaceB: pair.IfaceB,
		Subnet: subnet, Switched: false, ShapingA: shaping, ShapingB: shaping,
	}, nil
}

func (m *Manager) addSwitchedLink(ctx context.Context, linkID, bridgeDev, endpointDev string, shaping linkmgr.ShapingParams) (*Link, error) {
	if err := m.links.CreateBridge(bridgeDev); err != nil {
		return nil, err
	}

	// The switch's subnet is shared by all its links; only release it on
	// failure if this call is the one that allocated it.
	m.subs.mu.Lock()
	_, hadSubnet := m.subs.switches[bridgeDev]
	m.subs.mu.Unlock()
	releaseSubnet := func() {
		if !hadSubnet {
			m.subs.ReleaseSwitchSubnet(bridgeDev)
		}
	}

	subnet, err := m.subs.AllocateSwitchSubnet(bridgeDev)
	if err != nil {
		return nil, err
	}
	addr, err := m.subs.AllocateSwitchHost(bridgeDev)
	if err != nil {
		releaseSubnet()
		return nil, err
	}

	if err := checkDeadline(ctx); err != nil {
		releaseSubnet()
		return nil, err
	}

	pair, err := m.links.CreateSwitched(linkID, bridgeDev, endpointDev, &shaping)
	if err != nil {
		releaseSubnet()
		return nil, err
	}

	if err := checkDeadline(ctx); err != nil {
		_ = m.links.Destroy(linkID)
		releaseSubnet()
		return nil, err
	}

	if err := m.ns.AssignAddress(endpointDev, pair.IfaceB, addr, 24); err != nil {
		_ = m.links.Destroy(linkID)
		releaseSubnet()
		return nil, err
	}

	if err := checkDeadline(ctx); err != nil {
		_ = m.links.Destroy(linkID)
		releaseSubnet()
		return nil, err
	}

	m.recordIfaceOwnership(bridgeDev, pair.IfaceA, linkID, "a")
	m.recordIfaceOwnership(endpointDev, pair.IfaceB, linkID, "b")

	return &Link{
		ID: linkID, DevA: bridgeDev, IfaceA: pair.IfaceA, DevB: endpointDev, IfaceB: pair.IfaceB,
		Subnet: subnet, Switched: true, ShapingA: shaping, ShapingB: shaping,
	}, nil
}

func (m *Manager) recordIfaceOwnership(device, iface, linkID, side string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if dev, ok := m.devices[device]; ok {
		dev.ifaceLinks[iface] = ifaceRef{LinkID: linkID, Side: side}
	}
}

// RemoveLink tears down a link's qdiscs and veth pair and returns its
// subnet to the pool. Idempotent. Like RemoveDevice, teardown has no
// rollback to perform; ctx is only checked before any work starts.
func (m *Manager) RemoveLink(ctx context.Context, linkID string) error {
	if err := checkDeadline(ctx); err != nil {
		return err
	}

	m.mu.Lock()
	link, ok := m.linksByID[linkID]
	m.mu.Unlock()
	if !ok {
		return nil
	}

	unlock := m.locks.lockBoth(link.DevA, link.DevB)
	defer unlock()
	return m.removeLinkLocked(linkID)
}

// removeLinkLocked assumes the caller already holds both endpoint device
// locks (or is mid-RemoveDevice, which holds its own).
func (m *Manager) removeLinkLocked(linkID string) error {
	m.mu.Lock()
	link, ok := m.linksByID[linkID]
	m.mu.Unlock()
	if !ok {
		return nil
	}

	if err := m.links.Destroy(linkID); err != nil {
		return err
	}

	m.obs.Detach(link.DevA, link.IfaceA)
	m.obs.Detach(link.DevB, link.IfaceB)

	if !link.Switched {
		m.subs.ReleaseP2P(link.Subnet)
	}

	m.mu.Lock()
	delete(m.linksByID, linkID)
	if dev, ok := m.devices[link.DevA]; ok {
		delete(dev.ifaceLinks, link.IfaceA)
	}
	if dev, ok := m.devices[link.DevB]; ok {
		delete(dev.ifaceLinks, link.IfaceB)
	}
	m.mu.Unlock()

	topoLog.Println("removed link", linkID)
	return nil
}

// SetGateway installs a device's default route, per spec.md §4.3.
func (m *Manager) SetGateway(ctx context.Context, device, gw string) error {
	unlock := m.locks.lockBoth(device, device)
	defer unlock()

	if err := checkDeadline(ctx); err != nil {
		return err
	}
	if err := m.ns.SetDefaultGateway(device, gw); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if dev, ok := m.devices[device]; ok {
		dev.Gateway = gw
	}
	return nil
}

func (m *Manager) getDevice(name string) (*Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	dev, ok := m.devices[name]
	if !ok {
		return nil, apierr.New(apierr.NotFound, "no such device %q", name)
	}
	return dev, nil
}
