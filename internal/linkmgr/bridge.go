package linkmgr

import (
	"sync"

	"github.com/netkit-project/netkit/internal/apierr"
	"github.com/vishvananda/netlink"
)

// bridgeRegistry tracks the one in-namespace bridge each switch device owns,
// per spec.md §9's resolved open question: a switch's bridge lives inside
// the switch's own namespace, never in the root namespace.
type bridgeRegistry struct {
	mu   sync.Mutex
	byNS map[string]string // namespace -> bridge link name
}

func newBridgeRegistry() *bridgeRegistry {
	return &bridgeRegistry{byNS: make(map[string]string)}
}

const bridgeLinkName = "br0"

// CreateBridge creates an in-namespace bridge for a switch device.
// Idempotent: a namespace that already owns a bridge is a no-op.
func (m *Manager) CreateBridge(namespace string) error {
	m.bridges.mu.Lock()
	_, exists := m.bridges.byNS[namespace]
	m.bridges.mu.Unlock()
	if exists {
		return nil
	}

	handle, _, err := m.ns.Handle(namespace)
	if err != nil {
		return err
	}

	br := &netlink.Bridge{LinkAttrs: netlink.LinkAttrs{Name: bridgeLinkName}}
	if err := handle.LinkAdd(br); err != nil {
		return apierr.New(apierr.KernelError, "create bridge in %q: %s", namespace, err)
	}
	link, err := handle.LinkByName(bridgeLinkName)
	if err != nil {
		return apierr.New(apierr.KernelError, "find bridge in %q: %s", namespace, err)
	}
	if err := handle.LinkSetUp(link); err != nil {
		return apierr.New(apierr.KernelError, "bring up bridge in %q: %s", namespace, err)
	}

	m.bridges.mu.Lock()
	m.bridges.byNS[namespace] = bridgeLinkName
	m.bridges.mu.Unlock()
	return nil
}

// DestroyBridge removes the switch's bridge; idempotent.
func (m *Manager) DestroyBridge(namespace string) error {
	m.bridges.mu.Lock()
	name, ok := m.bridges.byNS[namespace]
	delete(m.bridges.byNS, namespace)
	m.bridges.mu.Unlock()
	if !ok {
		return nil
	}

	handle, _, err := m.ns.Handle(namespace)
	if err != nil {
		return nil // namespace already gone, nothing to clean up
	}
	link, err := handle.LinkByName(name)
	if err != nil {
		return nil
	}
	if err := handle.LinkDel(link); err != nil {
		return apierr.New(apierr.KernelError, "destroy bridge in %q: %s", namespace, err)
	}
	return nil
}

func (m *Manager) bridgeLink(namespace string) (*netlink.Handle, netlink.Link, error) {
	m.bridges.mu.Lock()
	name, ok := m.bridges.byNS[namespace]
	m.bridges.mu.Unlock()
	if !ok {
		return nil, nil, apierr.New(apierr.NotFound, "no bridge owned by %q", namespace)
	}
	handle, _, err := m.ns.Handle(namespace)
	if err != nil {
		return nil, nil, err
	}
	link, err := handle.LinkByName(name)
	if err != nil {
		return nil, nil, apierr.New(apierr.KernelError, "find bridge in %q: %s", namespace, err)
	}
	return handle, link, nil
}
