package nsmgr

import "testing"

func TestNextIfaceNameNeverReissuesAfterUnregister(t *testing.T) {
	ns := &Namespace{ifaces: make(map[string]*Interface)}

	first := ns.nextIfaceName()
	ns.ifaces[first] = &Interface{Name: first, Addr: "10.0.1.1/24"}
	ns.order = append(ns.order, first)

	second := ns.nextIfaceName()
	ns.ifaces[second] = &Interface{Name: second}
	ns.order = append(ns.order, second)

	if first == second {
		t.Fatalf("expected distinct interface names, got %q twice", first)
	}

	if _, ok := ns.unregisterInterface(first); !ok {
		t.Fatal("expected unregisterInterface to find the first interface")
	}

	third := ns.nextIfaceName()
	if third == first {
		t.Fatalf("freed name %q was reissued to a later interface; want a fresh name", first)
	}
}

func TestUnregisterInterfaceReturnsAddrAndPrunesOrder(t *testing.T) {
	ns := &Namespace{ifaces: make(map[string]*Interface)}

	eth0 := ns.nextIfaceName()
	ns.ifaces[eth0] = &Interface{Name: eth0, Addr: "10.0.1.1/24"}
	ns.order = append(ns.order, eth0)

	addr, ok := ns.unregisterInterface(eth0)
	if !ok {
		t.Fatal("expected unregisterInterface to succeed")
	}
	if addr != "10.0.1.1/24" {
		t.Fatalf("expected returned addr %q, got %q", "10.0.1.1/24", addr)
	}
	if len(ns.order) != 0 {
		t.Fatalf("expected order to be empty after unregister, got %v", ns.order)
	}
	if _, exists := ns.ifaces[eth0]; exists {
		t.Fatal("expected interface entry to be removed")
	}
}

func TestUnregisterInterfaceUnknownIsNoop(t *testing.T) {
	ns := &Namespace{ifaces: make(map[string]*Interface)}
	if _, ok := ns.unregisterInterface("eth7"); ok {
		t.Fatal("expected unregistering an unknown interface to report false")
	}
}
