package nsmgr

import "testing"

func TestAddressRegistryReserveIsIdempotentForSameOwner(t *testing.T) {
	r := newAddressRegistry()
	if !r.reserve("10.0.1.1/24", "h1", "eth0") {
		t.Fatal("first reserve should succeed")
	}
	if !r.reserve("10.0.1.1/24", "h1", "eth0") {
		t.Fatal("re-reserving the same owner should be idempotent")
	}
	if r.count() != 1 {
		t.Fatalf("expected 1 reserved address, got %d", r.count())
	}
}

func TestAddressRegistryRejectsConflict(t *testing.T) {
	r := newAddressRegistry()
	r.reserve("10.0.1.1/24", "h1", "eth0")
	if r.reserve("10.0.1.1/24", "h2", "eth0") {
		t.Fatal("expected conflicting reserve to fail")
	}
}

func TestAddressRegistryReleaseAllForDevice(t *testing.T) {
	r := newAddressRegistry()
	r.reserve("10.0.1.1/24", "h1", "eth0")
	r.reserve("10.0.1.2/24", "h1", "eth1")
	r.reserve("10.0.2.1/24", "h2", "eth0")

	r.releaseAllFor("h1")

	if r.count() != 1 {
		t.Fatalf("expected 1 remaining address, got %d", r.count())
	}
	if _, ok := r.lookup("10.0.2.1/24"); !ok {
		t.Fatal("h2's address should survive releasing h1")
	}
}
