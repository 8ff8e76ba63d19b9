package nsmgr

import "testing"

func TestKindValid(t *testing.T) {
	valid := []Kind{Host, Router, Switch, DNSServer}
	for _, k := range valid {
		if !k.Valid() {
			t.Errorf("expected %q to be valid", k)
		}
	}
	if Kind("bogus").Valid() {
		t.Error("expected bogus kind to be invalid")
	}
}

func TestDispatchForwardingOnlyRouters(t *testing.T) {
	cases := map[Kind]bool{
		Host:      false,
		Router:    true,
		Switch:    false,
		DNSServer: false,
	}
	for k, want := range cases {
		if got := dispatchForwarding(k); got != want {
			t.Errorf("dispatchForwarding(%q) = %v, want %v", k, got, want)
		}
	}
}
