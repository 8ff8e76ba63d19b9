package topology

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSnapshotCopiesFailuresAndOmitsIfaceLinks(t *testing.T) {
	m := &Manager{
		devices: map[string]*Device{
			"h1": {
				Name: "h1", Kind: Host, CreatedAt: time.Now(),
				Failures:   map[FailureSpec]struct{}{{Kind: FailureInterfaceDown, Iface: "eth0"}: {}},
				ifaceLinks: map[string]ifaceRef{"eth0": {LinkID: "link-1", Side: "a"}},
			},
		},
		linksByID: map[string]*Link{
			"link-1": {ID: "link-1", DevA: "h1", IfaceA: "eth0", DevB: "h2", IfaceB: "eth0"},
		},
	}

	snap := m.Snapshot()
	assert.Len(t, snap.Devices, 1)
	assert.Len(t, snap.Links, 1)

	dev := snap.Devices[0]
	assert.Equal(t, "h1", dev.Name)
	assert.Nil(t, dev.ifaceLinks)
	assert.Contains(t, dev.Failures, FailureSpec{Kind: FailureInterfaceDown, Iface: "eth0"})
}

func TestCopyFailuresIsIndependent(t *testing.T) {
	orig := map[FailureSpec]struct{}{{Kind: FailureBlockICMP}: {}}
	cp := copyFailures(orig)
	cp[FailureSpec{Kind: FailureSilentRouter}] = struct{}{}
	assert.Len(t, orig, 1)
	assert.Len(t, cp, 2)
}
