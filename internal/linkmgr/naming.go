package linkmgr

import (
	"crypto/rand"
	"encoding/hex"
)

// hostVethName returns a veth-<8 random hex> name, per spec.md §4.2's naming
// rule: "host-visible veth peer names are veth-<8 random hex> to avoid
// collisions across the root namespace."
func hostVethName() string {
	buf := make([]byte, 4)
	_, _ = rand.Read(buf)
	return "veth-" + hex.EncodeToString(buf)
}
