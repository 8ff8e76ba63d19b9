package topology

import (
	"time"

	"github.com/netkit-project/netkit/internal/linkmgr"
	"github.com/netkit-project/netkit/internal/nsmgr"
)

// DeviceKind reuses nsmgr's tagged variant directly rather than redefining
// an equivalent enum, per spec.md §9: kind is data, not a type hierarchy.
type DeviceKind = nsmgr.Kind

const (
	Host      = nsmgr.Host
	Router    = nsmgr.Router
	Switch    = nsmgr.Switch
	DNSServer = nsmgr.DNSServer
)

// FailureKind is one of the six verbs of spec.md §4.6.
type FailureKind string

const (
	FailureInterfaceDown  FailureKind = "interface_down"
	FailureBlockICMP      FailureKind = "block_icmp"
	FailureSilentRouter   FailureKind = "silent_router"
	FailurePacketLoss     FailureKind = "packet_loss"
	FailureLatency        FailureKind = "latency"
	FailureBandwidthLimit FailureKind = "bandwidth_limit"
)

// FailureSpec identifies one active failure: kind plus, for the four
// per-interface kinds, which interface it targets.
type FailureSpec struct {
	Kind  FailureKind
	Iface string // empty for block_icmp / silent_router
}

// Position is the opaque (x, y) coordinate hint of spec.md §3: stored, never
// interpreted.
type Position struct {
	X, Y float64
}

// Interface mirrors nsmgr.Interface for client-facing views.
type Interface struct {
	Name string
	Addr string
	Up   bool
}

// Device is the full record the Topology Manager keeps for one device, per
// spec.md §3.
type Device struct {
	Name      string
	Kind      DeviceKind
	Position  Position
	Gateway   string
	CreatedAt time.Time
	Failures  map[FailureSpec]struct{}

	// ifaceLinks maps an interface name to (owning link ID, side "a"/"b"),
	// so failure injection on (device, iface) can find the right shaper.
	ifaceLinks map[string]ifaceRef
}

type ifaceRef struct {
	LinkID string
	Side   string
}

// Link is the full record the Topology Manager keeps for one link, per
// spec.md §3. Shaping is tracked per side since a failure like latency can
// target a single (device, iface) endpoint rather than the whole link.
type Link struct {
	ID       string
	DevA     string
	IfaceA   string
	DevB     string
	IfaceB   string
	Subnet   string // for switch-bridged links, the switch's shared subnet
	Switched bool
	ShapingA linkmgr.ShapingParams
	ShapingB linkmgr.ShapingParams
}
