// Package api holds the wire request/response types for every Control
// Server verb, grouped in one file rather than split one file per struct
// the way the teacher's own api/ package is.
package api

import "github.com/netkit-project/netkit/internal/linkmgr"

// AddDeviceRequest is the body of POST /devices.
type AddDeviceRequest struct {
	Name string  `json:"name"`
	Kind string  `json:"kind"`
	X    float64 `json:"x,omitempty"`
	Y    float64 `json:"y,omitempty"`
}

// AddLinkRequest is the body of POST /links.
type AddLinkRequest struct {
	DeviceA       string  `json:"device_a"`
	DeviceB       string  `json:"device_b"`
	LatencyMS     uint32  `json:"latency_ms,omitempty"`
	BandwidthMbps uint32  `json:"bandwidth_mbps,omitempty"`
	LossPct       float64 `json:"loss_pct,omitempty"`
}

// LinkResponse is the wire shape of a recorded Link.
type LinkResponse struct {
	ID       string  `json:"id"`
	DeviceA  string  `json:"device_a"`
	IfaceA   string  `json:"iface_a"`
	DeviceB  string  `json:"device_b"`
	IfaceB   string  `json:"iface_b"`
	Subnet   string  `json:"subnet,omitempty"`
	Switched bool    `json:"switched"`
}

// SetGatewayRequest is the body of POST /devices/{name}/gateway.
type SetGatewayRequest struct {
	Gateway string `json:"gateway"`
}

// FailureRequest is the body of POST /devices/{name}/failures.
// DELETE /devices/{name}/failures/{kind} takes no body: the kind comes from
// the path and the interface from the "iface" query parameter.
type FailureRequest struct {
	Kind   string                `json:"kind"`
	Iface  string                `json:"iface,omitempty"`
	Params linkmgr.ShapingParams `json:"params,omitempty"`
}

// CommandExecRequest is the body of POST /devices/{name}/exec: spawns a
// child with this argv inside the device's namespace. The server never
// invokes a shell, per spec.md §9's explicit redesign note.
type CommandExecRequest struct {
	Argv []string `json:"argv"`
}

// CommandExecResponse reports what the spawned child did.
type CommandExecResponse struct {
	ExitCode int    `json:"exit_code"`
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
}

// DeviceView is the wire shape of a single-device inspect result.
type DeviceView struct {
	Name       string   `json:"name"`
	Kind       string   `json:"kind"`
	Gateway    string   `json:"gateway,omitempty"`
	Forwarding bool     `json:"forwarding"`
	Interfaces []IfaceView `json:"interfaces"`
	Failures   []FailureView `json:"failures"`
}

// IfaceView is one interface in a DeviceView.
type IfaceView struct {
	Name string `json:"name"`
	Addr string `json:"addr,omitempty"`
	Up   bool   `json:"up"`
}

// FailureView is one active failure in a DeviceView.
type FailureView struct {
	Kind  string `json:"kind"`
	Iface string `json:"iface,omitempty"`
}

// SnapshotResponse is the wire shape of the whole-topology read.
type SnapshotResponse struct {
	Devices []SnapshotDevice `json:"devices"`
	Links   []LinkResponse   `json:"links"`
}

// SnapshotDevice is one device entry in a SnapshotResponse.
type SnapshotDevice struct {
	Name string  `json:"name"`
	Kind string  `json:"kind"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// TerminalFrame is one frame exchanged over a /ws/terminal/{device}
// channel. Client frames set Type to "input" or "resize"; server frames
// carry raw bytes with no envelope (spec.md §6), except that resize ACKs
// are not sent — resize is fire-and-forget.
type TerminalFrame struct {
	Type string `json:"type"`
	Data string `json:"data,omitempty"` // base64-free: input is UTF-8 text
	Rows int    `json:"rows,omitempty"`
	Cols int    `json:"cols,omitempty"`
}

// PacketEventView is the wire shape of one packet pushed over /ws/packets.
// Seq is a monotonically increasing per-connection sequence number and
// Dropped is the connection's running count of events evicted from its
// queue for overflow, per spec.md §5/§6.
type PacketEventView struct {
	Seq           uint64 `json:"seq"`
	Dropped       uint64 `json:"dropped"`
	TimeUnixMicro int64  `json:"time_unix_micro"`
	Device        string `json:"device"`
	Iface         string `json:"iface"`
	Protocol      string `json:"protocol"`
	Subtag        string `json:"subtag,omitempty"`
	Src           string `json:"src"`
	Dst           string `json:"dst"`
	SrcPort       string `json:"src_port,omitempty"`
	DstPort       string `json:"dst_port,omitempty"`
	TTL           int    `json:"ttl,omitempty"`
	Length        int    `json:"length"`
	Summary       string `json:"summary"`
}
