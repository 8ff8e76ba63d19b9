// Package observer captures packets crossing a device's interfaces and fans
// them out to subscribers, per spec.md §4.5.
//
// Grounded on the teacher's internal/network.RouterFrame/forwarding
// plumbing (a frame observed crossing a simulated link), reimplemented here
// over a real per-interface tcpdump process instead of an in-process
// channel, since spec.md requires kernel-visible packets rather than
// simulated frames.
package observer

import "time"

// Protocol is the L3 protocol tag of spec.md §3: {ICMP, TCP, UDP, ARP, OTHER}.
type Protocol string

const (
	ICMP  Protocol = "ICMP"
	TCP   Protocol = "TCP"
	UDP   Protocol = "UDP"
	ARP   Protocol = "ARP"
	Other Protocol = "OTHER"
)

// PacketEvent is one observed packet, per spec.md §3.
type PacketEvent struct {
	Time     time.Time
	Device   string
	Iface    string
	Protocol Protocol
	Subtag   string // e.g. echo_request, syn, arp_reply, dns_query; "" if unclassified
	Src      string
	Dst      string
	SrcPort  string
	DstPort  string
	TTL      int
	Length   int
	Summary  string
}

// EventFunc reports observer lifecycle events (failed, restarting, gave-up)
// without importing the topology package, mirroring ptysession.EventFunc.
type EventFunc func(device, iface, kind string, err error)
