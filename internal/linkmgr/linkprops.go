// Package linkmgr owns veth pairs, bridges, and traffic-control qdiscs, per
// spec.md §4.2. The Shaper type (shaper.go) takes the place of the
// teacher's (David-Antunes/gone) internal/network.Shaper with an Apply/Close
// pair backed by real netlink qdiscs instead of a channel-based user-space
// token bucket, because spec.md §4.2 and §8 require kernel-accurate shaping.
package linkmgr

import "github.com/netkit-project/netkit/internal/apierr"

// ShapingParams are the mutable per-end shaping parameters of spec.md §3/§4.2.
type ShapingParams struct {
	LatencyMS     uint32
	LossPct       float64
	BandwidthMbps uint32
}

func (p ShapingParams) Validate() error {
	if p.LossPct < 0 || p.LossPct > 100 {
		return apierr.New(apierr.InvalidArgument, "packet loss must be within [0,100], got %v", p.LossPct)
	}
	return nil
}

func (p ShapingParams) hasNetem() bool {
	return p.LatencyMS > 0 || p.LossPct > 0
}

func (p ShapingParams) hasTbf() bool {
	return p.BandwidthMbps > 0
}
