package linkmgr

import (
	"sync"

	"github.com/netkit-project/netkit/internal/apierr"
	"github.com/vishvananda/netlink"
)

const (
	netemHandle = 0x10000 // 1:0
	tbfHandle   = 0xa0000 // a:0
	tbfBurst    = 4000    // bytes, == 32kbit per spec.md §4.2
	tbfLatency  = 400     // ms, per spec.md §4.2
)

// Shaper installs and replaces the qdiscs on one end of one link. Its
// methods are Apply (replace the qdiscs) and Close (remove them); there is
// no Start/Stop pair as in the teacher's network.Shaper. Each method is a
// synchronous netlink call against a real qdisc, not a goroutine driving Go
// channels.
type Shaper struct {
	mu        sync.Mutex
	handle    *netlink.Handle
	linkIndex int
	params    ShapingParams
}

func newShaper(handle *netlink.Handle, linkIndex int) *Shaper {
	return &Shaper{handle: handle, linkIndex: linkIndex}
}

// Apply replaces the egress qdiscs on this end with one reflecting params.
// A zero ShapingParams clears any installed qdisc (spec.md §8: "latency
// ms=0 removes any existing delay qdisc").
func (s *Shaper) Apply(params ShapingParams) error {
	if err := params.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.clearLocked(); err != nil {
		return err
	}
	s.params = params
	return s.installLocked()
}

func (s *Shaper) installLocked() error {
	parent := uint32(netlink.HANDLE_ROOT)
	if s.params.hasNetem() {
		netem := netlink.Netem{
			QdiscAttrs: netlink.QdiscAttrs{
				LinkIndex: s.linkIndex,
				Handle:    netemHandle,
				Parent:    parent,
			},
			Latency: s.params.LatencyMS * 1000,
			Loss:    netlink.Percentage2u32(float32(s.params.LossPct)),
		}
		if err := s.handle.QdiscReplace(&netem); err != nil {
			return apierr.New(apierr.KernelError, "install netem: %s", err)
		}
		parent = netemHandle
	}
	if s.params.hasTbf() {
		rateBps := uint64(s.params.BandwidthMbps) * 1_000_000 / 8
		tbf := netlink.Tbf{
			QdiscAttrs: netlink.QdiscAttrs{
				LinkIndex: s.linkIndex,
				Handle:    tbfHandle,
				Parent:    parent,
			},
			Rate:   rateBps,
			Buffer: tbfBurst,
			Limit:  uint32(rateBps*tbfLatency/1000) + tbfBurst,
		}
		if err := s.handle.QdiscReplace(&tbf); err != nil {
			return apierr.New(apierr.KernelError, "install tbf: %s", err)
		}
	}
	return nil
}

func (s *Shaper) clearLocked() error {
	qdiscs, err := s.handle.QdiscList(&netlink.GenericLink{LinkAttrs: netlink.LinkAttrs{Index: s.linkIndex}})
	if err != nil {
		return apierr.New(apierr.KernelError, "list qdiscs: %s", err)
	}
	for _, q := range qdiscs {
		if q.Attrs().Handle == netemHandle || q.Attrs().Handle == tbfHandle {
			if err := s.handle.QdiscDel(q); err != nil {
				return apierr.New(apierr.KernelError, "remove qdisc: %s", err)
			}
		}
	}
	return nil
}

func (s *Shaper) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clearLocked()
}
