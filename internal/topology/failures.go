package topology

import (
	"context"

	"github.com/netkit-project/netkit/internal/apierr"
	"github.com/netkit-project/netkit/internal/linkmgr"
)

// InjectFailure applies one of the six failure verbs of spec.md §4.6.
// iface is required for the four per-interface kinds (interface_down,
// packet_loss, latency, bandwidth_limit) and ignored for the two
// device-wide kinds (block_icmp, silent_router). Each kind is a single
// kernel call plus a bookkeeping update, so ctx is checked once up front:
// an already-expired deadline aborts before touching anything, and once
// the call proceeds there is no partial multi-step state to roll back.
func (m *Manager) InjectFailure(ctx context.Context, device string, kind FailureKind, iface string, params linkmgr.ShapingParams) error {
	if err := checkDeadline(ctx); err != nil {
		return err
	}

	unlock := m.locks.lockBoth(device, device)
	defer unlock()

	dev, err := m.getDevice(device)
	if err != nil {
		return err
	}

	switch kind {
	case FailureInterfaceDown:
		if iface == "" {
			return apierr.New(apierr.InvalidArgument, "interface_down requires an interface")
		}
		if err := m.ns.SetLinkState(device, iface, false); err != nil {
			return err
		}
	case FailureBlockICMP:
		if err := m.ns.SetBlockICMP(device, true); err != nil {
			return err
		}
	case FailureSilentRouter:
		if dev.Kind != Router {
			return apierr.New(apierr.InvalidArgument, "silent_router only applies to routers")
		}
		if err := m.ns.SetSilentRouter(device, true); err != nil {
			return err
		}
	case FailurePacketLoss:
		if err := m.applyShaping(device, iface, func(p *linkmgr.ShapingParams) { p.LossPct = params.LossPct }); err != nil {
			return err
		}
	case FailureLatency:
		if err := m.applyShaping(device, iface, func(p *linkmgr.ShapingParams) { p.LatencyMS = params.LatencyMS }); err != nil {
			return err
		}
	case FailureBandwidthLimit:
		if err := m.applyShaping(device, iface, func(p *linkmgr.ShapingParams) { p.BandwidthMbps = params.BandwidthMbps }); err != nil {
			return err
		}
	default:
		return apierr.New(apierr.InvalidArgument, "unknown failure kind %q", kind)
	}

	m.mu.Lock()
	dev.Failures[FailureSpec{Kind: kind, Iface: iface}] = struct{}{}
	m.mu.Unlock()
	return nil
}

// ClearFailure reverses InjectFailure for the given (device, kind, iface).
func (m *Manager) ClearFailure(ctx context.Context, device string, kind FailureKind, iface string) error {
	if err := checkDeadline(ctx); err != nil {
		return err
	}

	unlock := m.locks.lockBoth(device, device)
	defer unlock()

	dev, err := m.getDevice(device)
	if err != nil {
		return err
	}

	switch kind {
	case FailureInterfaceDown:
		if err := m.ns.SetLinkState(device, iface, true); err != nil {
			return err
		}
	case FailureBlockICMP:
		if err := m.ns.SetBlockICMP(device, false); err != nil {
			return err
		}
	case FailureSilentRouter:
		if err := m.ns.SetSilentRouter(device, false); err != nil {
			return err
		}
	case FailurePacketLoss:
		if err := m.applyShaping(device, iface, func(p *linkmgr.ShapingParams) { p.LossPct = 0 }); err != nil {
			return err
		}
	case FailureLatency:
		if err := m.applyShaping(device, iface, func(p *linkmgr.ShapingParams) { p.LatencyMS = 0 }); err != nil {
			return err
		}
	case FailureBandwidthLimit:
		if err := m.applyShaping(device, iface, func(p *linkmgr.ShapingParams) { p.BandwidthMbps = 0 }); err != nil {
			return err
		}
	default:
		return apierr.New(apierr.InvalidArgument, "unknown failure kind %q", kind)
	}

	m.mu.Lock()
	delete(dev.Failures, FailureSpec{Kind: kind, Iface: iface})
	m.mu.Unlock()
	return nil
}

// applyShaping mutates whichever of a link's two sides (device, iface)
// identifies and pushes the updated qdisc parameters through the Link
// Manager, per spec.md §4.6.
func (m *Manager) applyShaping(device, iface string, mutate func(*linkmgr.ShapingParams)) error {
	if iface == "" {
		return apierr.New(apierr.InvalidArgument, "this failure kind requires an interface")
	}

	m.mu.Lock()
	dev, ok := m.devices[device]
	if !ok {
		m.mu.Unlock()
		return apierr.New(apierr.NotFound, "no such device %q", device)
	}
	ref, ok := dev.ifaceLinks[iface]
	if !ok {
		m.mu.Unlock()
		return apierr.New(apierr.NotFound, "no such interface %q on %q", iface, device)
	}
	link, ok := m.linksByID[ref.LinkID]
	if !ok {
		m.mu.Unlock()
		return apierr.New(apierr.Internal, "link %q missing for iface %q", ref.LinkID, iface)
	}

	var params *linkmgr.ShapingParams
	if ref.Side == "a" {
		params = &link.ShapingA
	} else {
		params = &link.ShapingB
	}
	mutate(params)
	updated := *params
	m.mu.Unlock()

	if err := updated.Validate(); err != nil {
		return err
	}
	return m.links.UpdateShaping(ref.LinkID, ref.Side, updated)
}
