package nsmgr

import (
	"os/exec"

	"github.com/netkit-project/netkit/internal/apierr"
)

const blockICMPComment = "netkit-block-icmp"
const silentRouterComment = "netkit-silent-router"

// SetBlockICMP installs or removes an egress iptables rule dropping ICMP
// traffic before it ever reaches the wire, per spec.md §4.6's block_icmp
// failure ("an egress drop rule for ICMP"). OUTPUT, not INPUT: a device that
// blocks ICMP must never emit its own echo requests in the first place, so
// the Packet Observer's capture on this device's interfaces shows nothing
// for the blocked traffic, matching the Observer invariant of spec.md §8.
func (m *Manager) SetBlockICMP(name string, enabled bool) error {
	if _, err := m.get(name); err != nil {
		return err
	}
	if enabled {
		return runIptables(name, "-A", "OUTPUT", "-p", "icmp", "-m", "comment", "--comment", blockICMPComment, "-j", "DROP")
	}
	return runIptables(name, "-D", "OUTPUT", "-p", "icmp", "-m", "comment", "--comment", blockICMPComment, "-j", "DROP")
}

// silentRouterICMPTypes are the two ICMP types a router would otherwise
// generate in response to a packet it can't forward or route: destination
// unreachable (which covers the admin-prohibited code) and time exceeded.
// silent_router drops only these on egress so the router still forwards
// and replies to everything else, per spec.md §4.6/§8 scenario 4
// ("traceroute shows `*` for the r1 hop but h2 still replies").
var silentRouterICMPTypes = []string{"destination-unreachable", "time-exceeded"}

// SetSilentRouter installs or removes the egress ICMP drop rules that make a
// router silent: it keeps forwarding and the far host keeps replying, but the
// router itself no longer emits the unreachable/time-exceeded replies that
// would otherwise surface it as a hop, per spec.md §4.6's silent_router
// failure.
func (m *Manager) SetSilentRouter(name string, enabled bool) error {
	if _, err := m.get(name); err != nil {
		return err
	}
	op := "-D"
	if enabled {
		op = "-A"
	}
	for _, icmpType := range silentRouterICMPTypes {
		if err := runIptables(name, op, "OUTPUT", "-p", "icmp", "--icmp-type", icmpType,
			"-m", "comment", "--comment", silentRouterComment, "-j", "DROP"); err != nil {
			return err
		}
	}
	return nil
}

func runIptables(namespace string, args ...string) error {
	full := append([]string{"netns", "exec", namespace, "iptables"}, args...)
	cmd := exec.Command("ip", full...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return apierr.New(apierr.KernelError, "iptables %v in %q: %s: %s", args, namespace, err, out)
	}
	return nil
}
