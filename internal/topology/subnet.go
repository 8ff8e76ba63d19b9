package topology

import (
	"fmt"
	"sync"

	"github.com/netkit-project/netkit/internal/apierr"
)

// SubnetAllocator is the process-wide singleton described in spec.md §3: a
// small named state holder with explicit init/teardown (NewSubnetAllocator,
// no finalizer needed since it holds no kernel resources), not an ambient
// package-level global.
type SubnetAllocator struct {
	mu       sync.Mutex
	next     int   // next never-used subnet number, 1..255
	free     []int // released subnet numbers, reused before next is advanced
	switches map[string]int
	hostSeq  map[string]int
}

const maxSubnet = 255

func NewSubnetAllocator() *SubnetAllocator {
	return &SubnetAllocator{
		next:     1,
		switches: make(map[string]int),
		hostSeq:  make(map[string]int),
	}
}

// AllocateP2P consumes one /24 and returns it plus its two endpoint
// addresses (.1 and .2), per spec.md §3.
func (s *SubnetAllocator) AllocateP2P() (subnet, addrA, addrB string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.takeLocked()
	if err != nil {
		return "", "", "", err
	}
	return subnetCIDR(n), hostAddr(n, 1), hostAddr(n, 2), nil
}

// ReleaseP2P returns a previously allocated /24 to the pool, rewinding the
// allocator so a later AllocateP2P reuses the same number (spec.md §8's
// round-trip law: "add_link; remove_link" rewinds the address pool).
func (s *SubnetAllocator) ReleaseP2P(subnet string) {
	n, ok := parseSubnet(subnet)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.free = append(s.free, n)
}

// AllocateSwitchSubnet allocates (once) the shared /24 a switch's connected
// endpoints all draw addresses from, per spec.md §3: "Switch-bridged groups
// share a single subnet across all endpoints."
func (s *SubnetAllocator) AllocateSwitchSubnet(switchID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n, ok := s.switches[switchID]; ok {
		return subnetCIDR(n), nil
	}
	n, err := s.takeLocked()
	if err != nil {
		return "", err
	}
	s.switches[switchID] = n
	s.hostSeq[switchID] = 0
	return subnetCIDR(n), nil
}

// AllocateSwitchHost returns the next free host address within switchID's
// shared subnet.
func (s *SubnetAllocator) AllocateSwitchHost(switchID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.switches[switchID]
	if !ok {
		return "", apierr.New(apierr.Internal, "switch %q has no allocated subnet", switchID)
	}
	s.hostSeq[switchID]++
	if s.hostSeq[switchID] > 253 {
		return "", apierr.New(apierr.ResourceExhausted, "switch %q subnet has no free host addresses", switchID)
	}
	return hostAddr(n, s.hostSeq[switchID]), nil
}

// ReleaseSwitchSubnet frees a switch's shared /24 once the switch is torn down.
func (s *SubnetAllocator) ReleaseSwitchSubnet(switchID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.switches[switchID]
	if !ok {
		return
	}
	delete(s.switches, switchID)
	delete(s.hostSeq, switchID)
	s.free = append(s.free, n)
}

func (s *SubnetAllocator) takeLocked() (int, error) {
	if len(s.free) > 0 {
		n := s.free[len(s.free)-1]
		s.free = s.free[:len(s.free)-1]
		return n, nil
	}
	if s.next > maxSubnet {
		return 0, apierr.New(apierr.ResourceExhausted, "subnet pool exhausted past 10.0.%d.0/24", maxSubnet)
	}
	n := s.next
	s.next++
	return n, nil
}

func subnetCIDR(n int) string {
	return fmt.Sprintf("10.0.%d.0/24", n)
}

func hostAddr(n, host int) string {
	return fmt.Sprintf("10.0.%d.%d", n, host)
}

func parseSubnet(cidr string) (int, bool) {
	var n int
	if _, err := fmt.Sscanf(cidr, "10.0.%d.0/24", &n); err != nil {
		return 0, false
	}
	return n, true
}
