package topology

import "github.com/netkit-project/netkit/internal/apierr"

// decideLinkRoles is the small dispatch function spec.md §9 asks for:
// behaviour that differs by device kind (here, whether a link is a plain
// point-to-point veth pair or one that terminates on a switch's bridge)
// lives here, not in a class hierarchy.
func decideLinkRoles(kindA, kindB DeviceKind, devA, devB string) (switched bool, bridgeDev, endpointDev string, err error) {
	aIsSwitch := kindA == Switch
	bIsSwitch := kindB == Switch

	switch {
	case aIsSwitch && bIsSwitch:
		return false, "", "", apierr.New(apierr.InvalidArgument, "switch-to-switch links are not supported")
	case aIsSwitch:
		return true, devA, devB, nil
	case bIsSwitch:
		return true, devB, devA, nil
	default:
		return false, "", "", nil
	}
}
