package topology

import "github.com/netkit-project/netkit/internal/nsmgr"

// DeviceView is the read-only projection of a Device plus its live
// namespace state, returned by Inspect, per spec.md §4.3.
type DeviceView struct {
	Name       string
	Kind       DeviceKind
	Position   Position
	Gateway    string
	Forwarding bool
	Interfaces []nsmgr.Interface
	Failures   []FailureSpec
}

// Inspect returns the full live view of one device.
func (m *Manager) Inspect(name string) (*DeviceView, error) {
	dev, err := m.getDevice(name)
	if err != nil {
		return nil, err
	}

	res, err := m.ns.Inspect(name)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	failures := make([]FailureSpec, 0, len(dev.Failures))
	for f := range dev.Failures {
		failures = append(failures, f)
	}
	pos := dev.Position
	gw := dev.Gateway
	m.mu.Unlock()

	return &DeviceView{
		Name:       name,
		Kind:       dev.Kind,
		Position:   pos,
		Gateway:    gw,
		Forwarding: res.Forwarding,
		Interfaces: res.Interfaces,
		Failures:   failures,
	}, nil
}

// Snapshot is the whole-topology read used by the list/overview control
// operation, per spec.md §4.3.
type Snapshot struct {
	Devices []Device
	Links   []Link
}

// Snapshot returns a point-in-time copy of every device and link. Devices
// are returned without their private ifaceLinks bookkeeping.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	devices := make([]Device, 0, len(m.devices))
	for _, d := range m.devices {
		devices = append(devices, Device{
			Name: d.Name, Kind: d.Kind, Position: d.Position,
			Gateway: d.Gateway, CreatedAt: d.CreatedAt,
			Failures: copyFailures(d.Failures),
		})
	}

	links := make([]Link, 0, len(m.linksByID))
	for _, l := range m.linksByID {
		links = append(links, *l)
	}

	return Snapshot{Devices: devices, Links: links}
}

func copyFailures(in map[FailureSpec]struct{}) map[FailureSpec]struct{} {
	out := make(map[FailureSpec]struct{}, len(in))
	for k := range in {
		out[k] = struct{}{}
	}
	return out
}
