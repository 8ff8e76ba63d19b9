package topology

import "github.com/netkit-project/netkit/internal/apierr"

// AttachTerminal looks up or creates a PTY session for (device, channelID)
// and returns a fresh output subscription, per spec.md §4.7's terminal
// channel routing: "incoming terminal channels look up or create the
// session through PTY Session Manager."
func (m *Manager) AttachTerminal(device, channelID string, rows, cols int) (<-chan []byte, error) {
	if _, err := m.getDevice(device); err != nil {
		return nil, err
	}

	session, ok := m.pty.Get(device, channelID)
	if !ok {
		var err error
		session, err = m.pty.Open(device, channelID, rows, cols, m.ptyEventFunc(device))
		if err != nil {
			return nil, err
		}
	}
	return session.Attach(m.pty.DefaultBufBytes()), nil
}

// WriteTerminal sends client input bytes into the session's pty master.
func (m *Manager) WriteTerminal(device, channelID string, p []byte) error {
	session, ok := m.pty.Get(device, channelID)
	if !ok {
		return apierr.New(apierr.NotFound, "no such terminal session %s/%s", device, channelID)
	}
	_, err := session.Write(p)
	return err
}

// ResizeTerminal updates the session's pty window size.
func (m *Manager) ResizeTerminal(device, channelID string, rows, cols int) error {
	session, ok := m.pty.Get(device, channelID)
	if !ok {
		return apierr.New(apierr.NotFound, "no such terminal session %s/%s", device, channelID)
	}
	return session.Resize(rows, cols)
}

// DetachTerminal releases a channel's subscription without closing the
// underlying session, arming its grace-period close timer, per spec.md §5.
func (m *Manager) DetachTerminal(device, channelID string) {
	m.pty.Detach(device, channelID)
}
