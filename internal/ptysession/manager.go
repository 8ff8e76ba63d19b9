package ptysession

import (
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/creack/pty"
	"github.com/netkit-project/netkit/internal/apierr"
)

// Manager owns every live Session, keyed by (device, channel_id), and
// applies the grace-period close-on-disconnect policy of spec.md §5.
type Manager struct {
	shell           string
	graceDelay      time.Duration
	closeGrace      time.Duration
	defaultBufBytes int

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager builds a Manager. Event reporting is per session: the onEvent
// passed to Open is invoked from that session's read pump.
func NewManager(shell string, graceDelay, closeGrace time.Duration, bufBytes int) *Manager {
	return &Manager{
		shell:           shell,
		graceDelay:      graceDelay,
		closeGrace:      closeGrace,
		defaultBufBytes: bufBytes,
		sessions:        make(map[string]*Session),
	}
}

func key(device, channelID string) string { return device + "/" + channelID }

// Open spawns "ip netns exec <device> <shell>" attached to a new pty and
// registers the resulting Session, per spec.md §4.4.
func (m *Manager) Open(device, channelID string, rows, cols int, onEvent EventFunc) (*Session, error) {
	if device == "" || channelID == "" {
		return nil, apierr.New(apierr.InvalidArgument, "device and channel_id are required")
	}

	m.mu.Lock()
	if _, exists := m.sessions[key(device, channelID)]; exists {
		m.mu.Unlock()
		return nil, apierr.New(apierr.AlreadyExists, "session %s/%s already open", device, channelID)
	}
	m.mu.Unlock()

	cmd := exec.Command("ip", "netns", "exec", device, m.shell)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	ws := &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)}
	ptmx, err := pty.StartWithSize(cmd, ws)
	if err != nil {
		return nil, apierr.New(apierr.KernelError, "spawn pty session for %s: %v", device, err)
	}

	s := &Session{
		Device:    device,
		ChannelID: channelID,
		ptmx:      ptmx,
		cmd:       cmd,
		onEvent:   onEvent,
	}
	s.setState(Running)
	s.pump()

	m.mu.Lock()
	m.sessions[key(device, channelID)] = s
	m.mu.Unlock()

	return s, nil
}

// Get returns an existing session for reattachment.
func (m *Manager) Get(device, channelID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[key(device, channelID)]
	return s, ok
}

// Detach arms the grace-period close timer for a session whose subscriber
// disconnected; if nobody reattaches within the window, the session and its
// child process are torn down.
func (m *Manager) Detach(device, channelID string) {
	m.mu.Lock()
	s, ok := m.sessions[key(device, channelID)]
	m.mu.Unlock()
	if !ok {
		return
	}
	s.Detach(m.graceDelay, func() { m.Close(device, channelID) })
}

// Close tears down a single session immediately, idempotent.
func (m *Manager) Close(device, channelID string) {
	m.mu.Lock()
	s, ok := m.sessions[key(device, channelID)]
	if ok {
		delete(m.sessions, key(device, channelID))
	}
	m.mu.Unlock()
	if !ok {
		return
	}
	s.Close(m.closeGrace)
}

// CloseAllFor tears down every session belonging to a device, used during
// device removal (spec.md §4.3's teardown ordering: sessions before the
// namespace itself).
func (m *Manager) CloseAllFor(device string) {
	m.mu.Lock()
	var victims []*Session
	for k, s := range m.sessions {
		if s.Device == device {
			victims = append(victims, s)
			delete(m.sessions, k)
		}
	}
	m.mu.Unlock()
	for _, s := range victims {
		s.Close(m.closeGrace)
	}
}

func (m *Manager) DefaultBufBytes() int { return m.defaultBufBytes }
