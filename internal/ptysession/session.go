// Package ptysession spawns and multiplexes interactive pseudo-terminal
// sessions bound to a device's namespace, per spec.md §4.4.
//
// Grounded on the teacher's (David-Antunes/gone) pattern of driving
// namespace-scoped external processes via os/exec and scraping their
// result (internal/docker/docker-management.go's ExecContainer/
// ClearContainer), generalized here from "exec docker + nsenter" to "exec a
// namespace-scoped shell attached to a pty" via github.com/creack/pty — the
// one dependency in this repo without in-pack grounding (see DESIGN.md).
package ptysession

import (
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/creack/pty"
	"github.com/netkit-project/netkit/internal/apierr"
)

// State is the session lifecycle of spec.md §4.4.
type State int32

const (
	Spawning State = iota
	Running
	Closing
	Closed
)

// EventFunc reports state changes without Session holding a back-reference
// to whatever owns it (spec.md §9's cyclic-ownership note).
type EventFunc func(device, channelID, kind string, err error)

// Session is one PTY session: (device, channel_id), per spec.md §3.
type Session struct {
	Device    string
	ChannelID string

	ptmx *os.File
	cmd  *exec.Cmd

	state   atomic.Int32
	onEvent EventFunc

	subMu sync.Mutex
	sub   chan []byte

	graceTimer *time.Timer
	graceMu    sync.Mutex

	pumpOnce sync.Once
}

func (s *Session) State() State {
	return State(s.state.Load())
}

func (s *Session) setState(st State) {
	s.state.Store(int32(st))
}

// Write sends client input to the child. Backpressure is whatever the OS
// pty buffer gives us; Session never buffers or drops input, per spec.md
// §4.4.
func (s *Session) Write(p []byte) (int, error) {
	if s.State() != Running {
		return 0, apierr.New(apierr.Internal, "session %s/%s is not running", s.Device, s.ChannelID)
	}
	return s.ptmx.Write(p)
}

// Attach replaces the current subscriber with a fresh bounded channel of
// output chunks, cancelling any pending close-on-grace-period timer (spec.md
// §5: "On client disconnect... retains it for a grace period... so that
// reconnects reattach").
func (s *Session) Attach(bufBytes int) <-chan []byte {
	s.graceMu.Lock()
	if s.graceTimer != nil {
		s.graceTimer.Stop()
		s.graceTimer = nil
	}
	s.graceMu.Unlock()

	s.subMu.Lock()
	defer s.subMu.Unlock()
	if s.sub != nil {
		close(s.sub)
	}
	ch := make(chan []byte, bufBytes/4096+1)
	s.sub = ch
	return ch
}

// Detach drops the current subscriber without touching the child process,
// and arms a grace-period timer after which onClose is invoked if nobody
// reattaches.
func (s *Session) Detach(grace time.Duration, onClose func()) {
	s.subMu.Lock()
	if s.sub != nil {
		close(s.sub)
		s.sub = nil
	}
	s.subMu.Unlock()

	s.graceMu.Lock()
	defer s.graceMu.Unlock()
	s.graceTimer = time.AfterFunc(grace, onClose)
}

func (s *Session) deliver(chunk []byte) {
	s.subMu.Lock()
	sub := s.sub
	s.subMu.Unlock()
	if sub == nil {
		return
	}
	cp := make([]byte, len(chunk))
	copy(cp, chunk)
	select {
	case sub <- cp:
	default:
		// overflow: close the channel so the subscriber must reconnect,
		// per spec.md §5's PTY-output backpressure rule.
		s.subMu.Lock()
		if s.sub == sub {
			close(sub)
			s.sub = nil
		}
		s.subMu.Unlock()
	}
}

func (s *Session) pump() {
	s.pumpOnce.Do(func() {
		go func() {
			buf := make([]byte, 4096)
			for {
				n, err := s.ptmx.Read(buf)
				if n > 0 {
					s.deliver(buf[:n])
				}
				if err != nil {
					s.onEvent(s.Device, s.ChannelID, "child-eof", err)
					s.setState(Closing)
					return
				}
			}
		}()
	})
}

// Resize updates the kernel TTY size; the kernel delivers SIGWINCH to the
// foreground process group as a consequence (spec.md §4.4).
func (s *Session) Resize(rows, cols int) error {
	if rows == 0 || cols == 0 {
		return apierr.New(apierr.InvalidArgument, "rows and cols must be > 0")
	}
	return pty.Setsize(s.ptmx, &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)})
}

// Close signals the child, waits briefly, force-kills if needed, reaps, and
// releases the master. Safe to call more than once.
func (s *Session) Close(closeGrace time.Duration) {
	prev := s.state.Swap(int32(Closed))
	if State(prev) == Closed {
		return
	}

	if s.cmd.Process != nil {
		_ = syscall.Kill(-s.cmd.Process.Pid, syscall.SIGHUP)
		done := make(chan struct{})
		go func() { s.cmd.Wait(); close(done) }()
		select {
		case <-done:
		case <-time.After(closeGrace):
			_ = syscall.Kill(-s.cmd.Process.Pid, syscall.SIGKILL)
			<-done
		}
	}
	s.ptmx.Close()

	s.subMu.Lock()
	if s.sub != nil {
		close(s.sub)
		s.sub = nil
	}
	s.subMu.Unlock()
}
