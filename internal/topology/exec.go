package topology

import (
	"bytes"
	"context"
	"os/exec"

	"github.com/netkit-project/netkit/internal/apierr"
)

// ExecResult is the outcome of a one-shot command-execution verb, per
// spec.md §4.7/§9: the server spawns argv directly, with no shell parsing.
type ExecResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// ExecCommand spawns argv[0] with the remaining args inside device's
// namespace and waits (bounded by ctx) for it to finish.
func (m *Manager) ExecCommand(ctx context.Context, device string, argv []string) (*ExecResult, error) {
	if len(argv) == 0 {
		return nil, apierr.New(apierr.InvalidArgument, "argv must not be empty")
	}
	if _, err := m.getDevice(device); err != nil {
		return nil, err
	}

	full := append([]string{"netns", "exec", device}, argv...)
	cmd := exec.CommandContext(ctx, "ip", full...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	exitCode := 0
	if err != nil {
		if ctx.Err() != nil {
			return nil, apierr.New(apierr.Timeout, "command exceeded deadline: %v", argv)
		}
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return nil, apierr.New(apierr.KernelError, "exec %v in %q: %s", argv, device, err)
		}
	}

	return &ExecResult{ExitCode: exitCode, Stdout: stdout.String(), Stderr: stderr.String()}, nil
}
