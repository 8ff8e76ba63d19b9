package nsmgr

import (
	"os/exec"

	"github.com/netkit-project/netkit/internal/apierr"
)

// setForwarding flips net.ipv4.ip_forward inside namespace name. A network
// namespace's /proc/sys/net tree is only visible to a process actually
// running inside it, so this shells out the same way the teacher's
// docker-management.go drives nsenter/docker as external processes.
func setForwarding(name string, enabled bool) error {
	value := "0"
	if enabled {
		value = "1"
	}
	cmd := exec.Command("ip", "netns", "exec", name, "sysctl", "-w", "net.ipv4.ip_forward="+value)
	if out, err := cmd.CombinedOutput(); err != nil {
		return apierr.New(apierr.KernelError, "set ip_forward on %q: %s: %s", name, err, out)
	}
	return nil
}
