//go:build unix

package bridge

import (
	"os/exec"
	"syscall"
)

// killGroup runs the child in its own process group and kills the whole
// group on cancellation so grandchildren do not outlive a timeout.
func killGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
