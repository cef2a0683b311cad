//go:build !windows

package stage

import (
	"os/exec"
	"syscall"
)

// startInGroup puts the shell in its own process group and makes
// cancellation kill the whole group, so grandchildren holding the output
// pipe die with it.
func startInGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil || cmd.Process.Pid <= 0 {
			return nil
		}
		if err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL); err != nil {
			return cmd.Process.Kill()
		}
		return nil
	}
}
