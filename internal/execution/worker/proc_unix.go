//go:build !windows

package worker

import (
	"os/exec"
	"syscall"
)

func killProcess(cmd *exec.Cmd, force bool) error {
	signal := syscall.SIGTERM
	if force {
		signal = syscall.SIGKILL
	}

	pid := cmd.Process.Pid

	if pgid, err := syscall.Getpgid(pid); err == nil {
		// negative pid sends the signal to the whole process group
		return syscall.Kill(-pgid, signal)
	}

	return syscall.Kill(pid, signal)
}

func setProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
}
