//go:build !windows

package executor

import (
	"os/exec"
	"syscall"
)

// shellCommand builds the task process for Unix systems.
func shellCommand(command string) *exec.Cmd {
	return exec.Command("sh", "-c", command)
}

// setProcessGroup places the task in its own process group so that
// termination reaches the whole process tree, not just the shell.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// terminateProcess asks the task's process group to exit gracefully.
func terminateProcess(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGTERM)
}

// killProcess forcibly terminates the task's process group.
func killProcess(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
}
