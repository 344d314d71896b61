//go:build windows

package executor

import "os/exec"

// shellCommand builds the task process for Windows systems.
func shellCommand(command string) *exec.Cmd {
	return exec.Command("cmd", "/c", command)
}

// setProcessGroup is a no-op on Windows where Setpgid is not available.
func setProcessGroup(cmd *exec.Cmd) {
}

// terminateProcess kills the process. Windows has no graceful signal, so
// termination and force-kill collapse into the same operation.
func terminateProcess(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	_ = cmd.Process.Kill()
}

// killProcess forcibly terminates the process.
func killProcess(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	_ = cmd.Process.Kill()
}
