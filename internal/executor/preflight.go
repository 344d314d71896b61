package executor

import (
	"fmt"
	"os/exec"
	"strings"
)

// LookPath abstracts binary resolution on PATH so tests can fake lookups.
type LookPath func(file string) (string, error)

// commandBinary returns the executable a command line is expected to
// resolve. A command already routed through the shell is checked for the
// shell itself.
func commandBinary(command string) string {
	if strings.HasPrefix(command, "sh -c") {
		return "sh"
	}
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return command
	}
	return fields[0]
}

// CheckCommand verifies that the command's binary can be resolved on PATH.
// Returns a wrapped ErrCommandNotFound when resolution fails.
func CheckCommand(command string, lookPath LookPath) error {
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	binary := commandBinary(command)
	if _, err := lookPath(binary); err != nil {
		return fmt.Errorf("%w: %s", ErrCommandNotFound, binary)
	}
	return nil
}
