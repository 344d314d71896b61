package cmd

import "errors"

// Process exit codes. Task outcomes map through models.RunResult.ExitCode;
// the remaining codes distinguish failures that abort before any task runs.
const (
	exitTaskFailure   = 1
	exitConfigInvalid = 2
	exitNotARepo      = 3
	exitNoStagedFiles = 4
	exitEmptyMatch    = 5
	exitCancelled     = 130
)

// exitError pairs an error with the process exit code it should produce.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

// withExitCode wraps err so ExitCode reports code for it.
func withExitCode(code int, err error) error {
	return &exitError{code: code, err: err}
}

// ExitCode maps a command error to a process exit code. nil maps to 0 and
// errors without an explicit code map to 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return 1
}
