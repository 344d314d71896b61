package models

import "fmt"

// CommandStatus represents the lifecycle state of a task's command.
// The zero value is StatusPending.
type CommandStatus int

const (
	// StatusPending indicates the task has been planned but not dispatched.
	StatusPending CommandStatus = iota
	// StatusRunning indicates the task's process is executing.
	StatusRunning
	// StatusDone indicates the process exited zero.
	StatusDone
	// StatusFailed indicates the process exited non-zero or could not start.
	StatusFailed
	// StatusTimedOut indicates the process was terminated after exceeding its timeout.
	StatusTimedOut
	// StatusSkipped indicates the task was never dispatched: a predecessor in a
	// sequential group failed, or the run was cancelled first.
	StatusSkipped
)

// String returns the display name of the status.
func (s CommandStatus) String() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusRunning:
		return "Running"
	case StatusDone:
		return "Done"
	case StatusFailed:
		return "Failed"
	case StatusTimedOut:
		return "TimedOut"
	case StatusSkipped:
		return "Skipped"
	default:
		return fmt.Sprintf("CommandStatus(%d)", int(s))
	}
}

// IsTerminal reports whether the status is final. A terminal task never
// transitions again.
func (s CommandStatus) IsTerminal() bool {
	switch s {
	case StatusDone, StatusFailed, StatusTimedOut, StatusSkipped:
		return true
	default:
		return false
	}
}

// ValidTransition reports whether a task may move between the two statuses.
// Statuses are monotonic: Pending -> Running -> {Done, Failed, TimedOut},
// Pending -> Skipped, and Pending -> Failed for commands that cannot start.
func ValidTransition(from, to CommandStatus) bool {
	switch from {
	case StatusPending:
		return to == StatusRunning || to == StatusSkipped || to == StatusFailed
	case StatusRunning:
		return to == StatusDone || to == StatusFailed || to == StatusTimedOut
	default:
		return false
	}
}
