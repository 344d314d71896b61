package models

import "time"

// Task is one schedulable unit: a command paired with the file targets it
// runs over. Tasks are created by the planner, mutated only by the execution
// engine, and published to every other component as read-only copies through
// the status store.
type Task struct {
	ID         string        // Unique within a run
	Group      string        // Owning group name
	Command    string        // Command line, run via sh -c with targets appended
	Targets    []string      // Ordered file paths; exactly one under per-file behavior
	Status     CommandStatus // Current lifecycle state
	SkipReason string        // Populated only when Status is StatusSkipped
	StartedAt  *time.Time    // Nil until dispatch
	EndedAt    *time.Time    // Nil until terminal
	Stdout     string        // Captured output, truncated at the engine's retention cap
	Stderr     string        // Captured error output, same cap
	ExitCode   *int          // Nil when the process never ran or was killed before exiting
}

// Duration returns the wall-clock time between dispatch and completion, or 0
// when either end is unset.
func (t *Task) Duration() time.Duration {
	if t.StartedAt == nil || t.EndedAt == nil {
		return 0
	}
	return t.EndedAt.Sub(*t.StartedAt)
}

// Succeeded reports whether the task reached StatusDone.
func (t *Task) Succeeded() bool {
	return t.Status == StatusDone
}

// Failed reports whether the task ended in a failing state.
func (t *Task) Failed() bool {
	return t.Status == StatusFailed || t.Status == StatusTimedOut
}

// Clone returns a deep copy that is safe to hand to readers while the engine
// keeps mutating the original.
func (t *Task) Clone() *Task {
	out := *t
	out.Targets = append([]string(nil), t.Targets...)
	if t.StartedAt != nil {
		started := *t.StartedAt
		out.StartedAt = &started
	}
	if t.EndedAt != nil {
		ended := *t.EndedAt
		out.EndedAt = &ended
	}
	if t.ExitCode != nil {
		code := *t.ExitCode
		out.ExitCode = &code
	}
	return &out
}
