package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrCommandNotFound indicates a task's command binary could not be resolved
// on PATH. The task fails without ever running; the run continues.
var ErrCommandNotFound = errors.New("command not found")

// TaskError represents an error that occurred while dispatching or running
// a single task. It includes context about which task failed and when.
type TaskError struct {
	TaskID    string    // ID of the task that failed
	Message   string    // Human-readable error message
	Err       error     // Underlying error (optional)
	Timestamp time.Time // When the error occurred
}

// NewTaskError creates a new TaskError with the current timestamp.
func NewTaskError(id, msg string, err error) *TaskError {
	return &TaskError{
		TaskID:    id,
		Message:   msg,
		Err:       err,
		Timestamp: time.Now(),
	}
}

// Error implements the error interface for TaskError.
func (e *TaskError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("task %s: %s", e.TaskID, e.Message))
	if e.Err != nil {
		sb.WriteString(fmt.Sprintf(": %v", e.Err))
	}
	return sb.String()
}

// Unwrap returns the underlying error for error wrapping support.
func (e *TaskError) Unwrap() error {
	return e.Err
}

// TimeoutError represents a task exceeding its effective timeout.
type TimeoutError struct {
	TaskID    string        // ID of the task that timed out
	Timeout   time.Duration // Effective timeout that was exceeded
	Timestamp time.Time     // When the timeout occurred
}

// NewTimeoutError creates a new TimeoutError with the current timestamp.
func NewTimeoutError(id string, timeout time.Duration) *TimeoutError {
	return &TimeoutError{
		TaskID:    id,
		Timeout:   timeout,
		Timestamp: time.Now(),
	}
}

// Error implements the error interface for TimeoutError.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("task %s: timeout after %v", e.TaskID, e.Timeout)
}

// Unwrap returns context.DeadlineExceeded to support error wrapping.
func (e *TimeoutError) Unwrap() error {
	return context.DeadlineExceeded
}

// IsTaskError checks if the error is or wraps a TaskError.
func IsTaskError(err error) bool {
	if err == nil {
		return false
	}
	var te *TaskError
	return errors.As(err, &te)
}

// IsTimeoutError checks if the error is or wraps a TimeoutError or
// context.DeadlineExceeded.
func IsTimeoutError(err error) bool {
	if err == nil {
		return false
	}
	var te *TimeoutError
	if errors.As(err, &te) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// IsCommandNotFound checks if the error is or wraps ErrCommandNotFound.
func IsCommandNotFound(err error) bool {
	return errors.Is(err, ErrCommandNotFound)
}
