package executor

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestTaskError_Error(t *testing.T) {
	err := NewTaskError("fmt-0", "execution failed", errors.New("exit status 1"))

	want := "task fmt-0: execution failed: exit status 1"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if err.Timestamp.IsZero() {
		t.Error("expected timestamp to be set")
	}
}

func TestTaskError_ErrorWithoutCause(t *testing.T) {
	err := NewTaskError("fmt-0", "command not executable", nil)

	want := "task fmt-0: command not executable"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestTaskError_Unwrap(t *testing.T) {
	cause := errors.New("underlying")
	err := NewTaskError("fmt-0", "failed", cause)

	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the cause")
	}
}

func TestTimeoutError_UnwrapsDeadlineExceeded(t *testing.T) {
	err := NewTimeoutError("fmt-0", 100*time.Millisecond)

	if err.Error() != "task fmt-0: timeout after 100ms" {
		t.Errorf("unexpected message %q", err.Error())
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("expected TimeoutError to wrap context.DeadlineExceeded")
	}
}

func TestIsTaskError(t *testing.T) {
	if IsTaskError(nil) {
		t.Error("nil is not a task error")
	}
	if IsTaskError(errors.New("plain")) {
		t.Error("plain error is not a task error")
	}

	wrapped := fmt.Errorf("dispatch: %w", NewTaskError("fmt-0", "failed", nil))
	if !IsTaskError(wrapped) {
		t.Error("expected wrapped TaskError to be detected")
	}
}

func TestIsTimeoutError(t *testing.T) {
	if IsTimeoutError(nil) {
		t.Error("nil is not a timeout")
	}
	if !IsTimeoutError(NewTimeoutError("fmt-0", time.Second)) {
		t.Error("expected TimeoutError to be detected")
	}
	if !IsTimeoutError(context.DeadlineExceeded) {
		t.Error("expected bare DeadlineExceeded to be detected")
	}
	if IsTimeoutError(context.Canceled) {
		t.Error("cancellation is not a timeout")
	}
}

func TestIsCommandNotFound(t *testing.T) {
	wrapped := fmt.Errorf("%w: eslint", ErrCommandNotFound)
	if !IsCommandNotFound(wrapped) {
		t.Error("expected wrapped ErrCommandNotFound to be detected")
	}
	if IsCommandNotFound(errors.New("other")) {
		t.Error("unrelated error must not match")
	}
}
