package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const (
	// DefaultGracePeriod is how long a terminated process may keep running
	// after the graceful signal before it is force-killed.
	DefaultGracePeriod = 5 * time.Second

	// DefaultMaxCapturedOutput bounds retained stdout/stderr per stream.
	DefaultMaxCapturedOutput = 1 << 20
)

// truncationMarker is appended to captured output that exceeded the cap.
const truncationMarker = "\n... (output truncated)"

// ProcessResult holds the observable outcome of one task process.
type ProcessResult struct {
	Stdout   string
	Stderr   string
	ExitCode int // -1 when the process was terminated by a signal
	TimedOut bool
}

// ProcessRunner spawns task commands through the system shell. Timeout and
// cancellation share one termination path: graceful signal, bounded grace
// period, force kill.
type ProcessRunner struct {
	WorkDir     string        // Working directory for commands (empty = current dir)
	GracePeriod time.Duration // Zero selects DefaultGracePeriod
	MaxOutput   int           // Per-stream capture cap; zero selects DefaultMaxCapturedOutput
	Env         []string      // Process environment (nil = inherit)
}

// NewProcessRunner creates a runner rooted at workDir.
func NewProcessRunner(workDir string) *ProcessRunner {
	return &ProcessRunner{WorkDir: workDir}
}

// Run executes command with targets appended as shell-quoted arguments and
// waits for it to settle. A timeout of zero means unbounded. The returned
// error covers spawn failures only; a non-zero exit or timeout is reported
// through the result, not the error.
func (r *ProcessRunner) Run(ctx context.Context, command string, targets []string, timeout time.Duration) (ProcessResult, error) {
	runCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	grace := r.GracePeriod
	if grace <= 0 {
		grace = DefaultGracePeriod
	}
	maxOutput := r.MaxOutput
	if maxOutput <= 0 {
		maxOutput = DefaultMaxCapturedOutput
	}

	cmd := shellCommand(resolveCommandLine(command, targets))
	if r.WorkDir != "" {
		cmd.Dir = r.WorkDir
	}
	if r.Env != nil {
		cmd.Env = r.Env
	}
	setProcessGroup(cmd)

	// Bound the post-kill wait on the output pipes so an orphaned grandchild
	// holding stdout open cannot stall the run.
	cmd.WaitDelay = grace

	stdout := &capWriter{max: maxOutput}
	stderr := &capWriter{max: maxOutput}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return ProcessResult{ExitCode: -1}, fmt.Errorf("failed to start command: %w", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	var waitErr error
	select {
	case waitErr = <-done:
	case <-runCtx.Done():
		terminateProcess(cmd)
		select {
		case waitErr = <-done:
		case <-time.After(grace):
			killProcess(cmd)
			waitErr = <-done
		}
	}

	result := ProcessResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		TimedOut: errors.Is(runCtx.Err(), context.DeadlineExceeded),
	}

	switch {
	case waitErr == nil:
		result.ExitCode = 0
	default:
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		} else {
			result.ExitCode = -1
			return result, fmt.Errorf("failed to wait for command: %w", waitErr)
		}
	}

	return result, nil
}

// resolveCommandLine appends the task's targets to the configured command as
// individually quoted shell arguments.
func resolveCommandLine(command string, targets []string) string {
	if len(targets) == 0 {
		return command
	}
	var sb strings.Builder
	sb.WriteString(command)
	for _, target := range targets {
		sb.WriteByte(' ')
		sb.WriteString(shellQuote(target))
	}
	return sb.String()
}

// shellQuote wraps the argument in single quotes when it contains anything
// the shell would interpret.
func shellQuote(arg string) string {
	if arg == "" {
		return "''"
	}
	safe := true
	for _, r := range arg {
		if !(r == '.' || r == '/' || r == '-' || r == '_' ||
			r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			safe = false
			break
		}
	}
	if safe {
		return arg
	}
	return "'" + strings.ReplaceAll(arg, "'", `'\''`) + "'"
}

// capWriter retains the first max bytes written and discards the rest.
// Write never errors so the child process never observes a broken pipe.
type capWriter struct {
	buf       bytes.Buffer
	max       int
	truncated bool
}

func (w *capWriter) Write(p []byte) (int, error) {
	remaining := w.max - w.buf.Len()
	switch {
	case remaining >= len(p):
		w.buf.Write(p)
	case remaining > 0:
		w.buf.Write(p[:remaining])
		w.truncated = true
	default:
		if len(p) > 0 {
			w.truncated = true
		}
	}
	return len(p), nil
}

func (w *capWriter) String() string {
	if w.truncated {
		return w.buf.String() + truncationMarker
	}
	return w.buf.String()
}
