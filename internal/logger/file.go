package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/harrison/stagehand/internal/models"
)

// FileLogger logs run events to a single log file. It writes timestamped
// lines in the same shape as the console logger, without color, and appends
// captured task output for failed tasks so the file stands alone as a run
// record. It is thread-safe.
type FileLogger struct {
	path     string
	file     *os.File
	logLevel string
	mu       sync.Mutex
}

// NewFileLogger creates a FileLogger appending to the file at path, creating
// the file and any parent directories as needed.
// logLevel behaves as in NewConsoleLogger, defaulting to "info".
func NewFileLogger(path string, logLevel string) (*FileLogger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	fl := &FileLogger{
		path:     path,
		file:     file,
		logLevel: normalizeLogLevel(logLevel),
	}

	fl.write(fmt.Sprintf("=== stagehand run log ===\nStarted at: %s\n\n", time.Now().Format(time.RFC3339)))
	return fl, nil
}

// Close flushes and closes the log file. The logger must not be used after
// Close.
func (fl *FileLogger) Close() error {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.file == nil {
		return nil
	}
	err := fl.file.Close()
	fl.file = nil
	return err
}

// Path returns the log file location.
func (fl *FileLogger) Path() string {
	return fl.path
}

func (fl *FileLogger) shouldLog(messageLevel string) bool {
	return logLevelToInt(messageLevel) >= logLevelToInt(fl.logLevel)
}

func (fl *FileLogger) write(s string) {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.file == nil {
		return
	}
	fl.file.WriteString(s)
}

func (fl *FileLogger) logWithLevel(level string, message string) {
	if !fl.shouldLog(strings.ToLower(level)) {
		return
	}
	fl.write(fmt.Sprintf("[%s] [%s] %s\n", timestamp(), level, message))
}

// Tracef logs a trace-level message (most verbose).
func (fl *FileLogger) Tracef(format string, args ...interface{}) {
	fl.logWithLevel("TRACE", fmt.Sprintf(format, args...))
}

// Debugf logs a debug-level message.
func (fl *FileLogger) Debugf(format string, args ...interface{}) {
	fl.logWithLevel("DEBUG", fmt.Sprintf(format, args...))
}

// Infof logs an info-level message.
func (fl *FileLogger) Infof(format string, args ...interface{}) {
	fl.logWithLevel("INFO", fmt.Sprintf(format, args...))
}

// Warnf logs a warning-level message.
func (fl *FileLogger) Warnf(format string, args ...interface{}) {
	fl.logWithLevel("WARN", fmt.Sprintf(format, args...))
}

// Errorf logs an error-level message.
func (fl *FileLogger) Errorf(format string, args ...interface{}) {
	fl.logWithLevel("ERROR", fmt.Sprintf(format, args...))
}

// GroupStarted logs the start of a group's execution at INFO level.
func (fl *FileLogger) GroupStarted(group string, taskCount int) {
	if !fl.shouldLog("info") {
		return
	}
	fl.write(fmt.Sprintf("[%s] Starting %s: %d tasks\n", timestamp(), group, taskCount))
}

// GroupComplete logs the completion of a group's execution at INFO level.
func (fl *FileLogger) GroupComplete(group string, duration time.Duration, failed int) {
	if !fl.shouldLog("info") {
		return
	}
	if failed > 0 {
		fl.write(fmt.Sprintf("[%s] %s failed: %d tasks (%s)\n", timestamp(), group, failed, FormatDuration(duration)))
		return
	}
	fl.write(fmt.Sprintf("[%s] %s complete (%s)\n", timestamp(), group, FormatDuration(duration)))
}

// TaskStarted logs the dispatch of a task at DEBUG level.
func (fl *FileLogger) TaskStarted(task models.Task) {
	fl.Debugf("Task %s (%s): %s [%d files]", task.ID, task.Group, task.Command, len(task.Targets))
}

// TaskCompleted logs a task's final status at DEBUG level, with captured
// output appended for failing tasks.
func (fl *FileLogger) TaskCompleted(task models.Task) {
	if !fl.shouldLog("debug") {
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] Task %s (%s): %s\n", timestamp(), task.ID, task.Group, task.Status)
	if task.Failed() {
		if task.ExitCode != nil {
			fmt.Fprintf(&b, "  exit code: %d\n", *task.ExitCode)
		}
		if out := strings.TrimSpace(task.Stdout); out != "" {
			fmt.Fprintf(&b, "  stdout:\n%s\n", indent(out))
		}
		if out := strings.TrimSpace(task.Stderr); out != "" {
			fmt.Fprintf(&b, "  stderr:\n%s\n", indent(out))
		}
	}
	fl.write(b.String())
}

// RunComplete logs the run summary at INFO level.
func (fl *FileLogger) RunComplete(result *models.RunResult) {
	if result == nil || !fl.shouldLog("info") {
		return
	}

	ts := timestamp()
	counts := result.StatusCounts()

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] === Run Summary ===\n", ts)
	fmt.Fprintf(&b, "[%s] Total tasks: %d\n", ts, len(result.Tasks))
	fmt.Fprintf(&b, "[%s] Done: %d\n", ts, counts[models.StatusDone])
	fmt.Fprintf(&b, "[%s] Failed: %d\n", ts, counts[models.StatusFailed]+counts[models.StatusTimedOut])
	fmt.Fprintf(&b, "[%s] Skipped: %d\n", ts, counts[models.StatusSkipped])
	fmt.Fprintf(&b, "[%s] Duration: %s\n", ts, FormatDuration(result.Duration))

	if failed := result.FailedTasks(); len(failed) > 0 {
		fmt.Fprintf(&b, "[%s] Failed tasks:\n", ts)
		for _, task := range failed {
			fmt.Fprintf(&b, "[%s]   - %s (%s): %s\n", ts, task.ID, task.Group, task.Status)
		}
	}
	if result.Cancelled {
		fmt.Fprintf(&b, "[%s] Run cancelled\n", ts)
	}
	for _, restoreErr := range result.RestoreErrors {
		fmt.Fprintf(&b, "[%s] Rollback failure: %s\n", ts, restoreErr)
	}

	fl.write(b.String())
}

// indent prefixes every line with four spaces for readable nested output.
func indent(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = "    " + line
	}
	return strings.Join(lines, "\n")
}

var _ Logger = (*FileLogger)(nil)
