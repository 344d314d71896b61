package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"

	"github.com/harrison/stagehand/internal/models"
)

// Log level constants for filtering
const (
	levelTrace int = 0
	levelDebug int = 1
	levelInfo  int = 2
	levelWarn  int = 3
	levelError int = 4
)

// ConsoleLogger logs run progress to a writer with timestamps and thread
// safety. All output is prefixed with [HH:MM:SS] timestamps for tracking run
// flow. It supports log level filtering to control message verbosity.
// Color output is automatically enabled for terminal output (os.Stdout/os.Stderr).
type ConsoleLogger struct {
	writer      io.Writer
	logLevel    string
	mutex       sync.Mutex
	colorOutput bool
}

// NewConsoleLogger creates a ConsoleLogger that writes to the provided io.Writer.
// If writer is nil, messages are silently discarded.
// logLevel determines the minimum log level for messages to be output.
// Valid levels: trace, debug, info, warn, error (case-insensitive).
// If logLevel is empty or invalid, defaults to "info".
// Color output is automatically enabled when writing to os.Stdout or os.Stderr with TTY support.
func NewConsoleLogger(writer io.Writer, logLevel string) *ConsoleLogger {
	return &ConsoleLogger{
		writer:      writer,
		logLevel:    normalizeLogLevel(logLevel),
		mutex:       sync.Mutex{},
		colorOutput: isTerminal(writer),
	}
}

// isTerminal checks if the writer is a terminal that supports colors.
// Returns true for os.Stdout and os.Stderr when they are TTYs.
func isTerminal(w io.Writer) bool {
	if w == nil {
		return false
	}

	if w == os.Stdout || w == os.Stderr {
		// The color library's detection also honors the NO_COLOR env var.
		return !color.NoColor
	}

	return false
}

// normalizeLogLevel converts a log level string to lowercase and validates it.
// Returns "info" as default for empty or invalid levels.
func normalizeLogLevel(level string) string {
	normalized := strings.ToLower(strings.TrimSpace(level))

	validLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if validLevels[normalized] {
		return normalized
	}

	return "info" // Default level
}

// shouldLog checks if a message at the given level should be logged.
// Returns true if messageLevel >= configured logLevel.
func (cl *ConsoleLogger) shouldLog(messageLevel string) bool {
	return logLevelToInt(messageLevel) >= logLevelToInt(cl.logLevel)
}

// logLevelToInt converts a log level string to its numeric value.
func logLevelToInt(level string) int {
	switch level {
	case "trace":
		return levelTrace
	case "debug":
		return levelDebug
	case "info":
		return levelInfo
	case "warn":
		return levelWarn
	case "error":
		return levelError
	default:
		return levelInfo // Default to info if unknown
	}
}

// Tracef logs a trace-level message (most verbose).
// Format: "[HH:MM:SS] [TRACE] <message>"
func (cl *ConsoleLogger) Tracef(format string, args ...interface{}) {
	cl.logWithLevel("TRACE", fmt.Sprintf(format, args...))
}

// Debugf logs a debug-level message.
// Format: "[HH:MM:SS] [DEBUG] <message>"
func (cl *ConsoleLogger) Debugf(format string, args ...interface{}) {
	cl.logWithLevel("DEBUG", fmt.Sprintf(format, args...))
}

// Infof logs an info-level message.
// Format: "[HH:MM:SS] [INFO] <message>"
func (cl *ConsoleLogger) Infof(format string, args ...interface{}) {
	cl.logWithLevel("INFO", fmt.Sprintf(format, args...))
}

// Warnf logs a warning-level message.
// Format: "[HH:MM:SS] [WARN] <message>"
func (cl *ConsoleLogger) Warnf(format string, args ...interface{}) {
	cl.logWithLevel("WARN", fmt.Sprintf(format, args...))
}

// Errorf logs an error-level message.
// Format: "[HH:MM:SS] [ERROR] <message>"
func (cl *ConsoleLogger) Errorf(format string, args ...interface{}) {
	cl.logWithLevel("ERROR", fmt.Sprintf(format, args...))
}

// logWithLevel is a helper that logs a message at the specified level if filtering allows it.
func (cl *ConsoleLogger) logWithLevel(level string, message string) {
	if cl.writer == nil {
		return
	}

	if !cl.shouldLog(strings.ToLower(level)) {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()
	var formatted string

	if cl.colorOutput {
		formatted = cl.formatWithColor(ts, level, message)
	} else {
		formatted = fmt.Sprintf("[%s] [%s] %s\n", ts, level, message)
	}

	cl.writer.Write([]byte(formatted))
}

// formatWithColor formats a log message with ANSI color codes.
func (cl *ConsoleLogger) formatWithColor(ts, level, message string) string {
	var coloredLevel string

	switch strings.ToUpper(level) {
	case "TRACE":
		coloredLevel = color.New(color.FgHiBlack).Sprint(level)
	case "DEBUG":
		coloredLevel = color.New(color.FgCyan).Sprint(level)
	case "INFO":
		coloredLevel = color.New(color.FgBlue).Sprint(level)
	case "WARN":
		coloredLevel = color.New(color.FgYellow).Sprint(level)
	case "ERROR":
		coloredLevel = color.New(color.FgRed).Sprint(level)
	default:
		coloredLevel = level
	}

	return fmt.Sprintf("[%s] [%s] %s\n", ts, coloredLevel, message)
}

// GroupStarted logs the start of a group's execution at INFO level.
// Format: "[HH:MM:SS] Starting <group>: <count> tasks"
func (cl *ConsoleLogger) GroupStarted(group string, taskCount int) {
	if cl.writer == nil {
		return
	}

	if !cl.shouldLog("info") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()

	var message string
	if cl.colorOutput {
		groupName := color.New(color.Bold).Sprint(group)
		message = fmt.Sprintf("[%s] Starting %s: %d tasks\n", ts, groupName, taskCount)
	} else {
		message = fmt.Sprintf("[%s] Starting %s: %d tasks\n", ts, group, taskCount)
	}

	cl.writer.Write([]byte(message))
}

// GroupComplete logs the completion of a group's execution at INFO level.
// Format: "[HH:MM:SS] <group> complete (<duration>)" or
// "[HH:MM:SS] <group> failed: <n> tasks (<duration>)"
func (cl *ConsoleLogger) GroupComplete(group string, duration time.Duration, failed int) {
	if cl.writer == nil {
		return
	}

	if !cl.shouldLog("info") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()
	durationStr := FormatDuration(duration)

	var message string
	switch {
	case failed > 0 && cl.colorOutput:
		groupName := color.New(color.Bold).Sprint(group)
		failedText := color.New(color.FgRed).Sprint("failed")
		message = fmt.Sprintf("[%s] %s %s: %d tasks (%s)\n", ts, groupName, failedText, failed, durationStr)
	case failed > 0:
		message = fmt.Sprintf("[%s] %s failed: %d tasks (%s)\n", ts, group, failed, durationStr)
	case cl.colorOutput:
		groupName := color.New(color.Bold).Sprint(group)
		completeText := color.New(color.FgGreen).Sprint("complete")
		message = fmt.Sprintf("[%s] %s %s (%s)\n", ts, groupName, completeText, durationStr)
	default:
		message = fmt.Sprintf("[%s] %s complete (%s)\n", ts, group, durationStr)
	}

	cl.writer.Write([]byte(message))
}

// TaskStarted logs the dispatch of a task at DEBUG level.
// Format: "[HH:MM:SS] Task <id> (<group>): <command> [<n> files]"
func (cl *ConsoleLogger) TaskStarted(task models.Task) {
	cl.Debugf("Task %s (%s): %s [%d files]", task.ID, task.Group, task.Command, len(task.Targets))
}

// TaskCompleted logs the completion of a task at DEBUG level.
// Format: "[HH:MM:SS] Task <id> (<group>): <status>"
func (cl *ConsoleLogger) TaskCompleted(task models.Task) {
	if cl.writer == nil {
		return
	}

	if !cl.shouldLog("debug") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()
	taskInfo := fmt.Sprintf("Task %s (%s)", task.ID, task.Group)

	var message string
	if cl.colorOutput {
		var statusText string
		switch task.Status {
		case models.StatusDone:
			statusText = color.New(color.FgGreen).Sprint("Done")
		case models.StatusFailed:
			statusText = color.New(color.FgRed).Sprint("Failed")
		case models.StatusTimedOut:
			statusText = color.New(color.FgRed).Sprint("TimedOut")
		case models.StatusSkipped:
			statusText = color.New(color.FgYellow).Sprint("Skipped")
		default:
			statusText = task.Status.String()
		}
		message = fmt.Sprintf("[%s] %s: %s\n", ts, taskInfo, statusText)
	} else {
		message = fmt.Sprintf("[%s] %s: %s\n", ts, taskInfo, task.Status)
	}

	cl.writer.Write([]byte(message))
}

// RunComplete logs the run summary with completion statistics at INFO level.
func (cl *ConsoleLogger) RunComplete(result *models.RunResult) {
	if cl.writer == nil || result == nil {
		return
	}

	if !cl.shouldLog("info") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()
	counts := result.StatusCounts()
	durationStr := FormatDuration(result.Duration)

	var output string

	if cl.colorOutput {
		header := color.New(color.Bold).Sprint("=== Run Summary ===")
		output = fmt.Sprintf("[%s] %s\n", ts, header)
		output += fmt.Sprintf("[%s] Total tasks: %d\n", ts, len(result.Tasks))
		output += fmt.Sprintf("[%s] %s\n", ts, formatColorizedStatusCounts(counts))
		output += fmt.Sprintf("[%s] %s\n", ts, formatColorizedMetric("duration", durationStr, newColorScheme()))

		if failed := result.FailedTasks(); len(failed) > 0 {
			failedHeader := color.New(color.FgRed).Sprint("Failed tasks:")
			output += fmt.Sprintf("[%s] %s\n", ts, failedHeader)
			for _, task := range failed {
				taskName := color.New(color.FgRed).Sprint(task.ID)
				output += fmt.Sprintf("[%s]   - %s (%s): %s\n", ts, taskName, task.Group, task.Status)
			}
		}
	} else {
		output = fmt.Sprintf("[%s] === Run Summary ===\n", ts)
		output += fmt.Sprintf("[%s] Total tasks: %d\n", ts, len(result.Tasks))
		output += fmt.Sprintf("[%s] Done: %d\n", ts, counts[models.StatusDone])
		output += fmt.Sprintf("[%s] Failed: %d\n", ts, counts[models.StatusFailed]+counts[models.StatusTimedOut])
		output += fmt.Sprintf("[%s] Skipped: %d\n", ts, counts[models.StatusSkipped])
		output += fmt.Sprintf("[%s] Duration: %s\n", ts, durationStr)

		if failed := result.FailedTasks(); len(failed) > 0 {
			output += fmt.Sprintf("[%s] Failed tasks:\n", ts)
			for _, task := range failed {
				output += fmt.Sprintf("[%s]   - %s (%s): %s\n", ts, task.ID, task.Group, task.Status)
			}
		}
	}

	if result.Cancelled {
		output += fmt.Sprintf("[%s] Run cancelled\n", ts)
	}
	for _, restoreErr := range result.RestoreErrors {
		output += fmt.Sprintf("[%s] Rollback failure: %s\n", ts, restoreErr)
	}

	cl.writer.Write([]byte(output))
}

// timestamp returns the current time formatted as "15:04:05" (HH:MM:SS).
func timestamp() string {
	return time.Now().Format("15:04:05")
}

// FormatDuration converts a time.Duration to a human-readable string.
// Examples: "450ms", "1.5s", "1m30s", "2h15m"
func FormatDuration(d time.Duration) string {
	switch {
	case d >= time.Hour:
		hours := d / time.Hour
		remainder := d % time.Hour
		if remainder == 0 {
			return fmt.Sprintf("%dh", hours)
		}
		minutes := remainder / time.Minute
		remainder = remainder % time.Minute
		if remainder == 0 {
			return fmt.Sprintf("%dh%dm", hours, minutes)
		}
		seconds := remainder / time.Second
		return fmt.Sprintf("%dh%dm%ds", hours, minutes, seconds)
	case d >= time.Minute:
		minutes := d / time.Minute
		remainder := d % time.Minute
		if remainder == 0 {
			return fmt.Sprintf("%dm", minutes)
		}
		seconds := remainder / time.Second
		return fmt.Sprintf("%dm%ds", minutes, seconds)
	case d >= time.Second:
		seconds := d / time.Second
		remainder := d % time.Second
		millis := remainder / time.Millisecond
		if millis == 0 {
			return fmt.Sprintf("%ds", seconds)
		}
		return fmt.Sprintf("%d.%01ds", seconds, millis/100)
	default:
		return fmt.Sprintf("%dms", d/time.Millisecond)
	}
}

var _ Logger = (*ConsoleLogger)(nil)
