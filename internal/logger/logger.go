// Package logger provides logging implementations for stagehand runs.
//
// The logger package offers leveled logging of run progress at the group and
// summary levels. Implementations are thread-safe and support various output
// destinations (console, file, etc.).
package logger

import (
	"time"

	"github.com/harrison/stagehand/internal/models"
)

// Logger is the leveled logging interface shared by the console and file
// implementations. The domain helpers format run milestones consistently
// across destinations.
type Logger interface {
	Tracef(format string, args ...interface{})
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})

	GroupStarted(group string, taskCount int)
	GroupComplete(group string, duration time.Duration, failed int)
	TaskStarted(task models.Task)
	TaskCompleted(task models.Task)
	RunComplete(result *models.RunResult)
}

// NoOpLogger is a Logger implementation that discards all log messages.
// Useful for testing or when logging is disabled.
type NoOpLogger struct{}

// NewNoOpLogger creates a NoOpLogger instance.
func NewNoOpLogger() *NoOpLogger {
	return &NoOpLogger{}
}

func (n *NoOpLogger) Tracef(format string, args ...interface{}) {}
func (n *NoOpLogger) Debugf(format string, args ...interface{}) {}
func (n *NoOpLogger) Infof(format string, args ...interface{})  {}
func (n *NoOpLogger) Warnf(format string, args ...interface{})  {}
func (n *NoOpLogger) Errorf(format string, args ...interface{}) {}

func (n *NoOpLogger) GroupStarted(group string, taskCount int) {}

func (n *NoOpLogger) GroupComplete(group string, duration time.Duration, failed int) {}

func (n *NoOpLogger) TaskStarted(task models.Task) {}

func (n *NoOpLogger) TaskCompleted(task models.Task) {}

func (n *NoOpLogger) RunComplete(result *models.RunResult) {}

// MultiLogger fans every call out to a set of loggers, so a run can log to
// the console and a file at the same time.
type MultiLogger struct {
	loggers []Logger
}

// NewMultiLogger creates a MultiLogger over the given loggers. Nil entries
// are skipped.
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	ml := &MultiLogger{}
	for _, l := range loggers {
		if l != nil {
			ml.loggers = append(ml.loggers, l)
		}
	}
	return ml
}

func (m *MultiLogger) Tracef(format string, args ...interface{}) {
	for _, l := range m.loggers {
		l.Tracef(format, args...)
	}
}

func (m *MultiLogger) Debugf(format string, args ...interface{}) {
	for _, l := range m.loggers {
		l.Debugf(format, args...)
	}
}

func (m *MultiLogger) Infof(format string, args ...interface{}) {
	for _, l := range m.loggers {
		l.Infof(format, args...)
	}
}

func (m *MultiLogger) Warnf(format string, args ...interface{}) {
	for _, l := range m.loggers {
		l.Warnf(format, args...)
	}
}

func (m *MultiLogger) Errorf(format string, args ...interface{}) {
	for _, l := range m.loggers {
		l.Errorf(format, args...)
	}
}

func (m *MultiLogger) GroupStarted(group string, taskCount int) {
	for _, l := range m.loggers {
		l.GroupStarted(group, taskCount)
	}
}

func (m *MultiLogger) GroupComplete(group string, duration time.Duration, failed int) {
	for _, l := range m.loggers {
		l.GroupComplete(group, duration, failed)
	}
}

func (m *MultiLogger) TaskStarted(task models.Task) {
	for _, l := range m.loggers {
		l.TaskStarted(task)
	}
}

func (m *MultiLogger) TaskCompleted(task models.Task) {
	for _, l := range m.loggers {
		l.TaskCompleted(task)
	}
}

func (m *MultiLogger) RunComplete(result *models.RunResult) {
	for _, l := range m.loggers {
		l.RunComplete(result)
	}
}

var (
	_ Logger = (*NoOpLogger)(nil)
	_ Logger = (*MultiLogger)(nil)
)
