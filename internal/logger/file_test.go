package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/harrison/stagehand/internal/models"
)

// readLog reads the log file back for assertions, closing the logger first.
func readLog(t *testing.T, fl *FileLogger) string {
	t.Helper()

	if err := fl.Close(); err != nil {
		t.Fatalf("close log: %v", err)
	}
	data, err := os.ReadFile(fl.Path())
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	return string(data)
}

// TestNewFileLogger verifies the log file is created with a header, inside
// parent directories that may not exist yet.
func TestNewFileLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "nested", "run.log")

	fl, err := NewFileLogger(path, "info")
	if err != nil {
		t.Fatalf("NewFileLogger: %v", err)
	}
	if fl.Path() != path {
		t.Errorf("Path() = %q, want %q", fl.Path(), path)
	}

	content := readLog(t, fl)
	if !strings.HasPrefix(content, "=== stagehand run log ===\n") {
		t.Errorf("expected header, got %q", content)
	}
	if !strings.Contains(content, "Started at: ") {
		t.Errorf("expected start timestamp, got %q", content)
	}
}

// TestFileLoggerAppends verifies a second logger on the same path appends
// rather than truncating.
func TestFileLoggerAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")

	first, err := NewFileLogger(path, "info")
	if err != nil {
		t.Fatalf("NewFileLogger: %v", err)
	}
	first.Infof("first run")
	if err := first.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	second, err := NewFileLogger(path, "info")
	if err != nil {
		t.Fatalf("NewFileLogger: %v", err)
	}
	second.Infof("second run")

	content := readLog(t, second)
	if !strings.Contains(content, "first run") || !strings.Contains(content, "second run") {
		t.Errorf("expected both runs in log, got %q", content)
	}
}

// TestFileLoggerLevelFiltering verifies messages below the configured level
// never reach the file.
func TestFileLoggerLevelFiltering(t *testing.T) {
	fl, err := NewFileLogger(filepath.Join(t.TempDir(), "run.log"), "warn")
	if err != nil {
		t.Fatalf("NewFileLogger: %v", err)
	}

	fl.Debugf("hidden debug")
	fl.Infof("hidden info")
	fl.Warnf("visible warn")
	fl.TaskCompleted(models.Task{ID: "fmt-0", Group: "fmt", Status: models.StatusDone})
	fl.GroupStarted("fmt", 2)

	content := readLog(t, fl)
	if strings.Contains(content, "hidden") {
		t.Errorf("expected filtered messages to be absent, got %q", content)
	}
	if !strings.Contains(content, "[WARN] visible warn") {
		t.Errorf("expected warn message, got %q", content)
	}
	if strings.Contains(content, "Task fmt-0") || strings.Contains(content, "Starting fmt") {
		t.Errorf("expected debug and info domain events filtered, got %q", content)
	}
}

// TestFileLoggerTaskCompleted verifies failed tasks get their captured output
// embedded in the log.
func TestFileLoggerTaskCompleted(t *testing.T) {
	fl, err := NewFileLogger(filepath.Join(t.TempDir(), "run.log"), "debug")
	if err != nil {
		t.Fatalf("NewFileLogger: %v", err)
	}

	exitCode := 2
	fl.TaskCompleted(models.Task{
		ID:       "lint-0",
		Group:    "lint",
		Status:   models.StatusFailed,
		ExitCode: &exitCode,
		Stdout:   "checking main.go\n",
		Stderr:   "main.go:10: unused variable\nmain.go:12: shadowed err\n",
	})
	fl.TaskCompleted(models.Task{
		ID:     "fmt-0",
		Group:  "fmt",
		Status: models.StatusDone,
		Stdout: "should not appear",
	})

	content := readLog(t, fl)
	for _, want := range []string{
		"Task lint-0 (lint): Failed",
		"  exit code: 2",
		"  stdout:\n    checking main.go",
		"  stderr:\n    main.go:10: unused variable\n    main.go:12: shadowed err",
		"Task fmt-0 (fmt): Done",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("expected log to contain %q, got:\n%s", want, content)
		}
	}
	if strings.Contains(content, "should not appear") {
		t.Error("expected successful task output to be omitted")
	}
}

// TestFileLoggerRunComplete verifies the summary block is written.
func TestFileLoggerRunComplete(t *testing.T) {
	fl, err := NewFileLogger(filepath.Join(t.TempDir(), "run.log"), "info")
	if err != nil {
		t.Fatalf("NewFileLogger: %v", err)
	}

	fl.GroupStarted("fmt", 1)
	fl.GroupComplete("fmt", 250*time.Millisecond, 0)
	fl.RunComplete(&models.RunResult{
		Tasks: []models.Task{
			{ID: "fmt-0", Group: "fmt", Status: models.StatusDone},
		},
		Duration: 250 * time.Millisecond,
	})

	content := readLog(t, fl)
	for _, want := range []string{
		"Starting fmt: 1 tasks",
		"fmt complete (250ms)",
		"=== Run Summary ===",
		"Total tasks: 1",
		"Done: 1",
		"Duration: 250ms",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("expected log to contain %q, got:\n%s", want, content)
		}
	}
}

// TestFileLoggerCloseIdempotent verifies Close can be called repeatedly and
// writes after Close are dropped without panicking.
func TestFileLoggerCloseIdempotent(t *testing.T) {
	fl, err := NewFileLogger(filepath.Join(t.TempDir(), "run.log"), "info")
	if err != nil {
		t.Fatalf("NewFileLogger: %v", err)
	}

	if err := fl.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := fl.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}

	// Must not panic.
	fl.Infof("after close")
	fl.RunComplete(&models.RunResult{})
}

// TestFileLoggerOpenError verifies a path that cannot be created is reported.
func TestFileLoggerOpenError(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, []byte("file"), 0644); err != nil {
		t.Fatalf("write blocker: %v", err)
	}

	_, err := NewFileLogger(filepath.Join(blocker, "run.log"), "info")
	if err == nil {
		t.Fatal("expected error when parent is a regular file")
	}
	if !strings.Contains(err.Error(), "failed to create log directory") {
		t.Errorf("unexpected error %v", err)
	}
}
