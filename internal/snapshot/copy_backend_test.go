package snapshot

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func writeFixture(t *testing.T, root, name, content string, mode os.FileMode) string {
	t.Helper()
	path := filepath.Join(root, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create fixture dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), mode); err != nil {
		t.Fatalf("Failed to write fixture %s: %v", name, err)
	}
	return path
}

func TestCopyBackendRoundTrip(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root, "main.go", "package main\n", 0644)
	writeFixture(t, root, "pkg/util.go", "package pkg\n", 0644)

	backend := NewCopyBackend(root)
	m := NewManager(backend)

	snap, err := m.Capture(context.Background(), "run-1", []string{"main.go", "pkg/util.go"})
	if err != nil {
		t.Fatalf("Capture failed: %v", err)
	}

	// A formatter-style rewrite that must be rolled back.
	writeFixture(t, root, "main.go", "package main\n\nfunc main() {}\n", 0644)
	if err := os.Remove(filepath.Join(root, "pkg/util.go")); err != nil {
		t.Fatalf("Failed to remove fixture: %v", err)
	}

	result, err := m.Restore(context.Background(), snap)
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if result.Failed() {
		t.Fatalf("Expected clean restore, got failures: %v", result.Failures)
	}

	content, err := os.ReadFile(filepath.Join(root, "main.go"))
	if err != nil {
		t.Fatalf("Failed to read restored file: %v", err)
	}
	if string(content) != "package main\n" {
		t.Errorf("Restored content mismatch: %q", string(content))
	}

	content, err = os.ReadFile(filepath.Join(root, "pkg/util.go"))
	if err != nil {
		t.Fatalf("Failed to read recreated file: %v", err)
	}
	if string(content) != "package pkg\n" {
		t.Errorf("Recreated content mismatch: %q", string(content))
	}
}

func TestCopyBackendRestoreRemovesCreatedFile(t *testing.T) {
	root := t.TempDir()
	backend := NewCopyBackend(root)

	states, err := backend.Capture(context.Background(), []string{"generated.go"})
	if err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	if len(states) != 1 || states[0].Existed {
		t.Fatalf("Expected absent-file state, got %+v", states)
	}

	// The run creates the file; restore must remove it again.
	writeFixture(t, root, "generated.go", "package gen\n", 0644)
	if err := backend.Restore(context.Background(), states[0]); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "generated.go")); !os.IsNotExist(err) {
		t.Errorf("Expected file to be removed, stat err: %v", err)
	}

	// Restoring an absent state over an already-absent path is a no-op.
	if err := backend.Restore(context.Background(), states[0]); err != nil {
		t.Errorf("Second restore of absent state failed: %v", err)
	}
}

func TestCopyBackendPreservesMode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("file modes are not meaningful on Windows")
	}
	root := t.TempDir()
	writeFixture(t, root, "hook.sh", "#!/bin/sh\n", 0755)

	backend := NewCopyBackend(root)
	states, err := backend.Capture(context.Background(), []string{"hook.sh"})
	if err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	if states[0].Mode != 0755 {
		t.Fatalf("Expected captured mode 0755, got %o", states[0].Mode)
	}

	writeFixture(t, root, "hook.sh", "#!/bin/sh\necho changed\n", 0644)
	if err := backend.Restore(context.Background(), states[0]); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}

	info, err := os.Stat(filepath.Join(root, "hook.sh"))
	if err != nil {
		t.Fatalf("Failed to stat restored file: %v", err)
	}
	if info.Mode().Perm() != 0755 {
		t.Errorf("Expected restored mode 0755, got %o", info.Mode().Perm())
	}
}

func TestCopyBackendAbsolutePaths(t *testing.T) {
	root := t.TempDir()
	abs := writeFixture(t, root, "abs.go", "package abs\n", 0644)

	// Root deliberately points elsewhere so resolution must honor the
	// absolute path.
	backend := NewCopyBackend(t.TempDir())
	states, err := backend.Capture(context.Background(), []string{abs})
	if err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	if !states[0].Existed {
		t.Fatal("Expected absolute path to be captured")
	}

	if err := os.WriteFile(abs, []byte("mutated\n"), 0644); err != nil {
		t.Fatalf("Failed to mutate fixture: %v", err)
	}
	if err := backend.Restore(context.Background(), states[0]); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	content, _ := os.ReadFile(abs)
	if string(content) != "package abs\n" {
		t.Errorf("Restored content mismatch: %q", string(content))
	}
}

func TestCopyBackendCaptureDirectory(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "vendor"), 0755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}

	backend := NewCopyBackend(root)
	_, err := backend.Capture(context.Background(), []string{"vendor"})
	if err == nil {
		t.Fatal("Expected error capturing a directory")
	}
	if !strings.Contains(err.Error(), "cannot snapshot directory") {
		t.Errorf("Unexpected error message: %v", err)
	}
}

func TestCopyBackendCaptureCancelled(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root, "a.go", "package a\n", 0644)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	backend := NewCopyBackend(root)
	if _, err := backend.Capture(ctx, []string{"a.go"}); err == nil {
		t.Fatal("Expected error from cancelled context")
	}
}

func TestCopyBackendRestoreFailureReported(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root, "blocker", "not a directory\n", 0644)

	backend := NewCopyBackend(root)
	state := FileState{
		Path:    "blocker/nested.go",
		Content: []byte("package nested\n"),
		Mode:    0644,
		Existed: true,
	}
	err := backend.Restore(context.Background(), state)
	if err == nil {
		t.Fatal("Expected restore error when parent is a regular file")
	}
	if !strings.Contains(err.Error(), "failed to restore blocker/nested.go") {
		t.Errorf("Unexpected error message: %v", err)
	}
}
