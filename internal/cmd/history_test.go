package cmd

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/harrison/stagehand/internal/history"
	"github.com/harrison/stagehand/internal/models"
)

func TestHistoryCommand_EmptyHistory(t *testing.T) {
	root, _ := initTestRepo(t)

	output, err := executeRoot(t, []string{"history", "--dir", root})
	if err != nil {
		t.Fatalf("Expected success, got %v\noutput:\n%s", err, output)
	}
	if !strings.Contains(output, "No recorded runs.") {
		t.Errorf("Expected empty-history notice, got:\n%s", output)
	}
}

func TestHistoryCommand_NotARepository(t *testing.T) {
	_, err := executeRoot(t, []string{"history", "--dir", t.TempDir()})
	if err == nil {
		t.Fatal("Expected error outside a repository")
	}
	if code := ExitCode(err); code != exitNotARepo {
		t.Errorf("Expected exit code %d, got %d", exitNotARepo, code)
	}
}

func TestHistoryCommand_UnknownRunID(t *testing.T) {
	root, _ := initTestRepo(t)

	_, err := executeRoot(t, []string{"history", "--dir", root, "--run", "zzz"})
	if err == nil {
		t.Fatal("Expected unknown run error")
	}
	if !strings.Contains(err.Error(), "run not found") {
		t.Errorf("Expected run not found error, got %v", err)
	}
}

func TestRunOutcome(t *testing.T) {
	tests := []struct {
		name string
		run  history.RunRecord
		want string
	}{
		{
			name: "clean run",
			run:  history.RunRecord{Done: 3},
			want: "ok",
		},
		{
			name: "failures",
			run:  history.RunRecord{Done: 1, Failed: 2},
			want: "2 failed",
		},
		{
			name: "timeouts and rollback",
			run:  history.RunRecord{TimedOut: 1, RolledBack: true},
			want: "1 timed out, rolled back",
		},
		{
			name: "cancelled with failure",
			run:  history.RunRecord{Cancelled: true, Failed: 1, RolledBack: true},
			want: "cancelled, 1 failed, rolled back",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := runOutcome(tt.run); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestShortRunID(t *testing.T) {
	if got := shortRunID("4f9d2c61-0000-0000-0000-000000000000"); got != "4f9d2c61" {
		t.Errorf("Expected uuid leading segment, got %q", got)
	}
	if got := shortRunID("plainid"); got != "plainid" {
		t.Errorf("Expected id unchanged, got %q", got)
	}
}

func TestStatusGlyph(t *testing.T) {
	tests := []struct {
		status string
		want   string
	}{
		{"Done", "✓"},
		{"Failed", "✗"},
		{"TimedOut", "⏱"},
		{"Skipped", "↷"},
		{"Running", "·"},
	}
	for _, tt := range tests {
		if got := statusGlyph(tt.status); got != tt.want {
			t.Errorf("statusGlyph(%q): expected %q, got %q", tt.status, tt.want, got)
		}
	}
}

// sampleHistoryResult builds a finished run with a failed and a skipped task.
func sampleHistoryResult(runID string) *models.RunResult {
	started := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	ended := started.Add(250 * time.Millisecond)
	exitCode := 2

	return &models.RunResult{
		RunID:      runID,
		TotalFiles: 2,
		Duration:   300 * time.Millisecond,
		Tasks: []models.Task{
			{
				ID: "lint-1", Group: "lint", Command: "eslint",
				Targets: []string{"a.js"},
				Status:  models.StatusFailed, ExitCode: &exitCode,
				Stderr: "a.js:3: unexpected token", StartedAt: &started, EndedAt: &ended,
			},
			{
				ID: "lint-2", Group: "lint", Command: "eslint",
				Targets: []string{"b.js"},
				Status:  models.StatusSkipped, SkipReason: "previous task failed",
			},
		},
	}
}

// Detail rendering against a seeded store, without going through a full run.
func TestHistoryCommand_DetailFromSeededStore(t *testing.T) {
	root, _ := initTestRepo(t)

	store, err := history.NewStore(filepath.Join(runStateDir(root), "history.db"))
	if err != nil {
		t.Fatalf("Failed to open history store: %v", err)
	}
	result := sampleHistoryResult("11112222-aaaa-bbbb-cccc-000000000000")
	if err := store.RecordRun(context.Background(), time.Now(), result, true); err != nil {
		t.Fatalf("Failed to record run: %v", err)
	}
	store.Close()

	output, err := executeRoot(t, []string{"history", "--dir", root, "--run", "11112222"})
	if err != nil {
		t.Fatalf("Expected success, got %v\noutput:\n%s", err, output)
	}
	for _, want := range []string{
		"Run 11112222-aaaa-bbbb-cccc-000000000000",
		"1 failed, rolled back",
		"✗ lint-1 (lint) eslint  exit 2",
		"a.js:3: unexpected token",
		"↷ lint-2 (lint) eslint  skipped: previous task failed",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected detail to contain %q, got:\n%s", want, output)
		}
	}
}
