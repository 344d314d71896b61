package executor

import (
	"errors"
	"testing"
)

func TestCommandBinary(t *testing.T) {
	tests := []struct {
		command string
		want    string
	}{
		{"gofmt -w", "gofmt"},
		{"eslint --fix --max-warnings 0", "eslint"},
		{"sh -c 'make lint'", "sh"},
		{"cargo", "cargo"},
		{"", ""},
		{"  spaced   args", "spaced"},
	}

	for _, tt := range tests {
		if got := commandBinary(tt.command); got != tt.want {
			t.Errorf("commandBinary(%q) = %q, want %q", tt.command, got, tt.want)
		}
	}
}

func TestCheckCommand_Found(t *testing.T) {
	lookPath := func(file string) (string, error) {
		if file != "gofmt" {
			t.Errorf("expected lookup of gofmt, got %q", file)
		}
		return "/usr/bin/gofmt", nil
	}

	if err := CheckCommand("gofmt -w", lookPath); err != nil {
		t.Fatalf("CheckCommand returned error: %v", err)
	}
}

func TestCheckCommand_Missing(t *testing.T) {
	lookPath := func(string) (string, error) {
		return "", errors.New("executable file not found in $PATH")
	}

	err := CheckCommand("missing-tool --fix", lookPath)
	if err == nil {
		t.Fatal("expected error for missing binary")
	}
	if !IsCommandNotFound(err) {
		t.Errorf("expected ErrCommandNotFound in chain, got %v", err)
	}
}
