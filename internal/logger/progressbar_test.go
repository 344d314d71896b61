package logger

import (
	"strings"
	"sync"
	"testing"
)

// TestProgressBarRender verifies the bar shape at various fill levels.
func TestProgressBarRender(t *testing.T) {
	tests := []struct {
		name     string
		current  int
		total    int
		width    int
		expected string
	}{
		{"empty", 0, 8, 8, "[        ] 0/8 (0%)"},
		{"half", 4, 8, 8, "[====    ] 4/8 (50%)"},
		{"full", 8, 8, 8, "[========] 8/8 (100%)"},
		{"partial fill rounds down", 1, 3, 10, "[===       ] 1/3 (33%)"},
		{"overshoot clamps to full", 12, 8, 8, "[========] 12/8 (100%)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pb := NewProgressBar(tt.total, tt.width, false)
			pb.Update(tt.current)

			if got := pb.Render(); got != tt.expected {
				t.Errorf("Render() = %q, want %q", got, tt.expected)
			}
		})
	}
}

// TestProgressBarZeroTotal verifies a zero-task bar renders without dividing
// by zero.
func TestProgressBarZeroTotal(t *testing.T) {
	pb := NewProgressBar(0, 4, false)

	if pb.Percentage() != 0 {
		t.Errorf("Percentage() = %d, want 0", pb.Percentage())
	}
	if got := pb.Render(); got != "[    ] 0/0 (0%)" {
		t.Errorf("Render() = %q", got)
	}
}

// TestProgressBarIncrement verifies Increment advances the counter.
func TestProgressBarIncrement(t *testing.T) {
	pb := NewProgressBar(4, 4, false)

	pb.Increment()
	pb.Increment()

	if pb.Current() != 2 {
		t.Errorf("Current() = %d, want 2", pb.Current())
	}
	if pb.Total() != 4 {
		t.Errorf("Total() = %d, want 4", pb.Total())
	}
	if pb.Percentage() != 50 {
		t.Errorf("Percentage() = %d, want 50", pb.Percentage())
	}
}

// TestProgressBarPrefix verifies the prefix appears before the bar.
func TestProgressBarPrefix(t *testing.T) {
	pb := NewProgressBar(2, 4, false)
	pb.SetPrefix("lint ")
	pb.Update(1)

	got := pb.Render()
	if !strings.HasPrefix(got, "lint [") {
		t.Errorf("Render() = %q, want prefix %q", got, "lint ")
	}
}

// TestProgressBarMinimumWidth verifies a degenerate width falls back to a
// usable default.
func TestProgressBarMinimumWidth(t *testing.T) {
	pb := NewProgressBar(10, 0, false)

	if pb.width != 10 {
		t.Errorf("width = %d, want 10", pb.width)
	}
}

// TestProgressBarConcurrentUpdates verifies concurrent increments are not
// lost.
func TestProgressBarConcurrentUpdates(t *testing.T) {
	pb := NewProgressBar(100, 10, false)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pb.Increment()
		}()
	}
	wg.Wait()

	if pb.Current() != 100 {
		t.Errorf("Current() = %d, want 100", pb.Current())
	}
	if pb.Percentage() != 100 {
		t.Errorf("Percentage() = %d, want 100", pb.Percentage())
	}
}
