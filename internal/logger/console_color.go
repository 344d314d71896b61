package logger

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"github.com/harrison/stagehand/internal/models"
)

// colorScheme defines consistent colors for different outcome types.
// Green: successful tasks
// Red: failed or timed out tasks
// Yellow: skipped tasks
// Cyan: labels and identifiers
type colorScheme struct {
	success *color.Color
	fail    *color.Color
	warn    *color.Color
	label   *color.Color
	value   *color.Color
}

// newColorScheme creates the standard color scheme for run statistics.
func newColorScheme() *colorScheme {
	return &colorScheme{
		success: color.New(color.FgGreen),
		fail:    color.New(color.FgRed),
		warn:    color.New(color.FgYellow),
		label:   color.New(color.FgCyan),
		value:   color.New(color.FgWhite),
	}
}

// formatColorizedMetric formats a single metric with colorized label and value.
// Format: "label: value"
func formatColorizedMetric(label string, value interface{}, scheme *colorScheme) string {
	labelColored := scheme.label.Sprint(label)
	valueColored := scheme.value.Sprintf("%v", value)
	return fmt.Sprintf("%s: %s", labelColored, valueColored)
}

// formatColorizedStatusCounts formats final status counts with color coding.
// Format: "done: N, failed: N, timed out: N, skipped: N"
// Zero counts are omitted except done, which is always shown.
// Colors are automatically disabled when output is not a TTY via fatih/color's built-in detection.
func formatColorizedStatusCounts(counts map[models.CommandStatus]int) string {
	scheme := newColorScheme()
	var parts []string

	labelColored := scheme.success.Sprint("done")
	valueColored := scheme.value.Sprintf("%d", counts[models.StatusDone])
	parts = append(parts, fmt.Sprintf("%s: %s", labelColored, valueColored))

	if failed := counts[models.StatusFailed]; failed > 0 {
		labelColored := scheme.fail.Sprint("failed")
		valueColored := scheme.fail.Sprintf("%d", failed)
		parts = append(parts, fmt.Sprintf("%s: %s", labelColored, valueColored))
	}

	if timedOut := counts[models.StatusTimedOut]; timedOut > 0 {
		labelColored := scheme.fail.Sprint("timed out")
		valueColored := scheme.fail.Sprintf("%d", timedOut)
		parts = append(parts, fmt.Sprintf("%s: %s", labelColored, valueColored))
	}

	if skipped := counts[models.StatusSkipped]; skipped > 0 {
		labelColored := scheme.warn.Sprint("skipped")
		valueColored := scheme.warn.Sprintf("%d", skipped)
		parts = append(parts, fmt.Sprintf("%s: %s", labelColored, valueColored))
	}

	return strings.Join(parts, ", ")
}
