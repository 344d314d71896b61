// Package reporter renders run progress as plain console output. The
// ConsoleReporter is the fallback surface when the live TUI is disabled or
// stdout is not a terminal: one line per status transition, a progress bar
// on color-capable terminals, and an end-of-run summary with failure
// excerpts. It observes the run strictly through the status store's event
// stream and never touches task state.
package reporter

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"

	"github.com/harrison/stagehand/internal/logger"
	"github.com/harrison/stagehand/internal/models"
	"github.com/harrison/stagehand/internal/status"
)

// Status glyphs, shared vocabulary with the TUI.
const (
	glyphDone     = "✓"
	glyphFailed   = "✗"
	glyphRunning  = "⟳"
	glyphTimedOut = "⏱"
	glyphSkipped  = "↷"
	glyphWarn     = "⚠"
)

const (
	progressBarWidth = 24
	excerptMaxLines  = 10
)

// ConsoleReporter prints run progress line by line as status events arrive.
type ConsoleReporter struct {
	writer      io.Writer
	store       *status.Store
	progress    *logger.ProgressBar
	colorOutput bool
	barActive   bool

	mu          sync.Mutex
	done        chan struct{}
	unsubscribe func()
}

// NewConsoleReporter creates a reporter for a run of totalTasks tasks.
// When enableColor is set, lines are colorized and a progress bar is
// repainted beneath them.
func NewConsoleReporter(writer io.Writer, store *status.Store, totalTasks int, enableColor bool) *ConsoleReporter {
	return &ConsoleReporter{
		writer:      writer,
		store:       store,
		progress:    logger.NewProgressBar(totalTasks, progressBarWidth, enableColor),
		colorOutput: enableColor,
		barActive:   enableColor && totalTasks > 0,
		done:        make(chan struct{}),
	}
}

// Start subscribes to the status store and begins rendering events in the
// background. Call Stop after the run settles to drain and detach.
func (cr *ConsoleReporter) Start() {
	events, unsubscribe := cr.store.Subscribe()
	cr.unsubscribe = unsubscribe

	go func() {
		defer close(cr.done)
		for event := range events {
			cr.handle(event)
		}
	}()
}

// Stop detaches from the store, waits for buffered events to render, and
// clears the progress bar line. Safe to call when Start was never called.
func (cr *ConsoleReporter) Stop() {
	if cr.unsubscribe == nil {
		return
	}
	cr.unsubscribe()
	<-cr.done

	cr.mu.Lock()
	defer cr.mu.Unlock()
	if cr.barActive {
		fmt.Fprint(cr.writer, "\r\x1b[2K")
	}
}

// handle renders one status transition.
func (cr *ConsoleReporter) handle(event status.Event) {
	task, ok := cr.store.Get(event.TaskID)
	if !ok {
		return
	}

	elapsed := logger.FormatDuration(task.Duration())

	switch event.New {
	case models.StatusRunning:
		cr.printLine(fmt.Sprintf("%s %s (%s): %s [%d files]",
			cr.colorize(glyphRunning, color.FgCyan), task.ID, task.Group, task.Command, len(task.Targets)))
	case models.StatusDone:
		cr.advance()
		cr.printLine(fmt.Sprintf("%s %s (%s) %s",
			cr.colorize(glyphDone, color.FgGreen), task.ID, task.Group, elapsed))
	case models.StatusFailed:
		cr.advance()
		detail := "failed"
		if task.ExitCode != nil {
			detail = fmt.Sprintf("exit %d", *task.ExitCode)
		}
		cr.printLine(fmt.Sprintf("%s %s (%s) %s (%s)",
			cr.colorize(glyphFailed, color.FgRed), task.ID, task.Group, detail, elapsed))
	case models.StatusTimedOut:
		cr.advance()
		cr.printLine(fmt.Sprintf("%s %s (%s) timed out after %s",
			cr.colorize(glyphTimedOut, color.FgRed), task.ID, task.Group, elapsed))
	case models.StatusSkipped:
		cr.advance()
		line := fmt.Sprintf("%s %s (%s) skipped", cr.colorize(glyphSkipped, color.FgYellow), task.ID, task.Group)
		if event.Reason != "" {
			line += ": " + event.Reason
		}
		cr.printLine(line)
	}
}

// advance moves the progress bar forward by one settled task.
func (cr *ConsoleReporter) advance() {
	cr.progress.Increment()
}

// printLine writes one full line, repainting the progress bar beneath it
// when the bar is active.
func (cr *ConsoleReporter) printLine(line string) {
	cr.mu.Lock()
	defer cr.mu.Unlock()

	if cr.barActive {
		fmt.Fprint(cr.writer, "\r\x1b[2K")
	}
	fmt.Fprintln(cr.writer, line)
	if cr.barActive {
		fmt.Fprint(cr.writer, cr.progress.Render())
	}
}

// colorize wraps s in the given color when color output is enabled.
func (cr *ConsoleReporter) colorize(s string, attr color.Attribute) string {
	if !cr.colorOutput {
		return s
	}
	return color.New(attr).Sprint(s)
}

// Summary writes the end-of-run report: empty-group warnings, status counts,
// per-command timings, failure excerpts, and rollback problems.
func (cr *ConsoleReporter) Summary(result *models.RunResult) {
	if result == nil {
		return
	}

	cr.mu.Lock()
	defer cr.mu.Unlock()

	fmt.Fprintln(cr.writer)
	for _, group := range result.EmptyGroups {
		fmt.Fprintf(cr.writer, "%s no files matched group %q\n", cr.colorize(glyphWarn, color.FgYellow), group)
	}

	fmt.Fprintf(cr.writer, "Summary: %s (%s)\n", cr.statusCounts(result), logger.FormatDuration(result.Duration))

	if stats := result.CommandStats(); len(stats) > 0 {
		width := 0
		for _, st := range stats {
			if len(st.Command) > width {
				width = len(st.Command)
			}
		}
		for _, st := range stats {
			fmt.Fprintf(cr.writer, "  %-*s  %d tasks  %s\n", width, st.Command, st.Count, logger.FormatDuration(st.Total))
		}
	}

	if failed := result.FailedTasks(); len(failed) > 0 {
		fmt.Fprintln(cr.writer)
		fmt.Fprintln(cr.writer, "Failures:")
		for _, task := range failed {
			cr.printFailure(task)
		}
	}

	if result.Cancelled {
		fmt.Fprintf(cr.writer, "%s\n", cr.colorize("run cancelled", color.FgRed))
	}
	for _, restoreErr := range result.RestoreErrors {
		fmt.Fprintf(cr.writer, "%s rollback: %s\n", cr.colorize(glyphWarn, color.FgYellow), restoreErr)
	}
}

// statusCounts renders "4 done, 1 failed, 2 skipped" with failure and skip
// segments omitted when zero.
func (cr *ConsoleReporter) statusCounts(result *models.RunResult) string {
	counts := result.StatusCounts()

	parts := []string{cr.colorize(fmt.Sprintf("%d done", counts[models.StatusDone]), color.FgGreen)}
	if failed := counts[models.StatusFailed]; failed > 0 {
		parts = append(parts, cr.colorize(fmt.Sprintf("%d failed", failed), color.FgRed))
	}
	if timedOut := counts[models.StatusTimedOut]; timedOut > 0 {
		parts = append(parts, cr.colorize(fmt.Sprintf("%d timed out", timedOut), color.FgRed))
	}
	if skipped := counts[models.StatusSkipped]; skipped > 0 {
		parts = append(parts, cr.colorize(fmt.Sprintf("%d skipped", skipped), color.FgYellow))
	}
	return strings.Join(parts, ", ")
}

// printFailure writes one failed task's header and a bounded excerpt of its
// captured output.
func (cr *ConsoleReporter) printFailure(task models.Task) {
	detail := "failed"
	switch {
	case task.Status == models.StatusTimedOut:
		detail = "timed out"
	case task.ExitCode != nil:
		detail = fmt.Sprintf("exit %d", *task.ExitCode)
	}
	fmt.Fprintf(cr.writer, "%s %s (%s): %s (%s)\n",
		cr.colorize(glyphFailed, color.FgRed), task.ID, task.Group, task.Command, detail)

	output := strings.TrimSpace(task.Stderr)
	if output == "" {
		output = strings.TrimSpace(task.Stdout)
	}
	if output == "" {
		return
	}

	lines := strings.Split(output, "\n")
	shown := lines
	if len(lines) > excerptMaxLines {
		shown = lines[:excerptMaxLines]
	}
	for _, line := range shown {
		fmt.Fprintf(cr.writer, "    %s\n", line)
	}
	if extra := len(lines) - len(shown); extra > 0 {
		fmt.Fprintf(cr.writer, "    ... (%d more lines)\n", extra)
	}
}

// PrintPlan writes a human-readable rendering of a plan without running it,
// for dry runs.
func PrintPlan(w io.Writer, plan *models.ExecutionPlan) {
	fmt.Fprintf(w, "Run %s: %d tasks across %d groups, %d changed files\n",
		plan.RunID, plan.TaskCount(), len(plan.Groups), plan.TotalFiles)

	for _, groupPlan := range plan.Groups {
		group := groupPlan.Group
		policy := fmt.Sprintf("%s, %s", group.Order, group.Behavior)
		if group.Timeout > 0 {
			policy += fmt.Sprintf(", timeout %s", group.Timeout)
		}
		if group.ContinueOnError {
			policy += ", continue_on_error"
		}
		fmt.Fprintf(w, "\n%s (%s)\n", group.Name, policy)

		for i, batch := range groupPlan.Batches {
			fmt.Fprintf(w, "  batch %d:\n", i+1)
			for _, task := range batch.Tasks {
				fmt.Fprintf(w, "    %s: %s [%s]\n", task.ID, task.Command, strings.Join(task.Targets, " "))
			}
		}
	}

	for _, group := range plan.EmptyGroups {
		fmt.Fprintf(w, "\n%s no files matched group %q\n", glyphWarn, group)
	}
}
