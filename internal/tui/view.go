package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/harrison/stagehand/internal/logger"
	"github.com/harrison/stagehand/internal/models"
)

var (
	styleHeader  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	styleGroup   = lipgloss.NewStyle().Bold(true)
	styleDone    = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50"))
	styleFailed  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	styleRunning = lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF"))
	stylePending = lipgloss.NewStyle().Foreground(lipgloss.Color("#999999"))
	styleSkipped = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801"))
	styleDim     = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	styleCancel  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801")).Bold(true)
)

const (
	glyphDone     = "✓"
	glyphFailed   = "✗"
	glyphRunning  = "⟳"
	glyphPending  = "⏳"
	glyphTimedOut = "⏱"
	glyphSkipped  = "↷"
)

const (
	defaultWidth  = 100
	minDetailCols = 24
)

// View renders the full screen: header with elapsed clock, one section per
// group with per-task rows, per-command timings, and the key hint footer.
func (m Model) View() string {
	width := m.width
	if width <= 0 {
		width = defaultWidth
	}

	var lines []string
	lines = append(lines, m.renderHeader())
	lines = append(lines, "")

	for _, section := range m.groups {
		lines = append(lines, m.renderGroup(section, width)...)
		lines = append(lines, "")
	}

	if stats := m.renderCommandStats(); len(stats) > 0 {
		lines = append(lines, stats...)
		lines = append(lines, "")
	}

	lines = append(lines, m.renderFooter())
	return strings.Join(lines, "\n")
}

// renderHeader shows the run id, the spinner while tasks are in flight, and
// the elapsed clock.
func (m Model) renderHeader() string {
	header := styleHeader.Render("stagehand") + " " + styleDim.Render("run "+shortID(m.runID))

	elapsed := logger.FormatDuration(time.Since(m.startedAt).Truncate(100 * time.Millisecond))
	switch {
	case m.cancelRequested && !m.finished:
		header += "  " + m.spinner.View() + " " + styleCancel.Render("cancelling, waiting for tasks to settle")
	case !m.finished:
		header += "  " + m.spinner.View() + " " + styleDim.Render(elapsed)
	default:
		header += "  " + styleDim.Render(elapsed)
	}
	return header
}

// renderGroup renders one group's section header and its task rows.
func (m Model) renderGroup(section groupSection, width int) []string {
	settled := 0
	for _, id := range section.taskIDs {
		if m.tasks[id].Status.IsTerminal() {
			settled++
		}
	}

	lines := []string{
		styleGroup.Render(section.name) + styleDim.Render(fmt.Sprintf(" %d/%d", settled, len(section.taskIDs))),
	}

	idWidth := 0
	for _, id := range section.taskIDs {
		if len(id) > idWidth {
			idWidth = len(id)
		}
	}

	for _, id := range section.taskIDs {
		task := m.tasks[id]
		lines = append(lines, m.renderTaskRow(task, idWidth, width))
	}
	return lines
}

// renderTaskRow renders a single task line: glyph, id, command, detail.
func (m Model) renderTaskRow(task models.Task, idWidth, width int) string {
	glyph, style := glyphFor(task, m.spinner.View())

	detail := ""
	switch task.Status {
	case models.StatusDone:
		detail = logger.FormatDuration(task.Duration())
	case models.StatusFailed:
		if task.ExitCode != nil {
			detail = fmt.Sprintf("exit %d (%s)", *task.ExitCode, logger.FormatDuration(task.Duration()))
		} else {
			detail = "failed"
		}
	case models.StatusTimedOut:
		detail = "timed out after " + logger.FormatDuration(task.Duration())
	case models.StatusSkipped:
		detail = "skipped"
		if task.SkipReason != "" {
			detail += ": " + task.SkipReason
		}
	case models.StatusRunning:
		if task.StartedAt != nil {
			detail = logger.FormatDuration(time.Since(*task.StartedAt).Truncate(100 * time.Millisecond))
		}
	}

	command := fmt.Sprintf("%s [%d files]", task.Command, len(task.Targets))
	available := width - idWidth - len(detail) - 10
	if available < minDetailCols {
		available = minDetailCols
	}
	command = truncate(command, available)

	row := fmt.Sprintf("  %s %-*s  %s", glyph, idWidth, task.ID, command)
	if detail != "" {
		row += "  " + style.Render(detail)
	}
	return row
}

// renderCommandStats aggregates settled durations per command line.
func (m Model) renderCommandStats() []string {
	result := models.RunResult{Tasks: m.orderedTasks()}
	stats := result.CommandStats()
	if len(stats) == 0 {
		return nil
	}

	width := 0
	for _, st := range stats {
		if len(st.Command) > width {
			width = len(st.Command)
		}
	}

	lines := []string{styleDim.Render("commands")}
	for _, st := range stats {
		lines = append(lines, fmt.Sprintf("  %-*s  %d tasks  %s", width, st.Command, st.Count, logger.FormatDuration(st.Total)))
	}
	return lines
}

// renderFooter shows live status counts and the quit hint.
func (m Model) renderFooter() string {
	counts := m.counts()

	var parts []string
	if n := counts[models.StatusDone]; n > 0 {
		parts = append(parts, styleDone.Render(fmt.Sprintf("%d done", n)))
	}
	if n := counts[models.StatusFailed]; n > 0 {
		parts = append(parts, styleFailed.Render(fmt.Sprintf("%d failed", n)))
	}
	if n := counts[models.StatusTimedOut]; n > 0 {
		parts = append(parts, styleFailed.Render(fmt.Sprintf("%d timed out", n)))
	}
	if n := counts[models.StatusSkipped]; n > 0 {
		parts = append(parts, styleSkipped.Render(fmt.Sprintf("%d skipped", n)))
	}
	if n := counts[models.StatusRunning]; n > 0 {
		parts = append(parts, styleRunning.Render(fmt.Sprintf("%d running", n)))
	}
	if n := counts[models.StatusPending]; n > 0 {
		parts = append(parts, stylePending.Render(fmt.Sprintf("%d pending", n)))
	}

	line := strings.Join(parts, styleDim.Render(" · "))
	if line != "" {
		line += "    "
	}
	return line + styleDim.Render("q/esc cancel")
}

// glyphFor maps a task's status to its glyph and style. Running tasks show
// the shared spinner frame instead of a static glyph.
func glyphFor(task models.Task, spinnerFrame string) (string, lipgloss.Style) {
	switch task.Status {
	case models.StatusDone:
		return styleDone.Render(glyphDone), styleDone
	case models.StatusFailed:
		return styleFailed.Render(glyphFailed), styleFailed
	case models.StatusTimedOut:
		return styleFailed.Render(glyphTimedOut), styleFailed
	case models.StatusSkipped:
		return styleSkipped.Render(glyphSkipped), styleSkipped
	case models.StatusRunning:
		if spinnerFrame != "" {
			return spinnerFrame, styleRunning
		}
		return styleRunning.Render(glyphRunning), styleRunning
	default:
		return stylePending.Render(glyphPending), stylePending
	}
}

// truncate cuts s to at most width cells, appending an ellipsis when cut.
func truncate(s string, width int) string {
	if width <= 1 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width-1]) + "…"
}

// shortID trims a run uuid to its leading segment for display.
func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
