package cmd

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/harrison/stagehand/internal/gitrepo"
	"github.com/harrison/stagehand/internal/history"
	"github.com/harrison/stagehand/internal/logger"
)

// NewHistoryCommand creates and returns the history subcommand
func NewHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent runs recorded in this repository",
		Long: `List runs recorded in the repository's history database, newest first.

Pass --run with a run id (or a unique prefix of one, as shown in the
listing) to print that run's per-task outcomes.`,
		Args:         cobra.NoArgs,
		RunE:         historyCommand,
		SilenceUsage: true,
	}

	cmd.Flags().String("dir", ".", "Repository directory")
	cmd.Flags().String("run", "", "Show task detail for one run id (prefix accepted)")
	cmd.Flags().Int("limit", 20, "Maximum number of runs to list")

	return cmd
}

// historyCommand lists recorded runs or prints one run's task detail.
func historyCommand(cmd *cobra.Command, args []string) error {
	dir, _ := cmd.Flags().GetString("dir")
	runID, _ := cmd.Flags().GetString("run")
	limit, _ := cmd.Flags().GetInt("limit")

	repo, err := gitrepo.Open(dir)
	if err != nil {
		if errors.Is(err, gitrepo.ErrNotARepository) {
			return withExitCode(exitNotARepo, err)
		}
		return err
	}

	store, err := history.NewStore(filepath.Join(runStateDir(repo.Root()), "history.db"))
	if err != nil {
		return fmt.Errorf("open run history: %w", err)
	}
	defer store.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if runID != "" {
		run, err := store.FindRun(ctx, runID)
		if err != nil {
			return err
		}
		tasks, err := store.RunTasks(ctx, run.ID)
		if err != nil {
			return err
		}

		fmt.Fprintf(out, "Run %s\n", run.ID)
		fmt.Fprintf(out, "  started:  %s\n", run.StartedAt.Local().Format("2006-01-02 15:04:05"))
		fmt.Fprintf(out, "  duration: %s\n", logger.FormatDuration(run.Duration))
		fmt.Fprintf(out, "  files:    %d\n", run.TotalFiles)
		fmt.Fprintf(out, "  result:   %s\n\n", runOutcome(*run))

		for _, task := range tasks {
			line := fmt.Sprintf("  %s %s (%s) %s", statusGlyph(task.Status), task.TaskID, task.Group, task.Command)
			switch {
			case task.Status == "TimedOut":
				line += fmt.Sprintf("  timed out (%s)", logger.FormatDuration(task.Duration))
			case task.ExitCode != nil && *task.ExitCode != 0:
				line += fmt.Sprintf("  exit %d (%s)", *task.ExitCode, logger.FormatDuration(task.Duration))
			case task.SkipReason != "":
				line += "  skipped: " + task.SkipReason
			default:
				line += fmt.Sprintf("  %d files, %s", task.FileCount, logger.FormatDuration(task.Duration))
			}
			fmt.Fprintln(out, line)
			if task.StderrExcerpt != "" {
				for _, excerptLine := range strings.Split(strings.TrimRight(task.StderrExcerpt, "\n"), "\n") {
					fmt.Fprintf(out, "      %s\n", excerptLine)
				}
			}
		}
		return nil
	}

	runs, err := store.RecentRuns(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No recorded runs.")
		return nil
	}

	fmt.Fprintf(out, "%-10s %-17s %8s %6s %6s  %s\n", "RUN", "STARTED", "TIME", "FILES", "TASKS", "RESULT")
	for _, run := range runs {
		fmt.Fprintf(out, "%-10s %-17s %8s %6d %6d  %s\n",
			shortRunID(run.ID),
			run.StartedAt.Local().Format("2006-01-02 15:04"),
			logger.FormatDuration(run.Duration),
			run.TotalFiles,
			run.TotalTasks,
			runOutcome(run),
		)
	}
	return nil
}

// runOutcome renders a run's result column: ok, counts of what went wrong,
// and whether the tree was rolled back.
func runOutcome(run history.RunRecord) string {
	var parts []string
	switch {
	case run.Cancelled:
		parts = append(parts, "cancelled")
	case run.Failed == 0 && run.TimedOut == 0:
		parts = append(parts, "ok")
	}
	if run.Failed > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", run.Failed))
	}
	if run.TimedOut > 0 {
		parts = append(parts, fmt.Sprintf("%d timed out", run.TimedOut))
	}
	if run.RolledBack {
		parts = append(parts, "rolled back")
	}
	return strings.Join(parts, ", ")
}

// shortRunID trims a uuid to its leading segment, enough to be unique in a
// listing and accepted back through --run prefix lookup.
func shortRunID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}

// statusGlyph maps a recorded status name to the glyph the live displays use.
func statusGlyph(status string) string {
	switch status {
	case "Done":
		return "✓"
	case "Failed":
		return "✗"
	case "TimedOut":
		return "⏱"
	case "Skipped":
		return "↷"
	default:
		return "·"
	}
}
