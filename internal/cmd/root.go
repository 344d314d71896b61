package cmd

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for stagehand.
// The root command itself runs the pipeline; validate and history are
// subcommands.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stagehand",
		Short: "Run configured commands against staged files",
		Long: `Stagehand routes the files staged in the git index through configured
command groups (formatters, linters, test runners) and executes them with
bounded concurrency, rolling the working tree back when a command fails.

Configuration is discovered in the repository root (.stagehand.yaml,
.stagehand.toml, or a "stagehand" key in package.json). CLI flags override
configuration file settings.

Examples:
  # Run all groups against the staged files
  stagehand

  # Validate configuration without touching the tree
  stagehand validate

  # Show what would run, without executing anything
  stagehand --dry-run

  # Cap concurrency and force a global timeout
  stagehand --max-concurrency 2 --timeout 90s

  # Keep going past failures and skip the pre-run snapshot
  stagehand --continue-on-error --no-rollback

  # Inspect past runs
  stagehand history
  stagehand history --run 4f9d2c61`,
		Version: Version,
		Args:    cobra.NoArgs,
		RunE:    runCommand,
		// Silence usage on errors to avoid duplicate help text. Errors are
		// printed once by main with the mapped exit code.
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Add flags
	cmd.Flags().String("config", "", "Path to config file (default: discovered in the repository)")
	cmd.Flags().String("dir", ".", "Repository directory to run in")
	cmd.Flags().Int("max-concurrency", -1, "Maximum number of concurrent tasks (0 = one per CPU, -1 = use config)")
	cmd.Flags().String("timeout", "", "Per-task timeout applied to every group (e.g., 30s, 2m)")
	cmd.Flags().Bool("continue-on-error", false, "Keep running a group's remaining tasks after a failure")
	cmd.Flags().Bool("no-rollback", false, "Skip the pre-run snapshot and leave partial changes on failure")
	cmd.Flags().Bool("strict-empty", false, "Fail when a group's patterns match no staged files")
	cmd.Flags().Bool("dry-run", false, "Print the execution plan without running anything")
	cmd.Flags().Bool("no-tui", false, "Disable the live terminal display")
	cmd.Flags().Bool("quiet", false, "Suppress per-task output, print only the final summary")
	cmd.Flags().BoolP("verbose", "v", false, "Show debug-level diagnostics")
	cmd.Flags().String("log-file", "", "Write a detailed run log to this file")
	cmd.Flags().Bool("no-color", false, "Disable colored output")

	// Add subcommands
	cmd.AddCommand(NewValidateCommand())
	cmd.AddCommand(NewHistoryCommand())

	return cmd
}
