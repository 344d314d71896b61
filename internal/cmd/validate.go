package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/harrison/stagehand/internal/logger"
	"github.com/harrison/stagehand/internal/models"
)

// NewValidateCommand creates and returns the validate subcommand
func NewValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the stagehand configuration",
		Long: `Load and validate the configuration, then print every group with its
patterns, commands, and effective policies.

Configuration is discovered in the repository directory (--dir), or loaded
from an explicit path (--config).

Exit code: 0 if valid, 2 if missing or invalid`,
		Args:         cobra.NoArgs,
		RunE:         validateCommand,
		SilenceUsage: true,
	}

	cmd.Flags().String("config", "", "Path to config file (default: discovered in the repository)")
	cmd.Flags().String("dir", ".", "Repository directory to discover configuration in")

	return cmd
}

// validateCommand loads the configuration and prints the resolved groups and
// policies.
func validateCommand(cmd *cobra.Command, args []string) error {
	dir, _ := cmd.Flags().GetString("dir")
	cfg, err := loadConfig(cmd, dir)
	if err != nil {
		return withExitCode(exitConfigInvalid, err)
	}
	if err := cfg.Validate(); err != nil {
		return withExitCode(exitConfigInvalid, err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Configuration valid: %s\n\n", cfg.Source)

	fmt.Fprintln(out, "Settings:")
	fmt.Fprintf(out, "  max concurrency: %s\n", concurrencyLabel(cfg.MaxConcurrency))
	fmt.Fprintf(out, "  default timeout: %s\n", timeoutLabel(cfg.Timeout))
	fmt.Fprintf(out, "  continue on error: %t\n", cfg.ContinueOnError)
	fmt.Fprintf(out, "  rollback: %t\n", cfg.Rollback)
	fmt.Fprintf(out, "  strict empty: %t\n", cfg.StrictEmpty)

	fmt.Fprintf(out, "\nGroups (%d):\n", len(cfg.Groups))
	for _, group := range cfg.Groups {
		fmt.Fprintf(out, "  %s (%s)\n", group.Name, strings.Join(groupPolicies(group), ", "))
		for _, entry := range group.Patterns {
			fmt.Fprintf(out, "    %s: %s\n", entry.Pattern, strings.Join(entry.Commands, ", "))
		}
	}

	return nil
}

// groupPolicies renders a group's effective policies, listing only the ones
// that deviate from plain defaults after the order and behavior.
func groupPolicies(group models.Group) []string {
	policies := []string{string(group.Order), string(group.Behavior)}
	if group.Timeout > 0 {
		policies = append(policies, "timeout "+logger.FormatDuration(group.Timeout))
	}
	if group.ContinueOnError {
		policies = append(policies, "continue_on_error")
	}
	if !group.Rollback {
		policies = append(policies, "no rollback")
	}
	if group.PathFormat == models.PathAbsolute {
		policies = append(policies, "absolute paths")
	}
	return policies
}

func concurrencyLabel(n int) string {
	if n <= 0 {
		return "one per CPU"
	}
	return fmt.Sprintf("%d", n)
}

func timeoutLabel(d time.Duration) string {
	if d <= 0 {
		return "none"
	}
	return logger.FormatDuration(d)
}
