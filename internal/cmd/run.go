package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/harrison/stagehand/internal/config"
	"github.com/harrison/stagehand/internal/executor"
	"github.com/harrison/stagehand/internal/filelock"
	"github.com/harrison/stagehand/internal/gitrepo"
	"github.com/harrison/stagehand/internal/history"
	"github.com/harrison/stagehand/internal/logger"
	"github.com/harrison/stagehand/internal/models"
	"github.com/harrison/stagehand/internal/planner"
	"github.com/harrison/stagehand/internal/reporter"
	"github.com/harrison/stagehand/internal/router"
	"github.com/harrison/stagehand/internal/snapshot"
	"github.com/harrison/stagehand/internal/status"
	"github.com/harrison/stagehand/internal/tui"
)

// runCommand implements the root command: route staged files through the
// configured groups and execute them.
func runCommand(cmd *cobra.Command, args []string) error {
	dir, _ := cmd.Flags().GetString("dir")

	repo, err := gitrepo.Open(dir)
	if err != nil {
		if errors.Is(err, gitrepo.ErrNotARepository) {
			return withExitCode(exitNotARepo, err)
		}
		return err
	}

	// Configuration is discovered at the repository root, not the invocation
	// directory, so running from a subdirectory behaves the same.
	cfg, err := loadConfig(cmd, repo.Root())
	if err != nil {
		return withExitCode(exitConfigInvalid, err)
	}
	if err := mergeFlags(cmd, cfg); err != nil {
		return withExitCode(exitConfigInvalid, err)
	}
	if err := cfg.Validate(); err != nil {
		return withExitCode(exitConfigInvalid, err)
	}

	// Get flag values
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	noTUI, _ := cmd.Flags().GetBool("no-tui")
	quiet, _ := cmd.Flags().GetBool("quiet")
	verbose, _ := cmd.Flags().GetBool("verbose")
	noColor, _ := cmd.Flags().GetBool("no-color")
	logFile, _ := cmd.Flags().GetString("log-file")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	files, err := repo.StagedFiles(ctx)
	if err != nil {
		if errors.Is(err, gitrepo.ErrNoStagedFiles) {
			return withExitCode(exitNoStagedFiles, err)
		}
		return fmt.Errorf("read staged files: %w", err)
	}

	routed := router.Route(files, cfg.Groups)
	plan, err := planner.Build(routed, planner.Options{
		RunID:    uuid.NewString(),
		RepoRoot: repo.Root(),
	})
	if err != nil {
		return fmt.Errorf("build execution plan: %w", err)
	}

	if cfg.StrictEmpty && len(plan.EmptyGroups) > 0 {
		return withExitCode(exitEmptyMatch,
			fmt.Errorf("no staged files matched group(s): %s", strings.Join(plan.EmptyGroups, ", ")))
	}

	out := cmd.OutOrStdout()

	if dryRun {
		reporter.PrintPlan(out, plan)
		return nil
	}

	if plan.TaskCount() == 0 {
		for _, name := range plan.EmptyGroups {
			fmt.Fprintf(out, "no staged files matched group %q\n", name)
		}
		fmt.Fprintln(out, "Nothing to run.")
		return nil
	}

	// One run per worktree. A second invocation while this one holds the
	// lock fails fast instead of interleaving tree mutations.
	stateDir := runStateDir(repo.Root())
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}
	lock := filelock.NewFileLock(filepath.Join(stateDir, "run.lock"))
	acquired, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire run lock: %w", err)
	}
	if !acquired {
		return fmt.Errorf("another stagehand run is active in this repository (lock %s)", lock.Path())
	}
	defer lock.Unlock()

	// Capture the pre-run snapshot before anything dispatches. A capture
	// failure aborts the run: without it a failed command could not be
	// rolled back.
	var manager *snapshot.Manager
	var snap *snapshot.Snapshot
	if cfg.Rollback {
		if targets := plan.RollbackTargets(); len(targets) > 0 {
			manager = snapshot.NewManager(snapshot.NewCopyBackend(repo.Root()))
			snap, err = manager.Capture(ctx, plan.RunID, targets)
			if err != nil {
				return fmt.Errorf("snapshot capture failed, refusing to run: %w", err)
			}
		}
	}

	interactive := false
	if f, ok := out.(*os.File); ok {
		interactive = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	useTUI := interactive && !noTUI && !quiet
	enableColor := interactive && !noColor

	// The run log is always detailed; --verbose only affects the console.
	var fileLog *logger.FileLogger
	if logFile != "" {
		fileLog, err = logger.NewFileLogger(logFile, "debug")
		if err != nil {
			return fmt.Errorf("create log file: %w", err)
		}
		defer fileLog.Close()
	}

	// Engine diagnostics go to stderr in plain mode; the TUI owns the
	// terminal, so there they go to the log file only.
	var diagnostics []logger.Logger
	if fileLog != nil {
		diagnostics = append(diagnostics, fileLog)
	}
	if !useTUI && !quiet {
		diagLevel := "warn"
		if verbose {
			diagLevel = "debug"
		}
		diagnostics = append(diagnostics, logger.NewConsoleLogger(cmd.ErrOrStderr(), diagLevel))
	}
	engineLog := logger.NewMultiLogger(diagnostics...)

	store := status.NewStore()
	defer store.Close()

	var waitLogStream func()
	if fileLog != nil {
		waitLogStream = forwardTransitions(store, fileLog, plan)
	}

	runner := executor.NewProcessRunner(repo.Root())
	engine := executor.NewEngine(runner, store, engineLog, executor.Options{
		MaxConcurrency: cfg.MaxConcurrency,
	})

	rep := reporter.NewConsoleReporter(out, store, plan.TaskCount(), enableColor)

	startedAt := time.Now()
	var result *models.RunResult
	var runErr error

	if useTUI {
		result, runErr = runWithTUI(ctx, engine, store, plan)
	} else {
		if !quiet {
			rep.Start()
		}
		result, runErr = engine.Execute(ctx, plan)
		if !quiet {
			rep.Stop()
		}
	}

	if waitLogStream != nil {
		waitLogStream()
	}

	if result == nil {
		return fmt.Errorf("execution failed: %w", runErr)
	}

	// Restore on any failure or cancellation, discard on success. Restore
	// runs on a fresh context so a cancelled run still gets its tree back.
	rolledBack := false
	if snap != nil {
		if result.Succeeded() {
			if err := manager.Discard(snap); err != nil {
				engineLog.Warnf("discard snapshot: %v", err)
			}
		} else {
			rolledBack = true
			restored, err := manager.Restore(context.Background(), snap)
			if err != nil {
				result.RestoreErrors = append(result.RestoreErrors, err.Error())
			} else {
				result.RestoreErrors = restored.FailureMessages()
			}
			fmt.Fprintf(out, "Working tree restored from pre-run snapshot (%d files).\n", snap.Len())
		}
	}

	if fileLog != nil {
		fileLog.RunComplete(result)
	}
	rep.Summary(result)

	recordHistory(stateDir, startedAt, result, rolledBack, engineLog)

	if runErr != nil {
		return fmt.Errorf("execution failed: %w", runErr)
	}

	switch result.ExitCode() {
	case 0:
		return nil
	case exitCancelled:
		return withExitCode(exitCancelled, errors.New("run cancelled"))
	default:
		return withExitCode(exitTaskFailure, fmt.Errorf("%d task(s) failed", len(result.FailedTasks())))
	}
}

// runWithTUI drives the engine underneath the live terminal display. The
// model subscribes to the status store before the engine starts, so no
// transition is missed.
func runWithTUI(ctx context.Context, engine *executor.Engine, store *status.Store, plan *models.ExecutionPlan) (*models.RunResult, error) {
	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	program := tea.NewProgram(tui.NewModel(store, plan, cancelRun), tea.WithAltScreen())

	type outcome struct {
		result *models.RunResult
		err    error
	}
	outcomeCh := make(chan outcome, 1)
	go func() {
		result, err := engine.Execute(runCtx, plan)
		outcomeCh <- outcome{result: result, err: err}
		if result != nil {
			program.Send(tui.RunFinishedMsg{Result: result})
		} else {
			program.Quit()
		}
	}()

	if _, err := program.Run(); err != nil {
		// The display failed; stop the engine and settle.
		cancelRun()
	}
	settled := <-outcomeCh
	return settled.result, settled.err
}

// loadConfig loads the configuration named by --config, or discovers it in
// dir.
func loadConfig(cmd *cobra.Command, dir string) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")
	if configPath != "" {
		return config.Load(configPath)
	}
	return config.LoadFromDir(dir)
}

// mergeFlags folds changed CLI flags into the configuration. Only flags the
// user actually set override the file.
func mergeFlags(cmd *cobra.Command, cfg *config.Config) error {
	var maxConcurrency *int
	if cmd.Flags().Changed("max-concurrency") {
		v, _ := cmd.Flags().GetInt("max-concurrency")
		maxConcurrency = &v
	}

	var timeout *time.Duration
	if cmd.Flags().Changed("timeout") {
		raw, _ := cmd.Flags().GetString("timeout")
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid timeout %q: %w", raw, err)
		}
		timeout = &d
	}

	var continueOnError *bool
	if cmd.Flags().Changed("continue-on-error") {
		v, _ := cmd.Flags().GetBool("continue-on-error")
		continueOnError = &v
	}

	var rollback *bool
	if cmd.Flags().Changed("no-rollback") {
		noRollback, _ := cmd.Flags().GetBool("no-rollback")
		v := !noRollback
		rollback = &v
	}

	var strictEmpty *bool
	if cmd.Flags().Changed("strict-empty") {
		v, _ := cmd.Flags().GetBool("strict-empty")
		strictEmpty = &v
	}

	cfg.MergeWithFlags(maxConcurrency, timeout, continueOnError, rollback, strictEmpty)
	return nil
}

// runStateDir returns the directory stagehand keeps its lock and history
// files in. Linked worktrees have a .git file instead of a directory; those
// fall back to a per-repository path under the system temp directory.
func runStateDir(root string) string {
	gitDir := filepath.Join(root, ".git")
	if info, err := os.Stat(gitDir); err == nil && info.IsDir() {
		return filepath.Join(gitDir, "stagehand")
	}
	id := uuid.NewSHA1(uuid.NameSpaceURL, []byte("stagehand:"+root))
	return filepath.Join(os.TempDir(), "stagehand-"+id.String())
}

// forwardTransitions mirrors status events into the run log so the file
// carries the same lifecycle the terminal showed, including group start and
// settle lines. The returned function unsubscribes and waits for the stream
// to drain.
func forwardTransitions(store *status.Store, log logger.Logger, plan *models.ExecutionPlan) func() {
	type groupProgress struct {
		total     int
		settled   int
		failed    int
		started   bool
		startedAt time.Time
	}
	groups := make(map[string]*groupProgress, len(plan.Groups))
	for _, groupPlan := range plan.Groups {
		total := 0
		for _, batch := range groupPlan.Batches {
			total += len(batch.Tasks)
		}
		groups[groupPlan.Group.Name] = &groupProgress{total: total}
	}

	events, unsubscribe := store.Subscribe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for event := range events {
			task, ok := store.Get(event.TaskID)
			if !ok {
				continue
			}
			progress := groups[event.Group]
			switch {
			case event.New == models.StatusRunning:
				if progress != nil && !progress.started {
					progress.started = true
					progress.startedAt = time.Now()
					log.GroupStarted(event.Group, progress.total)
				}
				log.TaskStarted(task)
			case event.New.IsTerminal():
				log.TaskCompleted(task)
				if progress == nil {
					continue
				}
				progress.settled++
				if task.Failed() {
					progress.failed++
				}
				if progress.settled == progress.total {
					var elapsed time.Duration
					if progress.started {
						elapsed = time.Since(progress.startedAt)
					}
					log.GroupComplete(event.Group, elapsed, progress.failed)
				}
			}
		}
	}()

	return func() {
		unsubscribe()
		<-done
	}
}

// recordHistory writes the run outcome to the history database. History is
// best effort: failures are logged, never fatal.
func recordHistory(stateDir string, startedAt time.Time, result *models.RunResult, rolledBack bool, log logger.Logger) {
	historyStore, err := history.NewStore(filepath.Join(stateDir, "history.db"))
	if err != nil {
		log.Warnf("run history unavailable: %v", err)
		return
	}
	defer historyStore.Close()

	if err := historyStore.RecordRun(context.Background(), startedAt, result, rolledBack); err != nil {
		log.Warnf("record run history: %v", err)
	}
}
